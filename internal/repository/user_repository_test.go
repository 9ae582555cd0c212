package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-api/internal/model"
)

var userCols = []string{"id", "name", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}

func TestUserRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash, role, is_active) VALUES (?,?,?,?,?)")).
		WithArgs("Alice", "alice@example.com", "hash", "user", true).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + userColumns + " FROM users WHERE id=?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(5, "Alice", "alice@example.com", "hash", "user", true, now, now))

	u, err := NewUserRepo(db).Create(context.Background(), model.User{
		Name: "Alice", Email: " Alice@Example.com", PasswordHash: "hash", Role: model.RoleUser, IsActive: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), u.ID)
	assert.Equal(t, model.RoleUser, u.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = NewUserRepo(db).Create(context.Background(), model.User{Email: "a@b.c"})
	assert.ErrorIs(t, err, model.ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_GetByEmailNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM users WHERE email=\\?").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err = NewUserRepo(db).GetByEmail(context.Background(), "Nobody@Example.com")
	assert.ErrorIs(t, err, model.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery("SELECT .* FROM users ORDER BY created_at DESC, id DESC LIMIT \\? OFFSET \\?").
		WithArgs(2, 10).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(12, "L", "l@example.com", "h", "admin", true, now, now).
			AddRow(11, "K", "k@example.com", "h", "user", false, now, now))

	users, total, err := NewUserRepo(db).List(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, total)
	require.Len(t, users, 2)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
	assert.False(t, users[1].IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_DeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM users WHERE id=\\?").WithArgs(uint64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewUserRepo(db).Delete(context.Background(), 9), model.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
