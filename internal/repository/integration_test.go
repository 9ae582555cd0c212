//go:build integration

package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/database"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/repository"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/token"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "password",
				"MYSQL_DATABASE":      "blog_test",
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(3 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		panic(err)
	}
	dsn = database.DSN(config.Database{User: "root", Pass: "password", Host: host, Port: port.Port(), Name: "blog_test"})

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		if db, err = database.Open(ctx, dsn); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRepositories_MySQL(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	var author model.User

	t.Run("user_repository", func(t *testing.T) {
		var err error
		author, err = users.Create(ctx, model.User{Name: "Alice", Email: "Alice@Example.com", PasswordHash: "$2a$10$x", Role: model.RoleUser, IsActive: true})
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", author.Email)

		_, err = users.Create(ctx, model.User{Name: "Dup", Email: "alice@example.com", PasswordHash: "h", Role: model.RoleUser, IsActive: true})
		assert.ErrorIs(t, err, model.ErrDuplicateEmail)

		got, err := users.GetByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, author.ID, got.ID)

		require.NoError(t, users.UpdatePassword(ctx, author.ID, "$2a$10$y"))
		got, err = users.GetByID(ctx, author.ID)
		require.NoError(t, err)
		assert.Equal(t, "$2a$10$y", got.PasswordHash)
	})

	t.Run("token_rotation", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		old, err := tokens.Create(ctx, model.RefreshToken{UserID: author.ID, TokenHash: "old-hash", ExpiresAt: now.Add(time.Hour)})
		require.NoError(t, err)

		err = tokens.WithTx(ctx, func(tx model.RefreshTokenStore) error {
			ok, err := tx.RevokeByHash(ctx, old.TokenHash, now)
			if err != nil || !ok {
				return fmt.Errorf("revoke: ok=%v err=%w", ok, err)
			}
			_, err = tx.Create(ctx, model.RefreshToken{UserID: author.ID, TokenHash: "new-hash", ExpiresAt: now.Add(time.Hour)})
			return err
		})
		require.NoError(t, err)

		_, err = tokens.FindActiveByHash(ctx, "old-hash")
		assert.ErrorIs(t, err, model.ErrNotFound)
		_, err = tokens.FindActiveByHash(ctx, "new-hash")
		require.NoError(t, err)

		ok, err := tokens.RevokeByHash(ctx, "old-hash", now)
		require.NoError(t, err)
		assert.False(t, ok, "second revoke must not win")

		err = tokens.WithTx(ctx, func(tx model.RefreshTokenStore) error {
			if _, err := tx.RevokeByHash(ctx, "new-hash", now); err != nil {
				return err
			}
			return fmt.Errorf("abort")
		})
		require.Error(t, err)
		_, err = tokens.FindActiveByHash(ctx, "new-hash")
		assert.NoError(t, err, "rolled back revoke leaves the token active")

		n, err := tokens.RevokeAllForUser(ctx, author.ID, now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		deleted, err := tokens.DeleteExpired(ctx, now.Add(time.Minute))
		require.NoError(t, err)
		assert.EqualValues(t, 2, deleted)
	})

	t.Run("content", func(t *testing.T) {
		cat, err := repository.NewCategoryRepo(db).Create(ctx, model.Category{Name: "Go", Slug: "go"})
		require.NoError(t, err)
		tag, err := repository.NewTagRepo(db).Create(ctx, model.Tag{Name: "testing", Slug: "testing"})
		require.NoError(t, err)

		posts := repository.NewPostRepo(db)
		p, err := posts.Create(ctx, model.Post{UserID: author.ID, CategoryID: &cat.ID, Title: "Hello", Slug: "hello-1", Content: "body", Status: model.PostPublished}, []uint64{tag.ID, 9999})
		require.NoError(t, err)
		require.Len(t, p.Tags, 1)
		assert.Equal(t, "Alice", p.Author.Name)

		missing := uint64(9999)
		_, err = posts.Create(ctx, model.Post{UserID: author.ID, CategoryID: &missing, Title: "x", Slug: "x-1", Content: "x", Status: model.PostDraft}, nil)
		var ve *model.ValidationError
		assert.ErrorAs(t, err, &ve)

		owner, err := posts.OwnerOf(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, author.ID, owner)

		comments := repository.NewCommentRepo(db)
		top, err := comments.Create(ctx, model.Comment{PostID: p.ID, UserID: author.ID, Content: "first"})
		require.NoError(t, err)
		_, err = comments.Create(ctx, model.Comment{PostID: p.ID, UserID: author.ID, ParentID: &top.ID, Content: "reply"})
		require.NoError(t, err)

		thread, err := comments.ListByPost(ctx, p.ID, false)
		require.NoError(t, err)
		require.Len(t, thread, 1)
		assert.Len(t, thread[0].Replies, 1)

		approved, err := comments.ListByPost(ctx, p.ID, true)
		require.NoError(t, err)
		assert.Empty(t, approved)

		require.NoError(t, posts.Delete(ctx, p.ID))
		assert.ErrorIs(t, posts.Delete(ctx, p.ID), model.ErrNotFound)
	})
}

func TestLedger_ConcurrentRotateMySQL(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	u, err := users.Create(ctx, model.User{Name: "Racer", Email: "racer@example.com", PasswordHash: "$2a$10$x", Role: model.RoleUser, IsActive: true})
	require.NoError(t, err)
	issuer, err := token.NewIssuer("integration-secret", 15*time.Minute)
	require.NoError(t, err)
	ledger := service.NewLedger(tokens, users, issuer, time.Hour)

	issued, err := ledger.Issue(ctx, u.ID)
	require.NoError(t, err)

	const workers = 8
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		mu       sync.Mutex
		wins     int
		failures []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := ledger.Rotate(ctx, issued.Value)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range failures {
		assert.ErrorIs(t, err, model.ErrInvalidRefreshToken)
	}

	var rows, active int
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(revoked=0),0) FROM refresh_tokens WHERE user_id=?", u.ID).Scan(&rows, &active))
	assert.Equal(t, 2, rows, "the original and exactly one replacement")
	assert.Equal(t, 1, active)
}
