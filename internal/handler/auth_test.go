package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/blog-api/internal/handler"
	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/password"
	"github.com/iliyamo/blog-api/internal/router"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/testutil"
	"github.com/iliyamo/blog-api/internal/token"
)

type server struct {
	e      *echo.Echo
	users  *testutil.Users
	tokens *testutil.Tokens
	creds  *service.Credentials
}

func newServer(t *testing.T) *server {
	t.Helper()
	users, tokens := testutil.NewUsers(), testutil.NewTokens()
	issuer, err := token.NewIssuer("test-secret", 15*time.Minute)
	require.NoError(t, err)
	hasher, err := password.NewHasher(password.Bcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	creds, err := service.NewCredentials(users, hasher)
	require.NoError(t, err)
	log := testutil.MakeNoopLogger()
	ledger := service.NewLedger(tokens, users, issuer, 0)

	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler{Log: log}.Handle
	router.Register(e, router.Handlers{
		Health:   &handler.HealthHandler{},
		Auth:     handler.NewAuthHandler(service.NewAuth(creds, users, issuer, ledger, nil, log)),
		Users:    handler.NewUserHandler(service.NewUsers(users, ledger, nil, log)),
		Taxonomy: handler.NewTaxonomyHandler(nil, nil),
		Posts:    handler.NewPostHandler(nil, nil),
		Comments: handler.NewCommentHandler(nil, nil),
		Issuer:   issuer,
	})
	return &server{e: e, users: users, tokens: tokens, creds: creds}
}

type envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Data    json.RawMessage    `json:"data"`
	Errors  []model.FieldError `json:"errors"`
}

type authData struct {
	User *struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (s *server) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func itoa(id uint64) string { return strconv.FormatUint(id, 10) }

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAuthFlow(t *testing.T) {
	s := newServer(t)
	creds := map[string]string{"name": "Alice", "email": "alice@example.com", "password": "Str0ng!Pass"}

	rec, env := s.do(t, http.MethodPost, "/api/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	reg := decode[authData](t, env.Data)
	require.NotNil(t, reg.User)
	assert.Equal(t, "alice@example.com", reg.User.Email)
	assert.Equal(t, "user", reg.User.Role)
	assert.Equal(t, int64(900), reg.ExpiresIn)
	assert.NotContains(t, rec.Body.String(), "password")

	rec, env = s.do(t, http.MethodPost, "/api/auth/register", "", creds)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already registered.", env.Message)

	rec, env = s.do(t, http.MethodGet, "/api/auth/profile", reg.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Profile retrieved successfully.", env.Message)

	rec, env = s.do(t, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{"refreshToken": reg.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	rot := decode[authData](t, env.Data)
	assert.Nil(t, rot.User)
	assert.NotEqual(t, reg.RefreshToken, rot.RefreshToken)

	rec, env = s.do(t, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{"refreshToken": reg.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired refresh token.", env.Message)

	rec, _ = s.do(t, http.MethodPut, "/api/auth/change-password", rot.AccessToken,
		map[string]string{"currentPassword": "Str0ng!Pass", "newPassword": "Newer9$Pass"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/refresh-token", "", map[string]string{"refreshToken": rot.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "Newer9$Pass"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	s := newServer(t)
	rec, _ := s.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "Alice", "email": "alice@example.com", "password": "Str0ng!Pass"})
	require.Equal(t, http.StatusCreated, rec.Code)

	wrong, _ := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "Wr0ng!Pass"})
	unknown, _ := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@example.com", "password": "Wr0ng!Pass"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	assert.JSONEq(t, `{"success":false,"message":"Invalid email or password."}`, wrong.Body.String())
}

func TestLogin_Deactivated(t *testing.T) {
	s := newServer(t)
	u, err := s.creds.Create(t.Context(), "Alice", "alice@example.com", "Str0ng!Pass")
	require.NoError(t, err)
	u.IsActive = false
	_, err = s.users.Update(t.Context(), u)
	require.NoError(t, err)

	rec, env := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "Str0ng!Pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Account is deactivated.", env.Message)
}

func TestRegister_Validation(t *testing.T) {
	s := newServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "Alice", "email": "alice@example.com", "password": "weak"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password does not meet requirements.", env.Message)
	require.NotEmpty(t, env.Errors)
	assert.Equal(t, "password", env.Errors[0].Field)

	rec, env = s.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "A", "email": "not-an-email", "password": "Str0ng!Pass"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	fields := map[string]bool{}
	for _, fe := range env.Errors {
		fields[fe.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["email"])

	rec, env = s.do(t, http.MethodPost, "/api/auth/register", "", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", env.Message)
}

func TestLogout_AlwaysOK(t *testing.T) {
	s := newServer(t)
	for _, body := range []any{map[string]string{"refreshToken": "garbage"}, map[string]string{}, `not json`} {
		rec, env := s.do(t, http.MethodPost, "/api/auth/logout", "", body)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
	}
}

func TestProtectedRoutes(t *testing.T) {
	s := newServer(t)
	rec, env := s.do(t, http.MethodGet, "/api/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Access denied. No token provided.", env.Message)

	rec, env = s.do(t, http.MethodGet, "/api/auth/profile", "abc.def.ghi", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token.", env.Message)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"name": "Alice", "email": "alice@example.com", "password": "Str0ng!Pass"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var env2 envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env2))
	reg := decode[authData](t, env2.Data)

	rec, env = s.do(t, http.MethodGet, "/api/users", reg.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied. Insufficient permissions.", env.Message)
}

func TestAdminUsers(t *testing.T) {
	s := newServer(t)
	_, err := s.creds.CreateWithRole(t.Context(), "Root", "root@example.com", "Str0ng!Pass", model.RoleAdmin)
	require.NoError(t, err)
	alice, err := s.creds.Create(t.Context(), "Alice", "alice@example.com", "Str0ng!Pass")
	require.NoError(t, err)

	_, env := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "root@example.com", "password": "Str0ng!Pass"})
	admin := decode[authData](t, env.Data)

	rec, env := s.do(t, http.MethodGet, "/api/users?page=1&limit=1", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Users      []json.RawMessage  `json:"users"`
		Pagination handler.Pagination `json:"pagination"`
	}](t, env.Data)
	assert.Len(t, list.Users, 1)
	assert.Equal(t, handler.Pagination{CurrentPage: 1, TotalPages: 2, TotalItems: 2, ItemsPerPage: 1}, list.Pagination)

	rec, env = s.do(t, http.MethodPut, "/api/users/"+itoa(alice.ID), admin.AccessToken, map[string]any{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "role", env.Errors[0].Field)

	rec, _ = s.do(t, http.MethodPut, "/api/users/"+itoa(alice.ID), admin.AccessToken, map[string]any{"isActive": false})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/users/999", admin.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found.", env.Message)

	rec, _ = s.do(t, http.MethodDelete, "/api/users/"+itoa(alice.ID), admin.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec, env := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}
