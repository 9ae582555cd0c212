package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/password"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/token"
)

// EventPublisher is satisfied by *queue.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AccountEvent) error
}

// Auth wires the credential store, token issuer and refresh ledger into
// the user-facing authentication flows.
type Auth struct {
	creds  *Credentials
	users  model.UserStore
	issuer *token.Issuer
	ledger *Ledger
	events EventPublisher
	log    *zap.Logger
}

func NewAuth(creds *Credentials, users model.UserStore, issuer *token.Issuer, ledger *Ledger, events EventPublisher, log *zap.Logger) *Auth {
	if log == nil {
		log = zap.NewNop()
	}
	return &Auth{creds: creds, users: users, issuer: issuer, ledger: ledger, events: events, log: log}
}

// ProfileUpdate carries optional profile changes; nil fields are kept.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// PolicyError converts a failed password policy result into a
// ValidationError listing every violation against field.
func PolicyError(message, field string, res password.Result) *model.ValidationError {
	ve := &model.ValidationError{Message: message}
	for _, m := range res.Messages() {
		ve.Fields = append(ve.Fields, model.FieldError{Field: field, Message: m})
	}
	return ve
}

// Register creates an account and signs it in.
func (a *Auth) Register(ctx context.Context, name, email, raw string) (TokenPair, error) {
	if res := password.Validate(raw); !res.Valid {
		return TokenPair{}, PolicyError("Password does not meet requirements.", "password", res)
	}
	u, err := a.creds.Create(ctx, name, email, raw)
	if err != nil {
		return TokenPair{}, err
	}
	pair, err := a.issuePair(ctx, u)
	if err != nil {
		return TokenPair{}, err
	}
	a.emit(queue.EventRegistered, u, 0)
	return pair, nil
}

// Login verifies credentials and issues a fresh token pair.
func (a *Auth) Login(ctx context.Context, email, raw string) (TokenPair, error) {
	u, err := a.creds.VerifyCredentials(ctx, email, raw)
	if err != nil {
		return TokenPair{}, err
	}
	pair, err := a.issuePair(ctx, u)
	if err != nil {
		return TokenPair{}, err
	}
	a.emit(queue.EventLoggedIn, u, 0)
	return pair, nil
}

// Refresh rotates a refresh token.
func (a *Auth) Refresh(ctx context.Context, raw string) (TokenPair, error) {
	return a.ledger.Rotate(ctx, raw)
}

// Logout revokes raw when it is a live token.  It never fails from the
// caller's point of view; storage errors are only logged.
func (a *Auth) Logout(ctx context.Context, raw string) {
	if err := a.ledger.Revoke(ctx, raw); err != nil {
		a.log.Warn("logout: revoke failed", zap.Error(err))
	}
}

// LogoutAll revokes every refresh token of userID.
func (a *Auth) LogoutAll(ctx context.Context, userID uint64) error {
	if err := a.ledger.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if u, err := a.users.GetByID(ctx, userID); err == nil {
		a.emit(queue.EventLoggedOutAll, u, 0)
	}
	return nil
}

// Profile loads the caller's user record.
func (a *Auth) Profile(ctx context.Context, userID uint64) (model.User, error) {
	return a.users.GetByID(ctx, userID)
}

// UpdateProfile changes the caller's name and/or email.
func (a *Auth) UpdateProfile(ctx context.Context, userID uint64, in ProfileUpdate) (model.User, error) {
	u, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && *in.Email != "" {
		if err := claimEmail(ctx, a.users, &u, *in.Email); err != nil {
			return model.User{}, err
		}
	}
	return a.users.Update(ctx, u)
}

// ChangePassword replaces the caller's password and revokes all of their
// refresh tokens, forcing every session to log in again.
func (a *Auth) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	if res := password.Validate(next); !res.Valid {
		return PolicyError("New password does not meet requirements.", "newPassword", res)
	}
	u, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := a.creds.CheckPassword(u, current)
	if err != nil {
		return err
	}
	if !ok {
		return model.NewValidationError("Current password is incorrect.", "currentPassword", "does not match")
	}
	hash, err := a.creds.HashPassword(next)
	if err != nil {
		return err
	}
	if err := a.creds.UpdatePassword(ctx, u, hash); err != nil {
		return err
	}
	if err := a.ledger.RevokeAll(ctx, u.ID); err != nil {
		return err
	}
	a.emit(queue.EventPasswordChanged, u, 0)
	return nil
}

// claimEmail moves u to email after checking nobody else holds it.
func claimEmail(ctx context.Context, users model.UserStore, u *model.User, email string) error {
	email = model.NormalizeEmail(email)
	if email == u.Email {
		return nil
	}
	other, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil && other.ID != u.ID:
		return model.ErrDuplicateEmail
	case err != nil && !errors.Is(err, model.ErrNotFound):
		return err
	}
	u.Email = email
	return nil
}

func (a *Auth) issuePair(ctx context.Context, u model.User) (TokenPair, error) {
	access, err := a.issuer.IssueAccessToken(u)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := a.ledger.Issue(ctx, u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		User:         u,
		AccessToken:  access.Token,
		RefreshToken: refresh.Value,
		ExpiresIn:    int64(a.issuer.TTL() / time.Second),
	}, nil
}

func (a *Auth) emit(kind string, u model.User, actor uint64) {
	emitEvent(a.events, a.log, queue.AccountEvent{Type: kind, UserID: u.ID, Email: u.Email, ActorID: actor})
}

// emitEvent publishes in the background so a slow or absent broker never
// delays the response.
func emitEvent(p EventPublisher, log *zap.Logger, ev queue.AccountEvent) {
	if p == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			log.Debug("account event dropped", zap.String("type", ev.Type), zap.Error(err))
		}
	}()
}
