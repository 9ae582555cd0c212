package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/blog-api/internal/model"
	"github.com/iliyamo/blog-api/internal/queue"
)

// UserUpdate carries an admin's changes to an account; nil fields are kept.
type UserUpdate struct {
	Name     *string
	Email    *string
	Role     *string
	IsActive *bool
}

// Users is the admin view over accounts.
type Users struct {
	users  model.UserStore
	ledger *Ledger
	events EventPublisher
	log    *zap.Logger
}

func NewUsers(users model.UserStore, ledger *Ledger, events EventPublisher, log *zap.Logger) *Users {
	if log == nil {
		log = zap.NewNop()
	}
	return &Users{users: users, ledger: ledger, events: events, log: log}
}

// List returns one page of users and the total count.
func (s *Users) List(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	return s.users.List(ctx, limit, offset)
}

func (s *Users) Get(ctx context.Context, id uint64) (model.User, error) {
	return s.users.GetByID(ctx, id)
}

// Update applies in to user id.  Deactivating an account or changing its
// role revokes its refresh tokens so the change takes effect at the next
// refresh instead of lingering for the refresh lifetime.
func (s *Users) Update(ctx context.Context, actorID, id uint64, in UserUpdate) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	before := u

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil && *in.Email != "" {
		if err := claimEmail(ctx, s.users, &u, *in.Email); err != nil {
			return model.User{}, err
		}
	}
	if in.Role != nil {
		role, err := model.ParseRole(*in.Role)
		if err != nil {
			return model.User{}, model.NewValidationError("Validation failed", "role", "must be one of user, admin")
		}
		u.Role = role
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}

	updated, err := s.users.Update(ctx, u)
	if err != nil {
		return model.User{}, err
	}

	deactivated := before.IsActive && !updated.IsActive
	roleChanged := before.Role != updated.Role
	if deactivated || roleChanged {
		if err := s.ledger.RevokeAll(ctx, updated.ID); err != nil {
			return model.User{}, err
		}
	}
	if deactivated {
		emitEvent(s.events, s.log, queue.AccountEvent{Type: queue.EventDeactivated, UserID: updated.ID, Email: updated.Email, ActorID: actorID})
	}
	if roleChanged {
		emitEvent(s.events, s.log, queue.AccountEvent{Type: queue.EventRoleChanged, UserID: updated.ID, Email: updated.Email, ActorID: actorID})
	}
	return updated, nil
}

// Delete removes an account; its refresh tokens go with it.
func (s *Users) Delete(ctx context.Context, actorID, id uint64) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	emitEvent(s.events, s.log, queue.AccountEvent{Type: queue.EventDeleted, UserID: u.ID, Email: u.Email, ActorID: actorID})
	return nil
}
