// Package queue carries account lifecycle events over RabbitMQ: the
// publisher used by the auth flows and a background consumer that appends
// every event to an audit log file.
package queue

import "time"

// Account event types.
const (
	EventRegistered      = "account.registered"
	EventLoggedIn        = "account.logged_in"
	EventLoggedOutAll    = "account.logged_out_all"
	EventPasswordChanged = "account.password_changed"
	EventDeactivated     = "account.deactivated"
	EventRoleChanged     = "account.role_changed"
	EventDeleted         = "account.deleted"
)

// AccountEvent is published after a security-relevant account change.  It
// never carries secrets: no passwords, hashes or token values.
type AccountEvent struct {
	Type       string    `json:"type"`
	UserID     uint64    `json:"user_id"`
	Email      string    `json:"email"`
	ActorID    uint64    `json:"actor_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
