package domain

import "time"

// LoginAsSession records an active impersonation: the actor acting as the
// target, the actor's role at time of entry (for UI restoration), and a
// wall-clock expiry. Nothing proactively deletes expired sessions; readers
// must treat a session past ExpiresAt as invalid.
type LoginAsSession struct {
	ID            string    `json:"id"`
	ActorID       string    `json:"actor_id"`
	TargetID      string    `json:"target_id"`
	ActorRoleID   string    `json:"actor_role_id"`
	ActorRoleSlug string    `json:"actor_role_slug"`
	Reason        string    `json:"reason"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *LoginAsSession) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}
