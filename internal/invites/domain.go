package invites

import "time"

// DefaultTTL is the validity window for a freshly issued invitation.
const DefaultTTL = 7 * 24 * time.Hour

// Invitation is an ephemeral record driving the invited -> active workflow.
// Only the one-way hash of the token is ever persisted.
type Invitation struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	RoleID     int64      `json:"role_id"`
	TokenHash  string     `json:"-"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedBy  int64      `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsExpired reports whether the invitation is past its validity window.
func (i Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Claims is what a verified token resolves to.
type Claims struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	RoleID int64  `json:"role_id"`
}
