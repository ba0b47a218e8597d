package users

import "time"

// User statuses. A user is soft-deleted, never physically removed.
const (
	StatusInvited  = "invited"
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusDeleted  = "deleted"
)

// User is a panel account. Email is immutable after creation.
type User struct {
	ID          int64      `json:"id"`
	IdentityID  string     `json:"identity_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	RoleID      int64      `json:"role_id"`
	RoleName    string     `json:"role_name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ListFilters narrows user listings.
type ListFilters struct {
	Search  string
	Status  string
	RoleID  int64
	Page    int
	PerPage int
}
