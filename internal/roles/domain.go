package roles

import "time"

// Role is a named bundle of permissions.
type Role struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	IsSystem     bool      `json:"is_system"`
	UserCount    int       `json:"user_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
