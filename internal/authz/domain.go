package authz

// Role is the permission bundle attached to an actor.
type Role struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsSuperAdmin bool   `json:"is_super_admin"`
	IsSystem     bool   `json:"is_system"`
}

// Actor is the authenticated panel user as seen by authorization checks.
// It is parsed once at the data-access boundary and never re-cast downstream.
type Actor struct {
	ID         int64  `json:"id"`
	IdentityID string `json:"identity_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Role       Role   `json:"role"`
}

// IsSuperAdmin reports whether the actor's role short-circuits permission checks.
func (a Actor) IsSuperAdmin() bool {
	return a.Role.IsSuperAdmin
}
