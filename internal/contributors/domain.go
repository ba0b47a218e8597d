package contributors

import "time"

// Contributor is a public byline profile, optionally linked to a panel user.
type Contributor struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UserID      *int64    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Draft carries the writable fields of a contributor.
type Draft struct {
	DisplayName string
	Bio         string
	AvatarURL   string
	UserID      *int64
}
