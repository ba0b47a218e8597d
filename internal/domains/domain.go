package domains

import "time"

// AllowedDomain is one entry in the sign-in domain allow list.
type AllowedDomain struct {
	ID        int64     `json:"id"`
	Domain    string    `json:"domain"`
	AddedBy   int64     `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}
