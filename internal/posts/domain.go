package posts

import "time"

// Post lifecycle statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post is a blog entry managed through the panel.
type Post struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Body          string     `json:"body"`
	CategoryID    *int64     `json:"category_id,omitempty"`
	ContributorID *int64     `json:"contributor_id,omitempty"`
	Status        string     `json:"status"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	CreatedBy     int64      `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Draft carries the writable fields of a post.
type Draft struct {
	Title         string
	Slug          string
	Body          string
	CategoryID    *int64
	ContributorID *int64
}

// ListFilters narrows post listings.
type ListFilters struct {
	Status     string
	CategoryID int64
	Search     string
	Page       int
	PerPage    int
}
