package jobposts

import "time"

// Listing statuses.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Employment types accepted for a listing.
var EmploymentTypes = []string{"full_time", "part_time", "contract", "internship"}

// JobPost is a hiring listing managed through the panel.
type JobPost struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Location       string    `json:"location"`
	EmploymentType string    `json:"employment_type"`
	ApplyURL       string    `json:"apply_url"`
	Status         string    `json:"status"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Draft carries the writable fields of a listing.
type Draft struct {
	Title          string
	Location       string
	EmploymentType string
	ApplyURL       string
}

// ListFilters narrows listing queries.
type ListFilters struct {
	Status  string
	Search  string
	Page    int
	PerPage int
}
