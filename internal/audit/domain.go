package audit

import "time"

// Entry is one append-only audit record. ActorID is nil for system actions.
type Entry struct {
	ID         int64          `json:"id"`
	ActorID    *int64         `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	Meta       map[string]any `json:"meta,omitempty"`
	At         time.Time      `json:"at"`
}

// Action type strings recorded by the application.
const (
	ActionInviteIssued       = "invite.issued"
	ActionInviteAccepted     = "invite.accepted"
	ActionUserCreated        = "user.created"
	ActionUserUpdated        = "user.updated"
	ActionUserActivated      = "user.activated"
	ActionUserDeactivated    = "user.deactivated"
	ActionUserDeleted        = "user.deleted"
	ActionRoleCreated        = "role.created"
	ActionRoleUpdated        = "role.updated"
	ActionRoleDeleted        = "role.deleted"
	ActionRolePermsChanged   = "role.permissions_changed"
	ActionPostCreated        = "post.created"
	ActionPostUpdated        = "post.updated"
	ActionPostDeleted        = "post.deleted"
	ActionPostPublished      = "post.published"
	ActionJobPostCreated     = "jobpost.created"
	ActionJobPostUpdated     = "jobpost.updated"
	ActionJobPostDeleted     = "jobpost.deleted"
	ActionCategoryCreated    = "category.created"
	ActionCategoryUpdated    = "category.updated"
	ActionCategoryDeleted    = "category.deleted"
	ActionContributorSaved   = "contributor.saved"
	ActionContributorDeleted = "contributor.deleted"
	ActionDomainAdded        = "domain.added"
	ActionDomainRemoved      = "domain.removed"
	ActionAuditPurged        = "audit.purged"
)

// Filters narrows audit queries.
type Filters struct {
	Action     string
	ActorID    int64
	TargetType string
	From       time.Time
	To         time.Time
	Page       int
	PerPage    int
}
