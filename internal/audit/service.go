package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Result wraps a page of entries with paging metadata.
type Result struct {
	Entries []Entry           `json:"entries"`
	Paging  shared.Pagination `json:"paging"`
}

// Service coordinates audit reads and retention cleanup.
type Service struct {
	repo     Repository
	engine   *authz.Engine
	recorder *Recorder
}

// NewService builds a Service instance.
func NewService(repo Repository, engine *authz.Engine, recorder *Recorder) *Service {
	return &Service{repo: repo, engine: engine, recorder: recorder}
}

// List returns a filtered page of audit entries.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters Filters) (Result, error) {
	if err := s.engine.Require(ctx, actor, authz.PermAuditView); err != nil {
		return Result{}, err
	}
	entries, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Entries: entries,
		Paging:  shared.NewPagination(filters.Page, filters.PerPage, total),
	}, nil
}

// PurgeBefore deletes entries older than the cutoff. Retention cleanup is
// reserved for super admins regardless of assigned permissions.
func (s *Service) PurgeBefore(ctx context.Context, actor authz.Actor, cutoff time.Time) (int64, error) {
	if !actor.IsSuperAdmin() {
		return 0, fmt.Errorf("%w: only super admin can delete audit logs", shared.ErrForbidden)
	}
	if cutoff.IsZero() || cutoff.After(time.Now()) {
		return 0, fmt.Errorf("%w: cutoff must be in the past", shared.ErrInvalid)
	}
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.recorder.MustRecord(ctx, Entry{
		ActorID:    &actor.ID,
		Action:     ActionAuditPurged,
		TargetType: "audit_log",
		TargetID:   "retention",
		Meta:       map[string]any{"cutoff": cutoff.UTC().Format(time.RFC3339), "deleted": deleted},
	})
	return deleted, nil
}

// RetentionSweep removes entries older than the retention window on behalf of
// the system (no actor). Used by the scheduled worker task.
func (s *Service) RetentionSweep(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	deleted, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.recorder.MustRecord(ctx, Entry{
			Action:     ActionAuditPurged,
			TargetType: "audit_log",
			TargetID:   "retention",
			Meta:       map[string]any{"cutoff": cutoff.UTC().Format(time.RFC3339), "deleted": deleted},
		})
	}
	return deleted, nil
}
