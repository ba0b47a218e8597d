package jobposts

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Service handles job listing management.
type Service struct {
	repo     RepositoryPort
	engine   *authz.Engine
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, engine *authz.Engine, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, engine: engine, recorder: recorder}
}

// List returns a filtered page of listings.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters ListFilters) ([]JobPost, shared.Pagination, error) {
	if err := s.engine.Require(ctx, actor, authz.PermJobPostsView); err != nil {
		return nil, shared.Pagination{}, err
	}
	result, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get fetches one listing.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (JobPost, error) {
	if err := s.engine.Require(ctx, actor, authz.PermJobPostsView); err != nil {
		return JobPost{}, err
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new open listing.
func (s *Service) Create(ctx context.Context, actor authz.Actor, draft Draft) (JobPost, error) {
	if err := s.engine.Require(ctx, actor, authz.PermJobPostsCreate); err != nil {
		return JobPost{}, err
	}
	draft, err := normalizeDraft(draft)
	if err != nil {
		return JobPost{}, err
	}
	post, err := s.repo.Create(ctx, draft, actor.ID)
	if err != nil {
		return JobPost{}, err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionJobPostCreated,
		TargetType: "jobpost",
		TargetID:   strconv.FormatInt(post.ID, 10),
		Meta:       map[string]any{"title": post.Title},
	})
	return post, nil
}

// Update modifies an existing listing.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, draft Draft) (JobPost, error) {
	if err := s.engine.Require(ctx, actor, authz.PermJobPostsEdit); err != nil {
		return JobPost{}, err
	}
	draft, err := normalizeDraft(draft)
	if err != nil {
		return JobPost{}, err
	}
	if err := s.repo.Update(ctx, id, draft); err != nil {
		return JobPost{}, err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionJobPostUpdated,
		TargetType: "jobpost",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return s.repo.Get(ctx, id)
}

// SetOpen opens or closes a listing.
func (s *Service) SetOpen(ctx context.Context, actor authz.Actor, id int64, open bool) (JobPost, error) {
	if err := s.engine.Require(ctx, actor, authz.PermJobPostsEdit); err != nil {
		return JobPost{}, err
	}
	status := StatusClosed
	if open {
		status = StatusOpen
	}
	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return JobPost{}, err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionJobPostUpdated,
		TargetType: "jobpost",
		TargetID:   strconv.FormatInt(id, 10),
		Meta:       map[string]any{"status": status},
	})
	return s.repo.Get(ctx, id)
}

// Delete removes a listing permanently.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if err := s.engine.Require(ctx, actor, authz.PermJobPostsDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionJobPostDeleted,
		TargetType: "jobpost",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return nil
}

func normalizeDraft(draft Draft) (Draft, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Location = strings.TrimSpace(draft.Location)
	if draft.Title == "" {
		return Draft{}, fmt.Errorf("%w: title is required", shared.ErrInvalid)
	}
	if !slices.Contains(EmploymentTypes, draft.EmploymentType) {
		return Draft{}, fmt.Errorf("%w: unknown employment type %q", shared.ErrInvalid, draft.EmploymentType)
	}
	if draft.ApplyURL != "" {
		u, err := url.Parse(draft.ApplyURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return Draft{}, fmt.Errorf("%w: apply URL must be http(s)", shared.ErrInvalid)
		}
	}
	return draft, nil
}
