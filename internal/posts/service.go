package posts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Service handles blog post management.
type Service struct {
	repo     RepositoryPort
	engine   *authz.Engine
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, engine *authz.Engine, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, engine: engine, recorder: recorder}
}

// List returns a filtered page of posts.
func (s *Service) List(ctx context.Context, actor authz.Actor, filters ListFilters) ([]Post, shared.Pagination, error) {
	if err := s.engine.Require(ctx, actor, authz.PermPostsView); err != nil {
		return nil, shared.Pagination{}, err
	}
	result, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(filters.Page, filters.PerPage, total), nil
}

// Get fetches one post.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Post, error) {
	if err := s.engine.Require(ctx, actor, authz.PermPostsView); err != nil {
		return Post{}, err
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a new draft post. The slug is derived from the title when
// absent, and a slug collision surfaces as Conflict.
func (s *Service) Create(ctx context.Context, actor authz.Actor, draft Draft) (Post, error) {
	if err := s.engine.Require(ctx, actor, authz.PermPostsCreate); err != nil {
		return Post{}, err
	}
	draft, err := normalizeDraft(draft)
	if err != nil {
		return Post{}, err
	}
	post, err := s.repo.Create(ctx, draft, actor.ID)
	if err != nil {
		return Post{}, wrapSlugConflict(err)
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionPostCreated,
		TargetType: "post",
		TargetID:   strconv.FormatInt(post.ID, 10),
		Meta:       map[string]any{"slug": post.Slug},
	})
	return post, nil
}

// Update modifies an existing post.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, draft Draft) (Post, error) {
	if err := s.engine.Require(ctx, actor, authz.PermPostsEdit); err != nil {
		return Post{}, err
	}
	draft, err := normalizeDraft(draft)
	if err != nil {
		return Post{}, err
	}
	if err := s.repo.Update(ctx, id, draft); err != nil {
		return Post{}, wrapSlugConflict(err)
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionPostUpdated,
		TargetType: "post",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return s.repo.Get(ctx, id)
}

// SetPublished publishes or unpublishes a post.
func (s *Service) SetPublished(ctx context.Context, actor authz.Actor, id int64, publish bool) (Post, error) {
	if err := s.engine.Require(ctx, actor, authz.PermPostsPublish); err != nil {
		return Post{}, err
	}
	var publishedAt *time.Time
	if publish {
		now := time.Now().UTC()
		publishedAt = &now
	}
	if err := s.repo.SetPublished(ctx, id, publishedAt); err != nil {
		return Post{}, err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionPostPublished,
		TargetType: "post",
		TargetID:   strconv.FormatInt(id, 10),
		Meta:       map[string]any{"published": publish},
	})
	return s.repo.Get(ctx, id)
}

// Delete removes a post permanently.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if err := s.engine.Require(ctx, actor, authz.PermPostsDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionPostDeleted,
		TargetType: "post",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return nil
}

func normalizeDraft(draft Draft) (Draft, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		return Draft{}, fmt.Errorf("%w: title is required", shared.ErrInvalid)
	}
	if draft.Slug == "" {
		draft.Slug = shared.Slugify(draft.Title)
	} else {
		draft.Slug = shared.Slugify(draft.Slug)
	}
	if draft.Slug == "" {
		return Draft{}, fmt.Errorf("%w: slug is required", shared.ErrInvalid)
	}
	return draft, nil
}

func wrapSlugConflict(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrConflict) {
		return fmt.Errorf("%w: slug already in use", shared.ErrConflict)
	}
	return err
}
