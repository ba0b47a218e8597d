package contributors

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

// Service handles contributor profile management.
type Service struct {
	repo     RepositoryPort
	engine   *authz.Engine
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, engine *authz.Engine, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, engine: engine, recorder: recorder}
}

// List returns every contributor.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Contributor, error) {
	if err := s.engine.Require(ctx, actor, authz.PermContributorsView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Get fetches one contributor.
func (s *Service) Get(ctx context.Context, actor authz.Actor, id int64) (Contributor, error) {
	if err := s.engine.Require(ctx, actor, authz.PermContributorsView); err != nil {
		return Contributor{}, err
	}
	return s.repo.Get(ctx, id)
}

// Create adds a contributor profile.
func (s *Service) Create(ctx context.Context, actor authz.Actor, draft Draft) (Contributor, error) {
	if err := s.engine.Require(ctx, actor, authz.PermContributorsManage); err != nil {
		return Contributor{}, err
	}
	draft, err := normalizeDraft(draft)
	if err != nil {
		return Contributor{}, err
	}
	c, err := s.repo.Create(ctx, draft)
	if err != nil {
		return Contributor{}, wrapConflict(err)
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionContributorSaved,
		TargetType: "contributor",
		TargetID:   strconv.FormatInt(c.ID, 10),
		Meta:       map[string]any{"display_name": c.DisplayName},
	})
	return c, nil
}

// Update modifies a contributor profile.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, draft Draft) (Contributor, error) {
	if err := s.engine.Require(ctx, actor, authz.PermContributorsManage); err != nil {
		return Contributor{}, err
	}
	draft, err := normalizeDraft(draft)
	if err != nil {
		return Contributor{}, err
	}
	if err := s.repo.Update(ctx, id, draft); err != nil {
		return Contributor{}, wrapConflict(err)
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionContributorSaved,
		TargetType: "contributor",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return s.repo.Get(ctx, id)
}

// Delete removes a contributor profile.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if err := s.engine.Require(ctx, actor, authz.PermContributorsManage); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionContributorDeleted,
		TargetType: "contributor",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return nil
}

func normalizeDraft(draft Draft) (Draft, error) {
	draft.DisplayName = strings.TrimSpace(draft.DisplayName)
	if draft.DisplayName == "" {
		return Draft{}, fmt.Errorf("%w: display name is required", shared.ErrInvalid)
	}
	return draft, nil
}

func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrConflict) {
		return fmt.Errorf("%w: user already has a contributor profile", shared.ErrConflict)
	}
	return err
}
