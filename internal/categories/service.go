package categories

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

// PostCounter reports how many posts reference a category. Satisfied by the
// posts repository.
type PostCounter interface {
	CountByCategory(ctx context.Context, categoryID int64) (int, error)
}

// Service handles category management.
type Service struct {
	repo     RepositoryPort
	posts    PostCounter
	engine   *authz.Engine
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, posts PostCounter, engine *authz.Engine, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, posts: posts, engine: engine, recorder: recorder}
}

// List returns every category.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Category, error) {
	if err := s.engine.Require(ctx, actor, authz.PermCategoriesView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Create adds a category. The slug derives from the name when absent.
func (s *Service) Create(ctx context.Context, actor authz.Actor, name, slug string) (Category, error) {
	if err := s.engine.Require(ctx, actor, authz.PermCategoriesManage); err != nil {
		return Category{}, err
	}
	name, slug, err := normalize(name, slug)
	if err != nil {
		return Category{}, err
	}
	category, err := s.repo.Create(ctx, name, slug)
	if err != nil {
		return Category{}, wrapConflict(err)
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionCategoryCreated,
		TargetType: "category",
		TargetID:   strconv.FormatInt(category.ID, 10),
		Meta:       map[string]any{"name": name},
	})
	return category, nil
}

// Update renames a category.
func (s *Service) Update(ctx context.Context, actor authz.Actor, id int64, name, slug string) (Category, error) {
	if err := s.engine.Require(ctx, actor, authz.PermCategoriesManage); err != nil {
		return Category{}, err
	}
	name, slug, err := normalize(name, slug)
	if err != nil {
		return Category{}, err
	}
	if err := s.repo.Update(ctx, id, name, slug); err != nil {
		return Category{}, wrapConflict(err)
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionCategoryUpdated,
		TargetType: "category",
		TargetID:   strconv.FormatInt(id, 10),
		Meta:       map[string]any{"name": name},
	})
	return s.repo.Get(ctx, id)
}

// Delete removes a category unless posts still reference it.
func (s *Service) Delete(ctx context.Context, actor authz.Actor, id int64) error {
	if err := s.engine.Require(ctx, actor, authz.PermCategoriesManage); err != nil {
		return err
	}
	inUse, err := s.posts.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return fmt.Errorf("%w: category has %d post(s)", shared.ErrConflict, inUse)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionCategoryDeleted,
		TargetType: "category",
		TargetID:   strconv.FormatInt(id, 10),
	})
	return nil
}

func normalize(name, slug string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("%w: name is required", shared.ErrInvalid)
	}
	if slug == "" {
		slug = name
	}
	slug = shared.Slugify(slug)
	if slug == "" {
		return "", "", fmt.Errorf("%w: slug is required", shared.ErrInvalid)
	}
	return name, slug, nil
}

func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrConflict) {
		return fmt.Errorf("%w: a category with that name or slug exists", shared.ErrConflict)
	}
	return err
}
