package posts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

type mockRepo struct {
	nextID int64
	byID   map[int64]*Post
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[int64]*Post{}}
}

func (m *mockRepo) List(ctx context.Context, filters ListFilters) ([]Post, int, error) {
	var result []Post
	for _, p := range m.byID {
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Post, error) {
	if p, ok := m.byID[id]; ok {
		return *p, nil
	}
	return Post{}, shared.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, draft Draft, createdBy int64) (Post, error) {
	for _, p := range m.byID {
		if p.Slug == draft.Slug {
			return Post{}, shared.ErrConflict
		}
	}
	m.nextID++
	post := Post{
		ID:        m.nextID,
		Title:     draft.Title,
		Slug:      draft.Slug,
		Body:      draft.Body,
		Status:    StatusDraft,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	m.byID[post.ID] = &post
	return post, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, draft Draft) error {
	p, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	for otherID, other := range m.byID {
		if otherID != id && other.Slug == draft.Slug {
			return shared.ErrConflict
		}
	}
	p.Title = draft.Title
	p.Slug = draft.Slug
	p.Body = draft.Body
	return nil
}

func (m *mockRepo) SetPublished(ctx context.Context, id int64, publishedAt *time.Time) error {
	p, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.PublishedAt = publishedAt
	if publishedAt != nil {
		p.Status = StatusPublished
	} else {
		p.Status = StatusDraft
	}
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *mockRepo) CountByCategory(ctx context.Context, categoryID int64) (int, error) {
	count := 0
	for _, p := range m.byID {
		if p.CategoryID != nil && *p.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func newTestService(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	return NewService(repo, authz.NewEngine(nil, nil, nil), nil), repo
}

func admin() authz.Actor {
	return authz.Actor{
		ID:     1,
		Status: authz.UserStatusActive,
		Role:   authz.Role{ID: 1, Name: "Super Admin", IsSuperAdmin: true},
	}
}

func TestCreateDerivesSlugFromTitle(t *testing.T) {
	service, _ := newTestService(t)

	post, err := service.Create(context.Background(), admin(), Draft{Title: "Hello, World! 2026"})
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2026", post.Slug)
	assert.Equal(t, StatusDraft, post.Status)
	assert.Nil(t, post.PublishedAt)
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Create(context.Background(), admin(), Draft{Title: "   "})
	assert.ErrorIs(t, err, shared.ErrInvalid)
}

func TestCreateSlugCollisionIsConflict(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, admin(), Draft{Title: "Launch Notes"})
	require.NoError(t, err)

	_, err = service.Create(ctx, admin(), Draft{Title: "Different Title", Slug: "launch-notes"})
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestPublishAndUnpublish(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, admin(), Draft{Title: "Launch Notes"})
	require.NoError(t, err)

	post, err := service.SetPublished(ctx, admin(), created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, post.Status)
	require.NotNil(t, post.PublishedAt)

	post, err = service.SetPublished(ctx, admin(), created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, post.Status)
	assert.Nil(t, post.PublishedAt)
	assert.Equal(t, StatusDraft, repo.byID[created.ID].Status)
}

func TestDeleteMissingPostIsNotFound(t *testing.T) {
	service, _ := newTestService(t)
	err := service.Delete(context.Background(), admin(), 404)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
