package categories

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
	byID   map[int64]*Category
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[int64]*Category{}}
}

func (m *mockRepo) List(ctx context.Context) ([]Category, error) {
	var result []Category
	for _, c := range m.byID {
		result = append(result, *c)
	}
	return result, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Category, error) {
	if c, ok := m.byID[id]; ok {
		return *c, nil
	}
	return Category{}, shared.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, name, slug string) (Category, error) {
	for _, c := range m.byID {
		if c.Name == name || c.Slug == slug {
			return Category{}, shared.ErrConflict
		}
	}
	m.nextID++
	c := Category{ID: m.nextID, Name: name, Slug: slug, CreatedAt: time.Now()}
	m.byID[c.ID] = &c
	return c, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, name, slug string) error {
	c, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Name = name
	c.Slug = slug
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type stubCounter struct {
	counts map[int64]int
}

func (s *stubCounter) CountByCategory(ctx context.Context, categoryID int64) (int, error) {
	return s.counts[categoryID], nil
}

func newTestService(t *testing.T) (*Service, *mockRepo, *stubCounter) {
	t.Helper()
	repo := newMockRepo()
	counter := &stubCounter{counts: map[int64]int{}}
	return NewService(repo, counter, authz.NewEngine(nil, nil, nil), nil), repo, counter
}

func admin() authz.Actor {
	return authz.Actor{
		ID:     1,
		Status: authz.UserStatusActive,
		Role:   authz.Role{ID: 1, Name: "Super Admin", IsSuperAdmin: true},
	}
}

func TestCreateDerivesSlugFromName(t *testing.T) {
	service, _, _ := newTestService(t)

	category, err := service.Create(context.Background(), admin(), "Product Updates", "")
	require.NoError(t, err)
	assert.Equal(t, "product-updates", category.Slug)
}

func TestCreateDuplicateIsConflict(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, admin(), "News", "")
	require.NoError(t, err)
	_, err = service.Create(ctx, admin(), "News", "")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteBlockedWhilePostsReferenceIt(t *testing.T) {
	service, repo, counter := newTestService(t)
	ctx := context.Background()

	category, err := service.Create(ctx, admin(), "News", "")
	require.NoError(t, err)
	counter.counts[category.ID] = 3

	err = service.Delete(ctx, admin(), category.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Contains(t, err.Error(), "3 post(s)")
	assert.Contains(t, repo.byID, category.ID)
}

func TestDeleteUnreferencedCategory(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()

	category, err := service.Create(ctx, admin(), "News", "")
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, admin(), category.ID))
	assert.NotContains(t, repo.byID, category.ID)
}
