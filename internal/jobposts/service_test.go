package jobposts

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
	byID   map[int64]*JobPost
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[int64]*JobPost{}}
}

func (m *mockRepo) List(ctx context.Context, filters ListFilters) ([]JobPost, int, error) {
	var result []JobPost
	for _, p := range m.byID {
		result = append(result, *p)
	}
	return result, len(result), nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (JobPost, error) {
	if p, ok := m.byID[id]; ok {
		return *p, nil
	}
	return JobPost{}, shared.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, draft Draft, createdBy int64) (JobPost, error) {
	m.nextID++
	post := JobPost{
		ID:             m.nextID,
		Title:          draft.Title,
		Location:       draft.Location,
		EmploymentType: draft.EmploymentType,
		ApplyURL:       draft.ApplyURL,
		Status:         StatusOpen,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
	}
	m.byID[post.ID] = &post
	return post, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, draft Draft) error {
	p, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Title = draft.Title
	p.Location = draft.Location
	p.EmploymentType = draft.EmploymentType
	p.ApplyURL = draft.ApplyURL
	return nil
}

func (m *mockRepo) SetStatus(ctx context.Context, id int64, status string) error {
	p, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	return nil
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

func TestCreateOpensListing(t *testing.T) {
	service, _ := newTestService(t)

	post, err := service.Create(context.Background(), admin(), Draft{
		Title:          "Backend Engineer",
		Location:       "Remote",
		EmploymentType: "full_time",
		ApplyURL:       "https://jobs.example.com/backend",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, post.Status)
}

func TestCreateRejectsUnknownEmploymentType(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.Create(context.Background(), admin(), Draft{
		Title:          "Backend Engineer",
		EmploymentType: "gig",
	})
	assert.ErrorIs(t, err, shared.ErrInvalid)
}

func TestCreateRejectsNonHTTPApplyURL(t *testing.T) {
	service, _ := newTestService(t)

	for _, badURL := range []string{"ftp://jobs.example.com", "javascript:alert(1)"} {
		_, err := service.Create(context.Background(), admin(), Draft{
			Title:          "Backend Engineer",
			EmploymentType: "contract",
			ApplyURL:       badURL,
		})
		assert.ErrorIs(t, err, shared.ErrInvalid, badURL)
	}
}

func TestSetOpenToggles(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()

	created, err := service.Create(ctx, admin(), Draft{Title: "Backend Engineer", EmploymentType: "full_time"})
	require.NoError(t, err)

	post, err := service.SetOpen(ctx, admin(), created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, post.Status)

	post, err = service.SetOpen(ctx, admin(), created.ID, true)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, post.Status)
	assert.Equal(t, StatusOpen, repo.byID[created.ID].Status)
}
