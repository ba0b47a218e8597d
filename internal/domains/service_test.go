package domains

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
	byID   map[int64]AllowedDomain
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[int64]AllowedDomain{}}
}

func (m *mockRepo) List(ctx context.Context) ([]AllowedDomain, error) {
	var result []AllowedDomain
	for _, d := range m.byID {
		result = append(result, d)
	}
	return result, nil
}

func (m *mockRepo) Add(ctx context.Context, domain string, addedBy int64) (AllowedDomain, error) {
	for _, d := range m.byID {
		if d.Domain == domain {
			return AllowedDomain{}, shared.ErrConflict
		}
	}
	m.nextID++
	d := AllowedDomain{ID: m.nextID, Domain: domain, AddedBy: addedBy, CreatedAt: time.Now()}
	m.byID[d.ID] = d
	return d, nil
}

func (m *mockRepo) Remove(ctx context.Context, id int64) (string, error) {
	d, ok := m.byID[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	delete(m.byID, id)
	return d.Domain, nil
}

func (m *mockRepo) Exists(ctx context.Context, domain string) (bool, error) {
	for _, d := range m.byID {
		if d.Domain == domain {
			return true, nil
		}
	}
	return false, nil
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

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Example.COM", want: "example.com"},
		{in: "  www.example.com  ", want: "example.com"},
		{in: "sub.example.co.uk", want: "sub.example.co.uk"},
		{in: "", wantErr: true},
		{in: "no-dot", wantErr: true},
		{in: "http://example.com", wantErr: true},
		{in: "user@example.com", wantErr: true},
		{in: "example.com/path", wantErr: true},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, shared.ErrInvalid, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestAddNormalizesAndRejectsDuplicates(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	d, err := service.Add(ctx, admin(), "WWW.Example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", d.Domain)

	_, err = service.Add(ctx, admin(), "example.com")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestRemoveMissingEntryIsNotFound(t *testing.T) {
	service, _ := newTestService(t)
	err := service.Remove(context.Background(), admin(), 42)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAllowsEmptyListPermitsEverything(t *testing.T) {
	service, _ := newTestService(t)

	ok, err := service.Allows(context.Background(), "anyone@anywhere.io")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowsChecksEmailDomain(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Add(ctx, admin(), "example.com")
	require.NoError(t, err)

	ok, err := service.Allows(ctx, "person@Example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = service.Allows(ctx, "person@other.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = service.Allows(ctx, "no-at-sign")
	require.NoError(t, err)
	assert.False(t, ok)
}
