package roles

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
	byID   map[int64]*Role
	perms  map[int64][]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[int64]*Role{}, perms: map[int64][]string{}}
}

func (m *mockRepo) seed(role Role) *Role {
	stored := role
	m.byID[role.ID] = &stored
	if role.ID > m.nextID {
		m.nextID = role.ID
	}
	return &stored
}

func (m *mockRepo) List(ctx context.Context) ([]Role, error) {
	var result []Role
	for _, role := range m.byID {
		result = append(result, *role)
	}
	return result, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (Role, error) {
	if role, ok := m.byID[id]; ok {
		return *role, nil
	}
	return Role{}, shared.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, name, description string) (Role, error) {
	for _, role := range m.byID {
		if role.Name == name {
			return Role{}, shared.ErrConflict
		}
	}
	m.nextID++
	role := Role{ID: m.nextID, Name: name, Description: description, CreatedAt: time.Now()}
	m.byID[role.ID] = &role
	return role, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, name, description string) (Role, error) {
	role, ok := m.byID[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	for otherID, other := range m.byID {
		if otherID != id && other.Name == name {
			return Role{}, shared.ErrConflict
		}
	}
	role.Name = name
	role.Description = description
	return *role, nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.byID[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	delete(m.perms, id)
	return nil
}

func (m *mockRepo) PermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	return m.perms[roleID], nil
}

func (m *mockRepo) ReplacePermissions(ctx context.Context, roleID int64, keys []string) error {
	m.perms[roleID] = keys
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

func TestCreateAndRenameRole(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	role, err := service.Create(ctx, admin(), "  Moderator ", "Handles comments")
	require.NoError(t, err)
	assert.Equal(t, "Moderator", role.Name)

	role, err = service.Update(ctx, admin(), role.ID, "Comment Moderator", "")
	require.NoError(t, err)
	assert.Equal(t, "Comment Moderator", role.Name)
}

func TestCreateDuplicateNameIsConflict(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, admin(), "Moderator", "")
	require.NoError(t, err)
	_, err = service.Create(ctx, admin(), "Moderator", "")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestSuperAdminRoleIsImmutable(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()
	repo.seed(Role{ID: 1, Name: "Super Admin", IsSuperAdmin: true, IsSystem: true})

	_, err := service.Update(ctx, admin(), 1, "Root", "")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = service.Delete(ctx, admin(), 1)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	err = service.SetPermissions(ctx, admin(), 1, []string{authz.PermPostsView})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSystemRoleKeepsNameButNotDescription(t *testing.T) {
	service, repo := newTestService(t)
	ctx := context.Background()
	repo.seed(Role{ID: 2, Name: "Editor", IsSystem: true})

	_, err := service.Update(ctx, admin(), 2, "Chief Editor", "")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	role, err := service.Update(ctx, admin(), 2, "Editor", "Manages all content")
	require.NoError(t, err)
	assert.Equal(t, "Manages all content", role.Description)
}

func TestSystemRoleIsNotDeletable(t *testing.T) {
	service, repo := newTestService(t)
	repo.seed(Role{ID: 2, Name: "Editor", IsSystem: true})

	err := service.Delete(context.Background(), admin(), 2)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestDeleteBlockedWhileUsersAssigned(t *testing.T) {
	service, repo := newTestService(t)
	repo.seed(Role{ID: 3, Name: "Moderator", UserCount: 4})

	err := service.Delete(context.Background(), admin(), 3)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Contains(t, err.Error(), "4 assigned user(s)")
}

func TestSetPermissionsNormalizesAndDeduplicates(t *testing.T) {
	service, repo := newTestService(t)
	repo.seed(Role{ID: 3, Name: "Moderator"})

	err := service.SetPermissions(context.Background(), admin(), 3,
		[]string{" Posts.View ", "posts.view", "", authz.PermPostsEdit})
	require.NoError(t, err)
	assert.Equal(t, []string{authz.PermPostsView, authz.PermPostsEdit}, repo.perms[3])
}

func TestSetPermissionsRejectsUnknownKey(t *testing.T) {
	service, repo := newTestService(t)
	repo.seed(Role{ID: 3, Name: "Moderator"})
	repo.perms[3] = []string{authz.PermPostsView}

	err := service.SetPermissions(context.Background(), admin(), 3, []string{"posts.view", "no.such.key"})
	assert.ErrorIs(t, err, shared.ErrInvalid)
	assert.Equal(t, []string{authz.PermPostsView}, repo.perms[3], "rejected request must not change assignments")
}

func TestPermissionsForSuperRoleIsFullCatalog(t *testing.T) {
	service, repo := newTestService(t)
	repo.seed(Role{ID: 1, Name: "Super Admin", IsSuperAdmin: true})

	keys, err := service.Permissions(context.Background(), admin(), 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, authz.CatalogKeys(), keys)
}
