package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/identity"
	"github.com/pressroom-cms/pressroom/internal/shared"
)

type mockRepo struct {
	nextID    int64
	byID      map[int64]*User
	createErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[int64]*User{}}
}

func (m *mockRepo) List(ctx context.Context, filters ListFilters) ([]User, int, error) {
	var result []User
	for _, u := range m.byID {
		if u.Status != StatusDeleted {
			result = append(result, *u)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (User, error) {
	if u, ok := m.byID[id]; ok {
		return *u, nil
	}
	return User{}, shared.ErrNotFound
}

func (m *mockRepo) GetByIdentity(ctx context.Context, identityID string) (User, error) {
	for _, u := range m.byID {
		if u.IdentityID == identityID {
			return *u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *mockRepo) Create(ctx context.Context, user NewUser) (User, error) {
	if m.createErr != nil {
		return User{}, m.createErr
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return User{}, shared.ErrConflict
		}
	}
	m.nextID++
	created := User{
		ID:         m.nextID,
		IdentityID: user.IdentityID,
		Email:      user.Email,
		Name:       user.Name,
		Status:     user.Status,
		RoleID:     user.RoleID,
		CreatedAt:  time.Now(),
	}
	m.byID[created.ID] = &created
	return created, nil
}

func (m *mockRepo) Update(ctx context.Context, id int64, name string, roleID int64, avatarURL string) error {
	u, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Name = name
	u.RoleID = roleID
	u.AvatarURL = avatarURL
	return nil
}

func (m *mockRepo) SetStatus(ctx context.Context, id int64, status string) error {
	u, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *mockRepo) SetStatusIf(ctx context.Context, id int64, from, to string) (bool, error) {
	u, ok := m.byID[id]
	if !ok || u.Status != from {
		return false, nil
	}
	u.Status = to
	return true, nil
}

func (m *mockRepo) TouchLastLogin(ctx context.Context, id int64) error {
	u, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

type mockProvider struct {
	nextID    int
	accounts  map[string]string
	createErr error
}

func newMockProvider() *mockProvider {
	return &mockProvider{accounts: map[string]string{}}
}

func (m *mockProvider) Authenticate(ctx context.Context, email, password string) (identity.Identity, string, error) {
	return identity.Identity{}, "", identity.ErrInvalidCredentials
}

func (m *mockProvider) ValidateSession(ctx context.Context, accessToken string) (identity.Identity, error) {
	return identity.Identity{}, identity.ErrInvalidSession
}

func (m *mockProvider) RevokeSession(ctx context.Context, accessToken string) error { return nil }

func (m *mockProvider) CreateAccount(ctx context.Context, email, password string, confirmed bool) (identity.Identity, error) {
	if m.createErr != nil {
		return identity.Identity{}, m.createErr
	}
	m.nextID++
	id := fmt.Sprintf("ident-%d", m.nextID)
	m.accounts[id] = email
	return identity.Identity{ID: id, Email: email, EmailConfirmed: confirmed}, nil
}

func (m *mockProvider) DeleteAccount(ctx context.Context, id string) error {
	delete(m.accounts, id)
	return nil
}

func newTestService(t *testing.T) (*Service, *mockRepo, *mockProvider) {
	t.Helper()
	repo := newMockRepo()
	provider := newMockProvider()
	engine := authz.NewEngine(provider, nil, nil)
	return NewService(repo, engine, provider, nil, nil), repo, provider
}

func admin() authz.Actor {
	return authz.Actor{
		ID:     99,
		Email:  "admin@test.local",
		Status: authz.UserStatusActive,
		Role:   authz.Role{ID: 1, Name: "Super Admin", IsSuperAdmin: true},
	}
}

func TestCreateProvisionsActiveUser(t *testing.T) {
	service, _, provider := newTestService(t)

	user, err := service.Create(context.Background(), admin(), "Editor@Example.com", "Editor", "hunter2hunter2", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, user.Status)
	assert.Equal(t, "editor@example.com", user.Email)
	assert.Len(t, provider.accounts, 1)
}

func TestCreateRollsBackIdentityOnProfileFailure(t *testing.T) {
	service, repo, provider := newTestService(t)
	repo.createErr = errors.New("db down")

	_, err := service.Create(context.Background(), admin(), "a@b.co", "Name", "hunter2hunter2", 2)
	require.Error(t, err)
	assert.Empty(t, provider.accounts, "identity account must not survive a failed profile insert")
}

func TestCreateDuplicateEmailIsConflict(t *testing.T) {
	service, _, provider := newTestService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, admin(), "a@b.co", "First", "hunter2hunter2", 2)
	require.NoError(t, err)

	_, err = service.Create(ctx, admin(), "a@b.co", "Second", "hunter2hunter2", 2)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Len(t, provider.accounts, 1, "the duplicate's identity account must be rolled back")
}

func TestCreateRejectsShortPassword(t *testing.T) {
	service, _, provider := newTestService(t)

	_, err := service.Create(context.Background(), admin(), "a@b.co", "Name", "short", 2)
	assert.ErrorIs(t, err, shared.ErrInvalid)
	assert.Empty(t, provider.accounts)
}

func TestCreateRejectsMissingRole(t *testing.T) {
	service, _, provider := newTestService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, admin(), "a@b.co", "Name", "hunter2hunter2", 0)
	assert.ErrorIs(t, err, shared.ErrInvalid)

	_, err = service.Create(ctx, admin(), "a@b.co", "Name", "hunter2hunter2", -1)
	assert.ErrorIs(t, err, shared.ErrInvalid)
	assert.Empty(t, provider.accounts, "no identity account for an invalid role")
}

func TestSetActiveTogglesAndIsIdempotent(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()
	repo.byID[1] = &User{ID: 1, Email: "a@b.co", Status: StatusActive}

	user, err := service.SetActive(ctx, admin(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, user.Status)

	user, err = service.SetActive(ctx, admin(), 1, false)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, user.Status)

	user, err = service.SetActive(ctx, admin(), 1, true)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, user.Status)
}

func TestSetActiveRejectsInvitedAndDeleted(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()
	repo.byID[1] = &User{ID: 1, Status: StatusInvited}
	repo.byID[2] = &User{ID: 2, Status: StatusDeleted}

	_, err := service.SetActive(ctx, admin(), 1, true)
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = service.SetActive(ctx, admin(), 2, true)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestDeleteIsSoft(t *testing.T) {
	service, repo, _ := newTestService(t)
	repo.byID[1] = &User{ID: 1, Status: StatusActive}

	err := service.Delete(context.Background(), admin(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, repo.byID[1].Status)
}

func TestDeleteOwnAccountIsBlocked(t *testing.T) {
	service, repo, _ := newTestService(t)
	actor := admin()
	repo.byID[actor.ID] = &User{ID: actor.ID, Status: StatusActive}

	err := service.Delete(context.Background(), actor, actor.ID)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.Equal(t, StatusActive, repo.byID[actor.ID].Status)
}

func TestActivateAfterSetupTransitionsInvited(t *testing.T) {
	service, repo, _ := newTestService(t)
	repo.byID[1] = &User{ID: 1, IdentityID: "ident-1", Status: StatusInvited}

	user, err := service.ActivateAfterSetup(context.Background(), "ident-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, user.Status)
}

func TestActivateAfterSetupIsIdempotent(t *testing.T) {
	service, repo, _ := newTestService(t)
	repo.byID[1] = &User{ID: 1, IdentityID: "ident-1", Status: StatusActive}

	user, err := service.ActivateAfterSetup(context.Background(), "ident-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, user.Status)
}

func TestActivateAfterSetupRejectsNonUsableStatuses(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()

	repo.byID[1] = &User{ID: 1, IdentityID: "ident-1", Status: StatusDeleted}
	_, err := service.ActivateAfterSetup(ctx, "ident-1")
	assert.ErrorIs(t, err, shared.ErrConflict)

	_, err = service.ActivateAfterSetup(ctx, "ident-missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateValidatesInput(t *testing.T) {
	service, repo, _ := newTestService(t)
	ctx := context.Background()
	repo.byID[1] = &User{ID: 1, Name: "Old", RoleID: 2, Status: StatusActive}

	_, err := service.Update(ctx, admin(), 1, "  ", 2, "")
	assert.ErrorIs(t, err, shared.ErrInvalid)

	_, err = service.Update(ctx, admin(), 1, "New Name", 0, "")
	assert.ErrorIs(t, err, shared.ErrInvalid)

	user, err := service.Update(ctx, admin(), 1, "New Name", 3, "")
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.Name)
	assert.Equal(t, int64(3), user.RoleID)
}
