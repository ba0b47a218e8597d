package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/identity"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/users"
)

type stubProvider struct {
	ident       identity.Identity
	authErr     error
	validateErr error
	revoked     []string
}

func (s *stubProvider) Authenticate(ctx context.Context, email, password string) (identity.Identity, string, error) {
	if s.authErr != nil {
		return identity.Identity{}, "", s.authErr
	}
	return s.ident, "access-token", nil
}

func (s *stubProvider) ValidateSession(ctx context.Context, accessToken string) (identity.Identity, error) {
	if s.validateErr != nil {
		return identity.Identity{}, s.validateErr
	}
	return s.ident, nil
}

func (s *stubProvider) RevokeSession(ctx context.Context, accessToken string) error {
	s.revoked = append(s.revoked, accessToken)
	return nil
}

func (s *stubProvider) CreateAccount(ctx context.Context, email, password string, confirmed bool) (identity.Identity, error) {
	return s.ident, nil
}

func (s *stubProvider) DeleteAccount(ctx context.Context, id string) error { return nil }

type stubUserRepo struct {
	user    users.User
	found   bool
	touched bool
}

func (s *stubUserRepo) List(ctx context.Context, filters users.ListFilters) ([]users.User, int, error) {
	return nil, 0, nil
}

func (s *stubUserRepo) Get(ctx context.Context, id int64) (users.User, error) {
	if !s.found {
		return users.User{}, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) GetByIdentity(ctx context.Context, identityID string) (users.User, error) {
	if !s.found || s.user.IdentityID != identityID {
		return users.User{}, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) Create(ctx context.Context, user users.NewUser) (users.User, error) {
	return users.User{}, shared.ErrConflict
}

func (s *stubUserRepo) Update(ctx context.Context, id int64, name string, roleID int64, avatarURL string) error {
	return nil
}

func (s *stubUserRepo) SetStatus(ctx context.Context, id int64, status string) error {
	s.user.Status = status
	return nil
}

func (s *stubUserRepo) SetStatusIf(ctx context.Context, id int64, from, to string) (bool, error) {
	if s.user.Status != from {
		return false, nil
	}
	s.user.Status = to
	return true, nil
}

func (s *stubUserRepo) TouchLastLogin(ctx context.Context, id int64) error {
	s.touched = true
	return nil
}

type stubPolicy struct {
	allowed bool
	err     error
	asked   []string
}

func (s *stubPolicy) Allows(ctx context.Context, email string) (bool, error) {
	s.asked = append(s.asked, email)
	return s.allowed, s.err
}

type stubDirectory struct {
	actor authz.Actor
	err   error
}

func (s *stubDirectory) FindActorByIdentity(ctx context.Context, identityID string) (authz.Actor, error) {
	if s.err != nil {
		return authz.Actor{}, s.err
	}
	return s.actor, nil
}

func (s *stubDirectory) RoleHasPermission(ctx context.Context, roleID int64, key string) (bool, error) {
	return false, nil
}

func (s *stubDirectory) RolePermissionKeys(ctx context.Context, roleID int64) ([]string, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *stubProvider, *stubUserRepo, *stubDirectory) {
	t.Helper()
	provider := &stubProvider{ident: identity.Identity{ID: "ident-1", Email: "editor@test.local"}}
	repo := &stubUserRepo{
		user: users.User{
			ID:         7,
			IdentityID: "ident-1",
			Email:      "editor@test.local",
			Status:     users.StatusActive,
			RoleID:     2,
		},
		found: true,
	}
	directory := &stubDirectory{
		actor: authz.Actor{
			ID:         7,
			IdentityID: "ident-1",
			Email:      "editor@test.local",
			Status:     authz.UserStatusActive,
			Role:       authz.Role{ID: 2, Name: "Editor"},
		},
	}
	engine := authz.NewEngine(provider, directory, nil)
	userService := users.NewService(repo, engine, provider, nil, nil)
	return NewService(provider, engine, userService, nil, nil), provider, repo, directory
}

func newPolicyService(t *testing.T, policy *stubPolicy) (*Service, *stubProvider) {
	t.Helper()
	service, provider, _, _ := newTestService(t)
	service.domains = policy
	return service, provider
}

func TestLoginHappyPath(t *testing.T) {
	service, _, repo, _ := newTestService(t)

	actor, token, err := service.Login(context.Background(), "editor@test.local", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "access-token", token)
	assert.Equal(t, int64(7), actor.ID)
	assert.True(t, repo.touched, "last login must be stamped")
}

func TestLoginActivatesInvitedUser(t *testing.T) {
	service, _, repo, _ := newTestService(t)
	repo.user.Status = users.StatusInvited

	_, _, err := service.Login(context.Background(), "editor@test.local", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, users.StatusActive, repo.user.Status)
}

func TestLoginBadCredentials(t *testing.T) {
	service, provider, _, _ := newTestService(t)
	provider.authErr = identity.ErrInvalidCredentials

	_, _, err := service.Login(context.Background(), "editor@test.local", "wrong")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestLoginProviderOutageIsUnavailable(t *testing.T) {
	service, provider, _, _ := newTestService(t)
	provider.authErr = identity.ErrUnavailable

	_, _, err := service.Login(context.Background(), "editor@test.local", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrUnavailable)
	assert.NotErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestLoginWithoutProfileRevokesAndDenies(t *testing.T) {
	service, provider, repo, _ := newTestService(t)
	repo.found = false

	_, _, err := service.Login(context.Background(), "editor@test.local", "hunter2hunter2")
	// Same generic denial as bad credentials, so probing reveals nothing
	// about which half is missing.
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	assert.Equal(t, []string{"access-token"}, provider.revoked)
}

func TestLoginWithDeletedProfileRevokesAndDenies(t *testing.T) {
	service, provider, repo, _ := newTestService(t)
	repo.user.Status = users.StatusDeleted

	_, _, err := service.Login(context.Background(), "editor@test.local", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	assert.Len(t, provider.revoked, 1)
}

func TestLoginBlockedForOffListDomain(t *testing.T) {
	policy := &stubPolicy{allowed: false}
	service, provider := newPolicyService(t, policy)

	_, _, err := service.Login(context.Background(), "editor@elsewhere.example", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, []string{"editor@elsewhere.example"}, policy.asked)
	assert.Empty(t, provider.revoked, "rejected before any token was minted")
}

func TestLoginAllowedDomainProceeds(t *testing.T) {
	policy := &stubPolicy{allowed: true}
	service, _ := newPolicyService(t, policy)

	_, token, err := service.Login(context.Background(), "editor@test.local", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "access-token", token)
}

func TestLoginPolicyOutageIsUnavailable(t *testing.T) {
	policy := &stubPolicy{err: shared.ErrUnavailable}
	service, _ := newPolicyService(t, policy)

	_, _, err := service.Login(context.Background(), "editor@test.local", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrUnavailable)
	assert.NotErrorIs(t, err, shared.ErrForbidden)
}

func TestLogoutRevokesToken(t *testing.T) {
	service, provider, _, _ := newTestService(t)

	service.Logout(context.Background(), "access-token")
	assert.Equal(t, []string{"access-token"}, provider.revoked)

	service.Logout(context.Background(), "")
	assert.Len(t, provider.revoked, 1, "empty token must not hit the provider")
}

func TestPermissionsListsEffectiveKeys(t *testing.T) {
	service, _, _, _ := newTestService(t)
	actor := authz.Actor{
		ID:     7,
		Status: authz.UserStatusActive,
		Role:   authz.Role{ID: 1, IsSuperAdmin: true},
	}

	keys, err := service.Permissions(context.Background(), actor)
	require.NoError(t, err)
	assert.NotEmpty(t, keys)
}
