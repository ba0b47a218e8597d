package invites

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
	"github.com/pressroom-cms/pressroom/internal/users"
)

type mockRepo struct {
	nextID  int64
	byID    map[int64]*Invitation
	markErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{byID: map[int64]*Invitation{}}
}

func (m *mockRepo) Create(ctx context.Context, inv Invitation) (Invitation, error) {
	m.nextID++
	inv.ID = m.nextID
	inv.CreatedAt = time.Now()
	stored := inv
	m.byID[inv.ID] = &stored
	return inv, nil
}

func (m *mockRepo) FindPendingByTokenHash(ctx context.Context, hash string) (Invitation, error) {
	for _, inv := range m.byID {
		if inv.TokenHash == hash && inv.AcceptedAt == nil {
			return *inv, nil
		}
	}
	return Invitation{}, shared.ErrNotFound
}

func (m *mockRepo) MarkAccepted(ctx context.Context, id int64, at time.Time) (bool, error) {
	if m.markErr != nil {
		return false, m.markErr
	}
	inv, ok := m.byID[id]
	if !ok || inv.AcceptedAt != nil {
		return false, nil
	}
	inv.AcceptedAt = &at
	return true, nil
}

type mockUserRepo struct {
	nextID    int64
	byID      map[int64]*users.User
	createErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: map[int64]*users.User{}}
}

func (m *mockUserRepo) List(ctx context.Context, filters users.ListFilters) ([]users.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) Get(ctx context.Context, id int64) (users.User, error) {
	if u, ok := m.byID[id]; ok {
		return *u, nil
	}
	return users.User{}, shared.ErrNotFound
}

func (m *mockUserRepo) GetByIdentity(ctx context.Context, identityID string) (users.User, error) {
	for _, u := range m.byID {
		if u.IdentityID == identityID {
			return *u, nil
		}
	}
	return users.User{}, shared.ErrNotFound
}

func (m *mockUserRepo) Create(ctx context.Context, user users.NewUser) (users.User, error) {
	if m.createErr != nil {
		return users.User{}, m.createErr
	}
	m.nextID++
	created := users.User{
		ID:         m.nextID,
		IdentityID: user.IdentityID,
		Email:      user.Email,
		Name:       user.Name,
		Status:     user.Status,
		RoleID:     user.RoleID,
	}
	m.byID[created.ID] = &created
	return created, nil
}

func (m *mockUserRepo) Update(ctx context.Context, id int64, name string, roleID int64, avatarURL string) error {
	return nil
}

func (m *mockUserRepo) SetStatus(ctx context.Context, id int64, status string) error {
	u, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.Status = status
	return nil
}

func (m *mockUserRepo) SetStatusIf(ctx context.Context, id int64, from, to string) (bool, error) {
	u, ok := m.byID[id]
	if !ok || u.Status != from {
		return false, nil
	}
	u.Status = to
	return true, nil
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, id int64) error { return nil }

type mockProvider struct {
	nextID     int
	accounts   map[string]string
	createErr  error
	deletedIDs []string
	onCreate   func()
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
	if m.onCreate != nil {
		m.onCreate()
	}
	m.nextID++
	id := fmt.Sprintf("ident-%d", m.nextID)
	m.accounts[id] = email
	return identity.Identity{ID: id, Email: email, EmailConfirmed: confirmed}, nil
}

func (m *mockProvider) DeleteAccount(ctx context.Context, id string) error {
	delete(m.accounts, id)
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

type captureDelivery struct {
	email string
	token string
	err   error
}

func (c *captureDelivery) EnqueueInviteMail(ctx context.Context, email, name, rawToken string, expiresAt time.Time) error {
	if c.err != nil {
		return c.err
	}
	c.email = email
	c.token = rawToken
	return nil
}

type stubPolicy struct {
	allowed bool
	err     error
}

func (s *stubPolicy) Allows(ctx context.Context, email string) (bool, error) {
	return s.allowed, s.err
}

type fixture struct {
	service  *Service
	repo     *mockRepo
	userRepo *mockUserRepo
	provider *mockProvider
	delivery *captureDelivery
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMockRepo(),
		userRepo: newMockUserRepo(),
		provider: newMockProvider(),
		delivery: &captureDelivery{},
	}
	engine := authz.NewEngine(f.provider, nil, nil)
	f.service = NewService(f.repo, f.userRepo, engine, f.provider, nil, f.delivery, nil, "test-secret", time.Hour, nil)
	return f
}

func superAdmin() authz.Actor {
	return authz.Actor{
		ID:     1,
		Email:  "admin@test.local",
		Status: authz.UserStatusActive,
		Role:   authz.Role{ID: 1, Name: "Super Admin", IsSuperAdmin: true},
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	f := newFixture(t)

	inv, err := f.service.Issue(context.Background(), superAdmin(), "New.Editor@Example.com", "New Editor", 2)
	require.NoError(t, err)
	assert.Equal(t, "new.editor@example.com", inv.Email)
	assert.NotEmpty(t, f.delivery.token)

	claims, err := f.service.VerifyToken(context.Background(), f.delivery.token)
	require.NoError(t, err)
	assert.Equal(t, "new.editor@example.com", claims.Email)
	assert.Equal(t, int64(2), claims.RoleID)
}

func TestIssueRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Issue(ctx, superAdmin(), "not-an-email", "Name", 2)
	assert.ErrorIs(t, err, shared.ErrInvalid)

	_, err = f.service.Issue(ctx, superAdmin(), "a@b.co", "  ", 2)
	assert.ErrorIs(t, err, shared.ErrInvalid)

	_, err = f.service.Issue(ctx, superAdmin(), "a@b.co", "Name", 0)
	assert.ErrorIs(t, err, shared.ErrInvalid)
}

func TestIssueBlockedForOffListDomain(t *testing.T) {
	f := newFixture(t)
	f.service.domains = &stubPolicy{allowed: false}

	_, err := f.service.Issue(context.Background(), superAdmin(), "editor@elsewhere.example", "Name", 2)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, f.repo.byID, "no invitation row for a rejected domain")
	assert.Empty(t, f.delivery.token, "nothing enqueued for a rejected domain")
}

func TestIssueAllowedDomainProceeds(t *testing.T) {
	f := newFixture(t)
	f.service.domains = &stubPolicy{allowed: true}

	_, err := f.service.Issue(context.Background(), superAdmin(), "a@b.co", "Name", 2)
	assert.NoError(t, err)
}

func TestIssuePolicyOutageIsUnavailable(t *testing.T) {
	f := newFixture(t)
	f.service.domains = &stubPolicy{err: errors.New("db down")}

	_, err := f.service.Issue(context.Background(), superAdmin(), "a@b.co", "Name", 2)
	assert.ErrorIs(t, err, shared.ErrUnavailable)
	assert.Empty(t, f.repo.byID)
}

func TestIssueSucceedsWhenDeliveryFails(t *testing.T) {
	f := newFixture(t)
	f.delivery.err = errors.New("broker down")

	_, err := f.service.Issue(context.Background(), superAdmin(), "a@b.co", "Name", 2)
	assert.NoError(t, err)
}

func TestVerifyUnknownTokenIsGenericInvalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.VerifyToken(context.Background(), "bogus")
	assert.ErrorIs(t, err, shared.ErrInvalid)

	_, err = f.service.VerifyToken(context.Background(), "")
	assert.ErrorIs(t, err, shared.ErrInvalid)
}

func TestVerifyExpiredTokenIsDistinct(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Issue(context.Background(), superAdmin(), "a@b.co", "Name", 2)
	require.NoError(t, err)
	f.repo.byID[1].ExpiresAt = time.Now().Add(-time.Minute)

	_, err = f.service.VerifyToken(context.Background(), f.delivery.token)
	assert.ErrorIs(t, err, shared.ErrExpired)
	assert.NotErrorIs(t, err, shared.ErrInvalid)
}

func TestAcceptCreatesActiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Issue(ctx, superAdmin(), "a@b.co", "Suggested Name", 2)
	require.NoError(t, err)

	user, err := f.service.Accept(ctx, f.delivery.token, "Chosen Name", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, users.StatusActive, user.Status)
	assert.Equal(t, "Chosen Name", user.Name)
	assert.Equal(t, "a@b.co", user.Email)
	require.NotNil(t, f.repo.byID[1].AcceptedAt)
}

func TestAcceptIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Issue(ctx, superAdmin(), "a@b.co", "Name", 2)
	require.NoError(t, err)

	_, err = f.service.Accept(ctx, f.delivery.token, "Name", "hunter2hunter2")
	require.NoError(t, err)

	// The second attempt reads the consumed row as absent and gets the same
	// generic failure an unknown token gets.
	_, err = f.service.Accept(ctx, f.delivery.token, "Name", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrInvalid)
}

func TestAcceptLosingRaceRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Issue(ctx, superAdmin(), "a@b.co", "Name", 2)
	require.NoError(t, err)

	// A concurrent acceptance lands between token lookup and the accepted_at
	// compare-and-swap.
	f.provider.onCreate = func() {
		accepted := time.Now()
		f.repo.byID[1].AcceptedAt = &accepted
	}

	_, err = f.service.Accept(ctx, f.delivery.token, "Name", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrInvalid)
	assert.Len(t, f.provider.deletedIDs, 1)
	for _, u := range f.userRepo.byID {
		assert.Equal(t, users.StatusDeleted, u.Status)
	}
}

func TestAcceptRollsBackIdentityWhenProfileFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Issue(ctx, superAdmin(), "a@b.co", "Name", 2)
	require.NoError(t, err)

	f.userRepo.createErr = errors.New("db down")
	_, err = f.service.Accept(ctx, f.delivery.token, "Name", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrUnavailable)
	assert.Empty(t, f.provider.accounts, "identity account must not outlive the failed profile")
}

func TestAcceptDuplicateAccountIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Issue(ctx, superAdmin(), "a@b.co", "Name", 2)
	require.NoError(t, err)

	f.provider.createErr = identity.ErrDuplicateAccount
	_, err = f.service.Accept(ctx, f.delivery.token, "Name", "hunter2hunter2")
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestAcceptRejectsShortPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Issue(ctx, superAdmin(), "a@b.co", "Name", 2)
	require.NoError(t, err)

	_, err = f.service.Accept(ctx, f.delivery.token, "Name", "short")
	assert.ErrorIs(t, err, shared.ErrInvalid)
	assert.Empty(t, f.provider.accounts)
}
