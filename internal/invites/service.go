package invites

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/pressroom-cms/pressroom/internal/audit"
	"github.com/pressroom-cms/pressroom/internal/authz"
	"github.com/pressroom-cms/pressroom/internal/identity"
	"github.com/pressroom-cms/pressroom/internal/shared"
	"github.com/pressroom-cms/pressroom/internal/users"
)

// Delivery hands the raw token to the email channel. The service never
// formats or sends mail itself.
type Delivery interface {
	EnqueueInviteMail(ctx context.Context, email, name, rawToken string, expiresAt time.Time) error
}

// DomainPolicy restricts which email domains may be invited. Satisfied by the
// domains service.
type DomainPolicy interface {
	Allows(ctx context.Context, email string) (bool, error)
}

// Service drives the invitation state machine: Issued -> Accepted, with
// expiry reachable only by the clock.
type Service struct {
	repo     RepositoryPort
	users    users.RepositoryPort
	engine   *authz.Engine
	provider identity.Provider
	recorder *audit.Recorder
	delivery Delivery
	domains  DomainPolicy
	secret   []byte
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService builds a Service instance. The secret keys the one-way token
// hash; ttl defaults to DefaultTTL when zero.
func NewService(
	repo RepositoryPort,
	userRepo users.RepositoryPort,
	engine *authz.Engine,
	provider identity.Provider,
	recorder *audit.Recorder,
	delivery Delivery,
	domains DomainPolicy,
	secret string,
	ttl time.Duration,
	logger *slog.Logger,
) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		repo:     repo,
		users:    userRepo,
		engine:   engine,
		provider: provider,
		recorder: recorder,
		delivery: delivery,
		domains:  domains,
		secret:   []byte(secret),
		ttl:      ttl,
		logger:   logger,
	}
}

// Issue creates an invitation and hands the raw token to the delivery
// channel. Multiple outstanding invitations per email are allowed; issuing a
// new one does not revoke earlier ones, since lookup is by token hash.
func (s *Service) Issue(ctx context.Context, issuer authz.Actor, email, name string, roleID int64) (Invitation, error) {
	if err := s.engine.Require(ctx, issuer, authz.PermUsersCreate); err != nil {
		return Invitation{}, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return Invitation{}, fmt.Errorf("%w: a valid email is required", shared.ErrInvalid)
	}
	if name == "" {
		return Invitation{}, fmt.Errorf("%w: name is required", shared.ErrInvalid)
	}
	if roleID <= 0 {
		return Invitation{}, fmt.Errorf("%w: role is required", shared.ErrInvalid)
	}
	if s.domains != nil {
		allowed, err := s.domains.Allows(ctx, email)
		if err != nil {
			return Invitation{}, fmt.Errorf("%w: try again", shared.ErrUnavailable)
		}
		if !allowed {
			return Invitation{}, fmt.Errorf("%w: email domain is not allowed", shared.ErrForbidden)
		}
	}

	rawToken, err := generateRawToken()
	if err != nil {
		return Invitation{}, err
	}

	inv, err := s.repo.Create(ctx, Invitation{
		Email:     email,
		Name:      name,
		RoleID:    roleID,
		TokenHash: s.hashToken(rawToken),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
		CreatedBy: issuer.ID,
	})
	if err != nil {
		return Invitation{}, err
	}

	if err := s.delivery.EnqueueInviteMail(ctx, email, name, rawToken, inv.ExpiresAt); err != nil && s.logger != nil {
		// Delivery is best effort; the admin can issue a fresh invitation.
		s.logger.Warn("enqueue invite mail", slog.String("email", email), slog.Any("error", err))
	}

	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &issuer.ID,
		Action:     audit.ActionInviteIssued,
		TargetType: "invitation",
		TargetID:   strconv.FormatInt(inv.ID, 10),
		Meta:       map[string]any{"email": email, "role_id": roleID},
	})
	return inv, nil
}

// VerifyToken resolves a raw token to its claims. Unmatched and already-used
// tokens collapse into the same generic Invalid so a probing caller learns
// nothing; Expired is distinct because the token was proven authentic first.
func (s *Service) VerifyToken(ctx context.Context, rawToken string) (Claims, error) {
	inv, err := s.lookup(ctx, rawToken)
	if err != nil {
		return Claims{}, err
	}
	return Claims{Email: inv.Email, Name: inv.Name, RoleID: inv.RoleID}, nil
}

// Accept consumes the invitation: it creates the identity-provider account,
// the profile row, and marks the invitation accepted. The three writes form
// one logical transaction with compensating cleanup, since the identity
// provider sits outside our database transaction boundary.
func (s *Service) Accept(ctx context.Context, rawToken, name, password string) (users.User, error) {
	inv, err := s.lookup(ctx, rawToken)
	if err != nil {
		return users.User{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return users.User{}, fmt.Errorf("%w: name is required", shared.ErrInvalid)
	}
	if len(password) < 8 {
		return users.User{}, fmt.Errorf("%w: password must be at least 8 characters", shared.ErrInvalid)
	}

	ident, err := s.provider.CreateAccount(ctx, inv.Email, password, true)
	if err != nil {
		if errors.Is(err, identity.ErrDuplicateAccount) {
			return users.User{}, fmt.Errorf("%w: email already registered", shared.ErrConflict)
		}
		if s.logger != nil {
			s.logger.Error("create identity account", slog.Any("error", err))
		}
		return users.User{}, fmt.Errorf("%w: try again", shared.ErrUnavailable)
	}

	user, err := s.users.Create(ctx, users.NewUser{
		IdentityID: ident.ID,
		Email:      inv.Email,
		Name:       name,
		Status:     users.StatusActive,
		RoleID:     inv.RoleID,
	})
	if err != nil {
		// Compensating action: the created credential must not outlive the
		// missing profile. Cleanup failure is logged, never surfaced.
		if delErr := s.provider.DeleteAccount(ctx, ident.ID); delErr != nil && s.logger != nil {
			s.logger.Error("rollback identity account", slog.String("identity_id", ident.ID), slog.Any("error", delErr))
		}
		if errors.Is(err, shared.ErrConflict) {
			return users.User{}, fmt.Errorf("%w: email already in use", shared.ErrConflict)
		}
		if s.logger != nil {
			s.logger.Error("create user profile", slog.Any("error", err))
		}
		return users.User{}, fmt.Errorf("%w: try again", shared.ErrUnavailable)
	}

	won, err := s.repo.MarkAccepted(ctx, inv.ID, time.Now())
	if err != nil {
		if s.logger != nil {
			s.logger.Error("mark invitation accepted", slog.Any("error", err))
		}
		s.undoAccept(ctx, user, ident.ID)
		return users.User{}, fmt.Errorf("%w: try again", shared.ErrUnavailable)
	}
	if !won {
		// A concurrent acceptance committed first. The losing side must not
		// keep an actor for an invitation consumed by someone else.
		s.undoAccept(ctx, user, ident.ID)
		return users.User{}, fmt.Errorf("%w: invitation token", shared.ErrInvalid)
	}

	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &user.ID,
		Action:     audit.ActionInviteAccepted,
		TargetType: "invitation",
		TargetID:   strconv.FormatInt(inv.ID, 10),
		Meta:       map[string]any{"email": inv.Email, "user_id": user.ID},
	})
	return user, nil
}

func (s *Service) lookup(ctx context.Context, rawToken string) (Invitation, error) {
	if strings.TrimSpace(rawToken) == "" {
		return Invitation{}, fmt.Errorf("%w: invitation token", shared.ErrInvalid)
	}
	inv, err := s.repo.FindPendingByTokenHash(ctx, s.hashToken(rawToken))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Invitation{}, fmt.Errorf("%w: invitation token", shared.ErrInvalid)
		}
		return Invitation{}, fmt.Errorf("%w: try again", shared.ErrUnavailable)
	}
	if inv.IsExpired(time.Now()) {
		return Invitation{}, fmt.Errorf("%w: invitation", shared.ErrExpired)
	}
	return inv, nil
}

func (s *Service) undoAccept(ctx context.Context, user users.User, identityID string) {
	if err := s.users.SetStatus(ctx, user.ID, users.StatusDeleted); err != nil && s.logger != nil {
		s.logger.Error("undo user profile", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	if err := s.provider.DeleteAccount(ctx, identityID); err != nil && s.logger != nil {
		s.logger.Error("undo identity account", slog.String("identity_id", identityID), slog.Any("error", err))
	}
}

func (s *Service) hashToken(rawToken string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(rawToken))
	return hex.EncodeToString(mac.Sum(nil))
}

func generateRawToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
