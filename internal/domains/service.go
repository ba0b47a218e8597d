package domains

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

// Service maintains the sign-in domain allow list.
type Service struct {
	repo     RepositoryPort
	engine   *authz.Engine
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, engine *authz.Engine, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, engine: engine, recorder: recorder}
}

// List returns the allow list.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]AllowedDomain, error) {
	if err := s.engine.Require(ctx, actor, authz.PermDomainsManage); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Add appends a normalized domain to the allow list. Duplicates surface as
// Conflict from the unique index rather than a racy pre-check.
func (s *Service) Add(ctx context.Context, actor authz.Actor, domain string) (AllowedDomain, error) {
	if err := s.engine.Require(ctx, actor, authz.PermDomainsManage); err != nil {
		return AllowedDomain{}, err
	}
	domain, err := Normalize(domain)
	if err != nil {
		return AllowedDomain{}, err
	}
	d, err := s.repo.Add(ctx, domain, actor.ID)
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			return AllowedDomain{}, fmt.Errorf("%w: domain already allowed", shared.ErrConflict)
		}
		return AllowedDomain{}, err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionDomainAdded,
		TargetType: "domain",
		TargetID:   strconv.FormatInt(d.ID, 10),
		Meta:       map[string]any{"domain": domain},
	})
	return d, nil
}

// Remove deletes an entry from the allow list.
func (s *Service) Remove(ctx context.Context, actor authz.Actor, id int64) error {
	if err := s.engine.Require(ctx, actor, authz.PermDomainsManage); err != nil {
		return err
	}
	domain, err := s.repo.Remove(ctx, id)
	if err != nil {
		return err
	}
	s.recorder.MustRecord(ctx, audit.Entry{
		ActorID:    &actor.ID,
		Action:     audit.ActionDomainRemoved,
		TargetType: "domain",
		TargetID:   strconv.FormatInt(id, 10),
		Meta:       map[string]any{"domain": domain},
	})
	return nil
}

// Allows reports whether an email's domain is on the allow list. An empty
// allow list permits everything.
func (s *Service) Allows(ctx context.Context, email string) (bool, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return false, err
	}
	if len(all) == 0 {
		return true, nil
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false, nil
	}
	return s.repo.Exists(ctx, strings.ToLower(email[at+1:]))
}

// Normalize lowercases and validates a bare domain name.
func Normalize(domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "www.")
	if domain == "" || strings.ContainsAny(domain, " /@:") || !strings.Contains(domain, ".") {
		return "", fmt.Errorf("%w: a bare domain like example.com is required", shared.ErrInvalid)
	}
	return domain, nil
}
