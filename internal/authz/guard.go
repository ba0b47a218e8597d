package authz

import (
	"net/url"
	"path"
)

// Well-known panel paths.
const (
	LoginPath          = "/admin/login"
	ForgotPasswordPath = "/admin/forgot-password"
	AcceptInvitePath   = "/admin/accept-invite"
	CSRFTokenPath      = "/admin/csrf"
	DashboardPath      = "/admin"
)

// SessionState is the outcome of resolving the inbound credential.
type SessionState int

const (
	// StateUnauthenticated means no valid credential was presented.
	StateUnauthenticated SessionState = iota
	// StateAuthenticated means the credential resolved to an active actor.
	StateAuthenticated
	// StateUnavailable means identity resolution failed for infrastructure
	// reasons. Treated as unauthenticated, never as allow.
	StateUnavailable
)

// GuardResult is the route-gate decision.
type GuardResult struct {
	Allow        bool
	RedirectPath string
	Query        url.Values
}

// GuardRoute applies the route-gate decision table. It is pure: identity has
// already been resolved by the caller.
func GuardRoute(requestPath string, state SessionState) GuardResult {
	// The CSRF token endpoint serves both anonymous and signed-in clients.
	if requestPath == CSRFTokenPath {
		return GuardResult{Allow: true}
	}
	if isAuthExempt(requestPath) {
		if state == StateAuthenticated {
			return GuardResult{RedirectPath: DashboardPath}
		}
		return GuardResult{Allow: true}
	}

	switch state {
	case StateAuthenticated:
		return GuardResult{Allow: true}
	case StateUnavailable:
		return GuardResult{
			RedirectPath: LoginPath,
			Query:        url.Values{"message": []string{"session expired"}},
		}
	default:
		query := url.Values{"message": []string{"please log in"}}
		// Redirecting back to a 404 asset after login is meaningless, so
		// asset-looking paths do not get a return-to parameter.
		if !looksLikeStaticAsset(requestPath) {
			query.Set("redirect", requestPath)
		}
		return GuardResult{RedirectPath: LoginPath, Query: query}
	}
}

// RedirectURL renders the redirect target with its query string.
func (g GuardResult) RedirectURL() string {
	if g.Allow || g.RedirectPath == "" {
		return ""
	}
	if len(g.Query) == 0 {
		return g.RedirectPath
	}
	return g.RedirectPath + "?" + g.Query.Encode()
}

func isAuthExempt(requestPath string) bool {
	switch requestPath {
	case LoginPath, ForgotPasswordPath, AcceptInvitePath:
		return true
	}
	return false
}

func looksLikeStaticAsset(requestPath string) bool {
	return path.Ext(requestPath) != ""
}
