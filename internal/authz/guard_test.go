package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuardRouteAuthenticatedPassesProtectedRoutes(t *testing.T) {
	result := GuardRoute("/admin/posts", StateAuthenticated)
	assert.True(t, result.Allow)
	assert.Empty(t, result.RedirectURL())
}

func TestGuardRouteUnauthenticatedRedirectsToLogin(t *testing.T) {
	result := GuardRoute("/admin/posts", StateUnauthenticated)
	assert.False(t, result.Allow)
	assert.Equal(t, LoginPath, result.RedirectPath)
	assert.Equal(t, "please log in", result.Query.Get("message"))
	assert.Equal(t, "/admin/posts", result.Query.Get("redirect"))
}

func TestGuardRouteUnavailableRedirectsWithoutGrantingAccess(t *testing.T) {
	// Identity infrastructure failure must deny, never allow.
	result := GuardRoute("/admin/users", StateUnavailable)
	assert.False(t, result.Allow)
	assert.Equal(t, LoginPath, result.RedirectPath)
	assert.Equal(t, "session expired", result.Query.Get("message"))
}

func TestGuardRouteExemptPathsAllowAnonymous(t *testing.T) {
	for _, path := range []string{LoginPath, ForgotPasswordPath, AcceptInvitePath} {
		result := GuardRoute(path, StateUnauthenticated)
		assert.True(t, result.Allow, path)
	}
}

func TestGuardRouteExemptPathsRedirectAuthenticatedToDashboard(t *testing.T) {
	result := GuardRoute(LoginPath, StateAuthenticated)
	assert.False(t, result.Allow)
	assert.Equal(t, DashboardPath, result.RedirectPath)
}

func TestGuardRouteCSRFPathAlwaysAllowed(t *testing.T) {
	for _, state := range []SessionState{StateUnauthenticated, StateAuthenticated, StateUnavailable} {
		assert.True(t, GuardRoute(CSRFTokenPath, state).Allow)
	}
}

func TestGuardRouteAssetPathsSkipReturnTo(t *testing.T) {
	result := GuardRoute("/admin/logo.png", StateUnauthenticated)
	assert.False(t, result.Allow)
	assert.Empty(t, result.Query.Get("redirect"))
}

func TestGuardResultRedirectURLEncodesQuery(t *testing.T) {
	result := GuardRoute("/admin/posts", StateUnauthenticated)
	url := result.RedirectURL()
	assert.Contains(t, url, LoginPath+"?")
	assert.Contains(t, url, "redirect=%2Fadmin%2Fposts")
}
