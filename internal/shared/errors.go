package shared

import "errors"

// Error taxonomy shared by every module. Handlers map these onto HTTP
// problem responses; services wrap them with fmt.Errorf("%w: ...") to add
// detail without breaking errors.Is checks.
var (
	// ErrUnauthenticated indicates a missing, expired or unverifiable credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a valid identity lacking the required permission.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalid indicates malformed input or an unmatched invitation token.
	ErrInvalid = errors.New("invalid")
	// ErrExpired indicates a token or invitation past its validity window.
	ErrExpired = errors.New("expired")
	// ErrConflict indicates a lost concurrent update or a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable indicates the backing identity or data service is unreachable.
	// Authorization treats it as deny, never as allow.
	ErrUnavailable = errors.New("unavailable")
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCSRFTokenMissing occurs when a CSRF token is absent from a mutating request.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
