package domain

import (
	"errors"
	"fmt"
)

// Gateway error taxonomy. The transport layer maps these onto HTTP
// statuses; upstream response bodies are logged server-side and never
// cross the wire, except through UpstreamError (see below).
var (
	// ErrUpstreamAuth means the service-account token exchange failed.
	// The whole operation aborts; there is no partial result.
	ErrUpstreamAuth = errors.New("identity provider token exchange failed")

	// ErrUpstreamFetch means the directory listing failed.
	ErrUpstreamFetch = errors.New("identity provider directory fetch failed")

	// ErrPermissionDenied means the service account lacks the admin role
	// needed to create users.
	ErrPermissionDenied = errors.New("service account may not manage users")

	// ErrConflict means the email is already registered.
	ErrConflict = errors.New("email already registered")
)

// UpstreamError wraps an IdP rejection that fits none of the sentinel
// cases. Its body is surfaced to the caller as diagnostic text; this is
// the only path that echoes upstream output, and it carries no secret
// material.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("identity provider rejected request: status %d: %s", e.Status, e.Body)
}
