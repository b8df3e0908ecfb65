package application

import (
	"context"

	"vn.io.arda/directory/internal/domain"
)

// IdPClient is the gateway's port to the external identity provider.
// The default implementation calls the Keycloak Admin REST API.
// A fake implementation is used for testing.
type IdPClient interface {
	// ServiceToken performs a client-credentials grant and returns a fresh
	// short-lived admin access token. One token per gateway operation.
	ServiceToken(ctx context.Context) (string, error)

	// FetchUser looks up one user by provider-assigned id. A non-success
	// response resolves to (nil, nil) — no record, not an error.
	FetchUser(ctx context.Context, id, serviceToken string) (*domain.DirectoryUser, error)

	// ListUsers fetches the full realm directory in one call.
	ListUsers(ctx context.Context, serviceToken string) ([]domain.DirectoryUser, error)

	// CreateUser submits a new-user payload to the admin API.
	CreateUser(ctx context.Context, reg domain.RegistrationRequest, serviceToken string) error
}
