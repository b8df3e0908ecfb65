package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vn.io.arda/directory/internal/domain"
)

// maxErrorBody caps how much of an upstream error body we read for logs.
const maxErrorBody = 4096

// Client implements application.IdPClient by calling the Keycloak Admin
// REST API. Every gateway operation acquires a fresh service-account token;
// nothing is cached across requests, so concurrent calls are fully
// independent and a Keycloak outage never poisons later requests.
type Client struct {
	baseURL      string // e.g. "http://keycloak:8080"
	realm        string
	clientID     string
	clientSecret string

	httpClient *http.Client
}

// New creates a Keycloak admin client for the given realm.
func New(baseURL, realm, clientID, clientSecret string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// keycloakUser is the admin API's user representation. Attributes are
// list-valued per key; the company tag is the first element.
type keycloakUser struct {
	ID         string              `json:"id"`
	Email      string              `json:"email"`
	FirstName  string              `json:"firstName"`
	LastName   string              `json:"lastName"`
	Attributes map[string][]string `json:"attributes"`
}

func (u keycloakUser) toDomain() domain.DirectoryUser {
	var company string
	if vals := u.Attributes["company"]; len(vals) > 0 {
		company = vals[0]
	}
	return domain.DirectoryUser{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Company:   company,
	}
}

// ServiceToken performs a client-credentials grant against the realm token
// endpoint and returns the short-lived admin access token. The response
// body of a failed exchange is logged, never returned to the caller.
func (c *Client) ServiceToken(ctx context.Context) (string, error) {
	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.baseURL, c.realm)

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUpstreamAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("keycloak token exchange failed")
		return "", domain.ErrUpstreamAuth
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", domain.ErrUpstreamAuth, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", domain.ErrUpstreamAuth)
	}
	return tok.AccessToken, nil
}

// FetchUser looks up one user by its provider-assigned id. Any non-success
// response, 404 included, resolves to no record rather than an error;
// callers treat this as best-effort enrichment.
func (c *Client) FetchUser(ctx context.Context, id, serviceToken string) (*domain.DirectoryUser, error) {
	reqURL := fmt.Sprintf("%s/admin/realms/%s/users/%s", c.baseURL, c.realm, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+serviceToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keycloak fetch user %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("user_id", id).Msg("keycloak user lookup returned no record")
		return nil, nil
	}

	var u keycloakUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("keycloak fetch user %s: decode: %w", id, err)
	}
	user := u.toDomain()
	return &user, nil
}

// ListUsers fetches the whole realm directory in one call. The IdP is
// assumed to return the complete set; no pagination is attempted.
func (c *Client) ListUsers(ctx context.Context, serviceToken string) ([]domain.DirectoryUser, error) {
	reqURL := fmt.Sprintf("%s/admin/realms/%s/users", c.baseURL, c.realm)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+serviceToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("keycloak user listing failed")
		return nil, domain.ErrUpstreamFetch
	}

	var raw []keycloakUser
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode user listing: %v", domain.ErrUpstreamFetch, err)
	}

	users := make([]domain.DirectoryUser, 0, len(raw))
	for _, u := range raw {
		users = append(users, u.toDomain())
	}
	return users, nil
}

// CreateUser submits a new enabled user with a non-temporary password
// credential and the company tag under the list-valued custom attribute.
func (c *Client) CreateUser(ctx context.Context, reg domain.RegistrationRequest, serviceToken string) error {
	reqURL := fmt.Sprintf("%s/admin/realms/%s/users", c.baseURL, c.realm)

	payload := map[string]any{
		"username":  reg.Email,
		"email":     reg.Email,
		"firstName": reg.FirstName,
		"lastName":  reg.LastName,
		"enabled":   true,
		"attributes": map[string][]string{
			"company": {reg.Company},
		},
		"credentials": []map[string]any{
			{"type": "password", "value": reg.Password, "temporary": false},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+serviceToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("keycloak create user: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		log.Error().Str("email", reg.Email).Msg("keycloak denied user creation, service account lacks manage-users")
		return domain.ErrPermissionDenied
	case resp.StatusCode == http.StatusConflict:
		log.Debug().Str("email", reg.Email).Msg("keycloak reported duplicate user")
		return domain.ErrConflict
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error().
			Int("status", resp.StatusCode).
			Str("body", string(raw)).
			Msg("keycloak rejected user creation")
		return &domain.UpstreamError{Status: resp.StatusCode, Body: string(raw)}
	}
}
