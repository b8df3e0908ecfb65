package mw

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/rs/zerolog/log"

	"vn.io.arda/directory/internal/domain"
	"vn.io.arda/directory/internal/token"
)

// Context keys set by the guard for downstream handlers.
const (
	ContextIdentity = "identity"
	ContextRawToken = "rawToken"
)

// Guard authenticates inbound requests against the realm's JWKS endpoint.
// It is the single source of trust for the request identity: the
// unverified claim extractor in internal/token only ever runs behind it.
type Guard struct {
	jwksURL string
	cache   *jwk.Cache
}

// NewGuard sets up a guard for the given Keycloak realm. The JWKS document
// is cached and refreshed in the background.
func NewGuard(ctx context.Context, keycloakBaseURL, realm string) (*Guard, error) {
	jwksURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs",
		strings.TrimRight(keycloakBaseURL, "/"), realm)

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(5*time.Minute)); err != nil {
		return nil, fmt.Errorf("register jwks endpoint: %w", err)
	}

	return &Guard{jwksURL: jwksURL, cache: cache}, nil
}

// Authenticate rejects requests without a valid Bearer token and stores
// the verified identity plus the raw token string in the echo context.
func (g *Guard) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := g.verify(c.Request().Context(), raw)
			if err != nil {
				log.Warn().Err(err).Msg("bearer token rejected")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			var id domain.Identity
			token.FromMap(claims).MergeInto(&id)

			c.Set(ContextIdentity, id)
			c.Set(ContextRawToken, raw)
			return next(c)
		}
	}
}

// verify checks the token signature against the cached JWKS and returns
// the claim map. Standard claim validation (exp, nbf) happens in Parse.
func (g *Guard) verify(ctx context.Context, raw string) (jwt.MapClaims, error) {
	keySet, err := g.cache.Get(ctx, g.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		key, ok := keySet.LookupKeyID(kid)
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		var pub rsa.PublicKey
		if err := key.Raw(&pub); err != nil {
			return nil, fmt.Errorf("materialize jwk: %w", err)
		}
		return &pub, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	return claims, nil
}
