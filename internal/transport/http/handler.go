package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vn.io.arda/directory/internal/domain"
	"vn.io.arda/directory/internal/transport/mw"
)

// DirectoryService is what the handlers need from the application layer.
type DirectoryService interface {
	ListUsers(ctx context.Context, id domain.Identity, rawToken string) ([]domain.DirectoryUser, error)
	RegisterUser(ctx context.Context, reg domain.RegistrationRequest) error
}

// Handler holds all HTTP handler methods.
type Handler struct {
	svc DirectoryService
}

// NewHandler creates a new Handler.
func NewHandler(svc DirectoryService) *Handler {
	return &Handler{svc: svc}
}

// ListUsers GET /api/v1/users
func (h *Handler) ListUsers(c echo.Context) error {
	id, ok := c.Get(mw.ContextIdentity).(domain.Identity)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing identity")
	}
	raw, _ := c.Get(mw.ContextRawToken).(string)

	users, err := h.svc.ListUsers(c.Request().Context(), id, raw)
	if err != nil {
		return translateError(err)
	}
	if users == nil {
		users = []domain.DirectoryUser{}
	}
	return c.JSON(http.StatusOK, users)
}

// Register POST /api/v1/users/register
func (h *Handler) Register(c echo.Context) error {
	var reg domain.RegistrationRequest
	if err := c.Bind(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed registration payload")
	}
	if err := c.Validate(&reg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.svc.RegisterUser(c.Request().Context(), reg); err != nil {
		return translateError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "registered"})
}

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// translateError maps the domain error taxonomy onto HTTP responses.
// Upstream detail stays in the server logs; the only upstream text that
// reaches the caller is the UpstreamError diagnostic body.
func translateError(err error) error {
	var upstream *domain.UpstreamError

	switch {
	case errors.Is(err, domain.ErrUpstreamAuth):
		return echo.NewHTTPError(http.StatusBadGateway, "identity provider authentication failed")
	case errors.Is(err, domain.ErrUpstreamFetch):
		return echo.NewHTTPError(http.StatusBadGateway, "identity provider directory unavailable")
	case errors.Is(err, domain.ErrPermissionDenied):
		return echo.NewHTTPError(http.StatusForbidden, "service account is not allowed to create users")
	case errors.Is(err, domain.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	case errors.As(err, &upstream):
		return echo.NewHTTPError(http.StatusBadRequest, upstream.Body)
	default:
		log.Error().Err(err).Msg("unmapped gateway error")
		return echo.ErrInternalServerError
	}
}
