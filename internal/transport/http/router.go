package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"vn.io.arda/directory/internal/transport/mw"
)

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler, guard *mw.Guard, limiter *mw.RateLimiter, allowOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     allowOrigins,
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowCredentials: true,
	}))

	// Health (no auth required)
	e.GET("/health", h.Health)

	users := e.Group("/api/v1/users")

	// Self-service signup: unauthenticated by contract, rate-limited.
	users.POST("/register", h.Register, limiter.Limit())

	// Directory listing requires a verified bearer token.
	authed := users.Group("")
	authed.Use(guard.Authenticate())
	authed.GET("", h.ListUsers)

	return e
}
