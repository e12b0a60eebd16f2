package auth

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/werkschau/server/internal/middleware"
)

// RegisterRoutes sets up all auth routes on the given Echo instance. The
// credential endpoints are public; the /api/auth group requires a valid
// session. RequireSession/RequireAdmin are exported separately for other
// plugins to use on their route groups.
//
// The public POST endpoints are rate-limited per IP to slow brute-force and
// enumeration: 10 login attempts per minute, 5 registrations, 5 reset
// requests.
func RegisterRoutes(e *echo.Echo, h *Handler, service Service, rdb *redis.Client) {
	// Public routes -- no session required.
	e.POST("/api/pre-register", h.PreRegister, middleware.RateLimit(rdb, "pre-register", 5, time.Minute))
	e.POST("/api/register", h.Register, middleware.RateLimit(rdb, "register", 10, time.Minute))
	e.POST("/api/login", h.Login, middleware.RateLimit(rdb, "login", 10, time.Minute))
	e.POST("/api/pre-reset-password", h.PreResetPassword, middleware.RateLimit(rdb, "pre-reset", 5, time.Minute))
	e.POST("/api/reset-password", h.ResetPassword, middleware.RateLimit(rdb, "reset", 10, time.Minute))

	// Session-holder routes.
	authGroup := e.Group("/api/auth", RequireSession(service))
	authGroup.GET("/status", h.Status)
	authGroup.GET("/admin", h.Admin)
	authGroup.GET("/logout", h.Logout)
}
