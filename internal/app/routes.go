package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/werkschau/server/internal/plugins/auth"
	"github.com/werkschau/server/internal/plugins/directory"
	"github.com/werkschau/server/internal/plugins/mailer"
)

// RegisterRoutes wires up all plugins and registers their routes. This is
// the single place where the dependency graph is assembled: the directory
// service doubles as the auth service's profile checker.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoints: /healthz for container orchestration,
	// /api/healthcheck for the frontend.
	e.GET("/healthz", a.healthz)
	e.GET("/api/healthcheck", a.healthz)

	mail := mailer.New(a.Config.SMTP, a.Config.BaseURL)

	directoryRepo := directory.NewRepository(a.DB)
	directoryService := directory.NewService(directoryRepo)

	authRepo := auth.NewRepository(a.DB)
	authService := auth.NewService(authRepo, mail, directoryService, a.Config.Auth)
	authHandler := auth.NewHandler(authService, a.Config.Auth)
	auth.RegisterRoutes(e, authHandler, authService, a.Redis)

	directoryHandler := directory.NewHandler(directoryService)
	directory.RegisterRoutes(e, directoryHandler, authService)
}

// healthz reports liveness, pinging MariaDB and Redis. A failed dependency
// turns the probe red so the orchestrator restarts or reroutes.
func (a *App) healthz(c echo.Context) error {
	ctx := c.Request().Context()

	if err := a.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "error", "message": "database unreachable",
		})
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "error", "message": "redis unreachable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
