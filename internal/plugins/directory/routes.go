package directory

import (
	"github.com/labstack/echo/v4"

	"github.com/werkschau/server/internal/plugins/auth"
)

// RegisterRoutes sets up all directory routes. Reads are public, profile
// creation needs a session, and everything that changes what the public
// sees needs the admin flag on top.
func RegisterRoutes(e *echo.Echo, h *Handler, authService auth.Service) {
	// Public reads.
	e.GET("/api/profiles", h.ListProfiles)
	e.GET("/api/crafts", h.ListCrafts)
	e.GET("/api/skills", h.ListSkills)

	// Session-holder routes.
	e.POST("/api/profile", h.CreateProfile, auth.RequireSession(authService))

	// Admin routes.
	admin := e.Group("/api", auth.RequireSession(authService), auth.RequireAdmin())
	admin.POST("/profile/accept/:id", h.AcceptProfile)
	admin.DELETE("/profile/:id", h.DeleteProfile)
	admin.POST("/crafts", h.CreateCraft)
	admin.PUT("/crafts", h.UpdateCraft)
	admin.POST("/skills", h.CreateSkill)
	admin.PUT("/skills", h.UpdateSkill)
}
