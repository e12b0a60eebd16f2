package directory

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/werkschau/server/internal/apperror"
	"github.com/werkschau/server/internal/plugins/auth"
)

// Handler handles HTTP requests for profiles and reference data.
type Handler struct {
	service Service
}

// NewHandler creates a new directory handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CreateProfile stores the authenticated viewer's profile
// (POST /api/profile).
func (h *Handler) CreateProfile(c echo.Context) error {
	viewer := auth.GetAuthenticatedViewer(c)
	if viewer == nil {
		return apperror.NewUnauthorized("Unauthorized - invalid session credentials.")
	}

	var req CreateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	profile, err := h.service.CreateProfile(c.Request().Context(), viewer.ViewerID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"profile": profile},
	})
}

// ListProfiles returns all accepted profiles (GET /api/profiles).
func (h *Handler) ListProfiles(c echo.Context) error {
	profiles, err := h.service.ListAcceptedProfiles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"profiles": profiles},
	})
}

// AcceptProfile marks a profile as publicly visible
// (POST /api/profile/accept/:id, admin only).
func (h *Handler) AcceptProfile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return apperror.NewBadRequest("profile id is required")
	}
	if err := h.service.AcceptProfile(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   "Profile accepted.",
	})
}

// DeleteProfile removes a profile (DELETE /api/profile/:id, admin only).
func (h *Handler) DeleteProfile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return apperror.NewBadRequest("profile id is required")
	}
	if err := h.service.DeleteProfile(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   "Profile deleted.",
	})
}

// ListCrafts returns all crafts (GET /api/crafts).
func (h *Handler) ListCrafts(c echo.Context) error {
	crafts, err := h.service.ListCrafts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"crafts": crafts},
	})
}

// CreateCraft adds a craft (POST /api/crafts, admin only).
func (h *Handler) CreateCraft(c echo.Context) error {
	var req NameRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	craft, err := h.service.CreateCraft(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"craft": craft},
	})
}

// UpdateCraft renames a craft (PUT /api/crafts, admin only).
func (h *Handler) UpdateCraft(c echo.Context) error {
	var req NameRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := h.service.UpdateCraft(c.Request().Context(), req.ID, req.Name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   "Craft updated.",
	})
}

// ListSkills returns all skills (GET /api/skills).
func (h *Handler) ListSkills(c echo.Context) error {
	skills, err := h.service.ListSkills(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"skills": skills},
	})
}

// CreateSkill adds a skill (POST /api/skills, admin only).
func (h *Handler) CreateSkill(c echo.Context) error {
	var req NameRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	skill, err := h.service.CreateSkill(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"skill": skill},
	})
}

// UpdateSkill renames a skill (PUT /api/skills, admin only).
func (h *Handler) UpdateSkill(c echo.Context) error {
	var req NameRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := h.service.UpdateSkill(c.Request().Context(), req.ID, req.Name); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   "Skill updated.",
	})
}
