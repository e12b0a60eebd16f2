package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/werkschau/server/internal/apperror"
	"github.com/werkschau/server/internal/config"
)

// Handler handles HTTP requests for the credential and session lifecycle.
// Handlers are thin: they bind the request, call the service, and render
// the response envelope. No business logic lives here.
type Handler struct {
	service Service
	cfg     config.AuthConfig
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service Service, cfg config.AuthConfig) *Handler {
	return &Handler{service: service, cfg: cfg}
}

// PreRegister creates an unverified viewer and triggers the verification
// mail (POST /api/pre-register).
func (h *Handler) PreRegister(c echo.Context) error {
	var req PreRegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" || req.Password == "" {
		return apperror.NewBadRequest("email and password are required")
	}

	viewer, err := h.service.PreRegister(c.Request().Context(), PreRegisterInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"data":   map[string]any{"viewer": viewer},
	})
}

// Register verifies the emailed code, activates the viewer, and logs them
// in (POST /api/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" || req.VerificationCode == "" {
		return apperror.NewBadRequest("email and verification_code are required")
	}

	issued, err := h.service.Register(c.Request().Context(), req.Email, req.VerificationCode)
	if err != nil {
		return err
	}

	return h.respondLoggedIn(c, issued)
}

// Login authenticates a viewer and sets the session cookie pair
// (POST /api/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" || req.Password == "" {
		return apperror.NewBadRequest("email and password are required")
	}

	issued, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return h.respondLoggedIn(c, issued)
}

// respondLoggedIn sets the credential pair as cookies and writes the login
// success envelope. Shared by Login and Register.
func (h *Handler) respondLoggedIn(c echo.Context, issued *IssuedSession) error {
	h.setSessionCookies(c, issued.SessionID, issued.SessionToken)

	hasProfile, err := h.service.HasProfile(c.Request().Context(), issued.Viewer.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":     "success",
		"data":       "User logged in.",
		"hasProfile": hasProfile,
	})
}

// Logout deletes every session of the caller and clears the cookie pair
// (GET /api/auth/logout).
func (h *Handler) Logout(c echo.Context) error {
	viewer := GetAuthenticatedViewer(c)
	if viewer == nil {
		return apperror.NewUnauthorized(sessionFailure)
	}

	n, err := h.service.Logout(c.Request().Context(), viewer.ViewerID)

	// Clear the cookies regardless of what the delete did: the client's
	// copy of the credentials is worthless either way.
	h.clearSessionCookies(c)

	if err != nil {
		return err
	}
	if n == 0 {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "fail",
			"message": "No session found",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Logged out successfully",
	})
}

// PreResetPassword rotates the reset token for the viewer and triggers the
// reset mail (POST /api/pre-reset-password).
func (h *Handler) PreResetPassword(c echo.Context) error {
	var req PreResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" {
		return apperror.NewBadRequest("email is required")
	}

	if err := h.service.PreResetPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Zurücksetzungs E-Mail gesendet.",
	})
}

// ResetPassword consumes the reset token and updates the password
// (POST /api/reset-password).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if req.Email == "" || req.ResetPasswordToken == "" || req.Password == "" {
		return apperror.NewBadRequest("email, reset_password_token and password are required")
	}

	err := h.service.ResetPassword(c.Request().Context(), req.Email, req.ResetPasswordToken, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password reset.",
	})
}

// Status reports the authenticated caller's login state, email, and whether
// they have created a profile (GET /api/auth/status).
func (h *Handler) Status(c echo.Context) error {
	authViewer := GetAuthenticatedViewer(c)
	if authViewer == nil {
		return apperror.NewUnauthorized(sessionFailure)
	}

	viewer, err := h.service.ViewerByID(c.Request().Context(), authViewer.ViewerID)
	if err != nil {
		return err
	}

	hasProfile, err := h.service.HasProfile(c.Request().Context(), authViewer.ViewerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"isLoggedIn": true,
		"hasProfile": hasProfile,
		"email":      viewer.Email,
	})
}

// Admin reports whether the authenticated caller is an admin
// (GET /api/auth/admin).
func (h *Handler) Admin(c echo.Context) error {
	authViewer := GetAuthenticatedViewer(c)
	if authViewer == nil {
		return apperror.NewUnauthorized(sessionFailure)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"isLoggedIn": true,
		"is_admin":   authViewer.IsAdmin,
	})
}

// --- Cookie helpers ---

// setSessionCookies sets the credential pair on the response. Both cookies
// are HttpOnly and share the same attributes; Secure comes from config so
// plain-HTTP localhost still works in development.
func (h *Handler) setSessionCookies(c echo.Context, sessionID, sessionToken string) {
	maxAge := int(h.cfg.SessionTTL.Seconds())
	c.SetCookie(h.sessionCookie(CookieSessionToken, sessionToken, maxAge))
	c.SetCookie(h.sessionCookie(CookieSessionID, sessionID, maxAge))
}

// clearSessionCookies removes both cookies by setting MaxAge to -1.
func (h *Handler) clearSessionCookies(c echo.Context) {
	c.SetCookie(h.sessionCookie(CookieSessionToken, "", -1))
	c.SetCookie(h.sessionCookie(CookieSessionID, "", -1))
}

func (h *Handler) sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
}
