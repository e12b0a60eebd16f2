package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/werkschau/server/internal/apperror"
)

// contextKeyViewer is the Echo context key holding the AuthenticatedViewer.
// Other plugins access it via the exported getter below.
const contextKeyViewer = "auth_viewer"

// RequireSession returns middleware that validates the session cookie pair
// and injects the AuthenticatedViewer into the request context. Requests
// without a valid pair are rejected with 401.
func RequireSession(service Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			creds, ok := ExtractCredentials(c.Request().Header.Get("Cookie"))
			if !ok {
				return apperror.NewUnauthorized(sessionFailure)
			}

			viewer, err := service.ValidateSession(c.Request().Context(), creds)
			if err != nil {
				return err
			}

			c.Set(contextKeyViewer, viewer)
			return next(c)
		}
	}
}

// RequireAdmin returns middleware that allows the request through only when
// the authenticated viewer carries the admin flag. Must be registered after
// RequireSession. Every privileged write (reference data, profile
// acceptance, profile deletion) composes these two.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			viewer := GetAuthenticatedViewer(c)
			if viewer == nil {
				return apperror.NewUnauthorized(sessionFailure)
			}
			if !viewer.IsAdmin {
				return apperror.NewForbidden("Admin privileges required.")
			}
			return next(c)
		}
	}
}

// GetAuthenticatedViewer retrieves the authenticated viewer from the Echo
// context. Returns nil if RequireSession did not run on this request.
func GetAuthenticatedViewer(c echo.Context) *AuthenticatedViewer {
	viewer, ok := c.Get(contextKeyViewer).(*AuthenticatedViewer)
	if !ok {
		return nil
	}
	return viewer
}
