package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werkschau/server/internal/apperror"
	"github.com/werkschau/server/internal/config"
)

// mockService implements Service with per-method function fields.
type mockService struct {
	preRegisterFn      func(ctx context.Context, input PreRegisterInput) (*Viewer, error)
	registerFn         func(ctx context.Context, email, verificationCode string) (*IssuedSession, error)
	loginFn            func(ctx context.Context, email, password string) (*IssuedSession, error)
	logoutFn           func(ctx context.Context, viewerID string) (int64, error)
	preResetPasswordFn func(ctx context.Context, email string) error
	resetPasswordFn    func(ctx context.Context, email, resetToken, newPassword string) error
	validateSessionFn  func(ctx context.Context, creds SessionCredentials) (*AuthenticatedViewer, error)
	viewerByIDFn       func(ctx context.Context, viewerID string) (*Viewer, error)
	hasProfileFn       func(ctx context.Context, viewerID string) (bool, error)
}

func (m *mockService) PreRegister(ctx context.Context, input PreRegisterInput) (*Viewer, error) {
	return m.preRegisterFn(ctx, input)
}

func (m *mockService) Register(ctx context.Context, email, code string) (*IssuedSession, error) {
	return m.registerFn(ctx, email, code)
}

func (m *mockService) Login(ctx context.Context, email, password string) (*IssuedSession, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockService) Logout(ctx context.Context, viewerID string) (int64, error) {
	return m.logoutFn(ctx, viewerID)
}

func (m *mockService) PreResetPassword(ctx context.Context, email string) error {
	return m.preResetPasswordFn(ctx, email)
}

func (m *mockService) ResetPassword(ctx context.Context, email, token, password string) error {
	return m.resetPasswordFn(ctx, email, token, password)
}

func (m *mockService) ValidateSession(ctx context.Context, creds SessionCredentials) (*AuthenticatedViewer, error) {
	return m.validateSessionFn(ctx, creds)
}

func (m *mockService) ViewerByID(ctx context.Context, viewerID string) (*Viewer, error) {
	return m.viewerByIDFn(ctx, viewerID)
}

func (m *mockService) HasProfile(ctx context.Context, viewerID string) (bool, error) {
	return m.hasProfileFn(ctx, viewerID)
}

// newEnvelopeEcho returns an Echo instance whose error handler maps
// AppErrors to their status codes, mirroring the application's handler.
func newEnvelopeEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		c.JSON(apperror.SafeCode(err), map[string]string{
			"status":  "fail",
			"message": apperror.SafeMessage(err),
		})
	}
	return e
}

func newTestHandler(service Service) *Handler {
	return NewHandler(service, config.AuthConfig{
		SessionTTL:    168 * time.Hour,
		SecureCookies: false,
	})
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginHandler(t *testing.T) {
	t.Run("success sets both cookies and the login envelope", func(t *testing.T) {
		service := &mockService{
			loginFn: func(ctx context.Context, email, password string) (*IssuedSession, error) {
				return &IssuedSession{
					SessionID:    "session-1",
					SessionToken: "token-1",
					Viewer:       &Viewer{ID: "viewer-1", Email: email},
				}, nil
			},
			hasProfileFn: func(ctx context.Context, viewerID string) (bool, error) {
				return true, nil
			},
		}
		h := newTestHandler(service)

		e := newEnvelopeEcho()
		req, rec := jsonRequest(http.MethodPost, "/api/login", `{"email":"anna@example.com","password":"secret123"}`)
		c := e.NewContext(req, rec)

		require.NoError(t, h.Login(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, "User logged in.", body["data"])
		assert.Equal(t, true, body["hasProfile"])

		cookies := rec.Result().Cookies()
		idCookie := cookieByName(cookies, CookieSessionID)
		tokenCookie := cookieByName(cookies, CookieSessionToken)
		require.NotNil(t, idCookie)
		require.NotNil(t, tokenCookie)

		assert.Equal(t, "session-1", idCookie.Value)
		assert.Equal(t, "token-1", tokenCookie.Value)
		for _, cookie := range []*http.Cookie{idCookie, tokenCookie} {
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, "/", cookie.Path)
			assert.Equal(t, int((168 * time.Hour).Seconds()), cookie.MaxAge)
		}
	})

	t.Run("missing fields are a bad request before the service is called", func(t *testing.T) {
		h := newTestHandler(&mockService{})

		e := newEnvelopeEcho()
		req, rec := jsonRequest(http.MethodPost, "/api/login", `{"email":"anna@example.com"}`)
		c := e.NewContext(req, rec)

		err := h.Login(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, apperror.SafeCode(err))
	})
}

func TestLogoutHandler(t *testing.T) {
	runLogout := func(t *testing.T, n int64) (*httptest.ResponseRecorder, map[string]any) {
		t.Helper()
		service := &mockService{
			logoutFn: func(ctx context.Context, viewerID string) (int64, error) {
				assert.Equal(t, "viewer-1", viewerID)
				return n, nil
			},
		}
		h := newTestHandler(service)

		e := newEnvelopeEcho()
		req := httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(contextKeyViewer, &AuthenticatedViewer{ViewerID: "viewer-1"})

		require.NoError(t, h.Logout(c))
		return rec, decodeBody(t, rec)
	}

	t.Run("success clears the cookies", func(t *testing.T) {
		rec, body := runLogout(t, 2)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, "Logged out successfully", body["message"])

		for _, name := range []string{CookieSessionID, CookieSessionToken} {
			cookie := cookieByName(rec.Result().Cookies(), name)
			require.NotNil(t, cookie)
			assert.Equal(t, -1, cookie.MaxAge)
			assert.Empty(t, cookie.Value)
		}
	})

	t.Run("no sessions to delete is a 200 fail envelope", func(t *testing.T) {
		rec, body := runLogout(t, 0)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "fail", body["status"])
		assert.Equal(t, "No session found", body["message"])
	})
}

func TestRequireSessionMiddleware(t *testing.T) {
	okHandler := func(c echo.Context) error {
		viewer := GetAuthenticatedViewer(c)
		require.NotNil(t, viewer)
		return c.String(http.StatusOK, viewer.ViewerID)
	}

	t.Run("valid cookie pair reaches the handler", func(t *testing.T) {
		service := &mockService{
			validateSessionFn: func(ctx context.Context, creds SessionCredentials) (*AuthenticatedViewer, error) {
				assert.Equal(t, "session-1", creds.SessionID)
				assert.Equal(t, "token-1", creds.SessionToken)
				return &AuthenticatedViewer{ViewerID: "viewer-1"}, nil
			},
		}

		e := newEnvelopeEcho()
		e.GET("/protected", okHandler, RequireSession(service))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Cookie", "session_id=session-1; session_token=token-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "viewer-1", rec.Body.String())
	})

	t.Run("missing cookies never reach the service", func(t *testing.T) {
		service := &mockService{
			validateSessionFn: func(ctx context.Context, creds SessionCredentials) (*AuthenticatedViewer, error) {
				t.Fatal("ValidateSession must not be called without a cookie pair")
				return nil, nil
			},
		}

		e := newEnvelopeEcho()
		e.GET("/protected", okHandler, RequireSession(service))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid pair is unauthorized", func(t *testing.T) {
		service := &mockService{
			validateSessionFn: func(ctx context.Context, creds SessionCredentials) (*AuthenticatedViewer, error) {
				return nil, apperror.NewUnauthorized(sessionFailure)
			},
		}

		e := newEnvelopeEcho()
		e.GET("/protected", okHandler, RequireSession(service))

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Cookie", "session_id=session-1; session_token=wrong")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdminMiddleware(t *testing.T) {
	newAdminEcho := func(viewer *AuthenticatedViewer) *echo.Echo {
		e := newEnvelopeEcho()
		inject := func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				if viewer != nil {
					c.Set(contextKeyViewer, viewer)
				}
				return next(c)
			}
		}
		e.GET("/admin-only", func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		}, inject, RequireAdmin())
		return e
	}

	t.Run("admin passes", func(t *testing.T) {
		e := newAdminEcho(&AuthenticatedViewer{ViewerID: "viewer-1", IsAdmin: true})

		req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		e := newAdminEcho(&AuthenticatedViewer{ViewerID: "viewer-1"})

		req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no session context is unauthorized", func(t *testing.T) {
		e := newAdminEcho(nil)

		req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
