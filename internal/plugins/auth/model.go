// Package auth owns the credential and session lifecycle: pre-registration
// and email verification, login/logout with a two-cookie session pair,
// password reset, and the admin check every privileged request passes
// through. All secrets are stored as salted SHA-256 digests; the plaintext
// values travel out of band (email link or cookie) and are never persisted.
package auth

import (
	"time"
)

// Viewer is an account in the directory. This is the domain model used
// throughout the application; database scanning and JSON marshaling use
// this struct directly.
type Viewer struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Hashed    string     `json:"-"` // Never expose in JSON responses.
	Salt      string     `json:"-"` // Never expose.
	Verified  bool       `json:"verified"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// PendingRegistration is the single-use verification record created next to
// an unverified Viewer. Once WasUsed is set the record is terminal: it must
// never satisfy verification again.
type PendingRegistration struct {
	ID        string
	ViewerID  string
	CodeHash  string
	Salt      string
	WasUsed   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Session binds the opaque client-facing session id to the salted digest of
// the session token. A viewer may hold any number of concurrent sessions;
// logout removes them all.
type Session struct {
	ID          string
	ViewerID    string
	HashedToken string
	Salt        string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// PasswordReset is the single-use reset record for a viewer. At most one
// live record exists per viewer: issuing a new one deletes all others first.
type PasswordReset struct {
	ID        string
	ViewerID  string
	TokenHash string
	Salt      string
	WasUsed   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AuthenticatedViewer is the request-scoped result of session verification.
// Never persisted; produced by ValidateSession and consumed by handlers and
// the admin gate.
type AuthenticatedViewer struct {
	ViewerID string
	IsAdmin  bool
}

// SessionCredentials is the cookie-carried credential pair: the session id
// is the lookup key, the session token is the secret. Both must be present
// and mutually consistent.
type SessionCredentials struct {
	SessionID    string
	SessionToken string
}

// --- Request DTOs (bound from HTTP requests) ---

// PreRegisterRequest holds the data submitted to POST /api/pre-register.
type PreRegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

// RegisterRequest holds the data submitted to POST /api/register.
type RegisterRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

// LoginRequest holds the data submitted to POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PreResetPasswordRequest holds the data submitted to POST /api/pre-reset-password.
type PreResetPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest holds the data submitted to POST /api/reset-password.
type ResetPasswordRequest struct {
	Email              string `json:"email"`
	ResetPasswordToken string `json:"reset_password_token"`
	Password           string `json:"password"`
}

// --- Service input/output DTOs ---

// PreRegisterInput is the validated input for creating a new viewer.
type PreRegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// IssuedSession carries the two plaintext values a client must present
// together on later requests. Returned by Login (and Register, which logs
// the viewer in on successful verification) for the handler to set as
// cookies; never stored.
type IssuedSession struct {
	SessionID    string
	SessionToken string
	Viewer       *Viewer
}
