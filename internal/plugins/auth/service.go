package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/werkschau/server/internal/apperror"
	"github.com/werkschau/server/internal/config"
	"github.com/werkschau/server/internal/secrets"
	"github.com/werkschau/server/internal/token"
)

// Notifier delivers plaintext tokens out of band. Implemented by the mailer
// plugin; mocked in tests. The service never learns whether the mail was
// opened -- delivery errors are the only feedback.
type Notifier interface {
	SendVerificationLink(email, plaintextCode, recipientName string) error
	SendResetLink(email, plaintextToken, recipientName string) error
}

// ProfileChecker reports whether a viewer has created a directory profile.
// Implemented by the directory plugin; auth only needs the one predicate for
// the login and status responses.
type ProfileChecker interface {
	HasProfile(ctx context.Context, viewerID string) (bool, error)
}

// Service defines the business logic contract for the credential and
// session lifecycle. Handlers call these methods -- they never touch the
// repository directly.
type Service interface {
	PreRegister(ctx context.Context, input PreRegisterInput) (*Viewer, error)
	Register(ctx context.Context, email, verificationCode string) (*IssuedSession, error)
	Login(ctx context.Context, email, password string) (*IssuedSession, error)
	Logout(ctx context.Context, viewerID string) (int64, error)
	PreResetPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, resetToken, newPassword string) error
	ValidateSession(ctx context.Context, creds SessionCredentials) (*AuthenticatedViewer, error)
	ViewerByID(ctx context.Context, viewerID string) (*Viewer, error)
	HasProfile(ctx context.Context, viewerID string) (bool, error)
}

// service implements Service on the MariaDB-backed repository.
type service struct {
	repo     Repository
	notifier Notifier
	profiles ProfileChecker
	cfg      config.AuthConfig
}

// NewService creates the auth service with the given dependencies.
func NewService(repo Repository, notifier Notifier, profiles ProfileChecker, cfg config.AuthConfig) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
		profiles: profiles,
		cfg:      cfg,
	}
}

// normalizeEmail lowercases and trims an email address. Emails are stored
// and compared in this form everywhere.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PreRegister creates an unverified viewer together with its pending
// registration record and mails the plaintext verification code. The two
// inserts share a transaction: a duplicate email leaves no partial state.
func (s *service) PreRegister(ctx context.Context, input PreRegisterInput) (*Viewer, error) {
	now := time.Now().UTC()
	salt := secrets.NewSalt()

	viewer := &Viewer{
		ID:        uuid.NewString(),
		Email:     normalizeEmail(input.Email),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Hashed:    secrets.Hash(input.Password, salt),
		Salt:      salt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	code := token.Issue()
	pending := &PendingRegistration{
		ID:        uuid.NewString(),
		ViewerID:  viewer.ID,
		CodeHash:  code.Digest,
		Salt:      code.Salt,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.VerificationTTL),
	}

	if err := s.repo.CreateViewerWithPending(ctx, viewer, pending); err != nil {
		if _, ok := err.(*apperror.AppError); ok {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating viewer: %w", err))
	}

	if err := s.notifier.SendVerificationLink(viewer.Email, code.Plaintext, viewer.FirstName); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("sending verification mail: %w", err))
	}

	slog.Info("viewer pre-registered",
		slog.String("viewer_id", viewer.ID),
		slog.String("email", viewer.Email),
	)

	return viewer, nil
}

// Register verifies the emailed code and activates the viewer. On success
// the viewer is logged in immediately -- the verification link is the first
// thing a new viewer clicks, and bouncing them to the login form after it
// would be pointless.
func (s *service) Register(ctx context.Context, email, verificationCode string) (*IssuedSession, error) {
	pending, err := s.repo.FindPendingByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, asAppError(err, "looking up pending registration")
	}

	if time.Now().After(pending.ExpiresAt) {
		slog.Warn("verification code expired",
			slog.String("viewer_id", pending.ViewerID),
			slog.Time("expired_at", pending.ExpiresAt),
		)
		return nil, apperror.NewNotFound("Verification failed: No matching record found.")
	}

	if !token.Verify(verificationCode, pending.CodeHash, pending.Salt) {
		return nil, apperror.NewForbidden("Verification code does not match.")
	}

	if pending.WasUsed {
		return nil, apperror.NewConflict("Verification Token used already")
	}

	if err := s.repo.ActivateViewer(ctx, pending.ViewerID, pending.ID); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("activating viewer: %w", err))
	}

	slog.Info("viewer verified", slog.String("viewer_id", pending.ViewerID))

	return s.issueSession(ctx, pending.ViewerID)
}

// Login authenticates a viewer by email and password and issues a new
// session. Existing sessions for the viewer stay valid (multi-device).
func (s *service) Login(ctx context.Context, email, password string) (*IssuedSession, error) {
	viewer, err := s.repo.FindViewerByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, asAppError(err, "looking up viewer")
	}

	if !secrets.Verify(password, viewer.Salt, viewer.Hashed) {
		slog.Warn("login failed: password incorrect", slog.String("viewer_id", viewer.ID))
		return nil, apperror.NewForbidden("Password incorrect")
	}

	issued, err := s.issueSession(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("viewer logged in",
		slog.String("viewer_id", viewer.ID),
		slog.String("email", viewer.Email),
	)

	return issued, nil
}

// issueSession mints the session credential pair, persists the session row,
// and stamps last_login. Shared by Login and Register.
func (s *service) issueSession(ctx context.Context, viewerID string) (*IssuedSession, error) {
	sessionToken := token.Issue()
	now := time.Now().UTC()

	session := &Session{
		ID:          uuid.NewString(),
		ViewerID:    viewerID,
		HashedToken: sessionToken.Digest,
		Salt:        sessionToken.Salt,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.SessionTTL),
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	if err := s.repo.UpdateLastLogin(ctx, viewerID); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("updating last login: %w", err))
	}

	viewer, err := s.repo.FindViewerByID(ctx, viewerID)
	if err != nil {
		return nil, asAppError(err, "loading viewer after login")
	}

	return &IssuedSession{
		SessionID:    session.ID,
		SessionToken: sessionToken.Plaintext,
		Viewer:       viewer,
	}, nil
}

// Logout deletes every session row for the viewer, invalidating all devices
// at once. Returns the number of sessions removed; zero is not an error.
func (s *service) Logout(ctx context.Context, viewerID string) (int64, error) {
	n, err := s.repo.DeleteSessionsForViewer(ctx, viewerID)
	if err != nil {
		return 0, apperror.NewInternal(fmt.Errorf("deleting sessions: %w", err))
	}

	slog.Info("viewer logged out",
		slog.String("viewer_id", viewerID),
		slog.Int64("sessions_removed", n),
	)

	return n, nil
}

// PreResetPassword issues a fresh reset token for the viewer, superseding
// every earlier one, and mails the plaintext. At most one live reset token
// exists per viewer at any time.
func (s *service) PreResetPassword(ctx context.Context, email string) error {
	viewer, err := s.repo.FindViewerByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return asAppError(err, "looking up viewer for reset")
	}

	resetToken := token.Issue()
	now := time.Now().UTC()

	reset := &PasswordReset{
		ID:        uuid.NewString(),
		ViewerID:  viewer.ID,
		TokenHash: resetToken.Digest,
		Salt:      resetToken.Salt,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.ResetTTL),
	}

	if err := s.repo.ReplaceResetRequest(ctx, reset); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing reset request: %w", err))
	}

	if err := s.notifier.SendResetLink(viewer.Email, resetToken.Plaintext, viewer.FirstName); err != nil {
		return apperror.NewInternal(fmt.Errorf("sending reset mail: %w", err))
	}

	slog.Info("password reset requested", slog.String("viewer_id", viewer.ID))

	return nil
}

// ResetPassword consumes the reset token and applies the new password. The
// password update and the used flag commit in one transaction, so a failed
// update never burns the token and a successful one permanently disables it.
func (s *service) ResetPassword(ctx context.Context, email, resetToken, newPassword string) error {
	viewer, err := s.repo.FindViewerByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return asAppError(err, "looking up viewer for reset")
	}

	reset, err := s.repo.FindResetByViewer(ctx, viewer.ID)
	if err != nil {
		return asAppError(err, "looking up reset request")
	}

	if time.Now().After(reset.ExpiresAt) {
		slog.Warn("reset token expired",
			slog.String("viewer_id", viewer.ID),
			slog.Time("expired_at", reset.ExpiresAt),
		)
		return apperror.NewNotFound("Passwort Reset failed: No matching record found.")
	}

	if !token.Verify(resetToken, reset.TokenHash, reset.Salt) {
		return apperror.NewForbidden("Reset Password token does not match.")
	}

	if reset.WasUsed {
		return apperror.NewConflict("Reset Password token used already")
	}

	newSalt := secrets.NewSalt()
	newHash := secrets.Hash(newPassword, newSalt)

	if err := s.repo.ConsumeReset(ctx, viewer.ID, reset.ID, newHash, newSalt); err != nil {
		return apperror.NewInternal(fmt.Errorf("consuming reset token: %w", err))
	}

	slog.Info("password reset", slog.String("viewer_id", viewer.ID))

	return nil
}

// sessionFailure is the single client-visible message for every session
// verification failure. The distinct causes (missing cookie, unknown id,
// digest mismatch, expired, orphaned session) appear only in the log, so
// the response leaks nothing about which part of the credential pair was
// wrong.
const sessionFailure = "Unauthorized - invalid session credentials."

// ValidateSession resolves the cookie-carried credential pair to an
// AuthenticatedViewer. Pure verification: no side effects, no writes.
func (s *service) ValidateSession(ctx context.Context, creds SessionCredentials) (*AuthenticatedViewer, error) {
	if creds.SessionID == "" || creds.SessionToken == "" {
		slog.Warn("session rejected: missing credential")
		return nil, apperror.NewUnauthorized(sessionFailure)
	}

	if _, err := uuid.Parse(creds.SessionID); err != nil {
		slog.Warn("session rejected: session id is not a uuid")
		return nil, apperror.NewUnauthorized(sessionFailure)
	}

	session, err := s.repo.FindSessionByID(ctx, creds.SessionID)
	if err != nil {
		if _, ok := err.(*apperror.AppError); ok {
			slog.Warn("session rejected: no session with id", slog.String("session_id", creds.SessionID))
			return nil, apperror.NewUnauthorized(sessionFailure)
		}
		return nil, apperror.NewInternal(fmt.Errorf("querying session: %w", err))
	}

	if time.Now().After(session.ExpiresAt) {
		slog.Warn("session rejected: expired",
			slog.String("session_id", session.ID),
			slog.Time("expired_at", session.ExpiresAt),
		)
		return nil, apperror.NewUnauthorized(sessionFailure)
	}

	if !token.Verify(creds.SessionToken, session.HashedToken, session.Salt) {
		slog.Warn("session rejected: token does not match", slog.String("session_id", session.ID))
		return nil, apperror.NewUnauthorized(sessionFailure)
	}

	// Should not happen while referential integrity holds, but a session
	// whose viewer vanished must still be rejected.
	viewer, err := s.repo.FindViewerByID(ctx, session.ViewerID)
	if err != nil {
		if _, ok := err.(*apperror.AppError); ok {
			slog.Warn("session rejected: no viewer for session", slog.String("viewer_id", session.ViewerID))
			return nil, apperror.NewUnauthorized(sessionFailure)
		}
		return nil, apperror.NewInternal(fmt.Errorf("querying session viewer: %w", err))
	}

	return &AuthenticatedViewer{
		ViewerID: viewer.ID,
		IsAdmin:  viewer.IsAdmin,
	}, nil
}

// ViewerByID loads the full viewer record for an authenticated caller.
func (s *service) ViewerByID(ctx context.Context, viewerID string) (*Viewer, error) {
	viewer, err := s.repo.FindViewerByID(ctx, viewerID)
	if err != nil {
		return nil, asAppError(err, "loading viewer")
	}
	return viewer, nil
}

// HasProfile reports whether the viewer has created a directory profile.
func (s *service) HasProfile(ctx context.Context, viewerID string) (bool, error) {
	if s.profiles == nil {
		return false, nil
	}
	has, err := s.profiles.HasProfile(ctx, viewerID)
	if err != nil {
		return false, apperror.NewInternal(fmt.Errorf("checking profile: %w", err))
	}
	return has, nil
}

// asAppError passes AppErrors through untouched and wraps anything else as
// an internal error with context for the log.
func asAppError(err error, action string) error {
	if appErr, ok := err.(*apperror.AppError); ok {
		return appErr
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", action, err))
}
