package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/werkschau/server/internal/apperror"
)

// mysqlDuplicateEntry is the MariaDB error number for unique key violations.
const mysqlDuplicateEntry = 1062

// Repository defines the data access contract for viewers, pending
// registrations, sessions, and reset records. All SQL lives in the concrete
// implementation -- no SQL leaks out.
type Repository interface {
	// Viewers.
	CreateViewerWithPending(ctx context.Context, viewer *Viewer, pending *PendingRegistration) error
	FindViewerByEmail(ctx context.Context, email string) (*Viewer, error)
	FindViewerByID(ctx context.Context, id string) (*Viewer, error)
	UpdateLastLogin(ctx context.Context, viewerID string) error

	// Registration verification.
	FindPendingByEmail(ctx context.Context, email string) (*PendingRegistration, error)
	ActivateViewer(ctx context.Context, viewerID, pendingID string) error

	// Sessions.
	CreateSession(ctx context.Context, session *Session) error
	FindSessionByID(ctx context.Context, id string) (*Session, error)
	DeleteSessionsForViewer(ctx context.Context, viewerID string) (int64, error)

	// Password reset.
	ReplaceResetRequest(ctx context.Context, reset *PasswordReset) error
	FindResetByViewer(ctx context.Context, viewerID string) (*PasswordReset, error)
	ConsumeReset(ctx context.Context, viewerID, resetID, newHash, newSalt string) error
}

// repository implements Repository with hand-written MariaDB queries.
type repository struct {
	db *sql.DB
}

// NewRepository creates a new auth repository backed by the given DB pool.
func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const viewerColumns = `id, email, first_name, last_name, hashed, salt,
	                 verified, is_admin, created_at, updated_at, last_login`

// scanViewer reads a full viewer row.
func scanViewer(row *sql.Row) (*Viewer, error) {
	v := &Viewer{}
	err := row.Scan(
		&v.ID,
		&v.Email,
		&v.FirstName,
		&v.LastName,
		&v.Hashed,
		&v.Salt,
		&v.Verified,
		&v.IsAdmin,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.LastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("viewer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning viewer row: %w", err)
	}
	return v, nil
}

// CreateViewerWithPending inserts the viewer and its pending registration in
// a single transaction: either both rows exist afterwards or neither does.
// Returns apperror.Conflict if the email is already taken.
func (r *repository) CreateViewerWithPending(ctx context.Context, viewer *Viewer, pending *PendingRegistration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning pre-register tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO viewers (id, email, first_name, last_name, hashed, salt, verified, is_admin)
	     VALUES (?, ?, ?, ?, ?, ?, FALSE, FALSE)`,
		viewer.ID, viewer.Email, viewer.FirstName, viewer.LastName, viewer.Hashed, viewer.Salt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return apperror.NewConflict("Viewer with that email already exists")
		}
		return fmt.Errorf("inserting viewer: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO pre_registered (id, viewer_id, verification_code_hashed, salt, was_used, expires_at)
	     VALUES (?, ?, ?, ?, FALSE, ?)`,
		pending.ID, pending.ViewerID, pending.CodeHash, pending.Salt, pending.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting pending registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing pre-register tx: %w", err)
	}
	return nil
}

// FindViewerByEmail retrieves a viewer by email. Emails are stored
// lowercase; callers normalize before lookup.
// Returns apperror.NotFound if no viewer exists with this email.
func (r *repository) FindViewerByEmail(ctx context.Context, email string) (*Viewer, error) {
	query := `SELECT ` + viewerColumns + ` FROM viewers WHERE email = ?`
	return scanViewer(r.db.QueryRowContext(ctx, query, email))
}

// FindViewerByID retrieves a viewer by id.
// Returns apperror.NotFound if no viewer exists with this id.
func (r *repository) FindViewerByID(ctx context.Context, id string) (*Viewer, error) {
	query := `SELECT ` + viewerColumns + ` FROM viewers WHERE id = ?`
	return scanViewer(r.db.QueryRowContext(ctx, query, id))
}

// UpdateLastLogin sets the last_login timestamp to now for the given viewer.
func (r *repository) UpdateLastLogin(ctx context.Context, viewerID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE viewers SET last_login = NOW() WHERE id = ?`, viewerID)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// FindPendingByEmail retrieves the pending registration for the viewer with
// the given email. Returns apperror.NotFound when neither the viewer nor a
// pending row exists -- the two cases are indistinguishable to the caller
// on purpose.
func (r *repository) FindPendingByEmail(ctx context.Context, email string) (*PendingRegistration, error) {
	query := `SELECT p.id, p.viewer_id, p.verification_code_hashed, p.salt, p.was_used, p.created_at, p.expires_at
	          FROM pre_registered p
	          JOIN viewers v ON v.id = p.viewer_id
	          WHERE v.email = ?`

	p := &PendingRegistration{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&p.ID, &p.ViewerID, &p.CodeHash, &p.Salt, &p.WasUsed, &p.CreatedAt, &p.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Verification failed: No matching record found.")
	}
	if err != nil {
		return nil, fmt.Errorf("querying pending registration: %w", err)
	}
	return p, nil
}

// ActivateViewer marks the viewer verified and the pending registration
// consumed in one transaction, so a crash cannot leave a verified viewer
// with a still-live verification code.
func (r *repository) ActivateViewer(ctx context.Context, viewerID, pendingID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning activation tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE viewers SET verified = TRUE WHERE id = ?`, viewerID); err != nil {
		return fmt.Errorf("marking viewer verified: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE pre_registered SET was_used = TRUE WHERE id = ?`, pendingID); err != nil {
		return fmt.Errorf("marking verification code used: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing activation tx: %w", err)
	}
	return nil
}

// CreateSession inserts a new session row. Existing sessions for the viewer
// are left untouched -- multiple concurrent sessions are allowed.
func (r *repository) CreateSession(ctx context.Context, session *Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (id, viewer_id, hashed_session_token, salt, expires_at)
	     VALUES (?, ?, ?, ?, ?)`,
		session.ID, session.ViewerID, session.HashedToken, session.Salt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// FindSessionByID retrieves a session row by its opaque lookup key.
// Returns apperror.NotFound if no session exists with this id.
func (r *repository) FindSessionByID(ctx context.Context, id string) (*Session, error) {
	query := `SELECT id, viewer_id, hashed_session_token, salt, created_at, expires_at
	          FROM user_sessions WHERE id = ?`

	s := &Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.ViewerID, &s.HashedToken, &s.Salt, &s.CreatedAt, &s.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

// DeleteSessionsForViewer removes every session row for the viewer (all
// devices at once) and reports how many were deleted.
func (r *repository) DeleteSessionsForViewer(ctx context.Context, viewerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_sessions WHERE viewer_id = ?`, viewerID)
	if err != nil {
		return 0, fmt.Errorf("deleting sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted sessions: %w", err)
	}
	return n, nil
}

// ReplaceResetRequest deletes every existing reset record for the viewer and
// inserts the new one in a single transaction. This is what makes an older,
// already-delivered reset link permanently invalid the moment a new request
// is made.
func (r *repository) ReplaceResetRequest(ctx context.Context, reset *PasswordReset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset-replace tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM reset_password WHERE viewer_id = ?`, reset.ViewerID); err != nil {
		return fmt.Errorf("deleting prior reset requests: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reset_password (id, viewer_id, hashed_reset_password_token, salt, was_used, expires_at)
	     VALUES (?, ?, ?, ?, FALSE, ?)`,
		reset.ID, reset.ViewerID, reset.TokenHash, reset.Salt, reset.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting reset request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset-replace tx: %w", err)
	}
	return nil
}

// FindResetByViewer retrieves the reset record for a viewer.
// Returns apperror.NotFound if none exists.
func (r *repository) FindResetByViewer(ctx context.Context, viewerID string) (*PasswordReset, error) {
	query := `SELECT id, viewer_id, hashed_reset_password_token, salt, was_used, created_at, expires_at
	          FROM reset_password WHERE viewer_id = ?`

	p := &PasswordReset{}
	err := r.db.QueryRowContext(ctx, query, viewerID).Scan(
		&p.ID, &p.ViewerID, &p.TokenHash, &p.Salt, &p.WasUsed, &p.CreatedAt, &p.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Passwort Reset failed: No matching record found.")
	}
	if err != nil {
		return nil, fmt.Errorf("querying reset request: %w", err)
	}
	return p, nil
}

// ConsumeReset applies the new password digest to the viewer, bumps
// updated_at, and marks the reset record used -- all in one transaction.
// The password update commits together with the used flag, so a failed
// update can never burn the token.
func (r *repository) ConsumeReset(ctx context.Context, viewerID, resetID, newHash, newSalt string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning reset-consume tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE viewers SET hashed = ?, salt = ?, updated_at = NOW() WHERE id = ?`,
		newHash, newSalt, viewerID); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE reset_password SET was_used = TRUE WHERE id = ?`, resetID); err != nil {
		return fmt.Errorf("marking reset token used: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing reset-consume tx: %w", err)
	}
	return nil
}
