package auth

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/werkschau/server/internal/apperror"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewRepository(db), mock, func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	}
}

func viewerRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "first_name", "last_name", "hashed", "salt",
		"verified", "is_admin", "created_at", "updated_at", "last_login",
	})
}

func TestCreateViewerWithPending(t *testing.T) {
	viewer := &Viewer{
		ID:        "viewer-1",
		Email:     "anna@example.com",
		FirstName: "Anna",
		LastName:  "Schmidt",
		Hashed:    "digest",
		Salt:      "salt-1",
	}
	pending := &PendingRegistration{
		ID:        "pending-1",
		ViewerID:  "viewer-1",
		CodeHash:  "code-digest",
		Salt:      "salt-2",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	t.Run("commits both inserts", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO viewers").
			WithArgs(viewer.ID, viewer.Email, viewer.FirstName, viewer.LastName, viewer.Hashed, viewer.Salt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO pre_registered").
			WithArgs(pending.ID, pending.ViewerID, pending.CodeHash, pending.Salt, pending.ExpiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.CreateViewerWithPending(context.Background(), viewer, pending)
		require.NoError(t, err)
	})

	t.Run("duplicate email rolls back and reads as conflict", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO viewers").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		mock.ExpectRollback()

		err := repo.CreateViewerWithPending(context.Background(), viewer, pending)
		require.Error(t, err)
		appErr, ok := err.(*apperror.AppError)
		require.True(t, ok)
		assert.Equal(t, http.StatusConflict, appErr.Code)
		assert.Equal(t, "Viewer with that email already exists", appErr.Message)
	})

	t.Run("pending insert failure rolls back the viewer too", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO viewers").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO pre_registered").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := repo.CreateViewerWithPending(context.Background(), viewer, pending)
		require.Error(t, err)
	})
}

func TestFindViewerByEmail(t *testing.T) {
	t.Run("scans the full row", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		now := time.Now()
		mock.ExpectQuery("SELECT (.+) FROM viewers WHERE email").
			WithArgs("anna@example.com").
			WillReturnRows(viewerRows().AddRow(
				"viewer-1", "anna@example.com", "Anna", "Schmidt", "digest", "salt-1",
				true, false, now, now, nil,
			))

		viewer, err := repo.FindViewerByEmail(context.Background(), "anna@example.com")
		require.NoError(t, err)
		assert.Equal(t, "viewer-1", viewer.ID)
		assert.True(t, viewer.Verified)
		assert.Nil(t, viewer.LastLogin)
	})

	t.Run("no row reads as not found", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectQuery("SELECT (.+) FROM viewers WHERE email").
			WithArgs("nobody@example.com").
			WillReturnRows(viewerRows())

		_, err := repo.FindViewerByEmail(context.Background(), "nobody@example.com")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apperror.SafeCode(err))
	})
}

func TestFindPendingByEmail(t *testing.T) {
	t.Run("joins through the viewer email", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		now := time.Now()
		mock.ExpectQuery("FROM pre_registered p").
			WithArgs("anna@example.com").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "viewer_id", "verification_code_hashed", "salt", "was_used", "created_at", "expires_at",
			}).AddRow("pending-1", "viewer-1", "code-digest", "salt-2", false, now, now.Add(24*time.Hour)))

		pending, err := repo.FindPendingByEmail(context.Background(), "anna@example.com")
		require.NoError(t, err)
		assert.Equal(t, "viewer-1", pending.ViewerID)
		assert.False(t, pending.WasUsed)
	})

	t.Run("missing viewer and missing pending row are indistinguishable", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectQuery("FROM pre_registered p").
			WithArgs("nobody@example.com").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "viewer_id", "verification_code_hashed", "salt", "was_used", "created_at", "expires_at",
			}))

		_, err := repo.FindPendingByEmail(context.Background(), "nobody@example.com")
		require.Error(t, err)
		assert.Equal(t, "Verification failed: No matching record found.", apperror.SafeMessage(err))
	})
}

func TestActivateViewer(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE viewers SET verified").
		WithArgs("viewer-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE pre_registered SET was_used").
		WithArgs("pending-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ActivateViewer(context.Background(), "viewer-1", "pending-1")
	require.NoError(t, err)
}

func TestSessionQueries(t *testing.T) {
	t.Run("create inserts a single row", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		expires := time.Now().Add(168 * time.Hour)
		mock.ExpectExec("INSERT INTO user_sessions").
			WithArgs("session-1", "viewer-1", "token-digest", "salt-3", expires).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.CreateSession(context.Background(), &Session{
			ID:          "session-1",
			ViewerID:    "viewer-1",
			HashedToken: "token-digest",
			Salt:        "salt-3",
			ExpiresAt:   expires,
		})
		require.NoError(t, err)
	})

	t.Run("unknown session id reads as not found", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectQuery("FROM user_sessions WHERE id").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "viewer_id", "hashed_session_token", "salt", "created_at", "expires_at",
			}))

		_, err := repo.FindSessionByID(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apperror.SafeCode(err))
	})

	t.Run("delete removes every row for the viewer and reports the count", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectExec("DELETE FROM user_sessions WHERE viewer_id").
			WithArgs("viewer-1").
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := repo.DeleteSessionsForViewer(context.Background(), "viewer-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}

func TestReplaceResetRequest(t *testing.T) {
	reset := &PasswordReset{
		ID:        "reset-2",
		ViewerID:  "viewer-1",
		TokenHash: "token-digest",
		Salt:      "salt-4",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	t.Run("deletes prior records before inserting", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM reset_password WHERE viewer_id").
			WithArgs(reset.ViewerID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO reset_password").
			WithArgs(reset.ID, reset.ViewerID, reset.TokenHash, reset.Salt, reset.ExpiresAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.ReplaceResetRequest(context.Background(), reset)
		require.NoError(t, err)
	})

	t.Run("insert failure rolls the delete back", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM reset_password WHERE viewer_id").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO reset_password").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := repo.ReplaceResetRequest(context.Background(), reset)
		require.Error(t, err)
	})
}

func TestConsumeReset(t *testing.T) {
	t.Run("scopes the password update to the viewer", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE viewers SET hashed").
			WithArgs("new-digest", "new-salt", "viewer-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE reset_password SET was_used").
			WithArgs("reset-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.ConsumeReset(context.Background(), "viewer-1", "reset-1", "new-digest", "new-salt")
		require.NoError(t, err)
	})

	t.Run("used-flag failure rolls the password change back", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE viewers SET hashed").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE reset_password SET was_used").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := repo.ConsumeReset(context.Background(), "viewer-1", "reset-1", "new-digest", "new-salt")
		require.Error(t, err)
	})
}
