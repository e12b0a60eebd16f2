package directory

import (
	"context"
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

func TestHasProfile(t *testing.T) {
	t.Run("true when a row exists", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("viewer-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		has, err := repo.HasProfile(context.Background(), "viewer-1")
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("false when no row exists", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("viewer-2").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		has, err := repo.HasProfile(context.Background(), "viewer-2")
		require.NoError(t, err)
		assert.False(t, has)
	})
}

func TestListAcceptedProfiles(t *testing.T) {
	repo, mock, done := newMockRepo(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery("FROM profiles WHERE accepted").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "viewer_id", "name", "craft", "location", "bio", "accepted", "created_at", "updated_at",
		}).
			AddRow("profile-2", "viewer-2", "Jonas", "Schmiedekunst", "Leipzig", "", true, now, now).
			AddRow("profile-1", "viewer-1", "Anna", "Tischlerei", "Berlin", "Möbel nach Maß.", true, now, now))

	profiles, err := repo.ListAcceptedProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "profile-2", profiles[0].ID)
	assert.True(t, profiles[1].Accepted)
}

func TestAcceptAndDeleteProfile(t *testing.T) {
	t.Run("accept flips the flag", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectExec("UPDATE profiles SET accepted").
			WithArgs("profile-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AcceptProfile(context.Background(), "profile-1"))
	})

	t.Run("accepting an unknown profile is not found", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectExec("UPDATE profiles SET accepted").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.AcceptProfile(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apperror.SafeCode(err))
	})

	t.Run("deleting an unknown profile is not found", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectExec("DELETE FROM profiles").
			WithArgs("missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.DeleteProfile(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apperror.SafeCode(err))
	})
}

func TestReferenceDataQueries(t *testing.T) {
	t.Run("duplicate craft name reads as conflict", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectExec("INSERT INTO crafts").
			WithArgs("craft-1", "Tischlerei").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

		err := repo.CreateCraft(context.Background(), &Craft{ID: "craft-1", Name: "Tischlerei"})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, apperror.SafeCode(err))
	})

	t.Run("updating an unknown skill is not found", func(t *testing.T) {
		repo, mock, done := newMockRepo(t)
		defer done()

		mock.ExpectExec("UPDATE skills SET name").
			WithArgs("Drechseln", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateSkill(context.Background(), &Skill{ID: "missing", Name: "Drechseln"})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apperror.SafeCode(err))
	})
}
