package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/pkg/database"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

func newRecordRepoMock(t *testing.T) (*RecordRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewRecordRepository(sqlxDB), mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestRecordRepositoryListAllRebindsForPostgres(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"collection", "id", "body", "created_at", "updated_at"}).
		AddRow("students", "a1", `{"id":"a1","name":"Ann Lee"}`, now, now)
	mock.ExpectQuery(`SELECT collection, id, body, created_at, updated_at\s+FROM records WHERE collection = \$1`).
		WithArgs("students").
		WillReturnRows(rows)

	result, err := repo.ListAll(context.Background(), "students")
	require.NoError(t, err)
	require.Len(t, result, 1)
	rec, err := result[0].Decode()
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", rec["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositoryFindByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT collection, id, body").
		WithArgs("students", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"collection", "id", "body", "created_at", "updated_at"}))

	_, err := repo.FindByID(context.Background(), "students", "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRecordRepositoryUpdateMissingRow(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE records SET body = \$1, updated_at = \$2 WHERE collection = \$3 AND id = \$4`).
		WithArgs(`{}`, sqlmock.AnyArg(), "students", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.StoredRecord{Collection: "students", ID: "ghost", Body: `{}`, UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRecordRepositoryDelete(t *testing.T) {
	repo, mock, cleanup := newRecordRepoMock(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM records").
		WithArgs("courses", "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "courses", "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRepositorySQLiteRoundTrip(t *testing.T) {
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	repo := NewRecordRepository(db)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migration is idempotent")

	now := time.Date(2024, time.June, 15, 8, 0, 0, 0, time.UTC)
	first, err := models.NewStoredRecord("students", "s1", models.Record{"name": "Ann Lee", "gpa": 3.7}, now)
	require.NoError(t, err)
	second, err := models.NewStoredRecord("students", "s2", models.Record{"name": "Bob Stone"}, now.Add(time.Minute))
	require.NoError(t, err)
	other, err := models.NewStoredRecord("courses", "c1", models.Record{"code": "CS101"}, now)
	require.NoError(t, err)
	for _, rec := range []models.StoredRecord{second, first, other} {
		rec := rec
		require.NoError(t, repo.Insert(ctx, &rec))
	}

	rows, err := repo.ListAll(ctx, "students")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "s1", rows[0].ID)
	assert.Equal(t, "s2", rows[1].ID)

	first.Body = `{"id":"s1","name":"Ann Leigh"}`
	first.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, repo.Update(ctx, &first))
	got, err := repo.FindByID(ctx, "students", "s1")
	require.NoError(t, err)
	rec, err := got.Decode()
	require.NoError(t, err)
	assert.Equal(t, "Ann Leigh", rec["name"])

	require.NoError(t, repo.Delete(ctx, "students", "s1"))
	assert.ErrorIs(t, repo.Delete(ctx, "students", "s1"), appErrors.ErrNotFound)
	require.NoError(t, repo.Ping(ctx))
}
