package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-records-console/internal/models"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

// recordsSchema is portable between PostgreSQL and SQLite.
const recordsSchema = `CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (collection, id)
)`

// RecordRepository persists JSON documents grouped by collection.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository. Queries are written with ?
// placeholders and rebound for the driver in use.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Migrate creates the records table when missing.
func (r *RecordRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, recordsSchema); err != nil {
		return fmt.Errorf("migrate records: %w", err)
	}
	return nil
}

// ListAll returns every document of collection in insertion order.
func (r *RecordRepository) ListAll(ctx context.Context, collection string) ([]models.StoredRecord, error) {
	query := r.db.Rebind(`SELECT collection, id, body, created_at, updated_at
FROM records WHERE collection = ? ORDER BY created_at ASC, id ASC`)
	var rows []models.StoredRecord
	if err := r.db.SelectContext(ctx, &rows, query, collection); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return rows, nil
}

// FindByID fetches one document.
func (r *RecordRepository) FindByID(ctx context.Context, collection, id string) (*models.StoredRecord, error) {
	query := r.db.Rebind(`SELECT collection, id, body, created_at, updated_at
FROM records WHERE collection = ? AND id = ?`)
	var row models.StoredRecord
	if err := r.db.GetContext(ctx, &row, query, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s/%s not found", collection, id))
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return &row, nil
}

// Insert stores a new document.
func (r *RecordRepository) Insert(ctx context.Context, rec *models.StoredRecord) error {
	query := r.db.Rebind(`INSERT INTO records (collection, id, body, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, rec.Collection, rec.ID, rec.Body, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("insert %s/%s: %w", rec.Collection, rec.ID, err)
	}
	return nil
}

// Update replaces the body of an existing document.
func (r *RecordRepository) Update(ctx context.Context, rec *models.StoredRecord) error {
	query := r.db.Rebind(`UPDATE records SET body = ?, updated_at = ? WHERE collection = ? AND id = ?`)
	res, err := r.db.ExecContext(ctx, query, rec.Body, rec.UpdatedAt, rec.Collection, rec.ID)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", rec.Collection, rec.ID, err)
	}
	return affectedOne(res, rec.Collection, rec.ID)
}

// Delete removes one document.
func (r *RecordRepository) Delete(ctx context.Context, collection, id string) error {
	query := r.db.Rebind(`DELETE FROM records WHERE collection = ? AND id = ?`)
	res, err := r.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return affectedOne(res, collection, id)
}

// Ping checks the database connection for readiness probes.
func (r *RecordRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}

func affectedOne(res sql.Result, collection, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s/%s not found", collection, id))
	}
	return nil
}
