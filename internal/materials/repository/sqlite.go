package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"materials-viewer/internal/materials/models"
)

// ============================================================
// SQLite Repository
// ============================================================

// ErrNotFound is returned for unknown file ids.
var ErrNotFound = errors.New("not found")

// UploadRecord is the metadata row kept per uploaded manifest.
type UploadRecord struct {
	ID               string
	OriginalFilename string
	SizeBytes        int64
	UploadedAt       string
}

type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init applies the schema migration.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (r *Repository) SaveUpload(ctx context.Context, rec UploadRecord) error {
	if rec.UploadedAt == "" {
		rec.UploadedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO uploads (id, original_filename, size_bytes, uploaded_at)
        VALUES (?, ?, ?, ?)
    `, rec.ID, rec.OriginalFilename, rec.SizeBytes, rec.UploadedAt)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return nil
}

func (r *Repository) GetUpload(ctx context.Context, id string) (*UploadRecord, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT id, original_filename, size_bytes, uploaded_at
        FROM uploads
        WHERE id = ?
    `, id)

	var rec UploadRecord
	if err := row.Scan(&rec.ID, &rec.OriginalFilename, &rec.SizeBytes, &rec.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// GetSummary returns the cached material groups for (file id, density),
// or ErrNotFound when no cache entry exists yet.
func (r *Repository) GetSummary(ctx context.Context, fileID string, density float64) ([]models.MaterialGroup, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT payload FROM summaries
        WHERE file_id = ? AND density = ?
    `, fileID, density)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var groups []models.MaterialGroup
	if err := json.Unmarshal(payload, &groups); err != nil {
		return nil, fmt.Errorf("decode cached summary: %w", err)
	}
	return groups, nil
}

func (r *Repository) SaveSummary(ctx context.Context, fileID string, density float64, groups []models.MaterialGroup) error {
	payload, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO summaries (file_id, density, payload)
        VALUES (?, ?, ?)
    `, fileID, density, payload)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// OpenSQLite opens the metadata database at the given path, creating the
// parent directory when needed.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
