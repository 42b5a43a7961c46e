package track

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MetadataRepository defines the interface for track metadata persistence
// in the main database.
type MetadataRepository interface {
	Create(ctx context.Context, t *Track) error
	GetByID(ctx context.Context, id string) (*Track, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Track, error)
	ListAll(ctx context.Context) ([]Track, error)
	ListFileIDsByOwner(ctx context.Context, ownerID string) ([]string, error)
	AllFileIDs(ctx context.Context) (map[string]bool, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// SQLiteMetadataRepository implements MetadataRepository using SQLite.
type SQLiteMetadataRepository struct {
	db *sql.DB
}

// NewMetadataRepository creates a new SQLite-backed metadata repository.
func NewMetadataRepository(db *sql.DB) *SQLiteMetadataRepository {
	return &SQLiteMetadataRepository{db: db}
}

const trackColumns = "id, user_id, file_id, name, created_at, updated_at"

// Create inserts a track metadata row. The ID is generated if empty.
func (r *SQLiteMetadataRepository) Create(ctx context.Context, t *Track) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	t.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	t.UpdatedAt = t.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tracks (id, user_id, file_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.FileID, t.Name, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating track metadata: %w", err)
	}
	return nil
}

// GetByID retrieves track metadata by ID.
func (r *SQLiteMetadataRepository) GetByID(ctx context.Context, id string) (*Track, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+trackColumns+" FROM tracks WHERE id = ?", id)
	return scanTrack(row)
}

// ListByOwner returns all tracks owned by a user, newest first.
func (r *SQLiteMetadataRepository) ListByOwner(ctx context.Context, ownerID string) ([]Track, error) {
	return r.list(ctx,
		"SELECT "+trackColumns+" FROM tracks WHERE user_id = ? ORDER BY created_at DESC", ownerID)
}

// ListAll returns every track, newest first. Used by privileged listings.
func (r *SQLiteMetadataRepository) ListAll(ctx context.Context) ([]Track, error) {
	return r.list(ctx, "SELECT "+trackColumns+" FROM tracks ORDER BY created_at DESC")
}

// ListFileIDsByOwner returns the payload IDs for all of a user's tracks.
// Used for cascading cleanup of the file store on account deletion.
func (r *SQLiteMetadataRepository) ListFileIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT file_id FROM tracks WHERE user_id = ?", ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing file ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning file id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file ids: %w", err)
	}
	return ids, nil
}

// AllFileIDs returns the set of payload IDs referenced by any track.
// Used by the reconcile sweep to find orphaned payloads.
func (r *SQLiteMetadataRepository) AllFileIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT file_id FROM tracks")
	if err != nil {
		return nil, fmt.Errorf("listing all file ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning file id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file ids: %w", err)
	}
	return ids, nil
}

// Rename updates a track's name.
func (r *SQLiteMetadataRepository) Rename(ctx context.Context, id, name string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE tracks SET name = ?, updated_at = ? WHERE id = ?", name, now, id)
	if err != nil {
		return fmt.Errorf("renaming track: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTrackNotFound
	}
	return nil
}

// Delete removes a track metadata row.
func (r *SQLiteMetadataRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting track metadata: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrTrackNotFound
	}
	return nil
}

// list executes a query returning track rows.
func (r *SQLiteMetadataRepository) list(ctx context.Context, query string, args ...any) ([]Track, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	defer rows.Close()

	tracks := []Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tracks: %w", err)
	}
	return tracks, nil
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrack scans a track from any scanner (Row or Rows).
func scanTrack(s scanner) (*Track, error) {
	var t Track
	var createdAt, updatedAt string

	err := s.Scan(&t.ID, &t.OwnerID, &t.FileID, &t.Name, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("scanning track: %w", err)
	}

	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &t, nil
}
