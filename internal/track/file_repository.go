package track

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileRepository defines the interface for track payload persistence in the
// file store database.
type FileRepository interface {
	Create(ctx context.Context, f *File) error
	GetByID(ctx context.Context, id string) (*File, error)
	Delete(ctx context.Context, id string) error
	ListIDsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

// SQLiteFileRepository implements FileRepository using SQLite.
type SQLiteFileRepository struct {
	db *sql.DB
}

// NewFileRepository creates a new SQLite-backed file repository.
func NewFileRepository(db *sql.DB) *SQLiteFileRepository {
	return &SQLiteFileRepository{db: db}
}

// Create inserts a payload row. The ID is generated if empty.
func (r *SQLiteFileRepository) Create(ctx context.Context, f *File) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	now := time.Now().UTC().Format(time.RFC3339)
	f.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO track_files (id, file_name, file_data, created_at) VALUES (?, ?, ?, ?)`,
		f.ID, f.Name, f.Data, now,
	)
	if err != nil {
		return fmt.Errorf("creating track file: %w", err)
	}
	return nil
}

// GetByID retrieves a payload by ID.
func (r *SQLiteFileRepository) GetByID(ctx context.Context, id string) (*File, error) {
	var f File
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, file_name, file_data, created_at FROM track_files WHERE id = ?", id,
	).Scan(&f.ID, &f.Name, &f.Data, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("scanning track file: %w", err)
	}

	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &f, nil
}

// Delete removes a payload row. Deleting an absent row is not an error:
// compensation and reconcile paths must be idempotent.
func (r *SQLiteFileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM track_files WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting track file: %w", err)
	}
	return nil
}

// ListIDsOlderThan returns payload IDs created before the cutoff.
// The reconcile sweep intersects these with the metadata references; the age
// grace keeps in-flight saga writes out of the orphan set.
func (r *SQLiteFileRepository) ListIDsOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM track_files WHERE created_at < ?",
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("listing track files: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning track file id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating track files: %w", err)
	}
	return ids, nil
}
