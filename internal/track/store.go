package track

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store coordinates the two repositories behind a single API.
//
// Metadata and payloads live in different databases, so there is no
// cross-store transaction. Creation follows a compensating-action ordering:
// the payload is written first, then the metadata; if the metadata write
// fails, the orphaned payload is deleted immediately. A crash between the
// two writes can still leave an orphan, which the Reconcile sweep removes.
type Store struct {
	meta   MetadataRepository
	files  FileRepository
	logger *slog.Logger
}

// NewStore creates a store over the metadata and file repositories.
func NewStore(meta MetadataRepository, files FileRepository, logger *slog.Logger) *Store {
	return &Store{meta: meta, files: files, logger: logger}
}

// Create encodes the notes to a MIDI payload and stores it with its
// metadata, owned by ownerID.
func (s *Store) Create(ctx context.Context, ownerID, name, instrument string, notes []NoteEvent) (*Track, error) {
	data, err := Encode(instrument, notes)
	if err != nil {
		return nil, err
	}

	// Payload first. If the metadata write below fails, compensate by
	// removing the payload so the stores stay consistent.
	file := &File{Name: name, Data: data}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("storing payload: %w", err)
	}

	t := &Track{
		OwnerID: ownerID,
		FileID:  file.ID,
		Name:    name,
	}
	if err := s.meta.Create(ctx, t); err != nil {
		if delErr := s.files.Delete(context.WithoutCancel(ctx), file.ID); delErr != nil {
			s.logger.Error("compensating payload delete failed — orphan left for reconcile",
				"file_id", file.ID, "error", delErr)
		}
		return nil, fmt.Errorf("storing metadata: %w", err)
	}

	return t, nil
}

// Get returns a track's metadata.
func (s *Store) Get(ctx context.Context, id string) (*Track, error) {
	return s.meta.GetByID(ctx, id)
}

// GetPayload returns the binary payload for a track.
func (s *Store) GetPayload(ctx context.Context, t *Track) (*File, error) {
	return s.files.GetByID(ctx, t.FileID)
}

// ListByOwner returns a user's tracks.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]Track, error) {
	return s.meta.ListByOwner(ctx, ownerID)
}

// ListAll returns every track.
func (s *Store) ListAll(ctx context.Context) ([]Track, error) {
	return s.meta.ListAll(ctx)
}

// Rename updates a track's name.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	return s.meta.Rename(ctx, id, name)
}

// Delete removes a track from both stores, metadata first. If the payload
// delete then fails, the orphan is picked up by the next reconcile sweep.
func (s *Store) Delete(ctx context.Context, t *Track) error {
	if err := s.meta.Delete(ctx, t.ID); err != nil {
		return err
	}
	if err := s.files.Delete(context.WithoutCancel(ctx), t.FileID); err != nil {
		s.logger.Error("payload delete failed — orphan left for reconcile",
			"file_id", t.FileID, "error", err)
	}
	return nil
}

// OwnerFileIDs returns the payload IDs of all tracks owned by a user.
// Callers deleting an account collect these before the cascading metadata
// delete, then pass them to DeleteFiles.
func (s *Store) OwnerFileIDs(ctx context.Context, ownerID string) ([]string, error) {
	return s.meta.ListFileIDsByOwner(ctx, ownerID)
}

// DeleteFiles removes payloads from the file store, best-effort. Failures
// are logged and left to the reconcile sweep.
func (s *Store) DeleteFiles(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.files.Delete(ctx, id); err != nil {
			s.logger.Error("payload delete failed — orphan left for reconcile",
				"file_id", id, "error", err)
		}
	}
}

// Reconcile removes orphaned payloads: file-store rows older than the grace
// window that no metadata row references. The grace keeps in-flight
// creations (payload written, metadata not yet) out of the orphan set.
// Returns the number of payloads removed.
func (s *Store) Reconcile(ctx context.Context, grace time.Duration) (int, error) {
	candidates, err := s.files.ListIDsOlderThan(ctx, time.Now().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("listing reconcile candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	referenced, err := s.meta.AllFileIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing referenced payloads: %w", err)
	}

	removed := 0
	for _, id := range candidates {
		if referenced[id] {
			continue
		}
		if err := s.files.Delete(ctx, id); err != nil {
			s.logger.Error("reconcile delete failed", "file_id", id, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("reconcile sweep removed orphaned payloads", "count", removed)
	}
	return removed, nil
}

// ReconcileLoop runs Reconcile periodically until the context is cancelled.
func (s *Store) ReconcileLoop(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx, grace); err != nil {
				s.logger.Error("reconcile sweep failed", "error", err)
			}
		}
	}
}
