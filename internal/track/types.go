package track

import (
	"errors"
	"time"
)

// Track is the metadata record for a stored composition. It lives in the
// main database and references the payload row in the file store by FileID.
// Every track has exactly one owner, set at creation and never reassigned.
type Track struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	FileID    string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// File is the binary payload record. It lives in the file store database,
// separate from the metadata.
type File struct {
	ID        string
	Name      string
	Data      []byte
	CreatedAt time.Time
}

// NoteEvent is a single note in a composition request.
type NoteEvent struct {
	// Note is a pitch name with octave, e.g. "C4", "F#3", "Bb5".
	Note string `json:"note"`
	// Time is the note onset in seconds from the start of the track.
	Time float64 `json:"time"`
	// Duration is the note length in seconds.
	Duration float64 `json:"duration"`
	// Velocity is the strike strength in 0..1. Defaults to 0.8 when zero.
	Velocity float64 `json:"velocity"`
}

// Sentinel errors for track operations.
var (
	ErrTrackNotFound = errors.New("track not found")
	ErrFileNotFound  = errors.New("track file not found")
	ErrBadInstrument = errors.New("unknown instrument name")
	ErrBadNote       = errors.New("invalid note name")
	ErrEmptyTrack    = errors.New("track has no notes")
	ErrTooManyNotes  = errors.New("too many notes")
)
