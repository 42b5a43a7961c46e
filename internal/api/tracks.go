package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gebworks/geb-core/internal/auth"
	"github.com/gebworks/geb-core/internal/track"
)

// ─── Request/Response Types ────────────────────────────────────────

type createTrackRequest struct {
	Name       string            `json:"name"`
	Instrument string            `json:"instrument"`
	Notes      []track.NoteEvent `json:"notes"`
}

type renameTrackRequest struct {
	Name string `json:"name"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleCreateTrack encodes the submitted notes into a MIDI payload and
// stores it under the caller's account.
func (s *Server) handleCreateTrack(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}

	var req createTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if req.Instrument == "" {
		writeBadRequest(w, "instrument is required")
		return
	}

	t, err := s.trackStore.Create(r.Context(), caller.ID, req.Name, req.Instrument, req.Notes)
	if err != nil {
		if isEncodeError(err) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("create track failed", "user_id", caller.ID, "error", err)
		writeInternalError(w, "failed to create track")
		return
	}

	s.logger.Info("track created", "track_id", t.ID, "user_id", caller.ID)
	s.auditLog("create", "track", t.ID, caller.ID, map[string]any{
		"name":       t.Name,
		"instrument": req.Instrument,
		"notes":      len(req.Notes),
	})

	writeJSON(w, http.StatusCreated, t)
}

// handleListTracks returns the caller's tracks. Developers see every track.
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}

	var tracks []track.Track
	var err error
	if caller.Role == auth.RoleDeveloper {
		tracks, err = s.trackStore.ListAll(r.Context())
	} else {
		tracks, err = s.trackStore.ListByOwner(r.Context(), caller.ID)
	}
	if err != nil {
		s.logger.Error("list tracks failed", "user_id", caller.ID, "error", err)
		writeInternalError(w, "failed to list tracks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks": tracks,
		"count":  len(tracks),
	})
}

// handleDownloadTrack streams a track's MIDI payload.
func (s *Server) handleDownloadTrack(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTrack(w, r)
	if !ok {
		return
	}

	file, err := s.trackStore.GetPayload(r.Context(), t)
	if err != nil {
		if errors.Is(err, track.ErrFileNotFound) {
			// Metadata without payload: a reconcile-era inconsistency.
			s.logger.Error("track payload missing", "track_id", t.ID, "file_id", t.FileID)
			writeNotFound(w, "track not found")
			return
		}
		s.logger.Error("get track payload failed", "track_id", t.ID, "error", err)
		writeInternalError(w, "failed to download track")
		return
	}

	w.Header().Set("Content-Type", "audio/midi")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", t.Name+".mid"))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // best-effort write to response
	w.Write(file.Data)
}

// handleRenameTrack updates a track's name. Renames are owner-only — there
// is no role override here, unlike deletion.
func (s *Server) handleRenameTrack(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}
	t, ok := s.lookupTrack(w, r)
	if !ok {
		return
	}

	if !auth.UpdatePolicy.Allows(caller.ID, caller.Role, t.OwnerID) {
		writeForbidden(w, "insufficient permissions")
		return
	}

	var req renameTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	if err := s.trackStore.Rename(r.Context(), t.ID, req.Name); err != nil {
		if errors.Is(err, track.ErrTrackNotFound) {
			writeNotFound(w, "track not found")
			return
		}
		s.logger.Error("rename track failed", "track_id", t.ID, "error", err)
		writeInternalError(w, "failed to rename track")
		return
	}

	s.logger.Info("track renamed", "track_id", t.ID, "user_id", caller.ID)
	s.auditLog("rename", "track", t.ID, caller.ID, map[string]any{
		"old_name": t.Name,
		"new_name": req.Name,
	})

	t.Name = req.Name
	writeJSON(w, http.StatusOK, t)
}

// handleDeleteTrack removes a track. Owners may delete their own tracks;
// developers may delete any.
func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}
	t, ok := s.lookupTrack(w, r)
	if !ok {
		return
	}

	if !auth.DeletePolicy.Allows(caller.ID, caller.Role, t.OwnerID) {
		writeForbidden(w, "insufficient permissions")
		return
	}

	if err := s.trackStore.Delete(r.Context(), t); err != nil {
		if errors.Is(err, track.ErrTrackNotFound) {
			writeNotFound(w, "track not found")
			return
		}
		s.logger.Error("delete track failed", "track_id", t.ID, "error", err)
		writeInternalError(w, "failed to delete track")
		return
	}

	s.logger.Info("track deleted", "track_id", t.ID, "deleted_by", caller.ID)
	s.auditLog("delete", "track", t.ID, caller.ID, map[string]any{
		"name":     t.Name,
		"owner_id": t.OwnerID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ───────────────────────────────────────────────────────

// resolveCaller loads the authenticated user's account from the token
// subject. Writes the error response and returns false on failure.
func (s *Server) resolveCaller(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeUnauthorized(w, "not authenticated")
		return nil, false
	}

	user, err := s.userRepo.GetByEmail(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			// Valid token for a deleted account.
			writeUnauthorized(w, "invalid or expired token")
			return nil, false
		}
		s.logger.Error("caller lookup failed", "error", err)
		writeInternalError(w, "failed to resolve account")
		return nil, false
	}

	return user, true
}

// lookupTrack validates the {id} URL parameter and loads the track. Writes
// the error response and returns false on failure. A malformed ID is a 400,
// not a 404: it can never name an existing track.
func (s *Server) lookupTrack(w http.ResponseWriter, r *http.Request) (*track.Track, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeBadRequest(w, "invalid track id")
		return nil, false
	}

	t, err := s.trackStore.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, track.ErrTrackNotFound) {
			writeNotFound(w, "track not found")
			return nil, false
		}
		s.logger.Error("get track failed", "track_id", id, "error", err)
		writeInternalError(w, "failed to get track")
		return nil, false
	}

	return t, true
}

// isEncodeError reports whether the error came from note/instrument
// validation rather than storage.
func isEncodeError(err error) bool {
	return errors.Is(err, track.ErrBadInstrument) ||
		errors.Is(err, track.ErrBadNote) ||
		errors.Is(err, track.ErrEmptyTrack) ||
		errors.Is(err, track.ErrTooManyNotes)
}
