package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gebworks/geb-core/internal/auth"
)

// handleDeleteUser removes a user account and all of its tracks.
// Developer-only (enforced by the route group).
//
// The cascade spans both databases: payload IDs are collected first, then the
// account delete cascades the metadata rows via foreign key, then the
// payloads are removed from the file store. A failure after the account
// delete leaves orphaned payloads for the reconcile sweep, never dangling
// metadata.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	caller, ok := s.resolveCaller(w, r)
	if !ok {
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user for delete failed", "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	fileIDs, err := s.trackStore.OwnerFileIDs(r.Context(), id)
	if err != nil {
		s.logger.Error("collect payload ids for delete failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	if err := s.userRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("delete user failed", "user_id", id, "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.trackStore.DeleteFiles(r.Context(), fileIDs)

	s.logger.Info("user deleted", "user_id", id, "deleted_by", caller.ID, "tracks", len(fileIDs))
	s.auditLog("delete", "user", id, caller.ID, map[string]any{
		"email":  user.Email,
		"tracks": len(fileIDs),
	})

	w.WriteHeader(http.StatusNoContent)
}
