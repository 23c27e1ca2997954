package api

import (
	"net/http"

	"github.com/kmnkit/vietnamese-word-cards/internal/errors"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

func (s *Server) handleGetSync(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ProgressService.Snapshot(r.Context(), userFromContext(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePostSync(w http.ResponseWriter, r *http.Request) {
	var body models.SyncUpload
	if err := decodeJSON(w, r, &body); err != nil {
		handleError(w, r, err)
		return
	}
	if err := s.ProgressService.Upload(r.Context(), userFromContext(r.Context()), body); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePatchWords(w http.ResponseWriter, r *http.Request) {
	var body models.WordPatch
	if err := decodeJSON(w, r, &body); err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("word patch: word_id=%s action=%s", body.WordID, body.Action)

	res, err := s.ProgressService.PatchWord(r.Context(), userFromContext(r.Context()), body)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePatchXP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Points *int `json:"points"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		handleError(w, r, errors.NewValidationError("points", "must be a positive number"))
		return
	}
	if body.Points == nil {
		handleError(w, r, errors.NewValidationError("points", "must be a positive number"))
		return
	}

	res, err := s.ProgressService.PatchXP(r.Context(), userFromContext(r.Context()), *body.Points)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
