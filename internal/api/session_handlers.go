package api

import (
	"net/http"
	"time"

	"github.com/kmnkit/vietnamese-word-cards/internal/errors"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/services"
)

// sessionRequest uses pointers so that missing fields can be told apart from zeros.
type sessionRequest struct {
	Date            *time.Time           `json:"date"`
	DurationMinutes *int                 `json:"duration_minutes"`
	WordsPracticed  *int                 `json:"words_practiced"`
	QuizScore       *int                 `json:"quiz_score"`
	ActivityType    *models.ActivityType `json:"activity_type"`
	XPEarned        *int                 `json:"xp_earned"`
	WordsLearned    *int                 `json:"words_learned"`
}

func (req sessionRequest) upload() (models.SessionUpload, error) {
	required := []struct {
		name    string
		present bool
	}{
		{"duration_minutes", req.DurationMinutes != nil},
		{"words_practiced", req.WordsPracticed != nil},
		{"activity_type", req.ActivityType != nil},
		{"xp_earned", req.XPEarned != nil},
		{"words_learned", req.WordsLearned != nil},
	}
	for _, f := range required {
		if !f.present {
			return models.SessionUpload{}, errors.NewValidationError(f.name, "missing required field")
		}
	}
	return models.SessionUpload{
		Date:            req.Date,
		DurationMinutes: *req.DurationMinutes,
		WordsPracticed:  *req.WordsPracticed,
		QuizScore:       req.QuizScore,
		ActivityType:    *req.ActivityType,
		XPEarned:        *req.XPEarned,
		WordsLearned:    *req.WordsLearned,
	}, nil
}

func (s *Server) handlePostSession(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		handleError(w, r, err)
		return
	}
	upload, err := body.upload()
	if err != nil {
		handleError(w, r, err)
		return
	}

	created, err := s.SessionService.Record(r.Context(), userFromContext(r.Context()), upload)
	if err != nil {
		handleError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"success": true, "created": created})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", services.DefaultSessionPageSize)
	if err != nil {
		handleError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}

	page, err := s.SessionService.List(r.Context(), userFromContext(r.Context()), limit, offset)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
