package services

import (
	"context"
	"time"

	"github.com/kmnkit/vietnamese-word-cards/internal/errors"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository"
)

const (
	DefaultSessionPageSize = 100
	MaxSessionPageSize     = 1000
)

// SessionService handles the collaborator's session log
type SessionService interface {
	// Record stores one session. It reports false when an identical session
	// was already stored.
	Record(ctx context.Context, userID string, upload models.SessionUpload) (bool, error)
	List(ctx context.Context, userID string, limit, offset int) (*models.SessionPage, error)
}

type sessionService struct {
	sessions repository.SessionRepository
	now      func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(sessions repository.SessionRepository) SessionService {
	return &sessionService{sessions: sessions, now: time.Now}
}

func (s *sessionService) Record(ctx context.Context, userID string, upload models.SessionUpload) (bool, error) {
	log := logger.FromContext(ctx)
	now := s.now()

	date := now
	if upload.Date != nil {
		date = *upload.Date
	}
	session := models.StudySession{
		Date:            date,
		DurationMinutes: upload.DurationMinutes,
		WordsPracticed:  upload.WordsPracticed,
		QuizScore:       upload.QuizScore,
		ActivityType:    upload.ActivityType,
		XPEarned:        upload.XPEarned,
		WordsLearned:    upload.WordsLearned,
	}.Clone()
	if err := validateSession(session); err != nil {
		return false, err
	}

	inserted, err := s.sessions.Insert(ctx, userID, session, now)
	if err != nil {
		log.Error("failed to record session: %v", err)
		return false, errors.NewInternalError(err)
	}
	log.Debug("session recorded: user_id=%s type=%s new=%t", userID, session.ActivityType, inserted)
	return inserted, nil
}

func (s *sessionService) List(ctx context.Context, userID string, limit, offset int) (*models.SessionPage, error) {
	if limit <= 0 {
		limit = DefaultSessionPageSize
	}
	limit = min(limit, MaxSessionPageSize)
	if offset < 0 {
		return nil, errors.NewValidationError("offset", "must not be negative")
	}

	// one extra row tells whether another page exists
	rows, err := s.sessions.List(ctx, userID, limit+1, offset)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list sessions: %v", err)
		return nil, errors.NewInternalError(err)
	}

	page := &models.SessionPage{HasMore: len(rows) > limit, Sessions: []models.RemoteSession{}}
	if page.HasMore {
		rows = rows[:limit]
	}
	for _, ss := range rows {
		page.Sessions = append(page.Sessions, models.RemoteSessionFrom(ss))
	}
	return page, nil
}
