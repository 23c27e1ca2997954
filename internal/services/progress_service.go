package services

import (
	"context"
	"database/sql"
	stderrors "errors"
	"slices"
	"time"

	"github.com/kmnkit/vietnamese-word-cards/internal/errors"
	"github.com/kmnkit/vietnamese-word-cards/internal/level"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository"
)

// ProgressService handles the collaborator's aggregate progress
type ProgressService interface {
	// Snapshot returns the canonical state, creating a default row for a new user.
	Snapshot(ctx context.Context, userID string) (*models.SyncSnapshot, error)
	// Upload upserts the aggregate and stores any sessions not seen before.
	Upload(ctx context.Context, userID string, upload models.SyncUpload) error
	PatchWord(ctx context.Context, userID string, patch models.WordPatch) (*models.WordPatchResult, error)
	PatchXP(ctx context.Context, userID string, points int) (*models.XPResult, error)
}

type progressService struct {
	progress repository.ProgressRepository
	sessions repository.SessionRepository
	now      func() time.Time
}

// NewProgressService creates a new ProgressService
func NewProgressService(progress repository.ProgressRepository, sessions repository.SessionRepository) ProgressService {
	return &progressService{progress: progress, sessions: sessions, now: time.Now}
}

func (s *progressService) Snapshot(ctx context.Context, userID string) (*models.SyncSnapshot, error) {
	log := logger.FromContext(ctx)
	log.Debug("loading snapshot: user_id=%s", userID)

	p, err := s.progress.Get(ctx, userID)
	if err != nil {
		log.Error("failed to get progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if p == nil {
		p, err = s.progress.CreateDefault(ctx, userID, s.now())
		if err != nil {
			log.Error("failed to create default progress: %v", err)
			return nil, errors.NewInternalError(err)
		}
	}

	sessions, err := s.sessions.Recent(ctx, userID, models.MaxStudySessions)
	if err != nil {
		log.Error("failed to load sessions: %v", err)
		return nil, errors.NewInternalError(err)
	}

	out := &models.SyncSnapshot{Progress: *p, Sessions: make([]models.RemoteSession, 0, len(sessions))}
	for _, ss := range sessions {
		out.Sessions = append(out.Sessions, models.RemoteSessionFrom(ss))
	}
	return out, nil
}

func (s *progressService) Upload(ctx context.Context, userID string, upload models.SyncUpload) error {
	log := logger.FromContext(ctx)
	up := upload.Progress

	if up.ExperiencePoints < 0 {
		return errors.NewValidationError("experience_points", "must not be negative")
	}
	if up.StreakDays < 0 {
		return errors.NewValidationError("streak_days", "must not be negative")
	}
	for _, ss := range upload.Sessions {
		if err := validateSession(ss); err != nil {
			return err
		}
	}

	up.LearnedWords = uniqueWords(up.LearnedWords)
	up.CurrentLevel = level.ForXP(up.ExperiencePoints)

	now := s.now()
	if err := s.progress.Upsert(ctx, userID, up, now); err != nil {
		log.Error("failed to upsert progress: %v", err)
		return errors.NewInternalError(err)
	}

	inserted, err := s.sessions.InsertBatch(ctx, userID, upload.Sessions, now)
	if err != nil {
		log.Error("failed to store sessions: %v", err)
		return errors.NewInternalError(err)
	}
	log.Info("progress uploaded: user_id=%s xp=%d sessions=%d new=%d",
		userID, up.ExperiencePoints, len(upload.Sessions), inserted)
	return nil
}

func (s *progressService) PatchWord(ctx context.Context, userID string, patch models.WordPatch) (*models.WordPatchResult, error) {
	if patch.WordID == "" {
		return nil, errors.NewValidationError("wordId", "is required")
	}
	if patch.Action != models.WordAdd && patch.Action != models.WordRemove {
		return nil, errors.NewValidationError("action", "must be add or remove")
	}

	p, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}

	words := p.LearnedWords
	switch patch.Action {
	case models.WordAdd:
		if !slices.Contains(words, patch.WordID) {
			words = append(words, patch.WordID)
		}
	case models.WordRemove:
		words = slices.DeleteFunc(words, func(w string) bool { return w == patch.WordID })
	}

	if err := s.progress.UpdateWords(ctx, userID, words, s.now()); err != nil {
		return nil, s.updateError(ctx, userID, err)
	}
	return &models.WordPatchResult{Success: true, LearnedWords: words}, nil
}

func (s *progressService) PatchXP(ctx context.Context, userID string, points int) (*models.XPResult, error) {
	if points <= 0 {
		return nil, errors.NewValidationError("points", "must be a positive number")
	}

	p, err := s.current(ctx, userID)
	if err != nil {
		return nil, err
	}

	xp := p.ExperiencePoints + points
	lvl := level.ForXP(xp)
	if err := s.progress.UpdateXP(ctx, userID, xp, lvl, s.now()); err != nil {
		return nil, s.updateError(ctx, userID, err)
	}
	return &models.XPResult{Success: true, ExperiencePoints: xp, CurrentLevel: lvl}, nil
}

func (s *progressService) current(ctx context.Context, userID string) (*models.RemoteProgress, error) {
	p, err := s.progress.Get(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Error("failed to get progress: %v", err)
		return nil, errors.NewInternalError(err)
	}
	if p == nil {
		return nil, errors.NewNotFoundError("user progress", userID)
	}
	return p, nil
}

func (s *progressService) updateError(ctx context.Context, userID string, err error) error {
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFoundError("user progress", userID)
	}
	logger.FromContext(ctx).Error("failed to update progress: %v", err)
	return errors.NewInternalError(err)
}

func uniqueWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func validateSession(s models.StudySession) error {
	switch {
	case !s.ActivityType.Valid():
		return errors.NewValidationError("activity_type", "invalid activity type")
	case s.DurationMinutes < 0, s.WordsPracticed < 0, s.XPEarned < 0, s.WordsLearned < 0:
		return errors.NewValidationError("session", "counts must not be negative")
	}
	return nil
}
