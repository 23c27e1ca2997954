package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/kmnkit/vietnamese-word-cards/internal/db"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository"
)

type progressRepository struct {
	db *db.DB
}

// NewProgressRepository creates a new ProgressRepository implementation
func NewProgressRepository(d *db.DB) repository.ProgressRepository {
	return &progressRepository{db: d}
}

type progressRow struct {
	UserID           string `db:"user_id"`
	LearnedWords     string `db:"learned_words"`
	CurrentLevel     int    `db:"current_level"`
	ExperiencePoints int    `db:"experience_points"`
	StreakDays       int    `db:"streak_days"`
	LastStudyDate    string `db:"last_study_date"`
}

func (r progressRow) model() (*models.RemoteProgress, error) {
	words := []string{}
	if r.LearnedWords != "" {
		if err := json.Unmarshal([]byte(r.LearnedWords), &words); err != nil {
			return nil, err
		}
	}
	return &models.RemoteProgress{
		UserID:           r.UserID,
		LearnedWords:     words,
		CurrentLevel:     r.CurrentLevel,
		ExperiencePoints: r.ExperiencePoints,
		StreakDays:       r.StreakDays,
		LastStudyDate:    r.LastStudyDate,
	}, nil
}

func encodeWords(words []string) (string, error) {
	if words == nil {
		words = []string{}
	}
	b, err := json.Marshal(words)
	return string(b), err
}

func (r *progressRepository) Get(ctx context.Context, userID string) (*models.RemoteProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("getting progress: user_id=%s", userID)

	query, args, err := r.db.Builder().
		Select("user_id", "learned_words", "current_level", "experience_points", "streak_days", "last_study_date").
		From("user_progress").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row progressRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("progress not found: user_id=%s", userID)
			return nil, nil
		}
		log.Error("failed to get progress: %v", err)
		return nil, err
	}
	return row.model()
}

func (r *progressRepository) Upsert(ctx context.Context, userID string, p models.ProgressUpload, at time.Time) error {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	log.Debug("upserting progress: user_id=%s xp=%d words=%d", userID, p.ExperiencePoints, len(p.LearnedWords))

	words, err := encodeWords(p.LearnedWords)
	if err != nil {
		return err
	}
	stamp := db.FormatTime(at)

	query, args, err := r.db.Builder().
		Insert("user_progress").
		Columns("user_id", "learned_words", "current_level", "experience_points", "streak_days", "last_study_date", "created_at", "updated_at").
		Values(userID, words, p.CurrentLevel, p.ExperiencePoints, p.StreakDays, p.LastStudyDate, stamp, stamp).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
    learned_words = excluded.learned_words,
    current_level = excluded.current_level,
    experience_points = excluded.experience_points,
    streak_days = excluded.streak_days,
    last_study_date = excluded.last_study_date,
    updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to upsert progress: %v", err)
		return err
	}
	return nil
}

func (r *progressRepository) CreateDefault(ctx context.Context, userID string, at time.Time) (*models.RemoteProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")
	stamp := db.FormatTime(at)

	query, args, err := r.db.Builder().
		Insert("user_progress").
		Columns("user_id", "learned_words", "current_level", "experience_points", "streak_days", "last_study_date", "created_at", "updated_at").
		Values(userID, "[]", 1, 0, 0, "", stamp, stamp).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to create default progress: %v", err)
		return nil, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Info("created default progress: user_id=%s", userID)
	}
	return r.Get(ctx, userID)
}

func (r *progressRepository) UpdateWords(ctx context.Context, userID string, words []string, at time.Time) error {
	encoded, err := encodeWords(words)
	if err != nil {
		return err
	}
	return r.update(ctx, userID, map[string]any{
		"learned_words": encoded,
		"updated_at":    db.FormatTime(at),
	})
}

func (r *progressRepository) UpdateXP(ctx context.Context, userID string, xp, currentLevel int, at time.Time) error {
	return r.update(ctx, userID, map[string]any{
		"experience_points": xp,
		"current_level":     currentLevel,
		"updated_at":        db.FormatTime(at),
	})
}

// update returns sql.ErrNoRows when the user has no progress row.
func (r *progressRepository) update(ctx context.Context, userID string, set map[string]any) error {
	log := logger.FromContext(ctx).WithPrefix("progress_repo")

	query, args, err := r.db.Builder().
		Update("user_progress").
		SetMap(set).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update progress: %v", err)
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
