package sqlstore

import (
	"context"
	"slices"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/kmnkit/vietnamese-word-cards/internal/db"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository"
)

type sessionRepository struct {
	db *db.DB
}

// NewSessionRepository creates a new SessionRepository implementation
func NewSessionRepository(d *db.DB) repository.SessionRepository {
	return &sessionRepository{db: d}
}

func (r *sessionRepository) Insert(ctx context.Context, userID string, s models.StudySession, at time.Time) (bool, error) {
	return r.insert(ctx, r.db, userID, s, at)
}

func (r *sessionRepository) InsertBatch(ctx context.Context, userID string, sessions []models.StudySession, at time.Time) (int, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("batch inserting %d sessions", len(sessions))
	if len(sessions) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range sessions {
			ok, err := r.insert(ctx, tx, userID, s, at)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Debug("batch insert done: %d new of %d", inserted, len(sessions))
	return inserted, nil
}

func (r *sessionRepository) insert(ctx context.Context, exec sqlx.ExecerContext, userID string, s models.StudySession, at time.Time) (bool, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")

	key := SessionKey(userID, s)
	var score any
	if s.QuizScore != nil {
		score = *s.QuizScore
	}

	query, args, err := r.db.Builder().
		Insert("study_sessions").
		Columns(sessionColumns...).
		Values(key, userID, db.FormatTime(normalizeTime(s.Date)), s.DurationMinutes, s.WordsPracticed,
			score, string(s.ActivityType), s.XPEarned, s.WordsLearned, db.FormatTime(at)).
		Suffix("ON CONFLICT (session_key) DO NOTHING").
		ToSql()
	if err != nil {
		return false, err
	}

	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to insert session: %v", err)
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		log.Debug("duplicate session ignored: key=%s", key)
	}
	return n > 0, nil
}

func (r *sessionRepository) Recent(ctx context.Context, userID string, limit int) ([]models.StudySession, error) {
	sessions, err := r.query(ctx, userID, limit, 0)
	if err != nil {
		return nil, err
	}
	slices.Reverse(sessions)
	return sessions, nil
}

func (r *sessionRepository) List(ctx context.Context, userID string, limit, offset int) ([]models.StudySession, error) {
	return r.query(ctx, userID, limit, offset)
}

// query returns sessions newest first.
func (r *sessionRepository) query(ctx context.Context, userID string, limit, offset int) ([]models.StudySession, error) {
	log := logger.FromContext(ctx).WithPrefix("session_repo")
	log.Debug("listing sessions: user_id=%s limit=%d offset=%d", userID, limit, offset)

	q := r.db.Builder().
		Select(sessionColumns...).
		From("study_sessions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("studied_at DESC", "created_at DESC")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		log.Error("failed to list sessions: %v", err)
		return nil, err
	}
	return rowsToSessions(rows)
}
