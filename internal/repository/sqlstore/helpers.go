package sqlstore

import (
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kmnkit/vietnamese-word-cards/internal/db"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// StorageVersion is written next to every persisted progress record.
const StorageVersion = "1.0.0"

var sessionNamespace = uuid.MustParse("6f1c2a7e-5d0b-4e39-9a51-2b8e4c7d9f10")

// SessionKey derives a stable id from a session's content so that uploading
// the same session twice maps to one row.
func SessionKey(userID string, s models.StudySession) string {
	score := "-"
	if s.QuizScore != nil {
		score = strconv.Itoa(*s.QuizScore)
	}
	parts := []string{
		userID,
		db.FormatTime(normalizeTime(s.Date)),
		strconv.Itoa(s.DurationMinutes),
		strconv.Itoa(s.WordsPracticed),
		score,
		string(s.ActivityType),
		strconv.Itoa(s.XPEarned),
		strconv.Itoa(s.WordsLearned),
	}
	return uuid.NewSHA1(sessionNamespace, []byte(strings.Join(parts, "|"))).String()
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type sessionRow struct {
	SessionKey      string        `db:"session_key"`
	UserID          string        `db:"user_id"`
	StudiedAt       string        `db:"studied_at"`
	DurationMinutes int           `db:"duration_minutes"`
	WordsPracticed  int           `db:"words_practiced"`
	QuizScore       sql.NullInt64 `db:"quiz_score"`
	ActivityType    string        `db:"activity_type"`
	XPEarned        int           `db:"xp_earned"`
	WordsLearned    int           `db:"words_learned"`
	CreatedAt       string        `db:"created_at"`
}

var sessionColumns = []string{
	"session_key", "user_id", "studied_at", "duration_minutes", "words_practiced",
	"quiz_score", "activity_type", "xp_earned", "words_learned", "created_at",
}

func (r sessionRow) model() (models.StudySession, error) {
	at, err := db.ParseTime(r.StudiedAt)
	if err != nil {
		return models.StudySession{}, err
	}
	s := models.StudySession{
		Date:            at,
		DurationMinutes: r.DurationMinutes,
		WordsPracticed:  r.WordsPracticed,
		ActivityType:    models.ActivityType(r.ActivityType),
		XPEarned:        r.XPEarned,
		WordsLearned:    r.WordsLearned,
	}
	if r.QuizScore.Valid {
		s.QuizScore = models.IntPtr(int(r.QuizScore.Int64))
	}
	return s, nil
}

func rowsToSessions(rows []sessionRow) ([]models.StudySession, error) {
	out := make([]models.StudySession, 0, len(rows))
	for _, row := range rows {
		s, err := row.model()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
