package models

import "time"

// ActivityType is the kind of study activity a session records.
type ActivityType string

const (
	ActivityFlashcard ActivityType = "flashcard"
	ActivityQuiz      ActivityType = "quiz"
	ActivityLearning  ActivityType = "learning"
)

// Valid reports whether a is a known activity type.
func (a ActivityType) Valid() bool {
	switch a {
	case ActivityFlashcard, ActivityQuiz, ActivityLearning:
		return true
	}
	return false
}

// StudySession is one completed activity. Immutable once appended.
type StudySession struct {
	Date            time.Time    `json:"date"`
	DurationMinutes int          `json:"duration_minutes"`
	WordsPracticed  int          `json:"words_practiced"`
	QuizScore       *int         `json:"quiz_score,omitempty"`
	ActivityType    ActivityType `json:"activity_type"`
	XPEarned        int          `json:"xp_earned"`
	WordsLearned    int          `json:"words_learned"`
}

// Clone copies the optional score so the copy shares no memory.
func (s StudySession) Clone() StudySession {
	if s.QuizScore != nil {
		v := *s.QuizScore
		s.QuizScore = &v
	}
	return s
}

// NewStudySession is what callers supply; the store stamps the date.
type NewStudySession struct {
	DurationMinutes int          `json:"duration_minutes"`
	WordsPracticed  int          `json:"words_practiced"`
	QuizScore       *int         `json:"quiz_score,omitempty"`
	ActivityType    ActivityType `json:"activity_type"`
	XPEarned        int          `json:"xp_earned"`
	WordsLearned    int          `json:"words_learned"`
}

// At stamps the session with its completion time.
func (n NewStudySession) At(t time.Time) StudySession {
	s := StudySession{
		Date:            t,
		DurationMinutes: n.DurationMinutes,
		WordsPracticed:  n.WordsPracticed,
		ActivityType:    n.ActivityType,
		XPEarned:        n.XPEarned,
		WordsLearned:    n.WordsLearned,
	}
	if n.QuizScore != nil {
		v := *n.QuizScore
		s.QuizScore = &v
	}
	return s
}

// IntPtr is a small helper for optional quiz scores.
func IntPtr(v int) *int { return &v }
