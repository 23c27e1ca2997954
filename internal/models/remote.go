package models

import "time"

// Payloads exchanged with the remote progress collaborator. Uploads use the
// snake_case names of the local record; the collaborator answers in camelCase.

// ProgressUpload is the aggregate part of a full-sync push.
type ProgressUpload struct {
	LearnedWords     []string `json:"learned_words"`
	CurrentLevel     int      `json:"current_level"`
	ExperiencePoints int      `json:"experience_points"`
	StreakDays       int      `json:"streak_days"`
	LastStudyDate    string   `json:"last_study_date"`
}

// SyncUpload is the body of POST /api/progress/sync.
type SyncUpload struct {
	Progress ProgressUpload `json:"progress"`
	Sessions []StudySession `json:"sessions"`
}

// UploadFrom builds the full-sync push body from a local snapshot.
func UploadFrom(p UserProgress) SyncUpload {
	words := p.LearnedWords
	if words == nil {
		words = []string{}
	}
	sessions := p.StudySessions
	if sessions == nil {
		sessions = []StudySession{}
	}
	return SyncUpload{
		Progress: ProgressUpload{
			LearnedWords:     words,
			CurrentLevel:     p.CurrentLevel,
			ExperiencePoints: p.ExperiencePoints,
			StreakDays:       p.StreakDays,
			LastStudyDate:    p.LastStudyDate,
		},
		Sessions: sessions,
	}
}

// RemoteProgress is the canonical aggregate returned by GET /api/progress/sync.
type RemoteProgress struct {
	UserID           string   `json:"userId,omitempty"`
	LearnedWords     []string `json:"learnedWords"`
	CurrentLevel     int      `json:"currentLevel"`
	ExperiencePoints int      `json:"experiencePoints"`
	StreakDays       int      `json:"streakDays"`
	LastStudyDate    string   `json:"lastStudyDate"`
}

// RemoteSession is a session as the collaborator reports it.
type RemoteSession struct {
	Date            time.Time    `json:"date"`
	DurationMinutes int          `json:"durationMinutes"`
	WordsPracticed  int          `json:"wordsPracticed"`
	QuizScore       *int         `json:"quizScore,omitempty"`
	ActivityType    ActivityType `json:"activityType"`
	XPEarned        int          `json:"xpEarned"`
	WordsLearned    int          `json:"wordsLearned"`
}

// StudySession converts the remote shape to the local one.
func (r RemoteSession) StudySession() StudySession {
	return StudySession{
		Date:            r.Date,
		DurationMinutes: r.DurationMinutes,
		WordsPracticed:  r.WordsPracticed,
		QuizScore:       r.QuizScore,
		ActivityType:    r.ActivityType,
		XPEarned:        r.XPEarned,
		WordsLearned:    r.WordsLearned,
	}.Clone()
}

// RemoteSessionFrom converts a local session to the remote shape.
func RemoteSessionFrom(s StudySession) RemoteSession {
	c := s.Clone()
	return RemoteSession{
		Date:            c.Date,
		DurationMinutes: c.DurationMinutes,
		WordsPracticed:  c.WordsPracticed,
		QuizScore:       c.QuizScore,
		ActivityType:    c.ActivityType,
		XPEarned:        c.XPEarned,
		WordsLearned:    c.WordsLearned,
	}
}

// SyncSnapshot is the body of GET /api/progress/sync.
type SyncSnapshot struct {
	Progress RemoteProgress  `json:"progress"`
	Sessions []RemoteSession `json:"sessions"`
}

// WordAction is the direction of a learned-word toggle.
type WordAction string

const (
	WordAdd    WordAction = "add"
	WordRemove WordAction = "remove"
)

// WordPatch is the body of PATCH /api/progress/words.
type WordPatch struct {
	WordID string     `json:"wordId"`
	Action WordAction `json:"action"`
}

// WordPatchResult is the collaborator's answer to a word toggle.
type WordPatchResult struct {
	Success      bool     `json:"success"`
	LearnedWords []string `json:"learnedWords"`
}

// XPPatch is the body of PATCH /api/progress/xp.
type XPPatch struct {
	Points int `json:"points"`
}

// XPResult is the collaborator's recomputed totals after an XP delta.
// The engine does not apply it to local state.
type XPResult struct {
	Success          bool `json:"success"`
	ExperiencePoints int  `json:"experiencePoints"`
	CurrentLevel     int  `json:"currentLevel"`
}

// SessionUpload is the body of POST /api/sessions. Date is optional; when
// present the collaborator keeps it, which lets a later full sync dedupe.
type SessionUpload struct {
	Date            *time.Time   `json:"date,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	WordsPracticed  int          `json:"words_practiced"`
	QuizScore       *int         `json:"quiz_score,omitempty"`
	ActivityType    ActivityType `json:"activity_type"`
	XPEarned        int          `json:"xp_earned"`
	WordsLearned    int          `json:"words_learned"`
}

// SessionUploadFrom builds a single-session push body.
func SessionUploadFrom(s StudySession) SessionUpload {
	c := s.Clone()
	d := c.Date
	return SessionUpload{
		Date:            &d,
		DurationMinutes: c.DurationMinutes,
		WordsPracticed:  c.WordsPracticed,
		QuizScore:       c.QuizScore,
		ActivityType:    c.ActivityType,
		XPEarned:        c.XPEarned,
		WordsLearned:    c.WordsLearned,
	}
}

// SessionPage is the body of GET /api/sessions.
type SessionPage struct {
	Sessions []RemoteSession `json:"sessions"`
	HasMore  bool            `json:"hasMore"`
}
