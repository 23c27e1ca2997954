package models

import (
	"slices"
	"time"
)

// DefaultUserID is used when the caller does not attach an identity.
const DefaultUserID = "default_user"

// MaxStudySessions is the number of sessions retained locally; older ones are evicted first.
const MaxStudySessions = 1000

// SyncStatus describes where the local state stands relative to the remote store.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
	SyncOffline SyncStatus = "offline"
)

// Valid reports whether s is one of the known statuses.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncIdle, SyncSyncing, SyncError, SyncOffline:
		return true
	}
	return false
}

// UserProgress is the persisted per-user progress record.
// CurrentLevel is derived from ExperiencePoints and is never set independently.
type UserProgress struct {
	UserID           string         `json:"user_id"`
	LearnedWords     []string       `json:"learned_words"`
	CurrentLevel     int            `json:"current_level"`
	ExperiencePoints int            `json:"experience_points"`
	StreakDays       int            `json:"streak_days"`
	LastStudyDate    string         `json:"last_study_date"`
	StudySessions    []StudySession `json:"study_sessions"`
	SyncStatus       SyncStatus     `json:"syncStatus"`
	LastSyncTime     *time.Time     `json:"lastSyncTime,omitempty"`
}

// NewUserProgress returns the zero-progress record for userID.
func NewUserProgress(userID string) UserProgress {
	if userID == "" {
		userID = DefaultUserID
	}
	return UserProgress{
		UserID:        userID,
		LearnedWords:  []string{},
		CurrentLevel:  1,
		StudySessions: []StudySession{},
		SyncStatus:    SyncIdle,
	}
}

// Clone returns a deep copy so callers cannot alias the store's slices.
func (p UserProgress) Clone() UserProgress {
	out := p
	out.LearnedWords = slices.Clone(p.LearnedWords)
	if out.LearnedWords == nil {
		out.LearnedWords = []string{}
	}
	out.StudySessions = make([]StudySession, len(p.StudySessions))
	for i, s := range p.StudySessions {
		out.StudySessions[i] = s.Clone()
	}
	if p.LastSyncTime != nil {
		t := *p.LastSyncTime
		out.LastSyncTime = &t
	}
	return out
}

// HasWord reports whether wordID is in the learned set.
func (p UserProgress) HasWord(wordID string) bool {
	return slices.Contains(p.LearnedWords, wordID)
}

// Stats is the aggregate view over a UserProgress. Never stored.
type Stats struct {
	TotalWordsLearned      int     `json:"totalWordsLearned"`
	TotalXPEarned          int     `json:"totalXpEarned"`
	TotalSessionsCompleted int     `json:"totalSessionsCompleted"`
	AverageSessionDuration float64 `json:"averageSessionDuration"`
	CurrentStreak          int     `json:"currentStreak"`
	LongestStreak          int     `json:"longestStreak"`
}

// LevelProgress describes progress towards the next level.
type LevelProgress struct {
	CurrentLevel           int     `json:"currentLevel"`
	CurrentXP              int     `json:"currentXp"`
	XPInCurrentLevel       int     `json:"xpInCurrentLevel"`
	XPRequiredForNextLevel int     `json:"xpRequiredForNextLevel"`
	ProgressPercentage     float64 `json:"progressPercentage"`
}

// StorageInfo summarizes what the durable local store holds.
type StorageInfo struct {
	ItemCount      int    `json:"itemCount"`
	TotalSizeBytes int64  `json:"totalSizeBytes"`
	Version        string `json:"version"`
}
