package progress

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"time"

	"github.com/kmnkit/vietnamese-word-cards/internal/errors"
	"github.com/kmnkit/vietnamese-word-cards/internal/level"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository"
	"github.com/kmnkit/vietnamese-word-cards/internal/streak"
	"github.com/kmnkit/vietnamese-word-cards/internal/worker"
)

// ErrClosed is returned by mutations after Close.
var ErrClosed = stderrors.New("progress store closed")

// Dispatcher queues fire-and-forget jobs. *worker.Pool satisfies it.
type Dispatcher interface {
	TrySubmit(job worker.Job) bool
}

// Store is the single owner of one user's UserProgress. Every mutation runs
// in one critical section: the state change, the derived level and the
// write-through save are never observed apart.
type Store struct {
	mu     sync.Mutex
	state  models.UserProgress
	closed bool

	local    repository.ProgressStateRepository
	pusher   worker.Pusher
	dispatch Dispatcher
	now      func() time.Time
	log      *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLocalStore sets the durable local store. Without one the store is in-memory only.
func WithLocalStore(repo repository.ProgressStateRepository) Option {
	return func(s *Store) { s.local = repo }
}

// WithPusher enables per-mutation remote pushes, queued on d.
func WithPusher(p worker.Pusher, d Dispatcher) Option {
	return func(s *Store) {
		s.pusher = p
		s.dispatch = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open loads the persisted progress for userID, or starts from defaults when
// nothing was stored. If loading fails the returned store is still usable
// in memory and the error is a persistence error.
func Open(ctx context.Context, userID string, opts ...Option) (*Store, error) {
	if userID == "" {
		userID = models.DefaultUserID
	}
	s := &Store{
		state: models.NewUserProgress(userID),
		now:   time.Now,
		log:   logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithPrefix("progress").WithField("user_id", userID)

	if s.local == nil {
		return s, nil
	}

	loaded, err := s.local.Load(ctx, userID)
	if err != nil {
		s.log.Warn("failed to load local progress, continuing in memory: %v", err)
		return s, errors.NewPersistenceError("load", err)
	}
	if loaded == nil {
		s.log.Debug("no local progress, starting fresh")
		return s, nil
	}

	s.state = normalize(*loaded, userID)
	s.log.Debug("loaded progress: xp=%d words=%d sessions=%d",
		s.state.ExperiencePoints, len(s.state.LearnedWords), len(s.state.StudySessions))
	return s, nil
}

// normalize repairs a loaded record so the invariants hold again.
func normalize(p models.UserProgress, userID string) models.UserProgress {
	p = p.Clone()
	p.UserID = userID
	p.LearnedWords = dedupe(p.LearnedWords)
	if p.ExperiencePoints < 0 {
		p.ExperiencePoints = 0
	}
	if p.StreakDays < 0 {
		p.StreakDays = 0
	}
	p.CurrentLevel = level.ForXP(p.ExperiencePoints)
	p.StudySessions = capSessions(p.StudySessions)
	// A sync cannot survive a restart.
	if !p.SyncStatus.Valid() || p.SyncStatus == models.SyncSyncing {
		p.SyncStatus = models.SyncIdle
	}
	return p
}

// mutate applies fn to a copy of the state. When fn reports a change the
// level is recomputed, the copy replaces the state and it is saved. A failed
// save keeps the new state and returns a persistence error.
func (s *Store) mutate(ctx context.Context, op string, fn func(p *models.UserProgress) bool) (models.UserProgress, bool, error) {
	if s.closed {
		return models.UserProgress{}, false, ErrClosed
	}
	next := s.state.Clone()
	if !fn(&next) {
		return next, false, nil
	}
	next.CurrentLevel = level.ForXP(next.ExperiencePoints)
	s.state = next
	return next, true, s.save(ctx, op)
}

func (s *Store) save(ctx context.Context, op string) error {
	if s.local == nil {
		return nil
	}
	if err := s.local.Save(ctx, s.state.Clone()); err != nil {
		s.log.Warn("%s: local save failed, state kept in memory: %v", op, err)
		return errors.NewPersistenceError("save", err)
	}
	return nil
}

// push queues job unless offline or no pusher is configured. Must be called
// with s.mu held so the status check sees the state the mutation produced.
func (s *Store) push(job worker.Job) {
	if s.pusher == nil || s.dispatch == nil {
		return
	}
	if s.state.SyncStatus == models.SyncOffline {
		s.log.Debug("offline, skipping %s", job.Name())
		return
	}
	if !s.dispatch.TrySubmit(job) {
		s.log.Warn("push queue rejected %s", job.Name())
	}
}

// AddLearnedWord marks wordID learned. Re-adding a known word does nothing.
func (s *Store) AddLearnedWord(ctx context.Context, wordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, changed, err := s.mutate(ctx, "add learned word", func(p *models.UserProgress) bool {
		if wordID == "" || p.HasWord(wordID) {
			return false
		}
		p.LearnedWords = append(p.LearnedWords, wordID)
		return true
	})
	if changed {
		s.push(&worker.PushWordJob{Pusher: s.pusher, Patch: models.WordPatch{WordID: wordID, Action: models.WordAdd}})
	}
	return err
}

// RemoveLearnedWord unmarks wordID. Removing an unknown word does nothing.
func (s *Store) RemoveLearnedWord(ctx context.Context, wordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, changed, err := s.mutate(ctx, "remove learned word", func(p *models.UserProgress) bool {
		i := slices.Index(p.LearnedWords, wordID)
		if wordID == "" || i < 0 {
			return false
		}
		p.LearnedWords = slices.Delete(p.LearnedWords, i, i+1)
		return true
	})
	if changed {
		s.push(&worker.PushWordJob{Pusher: s.pusher, Patch: models.WordPatch{WordID: wordID, Action: models.WordRemove}})
	}
	return err
}

// AddExperiencePoints credits points. Non-positive values are ignored.
func (s *Store) AddExperiencePoints(ctx context.Context, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, changed, err := s.mutate(ctx, "add experience points", func(p *models.UserProgress) bool {
		if points <= 0 {
			return false
		}
		p.ExperiencePoints += points
		return true
	})
	if changed {
		s.push(&worker.PushXPJob{Pusher: s.pusher, Points: points})
	}
	return err
}

// UpdateStreak records study activity for today's local date.
func (s *Store) UpdateStreak(ctx context.Context) (streak.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var d streak.Decision
	_, _, err := s.mutate(ctx, "update streak", func(p *models.UserProgress) bool {
		d = streak.Update(s.now(), p.LastStudyDate, p.StreakDays)
		if d.Action == streak.NoOp {
			return false
		}
		p.StreakDays = d.StreakDays
		p.LastStudyDate = d.LastStudyDate
		return true
	})
	return d, err
}

// AddStudySession stamps ns with the current time and appends it to the log,
// evicting the oldest entries beyond the retention cap.
func (s *Store) AddStudySession(ctx context.Context, ns models.NewStudySession) (models.StudySession, error) {
	if err := validateSession(ns); err != nil {
		return models.StudySession{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := ns.At(s.now().UTC().Truncate(time.Millisecond))
	_, changed, err := s.mutate(ctx, "add study session", func(p *models.UserProgress) bool {
		p.StudySessions = capSessions(append(p.StudySessions, session))
		return true
	})
	if changed {
		s.push(&worker.PushSessionJob{Pusher: s.pusher, Session: models.SessionUploadFrom(session)})
	}
	return session, err
}

func validateSession(ns models.NewStudySession) error {
	switch {
	case !ns.ActivityType.Valid():
		return errors.NewValidationError("activity_type", "must be one of flashcard, quiz, learning")
	case ns.DurationMinutes < 0:
		return errors.NewValidationError("duration_minutes", "must not be negative")
	case ns.WordsPracticed < 0:
		return errors.NewValidationError("words_practiced", "must not be negative")
	case ns.XPEarned < 0:
		return errors.NewValidationError("xp_earned", "must not be negative")
	case ns.WordsLearned < 0:
		return errors.NewValidationError("words_learned", "must not be negative")
	}
	return nil
}

// ResetProgress restores defaults. The sync status survives the reset.
func (s *Store) ResetProgress(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _, err := s.mutate(ctx, "reset progress", func(p *models.UserProgress) bool {
		status := p.SyncStatus
		*p = models.NewUserProgress(p.UserID)
		p.SyncStatus = status
		return true
	})
	if err == nil {
		s.log.Info("progress reset")
	}
	return err
}

// IsWordLearned reports whether wordID is in the learned set.
func (s *Store) IsWordLearned(wordID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HasWord(wordID)
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Stats derives the aggregate view of the current state.
func (s *Store) Stats() models.Stats {
	s.mu.Lock()
	p := s.state.Clone()
	s.mu.Unlock()

	var total int
	dates := make([]time.Time, 0, len(p.StudySessions))
	for _, ss := range p.StudySessions {
		total += ss.DurationMinutes
		dates = append(dates, ss.Date)
	}
	var avg float64
	if n := len(p.StudySessions); n > 0 {
		avg = level.Round2(float64(total) / float64(n))
	}

	return models.Stats{
		TotalWordsLearned:      len(p.LearnedWords),
		TotalXPEarned:          p.ExperiencePoints,
		TotalSessionsCompleted: len(p.StudySessions),
		AverageSessionDuration: avg,
		CurrentStreak:          p.StreakDays,
		LongestStreak:          max(streak.Longest(dates), p.StreakDays),
	}
}

// LevelProgress reports progress towards the next level.
func (s *Store) LevelProgress() models.LevelProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return level.Progress(s.state.ExperiencePoints)
}

// SyncStatus returns the current sync status.
func (s *Store) SyncStatus() models.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SyncStatus
}

// LastSyncTime returns when the last full sync succeeded, or nil.
func (s *Store) LastSyncTime() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.LastSyncTime == nil {
		return nil
	}
	t := *s.state.LastSyncTime
	return &t
}

// SetSyncStatus sets the status directly. The connectivity detector uses it
// to flip between offline and idle. Syncing is only entered through BeginSync.
func (s *Store) SetSyncStatus(ctx context.Context, status models.SyncStatus) error {
	if !status.Valid() {
		return errors.NewValidationError("sync_status", "unknown status "+string(status))
	}
	if status == models.SyncSyncing {
		return errors.NewValidationError("sync_status", "syncing is set by BeginSync")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, changed, err := s.mutate(ctx, "set sync status", func(p *models.UserProgress) bool {
		if p.SyncStatus == status {
			return false
		}
		p.SyncStatus = status
		return true
	})
	if changed {
		s.log.Debug("sync status -> %s", status)
	}
	return err
}

// BeginSync moves the status to syncing and returns the snapshot to push.
// It refuses while offline or while another sync is in flight.
func (s *Store) BeginSync(ctx context.Context) (models.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.UserProgress{}, ErrClosed
	}
	switch s.state.SyncStatus {
	case models.SyncOffline:
		return models.UserProgress{}, errors.NewOfflineError()
	case models.SyncSyncing:
		return models.UserProgress{}, errors.NewConflictError("sync already in progress")
	}
	snap, _, err := s.mutate(ctx, "begin sync", func(p *models.UserProgress) bool {
		p.SyncStatus = models.SyncSyncing
		return true
	})
	return snap, err
}

// CompleteSync overwrites the progress fields with the pulled remote state
// and stamps the sync time. Local mutations made since BeginSync are lost.
func (s *Store) CompleteSync(ctx context.Context, remote models.SyncSnapshot, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, _, err := s.mutate(ctx, "complete sync", func(p *models.UserProgress) bool {
		p.LearnedWords = dedupe(remote.Progress.LearnedWords)
		p.ExperiencePoints = max(remote.Progress.ExperiencePoints, 0)
		p.StreakDays = max(remote.Progress.StreakDays, 0)
		p.LastStudyDate = remote.Progress.LastStudyDate

		sessions := make([]models.StudySession, 0, len(remote.Sessions))
		for _, rs := range remote.Sessions {
			sessions = append(sessions, rs.StudySession())
		}
		p.StudySessions = capSessions(sessions)

		if p.SyncStatus != models.SyncOffline {
			p.SyncStatus = models.SyncIdle
		}
		stamp := at.UTC().Truncate(time.Millisecond)
		p.LastSyncTime = &stamp
		return true
	})
	return err
}

// FailSync records a failed sync. Progress fields are left untouched.
func (s *Store) FailSync(ctx context.Context, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Error("sync failed: %v", cause)
	_, _, err := s.mutate(ctx, "fail sync", func(p *models.UserProgress) bool {
		if p.SyncStatus == models.SyncOffline || p.SyncStatus == models.SyncError {
			return false
		}
		p.SyncStatus = models.SyncError
		return true
	})
	return err
}

// StorageInfo reports what the local store holds.
func (s *Store) StorageInfo(ctx context.Context) (*models.StorageInfo, error) {
	if s.local == nil {
		return &models.StorageInfo{}, nil
	}
	info, err := s.local.Info(ctx)
	if err != nil {
		return nil, errors.NewPersistenceError("info", err)
	}
	return info, nil
}

// Close rejects further mutations. Reads keep working on the last state.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func dedupe(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" && !slices.Contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func capSessions(sessions []models.StudySession) []models.StudySession {
	if sessions == nil {
		return []models.StudySession{}
	}
	if n := len(sessions); n > models.MaxStudySessions {
		return slices.Clone(sessions[n-models.MaxStudySessions:])
	}
	return sessions
}
