package syncer

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kmnkit/vietnamese-word-cards/internal/errors"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// DefaultStaleAfter is how old the last sync may get before the periodic
// check runs a new one.
const DefaultStaleAfter = 5 * time.Minute

// Remote is the collaborator the full sync pushes to and pulls from.
type Remote interface {
	PushProgress(ctx context.Context, upload models.SyncUpload) error
	FetchProgress(ctx context.Context) (*models.SyncSnapshot, error)
}

// Engine is the part of the progress store the coordinator drives.
type Engine interface {
	BeginSync(ctx context.Context) (models.UserProgress, error)
	CompleteSync(ctx context.Context, remote models.SyncSnapshot, at time.Time) error
	FailSync(ctx context.Context, cause error) error
	SetSyncStatus(ctx context.Context, status models.SyncStatus) error
	SyncStatus() models.SyncStatus
	LastSyncTime() *time.Time
}

// Coordinator reconciles local progress with the remote collaborator.
type Coordinator struct {
	engine     Engine
	remote     Remote
	now        func() time.Time
	staleAfter time.Duration
	interval   time.Duration
	log        *logger.Logger

	mu        sync.Mutex
	scheduler *gocron.Scheduler
}

type Option func(*Coordinator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithStaleAfter sets how old the last sync may be before CheckAndSync acts.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Coordinator) { c.staleAfter = d }
}

// WithInterval sets how often the scheduler runs CheckAndSync.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

func New(engine Engine, remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		engine:     engine,
		remote:     remote,
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
		interval:   DefaultStaleAfter,
		log:        logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithPrefix("syncer")
	return c
}

// SyncWithBackend pushes the local state, pulls the canonical remote state
// and overwrites local progress with it. A failed push or pull sets the
// status to error, leaves progress untouched and returns a sync error.
func (c *Coordinator) SyncWithBackend(ctx context.Context) error {
	start := c.now()
	snap, err := c.engine.BeginSync(ctx)
	if err != nil {
		if !errors.IsPersistence(err) {
			c.log.Debug("sync not started: %v", err)
			return err
		}
		c.log.Warn("sync started without local save: %v", err)
	}
	c.log.Info("sync started: xp=%d words=%d sessions=%d",
		snap.ExperiencePoints, len(snap.LearnedWords), len(snap.StudySessions))

	if err := c.remote.PushProgress(ctx, models.UploadFrom(snap)); err != nil {
		return c.fail(ctx, "push", err)
	}

	pulled, err := c.remote.FetchProgress(ctx)
	if err != nil {
		return c.fail(ctx, "fetch", err)
	}
	if pulled == nil {
		return c.fail(ctx, "fetch", stderrors.New("empty response"))
	}

	if err := c.engine.CompleteSync(ctx, *pulled, c.now()); err != nil {
		return err
	}
	c.log.Info("sync completed in %v: xp=%d words=%d sessions=%d", c.now().Sub(start),
		pulled.Progress.ExperiencePoints, len(pulled.Progress.LearnedWords), len(pulled.Sessions))
	return nil
}

func (c *Coordinator) fail(ctx context.Context, step string, cause error) error {
	syncErr := errors.NewSyncError(step, cause)
	if err := c.engine.FailSync(ctx, syncErr); err != nil {
		c.log.Warn("could not record failed sync: %v", err)
	}
	return syncErr
}

// OnConnectivityChange applies a connectivity report. Going offline stops
// per-mutation pushes; coming back online runs one full sync.
func (c *Coordinator) OnConnectivityChange(ctx context.Context, online bool) error {
	if !online {
		c.log.Info("connection lost")
		return c.engine.SetSyncStatus(ctx, models.SyncOffline)
	}

	wasOffline := c.engine.SyncStatus() == models.SyncOffline
	if !wasOffline {
		return nil
	}
	c.log.Info("connection restored, syncing")
	if err := c.engine.SetSyncStatus(ctx, models.SyncIdle); err != nil && !errors.IsPersistence(err) {
		return err
	}
	return c.SyncWithBackend(ctx)
}

// CheckAndSync runs a full sync when the last one is older than the stale
// threshold. A store that never synced is left alone; its first sync comes
// from reconnecting or an explicit SyncWithBackend. It reports whether a
// sync was attempted.
func (c *Coordinator) CheckAndSync(ctx context.Context) (bool, error) {
	switch c.engine.SyncStatus() {
	case models.SyncOffline, models.SyncSyncing:
		return false, nil
	}
	last := c.engine.LastSyncTime()
	if last == nil || c.now().Sub(*last) <= c.staleAfter {
		return false, nil
	}
	return true, c.SyncWithBackend(ctx)
}

// Start runs CheckAndSync on the configured interval until Stop or until
// ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler != nil {
		return nil
	}

	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()
	_, err := s.Every(c.interval).WaitForSchedule().Do(func() {
		if ctx.Err() != nil {
			return
		}
		if ran, err := c.CheckAndSync(ctx); err != nil {
			c.log.Warn("periodic sync failed: %v", err)
		} else if ran {
			c.log.Debug("periodic sync done")
		}
	})
	if err != nil {
		return err
	}
	s.StartAsync()
	c.scheduler = s
	c.log.Info("auto-sync every %v (stale after %v)", c.interval, c.staleAfter)
	return nil
}

// Stop halts the periodic check.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scheduler == nil {
		return
	}
	c.scheduler.Stop()
	c.scheduler = nil
	c.log.Info("auto-sync stopped")
}
