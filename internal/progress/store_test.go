package progress_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kmnkit/vietnamese-word-cards/internal/errors"
	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
	"github.com/kmnkit/vietnamese-word-cards/internal/progress"
	"github.com/kmnkit/vietnamese-word-cards/internal/repository/sqlstore"
	"github.com/kmnkit/vietnamese-word-cards/internal/streak"
	"github.com/kmnkit/vietnamese-word-cards/internal/testutil"
	"github.com/kmnkit/vietnamese-word-cards/internal/testutil/mocks"
	"github.com/kmnkit/vietnamese-word-cards/internal/worker"
)

var start = time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)

type fixture struct {
	store    *progress.Store
	clock    *testutil.Clock
	dispatch *mocks.RecordingDispatcher
	pusher   *mocks.MockPusher
}

func newFixture(t *testing.T, opts ...progress.Option) *fixture {
	t.Helper()
	f := &fixture{
		clock:    testutil.NewClock(start),
		dispatch: &mocks.RecordingDispatcher{},
		pusher:   &mocks.MockPusher{},
	}
	base := []progress.Option{
		progress.WithClock(f.clock.Now),
		progress.WithPusher(f.pusher, f.dispatch),
		progress.WithLogger(logger.Discard()),
	}
	s, err := progress.Open(context.Background(), "u1", append(base, opts...)...)
	require.NoError(t, err)
	f.store = s
	return f
}

func TestOpen_Defaults(t *testing.T) {
	f := newFixture(t)
	p := f.store.Snapshot()

	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, []string{}, p.LearnedWords)
	assert.Equal(t, 1, p.CurrentLevel)
	assert.Equal(t, 0, p.ExperiencePoints)
	assert.Equal(t, "", p.LastStudyDate)
	assert.Empty(t, p.StudySessions)
	assert.Equal(t, models.SyncIdle, p.SyncStatus)
	assert.Nil(t, p.LastSyncTime)
}

func TestAddExperiencePoints_LevelTracksEveryCall(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sum := 0
	for _, p := range []int{30, 70, 1, 99, 250, 5} {
		require.NoError(t, f.store.AddExperiencePoints(ctx, p))
		sum += p
		snap := f.store.Snapshot()
		assert.Equal(t, sum, snap.ExperiencePoints)
		assert.Equal(t, sum/100+1, snap.CurrentLevel, "after adding %d", p)
	}
	assert.Len(t, f.dispatch.Jobs, 6)
}

func TestAddExperiencePoints_NonPositiveIsNoOp(t *testing.T) {
	local := &mocks.MockProgressStateRepository{}
	local.On("Load", mock.Anything, "u1").Return(nil, nil)
	f := newFixture(t, progress.WithLocalStore(local))
	ctx := context.Background()

	before := f.store.Snapshot()
	require.NoError(t, f.store.AddExperiencePoints(ctx, 0))
	require.NoError(t, f.store.AddExperiencePoints(ctx, -5))

	assert.Equal(t, before, f.store.Snapshot())
	assert.Empty(t, f.dispatch.Jobs)
	local.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAddExperiencePoints_ConcurrentCallsAreNotLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.store.AddExperiencePoints(ctx, 7))
			snap := f.store.Snapshot()
			assert.Equal(t, snap.ExperiencePoints/100+1, snap.CurrentLevel)
		}()
	}
	wg.Wait()

	snap := f.store.Snapshot()
	assert.Equal(t, 350, snap.ExperiencePoints)
	assert.Equal(t, 4, snap.CurrentLevel)
}

func TestAddLearnedWord_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.AddLearnedWord(ctx, "w1"))
	require.NoError(t, f.store.AddLearnedWord(ctx, "w1"))

	assert.Equal(t, []string{"w1"}, f.store.Snapshot().LearnedWords)
	assert.True(t, f.store.IsWordLearned("w1"))
	assert.False(t, f.store.IsWordLearned("w2"))
	assert.Equal(t, []string{"push_word_add"}, f.dispatch.Names())
}

func TestRemoveLearnedWord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddLearnedWord(ctx, "w1"))
	require.NoError(t, f.store.AddLearnedWord(ctx, "w2"))

	before := f.store.Snapshot()
	require.NoError(t, f.store.RemoveLearnedWord(ctx, "absent"))
	assert.Equal(t, before, f.store.Snapshot())

	require.NoError(t, f.store.RemoveLearnedWord(ctx, "w1"))
	assert.Equal(t, []string{"w2"}, f.store.Snapshot().LearnedWords)
	assert.Equal(t, []string{"push_word_add", "push_word_add", "push_word_remove"}, f.dispatch.Names())

	job := f.dispatch.Jobs[2].(*worker.PushWordJob)
	assert.Equal(t, models.WordPatch{WordID: "w1", Action: models.WordRemove}, job.Patch)
}

func TestUpdateStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	today := streak.LocalDate(start)

	d, err := f.store.UpdateStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, streak.Reset, d.Action)
	assert.Equal(t, 1, f.store.Snapshot().StreakDays)
	assert.Equal(t, today, f.store.Snapshot().LastStudyDate)

	d, err = f.store.UpdateStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, streak.NoOp, d.Action)
	assert.Equal(t, 1, f.store.Snapshot().StreakDays)

	f.clock.Set(start.AddDate(0, 0, 1))
	_, err = f.store.UpdateStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.Snapshot().StreakDays)

	f.clock.Set(start.AddDate(0, 0, 4))
	_, err = f.store.UpdateStreak(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Snapshot().StreakDays)
	assert.Equal(t, streak.LocalDate(start.AddDate(0, 0, 4)), f.store.Snapshot().LastStudyDate)

	assert.Empty(t, f.dispatch.Jobs, "streak updates are not pushed")
}

func TestAddStudySession_StampsAndPushes(t *testing.T) {
	f := newFixture(t)

	s, err := f.store.AddStudySession(context.Background(), models.NewStudySession{
		DurationMinutes: 4,
		WordsPracticed:  10,
		QuizScore:       models.IntPtr(80),
		ActivityType:    models.ActivityQuiz,
		XPEarned:        80,
	})
	require.NoError(t, err)
	assert.True(t, start.Equal(s.Date))

	require.Len(t, f.dispatch.Jobs, 1)
	job := f.dispatch.Jobs[0].(*worker.PushSessionJob)
	assert.Equal(t, models.SessionUploadFrom(s), job.Session)
}

func TestAddStudySession_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.AddStudySession(ctx, models.NewStudySession{ActivityType: "video"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	_, err = f.store.AddStudySession(ctx, models.NewStudySession{ActivityType: models.ActivityLearning, DurationMinutes: -1})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	assert.Empty(t, f.store.Snapshot().StudySessions)
}

func TestAddStudySession_CapsAtLimit(t *testing.T) {
	f := newFixture(t, progress.WithPusher(nil, nil))
	ctx := context.Background()

	for i := 0; i < models.MaxStudySessions+1; i++ {
		_, err := f.store.AddStudySession(ctx, models.NewStudySession{DurationMinutes: i, ActivityType: models.ActivityFlashcard})
		require.NoError(t, err)
	}

	sessions := f.store.Snapshot().StudySessions
	require.Len(t, sessions, models.MaxStudySessions)
	assert.Equal(t, 1, sessions[0].DurationMinutes)
	assert.Equal(t, models.MaxStudySessions, sessions[len(sessions)-1].DurationMinutes)
}

func TestLevelProgress(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.AddExperiencePoints(context.Background(), 250))

	assert.Equal(t, models.LevelProgress{
		CurrentLevel:           3,
		CurrentXP:              250,
		XPInCurrentLevel:       50,
		XPRequiredForNextLevel: 100,
		ProgressPercentage:     50,
	}, f.store.LevelProgress())
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	add := func(day, minutes int) {
		f.clock.Set(start.AddDate(0, 0, day))
		_, err := f.store.AddStudySession(ctx, models.NewStudySession{DurationMinutes: minutes, ActivityType: models.ActivityFlashcard})
		require.NoError(t, err)
	}
	// days 0,1,2 form a run of three; day 2 twice collapses; day 5 stands alone
	add(0, 1)
	add(1, 2)
	add(2, 2)
	add(2, 3)
	add(5, 2)
	require.NoError(t, f.store.AddLearnedWord(ctx, "w1"))
	require.NoError(t, f.store.AddExperiencePoints(ctx, 40))
	_, err := f.store.UpdateStreak(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.Stats{
		TotalWordsLearned:      1,
		TotalXPEarned:          40,
		TotalSessionsCompleted: 5,
		AverageSessionDuration: 2,
		CurrentStreak:          1,
		LongestStreak:          3,
	}, f.store.Stats())
}

func TestStats_Empty(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, models.Stats{}, f.store.Stats())
}

func TestResetProgress_KeepsSyncStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.AddLearnedWord(ctx, "w1"))
	require.NoError(t, f.store.AddExperiencePoints(ctx, 230))
	_, err := f.store.UpdateStreak(ctx)
	require.NoError(t, err)
	_, err = f.store.AddStudySession(ctx, models.NewStudySession{ActivityType: models.ActivityQuiz})
	require.NoError(t, err)
	require.NoError(t, f.store.SetSyncStatus(ctx, models.SyncError))

	require.NoError(t, f.store.ResetProgress(ctx))

	p := f.store.Snapshot()
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, []string{}, p.LearnedWords)
	assert.Equal(t, 0, p.ExperiencePoints)
	assert.Equal(t, 1, p.CurrentLevel)
	assert.Equal(t, 0, p.StreakDays)
	assert.Equal(t, "", p.LastStudyDate)
	assert.Empty(t, p.StudySessions)
	assert.Equal(t, models.SyncError, p.SyncStatus)
}

func TestOffline_SkipsPushes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetSyncStatus(ctx, models.SyncOffline))

	require.NoError(t, f.store.AddLearnedWord(ctx, "w1"))
	require.NoError(t, f.store.AddExperiencePoints(ctx, 10))
	_, err := f.store.AddStudySession(ctx, models.NewStudySession{ActivityType: models.ActivityLearning})
	require.NoError(t, err)

	assert.Empty(t, f.dispatch.Jobs)
	assert.Equal(t, 10, f.store.Snapshot().ExperiencePoints)
}

func TestRejectedPush_KeepsMutation(t *testing.T) {
	f := newFixture(t)
	f.dispatch.Reject = true

	require.NoError(t, f.store.AddExperiencePoints(context.Background(), 10))
	assert.Equal(t, 10, f.store.Snapshot().ExperiencePoints)
}

func TestSetSyncStatus_RejectsUnknown(t *testing.T) {
	f := newFixture(t)
	err := f.store.SetSyncStatus(context.Background(), "paused")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestSetSyncStatus_RejectsSyncing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.SetSyncStatus(ctx, models.SyncSyncing)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.Equal(t, models.SyncIdle, f.store.SyncStatus())

	_, err = f.store.BeginSync(ctx)
	require.NoError(t, err, "sync can still start normally")
	assert.Equal(t, models.SyncSyncing, f.store.SyncStatus())
}

func TestPersistenceFailure_KeepsInMemoryState(t *testing.T) {
	local := &mocks.MockProgressStateRepository{}
	local.On("Load", mock.Anything, "u1").Return(nil, nil)
	local.On("Save", mock.Anything, mock.Anything).Return(assert.AnError)
	f := newFixture(t, progress.WithLocalStore(local))

	err := f.store.AddExperiencePoints(context.Background(), 20)
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 20, f.store.Snapshot().ExperiencePoints)
	assert.Len(t, f.dispatch.Jobs, 1)
}

func TestOpen_LoadFailureDegradesToMemory(t *testing.T) {
	local := &mocks.MockProgressStateRepository{}
	local.On("Load", mock.Anything, "u1").Return(nil, assert.AnError)

	s, err := progress.Open(context.Background(), "u1", progress.WithLocalStore(local), progress.WithLogger(logger.Discard()))
	require.Error(t, err)
	assert.True(t, errors.IsPersistence(err))
	require.NotNil(t, s)
	assert.Equal(t, models.NewUserProgress("u1"), s.Snapshot())
}

func TestOpen_RepairsLoadedState(t *testing.T) {
	stored := models.NewUserProgress("u1")
	stored.ExperiencePoints = 250
	stored.CurrentLevel = 1
	stored.LearnedWords = []string{"a", "a", "b"}
	stored.SyncStatus = models.SyncSyncing

	local := &mocks.MockProgressStateRepository{}
	local.On("Load", mock.Anything, "u1").Return(&stored, nil)

	s, err := progress.Open(context.Background(), "u1", progress.WithLocalStore(local), progress.WithLogger(logger.Discard()))
	require.NoError(t, err)

	p := s.Snapshot()
	assert.Equal(t, 3, p.CurrentLevel)
	assert.Equal(t, []string{"a", "b"}, p.LearnedWords)
	assert.Equal(t, models.SyncIdle, p.SyncStatus)
}

func TestRoundTrip_ThroughSQLiteStore(t *testing.T) {
	repo := sqlstore.NewProgressStateRepository(testutil.NewTestDB(t))
	ctx := context.Background()
	clock := testutil.NewClock(start)
	opts := []progress.Option{progress.WithLocalStore(repo), progress.WithClock(clock.Now), progress.WithLogger(logger.Discard())}

	s, err := progress.Open(ctx, "u1", opts...)
	require.NoError(t, err)
	require.NoError(t, s.AddLearnedWord(ctx, "xin_chao"))
	require.NoError(t, s.AddExperiencePoints(ctx, 130))
	_, err = s.UpdateStreak(ctx)
	require.NoError(t, err)
	_, err = s.AddStudySession(ctx, models.NewStudySession{
		DurationMinutes: 3, WordsPracticed: 5, QuizScore: models.IntPtr(4), ActivityType: models.ActivityQuiz, XPEarned: 40, WordsLearned: 1,
	})
	require.NoError(t, err)
	require.NoError(t, s.CompleteSync(ctx, remoteOf(s.Snapshot()), start.Add(time.Minute)))
	require.NoError(t, s.SetSyncStatus(ctx, models.SyncOffline))
	before := s.Snapshot()
	require.NoError(t, s.Close())

	reopened, err := progress.Open(ctx, "u1", opts...)
	require.NoError(t, err)
	assert.Equal(t, before, reopened.Snapshot())

	info, err := reopened.StorageInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.ItemCount)
}

func TestClose_RejectsMutations(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	assert.ErrorIs(t, f.store.AddExperiencePoints(context.Background(), 5), progress.ErrClosed)
	_, err := f.store.BeginSync(context.Background())
	assert.ErrorIs(t, err, progress.ErrClosed)
	assert.Equal(t, 0, f.store.Snapshot().ExperiencePoints)
}

func remoteOf(p models.UserProgress) models.SyncSnapshot {
	snap := models.SyncSnapshot{
		Progress: models.RemoteProgress{
			LearnedWords:     p.LearnedWords,
			CurrentLevel:     p.CurrentLevel,
			ExperiencePoints: p.ExperiencePoints,
			StreakDays:       p.StreakDays,
			LastStudyDate:    p.LastStudyDate,
		},
	}
	for _, s := range p.StudySessions {
		snap.Sessions = append(snap.Sessions, models.RemoteSessionFrom(s))
	}
	return snap
}
