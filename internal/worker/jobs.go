package worker

import (
	"context"

	"github.com/kmnkit/vietnamese-word-cards/internal/logger"
	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// PushWordJob reports a learned-word toggle.
type PushWordJob struct {
	Pusher Pusher
	Patch  models.WordPatch
}

func (j *PushWordJob) Name() string { return "push_word_" + string(j.Patch.Action) }

func (j *PushWordJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("word_id", j.Patch.WordID)
	res, err := j.Pusher.PatchWord(ctx, j.Patch)
	if err != nil {
		return err
	}
	if res != nil {
		log.Debug("remote now has %d learned words", len(res.LearnedWords))
	}
	return nil
}

// PushXPJob reports an experience-point delta. The remote's recomputed
// totals are logged only; local state stays authoritative.
type PushXPJob struct {
	Pusher Pusher
	Points int
}

func (j *PushXPJob) Name() string { return "push_xp" }

func (j *PushXPJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("points", j.Points)
	res, err := j.Pusher.PatchXP(ctx, j.Points)
	if err != nil {
		return err
	}
	if res != nil {
		log.Debug("remote totals: xp=%d level=%d", res.ExperiencePoints, res.CurrentLevel)
	}
	return nil
}

// PushSessionJob uploads one completed study session.
type PushSessionJob struct {
	Pusher  Pusher
	Session models.SessionUpload
}

func (j *PushSessionJob) Name() string { return "push_session" }

func (j *PushSessionJob) Run(ctx context.Context) error {
	return j.Pusher.PostSession(ctx, j.Session)
}
