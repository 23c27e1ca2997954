package worker

import (
	"context"

	"github.com/kmnkit/vietnamese-word-cards/internal/models"
)

// Pusher sends single-mutation deltas to the remote collaborator.
// Defined here so the worker package does not import the remote client.
type Pusher interface {
	PatchWord(ctx context.Context, patch models.WordPatch) (*models.WordPatchResult, error)
	PatchXP(ctx context.Context, points int) (*models.XPResult, error)
	PostSession(ctx context.Context, session models.SessionUpload) error
}
