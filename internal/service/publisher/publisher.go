// Package publisher is the publishing collaborator: it takes the final
// media plus caption and returns the platform's published-item id. The
// platform runs its own submit/poll/finalize protocol internally; the
// pipeline's state-machine guard is what prevents double publishing, the
// platform itself is not assumed idempotent.
package publisher

import (
	"context"

	"github.com/reelforge/reelforge/internal/models"
)

// PublishResult is the outcome of a publish call.
type PublishResult struct {
	PublishedItemID string
	URL             string
}

// Publisher pushes a finished post live.
type Publisher interface {
	Publish(ctx context.Context, post *models.Post) (*PublishResult, error)
}
