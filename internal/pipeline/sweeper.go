package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/store"
)

// Sweeper promotes scheduled posts whose publish time has passed. Each
// promotion is an independent publish trigger through the router, so the
// sweep is naturally idempotent: a post published by a previous sweep or
// by hand simply leaves the selection set.
type Sweeper struct {
	store  store.Store
	router *Router
	logger *zap.Logger
}

func NewSweeper(s store.Store, router *Router, logger *zap.Logger) *Sweeper {
	return &Sweeper{store: s, router: router, logger: logger}
}

// Sweep publishes every due post and returns how many went live. A failure
// publishing one due item does not block the others.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, post := range due {
		result, err := s.router.Apply(ctx, Command{
			Trigger: TriggerPublish,
			PostID:  post.ID,
		})
		if err != nil {
			s.logger.Error("Due-item publish failed",
				zap.String("post_id", post.ID),
				zap.Error(err))
			continue
		}
		if result.Outcome == OutcomeApplied {
			published++
		}
	}

	if len(due) > 0 {
		s.logger.Info("Due-item sweep completed",
			zap.Int("due", len(due)),
			zap.Int("published", published))
	}
	return published, nil
}
