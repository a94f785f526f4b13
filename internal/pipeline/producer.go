package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/service/generator"
	"github.com/reelforge/reelforge/internal/service/notify"
	"github.com/reelforge/reelforge/internal/store"
	"github.com/reelforge/reelforge/pkg/util"
)

// Producer creates the daily draft variants and runs the reminder steps
// that move the day's chosen post through the video-collection phase.
type Producer struct {
	store     store.Store
	generator generator.Generator
	router    *Router
	notifier  notify.Notifier
	logger    *zap.Logger
	variants  int
	now       func() time.Time
}

func NewProducer(s store.Store, gen generator.Generator, router *Router,
	notifier notify.Notifier, variants int, logger *zap.Logger) *Producer {
	if variants <= 0 {
		variants = 3
	}
	return &Producer{
		store:     s,
		generator: gen,
		router:    router,
		notifier:  notifier,
		logger:    logger,
		variants:  variants,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProduceDaily generates today's draft variants, persists them at
// pending_review, and notifies the channels with approval affordances.
// Generation of one variant failing does not discard the others. On a day
// with no scheduled post type it returns nil without error.
func (p *Producer) ProduceDaily(ctx context.Context) ([]*models.Post, error) {
	day, week := util.Slot(p.now())
	postType, ok := models.WeeklySchedule[day]
	if !ok {
		p.logger.Info("No post type scheduled today", zap.Int("day", day))
		return nil, nil
	}

	var created []*models.Post
	for i := 0; i < p.variants; i++ {
		payload, err := p.generator.Generate(ctx, postType, day, week)
		if err != nil {
			p.logger.Error("Draft generation failed",
				zap.Int("variant", i+1),
				zap.Error(err))
			continue
		}

		post := models.NewPost(postType, day, week, payload)
		if err := p.store.Create(ctx, post); err != nil {
			p.logger.Error("Failed to persist draft",
				zap.String("post_id", post.ID),
				zap.Error(err))
			continue
		}
		created = append(created, post)

		if err := p.notifier.DraftReady(ctx, post); err != nil {
			p.logger.Error("Draft notification failed",
				zap.String("post_id", post.ID),
				zap.Error(err))
		}
	}

	if len(created) == 0 {
		return nil, fmt.Errorf("no drafts produced for day %d week %d", day, week)
	}

	p.logger.Info("Daily drafts produced",
		zap.Int("count", len(created)),
		zap.String("post_type", string(postType)))
	return created, nil
}

// RemindApproved re-sends today's approved post content so the operator
// has the script and shot list at hand. No state change.
func (p *Producer) RemindApproved(ctx context.Context) (*models.Post, error) {
	day, week := util.Slot(p.now())
	posts, err := p.store.FindSlot(ctx, day, week, models.StatusApproved)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, nil
	}

	post := posts[0]
	if err := p.notifier.PostApproved(ctx, post); err != nil {
		return post, err
	}
	return post, nil
}

// RequestVideo promotes today's approved post into the upload phase and
// delivers the shot list with the upload affordance.
func (p *Producer) RequestVideo(ctx context.Context) (*Result, error) {
	return p.router.Apply(ctx, Command{
		Trigger:      TriggerRequestVideo,
		FindStatuses: []models.PostStatus{models.StatusApproved},
	})
}
