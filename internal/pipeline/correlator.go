package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/service/media"
	"github.com/reelforge/reelforge/internal/service/notify"
	"github.com/reelforge/reelforge/internal/service/render"
	"github.com/reelforge/reelforge/internal/service/voice"
	"github.com/reelforge/reelforge/internal/store"
)

// Correlator owns the render-job side of the pipeline: it builds and
// submits the render spec, and resolves the engine's asynchronous callback
// back to exactly one post. The job-id mapping lives on the post record;
// any index over it is derived and rebuildable.
type Correlator struct {
	store       store.Store
	engine      render.Engine
	synthesizer voice.Synthesizer
	storage     media.Storage
	notifier    notify.Notifier
	logger      *zap.Logger
	now         func() time.Time
}

func NewCorrelator(s store.Store, engine render.Engine, synthesizer voice.Synthesizer,
	storage media.Storage, notifier notify.Notifier, logger *zap.Logger) *Correlator {
	return &Correlator{
		store:       s,
		engine:      engine,
		synthesizer: synthesizer,
		storage:     storage,
		notifier:    notifier,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit synthesizes the voiceover, stores it as a fetchable ref, and
// submits the render spec. It performs no state change itself; the caller
// records the returned job id together with the rendering transition.
// On any failure the post is untouched and the error is surfaced.
func (c *Correlator) Submit(ctx context.Context, post *models.Post) (string, error) {
	audio, err := c.synthesizer.Synthesize(ctx, post.VoiceoverScript)
	if err != nil {
		return "", fmt.Errorf("voiceover synthesis failed: %w", err)
	}

	audioURL, err := c.storage.Put(ctx, fmt.Sprintf("audio/%s.mp3", post.ID), audio, "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("voiceover upload failed: %w", err)
	}

	jobID, err := c.engine.Submit(ctx, render.Spec{
		AudioURL: audioURL,
		ClipURLs: post.VideoClips,
		Caption:  post.Caption,
		Subtitle: post.VoiceoverScript,
	})
	if err != nil {
		return "", err
	}

	c.logger.Info("Render job correlated",
		zap.String("post_id", post.ID),
		zap.String("job_id", jobID))
	return jobID, nil
}

// Resolve maps a completion callback to its post and applies the
// succeeded/failed transition. Unknown job ids and posts that already left
// rendering are acknowledged without effect, so the engine is never made
// to retry a delivery the pipeline has already absorbed.
func (c *Correlator) Resolve(ctx context.Context, result render.Result) (*Result, error) {
	post, err := c.store.GetByRenderJobID(ctx, result.JobID)
	if errors.Is(err, store.ErrNotFound) {
		c.logger.Warn("Render callback for unknown job",
			zap.String("job_id", result.JobID),
			zap.String("status", result.Status))
		return &Result{Outcome: OutcomeUnknownTarget}, nil
	}
	if err != nil {
		return nil, err
	}

	trigger := TriggerRenderSucceeded
	if result.Status != render.StatusSucceeded {
		trigger = TriggerRenderFailed
	}

	target, _ := Target(trigger)
	updated, err := c.store.Update(ctx, post.ID, func(p *models.Post) error {
		if !CanApply(p.Status, trigger) {
			return store.ErrAbort
		}
		p.Status = target
		if trigger == TriggerRenderSucceeded {
			p.VideoURL = result.URL
			p.CoverURL = result.CoverURL
			now := c.now()
			p.RenderCompletedAt = &now
		}
		return nil
	})
	if errors.Is(err, store.ErrAbort) {
		c.logger.Info("Render callback replay dropped",
			zap.String("job_id", result.JobID),
			zap.String("post_id", post.ID),
			zap.String("status", string(updated.Status)))
		return &Result{Outcome: OutcomeNoOp, Post: updated}, nil
	}
	if err != nil {
		return nil, err
	}

	var notifyErr error
	if trigger == TriggerRenderSucceeded {
		notifyErr = c.notifier.ReviewReady(ctx, updated)
	} else {
		notifyErr = c.notifier.RenderFailed(ctx, updated)
	}
	if notifyErr != nil {
		c.logger.Error("Render result notification failed",
			zap.String("post_id", updated.ID),
			zap.Error(notifyErr))
	}

	return &Result{Outcome: OutcomeApplied, Post: updated}, nil
}
