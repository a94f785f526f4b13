// Package notify is the notification gateway: outbound messages with
// action affordances on two chat channels. Telegram supports structured
// callback buttons; WhatsApp (Twilio) only link-style and quick-reply
// actions. Inbound replies from both channels are normalized into the
// pipeline trigger vocabulary by the HTTP layer, never here.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
)

// Notifier delivers pipeline notifications. Implementations must treat
// delivery as best-effort; the pipeline never rolls back a committed
// transition because a notification failed.
type Notifier interface {
	// DraftReady shows a fresh or regenerated draft with
	// approve/regenerate/skip affordances.
	DraftReady(ctx context.Context, post *models.Post) error

	// PostApproved confirms the chosen draft for the day.
	PostApproved(ctx context.Context, post *models.Post) error

	// VideoRequested asks the operator to shoot and upload clips, with
	// start-render and skip affordances.
	VideoRequested(ctx context.Context, post *models.Post) error

	// ReviewReady announces the finished render with publish/schedule and
	// reject affordances.
	ReviewReady(ctx context.Context, post *models.Post) error

	// RenderFailed reports a failed render job.
	RenderFailed(ctx context.Context, post *models.Post) error

	// Published confirms the post went live.
	Published(ctx context.Context, post *models.Post) error

	// Digest delivers a pre-formatted summary with no affordances, used
	// for the weekly performance report.
	Digest(ctx context.Context, text string) error
}

// Multi fans a notification out to every configured channel. A channel
// failure is logged and does not stop delivery to the others; the first
// error is returned for operator visibility.
type Multi struct {
	channels []Notifier
	logger   *zap.Logger
}

func NewMulti(logger *zap.Logger, channels ...Notifier) *Multi {
	return &Multi{channels: channels, logger: logger}
}

func (m *Multi) DraftReady(ctx context.Context, post *models.Post) error {
	return m.each(ctx, post, "draft_ready", Notifier.DraftReady)
}

func (m *Multi) PostApproved(ctx context.Context, post *models.Post) error {
	return m.each(ctx, post, "post_approved", Notifier.PostApproved)
}

func (m *Multi) VideoRequested(ctx context.Context, post *models.Post) error {
	return m.each(ctx, post, "video_requested", Notifier.VideoRequested)
}

func (m *Multi) ReviewReady(ctx context.Context, post *models.Post) error {
	return m.each(ctx, post, "review_ready", Notifier.ReviewReady)
}

func (m *Multi) RenderFailed(ctx context.Context, post *models.Post) error {
	return m.each(ctx, post, "render_failed", Notifier.RenderFailed)
}

func (m *Multi) Published(ctx context.Context, post *models.Post) error {
	return m.each(ctx, post, "published", Notifier.Published)
}

func (m *Multi) Digest(ctx context.Context, text string) error {
	var first error
	for _, ch := range m.channels {
		if err := ch.Digest(ctx, text); err != nil {
			m.logger.Warn("Digest delivery failed", zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (m *Multi) each(ctx context.Context, post *models.Post, template string, send func(Notifier, context.Context, *models.Post) error) error {
	var first error
	for _, ch := range m.channels {
		if err := send(ch, ctx, post); err != nil {
			m.logger.Warn("Notification delivery failed",
				zap.String("template", template),
				zap.String("post_id", post.ID),
				zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}
