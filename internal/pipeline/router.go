package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/models"
	"github.com/reelforge/reelforge/internal/service/generator"
	"github.com/reelforge/reelforge/internal/service/notify"
	"github.com/reelforge/reelforge/internal/service/publisher"
	"github.com/reelforge/reelforge/internal/store"
	"github.com/reelforge/reelforge/pkg/util"
)

// Outcome is the definite result of applying a command. Every path returns
// one of these so callers never have to guess whether to retry.
type Outcome string

const (
	OutcomeApplied       Outcome = "applied"
	OutcomeNoOp          Outcome = "noop"
	OutcomeUnknownTarget Outcome = "unknown_target"
)

// Command is one normalized inbound trigger, whichever channel it came
// from. Either PostID or FindStatuses identifies the target: channels whose
// payload carries no id look up today's post by status, in order.
type Command struct {
	Trigger      Trigger
	PostID       string
	FindStatuses []models.PostStatus
	When         time.Time // schedule time; zero means the default publish hour
}

// Result is returned for every applied command.
type Result struct {
	Outcome Outcome
	Post    *models.Post
}

// Router is the single entry point for all state transitions. It resolves
// the target post, validates the trigger against the transition table,
// applies the change atomically, and fires the side effect afterwards.
// Side-effect failures never roll back a committed transition.
type Router struct {
	store      store.Store
	generator  generator.Generator
	correlator *Correlator
	publisher  publisher.Publisher
	notifier   notify.Notifier
	logger     *zap.Logger

	// slotLocks serializes approvals per sibling slot so the first
	// committed approval wins. gates serialize the slow submit/publish
	// collaborator calls per post without holding the store lock.
	slotLocks *store.MutexMap
	gates     *store.MutexMap

	publishHour int
	now         func() time.Time
}

func NewRouter(s store.Store, gen generator.Generator, correlator *Correlator,
	pub publisher.Publisher, notifier notify.Notifier, publishHour int, logger *zap.Logger) *Router {
	return &Router{
		store:       s,
		generator:   gen,
		correlator:  correlator,
		publisher:   pub,
		notifier:    notifier,
		logger:      logger,
		slotLocks:   store.NewMutexMap(),
		gates:       store.NewMutexMap(),
		publishHour: publishHour,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Apply routes one command. The returned error means a downstream
// collaborator failed; any state change already committed stands.
func (r *Router) Apply(ctx context.Context, cmd Command) (*Result, error) {
	post, err := r.resolve(ctx, cmd)
	if errors.Is(err, store.ErrNotFound) {
		// Expected under cold start or replayed commands; acknowledged.
		r.logger.Warn("Command target not found",
			zap.String("trigger", string(cmd.Trigger)),
			zap.String("post_id", cmd.PostID))
		return &Result{Outcome: OutcomeUnknownTarget}, nil
	}
	if err != nil {
		return nil, err
	}

	switch cmd.Trigger {
	case TriggerApprove:
		return r.applyApprove(ctx, post)
	case TriggerRegenerate:
		return r.applyRegenerate(ctx, post)
	case TriggerStartRender:
		return r.applyStartRender(ctx, post)
	case TriggerPublish:
		return r.applyPublish(ctx, post)
	case TriggerSchedule:
		return r.applySchedule(ctx, post, cmd.When)
	case TriggerCancelSchedule:
		return r.applySimple(ctx, post.ID, TriggerCancelSchedule, func(p *models.Post) {
			p.ScheduledFor = nil
		}, nil)
	case TriggerSkip:
		return r.applySimple(ctx, post.ID, TriggerSkip, nil, nil)
	case TriggerRequestVideo:
		return r.applySimple(ctx, post.ID, TriggerRequestVideo, nil, r.notifier.VideoRequested)
	default:
		return nil, fmt.Errorf("unknown trigger %q", cmd.Trigger)
	}
}

func (r *Router) resolve(ctx context.Context, cmd Command) (*models.Post, error) {
	if cmd.PostID != "" {
		return r.store.Get(ctx, cmd.PostID)
	}

	day, week := util.Slot(r.now())
	for _, status := range cmd.FindStatuses {
		posts, err := r.store.FindSlot(ctx, day, week, status)
		if err != nil {
			return nil, err
		}
		if len(posts) > 0 {
			return posts[0], nil
		}
	}
	return nil, store.ErrNotFound
}

// transition applies one table-validated status change atomically. The
// bool result reports whether the change was applied; false means the
// trigger hit a post outside its from-set and no-opped.
func (r *Router) transition(ctx context.Context, id string, trigger Trigger, mutate func(*models.Post)) (*models.Post, bool, error) {
	target, ok := Target(trigger)
	if !ok {
		return nil, false, fmt.Errorf("unknown trigger %q", trigger)
	}

	post, err := r.store.Update(ctx, id, func(p *models.Post) error {
		if !CanApply(p.Status, trigger) {
			return store.ErrAbort
		}
		p.Status = target
		if mutate != nil {
			mutate(p)
		}
		return nil
	})
	if errors.Is(err, store.ErrAbort) {
		r.logger.Info("Trigger no-op, post not in an eligible state",
			zap.String("trigger", string(trigger)),
			zap.String("post_id", id),
			zap.String("status", string(post.Status)))
		return post, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return post, true, nil
}

func (r *Router) applySimple(ctx context.Context, id string, trigger Trigger,
	mutate func(*models.Post), sideEffect func(context.Context, *models.Post) error) (*Result, error) {
	post, applied, err := r.transition(ctx, id, trigger, mutate)
	if err != nil {
		return nil, err
	}
	if !applied {
		return &Result{Outcome: OutcomeNoOp, Post: post}, nil
	}

	if sideEffect != nil {
		if err := sideEffect(ctx, post); err != nil {
			r.logger.Error("Side effect failed after committed transition",
				zap.String("trigger", string(trigger)),
				zap.String("post_id", post.ID),
				zap.Error(err))
		}
	}
	return &Result{Outcome: OutcomeApplied, Post: post}, nil
}

func (r *Router) applyApprove(ctx context.Context, post *models.Post) (*Result, error) {
	// Approvals race across siblings, not just per post. Serialize on the
	// slot so the first committed approval wins and the loser no-ops.
	slotKey := fmt.Sprintf("slot:%d:%d", post.DayOfWeek, post.WeekNumber)
	r.slotLocks.Lock(slotKey)
	defer r.slotLocks.Unlock(slotKey)

	active, err := store.ActiveInSlot(ctx, r.store, post.DayOfWeek, post.WeekNumber)
	if err != nil {
		return nil, err
	}
	if active != nil && active.ID != post.ID {
		r.logger.Info("Approval lost the slot race",
			zap.String("post_id", post.ID),
			zap.String("winner_id", active.ID))
		return &Result{Outcome: OutcomeNoOp, Post: post}, nil
	}

	updated, applied, err := r.transition(ctx, post.ID, TriggerApprove, func(p *models.Post) {
		now := r.now()
		p.ApprovedAt = &now
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return &Result{Outcome: OutcomeNoOp, Post: updated}, nil
	}

	r.retireSiblings(ctx, updated)

	if err := r.notifier.PostApproved(ctx, updated); err != nil {
		r.logger.Error("Approval notification failed",
			zap.String("post_id", updated.ID),
			zap.Error(err))
	}
	return &Result{Outcome: OutcomeApplied, Post: updated}, nil
}

// retireSiblings moves every other pending_review variant of the slot to
// failed. Best effort: each retirement validates independently and a
// failure does not roll back the approval.
func (r *Router) retireSiblings(ctx context.Context, approved *models.Post) {
	siblings, err := r.store.FindSlot(ctx, approved.DayOfWeek, approved.WeekNumber, models.StatusPendingReview)
	if err != nil {
		r.logger.Error("Failed to enumerate siblings for retirement",
			zap.String("post_id", approved.ID),
			zap.Error(err))
		return
	}

	for _, sibling := range siblings {
		if sibling.ID == approved.ID {
			continue
		}
		if _, _, err := r.transition(ctx, sibling.ID, TriggerSkip, nil); err != nil {
			r.logger.Error("Failed to retire sibling",
				zap.String("post_id", approved.ID),
				zap.String("sibling_id", sibling.ID),
				zap.Error(err))
		}
	}
}

func (r *Router) applyRegenerate(ctx context.Context, post *models.Post) (*Result, error) {
	// Cheap pre-check so a stale regenerate doesn't burn a generation call.
	if !CanApply(post.Status, TriggerRegenerate) {
		return &Result{Outcome: OutcomeNoOp, Post: post}, nil
	}

	payload, err := r.generator.Regenerate(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("regeneration failed: %w", err)
	}

	updated, applied, err := r.transition(ctx, post.ID, TriggerRegenerate, func(p *models.Post) {
		p.ReplacePayload(payload)
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return &Result{Outcome: OutcomeNoOp, Post: updated}, nil
	}

	if err := r.notifier.DraftReady(ctx, updated); err != nil {
		r.logger.Error("Draft notification failed",
			zap.String("post_id", updated.ID),
			zap.Error(err))
	}
	return &Result{Outcome: OutcomeApplied, Post: updated}, nil
}

func (r *Router) applyStartRender(ctx context.Context, post *models.Post) (*Result, error) {
	// The gate keeps at most one render submission in flight per post
	// without holding the store lock across the engine call.
	gateKey := "render:" + post.ID
	r.gates.Lock(gateKey)
	defer r.gates.Unlock(gateKey)

	fresh, err := r.store.Get(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if !CanApply(fresh.Status, TriggerStartRender) {
		return &Result{Outcome: OutcomeNoOp, Post: fresh}, nil
	}
	if len(fresh.VideoClips) == 0 {
		return nil, fmt.Errorf("post %s has no video clips attached", fresh.ID)
	}

	jobID, err := r.correlator.Submit(ctx, fresh)
	if err != nil {
		// Submission failed before any state change; the post keeps its
		// prior status and no partial job id is stored.
		return nil, fmt.Errorf("render submission failed: %w", err)
	}

	updated, applied, err := r.transition(ctx, fresh.ID, TriggerStartRender, func(p *models.Post) {
		now := r.now()
		p.RenderJobID = &jobID
		p.RenderStartedAt = &now
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		// A skip won the race after submission. The engine's eventual
		// callback for this job will find no rendering post and no-op.
		r.logger.Warn("Render job orphaned by concurrent transition",
			zap.String("post_id", fresh.ID),
			zap.String("job_id", jobID))
		return &Result{Outcome: OutcomeNoOp, Post: updated}, nil
	}

	return &Result{Outcome: OutcomeApplied, Post: updated}, nil
}

func (r *Router) applySchedule(ctx context.Context, post *models.Post, when time.Time) (*Result, error) {
	if when.IsZero() {
		when = util.At(r.now(), r.publishHour)
	}
	return r.applySimple(ctx, post.ID, TriggerSchedule, func(p *models.Post) {
		t := when.UTC()
		p.ScheduledFor = &t
	}, nil)
}

func (r *Router) applyPublish(ctx context.Context, post *models.Post) (*Result, error) {
	// One publish call per post at a time; a concurrent sweep or manual
	// publish waits here and then sees posted, which no-ops.
	gateKey := "publish:" + post.ID
	r.gates.Lock(gateKey)
	defer r.gates.Unlock(gateKey)

	fresh, err := r.store.Get(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if !CanApply(fresh.Status, TriggerPublish) {
		return &Result{Outcome: OutcomeNoOp, Post: fresh}, nil
	}

	result, err := r.publisher.Publish(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("publish failed: %w", err)
	}

	updated, applied, err := r.transition(ctx, fresh.ID, TriggerPublish, func(p *models.Post) {
		now := r.now()
		p.PostedAt = &now
		p.PublishedItemID = result.PublishedItemID
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		r.logger.Warn("Publish committed downstream but post left the eligible state",
			zap.String("post_id", fresh.ID),
			zap.String("item_id", result.PublishedItemID))
		return &Result{Outcome: OutcomeNoOp, Post: updated}, nil
	}

	if err := r.notifier.Published(ctx, updated); err != nil {
		r.logger.Error("Publish notification failed",
			zap.String("post_id", updated.ID),
			zap.Error(err))
	}
	return &Result{Outcome: OutcomeApplied, Post: updated}, nil
}

// AttachClips records uploaded clip refs on a post awaiting video. Not a
// status transition; the clip list and upload timestamp are the only
// fields this touches.
func (r *Router) AttachClips(ctx context.Context, id string, clips []string) (*models.Post, error) {
	post, err := r.store.Update(ctx, id, func(p *models.Post) error {
		if p.Status != models.StatusApproved && p.Status != models.StatusWaitingVideo {
			return store.ErrAbort
		}
		p.VideoClips = append(p.VideoClips, clips...)
		now := r.now()
		p.VideoUploadedAt = &now
		return nil
	})
	if errors.Is(err, store.ErrAbort) {
		return post, fmt.Errorf("post %s is not collecting video (status %s)", id, post.Status)
	}
	return post, err
}
