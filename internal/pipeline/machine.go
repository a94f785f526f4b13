// Package pipeline contains the orchestration core: the per-Post state
// machine, the command router that validates and applies triggers from the
// chat channels and cron sweeps, the render-job correlator, and the
// due-item sweeper. Every status change in the system goes through the
// transition table in this package.
package pipeline

import "github.com/reelforge/reelforge/internal/models"

// Trigger names an external event that may cause a Post transition.
type Trigger string

const (
	TriggerApprove         Trigger = "approve"
	TriggerRegenerate      Trigger = "regenerate"
	TriggerSkip            Trigger = "skip"
	TriggerRequestVideo    Trigger = "request_video"
	TriggerStartRender     Trigger = "start_render"
	TriggerRenderSucceeded Trigger = "render_succeeded"
	TriggerRenderFailed    Trigger = "render_failed"
	TriggerSchedule        Trigger = "schedule"
	TriggerCancelSchedule  Trigger = "cancel_schedule"
	TriggerPublish         Trigger = "publish"
)

type transition struct {
	from []models.PostStatus
	to   models.PostStatus
}

// transitions is the single source of truth for what event may move a Post
// from where to where. A trigger arriving outside its from-set is a no-op;
// that rule is what makes every transition safe under duplicate and
// out-of-order delivery.
var transitions = map[Trigger]transition{
	TriggerApprove: {
		from: []models.PostStatus{models.StatusPendingReview},
		to:   models.StatusApproved,
	},
	TriggerRegenerate: {
		from: []models.PostStatus{models.StatusPendingReview},
		to:   models.StatusPendingReview,
	},
	TriggerSkip: {
		from: []models.PostStatus{
			models.StatusPendingReview,
			models.StatusReadyForReview,
			models.StatusScheduled,
			models.StatusWaitingVideo,
			models.StatusApproved,
		},
		to: models.StatusFailed,
	},
	TriggerRequestVideo: {
		from: []models.PostStatus{models.StatusApproved},
		to:   models.StatusWaitingVideo,
	},
	TriggerStartRender: {
		from: []models.PostStatus{models.StatusApproved, models.StatusWaitingVideo},
		to:   models.StatusRendering,
	},
	TriggerRenderSucceeded: {
		from: []models.PostStatus{models.StatusRendering},
		to:   models.StatusReadyForReview,
	},
	TriggerRenderFailed: {
		from: []models.PostStatus{models.StatusRendering},
		to:   models.StatusFailed,
	},
	TriggerSchedule: {
		from: []models.PostStatus{models.StatusReadyForReview},
		to:   models.StatusScheduled,
	},
	TriggerCancelSchedule: {
		from: []models.PostStatus{models.StatusScheduled},
		to:   models.StatusReadyForReview,
	},
	TriggerPublish: {
		from: []models.PostStatus{models.StatusReadyForReview, models.StatusScheduled},
		to:   models.StatusPosted,
	},
}

// CanApply reports whether trigger is valid for a Post in the given status.
func CanApply(status models.PostStatus, trigger Trigger) bool {
	t, ok := transitions[trigger]
	if !ok {
		return false
	}
	for _, from := range t.from {
		if from == status {
			return true
		}
	}
	return false
}

// Target returns the status the trigger moves a Post to.
func Target(trigger Trigger) (models.PostStatus, bool) {
	t, ok := transitions[trigger]
	if !ok {
		return "", false
	}
	return t.to, true
}

// KnownTrigger reports whether the name is part of the trigger vocabulary.
func KnownTrigger(name string) bool {
	_, ok := transitions[Trigger(name)]
	return ok
}
