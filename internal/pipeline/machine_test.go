package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reelforge/reelforge/internal/models"
)

func TestCanApply(t *testing.T) {
	tests := []struct {
		name    string
		status  models.PostStatus
		trigger Trigger
		want    bool
	}{
		{"approve pending draft", models.StatusPendingReview, TriggerApprove, true},
		{"approve already approved", models.StatusApproved, TriggerApprove, false},
		{"approve posted", models.StatusPosted, TriggerApprove, false},
		{"regenerate pending draft", models.StatusPendingReview, TriggerRegenerate, true},
		{"regenerate approved", models.StatusApproved, TriggerRegenerate, false},
		{"skip pending", models.StatusPendingReview, TriggerSkip, true},
		{"skip approved", models.StatusApproved, TriggerSkip, true},
		{"skip waiting for video", models.StatusWaitingVideo, TriggerSkip, true},
		{"skip ready for review", models.StatusReadyForReview, TriggerSkip, true},
		{"skip scheduled", models.StatusScheduled, TriggerSkip, true},
		{"skip mid render", models.StatusRendering, TriggerSkip, false},
		{"skip posted", models.StatusPosted, TriggerSkip, false},
		{"skip failed", models.StatusFailed, TriggerSkip, false},
		{"request video when approved", models.StatusApproved, TriggerRequestVideo, true},
		{"request video twice", models.StatusWaitingVideo, TriggerRequestVideo, false},
		{"start render from approved", models.StatusApproved, TriggerStartRender, true},
		{"start render from waiting", models.StatusWaitingVideo, TriggerStartRender, true},
		{"start render while rendering", models.StatusRendering, TriggerStartRender, false},
		{"render succeeded while rendering", models.StatusRendering, TriggerRenderSucceeded, true},
		{"render succeeded replay", models.StatusReadyForReview, TriggerRenderSucceeded, false},
		{"render failed while rendering", models.StatusRendering, TriggerRenderFailed, true},
		{"render failed replay", models.StatusFailed, TriggerRenderFailed, false},
		{"schedule reviewed video", models.StatusReadyForReview, TriggerSchedule, true},
		{"schedule twice", models.StatusScheduled, TriggerSchedule, false},
		{"cancel schedule", models.StatusScheduled, TriggerCancelSchedule, true},
		{"cancel unscheduled", models.StatusReadyForReview, TriggerCancelSchedule, false},
		{"publish reviewed video", models.StatusReadyForReview, TriggerPublish, true},
		{"publish scheduled video", models.StatusScheduled, TriggerPublish, true},
		{"publish twice", models.StatusPosted, TriggerPublish, false},
		{"unknown trigger", models.StatusPendingReview, Trigger("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanApply(tt.status, tt.trigger))
		})
	}
}

func TestTarget(t *testing.T) {
	tests := []struct {
		trigger Trigger
		want    models.PostStatus
	}{
		{TriggerApprove, models.StatusApproved},
		{TriggerRegenerate, models.StatusPendingReview},
		{TriggerSkip, models.StatusFailed},
		{TriggerRequestVideo, models.StatusWaitingVideo},
		{TriggerStartRender, models.StatusRendering},
		{TriggerRenderSucceeded, models.StatusReadyForReview},
		{TriggerRenderFailed, models.StatusFailed},
		{TriggerSchedule, models.StatusScheduled},
		{TriggerCancelSchedule, models.StatusReadyForReview},
		{TriggerPublish, models.StatusPosted},
	}

	for _, tt := range tests {
		got, ok := Target(tt.trigger)
		assert.True(t, ok, "trigger %s", tt.trigger)
		assert.Equal(t, tt.want, got, "trigger %s", tt.trigger)
	}

	_, ok := Target(Trigger("bogus"))
	assert.False(t, ok)
}

func TestTerminalStatesHaveNoOutgoingTransitions(t *testing.T) {
	for trigger := range transitions {
		assert.False(t, CanApply(models.StatusPosted, trigger),
			"posted must not accept %s", trigger)
		assert.False(t, CanApply(models.StatusFailed, trigger),
			"failed must not accept %s", trigger)
	}
}

func TestKnownTrigger(t *testing.T) {
	assert.True(t, KnownTrigger("approve"))
	assert.True(t, KnownTrigger("render_succeeded"))
	assert.False(t, KnownTrigger("explode"))
}
