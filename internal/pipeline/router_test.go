package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/models"
)

func TestApproveRetiresSiblings(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()

	winner := rig.seedPost(models.StatusPendingReview)
	loserA := rig.seedPost(models.StatusPendingReview)
	loserB := rig.seedPost(models.StatusPendingReview)

	res, err := rig.router.Apply(ctx, Command{Trigger: TriggerApprove, PostID: winner.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusApproved, res.Post.Status)
	assert.NotNil(t, res.Post.ApprovedAt)

	for _, loser := range []*models.Post{loserA, loserB} {
		got, err := rig.store.Get(ctx, loser.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, got.Status, "sibling %s must be retired", loser.ID)
	}

	assert.Equal(t, 1, rig.notifier.count("post_approved"))
}

func TestDuplicateApproveIsNoOp(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusPendingReview)

	first, err := rig.router.Apply(ctx, Command{Trigger: TriggerApprove, PostID: post.ID})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, first.Outcome)

	second, err := rig.router.Apply(ctx, Command{Trigger: TriggerApprove, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, second.Outcome)
	assert.Equal(t, models.StatusApproved, second.Post.Status)
	assert.Equal(t, 1, rig.notifier.count("post_approved"))
}

func TestApproveLosesSlotToActiveSibling(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	rig.seedPost(models.StatusApproved)
	challenger := rig.seedPost(models.StatusPendingReview)

	res, err := rig.router.Apply(ctx, Command{Trigger: TriggerApprove, PostID: challenger.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, res.Outcome)

	got, err := rig.store.Get(ctx, challenger.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, got.Status)
}

func TestConcurrentApprovesPickOneWinner(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()

	var posts []*models.Post
	for i := 0; i < 3; i++ {
		posts = append(posts, rig.seedPost(models.StatusPendingReview))
	}

	var wg sync.WaitGroup
	for _, post := range posts {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := rig.router.Apply(ctx, Command{Trigger: TriggerApprove, PostID: id})
			assert.NoError(t, err)
		}(post.ID)
	}
	wg.Wait()

	approved := 0
	for _, post := range posts {
		got, err := rig.store.Get(ctx, post.ID)
		require.NoError(t, err)
		if got.Status == models.StatusApproved {
			approved++
		} else {
			assert.Equal(t, models.StatusFailed, got.Status)
		}
	}
	assert.Equal(t, 1, approved, "exactly one concurrent approval must win")
}

func TestUnknownTargetIsAcknowledged(t *testing.T) {
	rig := newTestRig()

	res, err := rig.router.Apply(context.Background(), Command{Trigger: TriggerApprove, PostID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknownTarget, res.Outcome)
}

func TestResolveBySlotStatus(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusApproved)

	res, err := rig.router.Apply(ctx, Command{
		Trigger:      TriggerRequestVideo,
		FindStatuses: []models.PostStatus{models.StatusApproved},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, post.ID, res.Post.ID)
	assert.Equal(t, models.StatusWaitingVideo, res.Post.Status)
	assert.Equal(t, 1, rig.notifier.count("video_requested"))
}

func TestRegenerateReplacesPayload(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusPendingReview)

	res, err := rig.router.Apply(ctx, Command{Trigger: TriggerRegenerate, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusPendingReview, res.Post.Status)
	assert.Equal(t, 1, res.Post.RegenerationCount)
	assert.NotEqual(t, post.Caption, res.Post.Caption)
	assert.Equal(t, 1, rig.notifier.count("draft_ready"))
}

func TestRegenerateApprovedSkipsGeneration(t *testing.T) {
	rig := newTestRig()
	post := rig.seedPost(models.StatusApproved)

	res, err := rig.router.Apply(context.Background(), Command{Trigger: TriggerRegenerate, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, res.Outcome)
	assert.Equal(t, 0, rig.generator.callCount(), "stale regenerate must not call the model")
}

func TestSkipFromEachEligibleStatus(t *testing.T) {
	for _, status := range []models.PostStatus{
		models.StatusPendingReview,
		models.StatusApproved,
		models.StatusWaitingVideo,
		models.StatusReadyForReview,
		models.StatusScheduled,
	} {
		t.Run(string(status), func(t *testing.T) {
			rig := newTestRig()
			post := rig.seedPost(status)

			res, err := rig.router.Apply(context.Background(), Command{Trigger: TriggerSkip, PostID: post.ID})
			require.NoError(t, err)
			assert.Equal(t, OutcomeApplied, res.Outcome)
			assert.Equal(t, models.StatusFailed, res.Post.Status)
		})
	}
}

func TestConcurrentSkipsApplyOnce(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusReadyForReview)

	outcomes := make(chan Outcome, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := rig.router.Apply(ctx, Command{Trigger: TriggerSkip, PostID: post.ID})
			assert.NoError(t, err)
			outcomes <- res.Outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	applied := 0
	for outcome := range outcomes {
		if outcome == OutcomeApplied {
			applied++
		}
	}
	assert.Equal(t, 1, applied, "exactly one concurrent skip may apply")

	got, err := rig.store.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
}

func TestSkipPostedIsNoOp(t *testing.T) {
	rig := newTestRig()
	post := rig.seedPost(models.StatusPosted)

	res, err := rig.router.Apply(context.Background(), Command{Trigger: TriggerSkip, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, res.Outcome)
	assert.Equal(t, models.StatusPosted, res.Post.Status)
}

func TestStartRenderSubmitsAndRecordsJob(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusWaitingVideo, withClips("clip-1.mp4", "clip-2.mp4"))

	res, err := rig.router.Apply(ctx, Command{Trigger: TriggerStartRender, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusRendering, res.Post.Status)
	require.NotNil(t, res.Post.RenderJobID)
	assert.NotNil(t, res.Post.RenderStartedAt)

	submits := rig.engine.submitted()
	require.Len(t, submits, 1)
	assert.Equal(t, []string{"clip-1.mp4", "clip-2.mp4"}, submits[0].ClipURLs)
	assert.Contains(t, submits[0].AudioURL, "audio/"+post.ID)
}

func TestStartRenderWithoutClipsFails(t *testing.T) {
	rig := newTestRig()
	post := rig.seedPost(models.StatusWaitingVideo)

	_, err := rig.router.Apply(context.Background(), Command{Trigger: TriggerStartRender, PostID: post.ID})
	require.Error(t, err)
	assert.Empty(t, rig.engine.submitted())

	got, err := rig.store.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaitingVideo, got.Status)
}

func TestDuplicateStartRenderSubmitsOnce(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusWaitingVideo, withClips("clip.mp4"))

	first, err := rig.router.Apply(ctx, Command{Trigger: TriggerStartRender, PostID: post.ID})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, first.Outcome)

	second, err := rig.router.Apply(ctx, Command{Trigger: TriggerStartRender, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, second.Outcome)
	assert.Len(t, rig.engine.submitted(), 1)
}

func TestScheduleDefaultsToPublishHour(t *testing.T) {
	rig := newTestRig()
	post := rig.seedPost(models.StatusReadyForReview)

	res, err := rig.router.Apply(context.Background(), Command{Trigger: TriggerSchedule, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusScheduled, res.Post.Status)
	require.NotNil(t, res.Post.ScheduledFor)
	assert.Equal(t, 17, res.Post.ScheduledFor.Hour())
	assert.Equal(t, time.UTC, res.Post.ScheduledFor.Location())
}

func TestScheduleHonorsExplicitTime(t *testing.T) {
	rig := newTestRig()
	post := rig.seedPost(models.StatusReadyForReview)
	when := time.Date(2026, 9, 2, 9, 30, 0, 0, time.UTC)

	res, err := rig.router.Apply(context.Background(), Command{
		Trigger: TriggerSchedule,
		PostID:  post.ID,
		When:    when,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Post.ScheduledFor)
	assert.True(t, when.Equal(*res.Post.ScheduledFor))
}

func TestCancelScheduleClearsTime(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	when := time.Now().UTC().Add(2 * time.Hour)
	post := rig.seedPost(models.StatusScheduled, withScheduledFor(when))

	res, err := rig.router.Apply(ctx, Command{Trigger: TriggerCancelSchedule, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusReadyForReview, res.Post.Status)
	assert.Nil(t, res.Post.ScheduledFor)
}

func TestPublishRecordsItemAndNotifies(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusReadyForReview)

	res, err := rig.router.Apply(ctx, Command{Trigger: TriggerPublish, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, res.Outcome)
	assert.Equal(t, models.StatusPosted, res.Post.Status)
	assert.Equal(t, "ig-"+post.ID, res.Post.PublishedItemID)
	assert.NotNil(t, res.Post.PostedAt)
	assert.Equal(t, 1, rig.notifier.count("published"))
}

func TestDuplicatePublishCallsPlatformOnce(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusScheduled)

	first, err := rig.router.Apply(ctx, Command{Trigger: TriggerPublish, PostID: post.ID})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, first.Outcome)

	second, err := rig.router.Apply(ctx, Command{Trigger: TriggerPublish, PostID: post.ID})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoOp, second.Outcome)
	assert.Equal(t, 1, rig.publisher.callCount())
}

func TestAttachClips(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	post := rig.seedPost(models.StatusWaitingVideo)

	got, err := rig.router.AttachClips(ctx, post.ID, []string{"a.mp4", "b.mp4"})
	require.NoError(t, err)
	assert.Equal(t, models.StringArray{"a.mp4", "b.mp4"}, got.VideoClips)
	assert.NotNil(t, got.VideoUploadedAt)
	assert.Equal(t, models.StatusWaitingVideo, got.Status, "attaching clips is not a transition")
}

func TestAttachClipsOutsideCollectionPhase(t *testing.T) {
	rig := newTestRig()
	post := rig.seedPost(models.StatusRendering)

	_, err := rig.router.AttachClips(context.Background(), post.ID, []string{"a.mp4"})
	require.Error(t, err)
}
