package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/models"
)

func TestSweepPublishesDuePosts(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	sweeper := NewSweeper(rig.store, rig.router, rig.router.logger)

	now := time.Now().UTC()
	dueA := rig.seedPost(models.StatusScheduled, withScheduledFor(now.Add(-time.Hour)))
	dueB := rig.seedPost(models.StatusScheduled, withScheduledFor(now.Add(-time.Minute)))
	future := rig.seedPost(models.StatusScheduled, withScheduledFor(now.Add(time.Hour)))

	published, err := sweeper.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, published)

	for _, id := range []string{dueA.ID, dueB.ID} {
		got, err := rig.store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPosted, got.Status)
	}

	got, err := rig.store.Get(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, got.Status, "future post must stay scheduled")
}

func TestSweepIsIdempotent(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	sweeper := NewSweeper(rig.store, rig.router, rig.router.logger)

	now := time.Now().UTC()
	rig.seedPost(models.StatusScheduled, withScheduledFor(now.Add(-time.Hour)))

	first, err := sweeper.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := sweeper.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Equal(t, 1, rig.publisher.callCount())
}

// A reviewed post carrying a past publish time is due even if the explicit
// schedule transition never landed.
func TestSweepPublishesReviewedPostWithPastTime(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	sweeper := NewSweeper(rig.store, rig.router, rig.router.logger)

	now := time.Now().UTC()
	post := rig.seedPost(models.StatusReadyForReview, withScheduledFor(now.Add(-time.Hour)))

	published, err := sweeper.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	got, err := rig.store.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPosted, got.Status)
	assert.NotEmpty(t, got.PublishedItemID)
}

func TestSweepContinuesPastFailures(t *testing.T) {
	rig := newTestRig()
	ctx := context.Background()
	rig.publisher.err = errors.New("platform down")
	sweeper := NewSweeper(rig.store, rig.router, rig.router.logger)

	now := time.Now().UTC()
	post := rig.seedPost(models.StatusScheduled, withScheduledFor(now.Add(-time.Hour)))

	published, err := sweeper.Sweep(ctx, now)
	require.NoError(t, err, "one failed item must not fail the sweep")
	assert.Equal(t, 0, published)

	// The post stays scheduled, so the next sweep retries it.
	got, err := rig.store.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScheduled, got.Status)
}
