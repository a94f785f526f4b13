// Package store provides the durable keyed Post record plus the derived
// render-job lookup. It is the only mutable shared resource in the system;
// all status changes go through the atomic Update entry point.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/reelforge/reelforge/internal/models"
)

var (
	// ErrNotFound means the id or lookup key resolved to nothing.
	ErrNotFound = errors.New("post not found")

	// ErrAbort can be returned from an Update mutation to discard the
	// change without treating it as a failure. The stored record is left
	// untouched and Update returns the post as read.
	ErrAbort = errors.New("update aborted")
)

// UpdateFunc mutates a post inside an atomic read-validate-write cycle.
type UpdateFunc func(post *models.Post) error

// Store is the keyed Post record. Implementations must serialize Update
// calls per Post id so that concurrent triggers resolve to some sequential
// ordering, never a corrupted interleaving.
type Store interface {
	Create(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, id string) (*models.Post, error)

	// GetByRenderJobID resolves a render callback to its Post. The mapping
	// is a secondary lookup derived from the Post records themselves.
	GetByRenderJobID(ctx context.Context, jobID string) (*models.Post, error)

	// Update runs fn on the current record under the per-Post lock and
	// persists the result, unless fn returns ErrAbort.
	Update(ctx context.Context, id string, fn UpdateFunc) (*models.Post, error)

	// FindSlot returns all posts sharing a (day, week) sibling slot,
	// optionally filtered by status ("" means any).
	FindSlot(ctx context.Context, dayOfWeek, weekNumber int, status models.PostStatus) ([]*models.Post, error)

	// ListDue returns publishable posts whose scheduled time has passed.
	ListDue(ctx context.Context, now time.Time) ([]*models.Post, error)

	// ListPostedSince returns posts that went live at or after since.
	ListPostedSince(ctx context.Context, since time.Time) ([]*models.Post, error)

	List(ctx context.Context) ([]*models.Post, error)
}

// ActiveInSlot reports the post currently holding a sibling slot, if any.
func ActiveInSlot(ctx context.Context, s Store, dayOfWeek, weekNumber int) (*models.Post, error) {
	siblings, err := s.FindSlot(ctx, dayOfWeek, weekNumber, "")
	if err != nil {
		return nil, err
	}
	for _, p := range siblings {
		if p.Status.IsActive() {
			return p, nil
		}
	}
	return nil, nil
}
