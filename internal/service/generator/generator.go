// Package generator is the content-model collaborator contract: given a
// content type and day/week slot it produces a complete draft payload, and
// given an existing post it produces a replacement payload.
package generator

import (
	"context"

	"github.com/reelforge/reelforge/internal/models"
)

// Generator produces draft payloads. Callable any number of times per slot
// to get independent variants.
type Generator interface {
	Generate(ctx context.Context, postType models.PostType, dayOfWeek, weekNumber int) (models.Payload, error)

	// Regenerate produces a wholly new payload for an existing draft. The
	// previous payload is passed so the model can avoid repeating itself.
	Regenerate(ctx context.Context, post *models.Post) (models.Payload, error)
}
