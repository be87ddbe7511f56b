package location

import (
	"context"
	"time"

	"geodeck/internal/core/id"
)

// Repository is the live location store. All mutating operations run
// against the ambient transaction in ctx when one is open; they never
// open their own transaction. The rollback reconciler depends on this to
// apply many mutations atomically.
type Repository interface {
	// GetByID returns the row regardless of tombstone state.
	// NotFound if no row exists at all.
	GetByID(ctx context.Context, projectID, locationID id.ID) (*Location, error)

	// ListLive returns non-deleted locations for a project.
	ListLive(ctx context.Context, projectID id.ID) ([]*Location, error)

	// Create inserts a new row, honoring the caller-supplied id.
	Create(ctx context.Context, loc *Location) error

	// UpdateAttrs overwrites the mutable attribute columns.
	// deleted_at is not touched.
	UpdateAttrs(ctx context.Context, locationID id.ID, attrs Attrs) error

	// SoftDelete sets the tombstone timestamp.
	SoftDelete(ctx context.Context, locationID id.ID, at time.Time) error

	// Undelete clears the tombstone.
	Undelete(ctx context.Context, locationID id.ID) error
}
