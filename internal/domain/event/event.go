// Package event defines the post-commit notification contract.
// The ledger engine only emits events; delivery to connected viewers is
// an external collaborator fed by the transactional outbox relay.
package event

import (
	"context"

	"geodeck/internal/core/id"
)

// Event types emitted by the ledger engine.
const (
	TypeLocationCreated  = "location.created"
	TypeLocationUpdated  = "location.updated"
	TypeLocationDeleted  = "location.deleted"
	TypeLocationRestored = "location.rolled_back"
	TypeProjectRestored  = "project.rolled_back"
)

// Event describes one committed change, keyed by project.
type Event struct {
	Type      string `json:"type"`
	ProjectID id.ID  `json:"projectId"`

	// LocationID is set for single-location events, nil for project-wide ones.
	LocationID *id.ID `json:"locationId,omitempty"`

	// Payload carries event-specific data for the fan-out layer.
	Payload any `json:"payload,omitempty"`
}

// Publisher records an event inside the current transaction so it becomes
// visible to the relay only if the transaction commits.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
