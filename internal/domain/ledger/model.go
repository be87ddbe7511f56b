// Package ledger implements the spatial-entity version ledger: an
// append-only log of location mutations per project, the timeline
// reconstructor that replays it, and the rollback reconciler that
// converges live rows to a reconstructed historical state.
package ledger

import (
	"time"

	"geodeck/internal/core/id"
	"geodeck/internal/domain/location"
)

// Operation classifies a ledger entry.
type Operation string

const (
	OpCreate          Operation = "create"
	OpUpdate          Operation = "update"
	OpDelete          Operation = "delete"
	OpRollback        Operation = "rollback"
	OpRollbackProject Operation = "rollback_project"
)

// Removes reports whether replaying this operation removes the location
// from the live set. Every other operation overwrites it.
func (op Operation) Removes() bool {
	return op == OpDelete
}

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case OpCreate, OpUpdate, OpDelete, OpRollback, OpRollbackProject:
		return true
	}
	return false
}

// Entry is one immutable ledger record. It snapshots the location's full
// attribute tuple as it stood after the operation; for a delete, the
// tuple as it stood immediately before deletion (audit trail).
//
// Entries are never updated or removed. Seq, assigned by the store on
// append, is the authoritative replay order; wall-clock timestamps can
// tie and are never used for ordering.
type Entry struct {
	Seq        int64   `db:"seq" json:"-"`
	ID         id.ID   `db:"id" json:"id"`
	ProjectID  id.ID   `db:"project_id" json:"projectId"`
	LocationID id.ID   `db:"location_id" json:"locationId"`
	UserID     *string `db:"user_id" json:"userId,omitempty"`

	Operation Operation `db:"operation" json:"operation"`

	location.Attrs

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewEntry builds an entry for appending. Seq is assigned by the store.
func NewEntry(projectID, locationID id.ID, userID *string, op Operation, attrs location.Attrs) *Entry {
	return &Entry{
		ID:         id.New(),
		ProjectID:  projectID,
		LocationID: locationID,
		UserID:     userID,
		Operation:  op,
		Attrs:      attrs.Clone(),
		CreatedAt:  time.Now().UTC(),
	}
}

// Snapshot returns a copy of the entry's attribute tuple.
func (e *Entry) Snapshot() location.Attrs {
	return e.Attrs.Clone()
}
