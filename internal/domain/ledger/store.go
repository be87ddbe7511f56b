package ledger

import (
	"context"

	"geodeck/internal/core/id"
)

// Store persists ledger entries. Append is a pure insert with no business
// logic and is always called in the same transaction as the paired
// location mutation it documents. No update or delete is ever issued.
type Store interface {
	// Append inserts the entry and fills in its Seq.
	Append(ctx context.Context, entry *Entry) error

	// ListForProject returns the project's entries oldest first,
	// ordered by insertion sequence.
	ListForProject(ctx context.Context, projectID id.ID) ([]*Entry, error)

	// GetByID returns the entry, scoped to the project.
	// VersionNotFound if it does not exist or belongs elsewhere.
	GetByID(ctx context.Context, projectID, entryID id.ID) (*Entry, error)
}

// ProjectLocker serializes mutating operations per project. LockProject
// takes a lock tied to the ambient transaction and held until commit or
// rollback; concurrent reads are never blocked.
type ProjectLocker interface {
	LockProject(ctx context.Context, projectID id.ID) error
}
