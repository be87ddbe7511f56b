package ledger

import (
	"context"
	"fmt"
	"time"

	"geodeck/internal/core/apperror"
	appctx "geodeck/internal/core/context"
	"geodeck/internal/core/id"
	"geodeck/internal/core/tx"
	"geodeck/internal/domain/event"
	"geodeck/internal/domain/location"
	"geodeck/pkg/logger"
)

// Engine is the ledger engine: every write to the live location store is
// paired 1:1 with a ledger append inside one transaction, and rollbacks
// are applied as forward-only commits computed by the reconstructor.
//
// The engine performs no authorization; callers must pass the access
// guard first.
type Engine struct {
	locations location.Repository
	entries   Store
	txm       tx.Manager
	locker    ProjectLocker
	events    event.Publisher
}

// NewEngine wires the engine's collaborators.
func NewEngine(
	locations location.Repository,
	entries Store,
	txm tx.Manager,
	locker ProjectLocker,
	events event.Publisher,
) *Engine {
	return &Engine{
		locations: locations,
		entries:   entries,
		txm:       txm,
		locker:    locker,
		events:    events,
	}
}

// actor returns the acting user id from context, nil when inference
// fails (should not happen for authorized writes).
func actor(ctx context.Context) *string {
	if userID := appctx.GetUserID(ctx); userID != "" {
		return &userID
	}
	return nil
}

// inTx runs fn in one transaction; non-domain failures surface as a
// generic storage error. Nothing is ever partially applied, and the
// engine never retries: re-appending a ledger entry is not idempotent.
func (s *Engine) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := s.txm.RunInTransaction(ctx, fn)
	if err != nil && !apperror.IsAppError(err) {
		return apperror.NewStorage(err)
	}
	return err
}

// --- Write path ---

// CreateLocation inserts a live location and appends its create entry.
func (s *Engine) CreateLocation(ctx context.Context, projectID id.ID, attrs location.Attrs) (*location.Location, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}

	loc := location.New(projectID, attrs)
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.locker.LockProject(ctx, projectID); err != nil {
			return fmt.Errorf("lock project: %w", err)
		}
		if err := s.locations.Create(ctx, loc); err != nil {
			return fmt.Errorf("create location: %w", err)
		}
		if err := s.entries.Append(ctx, NewEntry(projectID, loc.ID, actor(ctx), OpCreate, loc.Snapshot())); err != nil {
			return fmt.Errorf("append create entry: %w", err)
		}
		return s.events.Publish(ctx, event.Event{
			Type:       event.TypeLocationCreated,
			ProjectID:  projectID,
			LocationID: &loc.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "location created", "project_id", projectID, "location_id", loc.ID)
	return loc, nil
}

// UpdateLocation overwrites the mutable attributes of a live location and
// appends the matching update entry. Tombstoned locations cannot be
// updated; they must be resurrected by a rollback first.
func (s *Engine) UpdateLocation(ctx context.Context, projectID, locationID id.ID, attrs location.Attrs) (*location.Location, error) {
	if err := attrs.Validate(); err != nil {
		return nil, err
	}

	var loc *location.Location
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.locker.LockProject(ctx, projectID); err != nil {
			return fmt.Errorf("lock project: %w", err)
		}
		var err error
		loc, err = s.locations.GetByID(ctx, projectID, locationID)
		if err != nil {
			return err
		}
		if loc.IsDeleted() {
			return apperror.NewNotFound("location", locationID.String())
		}
		loc.ApplyAttrs(attrs)
		if err := s.locations.UpdateAttrs(ctx, locationID, loc.Attrs); err != nil {
			return fmt.Errorf("update location: %w", err)
		}
		if err := s.entries.Append(ctx, NewEntry(projectID, locationID, actor(ctx), OpUpdate, loc.Snapshot())); err != nil {
			return fmt.Errorf("append update entry: %w", err)
		}
		return s.events.Publish(ctx, event.Event{
			Type:       event.TypeLocationUpdated,
			ProjectID:  projectID,
			LocationID: &locationID,
		})
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// DeleteLocation tombstones a live location. The appended delete entry
// snapshots the attributes as they stood immediately before deletion.
func (s *Engine) DeleteLocation(ctx context.Context, projectID, locationID id.ID) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.locker.LockProject(ctx, projectID); err != nil {
			return fmt.Errorf("lock project: %w", err)
		}
		loc, err := s.locations.GetByID(ctx, projectID, locationID)
		if err != nil {
			return err
		}
		if loc.IsDeleted() {
			return apperror.NewNotFound("location", locationID.String())
		}
		if err := s.locations.SoftDelete(ctx, locationID, time.Now().UTC()); err != nil {
			return fmt.Errorf("soft delete location: %w", err)
		}
		if err := s.entries.Append(ctx, NewEntry(projectID, locationID, actor(ctx), OpDelete, loc.Snapshot())); err != nil {
			return fmt.Errorf("append delete entry: %w", err)
		}
		return s.events.Publish(ctx, event.Event{
			Type:       event.TypeLocationDeleted,
			ProjectID:  projectID,
			LocationID: &locationID,
		})
	})
}

// --- Read path ---

// GetLocation returns a live location; tombstoned rows read as NotFound.
func (s *Engine) GetLocation(ctx context.Context, projectID, locationID id.ID) (*location.Location, error) {
	loc, err := s.locations.GetByID(ctx, projectID, locationID)
	if err != nil {
		return nil, err
	}
	if loc.IsDeleted() {
		return nil, apperror.NewNotFound("location", locationID.String())
	}
	return loc, nil
}

// ListLiveLocations returns the project's visible locations.
func (s *Engine) ListLiveLocations(ctx context.Context, projectID id.ID) ([]*location.Location, error) {
	return s.locations.ListLive(ctx, projectID)
}

// ListProjectHistory replays the project's ledger and returns snapshots
// newest first, so index 0 is the current state. limit caps the number
// of returned snapshots (replay itself always covers the full ledger);
// limit <= 0 means no cap.
func (s *Engine) ListProjectHistory(ctx context.Context, projectID id.ID, limit int) ([]Snapshot, error) {
	entries, err := s.entries.ListForProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	snapshots := Reconstruct(entries)
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots, nil
}

// --- Rollback path ---

// RollbackLocation reverts a single location to the state recorded by
// the target entry. The revert is a new forward commit: the live row is
// overwritten (undeleted if tombstoned, re-created if the row is gone
// entirely) and one rollback entry is appended. History is never
// rewritten.
func (s *Engine) RollbackLocation(ctx context.Context, projectID, locationID, versionID id.ID) (*location.Location, error) {
	var loc *location.Location
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.locker.LockProject(ctx, projectID); err != nil {
			return fmt.Errorf("lock project: %w", err)
		}
		entry, err := s.entries.GetByID(ctx, projectID, versionID)
		if err != nil {
			return err
		}
		if entry.LocationID != locationID {
			return apperror.NewVersionNotFound(versionID.String()).
				WithDetail("location_id", locationID.String())
		}

		attrs := entry.Snapshot()
		loc, err = s.restoreLocation(ctx, projectID, locationID, attrs)
		if err != nil {
			return err
		}
		if err := s.entries.Append(ctx, NewEntry(projectID, locationID, actor(ctx), OpRollback, attrs)); err != nil {
			return fmt.Errorf("append rollback entry: %w", err)
		}
		return s.events.Publish(ctx, event.Event{
			Type:       event.TypeLocationRestored,
			ProjectID:  projectID,
			LocationID: &locationID,
			Payload:    map[string]any{"versionId": versionID},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "location rolled back",
		"project_id", projectID,
		"location_id", locationID,
		"version_id", versionID,
	)
	return loc, nil
}

// RollbackProject reverts every location in the project to the state
// reconstructed at the target entry. The diff against the live set is
// applied in one transaction: locations alive now but absent at the
// target time are tombstoned, everything in the target state is
// overwritten (resurrecting tombstones and re-creating hard-gone rows
// under their historical ids). One ledger entry is appended per affected
// location, so the rollback reads back out of the ledger the same way
// any other mutation does.
func (s *Engine) RollbackProject(ctx context.Context, projectID, versionID id.ID) error {
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.locker.LockProject(ctx, projectID); err != nil {
			return fmt.Errorf("lock project: %w", err)
		}

		entries, err := s.entries.ListForProject(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list ledger entries: %w", err)
		}
		target, err := reconstructAt(entries, versionID)
		if err != nil {
			return err
		}

		live, err := s.locations.ListLive(ctx, projectID)
		if err != nil {
			return fmt.Errorf("list live locations: %w", err)
		}

		userID := actor(ctx)
		now := time.Now().UTC()
		removed := 0

		// Alive now, absent at the target time: tombstone. Delete entries
		// keep replay consistent — reconstructing the grown ledger still
		// converges to the restored state.
		for _, loc := range live {
			if _, keep := target.attrs[loc.ID]; keep {
				continue
			}
			if err := s.locations.SoftDelete(ctx, loc.ID, now); err != nil {
				return fmt.Errorf("soft delete location %s: %w", loc.ID, err)
			}
			if err := s.entries.Append(ctx, NewEntry(projectID, loc.ID, userID, OpDelete, loc.Snapshot())); err != nil {
				return fmt.Errorf("append delete entry: %w", err)
			}
			removed++
		}

		// Everything in the target state: overwrite, in replay order.
		for _, st := range target.liveSet() {
			if _, err := s.restoreLocation(ctx, projectID, st.LocationID, st.Attrs); err != nil {
				return err
			}
			if err := s.entries.Append(ctx, NewEntry(projectID, st.LocationID, userID, OpRollbackProject, st.Attrs)); err != nil {
				return fmt.Errorf("append rollback entry: %w", err)
			}
		}

		return s.events.Publish(ctx, event.Event{
			Type:      event.TypeProjectRestored,
			ProjectID: projectID,
			Payload: map[string]any{
				"versionId": versionID,
				"restored":  len(target.attrs),
				"removed":   removed,
			},
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "project rolled back", "project_id", projectID, "version_id", versionID)
	return nil
}

// restoreLocation forces a location row into the given attribute state:
// overwrite and undelete when the row exists, re-create under the
// historical id when it is gone entirely. The latter should be
// unreachable while rows are only ever soft-deleted, but ledger
// references must stay valid even if a row was purged out of band.
func (s *Engine) restoreLocation(ctx context.Context, projectID, locationID id.ID, attrs location.Attrs) (*location.Location, error) {
	loc, err := s.locations.GetByID(ctx, projectID, locationID)
	if apperror.IsNotFound(err) {
		loc = location.NewWithID(locationID, projectID, attrs)
		if err := s.locations.Create(ctx, loc); err != nil {
			return nil, fmt.Errorf("recreate location %s: %w", locationID, err)
		}
		return loc, nil
	}
	if err != nil {
		return nil, err
	}

	loc.ApplyAttrs(attrs)
	if err := s.locations.UpdateAttrs(ctx, locationID, loc.Attrs); err != nil {
		return nil, fmt.Errorf("restore location %s: %w", locationID, err)
	}
	if loc.IsDeleted() {
		if err := s.locations.Undelete(ctx, locationID); err != nil {
			return nil, fmt.Errorf("undelete location %s: %w", locationID, err)
		}
		loc.DeletedAt = nil
	}
	return loc, nil
}
