// Package location_repo implements the live location store on PostgreSQL.
package location_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"geodeck/internal/core/apperror"
	"geodeck/internal/core/id"
	"geodeck/internal/domain/location"
	"geodeck/internal/infrastructure/storage/postgres"
)

const locationTable = "locations"

// Compile-time check that LocationRepo implements location.Repository.
var _ location.Repository = (*LocationRepo)(nil)

// LocationRepo implements location.Repository. All mutations run through
// the transaction manager's querier, so they join the ambient transaction
// when one is open.
type LocationRepo struct {
	txManager *postgres.TxManager
	columns   []string
}

// NewLocationRepo creates a new location repository.
func NewLocationRepo(txManager *postgres.TxManager) *LocationRepo {
	return &LocationRepo{
		txManager: txManager,
		columns:   postgres.ExtractDBColumns[location.Location](),
	}
}

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (r *LocationRepo) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *LocationRepo) baseSelect() squirrel.SelectBuilder {
	return r.Builder().Select(r.columns...).From(locationTable)
}

// GetByID returns the row regardless of tombstone state.
func (r *LocationRepo) GetByID(ctx context.Context, projectID, locationID id.ID) (*location.Location, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"id": locationID}).
		Where(squirrel.Eq{"project_id": projectID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var loc location.Location
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &loc, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("location", locationID.String())
		}
		return nil, fmt.Errorf("get location: %w", err)
	}

	return &loc, nil
}

// ListLive returns non-deleted locations for a project, oldest first.
func (r *LocationRepo) ListLive(ctx context.Context, projectID id.ID) ([]*location.Location, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"project_id": projectID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var locs []*location.Location
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &locs, sql, args...); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}

	return locs, nil
}

// Create inserts a new row, honoring the caller-supplied id.
func (r *LocationRepo) Create(ctx context.Context, loc *location.Location) error {
	data := postgres.StructToMap(loc)

	q := r.Builder().Insert(locationTable).SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert location: %w", err)
	}

	return nil
}

// UpdateAttrs overwrites the mutable attribute columns. deleted_at is not touched.
func (r *LocationRepo) UpdateAttrs(ctx context.Context, locationID id.ID, attrs location.Attrs) error {
	data := postgres.StructToMap(attrs)
	data["updated_at"] = time.Now().UTC()

	q := r.Builder().
		Update(locationTable).
		SetMap(data).
		Where(squirrel.Eq{"id": locationID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update location: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("location", locationID.String())
	}

	return nil
}

// SoftDelete sets the tombstone timestamp.
func (r *LocationRepo) SoftDelete(ctx context.Context, locationID id.ID, at time.Time) error {
	return r.setTombstone(ctx, locationID, &at)
}

// Undelete clears the tombstone.
func (r *LocationRepo) Undelete(ctx context.Context, locationID id.ID) error {
	return r.setTombstone(ctx, locationID, nil)
}

func (r *LocationRepo) setTombstone(ctx context.Context, locationID id.ID, at *time.Time) error {
	q := r.Builder().
		Update(locationTable).
		Set("deleted_at", at).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": locationID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set tombstone: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("location", locationID.String())
	}

	return nil
}
