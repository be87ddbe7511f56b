// Package location provides the live spatial-marker entity ("location"):
// a project-scoped map pin with an optional polygon boundary.
package location

import (
	"time"

	"geodeck/internal/core/apperror"
	"geodeck/internal/core/geo"
	"geodeck/internal/core/id"
)

// Attrs is the mutable attribute tuple of a location, without store-only
// fields. Ledger entries snapshot exactly this tuple, and the rollback
// reconciler converges live rows to it.
type Attrs struct {
	Latitude    float64     `db:"latitude" json:"latitude"`
	Longitude   float64     `db:"longitude" json:"longitude"`
	Label       *string     `db:"label" json:"label,omitempty"`
	Name        *string     `db:"name" json:"name,omitempty"`
	Description *string     `db:"description" json:"description,omitempty"`
	Polygon     geo.Polygon `db:"polygon" json:"polygon,omitempty"`
}

// Validate checks coordinate ranges and polygon shape.
func (a Attrs) Validate() error {
	if !geo.ValidLatitude(a.Latitude) {
		return apperror.NewValidation("latitude out of range").
			WithDetail("field", "latitude").
			WithDetail("value", a.Latitude)
	}
	if !geo.ValidLongitude(a.Longitude) {
		return apperror.NewValidation("longitude out of range").
			WithDetail("field", "longitude").
			WithDetail("value", a.Longitude)
	}
	// A present polygon has at least one point; absent means point marker only.
	if a.Polygon != nil && len(a.Polygon) == 0 {
		return apperror.NewValidation("polygon must contain at least one point").
			WithDetail("field", "polygon")
	}
	return nil
}

// Clone returns a deep copy of the tuple.
func (a Attrs) Clone() Attrs {
	out := a
	out.Polygon = a.Polygon.Clone()
	return out
}

// Equal reports attribute-wise equality, comparing polygons point-wise.
func (a Attrs) Equal(other Attrs) bool {
	return a.Latitude == other.Latitude &&
		a.Longitude == other.Longitude &&
		strEqual(a.Label, other.Label) &&
		strEqual(a.Name, other.Name) &&
		strEqual(a.Description, other.Description) &&
		a.Polygon.Equal(other.Polygon)
}

func strEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Location is the live, soft-deletable spatial entity.
// Its ID is never reused and is the join key used throughout the ledger.
type Location struct {
	ID        id.ID `db:"id" json:"id"`
	ProjectID id.ID `db:"project_id" json:"projectId"`

	Attrs

	// DeletedAt is the tombstone timestamp; nil means live/visible.
	DeletedAt *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a live Location with a generated id.
func New(projectID id.ID, attrs Attrs) *Location {
	now := time.Now().UTC()
	return &Location{
		ID:        id.New(),
		ProjectID: projectID,
		Attrs:     attrs.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWithID creates a Location reusing a caller-supplied id. The rollback
// reconciler uses this to re-create a row whose historical id must stay
// valid for existing ledger references.
func NewWithID(locationID, projectID id.ID, attrs Attrs) *Location {
	loc := New(projectID, attrs)
	loc.ID = locationID
	return loc
}

// IsDeleted reports whether the tombstone is set.
func (l *Location) IsDeleted() bool {
	return l.DeletedAt != nil
}

// Snapshot returns a copy of the location's attribute tuple.
func (l *Location) Snapshot() Attrs {
	return l.Attrs.Clone()
}

// ApplyAttrs overwrites the mutable attributes. DeletedAt is untouched.
func (l *Location) ApplyAttrs(a Attrs) {
	l.Attrs = a.Clone()
	l.UpdatedAt = time.Now().UTC()
}
