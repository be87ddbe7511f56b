package dto

import (
	"time"

	"geodeck/internal/core/geo"
	"geodeck/internal/domain/location"
)

// CreateLocationRequest creates a map marker. Polygon accepts either
// [lat, lng] pair arrays or {lat, lng} objects; elements that cannot be
// coerced to coordinates are dropped.
type CreateLocationRequest struct {
	Latitude    *float64 `json:"latitude" binding:"required"`
	Longitude   *float64 `json:"longitude" binding:"required"`
	Label       *string  `json:"label"`
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Polygon     any      `json:"polygon"`
}

// Attrs converts the request into the domain attribute tuple.
func (r CreateLocationRequest) Attrs() location.Attrs {
	return location.Attrs{
		Latitude:    *r.Latitude,
		Longitude:   *r.Longitude,
		Label:       r.Label,
		Name:        r.Name,
		Description: r.Description,
		Polygon:     geo.NormalizePolygon(r.Polygon),
	}
}

// UpdateLocationRequest overwrites a location's full attribute tuple.
// Same shape as create: updates are whole-tuple, not patches.
type UpdateLocationRequest = CreateLocationRequest

// LocationResponse is the live location representation.
type LocationResponse struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"projectId"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Label       *string     `json:"label,omitempty"`
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	Polygon     geo.Polygon `json:"polygon,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// FromLocation creates LocationResponse from the domain entity.
func FromLocation(l *location.Location) LocationResponse {
	return LocationResponse{
		ID:          l.ID.String(),
		ProjectID:   l.ProjectID.String(),
		Latitude:    l.Latitude,
		Longitude:   l.Longitude,
		Label:       l.Label,
		Name:        l.Name,
		Description: l.Description,
		Polygon:     l.Polygon,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

// FromLocations converts a slice of domain entities.
func FromLocations(locs []*location.Location) []LocationResponse {
	out := make([]LocationResponse, 0, len(locs))
	for _, l := range locs {
		out = append(out, FromLocation(l))
	}
	return out
}
