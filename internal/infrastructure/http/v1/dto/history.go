package dto

import (
	"time"

	"geodeck/internal/core/geo"
	"geodeck/internal/domain/ledger"
)

// HistoryQuery caps how many timeline snapshots are returned.
type HistoryQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// DefaultHistoryLimit bounds response size; the ledger itself is unbounded.
const DefaultHistoryLimit = 200

// VersionResponse is one ledger entry.
type VersionResponse struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"projectId"`
	LocationID  string      `json:"locationId"`
	UserID      *string     `json:"userId,omitempty"`
	Operation   string      `json:"operation"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Label       *string     `json:"label,omitempty"`
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	Polygon     geo.Polygon `json:"polygon,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// FromEntry creates VersionResponse from a ledger entry.
func FromEntry(e *ledger.Entry) VersionResponse {
	return VersionResponse{
		ID:          e.ID.String(),
		ProjectID:   e.ProjectID.String(),
		LocationID:  e.LocationID.String(),
		UserID:      e.UserID,
		Operation:   string(e.Operation),
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		Label:       e.Label,
		Name:        e.Name,
		Description: e.Description,
		Polygon:     e.Polygon,
		CreatedAt:   e.CreatedAt,
	}
}

// SnapshotLocationResponse is one location's state inside a snapshot.
type SnapshotLocationResponse struct {
	LocationID  string      `json:"locationId"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Label       *string     `json:"label,omitempty"`
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	Polygon     geo.Polygon `json:"polygon,omitempty"`
}

// SnapshotResponse is one timeline step: the entry that produced it plus
// every location alive immediately after it.
type SnapshotResponse struct {
	Version   VersionResponse            `json:"version"`
	Locations []SnapshotLocationResponse `json:"locations"`
}

// FromSnapshot creates SnapshotResponse from a reconstructed snapshot.
func FromSnapshot(s ledger.Snapshot) SnapshotResponse {
	locs := make([]SnapshotLocationResponse, 0, len(s.Locations))
	for _, st := range s.Locations {
		locs = append(locs, SnapshotLocationResponse{
			LocationID:  st.LocationID.String(),
			Latitude:    st.Latitude,
			Longitude:   st.Longitude,
			Label:       st.Label,
			Name:        st.Name,
			Description: st.Description,
			Polygon:     st.Polygon,
		})
	}
	return SnapshotResponse{Version: FromEntry(s.Entry), Locations: locs}
}

// FromSnapshots converts a slice of snapshots.
func FromSnapshots(snaps []ledger.Snapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, FromSnapshot(s))
	}
	return out
}

// RollbackRequest targets a ledger entry to revert to.
type RollbackRequest struct {
	VersionID string `json:"versionId" binding:"required,uuid"`
}

// RollbackProjectResponse summarizes a project-wide rollback.
type RollbackProjectResponse struct {
	Success   bool   `json:"success"`
	VersionID string `json:"versionId"`
}
