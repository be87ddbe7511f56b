package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodeck/internal/core/apperror"
	"geodeck/internal/core/geo"
	"geodeck/internal/core/id"
	"geodeck/internal/domain/location"
)

func attrs(lat, lng float64) location.Attrs {
	return location.Attrs{Latitude: lat, Longitude: lng}
}

func entry(projectID, locationID id.ID, op Operation, a location.Attrs) *Entry {
	return NewEntry(projectID, locationID, nil, op, a)
}

func TestReconstruct_EmptyLedger(t *testing.T) {
	snapshots := Reconstruct(nil)
	assert.Empty(t, snapshots)
}

func TestReconstruct_SnapshotPerEntry(t *testing.T) {
	projectID := id.New()
	locA := id.New()
	locB := id.New()

	entries := []*Entry{
		entry(projectID, locA, OpCreate, attrs(10, 20)),
		entry(projectID, locB, OpCreate, attrs(11, 21)),
		entry(projectID, locA, OpDelete, attrs(10, 20)),
		entry(projectID, locB, OpUpdate, attrs(12, 22)),
	}

	snapshots := Reconstruct(entries)
	require.Len(t, snapshots, 4)

	// After first create: only A
	require.Len(t, snapshots[0].Locations, 1)
	assert.Equal(t, locA, snapshots[0].Locations[0].LocationID)

	// After second create: A then B, insertion order
	require.Len(t, snapshots[1].Locations, 2)
	assert.Equal(t, locA, snapshots[1].Locations[0].LocationID)
	assert.Equal(t, locB, snapshots[1].Locations[1].LocationID)

	// After delete of A: only B
	require.Len(t, snapshots[2].Locations, 1)
	assert.Equal(t, locB, snapshots[2].Locations[0].LocationID)
	assert.Equal(t, 11.0, snapshots[2].Locations[0].Latitude)

	// After update of B: still only B, new attrs
	require.Len(t, snapshots[3].Locations, 1)
	assert.Equal(t, 12.0, snapshots[3].Locations[0].Latitude)
	assert.Equal(t, 22.0, snapshots[3].Locations[0].Longitude)
}

func TestReconstruct_OnlyDeleteRemoves(t *testing.T) {
	projectID := id.New()
	loc := id.New()

	for _, op := range []Operation{OpCreate, OpUpdate, OpRollback, OpRollbackProject} {
		snapshots := Reconstruct([]*Entry{entry(projectID, loc, op, attrs(1, 2))})
		require.Len(t, snapshots, 1, "op %s", op)
		assert.Len(t, snapshots[0].Locations, 1, "op %s must keep the location live", op)
	}

	snapshots := Reconstruct([]*Entry{
		entry(projectID, loc, OpCreate, attrs(1, 2)),
		entry(projectID, loc, OpDelete, attrs(1, 2)),
	})
	assert.Empty(t, snapshots[1].Locations)
}

func TestReconstruct_ReAddMovesToEnd(t *testing.T) {
	projectID := id.New()
	locA := id.New()
	locB := id.New()

	entries := []*Entry{
		entry(projectID, locA, OpCreate, attrs(1, 1)),
		entry(projectID, locB, OpCreate, attrs(2, 2)),
		entry(projectID, locA, OpDelete, attrs(1, 1)),
		entry(projectID, locA, OpRollback, attrs(1, 1)),
	}

	snapshots := Reconstruct(entries)
	final := snapshots[3].Locations
	require.Len(t, final, 2)
	assert.Equal(t, locB, final[0].LocationID)
	assert.Equal(t, locA, final[1].LocationID)
}

func TestReconstruct_Deterministic(t *testing.T) {
	projectID := id.New()
	var entries []*Entry
	ids := make([]id.ID, 5)
	for i := range ids {
		ids[i] = id.New()
		entries = append(entries, entry(projectID, ids[i], OpCreate, attrs(float64(i), float64(i))))
	}
	entries = append(entries, entry(projectID, ids[2], OpDelete, attrs(2, 2)))

	first := Reconstruct(entries)
	second := Reconstruct(entries)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Locations, second[i].Locations)
	}
}

func TestReconstructAt_StopsAtTarget(t *testing.T) {
	projectID := id.New()
	locA := id.New()
	locB := id.New()

	e1 := entry(projectID, locA, OpCreate, attrs(10, 20))
	e2 := entry(projectID, locB, OpCreate, attrs(11, 21))
	e3 := entry(projectID, locA, OpDelete, attrs(10, 20))
	e4 := entry(projectID, locB, OpUpdate, attrs(12, 22))
	entries := []*Entry{e1, e2, e3, e4}

	state, err := ReconstructAt(entries, e3.ID)
	require.NoError(t, err)

	// A deleted, B still at its pre-update position
	require.Len(t, state, 1)
	got, ok := state[locB]
	require.True(t, ok)
	assert.Equal(t, 11.0, got.Latitude)
	assert.Equal(t, 21.0, got.Longitude)
}

func TestReconstructAt_UnknownVersion(t *testing.T) {
	projectID := id.New()
	entries := []*Entry{
		entry(projectID, id.New(), OpCreate, attrs(1, 2)),
	}

	_, err := ReconstructAt(entries, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsVersionNotFound(err))
}

func TestReconstructAt_EmptyLedger(t *testing.T) {
	_, err := ReconstructAt(nil, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsVersionNotFound(err))
}

func TestSnapshot_CopiesAreIndependent(t *testing.T) {
	projectID := id.New()
	loc := id.New()
	poly := attrs(1, 2)
	poly.Polygon = geo.Polygon{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}

	e := entry(projectID, loc, OpCreate, poly)
	snapshots := Reconstruct([]*Entry{e})

	snapshots[0].Locations[0].Polygon[0].Lat = 99
	again := Reconstruct([]*Entry{e})
	assert.Equal(t, 1.0, again[0].Locations[0].Polygon[0].Lat)
}
