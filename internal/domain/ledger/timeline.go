package ledger

import (
	"geodeck/internal/core/apperror"
	"geodeck/internal/core/id"
	"geodeck/internal/domain/location"
)

// LocationState is one location's attributes inside a snapshot.
type LocationState struct {
	LocationID id.ID `json:"locationId"`
	location.Attrs
}

// Snapshot is the full set of locations alive immediately after an entry.
type Snapshot struct {
	Entry     *Entry          `json:"entry"`
	Locations []LocationState `json:"locations"`
}

// accumulator is the replay state: locationID -> attrs plus a stable
// first-seen ordering so reconstructed live sets are deterministic.
// A location deleted and later re-added moves to the end of the order.
type accumulator struct {
	attrs map[id.ID]location.Attrs
	order []id.ID
}

func newAccumulator() *accumulator {
	return &accumulator{attrs: make(map[id.ID]location.Attrs)}
}

func (a *accumulator) apply(e *Entry) {
	if e.Operation.Removes() {
		if _, ok := a.attrs[e.LocationID]; ok {
			delete(a.attrs, e.LocationID)
			for i, locID := range a.order {
				if locID == e.LocationID {
					a.order = append(a.order[:i], a.order[i+1:]...)
					break
				}
			}
		}
		return
	}
	if _, ok := a.attrs[e.LocationID]; !ok {
		a.order = append(a.order, e.LocationID)
	}
	a.attrs[e.LocationID] = e.Snapshot()
}

func (a *accumulator) liveSet() []LocationState {
	out := make([]LocationState, 0, len(a.order))
	for _, locID := range a.order {
		out = append(out, LocationState{LocationID: locID, Attrs: a.attrs[locID].Clone()})
	}
	return out
}

func (a *accumulator) asMap() map[id.ID]location.Attrs {
	out := make(map[id.ID]location.Attrs, len(a.attrs))
	for locID, attrs := range a.attrs {
		out[locID] = attrs.Clone()
	}
	return out
}

// Reconstruct replays the project's entries (oldest first) and returns
// one snapshot per entry: the entry plus every location alive at that
// point. A pure fold; no state survives across calls, so replaying the
// same entry list always yields the same snapshot sequence.
//
// An empty ledger yields an empty snapshot list.
func Reconstruct(entries []*Entry) []Snapshot {
	acc := newAccumulator()
	snapshots := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		acc.apply(e)
		snapshots = append(snapshots, Snapshot{Entry: e, Locations: acc.liveSet()})
	}
	return snapshots
}

// ReconstructAt replays entries up to and including the entry with id
// upto, returning the terminal live set as locationID -> attrs. This is
// the target state for a project rollback; the per-step snapshots are
// not materialized.
//
// An upto id not present in the entry list is an input error, never an
// empty result.
func ReconstructAt(entries []*Entry, upto id.ID) (map[id.ID]location.Attrs, error) {
	acc, err := reconstructAt(entries, upto)
	if err != nil {
		return nil, err
	}
	return acc.asMap(), nil
}

// reconstructAt is the ordered variant used by the reconciler, which
// needs deterministic iteration for its ledger appends.
func reconstructAt(entries []*Entry, upto id.ID) (*accumulator, error) {
	acc := newAccumulator()
	for _, e := range entries {
		acc.apply(e)
		if e.ID == upto {
			return acc, nil
		}
	}
	return nil, apperror.NewVersionNotFound(upto.String())
}
