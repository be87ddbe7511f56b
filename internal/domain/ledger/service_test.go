package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodeck/internal/core/apperror"
	"geodeck/internal/core/id"
	"geodeck/internal/domain/event"
	"geodeck/internal/domain/location"
)

// --- In-memory fakes ---

type fakeLocationRepo struct {
	rows map[id.ID]*location.Location
}

func newFakeLocationRepo() *fakeLocationRepo {
	return &fakeLocationRepo{rows: make(map[id.ID]*location.Location)}
}

func (r *fakeLocationRepo) GetByID(_ context.Context, projectID, locationID id.ID) (*location.Location, error) {
	loc, ok := r.rows[locationID]
	if !ok || loc.ProjectID != projectID {
		return nil, apperror.NewNotFound("location", locationID.String())
	}
	cp := *loc
	cp.Attrs = loc.Attrs.Clone()
	return &cp, nil
}

func (r *fakeLocationRepo) ListLive(_ context.Context, projectID id.ID) ([]*location.Location, error) {
	var out []*location.Location
	for _, loc := range r.rows {
		if loc.ProjectID == projectID && !loc.IsDeleted() {
			cp := *loc
			cp.Attrs = loc.Attrs.Clone()
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeLocationRepo) Create(_ context.Context, loc *location.Location) error {
	cp := *loc
	cp.Attrs = loc.Attrs.Clone()
	r.rows[loc.ID] = &cp
	return nil
}

func (r *fakeLocationRepo) UpdateAttrs(_ context.Context, locationID id.ID, attrs location.Attrs) error {
	loc, ok := r.rows[locationID]
	if !ok {
		return apperror.NewNotFound("location", locationID.String())
	}
	loc.Attrs = attrs.Clone()
	return nil
}

func (r *fakeLocationRepo) SoftDelete(_ context.Context, locationID id.ID, at time.Time) error {
	loc, ok := r.rows[locationID]
	if !ok {
		return apperror.NewNotFound("location", locationID.String())
	}
	loc.DeletedAt = &at
	return nil
}

func (r *fakeLocationRepo) Undelete(_ context.Context, locationID id.ID) error {
	loc, ok := r.rows[locationID]
	if !ok {
		return apperror.NewNotFound("location", locationID.String())
	}
	loc.DeletedAt = nil
	return nil
}

type fakeStore struct {
	entries []*Entry
	nextSeq int64
}

func (s *fakeStore) Append(_ context.Context, entry *Entry) error {
	s.nextSeq++
	entry.Seq = s.nextSeq
	cp := *entry
	cp.Attrs = entry.Attrs.Clone()
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *fakeStore) ListForProject(_ context.Context, projectID id.ID) ([]*Entry, error) {
	var out []*Entry
	for _, e := range s.entries {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, projectID, entryID id.ID) (*Entry, error) {
	for _, e := range s.entries {
		if e.ID == entryID && e.ProjectID == projectID {
			return e, nil
		}
	}
	return nil, apperror.NewVersionNotFound(entryID.String())
}

func (s *fakeStore) lastFor(locationID id.ID) *Entry {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].LocationID == locationID {
			return s.entries[i]
		}
	}
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLocker struct{ locks int }

func (l *fakeLocker) LockProject(context.Context, id.ID) error {
	l.locks++
	return nil
}

type fakePublisher struct{ events []event.Event }

func (p *fakePublisher) Publish(_ context.Context, ev event.Event) error {
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	engine    *Engine
	locations *fakeLocationRepo
	store     *fakeStore
	locker    *fakeLocker
	events    *fakePublisher
}

func newFixture() *fixture {
	locations := newFakeLocationRepo()
	store := &fakeStore{}
	locker := &fakeLocker{}
	events := &fakePublisher{}
	return &fixture{
		engine:    NewEngine(locations, store, fakeTxManager{}, locker, events),
		locations: locations,
		store:     store,
		locker:    locker,
		events:    events,
	}
}

// --- Write path ---

func TestCreateLocation_AppendsPairedEntry(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	loc, err := f.engine.CreateLocation(context.Background(), projectID, attrs(52.52, 13.405))
	require.NoError(t, err)
	require.NotNil(t, loc)

	require.Len(t, f.store.entries, 1)
	e := f.store.entries[0]
	assert.Equal(t, OpCreate, e.Operation)
	assert.Equal(t, loc.ID, e.LocationID)
	assert.Equal(t, 52.52, e.Latitude)
	assert.Equal(t, int64(1), e.Seq)
	assert.Equal(t, 1, f.locker.locks)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, event.TypeLocationCreated, f.events.events[0].Type)
}

func TestCreateLocation_RejectsInvalidCoordinates(t *testing.T) {
	f := newFixture()

	_, err := f.engine.CreateLocation(context.Background(), id.New(), attrs(91, 0))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Empty(t, f.store.entries, "no entry may be appended for a rejected write")
}

func TestUpdateLocation_TombstonedReadsAsNotFound(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	loc, err := f.engine.CreateLocation(context.Background(), projectID, attrs(1, 2))
	require.NoError(t, err)
	require.NoError(t, f.engine.DeleteLocation(context.Background(), projectID, loc.ID))

	_, err = f.engine.UpdateLocation(context.Background(), projectID, loc.ID, attrs(3, 4))
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDeleteLocation_SnapshotsPreDeleteAttrs(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	loc, err := f.engine.CreateLocation(context.Background(), projectID, attrs(10, 20))
	require.NoError(t, err)
	_, err = f.engine.UpdateLocation(context.Background(), projectID, loc.ID, attrs(30, 40))
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteLocation(context.Background(), projectID, loc.ID))

	e := f.store.lastFor(loc.ID)
	require.NotNil(t, e)
	assert.Equal(t, OpDelete, e.Operation)
	assert.Equal(t, 30.0, e.Latitude)
	assert.Equal(t, 40.0, e.Longitude)

	// Deleting again is not possible: the row reads as gone
	err = f.engine.DeleteLocation(context.Background(), projectID, loc.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetLocation_HidesTombstones(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	loc, err := f.engine.CreateLocation(context.Background(), projectID, attrs(1, 2))
	require.NoError(t, err)
	require.NoError(t, f.engine.DeleteLocation(context.Background(), projectID, loc.ID))

	_, err = f.engine.GetLocation(context.Background(), projectID, loc.ID)
	assert.True(t, apperror.IsNotFound(err))

	live, err := f.engine.ListLiveLocations(context.Background(), projectID)
	require.NoError(t, err)
	assert.Empty(t, live)
}

// --- History ---

func TestListProjectHistory_NewestFirstAndLimited(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	loc, err := f.engine.CreateLocation(context.Background(), projectID, attrs(1, 1))
	require.NoError(t, err)
	_, err = f.engine.UpdateLocation(context.Background(), projectID, loc.ID, attrs(2, 2))
	require.NoError(t, err)
	_, err = f.engine.UpdateLocation(context.Background(), projectID, loc.ID, attrs(3, 3))
	require.NoError(t, err)

	all, err := f.engine.ListProjectHistory(context.Background(), projectID, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3.0, all[0].Locations[0].Latitude, "index 0 is current state")
	assert.Equal(t, 1.0, all[2].Locations[0].Latitude)

	capped, err := f.engine.ListProjectHistory(context.Background(), projectID, 2)
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Equal(t, all[0].Entry.ID, capped[0].Entry.ID, "limit keeps the newest snapshots")
}

// --- Rollback ---

func TestRollbackLocation_RestoresRecordedState(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	loc, err := f.engine.CreateLocation(context.Background(), projectID, attrs(10, 20))
	require.NoError(t, err)
	createEntry := f.store.lastFor(loc.ID)

	_, err = f.engine.UpdateLocation(context.Background(), projectID, loc.ID, attrs(30, 40))
	require.NoError(t, err)

	restored, err := f.engine.RollbackLocation(context.Background(), projectID, loc.ID, createEntry.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, restored.Latitude)
	assert.Equal(t, 20.0, restored.Longitude)

	// Rollback is a forward commit: the ledger grew
	e := f.store.lastFor(loc.ID)
	assert.Equal(t, OpRollback, e.Operation)
	assert.Equal(t, 10.0, e.Latitude)
}

func TestRollbackLocation_ResurrectsTombstone(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	loc, err := f.engine.CreateLocation(context.Background(), projectID, attrs(10, 20))
	require.NoError(t, err)
	createEntry := f.store.lastFor(loc.ID)
	require.NoError(t, f.engine.DeleteLocation(context.Background(), projectID, loc.ID))

	restored, err := f.engine.RollbackLocation(context.Background(), projectID, loc.ID, createEntry.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted())

	got, err := f.engine.GetLocation(context.Background(), projectID, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, loc.ID, got.ID, "historical id survives resurrection")
}

func TestRollbackLocation_VersionOfOtherLocation(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	locA, err := f.engine.CreateLocation(context.Background(), projectID, attrs(1, 1))
	require.NoError(t, err)
	entryA := f.store.lastFor(locA.ID)

	locB, err := f.engine.CreateLocation(context.Background(), projectID, attrs(2, 2))
	require.NoError(t, err)

	_, err = f.engine.RollbackLocation(context.Background(), projectID, locB.ID, entryA.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsVersionNotFound(err))
}

func TestRollbackProject_ConvergesToTargetState(t *testing.T) {
	f := newFixture()
	projectID := id.New()
	ctx := context.Background()

	locA, err := f.engine.CreateLocation(ctx, projectID, attrs(10, 20))
	require.NoError(t, err)
	locB, err := f.engine.CreateLocation(ctx, projectID, attrs(11, 21))
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteLocation(ctx, projectID, locA.ID))
	target := f.store.lastFor(locA.ID) // the delete entry

	_, err = f.engine.UpdateLocation(ctx, projectID, locB.ID, attrs(12, 22))
	require.NoError(t, err)

	// New location created after the target point must be removed
	locC, err := f.engine.CreateLocation(ctx, projectID, attrs(13, 23))
	require.NoError(t, err)

	require.NoError(t, f.engine.RollbackProject(ctx, projectID, target.ID))

	live, err := f.engine.ListLiveLocations(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, locB.ID, live[0].ID)
	assert.Equal(t, 11.0, live[0].Latitude)
	assert.Equal(t, 21.0, live[0].Longitude)

	_, err = f.engine.GetLocation(ctx, projectID, locC.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRollbackProject_ReplayStaysConsistent(t *testing.T) {
	f := newFixture()
	projectID := id.New()
	ctx := context.Background()

	locA, err := f.engine.CreateLocation(ctx, projectID, attrs(10, 20))
	require.NoError(t, err)
	target := f.store.lastFor(locA.ID)

	_, err = f.engine.CreateLocation(ctx, projectID, attrs(11, 21))
	require.NoError(t, err)

	require.NoError(t, f.engine.RollbackProject(ctx, projectID, target.ID))

	// Replaying the grown ledger converges to the same live set
	entries, err := f.store.ListForProject(ctx, projectID)
	require.NoError(t, err)
	snapshots := Reconstruct(entries)
	final := snapshots[len(snapshots)-1].Locations
	require.Len(t, final, 1)
	assert.Equal(t, locA.ID, final[0].LocationID)

	live, err := f.engine.ListLiveLocations(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, locA.ID, live[0].ID)
}

func TestRollbackProject_Idempotent(t *testing.T) {
	f := newFixture()
	projectID := id.New()
	ctx := context.Background()

	locA, err := f.engine.CreateLocation(ctx, projectID, attrs(10, 20))
	require.NoError(t, err)
	target := f.store.lastFor(locA.ID)

	_, err = f.engine.UpdateLocation(ctx, projectID, locA.ID, attrs(30, 40))
	require.NoError(t, err)

	require.NoError(t, f.engine.RollbackProject(ctx, projectID, target.ID))
	require.NoError(t, f.engine.RollbackProject(ctx, projectID, target.ID))

	live, err := f.engine.ListLiveLocations(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, 10.0, live[0].Latitude)
	assert.Equal(t, 20.0, live[0].Longitude)
}

func TestRollbackProject_UnknownVersion(t *testing.T) {
	f := newFixture()
	projectID := id.New()

	_, err := f.engine.CreateLocation(context.Background(), projectID, attrs(1, 2))
	require.NoError(t, err)

	err = f.engine.RollbackProject(context.Background(), projectID, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsVersionNotFound(err))

	live, err := f.engine.ListLiveLocations(context.Background(), projectID)
	require.NoError(t, err)
	assert.Len(t, live, 1, "failed rollback must not change live rows")
}

func TestRollbackProject_EmitsSingleProjectEvent(t *testing.T) {
	f := newFixture()
	projectID := id.New()
	ctx := context.Background()

	locA, err := f.engine.CreateLocation(ctx, projectID, attrs(1, 1))
	require.NoError(t, err)
	target := f.store.lastFor(locA.ID)
	_, err = f.engine.CreateLocation(ctx, projectID, attrs(2, 2))
	require.NoError(t, err)

	before := len(f.events.events)
	require.NoError(t, f.engine.RollbackProject(ctx, projectID, target.ID))

	var projectEvents int
	for _, ev := range f.events.events[before:] {
		if ev.Type == event.TypeProjectRestored {
			projectEvents++
			assert.Nil(t, ev.LocationID)
		}
	}
	assert.Equal(t, 1, projectEvents)
}
