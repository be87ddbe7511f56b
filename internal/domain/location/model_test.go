package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodeck/internal/core/apperror"
	"geodeck/internal/core/geo"
	"geodeck/internal/core/id"
)

func TestAttrsValidate(t *testing.T) {
	tests := []struct {
		name    string
		attrs   Attrs
		wantErr bool
	}{
		{name: "valid point", attrs: Attrs{Latitude: 52.52, Longitude: 13.405}},
		{name: "boundary values", attrs: Attrs{Latitude: -90, Longitude: 180}},
		{name: "latitude too high", attrs: Attrs{Latitude: 90.01, Longitude: 0}, wantErr: true},
		{name: "longitude too low", attrs: Attrs{Latitude: 0, Longitude: -180.5}, wantErr: true},
		{
			name:  "polygon with points",
			attrs: Attrs{Polygon: geo.Polygon{{Lat: 1, Lng: 2}}},
		},
		{
			name:    "empty non-nil polygon",
			attrs:   Attrs{Polygon: geo.Polygon{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.attrs.Validate()
			if tt.wantErr {
				require.Error(t, err)
				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, apperror.CodeValidation, appErr.Code)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAttrsCloneIsDeep(t *testing.T) {
	orig := Attrs{
		Latitude: 1,
		Polygon:  geo.Polygon{{Lat: 1, Lng: 2}},
	}

	cp := orig.Clone()
	cp.Polygon[0].Lat = 99

	assert.Equal(t, 1.0, orig.Polygon[0].Lat)
}

func TestAttrsEqual(t *testing.T) {
	label := "a"
	otherLabel := "b"

	base := Attrs{Latitude: 1, Longitude: 2, Label: &label, Polygon: geo.Polygon{{Lat: 1, Lng: 2}}}

	same := base.Clone()
	assert.True(t, base.Equal(same))

	diffLabel := base.Clone()
	diffLabel.Label = &otherLabel
	assert.False(t, base.Equal(diffLabel))

	nilLabel := base.Clone()
	nilLabel.Label = nil
	assert.False(t, base.Equal(nilLabel))

	diffPolygon := base.Clone()
	diffPolygon.Polygon = append(diffPolygon.Polygon, geo.Point{Lat: 3, Lng: 4})
	assert.False(t, base.Equal(diffPolygon))
}

func TestNewWithIDKeepsHistoricalID(t *testing.T) {
	locationID := id.New()
	projectID := id.New()

	loc := NewWithID(locationID, projectID, Attrs{Latitude: 1, Longitude: 2})

	assert.Equal(t, locationID, loc.ID)
	assert.Equal(t, projectID, loc.ProjectID)
	assert.False(t, loc.IsDeleted())
}

func TestApplyAttrsKeepsTombstone(t *testing.T) {
	loc := New(id.New(), Attrs{Latitude: 1, Longitude: 2})
	now := loc.CreatedAt
	loc.DeletedAt = &now

	loc.ApplyAttrs(Attrs{Latitude: 3, Longitude: 4})

	assert.Equal(t, 3.0, loc.Latitude)
	assert.True(t, loc.IsDeleted(), "attribute writes never clear the tombstone")
}
