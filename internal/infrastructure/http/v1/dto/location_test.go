package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodeck/internal/core/geo"
)

func TestCreateLocationRequest_Attrs(t *testing.T) {
	// Polygon arrives as raw JSON shapes; both spellings normalize the same
	pairStyle := `{
		"latitude": 52.52, "longitude": 13.405,
		"label": "HQ",
		"polygon": [[1, 2], [3, 4]]
	}`
	objectStyle := `{
		"latitude": 52.52, "longitude": 13.405,
		"label": "HQ",
		"polygon": [{"lat": 1, "lng": 2}, {"lat": 3, "lng": 4}]
	}`

	var a, b CreateLocationRequest
	require.NoError(t, json.Unmarshal([]byte(pairStyle), &a))
	require.NoError(t, json.Unmarshal([]byte(objectStyle), &b))

	attrsA := a.Attrs()
	attrsB := b.Attrs()

	assert.Equal(t, geo.Polygon{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}, attrsA.Polygon)
	assert.True(t, attrsA.Equal(attrsB))
	assert.Equal(t, 52.52, attrsA.Latitude)
	require.NotNil(t, attrsA.Label)
	assert.Equal(t, "HQ", *attrsA.Label)
}

func TestCreateLocationRequest_EmptyPolygonIsAbsent(t *testing.T) {
	for _, raw := range []string{
		`{"latitude": 1, "longitude": 2}`,
		`{"latitude": 1, "longitude": 2, "polygon": null}`,
		`{"latitude": 1, "longitude": 2, "polygon": []}`,
	} {
		var req CreateLocationRequest
		require.NoError(t, json.Unmarshal([]byte(raw), &req))
		assert.Nil(t, req.Attrs().Polygon, raw)
	}
}
