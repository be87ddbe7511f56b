// Package geo provides the canonical coordinate types and the boundary
// normalizer shared by the write path and the rollback reconciler.
package geo

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// Point is a single WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polygon is an ordered boundary. nil means "point marker only";
// a non-nil polygon always has at least one point.
type Polygon []Point

// Value implements driver.Valuer so polygons persist as JSONB.
// An empty polygon is stored as NULL, never as "[]".
func (p Polygon) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB columns.
func (p *Polygon) Scan(src any) error {
	if src == nil {
		*p = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Polygon", src)
	}
	if len(data) == 0 {
		*p = nil
		return nil
	}
	var pts []Point
	if err := json.Unmarshal(data, &pts); err != nil {
		return fmt.Errorf("unmarshal polygon: %w", err)
	}
	if len(pts) == 0 {
		*p = nil
		return nil
	}
	*p = pts
	return nil
}

// Clone returns a deep copy. nil stays nil.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Equal reports point-wise equality. nil and empty compare equal.
func (p Polygon) Equal(other Polygon) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// NormalizePolygon parses heterogeneous boundary input into a canonical
// ordered point list. Each element may be a 2-element pair [lat, lng] or
// an object keyed lat/latitude and lng/longitude/lon. Elements that fail
// numeric coercion are dropped. Returns nil when the result is empty, so
// historical "[]" and absent boundaries collapse to the same canonical
// no-polygon value.
//
// Pure function; shared by client input handling and ledger replay.
func NormalizePolygon(raw any) Polygon {
	if raw == nil {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		if typed, isTyped := raw.(Polygon); isTyped {
			if len(typed) == 0 {
				return nil
			}
			return typed.Clone()
		}
		return nil
	}

	var out Polygon
	for _, item := range items {
		if pt, ok := normalizePoint(item); ok {
			out = append(out, pt)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizePoint coerces a single raw element into a Point.
func normalizePoint(item any) (Point, bool) {
	switch v := item.(type) {
	case []any:
		if len(v) != 2 {
			return Point{}, false
		}
		lat, okLat := ParseCoord(v[0])
		lng, okLng := ParseCoord(v[1])
		if !okLat || !okLng {
			return Point{}, false
		}
		return Point{Lat: lat, Lng: lng}, true
	case map[string]any:
		lat, okLat := firstCoord(v, "lat", "latitude")
		lng, okLng := firstCoord(v, "lng", "longitude", "lon")
		if !okLat || !okLng {
			return Point{}, false
		}
		return Point{Lat: lat, Lng: lng}, true
	case Point:
		return v, true
	default:
		return Point{}, false
	}
}

func firstCoord(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if raw, ok := m[key]; ok {
			if val, parsed := ParseCoord(raw); parsed {
				return val, true
			}
		}
	}
	return 0, false
}

// ParseCoord coerces a raw value to float64. Accepts native numerics,
// json.Number and numeric strings; everything else fails.
func ParseCoord(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ValidLatitude reports whether lat is inside [-90, 90].
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is inside [-180, 180].
func ValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
