package domain

import (
	"encoding/json"
	"maps"
	"math"
)

// TimeField is the only point field the engine reads.
const TimeField = "time"

// Point is one time-stamped sample of a series. Fields other than "time"
// (value, open/high/low/close, volume, color, ...) are passed through
// untouched.
type Point map[string]any

// Time returns the point's Unix timestamp in seconds. Points without a
// numeric "time" field sort as time 0.
func (p Point) Time() int64 {
	switch v := p[TimeField].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(math.Floor(v))
	case float32:
		return int64(math.Floor(float64(v)))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(math.Floor(f))
		}
	}
	return 0
}

// ClonePoints copies the slice and every point map so the result shares no
// mutable state with the input.
func ClonePoints(points []Point) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = maps.Clone(p)
	}
	return out
}

// Options is an opaque option mapping (chart or series level).
type Options map[string]any

// Clone returns a shallow copy; nil stays nil.
func (o Options) Clone() Options {
	return maps.Clone(o)
}

// SeriesKey identifies a series inside the whole engine.
type SeriesKey struct {
	ChartID  string
	PaneID   int
	SeriesID string
}

// SeriesData is a full series payload as moved between producers and the engine.
type SeriesData struct {
	Key        SeriesKey
	SeriesType string
	Points     []Point
	Options    Options
}
