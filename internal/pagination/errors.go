package pagination

import "errors"

// Lookup outcomes. They are ordinary results (a client may poll a series
// before it exists), so callers branch on them with errors.Is.
var (
	ErrChartNotFound  = errors.New("chart not found")
	ErrSeriesNotFound = errors.New("series not found")
)
