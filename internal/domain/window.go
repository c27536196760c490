package domain

// WindowInfo locates a window inside the full sorted series at query time.
type WindowInfo struct {
	StartIndex int   `json:"startIndex"`
	EndIndex   int   `json:"endIndex"`
	StartTime  int64 `json:"startTime"`
	EndTime    int64 `json:"endTime"`
	Count      int   `json:"count"`
}

// Window is a bounded, contiguous slice of a series plus its position metadata.
// Points never alias the store's backing array.
type Window struct {
	Points         []Point
	Info           WindowInfo
	HasMoreBefore  bool
	HasMoreAfter   bool
	TotalAvailable int
}

// SeriesSnapshot is a point-in-time copy of one series.
type SeriesSnapshot struct {
	SeriesID   string  `json:"-"`
	SeriesType string  `json:"seriesType"`
	Points     []Point `json:"data"`
	Options    Options `json:"options"`
}

// PaneSnapshot holds a pane's series in insertion order.
type PaneSnapshot struct {
	PaneID int
	Series []SeriesSnapshot
}

// ChartSnapshot is a consistent copy of a whole chart.
type ChartSnapshot struct {
	ChartID string
	Panes   []PaneSnapshot
	Options Options
}
