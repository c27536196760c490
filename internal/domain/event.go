package domain

// EventType names a chart mutation delivered to subscribers.
type EventType string

const (
	EventSeriesUpdated EventType = "series_updated"
	EventChartDeleted  EventType = "chart_deleted"
)

// SeriesUpdate is the payload of EventSeriesUpdated.
type SeriesUpdate struct {
	PaneID   int    `json:"paneId"`
	SeriesID string `json:"seriesId"`
	Count    int    `json:"count"`
}

// Event is delivered to chart subscribers after the mutation has committed.
type Event struct {
	ChartID string
	Type    EventType
	// Series is set for EventSeriesUpdated.
	Series *SeriesUpdate
}
