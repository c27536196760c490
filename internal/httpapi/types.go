package httpapi

import "chart-pager/internal/domain"

// CreateChartRequest is the body of POST /charts/{chartId}.
type CreateChartRequest struct {
	Height *int `json:"height,omitempty"`
	Width  *int `json:"width,omitempty"`
}

func (r CreateChartRequest) options() domain.Options {
	opts := domain.Options{}
	if r.Height != nil {
		opts["height"] = *r.Height
	}
	if r.Width != nil {
		opts["width"] = *r.Width
	}
	return opts
}

// SetSeriesRequest is the body of POST /charts/{chartId}/data/{seriesId}.
type SetSeriesRequest struct {
	PaneID     int            `json:"pane_id"`
	SeriesType string         `json:"series_type"`
	Data       []domain.Point `json:"data"`
	Options    domain.Options `json:"options,omitempty"`
}

// HistoryRequest is the body of POST /charts/{chartId}/history.
type HistoryRequest struct {
	PaneID     int    `json:"pane_id"`
	SeriesID   string `json:"series_id"`
	BeforeTime *int64 `json:"before_time"`
	Count      *int   `json:"count,omitempty"`
}

// ErrorResponse is the body of every 4xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChartListResponse is the body of GET /charts.
type ChartListResponse struct {
	Charts []string `json:"charts"`
}

// SessionResponse is the body of POST /sessions.
type SessionResponse struct {
	SessionID string `json:"sessionId"`
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Charts   int    `json:"charts"`
	Sessions int    `json:"sessions"`
}
