package wsapi

import "chart-pager/internal/pagination"

// Inbound message types.
const (
	typePing           = "ping"
	typeGetInitialData = "get_initial_data"
	typeRequestHistory = "request_history"
)

// Outbound message types.
const (
	typeConnected           = "connected"
	typePong                = "pong"
	typeInitialDataResponse = "initial_data_response"
	typeHistoryResponse     = "history_response"
	typeSeriesUpdated       = "series_updated"
	typeChartDeleted        = "chart_deleted"
	typeError               = "error"
)

const (
	msgUnknownType    = "Unknown message type"
	msgInvalidMessage = "Invalid message"
	msgChartNotFound  = "Chart not found"
	msgSeriesNotFound = "Series not found"
)

// clientMessage is any message a client may send.
type clientMessage struct {
	Type       string `json:"type"`
	PaneID     int    `json:"paneId"`
	SeriesID   string `json:"seriesId"`
	BeforeTime *int64 `json:"beforeTime"`
	Count      *int   `json:"count"`
}

type connectedMessage struct {
	Type    string `json:"type"`
	ChartID string `json:"chartId"`
}

type pongMessage struct {
	Type string `json:"type"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type initialDataMessage struct {
	Type    string `json:"type"`
	ChartID string `json:"chartId"`
	*pagination.InitialData
}

type historyMessage struct {
	Type    string `json:"type"`
	ChartID string `json:"chartId"`
	*pagination.History
}

type seriesUpdatedMessage struct {
	Type     string `json:"type"`
	ChartID  string `json:"chartId"`
	PaneID   int    `json:"paneId"`
	SeriesID string `json:"seriesId"`
	Count    int    `json:"count"`
}

type chartDeletedMessage struct {
	Type    string `json:"type"`
	ChartID string `json:"chartId"`
}
