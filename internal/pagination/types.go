package pagination

import (
	"bytes"
	"encoding/json"
	"strconv"

	"chart-pager/internal/domain"
)

// ChartInfo is returned by CreateChart.
type ChartInfo struct {
	ChartID string         `json:"chartId"`
	Options domain.Options `json:"options"`
}

// WriteResult summarizes a SetSeriesData call.
type WriteResult struct {
	SeriesID   string `json:"seriesId"`
	SeriesType string `json:"seriesType"`
	Count      int    `json:"count"`
}

// InitialData is the first page of a series. Small series are sent whole;
// large ones carry the chunk fields.
type InitialData struct {
	SeriesID      string             `json:"seriesId"`
	SeriesType    string             `json:"seriesType"`
	Data          []domain.Point     `json:"data"`
	Options       domain.Options     `json:"options"`
	Chunked       bool               `json:"chunked"`
	TotalCount    int                `json:"totalCount"`
	ChunkInfo     *domain.WindowInfo `json:"chunkInfo,omitempty"`
	HasMoreBefore *bool              `json:"hasMoreBefore,omitempty"`
	HasMoreAfter  *bool              `json:"hasMoreAfter,omitempty"`
}

// History is one page of older data.
type History struct {
	SeriesID      string            `json:"seriesId"`
	Data          []domain.Point    `json:"data"`
	ChunkInfo     domain.WindowInfo `json:"chunkInfo"`
	HasMoreBefore bool              `json:"hasMoreBefore"`
	HasMoreAfter  bool              `json:"hasMoreAfter"`
	TotalCount    int               `json:"totalCount"`
}

// Range is the result of a time range query.
type Range struct {
	SeriesID string         `json:"seriesId"`
	Data     []domain.Point `json:"data"`
	Count    int            `json:"count"`
}

// ChartData is the full chart dump used for initial render.
type ChartData struct {
	ChartID string         `json:"chartId"`
	Panes   Panes          `json:"panes"`
	Options domain.Options `json:"options"`
}

// Panes encodes as an object keyed by stringified pane id, then series id,
// preserving insertion order.
type Panes []domain.PaneSnapshot

// MarshalJSON implements json.Marshaler.
func (p Panes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pane := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(pane.PaneID)))
		buf.WriteString(":{")
		for j, s := range pane.Series {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(s.SeriesID)
			if err != nil {
				return nil, err
			}
			s.Options = orEmpty(s.Options)
			val, err := json.Marshal(s)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func orEmpty(o domain.Options) domain.Options {
	if o == nil {
		return domain.Options{}
	}
	return o
}
