// Package storage defines where chart series come from. Backends are
// producers for the in-memory engine, not a persistence layer behind it.
package storage

import (
	"context"
	"fmt"

	"chart-pager/internal/domain"
)

// SeriesSource provides stored series to the loader.
//
//go:generate mockgen -source series.go -destination=mock/series_mock.go -package=storagemock
type SeriesSource interface {
	// ListSeries returns the keys of all stored series, ordered by
	// (chart_id, pane_id, series_id).
	ListSeries(ctx context.Context) ([]domain.SeriesKey, error)

	// LoadSeries returns one series with points in stored order.
	// Returns ErrNotFound if the series does not exist.
	LoadSeries(ctx context.Context, key domain.SeriesKey) (*domain.SeriesData, error)
}

// SeriesSink stores series produced outside the engine.
type SeriesSink interface {
	// ReplaceSeries atomically replaces the stored series with data.
	ReplaceSeries(ctx context.Context, data *domain.SeriesData) error
}

// SeriesStore is a backend that is both a source and a sink.
type SeriesStore interface {
	SeriesSource
	SeriesSink
}

// ValidateSeries checks the fields every backend relies on.
func ValidateSeries(data *domain.SeriesData) error {
	if data == nil {
		return fmt.Errorf("%w: nil series", ErrInvalidInput)
	}
	if data.Key.ChartID == "" || data.Key.SeriesID == "" {
		return fmt.Errorf("%w: chart and series id are required", ErrInvalidInput)
	}
	if data.Key.PaneID < 0 {
		return fmt.Errorf("%w: pane id must be >= 0", ErrInvalidInput)
	}
	if data.SeriesType == "" {
		return fmt.Errorf("%w: series type is required", ErrInvalidInput)
	}
	return nil
}
