// Package ingestion feeds series from external producers into the engine.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chart-pager/internal/logging"
	"chart-pager/internal/observability"
	"chart-pager/internal/pagination"
	"chart-pager/internal/storage"
)

// Loader copies every series of a source into a pagination service.
type Loader struct {
	source   storage.SeriesSource
	name     string
	service  *pagination.Service
	interval time.Duration
	logger   *zap.Logger
}

// LoaderOptions contains configuration for creating a Loader.
type LoaderOptions struct {
	Source storage.SeriesSource
	// Name labels metrics and logs, e.g. "postgres".
	Name    string
	Service *pagination.Service
	// Interval between passes in Run. Zero runs a single pass.
	Interval time.Duration
	Logger   *zap.Logger
}

// LoadStats summarizes one pass.
type LoadStats struct {
	Loaded  int
	Missing int
	Failed  int
	Points  int
}

// NewLoader creates a new Loader.
func NewLoader(opts LoaderOptions) *Loader {
	name := opts.Name
	if name == "" {
		name = "source"
	}
	return &Loader{
		source:   opts.Source,
		name:     name,
		service:  opts.Service,
		interval: opts.Interval,
		logger:   logging.OrNop(opts.Logger).With(zap.String("source", name)),
	}
}

// LoadAll replaces every listed series in the service. A series that fails
// to load is skipped; the returned error joins all such failures.
func (l *Loader) LoadAll(ctx context.Context) (LoadStats, error) {
	start := time.Now()
	defer func() {
		observability.RecordLoadPass(l.name, time.Since(start).Seconds())
	}()

	var stats LoadStats
	keys, err := l.source.ListSeries(ctx)
	if err != nil {
		return stats, fmt.Errorf("list series: %w", err)
	}

	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		data, err := l.source.LoadSeries(ctx, key)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// Removed between list and load.
			stats.Missing++
			observability.RecordSeriesLoaded(l.name, "missing")
			continue
		case err != nil:
			stats.Failed++
			observability.RecordSeriesLoaded(l.name, "error")
			l.logger.Warn("load series failed",
				zap.String("chart_id", key.ChartID),
				zap.Int("pane_id", key.PaneID),
				zap.String("series_id", key.SeriesID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("load %s/%d/%s: %w", key.ChartID, key.PaneID, key.SeriesID, err))
			continue
		}

		res := l.service.SetSeriesData(ctx, key.ChartID, key.PaneID, key.SeriesID, data.SeriesType, data.Points, data.Options)
		stats.Loaded++
		stats.Points += res.Count
		observability.RecordSeriesLoaded(l.name, "ok")
	}

	l.logger.Info("load pass complete",
		zap.Int("loaded", stats.Loaded),
		zap.Int("missing", stats.Missing),
		zap.Int("failed", stats.Failed),
		zap.Int("points", stats.Points),
		zap.Duration("duration", time.Since(start)),
	)
	return stats, errors.Join(errs...)
}

// Run loads once, then again on every interval tick until ctx is cancelled.
// With a zero interval it returns after the first pass.
func (l *Loader) Run(ctx context.Context) error {
	if _, err := l.LoadAll(ctx); err != nil {
		if l.interval <= 0 {
			return err
		}
		l.logger.Error("load pass failed", zap.Error(err))
	}
	if l.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := l.LoadAll(ctx); err != nil && ctx.Err() == nil {
				l.logger.Error("load pass failed", zap.Error(err))
			}
		}
	}
}
