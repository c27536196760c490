// Package pagination is the chart data façade used by the transports. It
// decides whether a series is sent whole or in chunks and serves history
// pages keyed by a time cursor.
package pagination

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"chart-pager/internal/domain"
	"chart-pager/internal/logging"
	"chart-pager/internal/observability"
	"chart-pager/internal/registry"
	"chart-pager/internal/series"
	"chart-pager/internal/subscription"
)

// DefaultChunkThreshold is the series size at which initial loads switch
// from the whole series to a window of the most recent points.
const DefaultChunkThreshold = 500

// Config configures a Service.
type Config struct {
	// ChunkThreshold defaults to DefaultChunkThreshold.
	ChunkThreshold int
	Logger         *zap.Logger
}

// Service wraps a chart registry with a single guard and a subscription hub.
// All data returned is copied; no caller ever holds a live store.
type Service struct {
	mu       sync.RWMutex
	registry *registry.Registry
	hub      *subscription.Hub

	threshold int
	logger    *zap.Logger
}

// New creates a Service with its own registry and hub.
func New(cfg Config) *Service {
	threshold := cfg.ChunkThreshold
	if threshold <= 0 {
		threshold = DefaultChunkThreshold
	}
	logger := logging.OrNop(cfg.Logger)

	return &Service{
		registry:  registry.New(),
		hub:       subscription.NewHub(logger),
		threshold: threshold,
		logger:    logger,
	}
}

// ChunkThreshold returns the configured threshold.
func (s *Service) ChunkThreshold() int {
	return s.threshold
}

// CreateChart creates a chart, or returns the existing one unchanged.
func (s *Service) CreateChart(chartID string, options domain.Options) ChartInfo {
	s.mu.Lock()
	c := s.registry.GetOrCreate(chartID, options)
	info := ChartInfo{ChartID: c.ID(), Options: orEmpty(c.Options())}
	s.mu.Unlock()

	return info
}

// HasChart reports whether chartID exists.
func (s *Service) HasChart(chartID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.registry.Get(chartID)
	return ok
}

// ListCharts returns chart ids in creation order.
func (s *Service) ListCharts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.registry.List()
}

// ChartCount returns the number of charts.
func (s *Service) ChartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.registry.Len()
}

// SetSeriesData fully replaces a series, creating the chart and pane on
// demand. Subscribers are notified after the guard is released, so they may
// call back into the service.
func (s *Service) SetSeriesData(ctx context.Context, chartID string, paneID int, seriesID, seriesType string, points []domain.Point, options domain.Options) WriteResult {
	s.mu.Lock()
	store := s.registry.SetSeries(chartID, paneID, seriesID, seriesType, points, options)
	update := domain.SeriesUpdate{PaneID: paneID, SeriesID: seriesID, Count: store.Len()}
	s.mu.Unlock()

	observability.RecordSeriesWrite(update.Count)
	s.logger.Debug("series replaced",
		zap.String("chart_id", chartID),
		zap.Int("pane_id", paneID),
		zap.String("series_id", seriesID),
		zap.Int("count", update.Count),
	)

	s.hub.Notify(ctx, domain.Event{
		ChartID: chartID,
		Type:    domain.EventSeriesUpdated,
		Series:  &update,
	})

	return WriteResult{SeriesID: seriesID, SeriesType: seriesType, Count: update.Count}
}

// DeleteChart removes a chart and all its series. Subscribers of the chart
// receive EventChartDeleted and stay registered.
func (s *Service) DeleteChart(ctx context.Context, chartID string) bool {
	s.mu.Lock()
	deleted := s.registry.Delete(chartID)
	s.mu.Unlock()

	if deleted {
		s.hub.Notify(ctx, domain.Event{ChartID: chartID, Type: domain.EventChartDeleted})
	}
	return deleted
}

// GetChartData returns a consistent dump of the whole chart.
func (s *Service) GetChartData(chartID string) (*ChartData, error) {
	s.mu.RLock()
	snap, ok := s.registry.Snapshot(chartID)
	s.mu.RUnlock()

	if !ok {
		return nil, ErrChartNotFound
	}
	return &ChartData{
		ChartID: snap.ChartID,
		Panes:   Panes(snap.Panes),
		Options: orEmpty(snap.Options),
	}, nil
}

// GetInitialData returns the whole series when it is smaller than the chunk
// threshold, otherwise the most recent threshold points with chunk metadata.
func (s *Service) GetInitialData(chartID string, paneID int, seriesID string) (*InitialData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, err := s.lookup(chartID, paneID, seriesID)
	if err != nil {
		return nil, err
	}

	res := &InitialData{
		SeriesID:   seriesID,
		SeriesType: store.SeriesType(),
		Options:    orEmpty(store.Options()),
		TotalCount: store.Len(),
	}

	if store.Len() < s.threshold {
		res.Data = store.Points()
		observability.RecordWindowServed(observability.WindowInitialFull, len(res.Data))
		return res, nil
	}

	w := store.WindowBefore(nil, s.threshold)
	res.Data = w.Points
	res.Chunked = true
	res.TotalCount = w.TotalAvailable
	res.ChunkInfo = &w.Info
	res.HasMoreBefore = &w.HasMoreBefore
	res.HasMoreAfter = &w.HasMoreAfter
	observability.RecordWindowServed(observability.WindowInitialChunked, len(res.Data))
	return res, nil
}

// GetHistory returns up to count points strictly before beforeTime.
func (s *Service) GetHistory(chartID string, paneID int, seriesID string, beforeTime int64, count int) (*History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, err := s.lookup(chartID, paneID, seriesID)
	if err != nil {
		return nil, err
	}

	w := store.WindowBefore(&beforeTime, count)
	observability.RecordWindowServed(observability.WindowHistory, len(w.Points))

	return &History{
		SeriesID:      seriesID,
		Data:          w.Points,
		ChunkInfo:     w.Info,
		HasMoreBefore: w.HasMoreBefore,
		HasMoreAfter:  w.HasMoreAfter,
		TotalCount:    w.TotalAvailable,
	}, nil
}

// GetRange returns every point with startTime <= time <= endTime.
func (s *Service) GetRange(chartID string, paneID int, seriesID string, startTime, endTime int64) (*Range, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, err := s.lookup(chartID, paneID, seriesID)
	if err != nil {
		return nil, err
	}

	points := store.RangeByTime(startTime, endTime)
	observability.RecordWindowServed(observability.WindowRange, len(points))

	return &Range{SeriesID: seriesID, Data: points, Count: len(points)}, nil
}

// Subscribe registers handler for events on chartID. The returned function
// unsubscribes and tolerates repeated calls.
func (s *Service) Subscribe(chartID string, handler subscription.Handler) func() {
	return s.hub.Subscribe(chartID, handler)
}

// lookup must be called with s.mu held.
func (s *Service) lookup(chartID string, paneID int, seriesID string) (*series.Store, error) {
	c, ok := s.registry.Get(chartID)
	if !ok {
		return nil, ErrChartNotFound
	}
	store, ok := c.Series(paneID, seriesID)
	if !ok {
		return nil, ErrSeriesNotFound
	}
	return store, nil
}
