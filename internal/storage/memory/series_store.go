package memory

import (
	"context"
	"sort"
	"sync"

	"chart-pager/internal/domain"
	"chart-pager/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[domain.SeriesKey]*domain.SeriesData
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[domain.SeriesKey]*domain.SeriesData),
	}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// ReplaceSeries stores a copy of data, dropping any previous version.
func (s *SeriesStore) ReplaceSeries(_ context.Context, data *domain.SeriesData) error {
	if err := storage.ValidateSeries(data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[data.Key] = cloneSeries(data)
	return nil
}

// ListSeries returns all keys ordered by (chart_id, pane_id, series_id).
func (s *SeriesStore) ListSeries(_ context.Context) ([]domain.SeriesKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]domain.SeriesKey, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ChartID != b.ChartID {
			return a.ChartID < b.ChartID
		}
		if a.PaneID != b.PaneID {
			return a.PaneID < b.PaneID
		}
		return a.SeriesID < b.SeriesID
	})
	return keys, nil
}

// LoadSeries returns a copy of the stored series.
func (s *SeriesStore) LoadSeries(_ context.Context, key domain.SeriesKey) (*domain.SeriesData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneSeries(d), nil
}

func cloneSeries(d *domain.SeriesData) *domain.SeriesData {
	points := domain.ClonePoints(d.Points)
	if points == nil {
		points = []domain.Point{}
	}
	return &domain.SeriesData{
		Key:        d.Key,
		SeriesType: d.SeriesType,
		Points:     points,
		Options:    d.Options.Clone(),
	}
}
