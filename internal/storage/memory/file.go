package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"chart-pager/internal/domain"
)

// seriesRecord is one series in a series file. Field names match the Kafka
// update message.
type seriesRecord struct {
	ChartID    string         `json:"chartId"`
	PaneID     int            `json:"paneId"`
	SeriesID   string         `json:"seriesId"`
	SeriesType string         `json:"seriesType"`
	Data       []domain.Point `json:"data"`
	Options    domain.Options `json:"options,omitempty"`
}

// LoadFile builds a store from a JSON array of series records.
func LoadFile(path string) (*SeriesStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file: %w", err)
	}
	defer f.Close()

	var records []seriesRecord
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode series file %s: %w", path, err)
	}

	store := NewSeriesStore()
	for i, r := range records {
		data := &domain.SeriesData{
			Key:        domain.SeriesKey{ChartID: r.ChartID, PaneID: r.PaneID, SeriesID: r.SeriesID},
			SeriesType: r.SeriesType,
			Points:     r.Data,
			Options:    r.Options,
		}
		if err := store.ReplaceSeries(context.Background(), data); err != nil {
			return nil, fmt.Errorf("series file %s record %d: %w", path, i, err)
		}
	}
	return store, nil
}

// WriteFile writes every stored series to path in the LoadFile format.
func (s *SeriesStore) WriteFile(path string) error {
	keys, err := s.ListSeries(context.Background())
	if err != nil {
		return err
	}

	records := make([]seriesRecord, 0, len(keys))
	s.mu.RLock()
	for _, k := range keys {
		d, ok := s.data[k]
		if !ok {
			continue
		}
		records = append(records, seriesRecord{
			ChartID:    k.ChartID,
			PaneID:     k.PaneID,
			SeriesID:   k.SeriesID,
			SeriesType: d.SeriesType,
			Data:       d.Points,
			Options:    d.Options,
		})
	}
	body, err := json.Marshal(records)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode series file: %w", err)
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write series file: %w", err)
	}
	return nil
}
