package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chart-pager/internal/domain"
	"chart-pager/internal/storage"
)

// SeriesStore implements storage.SeriesStore using ClickHouse.
//
// Every ReplaceSeries writes a new version. Readers take the highest
// version from series_meta and only read points of that version, so a
// replacement becomes visible all at once. Points of older versions are
// deleted once the new metadata row is in.
type SeriesStore struct {
	conn *Conn
	now  func() time.Time
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(conn *Conn) *SeriesStore {
	return &SeriesStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// ReplaceSeries writes points first and metadata second, then prunes the
// superseded versions of the series' points.
func (s *SeriesStore) ReplaceSeries(ctx context.Context, data *domain.SeriesData) error {
	if err := storage.ValidateSeries(data); err != nil {
		return err
	}

	options := []byte("{}")
	if data.Options != nil {
		b, err := json.Marshal(data.Options)
		if err != nil {
			return fmt.Errorf("%w: options: %v", storage.ErrInvalidInput, err)
		}
		options = b
	}

	version := uint64(s.now().UnixNano())
	paneID := uint32(data.Key.PaneID)

	if len(data.Points) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `
			INSERT INTO series_points (
				chart_id, pane_id, series_id, version, seq, time, payload
			)
		`)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}

		for i, p := range data.Points {
			payload, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("%w: point %d: %v", storage.ErrInvalidInput, i, err)
			}
			err = batch.Append(
				data.Key.ChartID, paneID, data.Key.SeriesID,
				version, uint32(i), p.Time(), string(payload),
			)
			if err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}

		if err := batch.Send(); err != nil {
			return fmt.Errorf("send batch: %w", err)
		}
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO series_meta (chart_id, pane_id, series_id, series_type, options, version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, data.Key.ChartID, paneID, data.Key.SeriesID, data.SeriesType, string(options), version)
	if err != nil {
		return fmt.Errorf("insert series meta: %w", err)
	}

	err = s.conn.Exec(ctx, `
		DELETE FROM series_points
		WHERE chart_id = ? AND pane_id = ? AND series_id = ? AND version < ?
	`, data.Key.ChartID, paneID, data.Key.SeriesID, version)
	if err != nil {
		return fmt.Errorf("prune superseded points: %w", err)
	}
	return nil
}

// ListSeries returns all keys ordered by (chart_id, pane_id, series_id).
func (s *SeriesStore) ListSeries(ctx context.Context) ([]domain.SeriesKey, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT chart_id, pane_id, series_id
		FROM series_meta
		ORDER BY chart_id, pane_id, series_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var keys []domain.SeriesKey
	for rows.Next() {
		var chartID, seriesID string
		var paneID uint32
		if err := rows.Scan(&chartID, &paneID, &seriesID); err != nil {
			return nil, fmt.Errorf("scan series key: %w", err)
		}
		keys = append(keys, domain.SeriesKey{ChartID: chartID, PaneID: int(paneID), SeriesID: seriesID})
	}
	return keys, rows.Err()
}

// LoadSeries returns the latest version of a series.
func (s *SeriesStore) LoadSeries(ctx context.Context, key domain.SeriesKey) (*domain.SeriesData, error) {
	paneID := uint32(key.PaneID)

	var (
		count      uint64
		seriesType string
		options    string
		version    uint64
	)
	err := s.conn.QueryRow(ctx, `
		SELECT count(), argMax(series_type, version), argMax(options, version), max(version)
		FROM series_meta
		WHERE chart_id = ? AND pane_id = ? AND series_id = ?
	`, key.ChartID, paneID, key.SeriesID).Scan(&count, &seriesType, &options, &version)
	if err != nil {
		return nil, fmt.Errorf("get series meta: %w", err)
	}
	if count == 0 {
		return nil, storage.ErrNotFound
	}

	data := &domain.SeriesData{Key: key, SeriesType: seriesType}
	if err := json.Unmarshal([]byte(options), &data.Options); err != nil {
		return nil, fmt.Errorf("decode series options: %w", err)
	}

	rows, err := s.conn.Query(ctx, `
		SELECT payload
		FROM series_points
		WHERE chart_id = ? AND pane_id = ? AND series_id = ? AND version = ?
		ORDER BY seq ASC
	`, key.ChartID, paneID, key.SeriesID, version)
	if err != nil {
		return nil, fmt.Errorf("get series points: %w", err)
	}
	defer rows.Close()

	data.Points = []domain.Point{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		var p domain.Point
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode point: %w", err)
		}
		data.Points = append(data.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}
	return data, nil
}
