package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"chart-pager/internal/domain"
	"chart-pager/internal/storage"
)

var pointColumns = []string{"chart_id", "pane_id", "series_id", "seq", "time", "payload"}

// SeriesStore implements storage.SeriesStore using PostgreSQL.
type SeriesStore struct {
	pool *Pool
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(pool *Pool) *SeriesStore {
	return &SeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// ReplaceSeries upserts the metadata row and rewrites all points in one
// transaction. Points are bulk loaded with COPY.
func (s *SeriesStore) ReplaceSeries(ctx context.Context, data *domain.SeriesData) error {
	if err := storage.ValidateSeries(data); err != nil {
		return err
	}

	options, err := marshalOptions(data.Options)
	if err != nil {
		return err
	}
	rows := make([][]any, 0, len(data.Points))
	for i, p := range data.Points {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("%w: point %d: %v", storage.ErrInvalidInput, i, err)
		}
		rows = append(rows, []any{
			data.Key.ChartID, data.Key.PaneID, data.Key.SeriesID,
			i, p.Time(), json.RawMessage(payload),
		})
	}

	return s.pool.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO series_meta (chart_id, pane_id, series_id, series_type, options, updated_at)
			VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (chart_id, pane_id, series_id) DO UPDATE
			SET series_type = EXCLUDED.series_type,
				options = EXCLUDED.options,
				updated_at = EXCLUDED.updated_at
		`, data.Key.ChartID, data.Key.PaneID, data.Key.SeriesID, data.SeriesType, options)
		if err != nil {
			return fmt.Errorf("upsert series meta: %w", err)
		}

		_, err = tx.Exec(ctx, `
			DELETE FROM series_points
			WHERE chart_id = $1 AND pane_id = $2 AND series_id = $3
		`, data.Key.ChartID, data.Key.PaneID, data.Key.SeriesID)
		if err != nil {
			return fmt.Errorf("delete series points: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"series_points"}, pointColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy series points: %w", err)
		}
		return nil
	})
}

// ListSeries returns all keys ordered by (chart_id, pane_id, series_id).
func (s *SeriesStore) ListSeries(ctx context.Context) ([]domain.SeriesKey, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chart_id, pane_id, series_id
		FROM series_meta
		ORDER BY chart_id, pane_id, series_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var keys []domain.SeriesKey
	for rows.Next() {
		var k domain.SeriesKey
		if err := rows.Scan(&k.ChartID, &k.PaneID, &k.SeriesID); err != nil {
			return nil, fmt.Errorf("scan series key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// LoadSeries reads metadata and points from one snapshot.
func (s *SeriesStore) LoadSeries(ctx context.Context, key domain.SeriesKey) (*domain.SeriesData, error) {
	data := &domain.SeriesData{Key: key}
	snapshot := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := s.pool.withTx(ctx, snapshot, func(tx pgx.Tx) error {
		var options []byte
		err := tx.QueryRow(ctx, `
			SELECT series_type, options
			FROM series_meta
			WHERE chart_id = $1 AND pane_id = $2 AND series_id = $3
		`, key.ChartID, key.PaneID, key.SeriesID).Scan(&data.SeriesType, &options)
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("get series meta: %w", err)
		}
		if err := json.Unmarshal(options, &data.Options); err != nil {
			return fmt.Errorf("decode series options: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT payload
			FROM series_points
			WHERE chart_id = $1 AND pane_id = $2 AND series_id = $3
			ORDER BY seq ASC
		`, key.ChartID, key.PaneID, key.SeriesID)
		if err != nil {
			return fmt.Errorf("get series points: %w", err)
		}
		defer rows.Close()

		data.Points, err = scanPoints(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func scanPoints(rows pgx.Rows) ([]domain.Point, error) {
	points := []domain.Point{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		var p domain.Point
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}
	return points, nil
}

func marshalOptions(o domain.Options) ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("%w: options: %v", storage.ErrInvalidInput, err)
	}
	return b, nil
}
