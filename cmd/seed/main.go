// Package main generates synthetic chart series and publishes them to a
// series source (postgres, clickhouse, a memory-backend series file), the
// Kafka update topic, or a running server over REST.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"chart-pager/internal/domain"
	"chart-pager/internal/ingestion"
	"chart-pager/internal/logging"
	"chart-pager/internal/storage"
	chstore "chart-pager/internal/storage/clickhouse"
	"chart-pager/internal/storage/memory"
	"chart-pager/internal/storage/migrations"
	pgstore "chart-pager/internal/storage/postgres"
)

func main() {
	target := flag.String("target", "http", "Where to publish: postgres, clickhouse, file, kafka, http")
	seriesFile := flag.String("file", "series.json", "Series file written by the file target")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	brokers := flag.String("brokers", "localhost:9092", "Comma-separated Kafka brokers")
	topic := flag.String("topic", "chart-series", "Kafka topic")
	serverURL := flag.String("url", "http://localhost:8080", "Server base URL for the http target")
	charts := flag.Int("charts", 3, "Number of charts")
	points := flag.Int("points", 5000, "Points per series")
	interval := flag.Duration("interval", time.Minute, "Spacing between points")
	seed := flag.Int64("seed", 1, "Random seed")
	logLevel := flag.String("log-level", "info", "Log level")
	flag.Parse()

	logger, err := logging.New(*logLevel, "console")
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	series := generate(rand.New(rand.NewSource(*seed)), *charts, *points, *interval)

	var publish func(context.Context, *domain.SeriesData) error
	// flush runs once every series is published.
	var flush func() error
	switch *target {
	case "postgres":
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatal("connect to postgres", zap.Error(err))
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal("migrate postgres", zap.Error(err))
		}
		publish = sinkPublisher(pgstore.NewSeriesStore(pool))

	case "clickhouse":
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal("connect to clickhouse", zap.Error(err))
		}
		defer conn.Close()
		publish = sinkPublisher(chstore.NewSeriesStore(conn))

	case "file":
		store := memory.NewSeriesStore()
		publish = sinkPublisher(store)
		flush = func() error { return store.WriteFile(*seriesFile) }

	case "kafka":
		writer := &kafka.Writer{
			Addr:                   kafka.TCP(strings.Split(*brokers, ",")...),
			Topic:                  *topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		}
		defer writer.Close()
		publish = kafkaPublisher(writer)

	case "http":
		publish = httpPublisher(http.DefaultClient, strings.TrimRight(*serverURL, "/"))

	default:
		logger.Fatal("unknown target", zap.String("target", *target))
	}

	for _, s := range series {
		if err := publish(ctx, s); err != nil {
			logger.Fatal("publish series",
				zap.String("chart_id", s.Key.ChartID),
				zap.String("series_id", s.Key.SeriesID),
				zap.Error(err),
			)
		}
		logger.Info("published series",
			zap.String("target", *target),
			zap.String("chart_id", s.Key.ChartID),
			zap.Int("pane_id", s.Key.PaneID),
			zap.String("series_id", s.Key.SeriesID),
			zap.Int("points", len(s.Points)),
		)
	}

	if flush != nil {
		if err := flush(); err != nil {
			logger.Fatal("flush", zap.String("target", *target), zap.Error(err))
		}
	}
}

// generate builds, per chart, a candlestick series on pane 0, a moving
// average line on pane 0 and a volume histogram on pane 1.
func generate(rng *rand.Rand, charts, points int, interval time.Duration) []*domain.SeriesData {
	step := int64(interval / time.Second)
	if step < 1 {
		step = 1
	}
	start := time.Now().Unix() - int64(points)*step

	var out []*domain.SeriesData
	for c := 0; c < charts; c++ {
		chartID := fmt.Sprintf("chart-%d", c+1)
		price := 100 + rng.Float64()*50

		candles := make([]domain.Point, 0, points)
		volume := make([]domain.Point, 0, points)
		average := make([]domain.Point, 0, points)
		var window []float64

		for i := 0; i < points; i++ {
			ts := start + int64(i)*step
			open := price
			price = math.Max(1, price*(1+rng.NormFloat64()*0.01))
			high := math.Max(open, price) * (1 + rng.Float64()*0.005)
			low := math.Min(open, price) * (1 - rng.Float64()*0.005)

			candles = append(candles, domain.Point{
				"time": ts, "open": round(open), "high": round(high), "low": round(low), "close": round(price),
			})
			volume = append(volume, domain.Point{"time": ts, "value": round(1000 + rng.Float64()*9000)})

			window = append(window, price)
			if len(window) > 20 {
				window = window[1:]
			}
			var sum float64
			for _, v := range window {
				sum += v
			}
			average = append(average, domain.Point{"time": ts, "value": round(sum / float64(len(window)))})
		}

		out = append(out,
			&domain.SeriesData{
				Key:        domain.SeriesKey{ChartID: chartID, PaneID: 0, SeriesID: "price"},
				SeriesType: "candlestick",
				Points:     candles,
			},
			&domain.SeriesData{
				Key:        domain.SeriesKey{ChartID: chartID, PaneID: 0, SeriesID: "sma20"},
				SeriesType: "line",
				Points:     average,
				Options:    domain.Options{"color": "#2962FF", "lineWidth": 2},
			},
			&domain.SeriesData{
				Key:        domain.SeriesKey{ChartID: chartID, PaneID: 1, SeriesID: "volume"},
				SeriesType: "histogram",
				Points:     volume,
			},
		)
	}
	return out
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}

func sinkPublisher(sink storage.SeriesSink) func(context.Context, *domain.SeriesData) error {
	return sink.ReplaceSeries
}

func kafkaPublisher(w *kafka.Writer) func(context.Context, *domain.SeriesData) error {
	return func(ctx context.Context, s *domain.SeriesData) error {
		value, err := json.Marshal(ingestion.SeriesMessage{
			ChartID:    s.Key.ChartID,
			PaneID:     s.Key.PaneID,
			SeriesID:   s.Key.SeriesID,
			SeriesType: s.SeriesType,
			Data:       s.Points,
			Options:    s.Options,
		})
		if err != nil {
			return err
		}
		return w.WriteMessages(ctx, kafka.Message{Key: []byte(s.Key.ChartID), Value: value})
	}
}

func httpPublisher(client *http.Client, baseURL string) func(context.Context, *domain.SeriesData) error {
	return func(ctx context.Context, s *domain.SeriesData) error {
		body, err := json.Marshal(map[string]any{
			"pane_id":     s.Key.PaneID,
			"series_type": s.SeriesType,
			"data":        s.Points,
			"options":     s.Options,
		})
		if err != nil {
			return err
		}

		url := fmt.Sprintf("%s/charts/%s/data/%s", baseURL, s.Key.ChartID, s.Key.SeriesID)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		return nil
	}
}
