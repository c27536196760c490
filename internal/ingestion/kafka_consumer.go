package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"chart-pager/internal/domain"
	"chart-pager/internal/logging"
	"chart-pager/internal/observability"
	"chart-pager/internal/pagination"
	"chart-pager/internal/validation"
)

// SeriesMessage is the Kafka payload carrying a full series replacement.
type SeriesMessage struct {
	ChartID    string         `json:"chartId"`
	PaneID     int            `json:"paneId"`
	SeriesID   string         `json:"seriesId"`
	SeriesType string         `json:"seriesType"`
	Data       []domain.Point `json:"data"`
	Options    domain.Options `json:"options,omitempty"`
}

// MessageReader is the subset of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaOptions configures a KafkaConsumer.
type KafkaOptions struct {
	Brokers []string
	Topic   string
	GroupID string
	// RetryDelay is the pause after a failed fetch. Default: 1s.
	RetryDelay time.Duration
}

// KafkaConsumer applies SeriesMessages from a topic to a pagination service.
type KafkaConsumer struct {
	reader     MessageReader
	service    *pagination.Service
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewKafkaConsumer creates a consumer group reader for opts.Topic.
func NewKafkaConsumer(opts KafkaOptions, service *pagination.Service, logger *zap.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     opts.Brokers,
		Topic:       opts.Topic,
		GroupID:     opts.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return newKafkaConsumer(reader, opts.RetryDelay, service, logger)
}

func newKafkaConsumer(reader MessageReader, retryDelay time.Duration, service *pagination.Service, logger *zap.Logger) *KafkaConsumer {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &KafkaConsumer{
		reader:     reader,
		service:    service,
		retryDelay: retryDelay,
		logger:     logging.OrNop(logger).With(zap.String("component", "kafka_consumer")),
	}
}

// Run consumes until ctx is cancelled. Messages that cannot be applied are
// logged and committed so they do not block the partition.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.logger.Info("starting series consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			observability.RecordKafkaMessage("fetch_error")
			c.logger.Error("fetch message failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if err := c.handleMessage(ctx, msg); err != nil {
			observability.RecordKafkaMessage("invalid")
			c.logger.Warn("skipping series message",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		} else {
			observability.RecordKafkaMessage("ok")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("commit message failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// Close closes the underlying reader.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var m SeriesMessage
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := validation.SeriesRef(m.ChartID, m.PaneID, m.SeriesID); err != nil {
		return err
	}
	if m.SeriesType == "" {
		return errors.New("seriesType: is required")
	}

	res := c.service.SetSeriesData(ctx, m.ChartID, m.PaneID, m.SeriesID, m.SeriesType, m.Data, m.Options)
	c.logger.Debug("series message applied",
		zap.String("chart_id", m.ChartID),
		zap.String("series_id", m.SeriesID),
		zap.Int("count", res.Count),
	)
	return nil
}
