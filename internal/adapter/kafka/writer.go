package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoergFritschi-crypto/garden-climate/internal/config"
	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes location reports to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic. Reports
// are keyed by location so all versions of a location land on one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes multiple reports in a single WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.LocationReport) error {
	if len(reports) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(reports))
	for i := range reports {
		msg, err := serializeToMessage(reports[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d reports: %w", len(msgs), err)
	}
	w.logger.Debug("reports published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a LocationReport into a Kafka message.
func serializeToMessage(report domain.LocationReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize location report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "location_key", Value: []byte(report.Key)},
			{Key: "generated_at", Value: []byte(report.GeneratedAt.Format(time.RFC3339))},
			{Key: "usda_zone", Value: []byte(report.Report.USDAZone)},
			{Key: "request_id", Value: []byte(report.RequestID)},
		},
	}, nil
}
