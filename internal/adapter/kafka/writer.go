package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/erg5-etl-service/internal/config"
	"github.com/couchcryptid/erg5-etl-service/internal/domain"
)

// messageWriter is the subset of kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes one message per cell record to a Kafka topic.
// It implements pipeline.Loader.
type Writer struct {
	writer    messageWriter
	runID     domain.RunID
	batchSize int
	logger    *slog.Logger
}

// NewWriter creates a Kafka producer for the configured topic. Records of
// the same product and cell hash to the same partition.
func NewWriter(cfg *config.Config, runID domain.RunID, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, runID: runID, batchSize: cfg.BatchSize, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Load serializes the records of b and publishes them in chunks of the
// configured batch size.
func (w *Writer) Load(ctx context.Context, b domain.ProductBatch) error {
	if len(b.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(b.Records))
	for i := range b.Records {
		msg, err := serializeToMessage(b, b.Records[i], w.runID)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	size := w.batchSize
	if size <= 0 {
		size = len(msgs)
	}
	for start := 0; start < len(msgs); start += size {
		end := min(start+size, len(msgs))
		if err := w.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("publish records %d-%d: %w", start, end, err)
		}
	}
	w.logger.Debug("records published", "product", b.Product, "data_date", b.Date, "data_time", b.Time, "records", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// cellValue is the JSON value of a published record.
type cellValue struct {
	Product string   `json:"product"`
	CellID  *int     `json:"cellid"`
	Date    string   `json:"date"`
	Time    string   `json:"time"`
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Value   *float64 `json:"value"`
}

// serializeToMessage marshals a cell record into a Kafka message keyed by
// <product>:<cellid>.
func serializeToMessage(b domain.ProductBatch, r domain.CellRecord, runID domain.RunID) (kafkago.Message, error) {
	data, err := json.Marshal(cellValue{
		Product: b.Product,
		CellID:  r.CellID,
		Date:    r.Date,
		Time:    r.Time,
		Lat:     r.Lat,
		Lon:     r.Lon,
		Value:   r.Value,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cell record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(b.Product + ":" + domain.FormatCellID(r.CellID)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "product", Value: []byte(b.Product)},
			{Key: "data_date", Value: []byte(b.Date)},
			{Key: "data_time", Value: []byte(b.Time)},
			{Key: "run_id", Value: []byte(runID.String())},
		},
	}, nil
}
