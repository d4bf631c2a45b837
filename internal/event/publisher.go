package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"payment-service/internal/config"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	defaultBatchSize    = 100
	defaultBatchTimeout = 100
)

var (
	publishSuccessCounter = metrics.GetOrCreateCounter(`payment_event_publish_total{result="success"}`)
	publishErrorCounter   = metrics.GetOrCreateCounter(`payment_event_publish_total{result="error"}`)
)

type CapturedPayment struct {
	PaymentID       uuid.UUID `json:"paymentId"`
	PaypalPaymentID string    `json:"paypalPaymentId"`
	Amount          string    `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
}

type PaymentCaptured struct {
	OrderID       uuid.UUID         `json:"orderId"`
	PaypalOrderID string            `json:"paypalOrderId"`
	Payments      []CapturedPayment `json:"payments"`
}

func NewWriter(cfg config.Kafka) *kafka.Writer {
	batchSize := cfg.Writer.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchTimeout := cfg.Writer.BatchTimeoutMs
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Broker.URL),
		Topic:                  cfg.Topic.PaymentEvents,
		Balancer:               &kafka.ReferenceHash{},
		BatchSize:              batchSize,
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           time.Duration(batchTimeout) * time.Millisecond,
		Async:                  false,
		AllowAutoTopicCreation: false,
	}
}

// Publisher emits capture events to Kafka. Publication is best effort: the
// durable record of a capture is the database, not the topic.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewPublisher(writer *kafka.Writer, logger *slog.Logger) *Publisher {
	return &Publisher{writer: writer, logger: logger}
}

func (p *Publisher) PublishCaptured(ctx context.Context, e PaymentCaptured) error {
	value, err := json.Marshal(e)
	if err != nil {
		publishErrorCounter.Inc()
		return err
	}

	msg := kafka.Message{
		// key by paypal order id to keep per-order ordering
		Key:   []byte(e.PaypalOrderID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		publishErrorCounter.Inc()
		return err
	}

	p.logger.InfoContext(ctx, "Published capture event", "paypalOrderId", e.PaypalOrderID)
	publishSuccessCounter.Inc()

	return nil
}
