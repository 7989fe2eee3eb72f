package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
)

// PaymentEventType represents the type of payment event.
type PaymentEventType string

const (
	PaymentEventCompleted PaymentEventType = "payment.completed"
	PaymentEventFailed    PaymentEventType = "payment.failed"
)

// PaymentEvent is a settlement notice from the payments topic. OrderID is the
// store identity returned by order creation.
type PaymentEvent struct {
	ID        string           `json:"id"`
	Type      PaymentEventType `json:"type"`
	PaymentID string           `json:"payment_id"`
	OrderID   string           `json:"order_id"`
	Timestamp time.Time        `json:"timestamp"`
}

// PaymentUpdater applies a payment status to an order.
type PaymentUpdater interface {
	UpdatePayment(ctx context.Context, id string, req *models.UpdatePaymentRequest) (*models.Order, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer feeds payment events into the same path as the HTTP
// payment endpoint.
type KafkaConsumer struct {
	reader   messageReader
	payments PaymentUpdater
	logger   *logging.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKafkaConsumer creates a new Kafka-based event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, payments PaymentUpdater) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.PaymentsTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return newKafkaConsumer(reader, payments)
}

func newKafkaConsumer(reader messageReader, payments PaymentUpdater) *KafkaConsumer {
	return &KafkaConsumer{
		reader:   reader,
		payments: payments,
		logger:   logging.NewLogger("kafka-consumer"),
		stopCh:   make(chan struct{}),
	}
}

// Start consumes events until ctx is cancelled or Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
		}

		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-c.stopCh:
				c.logger.Info("Kafka consumer stopped")
				return nil
			default:
			}
			c.logger.Error("Failed to read message", logging.Fields{"error": err.Error()})
			continue
		}

		c.handleMessage(ctx, msg)
	}
}

// Stop stops the consumer and closes the reader.
func (c *KafkaConsumer) Stop() error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stopCh)
		err = c.reader.Close()
	})
	return err
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	var status models.PaymentStatus
	switch event.Type {
	case PaymentEventCompleted:
		status = models.PaymentStatusPaid
	case PaymentEventFailed:
		status = models.PaymentStatusFailed
	default:
		c.logger.Debug("Ignoring unknown event type", logging.Fields{"type": event.Type})
		return
	}

	c.logger.Info("Handling payment event", logging.Fields{
		"event_id":   event.ID,
		"payment_id": event.PaymentID,
		"id":         event.OrderID,
		"status":     status,
	})

	if _, err := c.payments.UpdatePayment(ctx, event.OrderID, &models.UpdatePaymentRequest{Status: status}); err != nil {
		c.logger.Error("Failed to update payment from event", logging.Fields{
			"event_id": event.ID,
			"id":       event.OrderID,
			"error":    err.Error(),
		})
	}
}
