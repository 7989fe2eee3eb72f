// Package events carries order events to and from Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/config"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/logging"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/models"
	"github.com/tm-acme-shop/acme-shop-bakery-orders/internal/service"
)

var _ service.EventPublisher = (*KafkaPublisher)(nil)

// EventType represents the type of order event.
type EventType string

const (
	EventTypeOrderCreated        EventType = "order.created"
	EventTypeOrderPaymentUpdated EventType = "order.payment_updated"
)

// OrderEvent is the envelope written to the orders topic.
type OrderEvent struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	OrderID       string          `json:"order_id"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes order events to Kafka.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
	logger *logging.Logger
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(writer, cfg.OrdersTopic)
}

func newKafkaPublisher(writer messageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
		now:    time.Now,
		logger: logging.NewLogger("kafka-publisher"),
	}
}

// PublishOrderCreated publishes an order created event.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Publishing order created event", logging.Fields{
		"order_id": order.OrderID,
	})

	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	return p.publish(ctx, p.createEvent(ctx, EventTypeOrderCreated, order.OrderID, data))
}

// PublishPaymentUpdated publishes the order after a payment status change.
func (p *KafkaPublisher) PublishPaymentUpdated(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Publishing payment updated event", logging.Fields{
		"order_id": order.OrderID,
		"status":   order.Payment.Status,
	})

	payload := struct {
		Order  *models.Order        `json:"order"`
		Status models.PaymentStatus `json:"status"`
	}{
		Order:  order,
		Status: order.Payment.Status,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.publish(ctx, p.createEvent(ctx, EventTypeOrderPaymentUpdated, order.OrderID, data))
}

func (p *KafkaPublisher) createEvent(ctx context.Context, eventType EventType, orderID string, data []byte) *OrderEvent {
	return &OrderEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		OrderID:       orderID,
		Data:          data,
		Timestamp:     p.now().UTC(),
		CorrelationID: logging.RequestIDFromContext(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *OrderEvent) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"order_id":   event.OrderID,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
		"topic":      p.topic,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}
