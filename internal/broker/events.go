package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes catalog and order events to Kafka
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishProductEvent publishes a product lifecycle event keyed by product id
func (ep *EventPublisher) PublishProductEvent(ctx context.Context, event *models.ProductEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductID)
	err := ep.producer.Publish(ctx, key, event.EventType, event)
	record(event.EventType, err)
	return err
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderID)
	err := ep.producer.Publish(ctx, key, event.EventType, event)
	record(event.EventType, err)
	return err
}

func record(eventType string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	util.CatalogEventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishProductEvent(context.Context, *models.ProductEvent) error { return nil }

func (NopPublisher) PublishOrderCreated(context.Context, *models.OrderCreatedEvent) error { return nil }

// EventHandler handles incoming events
type EventHandler struct {
	onProductEvent func(context.Context, *models.ProductEvent) error
	logger         *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.Component("kafka")}
}

// OnProductEvent registers a handler for product lifecycle events
func (eh *EventHandler) OnProductEvent(handler func(context.Context, *models.ProductEvent) error) {
	eh.onProductEvent = handler
}

// HandleMessage routes a message by its event type header, decoding the
// body's event_type only for messages published without the header.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	typ := eventType(msg)
	if typ == "" {
		var baseEvent models.BaseEvent
		if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
			return fmt.Errorf("failed to unmarshal base event: %w", err)
		}
		typ = baseEvent.EventType
	}

	eh.logger.Debug("Handling event", zap.String("type", typ), zap.String("key", string(msg.Key)))

	switch typ {
	case models.EventTypeProductCreated, models.EventTypeProductUpdated,
		models.EventTypeProductDeleted, models.EventTypeProductVerified:
		if eh.onProductEvent != nil {
			var event models.ProductEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal product event: %w", err)
			}
			return eh.onProductEvent(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", typ))
	}

	return nil
}
