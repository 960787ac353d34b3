package models

import "time"

// Event types
const (
	EventTypeProductCreated  = "PRODUCT_CREATED"
	EventTypeProductUpdated  = "PRODUCT_UPDATED"
	EventTypeProductDeleted  = "PRODUCT_DELETED"
	EventTypeProductVerified = "PRODUCT_IMAGES_VERIFIED"
	EventTypeOrderCreated    = "ORDER_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ProductEvent is published on every catalog mutation.
type ProductEvent struct {
	BaseEvent
	ProductID     string     `json:"product_id"`
	Name          string     `json:"name"`
	Brand         string     `json:"brand,omitempty"`
	ImageState    ImageState `json:"image_state,omitempty"`
	ImagesChanged bool       `json:"images_changed"`
}

// NeedsVerification reports whether the image worker should check this product.
func (e *ProductEvent) NeedsVerification() bool {
	switch e.EventType {
	case EventTypeProductCreated:
		return e.ImageState != ImageStateVerified
	case EventTypeProductUpdated:
		return e.ImagesChanged && e.ImageState != ImageStateVerified
	}
	return false
}

// OrderCreatedEvent published when order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID   string     `json:"order_id"`
	UserEmail string     `json:"user_email"`
	Total     int64      `json:"total"`
	Items     []LineItem `json:"items"`
}
