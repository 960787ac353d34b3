package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/models"
	"catalog-service/internal/store"
	"catalog-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IdempotencyStore remembers which order an Idempotency-Key produced.
// Implemented by redisclient.Client.
type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	CompleteIdempotencyKey(ctx context.Context, key, orderID string, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// OrderService handles order business logic
type OrderService struct {
	store          store.OrderStore
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	eventPublisher EventPublisher
	logger         *zap.Logger
	now            func() time.Time
}

// NewOrderService creates a new order service. idempotency may be nil, in
// which case keys are checked against the order store only.
func NewOrderService(
	orderStore store.OrderStore,
	idempotency IdempotencyStore,
	idempotencyTTL time.Duration,
	eventPublisher EventPublisher,
) *OrderService {
	return &OrderService{
		store:          orderStore,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	UserEmail       string             `json:"user_email" validate:"omitempty,email"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	ShippingDetails ShippingRequest    `json:"shipping_details" validate:"required"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=1000"`
	Price     int64  `json:"price" validate:"gte=0,lte=100000000000"`
}

// ShippingRequest is the delivery block of an order request
type ShippingRequest struct {
	FullName   string `json:"full_name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CreateOrder stores a pending order with a server-computed total. When
// idempotencyKey was already used, the original order is returned and the
// boolean is false.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest, idempotencyKey string) (*models.Order, bool, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateStruct(req); err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, false, err
	}

	idempotencyKey = strings.TrimSpace(idempotencyKey)
	holdsKey := false
	if idempotencyKey != "" {
		existing, claimed, err := s.checkIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			s.logger.Info("Duplicate order request detected",
				zap.String("idempotency_key", idempotencyKey),
				zap.String("order_id", existing.ID))
			return existing, false, nil
		}
		holdsKey = claimed
	}
	defer func() {
		// A claimed key is released when no order was recorded for it.
		if holdsKey {
			if err := s.idempotency.ReleaseIdempotencyKey(context.Background(), idempotencyKey); err != nil {
				s.logger.Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}()

	items := make([]models.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	total, err := models.CalculateTotal(items)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, false, apperrors.Validation(fmt.Sprintf("order total is out of range: %v", err))
	}

	userEmail := req.UserEmail
	if userEmail == "" {
		userEmail = req.ShippingDetails.Email
	}

	order := &models.Order{
		ID:        uuid.New().String(),
		UserEmail: strings.ToLower(strings.TrimSpace(userEmail)),
		Items:     items,
		ShippingDetails: models.ShippingDetails{
			FullName:   req.ShippingDetails.FullName,
			Email:      req.ShippingDetails.Email,
			Phone:      req.ShippingDetails.Phone,
			Address:    req.ShippingDetails.Address,
			City:       req.ShippingDetails.City,
			PostalCode: req.ShippingDetails.PostalCode,
			Country:    req.ShippingDetails.Country,
		},
		Total:          total,
		Status:         models.OrderStatusPending,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      s.now(),
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		util.SpanError(span, err)
		return nil, false, fmt.Errorf("failed to create order: %w", err)
	}

	if holdsKey {
		if err := s.idempotency.CompleteIdempotencyKey(ctx, idempotencyKey, order.ID, s.idempotencyTTL); err != nil {
			s.logger.Warn("Failed to record idempotency key", zap.Error(err))
		} else {
			holdsKey = false
		}
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("total", order.Total),
		zap.Int("items", len(order.Items)))

	event := &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCreated,
			Timestamp: s.now(),
		},
		OrderID:   order.ID,
		UserEmail: order.UserEmail,
		Total:     order.Total,
		Items:     order.Items,
	}

	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return order, true, nil
}

// checkIdempotency returns the order a key already produced. claimed is true
// when the caller now holds the key in the idempotency store.
func (s *OrderService) checkIdempotency(ctx context.Context, key string) (*models.Order, bool, error) {
	if s.idempotency != nil {
		orderID, claimed, err := s.idempotency.ClaimIdempotencyKey(ctx, key, s.idempotencyTTL)
		switch {
		case err != nil:
			s.logger.Warn("Idempotency store unavailable, falling back to order store", zap.Error(err))
		case claimed:
			// The key may predate the cache TTL, so the order store still decides.
			existing, err := s.store.FindOrderByIdempotencyKey(ctx, key)
			if err != nil {
				_ = s.idempotency.ReleaseIdempotencyKey(ctx, key)
				return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
			}
			if existing != nil {
				if err := s.idempotency.CompleteIdempotencyKey(ctx, key, existing.ID, s.idempotencyTTL); err != nil {
					s.logger.Warn("Failed to record idempotency key", zap.Error(err))
				}
				return existing, false, nil
			}
			return nil, true, nil
		case orderID != "":
			existing, err := s.store.GetOrder(ctx, orderID)
			if err == nil {
				return existing, false, nil
			}
			if !errors.Is(err, apperrors.ErrNotFound) {
				return nil, false, err
			}
		default:
			return nil, false, apperrors.Conflict("an order with this idempotency key is already being processed")
		}
	}

	existing, err := s.store.FindOrderByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check idempotency: %w", err)
	}
	return existing, false, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	return s.store.GetOrder(ctx, id)
}

// ListOrdersByEmail returns every order of a customer, newest first
func (s *OrderService) ListOrdersByEmail(ctx context.Context, email string) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrdersByEmail")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.Validation("email query parameter is required")
	}

	orders, err := s.store.ListOrdersByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
