package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/models"

	"github.com/google/uuid"
)

// CreateOrder creates a new order
func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	doc, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	var key sql.NullString
	if order.IdempotencyKey != "" {
		key = sql.NullString{String: order.IdempotencyKey, Valid: true}
	}

	query := `
		INSERT INTO orders (id, user_email, idempotency_key, created_at, doc)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = s.db.ExecContext(ctx, query, order.ID, order.UserEmail, key, order.CreatedAt, doc)
	if isUniqueViolation(err) {
		return apperrors.Conflict("order with this idempotency key already exists")
	}
	return classify(err, "failed to insert order")
}

// GetOrder retrieves an order by ID
func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row, "SELECT id, doc FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("order", id)
	}
	if err != nil {
		return nil, classify(err, "failed to get order")
	}
	return decodeOrder(row)
}

// FindOrderByIdempotencyKey retrieves an order by idempotency key
func (s *PostgresStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row, "SELECT id, doc FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to get order")
	}
	return decodeOrder(row)
}

// ListOrdersByEmail retrieves orders for a customer, newest first
func (s *PostgresStore) ListOrdersByEmail(ctx context.Context, email string) ([]models.Order, error) {
	var rows []documentRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, doc FROM orders WHERE user_email = $1 ORDER BY created_at DESC", email)
	if err != nil {
		return nil, classify(err, "failed to list orders")
	}

	orders := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		o, err := decodeOrder(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

func decodeOrder(row documentRow) (*models.Order, error) {
	var o models.Order
	if err := row.Doc.Unmarshal(&o); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", row.ID, err)
	}
	o.ID = row.ID
	return &o, nil
}
