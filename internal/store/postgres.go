package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
)

// Products and orders are kept as JSONB documents so the relational driver
// honors the same partial-merge contract as the document store.
const schema = `
CREATE TABLE IF NOT EXISTS products (
	seq BIGSERIAL,
	id  TEXT PRIMARY KEY,
	doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS products_name_idx ON products ((doc->>'name'));
CREATE TABLE IF NOT EXISTS orders (
	id              TEXT PRIMARY KEY,
	user_email      TEXT NOT NULL,
	idempotency_key TEXT,
	created_at      TIMESTAMPTZ NOT NULL,
	doc             JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_user_email_idx ON orders (user_email, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS orders_idempotency_key_idx ON orders (idempotency_key) WHERE idempotency_key IS NOT NULL;
`

// PostgresStore keeps products and orders as JSONB documents in PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

type documentRow struct {
	ID  string          `db:"id"`
	Doc types.JSONText `db:"doc"`
}

// NewPostgresStore creates a new database store
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.StoreUnavailable(err)
	}
	return nil
}

// CreateProduct inserts a product document
func (s *PostgresStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode product: %w", err)
	}

	_, err = s.db.ExecContext(ctx, "INSERT INTO products (id, doc) VALUES ($1, $2)", p.ID, doc)
	if isUniqueViolation(err) {
		return apperrors.Conflict(fmt.Sprintf("product with id %s already exists", p.ID))
	}
	return classify(err, "failed to insert product")
}

// GetProduct retrieves a product by ID
func (s *PostgresStore) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row, "SELECT id, doc FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, classify(err, "failed to get product")
	}
	return decodeProduct(row)
}

// FindProductByName retrieves a product by exact name
func (s *PostgresStore) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, doc FROM products WHERE doc->>'name' = $1 ORDER BY seq LIMIT 1", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "failed to find product")
	}
	return decodeProduct(row)
}

// ListProducts retrieves products matching the filter in insertion order
func (s *PostgresStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query, args, err := buildProductQuery(filter)
	if err != nil {
		return nil, err
	}

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, classify(err, "failed to list products")
	}

	products := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		p, err := decodeProduct(row)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

func buildProductQuery(filter ProductFilter) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Equals) > 0 {
		doc, err := json.Marshal(containment(filter.Equals))
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filter: %w", err)
		}
		args = append(args, string(doc))
		where = append(where, fmt.Sprintf("doc @> $%d::jsonb", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		where = append(where, fmt.Sprintf("(doc->>'price')::bigint >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		where = append(where, fmt.Sprintf("(doc->>'price')::bigint <= $%d", len(args)))
	}

	query := "SELECT id, doc FROM products"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY seq", args, nil
}

// UpdateProduct merges a patch under a row lock (FOR UPDATE)
func (s *PostgresStore) UpdateProduct(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var row documentRow
	err = tx.GetContext(ctx, &row, "SELECT id, doc FROM products WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("product", id)
	}
	if err != nil {
		return nil, classify(err, "failed to lock product")
	}

	p, err := decodeProduct(row)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)

	doc, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE products SET doc = $1 WHERE id = $2", doc, id); err != nil {
		return nil, classify(err, "failed to update product")
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit product update")
	}
	return p, nil
}

// DeleteProduct physically removes a product
func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return classify(err, "failed to delete product")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "failed to delete product")
	}
	if n == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

func decodeProduct(row documentRow) (*models.Product, error) {
	var p models.Product
	if err := row.Doc.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("failed to decode product %s: %w", row.ID, err)
	}
	p.ID = row.ID
	p.MigrateImages()
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// classify maps connectivity failures to StoreUnavailable and wraps the rest.
func classify(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return apperrors.StoreUnavailable(err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exception, 57P: operator intervention.
		return pqErr.Code.Class() == "08" || strings.HasPrefix(string(pqErr.Code), "57P")
	}
	return false
}
