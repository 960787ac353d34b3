package store

import (
	"context"
	"fmt"
	"strings"

	"catalog-service/internal/models"
)

// Supported drivers
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ProductStore is the document-store contract for Product Records.
type ProductStore interface {
	// CreateProduct assigns an id when empty and persists the record.
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	// FindProductByName returns nil, nil when no record has exactly this name.
	FindProductByName(ctx context.Context, name string) (*models.Product, error)
	// ListProducts returns matching records in insertion order.
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	// UpdateProduct merges the patch into the stored record and returns the result.
	UpdateProduct(ctx context.Context, id string, patch *models.ProductPatch) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// OrderStore persists Order Records.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	// FindOrderByIdempotencyKey returns nil, nil when the key is unused.
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	// ListOrdersByEmail returns the customer's orders newest first.
	ListOrdersByEmail(ctx context.Context, email string) ([]models.Order, error)
}

// Store is implemented by every driver.
type Store interface {
	ProductStore
	OrderStore
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a driver.
type Options struct {
	Driver       string
	MongoURI     string
	DatabaseName string
	DatabaseURL  string
}

// Open connects to the configured driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Driver) {
	case DriverMongo:
		return NewMongoStore(ctx, opts.MongoURI, opts.DatabaseName)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
