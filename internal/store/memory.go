package store

import (
	"context"
	"sort"
	"sync"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process memory. Used by tests and local runs.
type MemoryStore struct {
	mu           sync.RWMutex
	products     map[string]*models.Product
	productOrder []string
	orders       map[string]*models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*models.Product),
		orders:   make(map[string]*models.Order),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.products[p.ID]; exists {
		return apperrors.Conflict("product with id " + p.ID + " already exists")
	}
	s.products[p.ID] = cloneProduct(p)
	s.productOrder = append(s.productOrder, p.ID)
	return nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return cloneProduct(p), nil
}

func (s *MemoryStore) FindProductByName(_ context.Context, name string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.productOrder {
		if p := s.products[id]; p.Name == name {
			return cloneProduct(p), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListProducts(_ context.Context, filter ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := []models.Product{}
	for _, id := range s.productOrder {
		p := s.products[id]
		if filter.Matches(p) {
			products = append(products, *cloneProduct(p))
		}
	}
	return products, nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, id string, patch *models.ProductPatch) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	patch.Apply(p)
	return cloneProduct(p), nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return apperrors.NotFound("product", id)
	}
	delete(s.products, id)
	for i, pid := range s.productOrder {
		if pid == id {
			s.productOrder = append(s.productOrder[:i], s.productOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if _, exists := s.orders[o.ID]; exists {
		return apperrors.Conflict("order with id " + o.ID + " already exists")
	}
	if o.IdempotencyKey != "" {
		for _, existing := range s.orders {
			if existing.IdempotencyKey == o.IdempotencyKey {
				return apperrors.Conflict("order with this idempotency key already exists")
			}
		}
	}
	s.orders[o.ID] = cloneOrder(o)
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) FindOrderByIdempotencyKey(_ context.Context, key string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders {
		if o.IdempotencyKey == key {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) ListOrdersByEmail(_ context.Context, email string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range s.orders {
		if o.UserEmail == email {
			orders = append(orders, *cloneOrder(o))
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func cloneProduct(p *models.Product) *models.Product {
	cp := *p
	cp.Images = append([]string{}, p.Images...)
	cp.Specs = p.Specs.Clone()
	if p.VerifiedAt != nil {
		t := *p.VerifiedAt
		cp.VerifiedAt = &t
	}
	cp.MigrateImages()
	return &cp
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.LineItem{}, o.Items...)
	return &cp
}
