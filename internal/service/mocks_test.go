package service

import (
	"context"
	"sync"
	"time"

	"catalog-service/internal/imagecheck"
	"catalog-service/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, urls []string) (*imagecheck.Report, error) {
	args := m.Called(ctx, urls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*imagecheck.Report), args.Error(1)
}

type mockIdempotency struct {
	mock.Mock
}

func (m *mockIdempotency) ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockIdempotency) CompleteIdempotencyKey(ctx context.Context, key, orderID string, ttl time.Duration) error {
	args := m.Called(ctx, key, orderID, ttl)
	return args.Error(0)
}

func (m *mockIdempotency) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu            sync.Mutex
	productEvents []*models.ProductEvent
	orderEvents   []*models.OrderCreatedEvent
}

func (p *recordingPublisher) PublishProductEvent(_ context.Context, e *models.ProductEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.productEvents = append(p.productEvents, e)
	return nil
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, e *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderEvents = append(p.orderEvents, e)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.productEvents))
	for _, e := range p.productEvents {
		types = append(types, e.EventType)
	}
	return types
}

func reportFor(urls []string, reachable bool) *imagecheck.Report {
	r := &imagecheck.Report{}
	for _, u := range urls {
		res := imagecheck.Result{URL: u, Reachable: reachable, StatusCode: 200}
		if !reachable {
			res.StatusCode = 404
		}
		r.Results = append(r.Results, res)
	}
	return r
}
