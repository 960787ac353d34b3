package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"catalog-service/internal/apperrors"
	"catalog-service/internal/broker"
	"catalog-service/internal/models"
	"catalog-service/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeConsumer hands each queued message to the handler and records its outcome.
type fakeConsumer struct {
	messages []kafka.Message
	results  []error
	closed   bool
}

func (c *fakeConsumer) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range c.messages {
		c.results = append(c.results, handler(ctx, msg))
	}
	return nil
}

func (c *fakeConsumer) Close() error {
	c.closed = true
	return nil
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) VerifyProductImages(ctx context.Context, id string) (*service.VerificationResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerificationResult), args.Error(1)
}

func message(t *testing.T, eventType, productID string, state models.ImageState, imagesChanged bool) kafka.Message {
	t.Helper()
	b, err := json.Marshal(&models.ProductEvent{
		BaseEvent:     models.BaseEvent{EventID: "e-" + productID, EventType: eventType, Timestamp: time.Now()},
		ProductID:     productID,
		ImageState:    state,
		ImagesChanged: imagesChanged,
	})
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestImageWorkerVerifiesDraftProducts(t *testing.T) {
	catalog := &mockCatalog{}
	consumer := &fakeConsumer{messages: []kafka.Message{
		message(t, models.EventTypeProductCreated, "p1", models.ImageStateDraft, true),
		message(t, models.EventTypeProductUpdated, "p2", models.ImageStateDraft, false),
		message(t, models.EventTypeProductUpdated, "p3", models.ImageStateDraft, true),
		message(t, models.EventTypeProductDeleted, "p4", "", false),
		message(t, models.EventTypeProductVerified, "p5", models.ImageStateVerified, false),
	}}

	catalog.On("VerifyProductImages", mock.Anything, "p1").Return(&service.VerificationResult{Verified: true}, nil).Once()
	catalog.On("VerifyProductImages", mock.Anything, "p3").Return(&service.VerificationResult{Verified: false}, nil).Once()

	w := NewImageWorker(consumer, catalog)
	require.NoError(t, w.Start(context.Background()))

	catalog.AssertExpectations(t)
	catalog.AssertNumberOfCalls(t, "VerifyProductImages", 2)
	for _, err := range consumer.results {
		assert.NoError(t, err)
	}

	require.NoError(t, w.Stop())
	assert.True(t, consumer.closed)
}

func TestImageWorkerIgnoresMissingProducts(t *testing.T) {
	catalog := &mockCatalog{}
	consumer := &fakeConsumer{messages: []kafka.Message{
		message(t, models.EventTypeProductCreated, "gone", models.ImageStateDraft, true),
		message(t, models.EventTypeProductUpdated, "empty", models.ImageStateDraft, true),
	}}

	catalog.On("VerifyProductImages", mock.Anything, "gone").Return(nil, apperrors.NotFound("product", "gone"))
	catalog.On("VerifyProductImages", mock.Anything, "empty").Return(nil, apperrors.Validation("product has no images to verify"))

	require.NoError(t, NewImageWorker(consumer, catalog).Start(context.Background()))
	require.Len(t, consumer.results, 2)
	assert.NoError(t, consumer.results[0])
	assert.NoError(t, consumer.results[1])
}

func TestImageWorkerLeavesStoreErrorsUncommitted(t *testing.T) {
	catalog := &mockCatalog{}
	consumer := &fakeConsumer{messages: []kafka.Message{
		message(t, models.EventTypeProductCreated, "p1", models.ImageStateDraft, true),
	}}

	storeErr := apperrors.StoreUnavailable(errors.New("connection refused"))
	catalog.On("VerifyProductImages", mock.Anything, "p1").Return(nil, storeErr)

	require.NoError(t, NewImageWorker(consumer, catalog).Start(context.Background()))
	require.Len(t, consumer.results, 1)
	assert.ErrorIs(t, consumer.results[0], apperrors.ErrStoreUnavailable)
}
