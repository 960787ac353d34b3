package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		msg := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func productMessage(t *testing.T, event *models.ProductEvent) kafka.Message {
	t.Helper()
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("product-" + event.ProductID), Value: b}
}

func TestEventPublisherPublishesProductEvent(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(&Producer{writer: w, logger: util.GetLogger()})

	event := &models.ProductEvent{
		BaseEvent:     models.BaseEvent{EventID: "e1", EventType: models.EventTypeProductCreated, Timestamp: time.Now()},
		ProductID:     "p1",
		ImageState:    models.ImageStateDraft,
		ImagesChanged: true,
	}
	require.NoError(t, ep.PublishProductEvent(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "product-p1", string(w.msgs[0].Key))
	assert.Equal(t, models.EventTypeProductCreated, eventType(w.msgs[0]))

	var decoded models.ProductEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "p1", decoded.ProductID)
	assert.Equal(t, models.EventTypeProductCreated, decoded.EventType)
}

func TestEventPublisherReturnsWriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	ep := NewEventPublisher(&Producer{writer: w, logger: util.GetLogger()})

	err := ep.PublishOrderCreated(context.Background(), &models.OrderCreatedEvent{OrderID: "o1"})
	assert.Error(t, err)
}

func TestEventHandlerRoutesProductEvents(t *testing.T) {
	var got []*models.ProductEvent
	h := NewEventHandler()
	h.OnProductEvent(func(_ context.Context, e *models.ProductEvent) error {
		got = append(got, e)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, h.HandleMessage(ctx, productMessage(t, &models.ProductEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeProductUpdated},
		ProductID: "p2",
	})))

	orderBytes, _ := json.Marshal(&models.OrderCreatedEvent{BaseEvent: models.BaseEvent{EventType: models.EventTypeOrderCreated}})
	require.NoError(t, h.HandleMessage(ctx, kafka.Message{Value: orderBytes}))

	assert.Error(t, h.HandleMessage(ctx, kafka.Message{Value: []byte("{not json")}))

	headed := productMessage(t, &models.ProductEvent{ProductID: "p3"})
	headed.Headers = []kafka.Header{{Key: EventTypeHeader, Value: []byte(models.EventTypeProductVerified)}}
	require.NoError(t, h.HandleMessage(ctx, headed))

	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ProductID)
	assert.Equal(t, "p3", got[1].ProductID)
}

func TestConsumerCommitsOnlyHandledMessages(t *testing.T) {
	ok := productMessage(t, &models.ProductEvent{BaseEvent: models.BaseEvent{EventType: models.EventTypeProductCreated}, ProductID: "ok"})
	bad := productMessage(t, &models.ProductEvent{BaseEvent: models.BaseEvent{EventType: models.EventTypeProductCreated}, ProductID: "bad"})
	r := &fakeReader{pending: []kafka.Message{ok, bad}}
	c := &Consumer{reader: r, topic: "catalog-events", logger: util.GetLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan string, 2)
	done := make(chan error, 1)
	go func() {
		done <- c.StartConsuming(ctx, func(_ context.Context, msg kafka.Message) error {
			var e models.ProductEvent
			_ = json.Unmarshal(msg.Value, &e)
			handled <- e.ProductID
			if e.ProductID == "bad" {
				return errors.New("verification failed")
			}
			return nil
		})
	}()

	assert.Equal(t, "ok", <-handled)
	assert.Equal(t, "bad", <-handled)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.committed, 1)
	assert.Equal(t, ok.Key, r.committed[0].Key)
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.PublishProductEvent(context.Background(), &models.ProductEvent{}))
	assert.NoError(t, p.PublishOrderCreated(context.Background(), &models.OrderCreatedEvent{}))
}
