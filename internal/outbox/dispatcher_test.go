package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FetchPending(ctx context.Context, limit int) ([]Event, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

func (m *MockRepository) MarkProcessed(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) MarkFailed(ctx context.Context, id uint, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, e Event) error {
	return m.Called(ctx, e).Error(0)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestDispatcher_DispatchPending(t *testing.T) {
	ctx := context.Background()
	placed := Event{ID: 1, AggregateID: "10", EventType: EventOrderPlaced, Payload: []byte(`{}`)}
	paid := Event{ID: 2, AggregateID: "11", EventType: EventOrderPaid, Payload: []byte(`{}`)}

	t.Run("Publishes and marks processed", func(t *testing.T) {
		repo := new(MockRepository)
		pub := new(MockPublisher)
		d := NewDispatcher(repo, pub, time.Second)

		repo.On("FetchPending", ctx, batchSize).Return([]Event{placed, paid}, nil)
		pub.On("Publish", ctx, placed).Return(nil)
		pub.On("Publish", ctx, paid).Return(nil)
		repo.On("MarkProcessed", ctx, uint(1)).Return(nil)
		repo.On("MarkProcessed", ctx, uint(2)).Return(nil)

		assert.Equal(t, 2, d.DispatchPending(ctx))
		repo.AssertExpectations(t)
	})

	t.Run("Publish failure records attempt and continues", func(t *testing.T) {
		repo := new(MockRepository)
		pub := new(MockPublisher)
		d := NewDispatcher(repo, pub, time.Second)

		repo.On("FetchPending", ctx, batchSize).Return([]Event{placed, paid}, nil)
		pub.On("Publish", ctx, placed).Return(errors.New("broker down"))
		pub.On("Publish", ctx, paid).Return(nil)
		repo.On("MarkFailed", ctx, uint(1), "broker down").Return(nil)
		repo.On("MarkProcessed", ctx, uint(2)).Return(nil)

		assert.Equal(t, 1, d.DispatchPending(ctx))
		repo.AssertNotCalled(t, "MarkProcessed", ctx, uint(1))
	})

	t.Run("Fetch failure", func(t *testing.T) {
		repo := new(MockRepository)
		pub := new(MockPublisher)
		d := NewDispatcher(repo, pub, time.Second)

		repo.On("FetchPending", ctx, batchSize).Return(nil, errors.New("db error"))

		assert.Equal(t, 0, d.DispatchPending(ctx))
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}

func TestDispatcher_OpenBreakerKeepsAttempts(t *testing.T) {
	ctx := context.Background()
	w := &fakeWriter{err: errors.New("broker down")}
	pub := NewBreakerPublisher(NewKafkaPublisherWithWriter(w), time.Minute)

	events := make([]Event, 3)
	for i := range events {
		events[i] = Event{ID: uint(i + 1), AggregateID: "1", EventType: EventOrderPlaced, Payload: []byte(`{}`)}
	}

	repo := new(MockRepository)
	repo.On("FetchPending", ctx, batchSize).Return(events, nil)
	repo.On("MarkFailed", ctx, mock.Anything, "broker down").Return(nil)
	d := NewDispatcher(repo, pub, time.Second)

	for i := 0; i < 4; i++ {
		assert.Equal(t, 0, d.DispatchPending(ctx))
	}

	assert.Equal(t, gobreaker.StateOpen, pub.State())
	repo.AssertNumberOfCalls(t, "MarkFailed", 5)
	repo.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
}

func TestDispatcher_RunWake(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	d := NewDispatcher(repo, pub, time.Hour)

	fetched := make(chan struct{}, 1)
	repo.On("FetchPending", mock.Anything, batchSize).
		Run(func(mock.Arguments) {
			select {
			case fetched <- struct{}{}:
			default:
			}
		}).
		Return([]Event{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Wake()
	d.Wake()

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not wake")
	}

	cancel()
	<-done
}

func TestWake_NilDispatcher(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, d.Wake)
}

func TestKafkaPublisher(t *testing.T) {
	ctx := context.Background()

	t.Run("Keys by aggregate id", func(t *testing.T) {
		w := &fakeWriter{}
		p := NewKafkaPublisherWithWriter(w)

		err := p.Publish(ctx, Event{AggregateID: "42", EventType: EventOrderPaid, Payload: []byte(`{"order_id":42}`)})
		require.NoError(t, err)
		require.Len(t, w.msgs, 1)
		assert.Equal(t, []byte("42"), w.msgs[0].Key)
		assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
		assert.Equal(t, []byte("order.paid"), w.msgs[0].Headers[0].Value)

		require.NoError(t, p.Close())
		assert.True(t, w.closed)
	})

	t.Run("Empty payload", func(t *testing.T) {
		p := NewKafkaPublisherWithWriter(&fakeWriter{})
		assert.ErrorIs(t, p.Publish(ctx, Event{AggregateID: "1"}), ErrEmptyPayload)
	})
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	err := p.Publish(context.Background(), Event{AggregateID: "7", EventType: EventPaymentReminder, Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "order.payment_reminder", logs.All()[0].ContextMap()["event_type"])
}

func TestBreakerPublisher(t *testing.T) {
	ctx := context.Background()
	next := new(MockPublisher)
	next.On("Publish", ctx, mock.Anything).Return(errors.New("broker down"))

	p := NewBreakerPublisher(next, time.Minute)
	e := Event{ID: 1, AggregateID: "1", Payload: []byte(`{}`)}

	for i := 0; i < 5; i++ {
		assert.Error(t, p.Publish(ctx, e))
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	err := p.Publish(ctx, e)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	next.AssertNumberOfCalls(t, "Publish", 5)
}
