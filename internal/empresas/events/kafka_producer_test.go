package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testEvent() Event {
	return Event{
		Type:       CompaniesReplaced,
		Table:      "registros_empresas",
		Actor:      "admin@example.com",
		Inserted:   3,
		Convention: "lower",
		At:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestProducer_Produce(t *testing.T) {
	t.Run("successful produce", func(t *testing.T) {
		producer := &Producer{events: make(chan Event, 1), logger: zaptest.NewLogger(t)}

		producer.Produce(Event{Type: CompaniesCleared, Table: "t"})

		require.Equal(t, 1, len(producer.events))
		event := <-producer.events
		assert.False(t, event.At.IsZero(), "timestamp is filled in")
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := &Producer{events: make(chan Event, 1), logger: zap.New(core)}

		producer.Produce(testEvent())
		producer.Produce(testEvent())

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	producer := &Producer{
		writer: mockWriter,
		logger: zaptest.NewLogger(t),
	}
	event := testEvent()

	t.Run("successful send", func(t *testing.T) {
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		producer.sendEvent(context.Background(), event)

		value, err := json.Marshal(event)
		require.NoError(t, err)
		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{
				Key:   []byte("registros_empresas"),
				Value: value,
				Time:  event.At,
			},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("event_type", string(CompaniesReplaced))).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer.logger = zap.New(core)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_CloseFlushesQueue(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	var mu sync.Mutex
	var written []kafka.Message
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			written = append(written, args.Get(1).([]kafka.Message)...)
			mu.Unlock()
		}).
		Return(nil)
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, zaptest.NewLogger(t))
	producer.Produce(testEvent())
	producer.Produce(Event{Type: CompaniesCleared, Table: "registros_empresas", Deleted: 3})
	producer.Close()

	select {
	case <-producer.closeChan:
	default:
		t.Error("closeChan not closed")
	}
	mockWriter.AssertCalled(t, "Close")

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, written, 2)
}

func TestProducer_EventLoop(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	done := make(chan struct{})
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { close(done) }).
		Return(nil).Once()

	producer := newProducer(mockWriter, zaptest.NewLogger(t))
	producer.Produce(testEvent())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("event was not written")
	}
	mockWriter.AssertNumberOfCalls(t, "WriteMessages", 1)
}

func TestNopProducer(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	p := NewNopProducer(zap.New(core))

	p.Produce(testEvent())
	p.Close()

	entries := recorded.FilterMessage("audit event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "events", entries[0].LoggerName)
}

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		msg := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	f.committed = append(f.committed, msgs...)
	f.mu.Unlock()
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestConsumer_Run(t *testing.T) {
	good, err := json.Marshal(testEvent())
	require.NoError(t, err)
	reader := &fakeReader{msgs: []kafka.Message{
		{Value: good},
		{Value: []byte("{not json")},
		{Value: good},
	}}
	core, recorded := observer.New(zap.ErrorLevel)
	c := &Consumer{reader: reader, logger: zap.New(core)}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []Event
	calls := 0
	c.RegisterHandler(func(_ context.Context, ev Event) error {
		calls++
		if calls == 2 {
			cancel()
			return errors.New("handler failed")
		}
		got = append(got, ev)
		return nil
	})

	require.NoError(t, c.Run(ctx))
	c.Close()

	assert.Equal(t, []Event{testEvent()}, got)
	assert.Len(t, reader.committed, 1, "failed handler leaves the message uncommitted")
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())
	assert.True(t, reader.closed)
}

func TestConsumer_RunWithoutHandler(t *testing.T) {
	c := &Consumer{reader: &fakeReader{}, logger: zaptest.NewLogger(t)}
	assert.Error(t, c.Run(context.Background()))
}
