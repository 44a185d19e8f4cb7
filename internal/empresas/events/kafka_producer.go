// Package events publishes audit events for destructive operations on the
// companies table and reads them back for the operator CLI.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompaniesReplaced EventType = "companies_replaced"
	CompaniesCleared  EventType = "companies_cleared"
)

// Event records one bulk mutation of the companies table.
type Event struct {
	Type       EventType `json:"type"`
	Table      string    `json:"table"`
	Actor      string    `json:"actor,omitempty"`
	Inserted   int       `json:"inserted"`
	Deleted    int64     `json:"deleted"`
	Convention string    `json:"convention,omitempty"`
	At         time.Time `json:"at"`
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer queues events and writes them to kafka from a single goroutine.
type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

// NewProducer connects to the first broker to make sure topic exists, then
// starts the event loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	return newProducer(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}, logger), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, 1000),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce enqueues event without blocking. A full queue drops the event.
func (p *Producer) Produce(event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("table", event.Table),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			p.drain()
			return
		}
	}
}

// drain flushes whatever was queued before Close.
func (p *Producer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-p.events:
			p.sendEvent(ctx, event)
		default:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Table),
		Value: value,
		Time:  event.At,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("table", event.Table),
		)
	}
}

func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// NopProducer stands in when no brokers are configured. Events are only
// logged.
type NopProducer struct {
	logger *zap.Logger
}

func NewNopProducer(logger *zap.Logger) *NopProducer {
	return &NopProducer{logger: logger.Named("events")}
}

func (n *NopProducer) Produce(event Event) {
	n.logger.Debug("audit event",
		zap.String("event_type", string(event.Type)),
		zap.String("table", event.Table),
		zap.Int("inserted", event.Inserted),
		zap.Int64("deleted", event.Deleted),
	)
}

func (n *NopProducer) Close() {}
