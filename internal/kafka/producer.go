package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrProducerClosed = errors.New("kafka: producer closed")

// Producer buffers messages in an inbox drained by one goroutine into an
// async writer. Messages carry their own topic.
type Producer struct {
	w       *kafka.Writer
	log     *slog.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, buf int, log *slog.Logger) *Producer {
	p := &Producer{
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				p.log.Error("kafka write failed", "messages", len(msgs), "err", err)
			}
		},
	}
	return p
}

func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.Error("kafka enqueue failed", "topic", m.Topic, "err", err)
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.Error("kafka writer close", "err", err)
		}
	}()
}

// Publish queues one message, blocking while the inbox is full.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	m := kafka.Message{Topic: topic, Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting messages; the goroutine flushes what is queued.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

// WaitClosed blocks until the queued messages are handed to the writer and
// the writer is closed.
func (p *Producer) WaitClosed() { <-p.closeCh }
