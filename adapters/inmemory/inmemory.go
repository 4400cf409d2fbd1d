// Package inmemory is an in-process broker for tests and examples. It records
// published responses and lets tests inject deliveries without a live broker.
package inmemory

import (
	"context"
	"sync"

	"github.com/finlane/payment-service/contract/rpc"
)

// Message is one published response.
type Message struct {
	Destination   string
	Body          []byte
	CorrelationID string
}

// Broker implements the full broker contract in memory. Thread-safe.
type Broker struct {
	mu        sync.Mutex
	connects  int
	published []Message
	closed    bool

	deliveries chan rpc.Delivery
	// Published receives every response as it is published; buffered so
	// tests can wait for responses without polling.
	Published chan Message
}

var _ rpc.Broker = (*Broker)(nil)

// New creates an in-memory broker.
func New() *Broker {
	return &Broker{
		deliveries: make(chan rpc.Delivery, 64),
		Published:  make(chan Message, 64),
	}
}

// Connect is a counted no-op, so tests can assert idempotence.
func (b *Broker) Connect(_ context.Context) error {
	b.mu.Lock()
	b.connects++
	b.mu.Unlock()

	return nil
}

// Connects reports how many times Connect was called.
func (b *Broker) Connects() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.connects
}

// Publish records the response and signals Published.
func (b *Broker) Publish(_ context.Context, destination string, body []byte, correlationID string) error {
	msg := Message{Destination: destination, Body: body, CorrelationID: correlationID}

	b.mu.Lock()
	b.published = append(b.published, msg)
	b.mu.Unlock()

	select {
	case b.Published <- msg:
	default:
	}

	return nil
}

// Responses returns a copy of everything published so far.
func (b *Broker) Responses() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Message(nil), b.published...)
}

// Inject enqueues a delivery as if it arrived from the broker. ack may be nil.
func (b *Broker) Inject(body []byte, correlationID, replyTo string, ack func() error) {
	b.deliveries <- rpc.Delivery{
		Body:          body,
		CorrelationID: correlationID,
		ReplyTo:       replyTo,
		Ack:           ack,
	}
}

// Consume forwards injected deliveries until ctx is done.
func (b *Broker) Consume(ctx context.Context, deliver func(rpc.Delivery)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-b.deliveries:
			deliver(d)
		}
	}
}

// Close marks the broker closed.
func (b *Broker) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	return nil
}

// Closed reports whether Close was called.
func (b *Broker) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.closed
}
