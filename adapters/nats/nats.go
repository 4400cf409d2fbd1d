// Package nats is an alternate transport for the payment gateway over core
// NATS request/reply. Core NATS has no broker-side acknowledgement, so
// deliveries carry a nil Ack and redelivery semantics are at-most-once.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
)

const (
	// Subject carries all payment operations; QueueGroup load-balances
	// gateway replicas.
	Subject    = "payment.operations"
	QueueGroup = "payment-service"

	correlationHeader = "Correlation-Id"
)

type Config struct {
	URL           string
	Name          string
	ConnTimeout   time.Duration
	MaxReconnects int
}

// Broker adapts a NATS connection to the gateway's broker contract.
// Reconnects are delegated to the client library.
type Broker struct {
	cfg Config
	log *slog.Logger

	mu sync.Mutex
	nc *nats.Conn
}

var _ rpc.Broker = (*Broker)(nil)

// New builds a Broker. It does not dial; call Connect.
func New(cfg Config, log *slog.Logger) (*Broker, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url required: %w", perr.ErrBrokerUnavailable)
	}

	if log == nil {
		log = slog.Default()
	}

	return &Broker{cfg: cfg, log: log}, nil
}

// Connect dials the server. Calling it while connected is a no-op.
func (b *Broker) Connect(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.nc != nil && !b.nc.IsClosed() {
		return nil
	}

	opts := []nats.Option{}
	if b.cfg.Name != "" {
		opts = append(opts, nats.Name(b.cfg.Name))
	}

	if b.cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(b.cfg.ConnTimeout))
	}

	if b.cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(b.cfg.MaxReconnects))
	}

	nc, err := nats.Connect(b.cfg.URL, opts...)
	if err != nil {
		return fmt.Errorf("nats connect: %w", perr.ErrBrokerUnavailable)
	}

	b.nc = nc

	return nil
}

// Publish sends body to a reply subject with the correlation id in a header.
func (b *Broker) Publish(_ context.Context, destination string, body []byte, correlationID string) error {
	b.mu.Lock()
	nc := b.nc
	b.mu.Unlock()

	if nc == nil || nc.IsClosed() {
		return fmt.Errorf("publish to %q: %w", destination, perr.ErrBrokerUnavailable)
	}

	msg := &nats.Msg{Subject: destination, Data: body}
	if correlationID != "" {
		msg.Header = nats.Header{}
		msg.Header.Add(correlationHeader, correlationID)
	}

	if err := nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %q: %w", destination, perr.ErrBrokerUnavailable)
	}

	return nc.Flush()
}

// Consume subscribes to the operations subject as part of the queue group and
// forwards messages until ctx is done.
func (b *Broker) Consume(ctx context.Context, deliver func(rpc.Delivery)) error {
	b.mu.Lock()
	nc := b.nc
	b.mu.Unlock()

	if nc == nil || nc.IsClosed() {
		return fmt.Errorf("consume: %w", perr.ErrBrokerUnavailable)
	}

	sub, err := nc.QueueSubscribe(Subject, QueueGroup, func(msg *nats.Msg) {
		deliver(rpc.Delivery{
			Body:          msg.Data,
			CorrelationID: msg.Header.Get(correlationHeader),
			ReplyTo:       msg.Reply,
		})
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Subject, perr.ErrBrokerUnavailable)
	}

	b.log.Info("started listening for messages", "subject", Subject, "queue_group", QueueGroup)

	<-ctx.Done()

	return sub.Drain()
}

// Close drains and closes the connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.nc != nil && !b.nc.IsClosed() {
		_ = b.nc.Drain()
		b.nc.Close()
	}

	return nil
}
