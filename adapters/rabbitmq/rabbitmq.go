package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
)

const (
	// ExchangeName is the durable direct exchange the API gateway publishes
	// payment operations to.
	ExchangeName = "GATEWAY-PAYMENT-EXCHANGE.direct"
	// QueueName holds all payment operations; RoutingKey binds it.
	QueueName  = "PAYMENT.all"
	RoutingKey = "PAYMENT.all"

	exchangeType       = "direct"
	defaultConnTimeout = 10 * time.Second
	maxBackoff         = 30 * time.Second
)

type Config struct {
	URL         string
	ConnTimeout time.Duration
	ClientName  string
}

// Broker owns the AMQP connection and channel. Connect declares the gateway
// topology idempotently; Consume survives connection loss by reconnecting
// with backoff. All publishes are serialized through one mutex because an
// AMQP channel is not safe for unmediated concurrent writes.
type Broker struct {
	cfg Config
	log *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	closed    chan struct{}
	closeOnce sync.Once
}

var _ rpc.Broker = (*Broker)(nil)

// New builds a Broker. It does not dial; call Connect.
func New(cfg Config, log *slog.Logger) (*Broker, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq url required: %w", perr.ErrBrokerUnavailable)
	}

	if cfg.ConnTimeout <= 0 {
		cfg.ConnTimeout = defaultConnTimeout
	}

	if log == nil {
		log = slog.Default()
	}

	return &Broker{cfg: cfg, log: log, closed: make(chan struct{})}, nil
}

// Connect dials the broker within the configured timeout and declares the
// exchange, queue, and binding. Calling it while connected is a no-op. On
// failure nothing partially initialized is left behind.
func (b *Broker) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.connectLocked(ctx)
}

func (b *Broker) connectLocked(_ context.Context) error {
	if b.ch != nil && !b.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.DialConfig(b.cfg.URL, amqp.Config{
		Locale:     "en_US",
		Properties: amqp.Table{"client_name": b.clientName()},
		Dial:       amqp.DefaultDial(b.cfg.ConnTimeout),
	})
	if err != nil {
		b.log.Error("rabbitmq connection failed", "error", err)
		return fmt.Errorf("dial rabbitmq: %w", perr.ErrBrokerUnavailable)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", perr.ErrBrokerUnavailable)
	}

	if err := declareTopology(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return fmt.Errorf("declare topology: %w", perr.ErrBrokerUnavailable)
	}

	b.conn = conn
	b.ch = ch

	return nil
}

func (b *Broker) clientName() string {
	if b.cfg.ClientName != "" {
		return b.cfg.ClientName
	}

	return "Payment Service"
}

// topology is the slice of *amqp.Channel the declarations need; factored out
// so re-declaration safety is testable without a live broker.
type topology interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// declareTopology declares the durable exchange and queue and binds them.
// Every declaration is safe to repeat, so reconnects can re-run it.
func declareTopology(ch topology) error {
	if err := ch.ExchangeDeclare(ExchangeName, exchangeType, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}

	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", QueueName, err)
	}

	if err := ch.QueueBind(QueueName, RoutingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", QueueName, err)
	}

	return nil
}

// Publish sends body to destination through the default exchange, tagged with
// correlationID. Replies go straight to the caller's reply queue, so the
// destination is used as the routing key. Fails fast when the channel is not
// usable; no silent drops.
func (b *Broker) Publish(ctx context.Context, destination string, body []byte, correlationID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ch == nil || b.conn.IsClosed() {
		return fmt.Errorf("publish to %q: %w", destination, perr.ErrBrokerUnavailable)
	}

	err := b.ch.PublishWithContext(
		ctx,
		"", // default exchange routes directly to the reply queue
		destination,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			CorrelationId: correlationID,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %q: %w", destination, perr.ErrBrokerUnavailable)
	}

	return nil
}

// Consume delivers queue messages to deliver until ctx is done or the broker
// is closed. On connection loss it reconnects with exponential backoff and
// jitter, re-declaring topology each time. Messages are acked manually via
// Delivery.Ack.
func (b *Broker) Consume(ctx context.Context, deliver func(rpc.Delivery)) error {
	backoff := time.Second
	// #nosec G404 -- non-crypto RNG is fine for backoff jitter
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.closed:
			return nil
		default:
		}

		ch, err := b.channel(ctx)
		if err != nil {
			b.log.Warn("rabbitmq unavailable, retrying", "error", err, "backoff", backoff)

			if !b.sleep(ctx, backoff, rng) {
				return nil
			}

			if backoff < maxBackoff {
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
			}

			continue
		}

		backoff = time.Second

		deliveries, err := ch.Consume(QueueName, b.clientName(), false, false, false, false, nil)
		if err != nil {
			b.drop()
			continue
		}

		b.log.Info("started listening for messages", "queue", QueueName)

		if done := b.pump(ctx, deliveries, deliver); done {
			return nil
		}

		// Delivery channel closed: connection lost. Drop and reconnect.
		b.drop()
		b.log.Warn("rabbitmq connection lost, reconnecting")
	}
}

// pump forwards deliveries until ctx is done (returns true) or the delivery
// channel closes (returns false, signalling a reconnect).
func (b *Broker) pump(ctx context.Context, deliveries <-chan amqp.Delivery, deliver func(rpc.Delivery)) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case <-b.closed:
			return true
		case msg, ok := <-deliveries:
			if !ok {
				return false
			}

			m := msg
			deliver(rpc.Delivery{
				Body:          m.Body,
				CorrelationID: m.CorrelationId,
				ReplyTo:       m.ReplyTo,
				Ack:           func() error { return m.Ack(false) },
			})
		}
	}
}

func (b *Broker) channel(ctx context.Context) (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.connectLocked(ctx); err != nil {
		return nil, err
	}

	return b.ch, nil
}

func (b *Broker) drop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ch != nil {
		_ = b.ch.Close()
		b.ch = nil
	}

	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
}

func (b *Broker) sleep(ctx context.Context, backoff time.Duration, rng *rand.Rand) bool {
	jitter := time.Duration(rng.Int63n(int64(backoff / 2)))
	t := time.NewTimer(backoff + jitter/2)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-b.closed:
		return false
	case <-t.C:
		return true
	}
}

// Close tears the connection down. Safe to call more than once.
func (b *Broker) Close() error {
	b.closeOnce.Do(func() { close(b.closed) })
	b.drop()

	return nil
}
