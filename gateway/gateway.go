package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
)

// Gateway ties the broker, the dispatcher, and the responder together: it
// connects, starts consuming, and processes each delivery on its own
// goroutine. Every delivery is acknowledged on every exit path; a response is
// attempted exactly once per message.
type Gateway struct {
	broker     rpc.Broker
	dispatcher *Dispatcher
	responder  *Responder
	log        *slog.Logger
	metrics    *Metrics

	wg sync.WaitGroup
}

// New builds a Gateway. metrics may be nil to disable instrumentation.
func New(broker rpc.Broker, dispatcher *Dispatcher, responder *Responder, metrics *Metrics, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}

	return &Gateway{
		broker:     broker,
		dispatcher: dispatcher,
		responder:  responder,
		metrics:    metrics,
		log:        log,
	}
}

// Start connects to the broker and consumes until ctx is done. A connection
// failure at startup is fatal: the gateway cannot serve without a broker.
// Steady-state reconnects are the broker adapter's concern.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.broker.Connect(ctx); err != nil {
		return fmt.Errorf("gateway startup: %w", err)
	}

	g.log.Info("listening for payment operations", "operations", g.dispatcher.Operations())

	if err := g.broker.Consume(ctx, g.process(ctx)); err != nil {
		return fmt.Errorf("gateway consume: %w", err)
	}

	return nil
}

// process returns the per-delivery callback. Each delivery runs on its own
// goroutine so a handler awaiting external I/O never blocks consumption of
// further messages.
func (g *Gateway) process(ctx context.Context) func(rpc.Delivery) {
	return func(d rpc.Delivery) {
		g.wg.Add(1)

		go func() {
			defer g.wg.Done()
			g.handleDelivery(ctx, d)
		}()
	}
}

// handleDelivery dispatches one message and publishes its response. The ack
// happens after the response has been handed to the broker, and also on
// every failure path: a raising handler must never leave the message
// outstanding.
func (g *Gateway) handleDelivery(ctx context.Context, d rpc.Delivery) {
	start := time.Now()

	defer func() {
		if d.Ack == nil {
			return
		}

		if err := d.Ack(); err != nil {
			g.log.Error("failed to ack delivery", "correlation_id", d.CorrelationID, "error", err)
		}
	}()

	g.log.Info("received message", "correlation_id", d.CorrelationID, "reply_to", d.ReplyTo)
	g.metrics.received()

	resp, herr := g.dispatcher.Handle(ctx, d.Body)
	if herr != nil {
		// Already answered structurally; surfaced here for observability only.
		g.log.Error("handler failure", "correlation_id", d.CorrelationID, "code", perr.CodeOf(herr), "error", herr)
	}

	if err := g.responder.Send(ctx, d.ReplyTo, resp, d.CorrelationID); err != nil {
		// The caller times out; the broker layer does not invent redelivery.
		g.log.Error("failed to deliver response", "correlation_id", d.CorrelationID, "error", err)
		g.metrics.processed("undeliverable", time.Since(start))

		return
	}

	outcome := "ok"
	if !resp.Success {
		outcome = "error"
	}

	g.metrics.processed(outcome, time.Since(start))
}

// Shutdown waits for in-flight dispatches to finish and closes the broker.
// The ctx deadline is the grace period; dispatches still running when it
// expires are abandoned and their messages redelivered on reconnect.
func (g *Gateway) Shutdown(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		g.log.Warn("shutdown grace period expired with dispatches in flight")
	}

	return g.broker.Close()
}
