package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/finlane/payment-service/adapters/inmemory"
	"github.com/finlane/payment-service/contract/rpc"
)

func startGateway(t *testing.T, handlers map[string]rpc.Handler) (*Gateway, *inmemory.Broker, context.CancelFunc) {
	t.Helper()

	broker := inmemory.New()
	log := discardLogger()
	g := New(broker, NewDispatcher(handlers, log), NewResponder(broker, log), nil, log)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := g.Start(ctx); err != nil {
			t.Errorf("Start: %v", err)
		}
	}()

	return g, broker, cancel
}

func awaitResponse(t *testing.T, broker *inmemory.Broker) inmemory.Message {
	t.Helper()

	select {
	case msg := <-broker.Published:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no response published")
		return inmemory.Message{}
	}
}

func TestGatewayRoundTrip(t *testing.T) {
	_, broker, cancel := startGateway(t, map[string]rpc.Handler{
		"add_bank_card": func(context.Context, map[string]any) (rpc.Result, error) {
			return stubResult{"card_last_four": "1111"}, nil
		},
	})
	defer cancel()

	acked := make(chan struct{})
	broker.Inject(
		[]byte(`{"operation_type": "add_bank_card", "card_number": "4111111111111111"}`),
		"corr-42",
		"amq.rabbitmq.reply-to.g1",
		func() error { close(acked); return nil },
	)

	msg := awaitResponse(t, broker)

	if msg.Destination != "amq.rabbitmq.reply-to.g1" {
		t.Fatalf("destination = %q", msg.Destination)
	}

	if msg.CorrelationID != "corr-42" {
		t.Fatalf("correlation id = %q, want the request's echoed back", msg.CorrelationID)
	}

	var resp rpc.Response
	if err := json.Unmarshal(msg.Body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.StatusCode != 201 || !resp.Success {
		t.Fatalf("got status=%d success=%v, want 201 success", resp.StatusCode, resp.Success)
	}

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was not acknowledged")
	}
}

func TestGatewayAcksWhenHandlerFails(t *testing.T) {
	_, broker, cancel := startGateway(t, map[string]rpc.Handler{
		"add_bank_card": func(context.Context, map[string]any) (rpc.Result, error) {
			return nil, errors.New("boom")
		},
	})
	defer cancel()

	acked := make(chan struct{})
	broker.Inject([]byte(`{"operation_type": "add_bank_card"}`), "corr-1", "replies", func() error {
		close(acked)
		return nil
	})

	msg := awaitResponse(t, broker)

	var resp rpc.Response
	if err := json.Unmarshal(msg.Body, &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.StatusCode != 500 || resp.Success {
		t.Fatalf("got status=%d success=%v, want 500 failure", resp.StatusCode, resp.Success)
	}

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("failed dispatch must still be acknowledged")
	}
}

func TestGatewayAcksWhenReplyDestinationMissing(t *testing.T) {
	_, broker, cancel := startGateway(t, map[string]rpc.Handler{
		"get_balance": func(context.Context, map[string]any) (rpc.Result, error) {
			return stubResult{"balance": 7}, nil
		},
	})
	defer cancel()

	acked := make(chan struct{})
	broker.Inject([]byte(`{"operation_type": "get_balance"}`), "corr-2", "", func() error {
		close(acked)
		return nil
	})

	select {
	case <-acked:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery without reply_to must still be acknowledged")
	}

	if got := len(broker.Responses()); got != 0 {
		t.Fatalf("published %d responses, want none without a destination", got)
	}
}

func TestGatewayShutdownWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})

	g, broker, cancel := startGateway(t, map[string]rpc.Handler{
		"get_balance": func(context.Context, map[string]any) (rpc.Result, error) {
			<-release
			return stubResult{"balance": 7}, nil
		},
	})
	defer cancel()

	broker.Inject([]byte(`{"operation_type": "get_balance"}`), "corr-3", "replies", func() error { return nil })

	// Give the dispatch goroutine a moment to pick the message up.
	time.Sleep(50 * time.Millisecond)

	done := make(chan error, 1)

	go func() {
		ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		done <- g.Shutdown(ctx)
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned while a dispatch was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish after dispatches drained")
	}

	if !broker.Closed() {
		t.Fatal("shutdown must close the broker")
	}
}
