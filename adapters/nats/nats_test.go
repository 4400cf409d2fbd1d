package nats

import (
	"errors"
	"testing"

	perr "github.com/finlane/payment-service/contract/errors"
)

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Config{}, nil)
	if err == nil {
		t.Fatalf("expected error for empty URL")
	}

	if !errors.Is(err, perr.ErrBrokerUnavailable) {
		t.Fatalf("want ErrBrokerUnavailable, got %v", err)
	}
}

func TestPublishBeforeConnectFails(t *testing.T) {
	b, err := New(Config{URL: "nats://localhost:4222"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pubErr := b.Publish(t.Context(), "_INBOX.reply", []byte(`{}`), "corr-1")
	if !errors.Is(pubErr, perr.ErrBrokerUnavailable) {
		t.Fatalf("want ErrBrokerUnavailable before Connect, got %v", pubErr)
	}
}
