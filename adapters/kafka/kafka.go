// Package kafka publishes gateway responses to Kafka reply topics. It covers
// only the publisher side of the broker contract: callers that request over
// Kafka name a reply topic and read the correlation id from record headers.
package kafka

import (
	"context"
	"errors"
	"fmt"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
)

const correlationHeader = "correlation_id"

// Writer is a minimal Kafka-like writer interface. Adapt any client to this;
// a franz-go backed implementation is available behind the franz build tag.
type Writer interface {
	Write(topic string, key, value []byte, headers map[string]string) error
}

// Publisher implements the gateway's publish contract over a Writer.
type Publisher struct {
	Writer Writer
}

var _ rpc.Publisher = (*Publisher)(nil)

// New creates a Publisher with the provided writer.
func New(w Writer) *Publisher { return &Publisher{Writer: w} }

// Publish writes body to the reply topic, keyed by the correlation id so all
// responses for one request land in the same partition.
func (p *Publisher) Publish(ctx context.Context, destination string, body []byte, correlationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.Writer == nil {
		return fmt.Errorf("kafka publish: %w", perr.ErrBrokerUnavailable)
	}

	headers := map[string]string{correlationHeader: correlationID}

	if err := p.Writer.Write(destination, []byte(correlationID), body, headers); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("kafka publish to %q: %w", destination, errors.Join(perr.ErrBrokerUnavailable, err))
	}

	return nil
}
