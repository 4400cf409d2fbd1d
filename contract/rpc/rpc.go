package rpc

import (
	"context"
	"time"
)

// OperationTypeField is the routing tag every inbound request must carry.
const OperationTypeField = "operation_type"

// Result is what an operation handler produces on success. Payload returns a
// string-keyed view of the domain object; time.Time values are converted to
// ISO-8601 strings by NormalizeBody before serialization.
type Result interface {
	Payload() map[string]any
}

// Handler processes one decoded operation payload. The operation_type tag has
// already been removed from the payload. Implementations must be safe for
// concurrent use, since distinct messages are dispatched concurrently.
type Handler func(ctx context.Context, payload map[string]any) (Result, error)

// Delivery is one inbound broker message plus its transport metadata.
// Ack confirms the message to the broker; it may be nil on transports
// without explicit acknowledgement.
type Delivery struct {
	Body          []byte
	CorrelationID string
	ReplyTo       string
	Ack           func() error
}

// Publisher sends a payload to a broker-addressable destination, tagged with
// the correlation id from the originating request. Implementations serialize
// access to the underlying channel; it must be safe to call Publish from
// multiple goroutines.
type Publisher interface {
	Publish(ctx context.Context, destination string, body []byte, correlationID string) error
}

// Consumer delivers inbound messages to deliver until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, deliver func(Delivery)) error
}

// Broker owns the physical connection to the message broker. Connect is
// idempotent and declares the gateway topology; repeated declarations are
// safe. No other component touches the underlying connection.
type Broker interface {
	Connect(ctx context.Context) error
	Publisher
	Consumer
	Close() error
}

// NormalizeBody converts every time.Time reachable through nested maps and
// slices into an RFC 3339 string, so the result marshals to JSON without
// surprises on the caller's side.
func NormalizeBody(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = NormalizeBody(val)
		}

		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = NormalizeBody(val)
		}

		return out
	default:
		return v
	}
}
