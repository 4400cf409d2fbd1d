package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
)

// Responder publishes response envelopes back to the reply destination named
// by the originating request, echoing its correlation id.
type Responder struct {
	pub rpc.Publisher
	log *slog.Logger
}

// NewResponder builds a Responder over a publisher.
func NewResponder(pub rpc.Publisher, log *slog.Logger) *Responder {
	if log == nil {
		log = slog.Default()
	}

	return &Responder{pub: pub, log: log}
}

// Send serializes resp and publishes it to destination with correlationID.
// An empty destination is a caller configuration error, never a silent drop.
func (r *Responder) Send(ctx context.Context, destination string, resp rpc.Response, correlationID string) error {
	if destination == "" {
		return fmt.Errorf("send response: %w", perr.ErrMissingReply)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("serialize response: %w", err)
	}

	if err := r.pub.Publish(ctx, destination, body, correlationID); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("publish response to %q: %w", destination, err)
	}

	r.log.Debug("response published", "destination", destination, "correlation_id", correlationID, "status", resp.StatusCode)

	return nil
}
