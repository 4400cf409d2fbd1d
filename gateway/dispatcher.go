package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
)

// createPrefix marks operations that answer 201 instead of 200 on success.
const createPrefix = "add_"

// Dispatcher decodes inbound messages, routes them to the registered
// operation handler, and converts every outcome into a response envelope.
// The handler registry is copied at construction and never mutated.
type Dispatcher struct {
	handlers map[string]rpc.Handler
	log      *slog.Logger
}

// NewDispatcher builds a Dispatcher over an immutable copy of handlers.
func NewDispatcher(handlers map[string]rpc.Handler, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	reg := make(map[string]rpc.Handler, len(handlers))
	for op, h := range handlers {
		reg[op] = h
	}

	return &Dispatcher{handlers: reg, log: log}
}

// Handle processes one raw message body and always returns a well-formed
// response. The error return is nil for contained outcomes (success, decode
// and routing failures, business-rule rejections); it is non-nil only for
// upstream-gateway and unhandled handler failures, after the response has
// been built, so the transport can log them. A response is produced exactly
// once per message regardless of the handler's fate.
func (d *Dispatcher) Handle(ctx context.Context, raw []byte) (rpc.Response, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		d.log.Error("failed to decode message body", "error", err)
		return rpc.Fail(400, fmt.Sprintf("Malformed request body: %v", err), ""), nil
	}

	op, _ := payload[rpc.OperationTypeField].(string)
	if op == "" {
		d.log.Error("message without operation type")
		return rpc.Fail(400, "Missing 'operation_type' in request.", ""), nil
	}

	delete(payload, rpc.OperationTypeField)

	handler, ok := d.handlers[op]
	if !ok {
		d.log.Error("unknown operation type", "operation", op)
		return rpc.Fail(400, fmt.Sprintf("Unknown operation type: %s", op), ""), nil
	}

	result, err := handler(ctx, payload)
	if err != nil {
		return d.failure(op, err)
	}

	status := 200
	if strings.HasPrefix(op, createPrefix) {
		status = 201
	}

	return rpc.OK(status, rpc.NormalizeBody(result.Payload())), nil
}

// failure classifies a handler error. Business-rule errors are contained
// here; upstream-gateway and unhandled errors are returned alongside the
// response for observability, never instead of it.
func (d *Dispatcher) failure(op string, err error) (rpc.Response, error) {
	var e *perr.Error
	if errors.As(err, &e) {
		if e.Code == perr.CodeUpstreamGateway {
			d.log.Error("payment gateway error", "operation", op, "error", err)
			resp := rpc.Fail(e.Status, fmt.Sprintf("Payment gateway error occurred in the Payment Service: %v", err), "")

			return resp, err
		}

		d.log.Warn("operation rejected", "operation", op, "code", e.Code, "error", err)

		return rpc.Fail(e.Status, e.Message, ""), nil
	}

	d.log.Error("unhandled error while processing message", "operation", op, "error", err)
	resp := rpc.Fail(500, fmt.Sprintf("Unhandled error occurred in the Payment Service: %v", err), "")

	return resp, err
}

// Operations lists the registered operation tags, mainly for startup logs.
func (d *Dispatcher) Operations() []string {
	ops := make([]string, 0, len(d.handlers))
	for op := range d.handlers {
		ops = append(ops, op)
	}

	return ops
}
