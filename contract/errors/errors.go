package errors

import (
	stderrors "errors"
)

// Error codes for the payment service contracts. Keep stable; used across
// adapters, the gateway, and the HTTP layer.
const (
	CodeDecodeFailed      = "payment.decode_failed"
	CodeUnknownOperation  = "payment.unknown_operation"
	CodeMissingReply      = "payment.missing_reply_destination"
	CodeInvalidInput      = "payment.invalid_input"
	CodeNotFound          = "payment.not_found"
	CodeConflict          = "payment.conflict"
	CodeForbidden         = "payment.forbidden"
	CodeUpstreamGateway   = "payment.upstream_gateway"
	CodeBrokerUnavailable = "payment.broker_unavailable"
	CodeUnhandled         = "payment.unhandled"
)

// Error carries a stable code, an HTTP-style status, and a human message.
// Two Errors compare equal under errors.Is when their codes match, so the
// sentinel values below double as classification targets.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}

	return e.Message
}

// Is reports code equality so wrapped values match their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !stderrors.As(target, &t) {
		return false
	}

	return e.Code == t.Code
}

// New builds an Error with an explicit status and code.
func New(status int, code, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Constructors for the recognized business categories.

func Invalid(message string) *Error   { return New(400, CodeInvalidInput, message) }
func NotFound(message string) *Error  { return New(404, CodeNotFound, message) }
func Conflict(message string) *Error  { return New(409, CodeConflict, message) }
func Forbidden(message string) *Error { return New(403, CodeForbidden, message) }

// UpstreamGateway marks failures of the external bank gateway. The dispatcher
// still answers the caller with a structured response, then surfaces the
// error to the transport for logging.
func UpstreamGateway(message string) *Error {
	return New(400, CodeUpstreamGateway, message)
}

// Sentinels for transport and routing failures.
var (
	ErrBrokerUnavailable = New(503, CodeBrokerUnavailable, "message broker is unavailable")
	ErrDecodeFailed      = New(400, CodeDecodeFailed, "request body could not be decoded")
	ErrUnknownOperation  = New(400, CodeUnknownOperation, "unknown operation type")
	ErrMissingReply      = New(400, CodeMissingReply, "reply destination is missing")
)

// Status extracts the HTTP-style status from err, defaulting to 500 for
// anything outside the taxonomy.
func Status(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Status
	}

	return 500
}

// CodeOf extracts the stable code from err, or CodeUnhandled.
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}

	return CodeUnhandled
}
