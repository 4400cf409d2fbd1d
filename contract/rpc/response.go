package rpc

// DefaultErrorOrigin identifies this service in error envelopes.
const DefaultErrorOrigin = "Payment Service"

// Response is the outbound wire envelope. It is published to the reply
// destination named by the request, carrying the request's correlation id.
// StatusCode follows HTTP semantics: 200 success-read, 201 success-create,
// 4xx caller error, 5xx processing error.
type Response struct {
	StatusCode   int    `json:"status_code"`
	Body         any    `json:"body"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
	ErrorOrigin  string `json:"error_origin,omitempty"`
}

// OK builds a success envelope. Success responses carry no error message.
func OK(statusCode int, body any) Response {
	return Response{
		StatusCode: statusCode,
		Body:       body,
		Success:    true,
	}
}

// Fail builds an error envelope with an empty body. An empty origin defaults
// to this service.
func Fail(statusCode int, message, origin string) Response {
	if origin == "" {
		origin = DefaultErrorOrigin
	}

	return Response{
		StatusCode:   statusCode,
		Body:         map[string]any{},
		Success:      false,
		ErrorMessage: message,
		ErrorOrigin:  origin,
	}
}
