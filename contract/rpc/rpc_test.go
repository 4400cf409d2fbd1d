package rpc_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/finlane/payment-service/contract/rpc"
)

func TestNormalizeBodyConvertsTimesRecursively(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	in := map[string]any{
		"card_last_four": "8901",
		"created_at":     created,
		"history": []any{
			map[string]any{"updated_at": created.Add(time.Hour)},
		},
	}

	out, ok := rpc.NormalizeBody(in).(map[string]any)
	if !ok {
		t.Fatalf("normalized value is not a map")
	}

	if got := out["created_at"]; got != "2025-03-14T09:26:53Z" {
		t.Fatalf("created_at = %v, want RFC 3339 string", got)
	}

	nested := out["history"].([]any)[0].(map[string]any)
	if got := nested["updated_at"]; got != "2025-03-14T10:26:53Z" {
		t.Fatalf("nested updated_at = %v, want RFC 3339 string", got)
	}

	if got := out["card_last_four"]; got != "8901" {
		t.Fatalf("non-temporal field changed: %v", got)
	}

	// The input must not be mutated.
	if _, isTime := in["created_at"].(time.Time); !isTime {
		t.Fatalf("input map was mutated")
	}
}

func TestResponseRoundTrip(t *testing.T) {
	orig := rpc.OK(201, map[string]any{
		"card_last_four":  "8901",
		"expiration_date": "12/30",
		"created_at":      "2025-03-14T09:26:53Z",
	})

	raw, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got rpc.Response
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.StatusCode != orig.StatusCode || got.Success != orig.Success {
		t.Fatalf("status/success changed over the wire: %+v", got)
	}

	body := got.Body.(map[string]any)
	if !reflect.DeepEqual(body, orig.Body) {
		t.Fatalf("body changed over the wire: %#v", body)
	}

	if got.ErrorMessage != "" {
		t.Fatalf("success response carried an error message: %q", got.ErrorMessage)
	}
}

func TestFailEnvelopeInvariants(t *testing.T) {
	resp := rpc.Fail(409, "This company already has a bank account.", "")

	if resp.Success {
		t.Fatalf("Fail produced success=true")
	}

	if resp.ErrorOrigin != rpc.DefaultErrorOrigin {
		t.Fatalf("origin = %q, want default", resp.ErrorOrigin)
	}

	body, ok := resp.Body.(map[string]any)
	if !ok || len(body) != 0 {
		t.Fatalf("failure body must be empty, got %#v", resp.Body)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(raw, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if wire["error_message"] != "This company already has a bank account." {
		t.Fatalf("wire error_message = %v", wire["error_message"])
	}
}
