package upstream

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finlane/payment-service/payment"
)

// DevBankGateway issues development tokens until the real bank API is wired.
// Tokens embed the card number and a fresh UUID, so each provisioning gets a
// distinct token even for the same card.
type DevBankGateway struct {
	// InitialBalance is reported for every freshly issued token, in minor
	// currency units.
	InitialBalance int64
}

var _ payment.BankGateway = (*DevBankGateway)(nil)

// IssueToken returns a development payment token for the card.
func (g *DevBankGateway) IssueToken(_ context.Context, in payment.AddBankCardInput) (string, error) {
	return fmt.Sprintf("TEST-PAYMENT-TOKEN FOR: %s, UNIQUE_ID: %s", in.CardNumber, uuid.New()), nil
}

// Balance reports the configured initial balance for any token.
func (g *DevBankGateway) Balance(context.Context, string) (int64, error) {
	return g.InitialBalance, nil
}
