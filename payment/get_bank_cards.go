package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
)

// CardList is a read result holding a user's cards.
type CardList []*CardPaymentMethod

// Payload returns the list under a single key, so the response body stays an
// object on the wire.
func (l CardList) Payload() map[string]any {
	items := make([]any, len(l))
	for i, c := range l {
		items[i] = c.Payload()
	}

	return map[string]any{"bank_cards": items}
}

// GetBankCards lists the card payment methods bound to a user.
type GetBankCards struct {
	Cards CardStore
	Log   *slog.Logger
}

// Handle adapts Execute to the gateway's operation handler contract.
func (uc *GetBankCards) Handle(ctx context.Context, payload map[string]any) (rpc.Result, error) {
	raw, _ := payload["user_id"].(string)
	if raw == "" {
		return nil, perr.Invalid("User id is required.")
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return nil, perr.Invalid("User id must be a valid UUID.")
	}

	cards, err := uc.Execute(ctx, userID)
	if err != nil {
		return nil, err
	}

	return CardList(cards), nil
}

// Execute runs the read against the store.
func (uc *GetBankCards) Execute(ctx context.Context, userID uuid.UUID) ([]*CardPaymentMethod, error) {
	cards, err := uc.Cards.CardsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards for user %s: %w", userID, err)
	}

	return cards, nil
}
