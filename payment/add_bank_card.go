package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
)

// AddBankCard provisions a new card payment method: tokenize the card with
// the bank gateway, fetch its balance, verify the owning user, persist.
type AddBankCard struct {
	Gateway  BankGateway
	Cards    CardStore
	Accounts AccountLookup
	Log      *slog.Logger
}

// Handle adapts Execute to the gateway's operation handler contract.
func (uc *AddBankCard) Handle(ctx context.Context, payload map[string]any) (rpc.Result, error) {
	var in AddBankCardInput
	if err := decodeInput(payload, &in); err != nil {
		return nil, err
	}

	return uc.Execute(ctx, in)
}

// Execute runs the use case against a validated input.
func (uc *AddBankCard) Execute(ctx context.Context, in AddBankCardInput) (*CardPaymentMethod, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		return nil, perr.Invalid("User id must be a valid UUID.")
	}

	token, err := uc.Gateway.IssueToken(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("issue payment token: %w", err)
	}

	balance, err := uc.Gateway.Balance(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("fetch card balance: %w", err)
	}

	user, err := uc.Accounts.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("look up user %s: %w", userID, err)
	}

	if !user.IsActive {
		uc.Log.Warn("rejected card for inactive user", "user_id", userID)
		return nil, perr.Forbidden("User is not active.")
	}

	now := time.Now().UTC()
	card := &CardPaymentMethod{
		ID:                  uuid.New(),
		CardHolderFirstName: in.CardHolderFirstName,
		CardHolderLastName:  in.CardHolderLastName,
		CardLastFour:        in.LastFour(),
		ExpirationDate:      in.ExpirationDate,
		PaymentToken:        token,
		Balance:             balance,
		UserID:              userID,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	created, err := uc.Cards.CreateCard(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("persist card: %w", err)
	}

	return created, nil
}
