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

// AddBankAccount provisions a company's settlement account. A company may
// hold at most one bank account; a second request conflicts. Two concurrent
// requests for the same company can race past the existence check here; the
// store's uniqueness constraint settles the race.
type AddBankAccount struct {
	Accounts BankAccountStore
	Lookup   AccountLookup
	Log      *slog.Logger
}

// Handle adapts Execute to the gateway's operation handler contract.
func (uc *AddBankAccount) Handle(ctx context.Context, payload map[string]any) (rpc.Result, error) {
	var in AddBankAccountInput
	if err := decodeInput(payload, &in); err != nil {
		return nil, err
	}

	return uc.Execute(ctx, in)
}

// Execute runs the use case against a validated input.
func (uc *AddBankAccount) Execute(ctx context.Context, in AddBankAccountInput) (*BankAccountPaymentMethod, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	companyID, err := uuid.Parse(in.CompanyID)
	if err != nil {
		return nil, perr.Invalid("Company id must be a valid UUID.")
	}

	company, err := uc.Lookup.CompanyByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("look up company %s: %w", companyID, err)
	}

	existing, err := uc.Accounts.BankAccountByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("check existing account: %w", err)
	}

	if existing != nil {
		uc.Log.Warn("company already has a bank account", "company_id", companyID)
		return nil, perr.Conflict("This company already has a bank account.")
	}

	if !company.IsActive {
		uc.Log.Warn("rejected account for inactive company", "company_id", companyID)
		return nil, perr.Forbidden("Company is not active.")
	}

	now := time.Now().UTC()
	account := &BankAccountPaymentMethod{
		ID:                uuid.New(),
		AccountHolderName: in.AccountHolderName,
		AccountNumber:     in.AccountNumber,
		BankName:          in.BankName,
		BankBIC:           in.BankBIC,
		CompanyID:         companyID,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := uc.Accounts.CreateBankAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("persist bank account: %w", err)
	}

	return created, nil
}
