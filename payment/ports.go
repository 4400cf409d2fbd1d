package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is the account-holder record returned by the user service.
type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Company is the business record returned by the company service.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CardStore persists card payment methods. CardsByUser returns an empty
// slice when the user has none.
type CardStore interface {
	CreateCard(ctx context.Context, card *CardPaymentMethod) (*CardPaymentMethod, error)
	CardsByUser(ctx context.Context, userID uuid.UUID) ([]*CardPaymentMethod, error)
}

// BankAccountStore persists bank account payment methods. BankAccountByCompany
// returns (nil, nil) when the company has no account yet.
type BankAccountStore interface {
	CreateBankAccount(ctx context.Context, account *BankAccountPaymentMethod) (*BankAccountPaymentMethod, error)
	BankAccountByCompany(ctx context.Context, companyID uuid.UUID) (*BankAccountPaymentMethod, error)
}

// Store combines both payment method stores.
type Store interface {
	CardStore
	BankAccountStore
}

// AccountLookup resolves users and companies in the surrounding platform.
// Missing records surface as not-found errors.
type AccountLookup interface {
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)
	CompanyByID(ctx context.Context, id uuid.UUID) (*Company, error)
}

// BankGateway tokenizes card details with the external bank API and reports
// balances for issued tokens. Failures are upstream-gateway errors.
type BankGateway interface {
	IssueToken(ctx context.Context, in AddBankCardInput) (string, error)
	Balance(ctx context.Context, token string) (int64, error)
}
