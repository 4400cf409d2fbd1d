// Package sqlite persists payment methods in a SQLite database using the
// pure-Go modernc driver, so the binary stays cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/payment"
)

// Schema kept in sync with cmd migrate. The unique index on company_id backs
// the one-account-per-company rule even under concurrent requests.
const schema = `
CREATE TABLE IF NOT EXISTS bank_cards (
    id TEXT PRIMARY KEY,
    card_holder_first_name TEXT NOT NULL,
    card_holder_last_name TEXT NOT NULL,
    card_last_four TEXT NOT NULL,
    expiration_date TEXT NOT NULL,
    payment_token TEXT NOT NULL,
    balance INTEGER NOT NULL DEFAULT 0,
    user_id TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bank_accounts (
    id TEXT PRIMARY KEY,
    account_holder_name TEXT NOT NULL,
    account_number TEXT NOT NULL,
    bank_name TEXT NOT NULL,
    bank_bic TEXT NOT NULL,
    company_id TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bank_cards_user_id ON bank_cards(user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_bank_accounts_company_id ON bank_accounts(company_id);
`

// Store implements the payment stores over database/sql.
type Store struct {
	db *sql.DB
}

var _ payment.Store = (*Store)(nil)

// Open opens (or creates) the database at path and applies the schema.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// New wraps an existing handle and applies the schema. Re-applying the schema
// on an initialized database is a no-op.
func New(db *sql.DB) (*Store, error) {
	if err := initSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateCard inserts a card payment method and returns it unchanged.
func (s *Store) CreateCard(ctx context.Context, card *payment.CardPaymentMethod) (*payment.CardPaymentMethod, error) {
	const q = `
INSERT INTO bank_cards (
    id, card_holder_first_name, card_holder_last_name, card_last_four,
    expiration_date, payment_token, balance, user_id, is_active, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		card.ID.String(),
		card.CardHolderFirstName,
		card.CardHolderLastName,
		card.CardLastFour,
		card.ExpirationDate,
		card.PaymentToken,
		card.Balance,
		card.UserID.String(),
		boolToInt(card.IsActive),
		card.CreatedAt.UTC().Format(time.RFC3339),
		card.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("insert bank card: %w", err)
	}

	return card, nil
}

// CreateBankAccount inserts a company's bank account. A second account for the
// same company violates the unique index and surfaces as a conflict.
func (s *Store) CreateBankAccount(ctx context.Context, account *payment.BankAccountPaymentMethod) (*payment.BankAccountPaymentMethod, error) {
	const q = `
INSERT INTO bank_accounts (
    id, account_holder_name, account_number, bank_name, bank_bic,
    company_id, is_active, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, q,
		account.ID.String(),
		account.AccountHolderName,
		account.AccountNumber,
		account.BankName,
		account.BankBIC,
		account.CompanyID.String(),
		boolToInt(account.IsActive),
		account.CreatedAt.UTC().Format(time.RFC3339),
		account.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, perr.Conflict("This company already has a bank account.")
		}

		return nil, fmt.Errorf("insert bank account: %w", err)
	}

	return account, nil
}

// BankAccountByCompany returns the company's account, or (nil, nil) when the
// company has none yet.
func (s *Store) BankAccountByCompany(ctx context.Context, companyID uuid.UUID) (*payment.BankAccountPaymentMethod, error) {
	const q = `
SELECT id, account_holder_name, account_number, bank_name, bank_bic,
       company_id, is_active, created_at, updated_at
FROM bank_accounts WHERE company_id = ?`

	row := s.db.QueryRowContext(ctx, q, companyID.String())

	var (
		account            payment.BankAccountPaymentMethod
		id, company        string
		active             int
		createdAt, updated string
	)

	err := row.Scan(
		&id,
		&account.AccountHolderName,
		&account.AccountNumber,
		&account.BankName,
		&account.BankBIC,
		&company,
		&active,
		&createdAt,
		&updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("select bank account: %w", err)
	}

	if account.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse account id %q: %w", id, err)
	}

	if account.CompanyID, err = uuid.Parse(company); err != nil {
		return nil, fmt.Errorf("parse company id %q: %w", company, err)
	}

	account.IsActive = active != 0

	if account.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	if account.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updated, err)
	}

	return &account, nil
}

// CardsByUser lists a user's cards, newest first.
func (s *Store) CardsByUser(ctx context.Context, userID uuid.UUID) ([]*payment.CardPaymentMethod, error) {
	const q = `
SELECT id, card_holder_first_name, card_holder_last_name, card_last_four,
       expiration_date, payment_token, balance, user_id, is_active, created_at, updated_at
FROM bank_cards WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, userID.String())
	if err != nil {
		return nil, fmt.Errorf("select bank cards: %w", err)
	}
	defer rows.Close()

	var cards []*payment.CardPaymentMethod

	for rows.Next() {
		var (
			card               payment.CardPaymentMethod
			id, user           string
			active             int
			createdAt, updated string
		)

		err := rows.Scan(
			&id,
			&card.CardHolderFirstName,
			&card.CardHolderLastName,
			&card.CardLastFour,
			&card.ExpirationDate,
			&card.PaymentToken,
			&card.Balance,
			&user,
			&active,
			&createdAt,
			&updated,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bank card: %w", err)
		}

		if card.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse card id %q: %w", id, err)
		}

		if card.UserID, err = uuid.Parse(user); err != nil {
			return nil, fmt.Errorf("parse user id %q: %w", user, err)
		}

		card.IsActive = active != 0

		if card.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}

		if card.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at %q: %w", updated, err)
		}

		cards = append(cards, &card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bank cards: %w", err)
	}

	return cards, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}

// isUniqueViolation matches the driver's constraint error by message; modernc
// does not export a typed error for it.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
