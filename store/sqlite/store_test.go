package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/payment"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func testCard(userID uuid.UUID) *payment.CardPaymentMethod {
	now := time.Now().UTC().Truncate(time.Second)

	return &payment.CardPaymentMethod{
		ID:                  uuid.New(),
		CardHolderFirstName: "Aigerim",
		CardHolderLastName:  "Satpayeva",
		CardLastFour:        "1111",
		ExpirationDate:      "12/30",
		PaymentToken:        "tok-1",
		Balance:             250_000,
		UserID:              userID,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func testAccount(companyID uuid.UUID) *payment.BankAccountPaymentMethod {
	now := time.Now().UTC().Truncate(time.Second)

	return &payment.BankAccountPaymentMethod{
		ID:                uuid.New(),
		AccountHolderName: "Finlane LLP",
		AccountNumber:     "12345678901234567890",
		BankName:          "Halyk Bank",
		BankBIC:           "HSBKKZKX",
		CompanyID:         companyID,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for i := 0; i < 3; i++ {
		if _, err := New(db); err != nil {
			t.Fatalf("New round %d: %v", i, err)
		}
	}
}

func TestCreateAndListCards(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	card := testCard(userID)
	if _, err := s.CreateCard(ctx, card); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	cards, err := s.CardsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("CardsByUser: %v", err)
	}

	if len(cards) != 1 {
		t.Fatalf("got %d cards, want 1", len(cards))
	}

	got := cards[0]
	if got.ID != card.ID || got.CardLastFour != "1111" || got.Balance != 250_000 {
		t.Fatalf("card = %+v", got)
	}

	if !got.CreatedAt.Equal(card.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, card.CreatedAt)
	}

	if others, err := s.CardsByUser(ctx, uuid.New()); err != nil || len(others) != 0 {
		t.Fatalf("cards for other user: %v, %v", others, err)
	}
}

func TestBankAccountUniquePerCompany(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	companyID := uuid.New()

	if _, err := s.CreateBankAccount(ctx, testAccount(companyID)); err != nil {
		t.Fatalf("first CreateBankAccount: %v", err)
	}

	_, err := s.CreateBankAccount(ctx, testAccount(companyID))

	var e *perr.Error
	if !errors.As(err, &e) || e.Code != perr.CodeConflict {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestBankAccountByCompany(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	companyID := uuid.New()

	if got, err := s.BankAccountByCompany(ctx, companyID); err != nil || got != nil {
		t.Fatalf("empty store: got %v, %v", got, err)
	}

	account := testAccount(companyID)
	if _, err := s.CreateBankAccount(ctx, account); err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}

	got, err := s.BankAccountByCompany(ctx, companyID)
	if err != nil {
		t.Fatalf("BankAccountByCompany: %v", err)
	}

	if got == nil || got.ID != account.ID || got.AccountNumber != account.AccountNumber {
		t.Fatalf("account = %+v", got)
	}

	if !got.IsActive {
		t.Fatal("is_active must round-trip")
	}
}
