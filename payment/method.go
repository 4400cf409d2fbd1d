package payment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CardPaymentMethod is a tokenized bank card bound to a user. The raw card
// number is never stored; only the last four digits and the gateway token
// survive provisioning.
type CardPaymentMethod struct {
	ID                  uuid.UUID `json:"id"`
	CardHolderFirstName string    `json:"card_holder_first_name"`
	CardHolderLastName  string    `json:"card_holder_last_name"`
	CardLastFour        string    `json:"card_last_four"`
	ExpirationDate      string    `json:"expiration_date"` // MM/YY
	PaymentToken        string    `json:"payment_token"`
	Balance             int64     `json:"balance"` // minor units
	UserID              uuid.UUID `json:"user_id"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CardHolderFullName joins the holder's first and last name.
func (c *CardPaymentMethod) CardHolderFullName() string {
	return fmt.Sprintf("%s %s", c.CardHolderFirstName, c.CardHolderLastName)
}

// ExpirationMonth returns the month component of the MM/YY expiration date,
// or 0 when the date is malformed.
func (c *CardPaymentMethod) ExpirationMonth() int {
	m, _, err := parseExpiration(c.ExpirationDate)
	if err != nil {
		return 0
	}

	return m
}

// ExpirationYear returns the four-digit year of the MM/YY expiration date,
// or 0 when the date is malformed.
func (c *CardPaymentMethod) ExpirationYear() int {
	_, y, err := parseExpiration(c.ExpirationDate)
	if err != nil {
		return 0
	}

	return y
}

// Expired reports whether the card's expiration month has passed.
func (c *CardPaymentMethod) Expired() bool {
	m, y, err := parseExpiration(c.ExpirationDate)
	if err != nil {
		return true
	}

	exp := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	return exp.Before(monthStart)
}

// UsableForPayment reports whether the card can fund a payment.
func (c *CardPaymentMethod) UsableForPayment() bool {
	return c.IsActive && !c.Expired()
}

// Payload returns the card as a string-keyed map for the response envelope.
// Temporal values stay as time.Time; the dispatcher normalizes them.
func (c *CardPaymentMethod) Payload() map[string]any {
	return map[string]any{
		"id":                     c.ID.String(),
		"card_holder_first_name": c.CardHolderFirstName,
		"card_holder_last_name":  c.CardHolderLastName,
		"card_last_four":         c.CardLastFour,
		"expiration_date":        c.ExpirationDate,
		"payment_token":          c.PaymentToken,
		"balance":                c.Balance,
		"user_id":                c.UserID.String(),
		"is_active":              c.IsActive,
		"created_at":             c.CreatedAt,
		"updated_at":             c.UpdatedAt,
	}
}

// BankAccountPaymentMethod is a company's settlement account. A company holds
// at most one; the store enforces the uniqueness.
type BankAccountPaymentMethod struct {
	ID                uuid.UUID `json:"id"`
	AccountHolderName string    `json:"account_holder_name"`
	AccountNumber     string    `json:"account_number"`
	BankName          string    `json:"bank_name"`
	BankBIC           string    `json:"bank_bic"`
	CompanyID         uuid.UUID `json:"company_id"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UsableForPayment reports whether the account can fund a payment.
func (b *BankAccountPaymentMethod) UsableForPayment() bool {
	return b.IsActive
}

// Payload returns the account as a string-keyed map for the response envelope.
func (b *BankAccountPaymentMethod) Payload() map[string]any {
	return map[string]any{
		"id":                  b.ID.String(),
		"account_holder_name": b.AccountHolderName,
		"account_number":      b.AccountNumber,
		"bank_name":           b.BankName,
		"bank_bic":            b.BankBIC,
		"company_id":          b.CompanyID.String(),
		"is_active":           b.IsActive,
		"created_at":          b.CreatedAt,
		"updated_at":          b.UpdatedAt,
	}
}
