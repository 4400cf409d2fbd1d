package payment

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	perr "github.com/finlane/payment-service/contract/errors"
)

var (
	cardNumberRe    = regexp.MustCompile(`^\d{11,16}$`)
	cvvRe           = regexp.MustCompile(`^\d{3}$`)
	expirationRe    = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	accountNumberRe = regexp.MustCompile(`^\d{10,20}$`)
)

// AddBankCardInput is the add_bank_card operation payload.
type AddBankCardInput struct {
	CardHolderFirstName string `json:"card_holder_first_name"`
	CardHolderLastName  string `json:"card_holder_last_name"`
	CardNumber          string `json:"card_number"`
	ExpirationDate      string `json:"expiration_date"` // MM/YY
	CVVCode             string `json:"cvv_code"`
	UserID              string `json:"user_id"`
}

// Validate checks the card details before any external call is made.
func (in *AddBankCardInput) Validate() error {
	if strings.TrimSpace(in.CardHolderFirstName) == "" {
		return perr.Invalid("Card holder first name cannot be empty.")
	}

	if strings.TrimSpace(in.CardHolderLastName) == "" {
		return perr.Invalid("Card holder last name cannot be empty.")
	}

	if !cardNumberRe.MatchString(in.CardNumber) {
		return perr.Invalid("Card number must be between 11 and 16 digits.")
	}

	if !cvvRe.MatchString(in.CVVCode) {
		return perr.Invalid("CVV code must contain exactly 3 digits.")
	}

	m, y, err := parseExpiration(in.ExpirationDate)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	exp := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if exp.Before(monthStart) {
		return perr.Invalid("Expiration date must be in the future.")
	}

	if strings.TrimSpace(in.UserID) == "" {
		return perr.Invalid("User id is required.")
	}

	return nil
}

// LastFour returns the trailing four digits of the card number.
func (in *AddBankCardInput) LastFour() string {
	if len(in.CardNumber) < 4 {
		return in.CardNumber
	}

	return in.CardNumber[len(in.CardNumber)-4:]
}

// AddBankAccountInput is the add_bank_account operation payload.
type AddBankAccountInput struct {
	AccountHolderName string `json:"account_holder_name"`
	AccountNumber     string `json:"account_number"`
	BankName          string `json:"bank_name"`
	BankBIC           string `json:"bank_bic"`
	CompanyID         string `json:"company_id"`
}

// Validate checks the account details before any external call is made.
func (in *AddBankAccountInput) Validate() error {
	if strings.TrimSpace(in.AccountHolderName) == "" {
		return perr.Invalid("Account holder name cannot be empty.")
	}

	if !accountNumberRe.MatchString(in.AccountNumber) {
		return perr.Invalid("Invalid account number format.")
	}

	if strings.TrimSpace(in.CompanyID) == "" {
		return perr.Invalid("Company id is required.")
	}

	return nil
}

// parseExpiration splits an MM/YY date into month and four-digit year.
func parseExpiration(v string) (month, year int, err error) {
	m := expirationRe.FindStringSubmatch(v)
	if m == nil {
		return 0, 0, perr.Invalid("Invalid expiration date format. Use MM/YY instead.")
	}

	month, _ = strconv.Atoi(m[1])
	short, _ := strconv.Atoi(m[2])

	return month, 2000 + short, nil
}

// decodeInput converts a decoded JSON payload into a typed input struct.
func decodeInput(payload map[string]any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return perr.Invalid(fmt.Sprintf("Invalid payload: %v", err))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return perr.Invalid(fmt.Sprintf("Invalid payload: %v", err))
	}

	return nil
}
