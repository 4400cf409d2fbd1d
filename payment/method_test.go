package payment

import (
	"fmt"
	"testing"
	"time"
)

func TestCardExpiration(t *testing.T) {
	future := time.Now().UTC().AddDate(1, 0, 0)

	card := &CardPaymentMethod{
		ExpirationDate: fmt.Sprintf("%02d/%02d", int(future.Month()), future.Year()%100),
		IsActive:       true,
	}

	if card.Expired() {
		t.Fatal("card expiring next year must not be expired")
	}

	if !card.UsableForPayment() {
		t.Fatal("active unexpired card must be usable")
	}

	if card.ExpirationMonth() != int(future.Month()) || card.ExpirationYear() != future.Year() {
		t.Fatalf("month=%d year=%d", card.ExpirationMonth(), card.ExpirationYear())
	}

	card.ExpirationDate = "01/20"
	if !card.Expired() {
		t.Fatal("card from 2020 must be expired")
	}

	if card.UsableForPayment() {
		t.Fatal("expired card must not be usable")
	}

	card.ExpirationDate = "garbage"
	if !card.Expired() {
		t.Fatal("malformed expiration counts as expired")
	}

	if card.ExpirationMonth() != 0 || card.ExpirationYear() != 0 {
		t.Fatal("malformed expiration must report zero components")
	}
}

func TestCardHolderFullName(t *testing.T) {
	card := &CardPaymentMethod{CardHolderFirstName: "Aigerim", CardHolderLastName: "Satpayeva"}
	if got := card.CardHolderFullName(); got != "Aigerim Satpayeva" {
		t.Fatalf("CardHolderFullName() = %q", got)
	}
}
