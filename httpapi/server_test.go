package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/payment"
	"github.com/finlane/payment-service/store/sqlite"
	"github.com/finlane/payment-service/upstream"
)

type staticLookup struct {
	user    *payment.User
	company *payment.Company
}

func (l *staticLookup) UserByID(_ context.Context, id uuid.UUID) (*payment.User, error) {
	if l.user == nil || l.user.ID != id {
		return nil, perr.NotFound(fmt.Sprintf("User with ID: %s not found.", id))
	}

	return l.user, nil
}

func (l *staticLookup) CompanyByID(_ context.Context, id uuid.UUID) (*payment.Company, error) {
	if l.company == nil || l.company.ID != id {
		return nil, perr.NotFound(fmt.Sprintf("Company with ID: %s not found.", id))
	}

	return l.company, nil
}

func newTestServer(t *testing.T, lookup payment.AccountLookup, opts func(*Config)) *Server {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	t.Cleanup(func() { store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := Config{
		AddBankCard: &payment.AddBankCard{
			Gateway:  &upstream.DevBankGateway{InitialBalance: 100},
			Cards:    store,
			Accounts: lookup,
			Log:      log,
		},
		AddBankAccount: &payment.AddBankAccount{
			Accounts: store,
			Lookup:   lookup,
			Log:      log,
		},
		Log: log,
	}

	if opts != nil {
		opts(&cfg)
	}

	return New(cfg)
}

func cardRequestBody(userID uuid.UUID) []byte {
	exp := time.Now().UTC().AddDate(2, 0, 0)

	body, _ := json.Marshal(map[string]string{
		"card_holder_first_name": "Aigerim",
		"card_holder_last_name":  "Satpayeva",
		"card_number":            "4111111111111111",
		"expiration_date":        fmt.Sprintf("%02d/%02d", int(exp.Month()), exp.Year()%100),
		"cvv_code":               "123",
		"user_id":                userID.String(),
	})

	return body
}

func accountRequestBody(companyID uuid.UUID) []byte {
	body, _ := json.Marshal(map[string]string{
		"account_holder_name": "Finlane LLP",
		"account_number":      "12345678901234567890",
		"bank_name":           "Halyk Bank",
		"bank_bic":            "HSBKKZKX",
		"company_id":          companyID.String(),
	})

	return body
}

func post(s *Server, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	return w
}

func TestAddBankCardEndpoint(t *testing.T) {
	userID := uuid.New()
	s := newTestServer(t, &staticLookup{user: &payment.User{ID: userID, IsActive: true}}, nil)

	w := post(s, "/api/v1/payment/bank_card", cardRequestBody(userID), nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if got["card_last_four"] != "1111" {
		t.Fatalf("card_last_four = %v", got["card_last_four"])
	}

	token, _ := got["payment_token"].(string)
	if !strings.HasPrefix(token, "TEST-PAYMENT-TOKEN FOR: 4111111111111111") {
		t.Fatalf("payment_token = %q", token)
	}
}

func TestAddBankCardInactiveUser(t *testing.T) {
	userID := uuid.New()
	s := newTestServer(t, &staticLookup{user: &payment.User{ID: userID, IsActive: false}}, nil)

	w := post(s, "/api/v1/payment/bank_card", cardRequestBody(userID), nil)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	if !strings.Contains(w.Body.String(), "User is not active.") {
		t.Fatalf("body = %s", w.Body)
	}
}

func TestAddBankAccountConflict(t *testing.T) {
	companyID := uuid.New()
	s := newTestServer(t, &staticLookup{company: &payment.Company{ID: companyID, IsActive: true}}, nil)

	if w := post(s, "/api/v1/payment/bank_account", accountRequestBody(companyID), nil); w.Code != http.StatusCreated {
		t.Fatalf("first request: status = %d, body = %s", w.Code, w.Body)
	}

	w := post(s, "/api/v1/payment/bank_account", accountRequestBody(companyID), nil)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	if !strings.Contains(w.Body.String(), "This company already has a bank account.") {
		t.Fatalf("body = %s", w.Body)
	}
}

func TestAddBankAccountUnknownCompany(t *testing.T) {
	s := newTestServer(t, &staticLookup{}, nil)

	w := post(s, "/api/v1/payment/bank_account", accountRequestBody(uuid.New()), nil)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
}

func TestJWTAuthOnPaymentRoutes(t *testing.T) {
	userID := uuid.New()
	s := newTestServer(t, &staticLookup{user: &payment.User{ID: userID, IsActive: true}}, func(cfg *Config) {
		cfg.JWTSecret = "test-secret"
	})

	if w := post(s, "/api/v1/payment/bank_card", cardRequestBody(userID), nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d", w.Code)
	}

	token, err := GenerateToken("test-secret", "billing-service")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	w := post(s, "/api/v1/payment/bank_card", cardRequestBody(userID), map[string]string{
		"Authorization": "Bearer " + token,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("with token: status = %d, body = %s", w.Code, w.Body)
	}

	w = post(s, "/api/v1/payment/bank_card", cardRequestBody(userID), map[string]string{
		"Authorization": "Bearer not-a-token",
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("with bad token: status = %d", w.Code)
	}
}

func TestJWTAuthRejectsUnsignedTokens(t *testing.T) {
	userID := uuid.New()
	s := newTestServer(t, &staticLookup{user: &payment.User{ID: userID, IsActive: true}}, func(cfg *Config) {
		cfg.JWTSecret = "test-secret"
	})

	claims := Claims{ServiceName: "billing-service"}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	w := post(s, "/api/v1/payment/bank_card", cardRequestBody(userID), map[string]string{
		"Authorization": "Bearer " + unsigned,
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("alg=none token: status = %d, body = %s", w.Code, w.Body)
	}
}

func TestClientFilter(t *testing.T) {
	s := newTestServer(t, &staticLookup{}, func(cfg *Config) {
		cfg.AllowedClients = []string{"10.1.2.3"}
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.7:4321"

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("unlisted client: status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.1.2.3:4321"

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("allowed client: status = %d, body = %s", w.Code, w.Body)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &staticLookup{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}
