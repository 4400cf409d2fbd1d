// Package upstream holds clients for the surrounding platform: the
// user/company service and the bank payment gateway.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/payment"
)

const defaultRequestTimeout = 10 * time.Second

// AccountsClient resolves users and companies over the platform's HTTP API.
type AccountsClient struct {
	userBaseURL    string
	companyBaseURL string
	http           *http.Client
}

var _ payment.AccountLookup = (*AccountsClient)(nil)

// NewAccountsClient builds a client for the given service base URLs, without
// trailing slashes. httpClient may be nil for a default with a timeout.
func NewAccountsClient(userBaseURL, companyBaseURL string, httpClient *http.Client) *AccountsClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &AccountsClient{
		userBaseURL:    userBaseURL,
		companyBaseURL: companyBaseURL,
		http:           httpClient,
	}
}

// UserByID fetches a user record. A 404 surfaces as a not-found error with
// the id in the message.
func (c *AccountsClient) UserByID(ctx context.Context, id uuid.UUID) (*payment.User, error) {
	var user payment.User

	url := fmt.Sprintf("%s/api/v1/users/%s", c.userBaseURL, id)
	if err := c.getJSON(ctx, url, &user, fmt.Sprintf("User with ID: %s not found.", id)); err != nil {
		return nil, err
	}

	return &user, nil
}

// CompanyByID fetches a company record. A 404 surfaces as a not-found error.
func (c *AccountsClient) CompanyByID(ctx context.Context, id uuid.UUID) (*payment.Company, error) {
	var company payment.Company

	url := fmt.Sprintf("%s/api/v1/companies/%s", c.companyBaseURL, id)
	if err := c.getJSON(ctx, url, &company, fmt.Sprintf("Company with ID: %s not found.", id)); err != nil {
		return nil, err
	}

	return &company, nil
}

func (c *AccountsClient) getJSON(ctx context.Context, url string, out any, notFound string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return perr.NotFound(notFound)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("call %s: unexpected status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}

	return nil
}
