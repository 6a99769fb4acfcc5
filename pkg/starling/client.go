package starling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrAccountNotFound is returned when the accounts listing holds no usable account uid.
// It is distinct from transport and HTTP errors.
var ErrAccountNotFound = errors.New("account uid not found")

// timestampLayout is the timestamp format the feed endpoints accept.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// ClientConfig represents the configuration for the API client.
type ClientConfig struct {
	APIURL      string
	AccessToken string
	Timeout     time.Duration // Default: 30 seconds
}

// Client is a Starling public API client. Requests are not retried.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
}

// APIError is a non-200 response.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("starling API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("starling API error (status %d): %s", e.StatusCode, e.Body)
}

// NewClient creates a new API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(config.APIURL, "/"),
		accessToken: config.AccessToken,
	}
}

// PrimaryAccount returns the first account of the listing.
// It returns ErrAccountNotFound, wrapped with the offending payload,
// when the listing is empty or the account carries no uid.
func (c *Client) PrimaryAccount(ctx context.Context) (Account, error) {
	body, err := c.get(ctx, "/api/v2/accounts", nil)
	if err != nil {
		return Account{}, err
	}

	var resp AccountsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Account{}, fmt.Errorf("failed to decode accounts: %w", err)
	}
	if len(resp.Accounts) == 0 || resp.Accounts[0].AccountUID == "" {
		return Account{}, fmt.Errorf("%w: payload %s", ErrAccountNotFound, truncate(body, 512))
	}

	slog.Debug("Resolved account", "account_uid", resp.Accounts[0].AccountUID,
		"default_category", resp.Accounts[0].DefaultCategory)
	return resp.Accounts[0], nil
}

// Balance fetches the balance of an account.
func (c *Client) Balance(ctx context.Context, accountUID string) (Balance, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/v2/accounts/%s/balance", url.PathEscape(accountUID)), nil)
	if err != nil {
		return Balance{}, err
	}

	var bal Balance
	if err := json.Unmarshal(body, &bal); err != nil {
		return Balance{}, fmt.Errorf("failed to decode balance: %w", err)
	}
	return bal, nil
}

// SavingsGoals lists the savings goals of an account.
// Accounts without savings goals yield an empty slice.
func (c *Client) SavingsGoals(ctx context.Context, accountUID string) ([]SavingsGoal, error) {
	body, err := c.get(ctx, fmt.Sprintf("/api/v2/account/%s/spaces", url.PathEscape(accountUID)), nil)
	if err != nil {
		return nil, err
	}

	var resp SpacesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode spaces: %w", err)
	}
	return resp.SavingsGoals, nil
}

// FeedItemsBetween lists feed items of a category with a transaction time in [from, to).
func (c *Client) FeedItemsBetween(ctx context.Context, accountUID, categoryUID string, from, to time.Time) ([]FeedItem, error) {
	path := fmt.Sprintf("/api/v2/feed/account/%s/category/%s/transactions-between",
		url.PathEscape(accountUID), url.PathEscape(categoryUID))

	params := url.Values{}
	params.Set("minTransactionTimestamp", from.UTC().Format(timestampLayout))
	params.Set("maxTransactionTimestamp", to.UTC().Format(timestampLayout))

	return c.feedItems(ctx, path, params)
}

// FeedItemsSince lists feed items of a category changed since a point in time.
func (c *Client) FeedItemsSince(ctx context.Context, accountUID, categoryUID string, since time.Time) ([]FeedItem, error) {
	path := fmt.Sprintf("/api/v2/feed/account/%s/category/%s",
		url.PathEscape(accountUID), url.PathEscape(categoryUID))

	params := url.Values{}
	params.Set("changesSince", since.UTC().Format(timestampLayout))

	return c.feedItems(ctx, path, params)
}

func (c *Client) feedItems(ctx context.Context, path string, params url.Values) ([]FeedItem, error) {
	body, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}

	var resp FeedItemsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode feed items: %w", err)
	}
	return resp.FeedItems, nil
}

// get performs an authenticated GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp.StatusCode, body)
	}

	slog.Debug("API response", "path", path, "body", truncate(body, 4096))
	return body, nil
}

// parseError parses an error response.
func parseError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Body: truncate(body, 512)}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		apiErr.Message = errResp.Error
		if errResp.ErrorDescription != "" {
			apiErr.Message += " - " + errResp.ErrorDescription
		}
	}
	return apiErr
}

func truncate(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
