package etsy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/justpow98/j3d-backend/internal/config"
)

// Client is a thin wrapper over the Etsy API v3 endpoints the backend needs.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	httpClient  *http.Client
}

func NewClient(cfg config.EtsyConfig, accessToken string) *Client {
	return &Client{
		baseURL:     cfg.APIBaseURL,
		apiKey:      cfg.ClientID,
		accessToken: accessToken,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

type Money struct {
	Amount       int64  `json:"amount"`
	Divisor      int64  `json:"divisor"`
	CurrencyCode string `json:"currency_code"`
}

// Dollars converts the minor-unit amount to major units. Etsy reports cents.
func (m Money) Dollars() float64 {
	divisor := m.Divisor
	if divisor <= 0 {
		divisor = 100
	}
	return float64(m.Amount) / float64(divisor)
}

type Receipt struct {
	ReceiptID        int64  `json:"receipt_id"`
	BuyerEmail       string `json:"buyer_email"`
	Name             string `json:"name"`
	Grandtotal       Money  `json:"grandtotal"`
	WasShipped       bool   `json:"was_shipped"`
	CreateTimestamp  int64  `json:"create_timestamp"`
	UpdateTimestamp  int64  `json:"update_timestamp"`
	ShippedTimestamp int64  `json:"shipped_timestamp"`
}

type Transaction struct {
	TransactionID int64  `json:"transaction_id"`
	ListingID     int64  `json:"listing_id"`
	Title         string `json:"title"`
	Quantity      int    `json:"quantity"`
	Price         Money  `json:"price"`
}

type receiptsPage struct {
	Count   int       `json:"count"`
	Results []Receipt `json:"results"`
}

type transactionsPage struct {
	Count   int           `json:"count"`
	Results []Transaction `json:"results"`
}

type ReceiptParams struct {
	Limit      int
	Offset     int
	MinCreated int64
	MaxCreated int64
	WasPaid    bool
}

func (c *Client) GetShopReceipts(ctx context.Context, shopID string, params ReceiptParams) (int, []Receipt, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(params.Limit))
	q.Set("offset", strconv.Itoa(params.Offset))
	if params.MinCreated > 0 {
		q.Set("min_created", strconv.FormatInt(params.MinCreated, 10))
	}
	if params.MaxCreated > 0 {
		q.Set("max_created", strconv.FormatInt(params.MaxCreated, 10))
	}
	if params.WasPaid {
		q.Set("was_paid", "true")
	}

	var page receiptsPage
	endpoint := fmt.Sprintf("/application/shops/%s/receipts?%s", shopID, q.Encode())
	if err := c.get(ctx, endpoint, &page); err != nil {
		return 0, nil, err
	}
	return page.Count, page.Results, nil
}

func (c *Client) GetReceiptTransactions(ctx context.Context, shopID string, receiptID int64) ([]Transaction, error) {
	var page transactionsPage
	endpoint := fmt.Sprintf("/application/shops/%s/receipts/%d/transactions", shopID, receiptID)
	if err := c.get(ctx, endpoint, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}

type userInfo struct {
	UserID int64 `json:"user_id"`
	ShopID int64 `json:"shop_id"`
}

// GetMe returns the authenticated Etsy user and their shop id.
func (c *Client) GetMe(ctx context.Context) (string, string, error) {
	var info userInfo
	if err := c.get(ctx, "/application/users/me", &info); err != nil {
		return "", "", err
	}
	shopID := ""
	if info.ShopID > 0 {
		shopID = strconv.FormatInt(info.ShopID, 10)
	}
	return strconv.FormatInt(info.UserID, 10), shopID, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("x-api-key", c.apiKey)

	// NOTE: never log the request headers, they carry the bearer token.
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("etsy api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("etsy api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode etsy response: %w", err)
	}
	return nil
}
