// Package prodigi submits print orders to the Prodigi fulfillment API and
// parses its callback events.
package prodigi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/pkg/httpretry"
)

// SKUs for the supported book formats.
const (
	sku6x9 = "BOOK-FC-S-6X9"
	sku8x8 = "BOOK-FC-S-8X8"
)

// SKUForSize maps a trim size to the partner's product SKU.
func SKUForSize(size domain.BookSize) string {
	if size == domain.BookSize8x8 {
		return sku8x8
	}
	return sku6x9
}

// Client talks to the Prodigi REST API.
type Client struct {
	baseURL       string
	apiKey        string
	webhookSecret string
	sandbox       bool
	httpClient    httpretry.HTTPDoer
}

// NewClient creates a Prodigi client from config.
func NewClient(cfg config.ProdigiConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		sandbox:       cfg.SandboxMode,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// Recipient is the shipping destination.
type Recipient struct {
	Name    string  `json:"name"`
	Address Address `json:"address"`
}

// Address is a postal address in the partner's shape.
type Address struct {
	Line1           string `json:"line1"`
	Line2           string `json:"line2,omitempty"`
	TownOrCity      string `json:"townOrCity"`
	StateOrCounty   string `json:"stateOrCounty,omitempty"`
	PostalOrZipCode string `json:"postalOrZipCode"`
	CountryCode     string `json:"countryCode"`
}

// Item is one product line in an order.
type Item struct {
	SKU        string            `json:"sku"`
	Copies     int               `json:"copies"`
	Sizing     string            `json:"sizing"`
	Assets     []Asset           `json:"assets"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Asset points the printer at the print-ready PDF.
type Asset struct {
	PrintArea string `json:"printArea"`
	URL       string `json:"url"`
}

// OrderRequest creates one fulfillment order.
type OrderRequest struct {
	MerchantReference string    `json:"merchantReference"`
	ShippingMethod    string    `json:"shippingMethod"`
	Recipient         Recipient `json:"recipient"`
	Items             []Item    `json:"items"`
}

// Order is the subset of the partner's order object we read back.
type Order struct {
	ID     string `json:"id"`
	Status struct {
		Stage string `json:"stage"`
	} `json:"status"`
}

type orderResponse struct {
	Outcome string `json:"outcome"`
	Order   Order  `json:"order"`
}

// NewOrderRequest builds an order request from a print order and the URL of
// its print-ready PDF.
func NewOrderRequest(o *domain.PrintOrder, pdfURL string) OrderRequest {
	return OrderRequest{
		MerchantReference: o.OrderReference,
		ShippingMethod:    "Standard",
		Recipient: Recipient{
			Name: o.ShippingName,
			Address: Address{
				Line1:           o.ShippingLine1,
				Line2:           o.ShippingLine2,
				TownOrCity:      o.ShippingCity,
				StateOrCounty:   o.ShippingState,
				PostalOrZipCode: o.ShippingZip,
				CountryCode:     o.ShippingCountry,
			},
		},
		Items: []Item{{
			SKU:    SKUForSize(o.BookSize),
			Copies: o.Quantity,
			Sizing: "fillPrintArea",
			Assets: []Asset{{PrintArea: "default", URL: pdfURL}},
		}},
	}
}

// CreateOrder submits an order and returns the partner's order ID.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding order: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("prodigi error (status %d): %s", resp.StatusCode, string(data))
	}

	var or orderResponse
	if err := json.Unmarshal(data, &or); err != nil {
		return "", fmt.Errorf("parsing order response: %w", err)
	}
	if or.Outcome != "Created" && or.Outcome != "CreatedWithIssues" {
		return "", fmt.Errorf("order not created: outcome %q", or.Outcome)
	}
	return or.Order.ID, nil
}

// GetOrder fetches the current fulfillment state of an order.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prodigi error (status %d): %s", resp.StatusCode, string(data))
	}

	var or orderResponse
	if err := json.Unmarshal(data, &or); err != nil {
		return nil, fmt.Errorf("parsing order: %w", err)
	}
	return &or.Order, nil
}

// Callback event stages we act on.
const (
	StageShipmentSent = "Shipped"
	StageComplete     = "Complete"
	StageCancelled    = "Cancelled"
)

// CallbackEvent is an inbound fulfillment status callback.
type CallbackEvent struct {
	OrderID           string `json:"orderId"`
	MerchantReference string `json:"merchantReference"`
	Stage             string `json:"stage"`
	Shipment          struct {
		Carrier        string `json:"carrier"`
		TrackingNumber string `json:"trackingNumber"`
		TrackingURL    string `json:"trackingUrl"`
	} `json:"shipment"`
}

// VerifyCallback checks the HMAC signature header on a callback payload and
// returns the parsed event.
func (c *Client) VerifyCallback(payload []byte, signature string) (*CallbackEvent, error) {
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("callback signature mismatch")
	}

	var ev CallbackEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("parsing callback: %w", err)
	}
	return &ev, nil
}
