// Package resend sends transactional email through the Resend HTTP API.
package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/pkg/httpretry"
	"github.com/saiyamvora13/vesabooks/internal/pkg/logger"
)

// Client talks to the Resend REST API.
type Client struct {
	baseURL    string
	apiKey     string
	from       string
	enabled    bool
	httpClient httpretry.HTTPDoer
}

// NewClient creates a Resend client from config. When the provider is
// disabled, sends are logged and dropped so local development needs no key.
func NewClient(cfg config.ResendConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		from:    cfg.FromAddress,
		enabled: cfg.Enabled,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers one email. Returns the provider message ID.
func (c *Client) Send(ctx context.Context, to, subject, html string) (string, error) {
	if !c.enabled {
		logger.Info("email send skipped (provider disabled)", "email", to, "subject", subject)
		return "", nil
	}

	body, err := json.Marshal(sendRequest{From: c.from, To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("resend error (status %d): %s", resp.StatusCode, string(data))
	}

	var sr sendResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	return sr.ID, nil
}

// SendOrderConfirmation sends the post-payment receipt email.
func (c *Client) SendOrderConfirmation(ctx context.Context, to, orderRef string, totalCents int64, currency string) error {
	subject := fmt.Sprintf("Your storybook order %s is confirmed", orderRef)
	html := fmt.Sprintf(
		`<h1>Thank you for your order!</h1>
<p>Order reference: <strong>%s</strong></p>
<p>Total charged: <strong>%s</strong></p>
<p>Digital books are available in your library now. Printed books will ship
within a few business days and you will get tracking details by email.</p>`,
		orderRef, formatAmount(totalCents, currency))

	_, err := c.Send(ctx, to, subject, html)
	return err
}

// SendShippingNotice sends tracking details once the printer ships.
func (c *Client) SendShippingNotice(ctx context.Context, to, orderRef, carrier, trackingURL string) error {
	subject := fmt.Sprintf("Your storybook order %s has shipped", orderRef)
	html := fmt.Sprintf(
		`<h1>Your book is on its way!</h1>
<p>Order reference: <strong>%s</strong></p>
<p>Carrier: %s</p>
<p><a href="%s">Track your package</a></p>`,
		orderRef, carrier, trackingURL)

	_, err := c.Send(ctx, to, subject, html)
	return err
}

func formatAmount(cents int64, currency string) string {
	symbol := "$"
	switch currency {
	case "eur":
		symbol = "€"
	case "gbp":
		symbol = "£"
	}
	return fmt.Sprintf("%s%d.%02d", symbol, cents/100, cents%100)
}
