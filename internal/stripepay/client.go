// Package stripepay is a minimal Stripe API client covering what checkout
// needs: payment intents and refunds, plus webhook signature verification.
package stripepay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/pkg/httpretry"
)

// Client talks to the Stripe REST API.
type Client struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    httpretry.HTTPDoer
}

// NewClient creates a Stripe client from config.
func NewClient(cfg config.StripeConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		secretKey:     cfg.SecretKey,
		webhookSecret: cfg.WebhookSecret,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// PaymentIntent is the subset of Stripe's payment intent object we read.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// apiError is Stripe's error envelope.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// doForm posts a form-encoded request, the encoding the Stripe API speaks.
func (c *Client) doForm(ctx context.Context, method, path string, form url.Values) ([]byte, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var e apiError
		if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
			return nil, fmt.Errorf("stripe error (status %d, %s): %s", resp.StatusCode, e.Error.Code, e.Error.Message)
		}
		return nil, fmt.Errorf("stripe error (status %d): %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// CreateIntent opens a payment intent and returns its ID and client secret.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (string, string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	data, err := c.doForm(ctx, http.MethodPost, "/payment_intents", form)
	if err != nil {
		return "", "", err
	}
	var pi PaymentIntent
	if err := json.Unmarshal(data, &pi); err != nil {
		return "", "", fmt.Errorf("parsing payment intent: %w", err)
	}
	return pi.ID, pi.ClientSecret, nil
}

// GetIntent fetches the current state of a payment intent.
func (c *Client) GetIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	data, err := c.doForm(ctx, http.MethodGet, "/payment_intents/"+id, nil)
	if err != nil {
		return nil, err
	}
	var pi PaymentIntent
	if err := json.Unmarshal(data, &pi); err != nil {
		return nil, fmt.Errorf("parsing payment intent: %w", err)
	}
	return &pi, nil
}

// IntentStatus returns the intent's current status string ("succeeded",
// "requires_payment_method", ...).
func (c *Client) IntentStatus(ctx context.Context, id string) (string, error) {
	pi, err := c.GetIntent(ctx, id)
	if err != nil {
		return "", err
	}
	return pi.Status, nil
}

// CancelIntent cancels a payment intent that has not been captured.
// Stripe rejects cancellation of settled intents; refund those instead.
func (c *Client) CancelIntent(ctx context.Context, id string) error {
	_, err := c.doForm(ctx, http.MethodPost, "/payment_intents/"+id+"/cancel", nil)
	return err
}

// Refund refunds the full amount of a payment intent.
func (c *Client) Refund(ctx context.Context, paymentIntentID string) error {
	form := url.Values{}
	form.Set("payment_intent", paymentIntentID)
	_, err := c.doForm(ctx, http.MethodPost, "/refunds", form)
	return err
}

// Event is an inbound webhook event.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object PaymentIntent `json:"object"`
	} `json:"data"`
}

// signatureTolerance bounds how stale a webhook timestamp may be.
const signatureTolerance = 5 * time.Minute

// VerifyWebhook checks the Stripe-Signature header (t=...,v1=... format)
// against the payload and returns the parsed event.
func (c *Client) VerifyWebhook(payload []byte, sigHeader string) (*Event, error) {
	var ts string
	var sigs []string
	for _, part := range strings.Split(sigHeader, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return nil, fmt.Errorf("malformed signature header")
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed signature timestamp")
	}
	if d := time.Since(time.Unix(unix, 0)); d > signatureTolerance || d < -signatureTolerance {
		return nil, fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	valid := false
	for _, s := range sigs {
		if hmac.Equal([]byte(expected), []byte(s)) {
			valid = true
		}
	}
	if !valid {
		return nil, fmt.Errorf("signature mismatch")
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("parsing event: %w", err)
	}
	return &ev, nil
}
