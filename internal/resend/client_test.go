package resend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/saiyamvora13/vesabooks/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.ResendConfig{
		APIKey:         "re_test_123",
		BaseURL:        srv.URL,
		FromAddress:    "orders@vesabooks.example",
		TimeoutSeconds: 5,
		Enabled:        true,
	})
}

func TestSend_PostsEmail(t *testing.T) {
	var got sendRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer re_test_123" {
			t.Errorf("bad auth header %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"id":"msg_001"}`)
	})

	id, err := client.Send(context.Background(), "pat@example.com", "Hello", "<p>Hi</p>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "msg_001" {
		t.Errorf("expected msg_001, got %q", id)
	}
	if got.From != "orders@vesabooks.example" || len(got.To) != 1 || got.To[0] != "pat@example.com" {
		t.Errorf("bad envelope: %+v", got)
	}
}

func TestSend_DisabledClientSkips(t *testing.T) {
	client := NewClient(config.ResendConfig{Enabled: false})

	id, err := client.Send(context.Background(), "pat@example.com", "Hello", "<p>Hi</p>")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty message ID when disabled, got %q", id)
	}
}

func TestSendOrderConfirmation_IncludesReferenceAndTotal(t *testing.T) {
	var got sendRequest
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"id":"msg_002"}`)
	})

	err := client.SendOrderConfirmation(context.Background(), "pat@example.com", "ORDER-AAAA1111", 4498, "usd")
	if err != nil {
		t.Fatalf("SendOrderConfirmation: %v", err)
	}
	if !strings.Contains(got.Subject, "ORDER-AAAA1111") {
		t.Errorf("subject missing reference: %q", got.Subject)
	}
	if !strings.Contains(got.HTML, "$44.98") {
		t.Errorf("body missing total: %q", got.HTML)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		cents    int64
		currency string
		want     string
	}{
		{999, "usd", "$9.99"},
		{4400, "eur", "€44.00"},
		{105, "gbp", "£1.05"},
		{50, "usd", "$0.50"},
	}
	for _, tt := range tests {
		if got := formatAmount(tt.cents, tt.currency); got != tt.want {
			t.Errorf("formatAmount(%d, %s) = %q, want %q", tt.cents, tt.currency, got, tt.want)
		}
	}
}
