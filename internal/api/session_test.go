package api

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/saiyamvora13/vesabooks/internal/config"
)

// encodeSessionToken builds a raw token for a payload, the same way
// Issue does, so Validate can be tested without an HTTP round trip.
func encodeSessionToken(m *SessionManager, payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + m.sign(payload)
}

func newTestSessions() *SessionManager {
	return NewSessionManager(config.ServerConfig{
		SessionSecret: "unit-secret",
		CookieMaxAge:  3600,
	})
}

func TestSessionRoundTrip(t *testing.T) {
	m := newTestSessions()
	token := encodeSessionToken(m, "alice|true|9999999999")

	user, admin, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if user != "alice" || !admin {
		t.Errorf("got (%s, %t), want (alice, true)", user, admin)
	}
}

func TestSessionTamperRejected(t *testing.T) {
	m := newTestSessions()
	token := encodeSessionToken(m, "alice|false|9999999999")

	// Flip the payload without re-signing.
	forged := encodeSessionToken(m, "alice|true|9999999999")
	parts := strings.Split(forged, ".")
	tampered := parts[0] + "." + strings.Split(token, ".")[1]

	if _, _, err := m.Validate(tampered); err == nil {
		t.Fatal("tampered token accepted")
	}
}

func TestSessionExpiryRejected(t *testing.T) {
	m := newTestSessions()
	token := encodeSessionToken(m, "alice|false|1000000000")
	if _, _, err := m.Validate(token); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestSessionWrongSecretRejected(t *testing.T) {
	m := newTestSessions()
	other := NewSessionManager(config.ServerConfig{SessionSecret: "different", CookieMaxAge: 3600})
	token := encodeSessionToken(other, "alice|false|9999999999")
	if _, _, err := m.Validate(token); err == nil {
		t.Fatal("token signed with another secret accepted")
	}
}
