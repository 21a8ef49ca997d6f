package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/pkg/httputil"
)

type contextKey string

const (
	ctxUserID  contextKey = "user_id"
	ctxIsAdmin contextKey = "is_admin"
)

const defaultCookieName = "vb_session"

// SessionManager issues and validates signed session cookies. Identity
// itself comes from an upstream provider; this layer only carries the
// authenticated user ID across requests.
type SessionManager struct {
	secret     []byte
	cookieName string
	maxAge     time.Duration
}

// NewSessionManager creates a session manager from server config.
func NewSessionManager(cfg config.ServerConfig) *SessionManager {
	name := cfg.CookieName
	if name == "" {
		name = defaultCookieName
	}
	maxAge := time.Duration(cfg.CookieMaxAge) * time.Second
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	return &SessionManager{
		secret:     []byte(cfg.SessionSecret),
		cookieName: name,
		maxAge:     maxAge,
	}
}

// token format: base64url(userID|admin|expiryUnix).hexhmac
func (m *SessionManager) sign(payload string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue writes a signed session cookie for the given user.
func (m *SessionManager) Issue(w http.ResponseWriter, userID string, admin bool) {
	expiry := time.Now().Add(m.maxAge).Unix()
	payload := fmt.Sprintf("%s|%t|%d", userID, admin, expiry)
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded + "." + m.sign(payload),
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Validate parses and verifies a session cookie value.
// Returns the user ID and admin flag.
func (m *SessionManager) Validate(value string) (string, bool, error) {
	encoded, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", false, fmt.Errorf("malformed session token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false, fmt.Errorf("malformed session payload")
	}
	payload := string(raw)
	if !hmac.Equal([]byte(m.sign(payload)), []byte(sig)) {
		return "", false, fmt.Errorf("session signature mismatch")
	}
	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return "", false, fmt.Errorf("malformed session payload")
	}
	expiry, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || time.Now().Unix() > expiry {
		return "", false, fmt.Errorf("session expired")
	}
	return parts[0], parts[1] == "true", nil
}

// Middleware authenticates requests via the session cookie and stores
// the user identity in the request context. In dev mode an X-User-ID
// header is accepted instead, so the API can be exercised without an
// identity provider.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	devMode := os.Getenv("DEV_MODE") == "true" || os.Getenv("ENVIRONMENT") == "development"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if devMode {
			if uid := r.Header.Get("X-User-ID"); uid != "" {
				admin := r.Header.Get("X-Admin") == "true"
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), uid, admin)))
				return
			}
		}
		c, err := r.Cookie(m.cookieName)
		if err != nil {
			httputil.Unauthorized(w, "unauthorized")
			return
		}
		userID, admin, err := m.Validate(c.Value)
		if err != nil {
			httputil.Unauthorized(w, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID, admin)))
	})
}

// RequireAdmin gates a route group to admin sessions.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdmin(r.Context()) {
			httputil.Forbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withIdentity(ctx context.Context, userID string, admin bool) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxIsAdmin, admin)
}

func userID(ctx context.Context) string {
	id, _ := ctx.Value(ctxUserID).(string)
	return id
}

func isAdmin(ctx context.Context) bool {
	admin, _ := ctx.Value(ctxIsAdmin).(bool)
	return admin
}
