// Package session binds anonymous clients to conversation state through a
// cookie carrying an opaque random identifier.
package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCookieName = "anon_sid"
	DefaultTTL        = 24 * time.Hour

	// deletedValue is written when the cookie is expired on reset.
	deletedValue = "deleted"
)

// Resolver extracts or mints session identifiers.
type Resolver struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	newID      func() string
}

// NewResolver returns a resolver for the named cookie. Empty name and
// non-positive ttl fall back to the defaults.
func NewResolver(cookieName string, ttl time.Duration, secure bool) *Resolver {
	cookieName = strings.TrimSpace(cookieName)
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Resolver{CookieName: cookieName, TTL: ttl, Secure: secure, newID: uuid.NewString}
}

// Resolve returns the identifier carried by the cookie header, or a freshly
// minted one with minted set. It never fails.
func (r *Resolver) Resolve(cookieHeader string) (id string, minted bool) {
	if id, ok := r.Lookup(cookieHeader); ok {
		return id, false
	}
	if r.newID == nil {
		return uuid.NewString(), true
	}
	return r.newID(), true
}

// Lookup returns the identifier carried by the cookie header without minting.
// Only values that parse as a UUID are accepted, in canonical form, so the
// key used for storage is always one the client can echo back.
func (r *Resolver) Lookup(cookieHeader string) (string, bool) {
	return cookieValue(cookieHeader, r.CookieName)
}

// Cookie (re)binds the client to id for the configured TTL.
func (r *Resolver) Cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     r.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(r.TTL.Seconds()),
		HttpOnly: true,
		Secure:   r.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExpiredCookie instructs the client to drop its session cookie.
func (r *Resolver) ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     r.CookieName,
		Value:    deletedValue,
		Path:     "/",
		MaxAge:   -1, // serialised as Max-Age=0
		HttpOnly: true,
		Secure:   r.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func cookieValue(header, name string) (string, bool) {
	for _, pair := range strings.Split(header, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found || strings.TrimSpace(key) != name {
			continue
		}
		if id, ok := canonicalID(value); ok {
			return id, true
		}
	}
	return "", false
}

func canonicalID(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	parsed, err := uuid.Parse(value)
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}
