package session

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

const (
	sidA = "6f1c2b1e-9c3d-4a55-8f3e-2d7f0b9a1c44"
	sidB = "0b7e4a2d-3f61-4c8e-9d12-5a6b7c8d9e0f"
)

func TestResolveExistingCookie(t *testing.T) {
	r := NewResolver("", 0, true)

	cases := []struct {
		name   string
		header string
		want   string
	}{
		{name: "single", header: "anon_sid=" + sidA, want: sidA},
		{name: "among others", header: "theme=dark; anon_sid=" + sidA + " ;lang=en", want: sidA},
		{name: "first valid wins", header: "anon_sid=; anon_sid=nope; anon_sid=" + sidB, want: sidB},
		{name: "canonical form", header: "anon_sid=" + strings.ToUpper(sidA), want: sidA},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, minted := r.Resolve(tc.header)
			if minted {
				t.Fatalf("expected existing id to be reused")
			}
			if id != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, id)
			}
		})
	}
}

func TestResolveMintsWhenAbsent(t *testing.T) {
	r := NewResolver(DefaultCookieName, DefaultTTL, true)

	for _, header := range []string{"", "theme=dark", "anon_sid=", "xanon_sid=" + sidA, "anon_sid"} {
		id, minted := r.Resolve(header)
		if !minted {
			t.Fatalf("header %q: expected a new id", header)
		}
		if id == "" {
			t.Fatalf("header %q: expected non-empty id", header)
		}
	}

	first, _ := r.Resolve("")
	second, _ := r.Resolve("")
	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}
}

func TestResolveReplacesMalformedValue(t *testing.T) {
	r := NewResolver(DefaultCookieName, DefaultTTL, true)

	for _, value := range []string{`ab"c\d`, "abc", "a=b", sidA + "x", "../../etc"} {
		header := "anon_sid=" + value
		id, minted := r.Resolve(header)
		if !minted {
			t.Fatalf("value %q: expected a fresh id, got %q reused", value, id)
		}
		if id == value {
			t.Fatalf("value %q: expected it to be replaced", value)
		}
		if _, ok := r.Lookup(header); ok {
			t.Fatalf("value %q: lookup should reject it", value)
		}

		// The minted id survives a trip through Set-Cookie unchanged.
		req, _ := http.NewRequest(http.MethodPost, "/api/chat", nil)
		req.AddCookie(r.Cookie(id))
		if echoed, ok := r.Lookup(req.Header.Get("Cookie")); !ok || echoed != id {
			t.Fatalf("value %q: expected %q echoed, got %q", value, id, echoed)
		}
	}
}

func TestLookupNeverMints(t *testing.T) {
	r := NewResolver(DefaultCookieName, DefaultTTL, true)
	if id, ok := r.Lookup(""); ok || id != "" {
		t.Fatalf("expected no id, got %q", id)
	}
	if id, ok := r.Lookup("anon_sid=" + sidB); !ok || id != sidB {
		t.Fatalf("expected %s, got %q", sidB, id)
	}
}

func TestCookieAttributes(t *testing.T) {
	r := NewResolver(DefaultCookieName, 24*time.Hour, true)

	header := r.Cookie("token-1").String()
	for _, part := range []string{"anon_sid=token-1", "Path=/", "Max-Age=86400", "HttpOnly", "Secure", "SameSite=Strict"} {
		if !strings.Contains(header, part) {
			t.Fatalf("expected %q in %q", part, header)
		}
	}

	expired := r.ExpiredCookie().String()
	for _, part := range []string{"anon_sid=deleted", "Max-Age=0", "HttpOnly", "SameSite=Strict"} {
		if !strings.Contains(expired, part) {
			t.Fatalf("expected %q in %q", part, expired)
		}
	}
}

func TestCookieRoundTripsThroughRequest(t *testing.T) {
	r := NewResolver(DefaultCookieName, DefaultTTL, false)
	req, _ := http.NewRequest(http.MethodPost, "/api/chat", nil)
	req.AddCookie(r.Cookie(sidA))

	id, minted := r.Resolve(req.Header.Get("Cookie"))
	if minted || id != sidA {
		t.Fatalf("expected %s reused, got %q (minted=%v)", sidA, id, minted)
	}
}
