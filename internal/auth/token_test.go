package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func newTestManager(t *testing.T, now *time.Time) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager("secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	tm.now = func() time.Time { return *now }
	return tm
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestManager(t, &now)

	token, exp, err := tm.GenerateToken("a@x.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !exp.Equal(now.Add(30 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", exp)
	}
	subject, err := tm.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if subject != "a@x.com" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestTokenExpiryBoundary(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := issued
	tm := newTestManager(t, &now)
	ttl := 10 * time.Minute

	token, _, err := tm.Issue("a@x.com", ttl)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	now = issued.Add(ttl - time.Second)
	if _, err := tm.Validate(token); err != nil {
		t.Fatalf("expected valid just before expiry: %v", err)
	}

	now = issued.Add(ttl)
	if _, err := tm.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid at expiry, got %v", err)
	}

	now = issued.Add(ttl + time.Second)
	if _, err := tm.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid after expiry, got %v", err)
	}
}

func TestTokenExpiryWithSubSecondClock(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 600_000_000, time.UTC)
	now := issued
	tm := newTestManager(t, &now)
	ttl := 10 * time.Minute

	token, exp, err := tm.Issue("a@x.com", ttl)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	wantExp := issued.Truncate(time.Second).Add(ttl)
	if !exp.Equal(wantExp) {
		t.Fatalf("expected expiry %s, got %s", wantExp, exp)
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("parse claims: %v", err)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != ttl {
		t.Fatalf("expected exp-iat == %s, got %s", ttl, got)
	}
	if !claims.ExpiresAt.Time.Equal(exp) {
		t.Fatalf("returned expiry %s differs from token exp %s", exp, claims.ExpiresAt.Time)
	}

	now = wantExp.Add(-100 * time.Millisecond)
	if _, err := tm.Validate(token); err != nil {
		t.Fatalf("expected valid just before reported expiry: %v", err)
	}
	now = wantExp
	if _, err := tm.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid at reported expiry, got %v", err)
	}
}

func TestIssueDefaultTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestManager(t, &now)

	_, exp, err := tm.Issue("a@x.com", 0)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(DefaultTokenTTL)) {
		t.Fatalf("expected default ttl, got expiry %s", exp)
	}
}

func TestValidateRejectsTampering(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tm := newTestManager(t, &now)
	token, _, err := tm.GenerateToken("a@x.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other, err := NewTokenManager("other-secret", "HS256", time.Minute)
	if err != nil {
		t.Fatalf("other manager: %v", err)
	}
	other.now = tm.now

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	cases := map[string]func() (string, error){
		"wrong secret": func() (string, error) { return other.Validate(token) },
		"tampered":     func() (string, error) { return tm.Validate(tampered) },
		"garbage":      func() (string, error) { return tm.Validate("not.a.token") },
		"empty":        func() (string, error) { return tm.Validate("") },
	}
	for name, fn := range cases {
		if _, err := fn(); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestValidateRejectsOtherAlgorithm(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	hs512, err := NewTokenManager("secret", "HS512", time.Minute)
	if err != nil {
		t.Fatalf("hs512 manager: %v", err)
	}
	hs512.now = func() time.Time { return now }
	token, _, err := hs512.GenerateToken("a@x.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	hs256 := newTestManager(t, &now)
	if _, err := hs256.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected algorithm mismatch to be rejected, got %v", err)
	}
}

func TestNewTokenManagerValidation(t *testing.T) {
	if _, err := NewTokenManager("", "HS256", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenManager("secret", "RS256", time.Minute); err == nil {
		t.Fatal("expected error for non-HMAC algorithm")
	}
	if _, err := NewTokenManager("secret", "none", time.Minute); err == nil {
		t.Fatal("expected error for none algorithm")
	}
	tm, err := NewTokenManager("secret", "HS384", 0)
	if err != nil {
		t.Fatalf("hs384: %v", err)
	}
	if tm.TTL() != DefaultTokenTTL {
		t.Fatalf("expected default ttl, got %s", tm.TTL())
	}
}
