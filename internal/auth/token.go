package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL applies when a token is issued without an explicit lifetime.
const DefaultTokenTTL = 15 * time.Minute

// ErrInvalidToken covers every validation failure: bad signature, malformed input or expiry.
var ErrInvalidToken = errors.New("invalid token")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a manager signing with an HMAC algorithm (HS256, HS384 or HS512).
func NewTokenManager(secret, algorithm string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), method: method, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime used by GenerateToken.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// GenerateToken signs a token for subject using the configured lifetime.
func (tm *TokenManager) GenerateToken(subject string) (string, time.Time, error) {
	return tm.Issue(subject, tm.ttl)
}

// Issue signs a token for subject that expires ttl from now.
// JWT timestamps have one-second resolution, so the issue time is truncated to the
// second and the returned expiry always equals iat+ttl as encoded in the token.
func (tm *TokenManager) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := tm.now().Truncate(time.Second)
	expiresAt := jwt.NewNumericDate(now.Add(ttl))
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: expiresAt,
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(tm.method, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt.Time, nil
}

// Validate verifies signature and expiry and returns the token subject.
func (tm *TokenManager) Validate(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
