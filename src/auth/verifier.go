package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenMissing = errors.New("auth: token missing")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// -----------------------------------------------------------------------------
// TokenVerifier checks HS256 tokens carried by the websocket auth message.
// With an empty secret every connection stays anonymous and no token is
// ever rejected.
// -----------------------------------------------------------------------------

type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// -----------------------------------------------------------------------------

// Enabled reports whether tokens are checked at all
func (v *TokenVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// -----------------------------------------------------------------------------

// Verify returns the token subject when the signature and claims are valid
func (v *TokenVerifier) Verify(token string) (subject string, authenticated bool, err error) {
	if !v.Enabled() {
		return "", false, nil
	}
	if token == "" {
		return "", false, ErrTokenMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", false, ErrTokenExpired
		}
		return "", false, ErrTokenInvalid
	}
	if !parsed.Valid {
		return "", false, ErrTokenInvalid
	}

	return claims.Subject, true, nil
}

// -----------------------------------------------------------------------------

// Issue signs a token for subject valid for ttl
func (v *TokenVerifier) Issue(subject string, ttl time.Duration) (string, error) {
	if !v.Enabled() {
		return "", fmt.Errorf("auth: cannot issue tokens without a secret")
	}

	now := v.now()
	claims := jwt.RegisteredClaims{
		Issuer:    v.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}
