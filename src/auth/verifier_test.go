package auth

import (
	"errors"
	"testing"
	"time"
)

func TestVerifyDisabledIsAnonymous(t *testing.T) {
	v := NewTokenVerifier("", "")
	subject, ok, err := v.Verify("anything")
	if err != nil || ok || subject != "" {
		t.Fatalf("Verify() = %q, %v, %v", subject, ok, err)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	v := NewTokenVerifier("s3cret", "onion-watch")
	token, err := v.Issue("operator", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	subject, ok, err := v.Verify(token)
	if err != nil || !ok || subject != "operator" {
		t.Fatalf("Verify() = %q, %v, %v", subject, ok, err)
	}
}

func TestVerifyRejects(t *testing.T) {
	good := NewTokenVerifier("s3cret", "onion-watch")
	token, err := good.Issue("operator", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	expired := NewTokenVerifier("s3cret", "onion-watch")
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.Issue("operator", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		verifier *TokenVerifier
		token    string
		want     error
	}{
		{"missing", good, "", ErrTokenMissing},
		{"garbage", good, "not-a-jwt", ErrTokenInvalid},
		{"wrong secret", NewTokenVerifier("other", "onion-watch"), token, ErrTokenInvalid},
		{"wrong issuer", NewTokenVerifier("s3cret", "someone-else"), token, ErrTokenInvalid},
		{"expired", good, old, ErrTokenExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok, err := tc.verifier.Verify(tc.token)
			if ok || !errors.Is(err, tc.want) {
				t.Fatalf("Verify() = %v, %v; want %v", ok, err, tc.want)
			}
		})
	}
}

func TestIssueWithoutSecret(t *testing.T) {
	if _, err := NewTokenVerifier("", "").Issue("x", time.Minute); err == nil {
		t.Fatal("expected error")
	}
}
