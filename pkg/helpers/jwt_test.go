package helpers

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", 0)
	tok, id, exp, err := m.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.IsZero() {
		t.Fatalf("expected no expiry, got %s", exp)
	}
	claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 || claims.ID != id {
		t.Fatalf("expected uid 42 jti %s, got uid %d jti %s", id, claims.UserID, claims.ID)
	}
}

func TestTokensAreDistinctPerIssue(t *testing.T) {
	m := NewTokenManager("secret", 0)
	a, _, _, _ := m.Issue(1)
	b, _, _, _ := m.Issue(1)
	if a == b {
		t.Fatalf("expected distinct tokens")
	}
}

func TestParseRejectsForeignSignature(t *testing.T) {
	tok, _, _, err := NewTokenManager("one", 0).Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokenManager("two", 0).Parse(tok); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewTokenManager("secret", time.Nanosecond)
	tok, _, _, err := m.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := m.Parse(tok); err == nil {
		t.Fatalf("expected expiry error")
	}
}
