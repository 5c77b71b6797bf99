package auth

import (
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := NewSessionToken("secret", "issuer", time.Minute, "session-1")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	claims, err := ParseSessionToken("secret", "issuer", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if claims.SessionID != "session-1" || claims.Subject != "session-1" {
		t.Fatalf("unexpected claims")
	}
}

func TestSessionTokenRejected(t *testing.T) {
	token, err := NewSessionToken("secret", "issuer", time.Minute, "session-1")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseSessionToken("other", "issuer", token); err == nil {
		t.Fatalf("expected wrong secret to fail")
	}
	if _, err := ParseSessionToken("secret", "other-issuer", token); err == nil {
		t.Fatalf("expected wrong issuer to fail")
	}

	expired, err := NewSessionToken("secret", "issuer", -time.Minute, "session-1")
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseSessionToken("secret", "issuer", expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}
