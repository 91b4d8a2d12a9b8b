package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	token, expiresAt, err := svc.GenerateAccessToken("u-42", "Storekeeper", []string{"warehouse"})
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("GenerateAccessToken() returned empty token")
	}
	if remaining := time.Until(expiresAt); remaining <= 0 || remaining > 15*time.Minute {
		t.Errorf("expiresAt = %v, want within the 15m TTL", expiresAt)
	}

	actor, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if actor.ActorID != "u-42" || actor.Name != "Storekeeper" {
		t.Errorf("actor = %+v, want u-42/Storekeeper", actor)
	}
	if len(actor.Roles) != 1 || actor.Roles[0] != "warehouse" {
		t.Errorf("roles = %v, want [warehouse]", actor.Roles)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b"))

	token, _, err := issuer.GenerateAccessToken("u-1", "name", nil)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := verifier.ValidateToken(token); err == nil {
		t.Error("ValidateToken() = nil, want signature error")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	token, _, err := svc.GenerateAccessToken("u-1", "name", nil)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("ValidateToken() = nil, want expiry error")
	}
}
