package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func TestSignToken_ClaimsRoundTrip(t *testing.T) {
	svc := &Service{secret: "test-secret", ttl: 12 * time.Hour}
	acct := &account{ID: uuid.New(), Email: "broker@example.com", Role: "broker"}

	signed, err := svc.signToken(acct)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("expected valid token")
	}
	if claims.Subject != acct.ID.String() {
		t.Fatalf("expected subject %s, got %s", acct.ID, claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != "broker" {
		t.Fatalf("expected roles [broker], got %v", claims.Roles)
	}

	until := time.Until(claims.ExpiresAt.Time)
	if until < 11*time.Hour || until > 12*time.Hour {
		t.Fatalf("expected expiry around 12h out, got %s", until)
	}
}

func TestSignToken_RejectsWrongSecret(t *testing.T) {
	svc := &Service{secret: "test-secret", ttl: time.Hour}
	signed, err := svc.signToken(&account{ID: uuid.New(), Role: "broker"})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	var claims tokenClaims
	_, err = jwt.ParseWithClaims(signed, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	})
	if err == nil {
		t.Fatal("expected signature verification to fail")
	}
}
