package auth

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func newTestService(t *testing.T) (*Service, *fakeQueries) {
	t.Helper()
	queries := newFakeQueries()
	svc, err := NewService(Config{
		Queries:         queries,
		Secret:          "super-secret-key",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, queries
}

func TestServiceParseAccessTokenSuccess(t *testing.T) {
	svc, _ := newTestService(t)
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	token, _, err := svc.signAccessToken("user-id", RoleAdmin)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	claims, err := svc.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "user-id" {
		t.Fatalf("unexpected subject: %s", claims.UserID)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
}

func TestServiceParseAccessTokenDefaultsRole(t *testing.T) {
	svc, _ := newTestService(t)
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	built, err := jwt.NewBuilder().
		Subject("user-id").
		Issuer(svc.issuer).
		Audience([]string{svc.audience}).
		IssuedAt(fixed).
		NotBefore(fixed).
		Expiration(fixed.Add(svc.accessTTL)).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS256, svc.secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	claims, err := svc.ParseAccessToken(string(signed))
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != RoleUser {
		t.Fatalf("expected default role, got %s", claims.Role)
	}
}

func TestServiceParseAccessTokenRejectsAlgorithmMismatch(t *testing.T) {
	svc, _ := newTestService(t)
	fixed := time.Now()
	svc.WithNow(func() time.Time { return fixed })

	built, err := jwt.NewBuilder().
		Subject("user-id").
		Issuer(svc.issuer).
		Audience([]string{svc.audience}).
		IssuedAt(fixed).
		NotBefore(fixed.Add(-svc.clockSkew)).
		Expiration(fixed.Add(svc.accessTTL)).
		Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(built, jwt.WithKey(jwa.HS384, svc.secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := svc.ParseAccessToken(string(signed)); err == nil {
		t.Fatal("expected algorithm mismatch error")
	}
}
