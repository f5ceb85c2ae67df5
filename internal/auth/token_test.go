package auth

import (
	"testing"
	"time"
)

func TestGeneratePairAndParse(t *testing.T) {
	tm := NewTokenManager("secret", 5, 1)

	pair, err := tm.GeneratePair("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := tm.ParseAccess(pair.Access)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id %q", claims.UserID)
	}

	refreshClaims, err := tm.ParseRefresh(pair.Refresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if refreshClaims.TokenType != TokenTypeRefresh {
		t.Fatalf("unexpected token type %q", refreshClaims.TokenType)
	}
}

func TestParse_WrongTokenType(t *testing.T) {
	tm := NewTokenManager("secret", 5, 1)

	pair, err := tm.GeneratePair("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := tm.ParseAccess(pair.Refresh); err == nil {
		t.Fatal("refresh token must not pass access validation")
	}
	if _, err := tm.ParseRefresh(pair.Access); err == nil {
		t.Fatal("access token must not pass refresh validation")
	}
}

func TestParse_WrongSecret(t *testing.T) {
	tm := NewTokenManager("secret", 5, 1)
	other := NewTokenManager("different", 5, 1)

	pair, err := tm.GeneratePair("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := other.ParseAccess(pair.Access); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestParse_ExpiredToken(t *testing.T) {
	tm := &TokenManager{
		secret:     []byte("secret"),
		accessTTL:  -time.Minute,
		refreshTTL: time.Hour,
	}

	pair, err := tm.GeneratePair("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := tm.ParseAccess(pair.Access); err == nil {
		t.Fatal("expired access token must be rejected")
	}
}

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("password123", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "password123" {
		t.Fatal("hash must differ from plaintext")
	}
	if err := ComparePassword(hash, "password123"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("wrong password must not match")
	}
}
