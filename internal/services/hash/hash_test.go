package hash

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	hs := NewHashService(bcrypt.MinCost)

	hash, err := hs.HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if string(hash) == "secret123" {
		t.Fatal("expected the hash to differ from the password")
	}
	if !hs.CheckPasswordHash("secret123", hash) {
		t.Fatal("expected matching password to verify")
	}
	if hs.CheckPasswordHash("wrong", hash) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestNewHashServiceCostFallback(t *testing.T) {
	hs := NewHashService(0)
	if hs.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost %d, got %d", bcrypt.DefaultCost, hs.cost)
	}
}
