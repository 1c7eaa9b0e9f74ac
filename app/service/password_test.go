package service_test

import (
	"testing"

	"github.com/vibast-solutions/ms-go-blog-auth/app/service"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_Roundtrip(t *testing.T) {
	hasher := service.NewBcryptHasher(bcrypt.MinCost)

	for _, plaintext := range []string{"secret1", "correct horse battery", "ünïcødé!"} {
		hashed, err := hasher.Hash(plaintext)
		if err != nil {
			t.Fatalf("hash failed: %v", err)
		}
		if hashed == plaintext {
			t.Fatalf("hash must differ from the plaintext")
		}
		if !hasher.Verify(plaintext, hashed) {
			t.Fatalf("expected %q to verify against its own hash", plaintext)
		}
		if hasher.Verify(plaintext+"x", hashed) {
			t.Fatalf("expected a different plaintext to be rejected")
		}
	}
}

func TestBcryptHasher_MalformedHashFailsClosed(t *testing.T) {
	hasher := service.NewBcryptHasher(bcrypt.MinCost)

	for _, hash := range []string{"", "plain", "$2a$10$short"} {
		if hasher.Verify("secret1", hash) {
			t.Fatalf("expected malformed hash %q to be rejected", hash)
		}
	}
}

func TestBcryptHasher_DefaultCost(t *testing.T) {
	hasher := service.NewBcryptHasher(0)

	hashed, err := hasher.Hash("secret1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hashed))
	if err != nil {
		t.Fatalf("cost failed: %v", err)
	}
	if cost != service.DefaultBcryptCost {
		t.Fatalf("expected cost %d, got %d", service.DefaultBcryptCost, cost)
	}
}
