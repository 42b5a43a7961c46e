package auth

import (
	"strings"
	"testing"
)

// Low cost keeps the hashing fast in tests.
const testBcryptCost = 4

func TestHashAndVerify(t *testing.T) {
	h := NewHasher(testBcryptCost)

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Fatal("Hash() returned empty string")
	}
	if hash == "correct horse battery staple" {
		t.Fatal("Hash() returned the plaintext")
	}

	ok, err := h.Verify("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() = false for correct password")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	h := NewHasher(testBcryptCost)

	hash, err := h.Hash("right-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	ok, err := h.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify() error = %v, want nil for a plain mismatch", err)
	}
	if ok {
		t.Error("Verify() = true for wrong password")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	h := NewHasher(testBcryptCost)

	_, err := h.Verify("anything", "not-a-bcrypt-hash")
	if err == nil {
		t.Error("Verify() should error on a malformed hash")
	}
}

func TestHash_UniqueSalts(t *testing.T) {
	h := NewHasher(testBcryptCost)

	h1, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (per-hash salt)")
	}
}

func TestNewHasher_ClampsInvalidCost(t *testing.T) {
	// Out-of-range costs fall back to the library default rather than
	// producing a hasher that fails at hash time.
	for _, cost := range []int{0, -1, 99} {
		h := NewHasher(cost)
		hash, err := h.Hash("pw")
		if err != nil {
			t.Errorf("cost %d: Hash() error = %v", cost, err)
		}
		if !strings.HasPrefix(hash, "$2") {
			t.Errorf("cost %d: hash %q is not bcrypt", cost, hash)
		}
	}
}
