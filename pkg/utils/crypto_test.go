package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("expected hash to differ from the plaintext")
	}

	if !CheckPassword("correct horse battery staple", hash) {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword("wrong password", hash) {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	first, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	second, err := HashPassword("same input")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if first == second {
		t.Fatal("expected salted hashes to differ")
	}
}
