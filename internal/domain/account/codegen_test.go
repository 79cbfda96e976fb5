package account_test

import (
	"strings"
	"testing"

	"github.com/smartsaas/smartsaas-api/internal/domain/account"
)

func TestGenerateReferralCodeShape(t *testing.T) {
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	for i := 0; i < 100; i++ {
		code := account.GenerateReferralCode()

		if len(code) != account.ReferralCodeLength {
			t.Fatalf("expected length %d, got %d (%q)", account.ReferralCodeLength, len(code), code)
		}
		for _, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
	}
}

func TestGenerateReferralCodeVariety(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		seen[account.GenerateReferralCode()] = true
	}

	// With a 31^8 space, 1000 draws colliding down to a handful would
	// mean the generator is broken.
	if len(seen) < 990 {
		t.Fatalf("expected ~1000 distinct codes, got %d", len(seen))
	}
}
