package account

import (
	"crypto/rand"
)

// ReferralCodeLength is the length of generated referral codes.
const ReferralCodeLength = 8

// codeAlphabet excludes ambiguous characters (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// maxCodeAttempts bounds retry-on-collision during account creation.
const maxCodeAttempts = 5

// GenerateReferralCode draws a fresh code from the fixed alphabet.
// Uniqueness is checked against the store by the caller.
func GenerateReferralCode() string {
	b := make([]byte, ReferralCodeLength)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b)
}
