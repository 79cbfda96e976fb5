package account

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Currency names a spendable balance on an account.
type Currency string

const (
	// CurrencyCredit is the consumable unit spent on generation operations.
	CurrencyCredit Currency = "credit"
	// CurrencyToken is the earned reward currency.
	CurrencyToken Currency = "token"
)

// IsValid reports whether the currency names a real balance column.
func (c Currency) IsValid() bool {
	return c == CurrencyCredit || c == CurrencyToken
}

// Plan represents a subscription plan (matches plan column)
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Account represents one user's economic state (matches accounts table).
//
// Invariants, enforced by the repository: CreditBalance >= 0,
// TokenBalance >= 0, TokenBalance <= TotalTokensEarned. ReferralCode is
// unique and immutable; ReferredBy is written at most once.
type Account struct {
	ID           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Plan         Plan      `db:"plan"`

	// Balances, mutated only through ApplyDelta
	CreditBalance     int `db:"credit_balance"`
	TokenBalance      int `db:"token_balance"`
	TotalTokensEarned int `db:"total_tokens_earned"`

	// Referral state
	ReferralCode string         `db:"referral_code"`
	ReferredBy   sql.NullString `db:"referred_by"` // referrer's referral code

	// Optional Web3 wallet for token sync (external collaborator concern)
	WalletAddress sql.NullString `db:"wallet_address"`

	IsActive    bool         `db:"is_active"`
	LastLoginAt sql.NullTime `db:"last_login_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Balance returns the named balance.
func (a *Account) Balance(currency Currency) int {
	if currency == CurrencyToken {
		return a.TokenBalance
	}
	return a.CreditBalance
}

// WasReferred returns true if the account was referred by another account
func (a *Account) WasReferred() bool {
	return a.ReferredBy.Valid && a.ReferredBy.String != ""
}
