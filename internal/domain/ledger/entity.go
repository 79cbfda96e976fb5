package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartsaas/smartsaas-api/internal/domain/account"
)

// Reason is the enumerated business cause of a ledger entry.
type Reason string

const (
	ReasonWelcomeBonus          Reason = "welcome_bonus"
	ReasonDailyLogin            Reason = "daily_login"
	ReasonFirstGeneration       Reason = "first_generation"
	ReasonShareContent          Reason = "share_content"
	ReasonCompleteProfile       Reason = "complete_profile"
	ReasonReferralSignup        Reason = "referral_signup"
	ReasonWelcomeReferral       Reason = "welcome_referral"
	ReasonReferralFirstPurchase Reason = "referral_first_purchase"
	ReasonWeeklyActive          Reason = "weekly_active"
	ReasonContentViral          Reason = "content_viral"
	ReasonFeedbackProvided      Reason = "feedback_provided"
	ReasonPurchase              Reason = "purchase"
	ReasonSpendGeneration       Reason = "spend_generation"
	ReasonExchange              Reason = "exchange"
)

// Entry is one immutable record of a balance change. Entries are append
// only; per-account ordering is (created_at, seq).
type Entry struct {
	ID          uuid.UUID        `db:"id"`
	AccountID   uuid.UUID        `db:"account_id"`
	AmountDelta int              `db:"amount_delta"`
	Currency    account.Currency `db:"currency"`
	Reason      Reason           `db:"reason"`
	Description string           `db:"description"`
	Seq         int64            `db:"seq"`
	CreatedAt   time.Time        `db:"created_at"`
}

// ReferralEdge links a referrer to a referred account. An account can be
// the referred side of at most one edge.
type ReferralEdge struct {
	ID           uuid.UUID `db:"id"`
	ReferrerID   uuid.UUID `db:"referrer_id"`
	ReferredID   uuid.UUID `db:"referred_id"`
	ReferralCode string    `db:"referral_code"`
	CreatedAt    time.Time `db:"created_at"`
}

// ReferralResult reports a processed referral.
type ReferralResult struct {
	Edge           *ReferralEdge
	ReferrerReward int
	ReferredReward int
}

// ExchangeResult reports a token-to-credit conversion.
type ExchangeResult struct {
	TokensSpent    int
	CreditsGranted int
	Account        *account.Account // post-exchange snapshot
}

// LeaderboardRow is one entry in the total-earned ranking. Emails are
// masked before leaving the service.
type LeaderboardRow struct {
	Email             string `db:"email" json:"email"`
	TotalTokensEarned int    `db:"total_tokens_earned" json:"total_earned"`
	TokenBalance      int    `db:"token_balance" json:"current_balance"`
}

// WeeklyStats summarizes one account's last seven days for the report job.
type WeeklyStats struct {
	EntriesCount int `json:"entries_count"`
	TokensEarned int `json:"tokens_earned"`
	NewReferrals int `json:"new_referrals"`
}

// ReconcileReport compares stored balances against a full re-sum of the
// entry log. Audit only, never the live balance path.
type ReconcileReport struct {
	AccountID     uuid.UUID `json:"account_id"`
	CreditBalance int       `json:"credit_balance"`
	CreditFromLog int       `json:"credit_from_log"`
	TokenBalance  int       `json:"token_balance"`
	TokenFromLog  int       `json:"token_from_log"`
	SignupCredits int       `json:"signup_credits"` // seed not present in the log
	Consistent    bool      `json:"consistent"`
}
