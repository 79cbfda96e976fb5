package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EarnRequest for POST /tokens/earn
type EarnRequest struct {
	Action string `json:"action" validate:"required,max=64"`
}

// ReferRequest for POST /tokens/refer
type ReferRequest struct {
	ReferredEmail string `json:"referred_email" validate:"required,email"`
}

// ExchangeRequest for POST /tokens/exchange
type ExchangeRequest struct {
	Amount int `json:"amount" validate:"required,gte=1"`
}

// SpendRequest for POST /credits/spend
type SpendRequest struct {
	Amount      int    `json:"amount" validate:"required,gte=1"`
	Description string `json:"description" validate:"max=255"`
}

// PurchaseRequest for POST /credits/purchase
type PurchaseRequest struct {
	Amount int `json:"amount" validate:"required,gte=1"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID          uuid.UUID `json:"id"`
	AmountDelta int       `json:"amount_delta"`
	Currency    string    `json:"currency"`
	Reason      string    `json:"reason"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// BalanceResponse for GET /tokens
type BalanceResponse struct {
	CreditBalance     int             `json:"credit_balance"`
	TokenBalance      int             `json:"token_balance"`
	TotalTokensEarned int             `json:"total_earned"`
	Level             LevelInfo       `json:"level"`
	History           []EntryResponse `json:"history"`
}

// ReferralInfoResponse for GET /tokens/referral
type ReferralInfoResponse struct {
	ReferralCode   string `json:"referral_code"`
	TotalReferrals int    `json:"total_referrals"`
	Rewards        struct {
		PerSignup        int `json:"per_signup"`
		PerFirstPurchase int `json:"per_first_purchase"`
	} `json:"rewards"`
}

// ReferResponse for POST /tokens/refer
type ReferResponse struct {
	ReferrerReward int `json:"referrer_reward"`
	ReferredReward int `json:"referred_reward"`
}

// ExchangeResponse for POST /tokens/exchange
type ExchangeResponse struct {
	TokensSpent     int `json:"tokens_spent"`
	CreditsReceived int `json:"credits_received"`
	TokenBalance    int `json:"new_token_balance"`
	CreditBalance   int `json:"new_credit_balance"`
}

// RewardsResponse for GET /tokens/rewards
type RewardsResponse struct {
	Actions      map[string]int `json:"actions"`
	ExchangeRate string         `json:"exchange_rate"`
}

func toEntryResponse(e Entry) EntryResponse {
	return EntryResponse{
		ID:          e.ID,
		AmountDelta: e.AmountDelta,
		Currency:    string(e.Currency),
		Reason:      string(e.Reason),
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
	}
}

func toEntryResponses(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return out
}
