package account

import (
	"time"

	"github.com/google/uuid"
)

// RegisterRequest for POST /auth/register
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email,max=255"`
	Password     string `json:"password" validate:"required,min=6,max=128"`
	ReferralCode string `json:"referral_code" validate:"omitempty,len=8"`
}

// LoginRequest for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	Plan              string    `json:"plan"`
	CreditBalance     int       `json:"credit_balance"`
	TokenBalance      int       `json:"token_balance"`
	TotalTokensEarned int       `json:"total_tokens_earned"`
	ReferralCode      string    `json:"referral_code"`
	ReferredBy        string    `json:"referred_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// TokensResponse carries the issued JWT pair
type TokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// AuthResponse returned after login/register
type AuthResponse struct {
	Account AccountResponse `json:"account"`
	Tokens  TokensResponse  `json:"tokens"`
}

func toAccountResponse(acc *Account) AccountResponse {
	resp := AccountResponse{
		ID:                acc.ID,
		Email:             acc.Email,
		Plan:              string(acc.Plan),
		CreditBalance:     acc.CreditBalance,
		TokenBalance:      acc.TokenBalance,
		TotalTokensEarned: acc.TotalTokensEarned,
		ReferralCode:      acc.ReferralCode,
		CreatedAt:         acc.CreatedAt,
	}
	if acc.ReferredBy.Valid {
		resp.ReferredBy = acc.ReferredBy.String
	}
	return resp
}
