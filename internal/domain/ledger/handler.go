package ledger

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/smartsaas/smartsaas-api/internal/domain/account"
	"github.com/smartsaas/smartsaas-api/internal/middleware"
	"github.com/smartsaas/smartsaas-api/internal/pkg/response"
	"github.com/smartsaas/smartsaas-api/internal/pkg/validator"
)

// Handler handles token and credit HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates ledger handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Balance handles GET /tokens
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	acc, level, err := h.service.Balance(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	history, err := h.service.History(r.Context(), accountID, 10, 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, BalanceResponse{
		CreditBalance:     acc.CreditBalance,
		TokenBalance:      acc.TokenBalance,
		TotalTokensEarned: acc.TotalTokensEarned,
		Level:             level,
		History:           toEntryResponses(history),
	})
}

// History handles GET /tokens/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.service.History(r.Context(), accountID, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, toEntryResponses(entries))
}

// ClaimDaily handles POST /tokens/daily-reward
func (h *Handler) ClaimDaily(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	entry, err := h.service.ClaimDaily(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"reward":  entry.AmountDelta,
		"message": fmt.Sprintf("You earned %d tokens!", entry.AmountDelta),
	})
}

// Earn handles POST /tokens/earn for claimable reward actions
func (h *Handler) Earn(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	var req EarnRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	amount, ok := h.service.RewardAmount(Reason(req.Action))
	if !ok {
		response.BadRequest(w, "Unknown reward action")
		return
	}

	entry, err := h.service.Earn(r.Context(), accountID, account.CurrencyToken, amount, Reason(req.Action), "Reward action: "+req.Action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, toEntryResponse(*entry))
}

// ReferralInfo handles GET /tokens/referral
func (h *Handler) ReferralInfo(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	acc, edges, err := h.service.ReferralInfo(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := ReferralInfoResponse{
		ReferralCode:   acc.ReferralCode,
		TotalReferrals: len(edges),
	}
	resp.Rewards.PerSignup = h.service.Rewards().ReferralSignup
	resp.Rewards.PerFirstPurchase = h.service.Rewards().ReferralFirstPurchase

	response.OK(w, resp)
}

// Refer handles POST /tokens/refer
func (h *Handler) Refer(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	var req ReferRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.ReferByEmail(r.Context(), accountID, req.ReferredEmail)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, ReferResponse{
		ReferrerReward: result.ReferrerReward,
		ReferredReward: result.ReferredReward,
	})
}

// Exchange handles POST /tokens/exchange
func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	var req ExchangeRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Exchange(r.Context(), accountID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, ExchangeResponse{
		TokensSpent:     result.TokensSpent,
		CreditsReceived: result.CreditsGranted,
		TokenBalance:    result.Account.TokenBalance,
		CreditBalance:   result.Account.CreditBalance,
	})
}

// Leaderboard handles GET /tokens/leaderboard
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	rows, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, rows)
}

// Rewards handles GET /tokens/rewards
func (h *Handler) RewardSchedule(w http.ResponseWriter, r *http.Request) {
	rewards := h.service.Rewards()

	response.OK(w, RewardsResponse{
		Actions: map[string]int{
			string(ReasonWelcomeBonus):          rewards.WelcomeBonus,
			string(ReasonDailyLogin):            rewards.DailyLogin,
			string(ReasonFirstGeneration):       rewards.FirstGeneration,
			string(ReasonShareContent):          rewards.ShareContent,
			string(ReasonCompleteProfile):       rewards.CompleteProfile,
			string(ReasonReferralSignup):        rewards.ReferralSignup,
			string(ReasonWelcomeReferral):       rewards.WelcomeReferral,
			string(ReasonReferralFirstPurchase): rewards.ReferralFirstPurchase,
			string(ReasonWeeklyActive):          rewards.WeeklyActive,
			string(ReasonContentViral):          rewards.ContentViral,
			string(ReasonFeedbackProvided):      rewards.FeedbackProvided,
		},
		ExchangeRate: fmt.Sprintf("%d tokens = 1 credit", rewards.ExchangeRate),
	})
}

// SpendCredits handles POST /credits/spend
func (h *Handler) SpendCredits(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	var req SpendRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	entry, err := h.service.Spend(r.Context(), accountID, account.CurrencyCredit, req.Amount, ReasonSpendGeneration, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, toEntryResponse(*entry))
}

// PurchaseCredits handles POST /credits/purchase
func (h *Handler) PurchaseCredits(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	var req PurchaseRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	entry, err := h.service.RecordPurchase(r.Context(), accountID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, toEntryResponse(*entry))
}

// CreditBalance handles GET /credits
func (h *Handler) CreditBalance(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	acc, _, err := h.service.Balance(r.Context(), accountID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.OK(w, map[string]int{"credit_balance": acc.CreditBalance})
}

// Reconcile handles GET /tokens/reconcile (audit)
func (h *Handler) Reconcile(signupCredits int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := middleware.GetAccountID(r.Context())

		report, err := h.service.Reconcile(r.Context(), accountID, signupCredits)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		response.OK(w, report)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		response.Error(w, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be greater than 0")
	case errors.Is(err, ErrInsufficientBalance):
		response.Error(w, http.StatusBadRequest, "INSUFFICIENT_BALANCE", "Insufficient balance")
	case errors.Is(err, ErrBelowMinimum):
		response.Error(w, http.StatusBadRequest, "BELOW_MINIMUM", "Amount below exchange minimum")
	case errors.Is(err, ErrSelfReferral):
		response.Error(w, http.StatusBadRequest, "SELF_REFERRAL", "You cannot refer yourself")
	case errors.Is(err, ErrAlreadyReferred):
		response.Conflict(w, "Account already referred")
	case errors.Is(err, ErrDailyAlreadyClaimed):
		response.Conflict(w, "Daily reward already claimed")
	case errors.Is(err, ErrUnknownAccount):
		response.NotFound(w, "Account not found")
	case errors.Is(err, account.ErrInvalidCurrency):
		response.BadRequest(w, "Invalid currency")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("ledger operation failed")
		response.InternalError(w)
	}
}
