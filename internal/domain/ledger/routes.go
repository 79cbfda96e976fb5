package ledger

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// TokenRoutes returns the /tokens router. All routes require auth except
// the leaderboard.
func (h *Handler) TokenRoutes(authMiddleware func(http.Handler) http.Handler, signupCredits int) chi.Router {
	r := chi.NewRouter()

	r.Get("/leaderboard", h.Leaderboard)
	r.Get("/rewards", h.RewardSchedule)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.Balance)
		r.Get("/history", h.History)
		r.Post("/daily-reward", h.ClaimDaily)
		r.Post("/earn", h.Earn)
		r.Get("/referral", h.ReferralInfo)
		r.Post("/refer", h.Refer)
		r.Post("/exchange", h.Exchange)
		r.Get("/reconcile", h.Reconcile(signupCredits))
	})

	return r
}

// CreditRoutes returns the /credits router
func (h *Handler) CreditRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.CreditBalance)
		r.Post("/spend", h.SpendCredits)
		r.Post("/purchase", h.PurchaseCredits)
	})

	return r
}
