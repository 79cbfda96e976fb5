package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/smartsaas/smartsaas-api/internal/config"
	"github.com/smartsaas/smartsaas-api/internal/domain/account"
)

// maxHistoryLimit caps one page of entry history.
const maxHistoryLimit = 100

// Notifier is the fire-and-forget side channel for milestone events.
// Implementations must never block or fail the calling ledger operation;
// it is invoked only after the transaction has committed.
type Notifier interface {
	Notify(ctx context.Context, accountID uuid.UUID, event string, payload map[string]interface{})
}

// Service is the only entry point other components use to move value.
// It enforces business rules on top of the transactional repository.
type Service struct {
	repo     Repository
	accounts account.Repository
	rewards  config.Rewards
	notifier Notifier
	redis    *redis.Client
}

// NewService creates ledger service. notifier and redisClient may be nil.
func NewService(repo Repository, accounts account.Repository, rewards config.Rewards, notifier Notifier, redisClient *redis.Client) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		rewards:  rewards,
		notifier: notifier,
		redis:    redisClient,
	}
}

// Rewards exposes the injected reward schedule (read-only).
func (s *Service) Rewards() config.Rewards {
	return s.rewards
}

// Earn credits a balance and appends the history entry. Token earns also
// advance total_tokens_earned; a tier change fires a level_up event.
func (s *Service) Earn(ctx context.Context, accountID uuid.UUID, currency account.Currency, amount int, reason Reason, description string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !currency.IsValid() {
		return nil, account.ErrInvalidCurrency
	}

	entry, acc, err := s.repo.Earn(ctx, accountID, currency, amount, reason, description)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	log.Info().
		Str("account_id", accountID.String()).
		Str("currency", string(currency)).
		Str("reason", string(reason)).
		Int("amount", amount).
		Msg("ledger earn applied")

	if currency == account.CurrencyToken {
		s.notifyLevelUp(ctx, acc, amount)
	}

	return entry, nil
}

// Spend debits a balance, failing with ErrInsufficientBalance before any
// mutation when the amount exceeds the current balance.
func (s *Service) Spend(ctx context.Context, accountID uuid.UUID, currency account.Currency, amount int, reason Reason, description string) (*Entry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !currency.IsValid() {
		return nil, account.ErrInvalidCurrency
	}

	entry, _, err := s.repo.Spend(ctx, accountID, currency, amount, reason, description)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	log.Info().
		Str("account_id", accountID.String()).
		Str("currency", string(currency)).
		Str("reason", string(reason)).
		Int("amount", amount).
		Msg("ledger spend applied")

	return entry, nil
}

// ClaimDaily grants the daily login bonus at most once per UTC day. The
// grant transaction is the authoritative dedup; Redis only short-circuits
// the common repeat case.
func (s *Service) ClaimDaily(ctx context.Context, accountID uuid.UUID) (*Entry, error) {
	claimed, release := s.redisDailyGuard(ctx, accountID)
	if claimed {
		return nil, ErrDailyAlreadyClaimed
	}

	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	entry, acc, err := s.repo.EarnDaily(ctx, accountID, s.rewards.DailyLogin, midnight)
	if err != nil {
		// Give the slot back so the user can retry. A duplicate keeps it
		// held: the log says today's claim already happened.
		if !errors.Is(err, ErrDailyAlreadyClaimed) {
			release(ctx)
		}
		return nil, mapAccountErr(err)
	}

	log.Info().
		Str("account_id", accountID.String()).
		Int("amount", entry.AmountDelta).
		Msg("daily reward claimed")

	s.notifyLevelUp(ctx, acc, entry.AmountDelta)

	return entry, nil
}

// redisDailyGuard reserves today's claim slot with SET NX when Redis is
// configured. Best-effort fast path; a Redis failure just means the
// transaction does all the work.
func (s *Service) redisDailyGuard(ctx context.Context, accountID uuid.UUID) (alreadyClaimed bool, release func(context.Context)) {
	release = func(context.Context) {}
	if s.redis == nil {
		return false, release
	}

	key := fmt.Sprintf("daily_login:%s:%s", accountID, time.Now().UTC().Format("2006-01-02"))
	ok, err := s.redis.SetNX(ctx, key, 1, 24*time.Hour).Result()
	if err != nil {
		log.Warn().Err(err).Msg("redis daily claim guard unavailable")
		return false, release
	}

	release = func(ctx context.Context) { s.redis.Del(ctx, key) }
	return !ok, release
}

// GrantWelcome awards the one-time welcome bonus. Best-effort: failures
// are logged and never surface to registration.
func (s *Service) GrantWelcome(ctx context.Context, accountID uuid.UUID) {
	_, err := s.Earn(ctx, accountID, account.CurrencyToken, s.rewards.WelcomeBonus, ReasonWelcomeBonus, "Welcome bonus")
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID.String()).Msg("failed to grant welcome bonus")
	}
}

// RedeemReferralCode resolves a referral code and processes the referral
// for the freshly registered account.
func (s *Service) RedeemReferralCode(ctx context.Context, code string, referredID uuid.UUID) error {
	referrer, err := s.accounts.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}

	_, err = s.ProcessReferral(ctx, referrer.ID, referredID)
	return err
}

// ProcessReferral attributes referredID to referrerID and rewards both
// sides exactly once. Edge creation and rewards are one transaction.
func (s *Service) ProcessReferral(ctx context.Context, referrerID, referredID uuid.UUID) (*ReferralResult, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}

	result, err := s.repo.ProcessReferral(ctx, referrerID, referredID, s.rewards.ReferralSignup, s.rewards.WelcomeReferral)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	log.Info().
		Str("referrer_id", referrerID.String()).
		Str("referred_id", referredID.String()).
		Int("referrer_reward", result.ReferrerReward).
		Msg("referral processed")

	s.notify(ctx, referrerID, "referral_signup", map[string]interface{}{
		"referred_id": referredID.String(),
		"reward":      result.ReferrerReward,
	})
	s.notify(ctx, referredID, "welcome_referral", map[string]interface{}{
		"reward": result.ReferredReward,
	})

	return result, nil
}

// ReferByEmail resolves the referred account by email and processes the
// referral with the caller as referrer.
func (s *Service) ReferByEmail(ctx context.Context, referrerID uuid.UUID, referredEmail string) (*ReferralResult, error) {
	referred, err := s.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(referredEmail)))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}

	return s.ProcessReferral(ctx, referrerID, referred.ID)
}

// RewardAmount returns the configured amount for an earnable action.
// Reasons that cannot be claimed through the action endpoint return false.
func (s *Service) RewardAmount(reason Reason) (int, bool) {
	switch reason {
	case ReasonFirstGeneration:
		return s.rewards.FirstGeneration, true
	case ReasonShareContent:
		return s.rewards.ShareContent, true
	case ReasonCompleteProfile:
		return s.rewards.CompleteProfile, true
	case ReasonWeeklyActive:
		return s.rewards.WeeklyActive, true
	case ReasonContentViral:
		return s.rewards.ContentViral, true
	case ReasonFeedbackProvided:
		return s.rewards.FeedbackProvided, true
	default:
		return 0, false
	}
}

// RecordPurchase credits a paid credit pack. The account's first purchase
// also rewards its referrer, if one exists; "first" is decided inside the
// purchase transaction, so concurrent purchases elect exactly one.
func (s *Service) RecordPurchase(ctx context.Context, accountID uuid.UUID, credits int) (*Entry, error) {
	if credits <= 0 {
		return nil, ErrInvalidAmount
	}

	entry, _, first, err := s.repo.RecordPurchase(ctx, accountID, credits)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	log.Info().
		Str("account_id", accountID.String()).
		Int("amount", credits).
		Bool("first", first).
		Msg("credit purchase recorded")

	if first {
		s.rewardReferrerFirstPurchase(ctx, accountID)
	}

	return entry, nil
}

// rewardReferrerFirstPurchase is best-effort: the purchase itself is already
// committed, so failures here are logged and never surfaced to the buyer.
func (s *Service) rewardReferrerFirstPurchase(ctx context.Context, buyerID uuid.UUID) {
	edge, err := s.repo.GetEdgeByReferred(ctx, buyerID)
	if err != nil {
		log.Warn().Err(err).Str("account_id", buyerID.String()).Msg("referral edge lookup failed")
		return
	}
	if edge == nil {
		return
	}

	reward := s.rewards.ReferralFirstPurchase
	if _, err := s.Earn(ctx, edge.ReferrerID, account.CurrencyToken, reward, ReasonReferralFirstPurchase, "Referred account's first purchase"); err != nil {
		log.Error().Err(err).
			Str("referrer_id", edge.ReferrerID.String()).
			Str("referred_id", buyerID.String()).
			Msg("failed to grant first purchase reward")
		return
	}

	s.notify(ctx, edge.ReferrerID, "referral_purchase", map[string]interface{}{
		"referred_id": buyerID.String(),
		"reward":      reward,
	})
}

// Exchange converts tokens to credits at the fixed rate, floor division.
func (s *Service) Exchange(ctx context.Context, accountID uuid.UUID, tokenAmount int) (*ExchangeResult, error) {
	if tokenAmount < s.rewards.ExchangeMinimum {
		return nil, ErrBelowMinimum
	}

	creditAmount := tokenAmount / s.rewards.ExchangeRate

	result, err := s.repo.Exchange(ctx, accountID, tokenAmount, creditAmount)
	if err != nil {
		return nil, mapAccountErr(err)
	}

	log.Info().
		Str("account_id", accountID.String()).
		Int("tokens_spent", result.TokensSpent).
		Int("credits_granted", result.CreditsGranted).
		Msg("token exchange applied")

	s.notify(ctx, accountID, "exchange_complete", map[string]interface{}{
		"tokens_spent":     result.TokensSpent,
		"credits_received": result.CreditsGranted,
	})

	return result, nil
}

// History returns the account's entries, most recent first. The limit is
// clamped to maxHistoryLimit regardless of what the caller asks for.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.ListByAccount(ctx, accountID, limit, offset)
}

// Balance returns the current account snapshot with its level.
func (s *Service) Balance(ctx context.Context, accountID uuid.UUID) (*account.Account, LevelInfo, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, LevelInfo{}, ErrUnknownAccount
		}
		return nil, LevelInfo{}, err
	}
	return acc, LevelFor(acc.TotalTokensEarned), nil
}

// ReferralInfo returns the account's code and referral totals.
func (s *Service) ReferralInfo(ctx context.Context, accountID uuid.UUID) (*account.Account, []ReferralEdge, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, nil, ErrUnknownAccount
		}
		return nil, nil, err
	}

	edges, err := s.repo.ListEdgesByReferrer(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	return acc, edges, nil
}

// Leaderboard ranks accounts by total earned, with masked emails.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	rows, err := s.repo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	for i := range rows {
		rows[i].Email = maskEmail(rows[i].Email)
	}
	return rows, nil
}

// WeeklyStats aggregates the last seven days for the report job.
func (s *Service) WeeklyStats(ctx context.Context, accountID uuid.UUID, since time.Time) (*WeeklyStats, error) {
	entries, err := s.repo.CountEntriesSince(ctx, accountID, since)
	if err != nil {
		return nil, err
	}
	earned, err := s.repo.SumEarnedSince(ctx, accountID, since)
	if err != nil {
		return nil, err
	}
	referrals, err := s.repo.CountEdgesByReferrerSince(ctx, accountID, since)
	if err != nil {
		return nil, err
	}

	return &WeeklyStats{
		EntriesCount: entries,
		TokensEarned: earned,
		NewReferrals: referrals,
	}, nil
}

// Reconcile re-sums the entry log and compares it against the maintained
// balances. Audit only; mutates nothing.
func (s *Service) Reconcile(ctx context.Context, accountID uuid.UUID, signupCredits int) (*ReconcileReport, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrUnknownAccount
		}
		return nil, err
	}

	creditSum, err := s.repo.SumByCurrency(ctx, accountID, account.CurrencyCredit)
	if err != nil {
		return nil, err
	}
	tokenSum, err := s.repo.SumByCurrency(ctx, accountID, account.CurrencyToken)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		AccountID:     accountID,
		CreditBalance: acc.CreditBalance,
		CreditFromLog: creditSum,
		TokenBalance:  acc.TokenBalance,
		TokenFromLog:  tokenSum,
		SignupCredits: signupCredits,
	}
	report.Consistent = acc.CreditBalance == creditSum+signupCredits &&
		acc.TokenBalance == tokenSum

	if !report.Consistent {
		log.Warn().
			Str("account_id", accountID.String()).
			Int("credit_balance", report.CreditBalance).
			Int("credit_from_log", report.CreditFromLog).
			Int("token_balance", report.TokenBalance).
			Int("token_from_log", report.TokenFromLog).
			Msg("ledger reconciliation drift detected")
	}

	return report, nil
}

func (s *Service) notifyLevelUp(ctx context.Context, acc *account.Account, earned int) {
	before := LevelFor(acc.TotalTokensEarned - earned)
	after := LevelFor(acc.TotalTokensEarned)
	if before.Level == after.Level {
		return
	}

	s.notify(ctx, acc.ID, "level_up", map[string]interface{}{
		"level":        after.Level,
		"badge":        after.Badge,
		"total_earned": acc.TotalTokensEarned,
	})
}

func (s *Service) notify(ctx context.Context, accountID uuid.UUID, event string, payload map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, accountID, event, payload)
}

// mapAccountErr translates store sentinels into the ledger taxonomy.
func mapAccountErr(err error) error {
	if errors.Is(err, account.ErrNotFound) {
		return ErrUnknownAccount
	}
	return err
}

func maskEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 3 {
		return email[:3] + "***"
	}
	if len(email) > 3 {
		return email[:3] + "***"
	}
	return "***"
}
