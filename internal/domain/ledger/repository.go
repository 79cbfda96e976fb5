package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/smartsaas/smartsaas-api/internal/domain/account"
)

const queryTimeout = 3 * time.Second

const entryColumns = `id, account_id, amount_delta, currency, reason, description, seq, created_at`

// Repository couples balance mutations with their immutable history
// records. Every compound operation here runs in a single database
// transaction: no caller can observe a balance change without its entry,
// or an entry without its balance change.
type Repository interface {
	// Earn applies a positive delta and appends the matching entry.
	Earn(ctx context.Context, accountID uuid.UUID, currency account.Currency, amount int, reason Reason, description string) (*Entry, *account.Account, error)
	// Spend applies a negative delta and appends the matching entry.
	// Check and mutation are one atomic unit.
	Spend(ctx context.Context, accountID uuid.UUID, currency account.Currency, amount int, reason Reason, description string) (*Entry, *account.Account, error)
	// EarnDaily grants the daily login bonus, failing with
	// ErrDailyAlreadyClaimed when a daily_login entry exists at or after
	// since. Dedup check and grant are one transaction.
	EarnDaily(ctx context.Context, accountID uuid.UUID, amount int, since time.Time) (*Entry, *account.Account, error)
	// RecordPurchase credits a purchased pack and reports whether it was
	// the account's first purchase, decided inside the transaction.
	RecordPurchase(ctx context.Context, accountID uuid.UUID, amount int) (*Entry, *account.Account, bool, error)
	// ProcessReferral sets referred_by, creates the edge and rewards both
	// sides, all-or-nothing.
	ProcessReferral(ctx context.Context, referrerID, referredID uuid.UUID, referrerReward, referredReward int) (*ReferralResult, error)
	// Exchange swaps tokens for credits; deduction and grant both apply or
	// neither does.
	Exchange(ctx context.Context, accountID uuid.UUID, tokenAmount, creditAmount int) (*ExchangeResult, error)

	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error)
	SumEarnedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error)
	CountEntriesSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error)
	SumByCurrency(ctx context.Context, accountID uuid.UUID, currency account.Currency) (int, error)

	CountEdgesByReferrer(ctx context.Context, referrerID uuid.UUID) (int, error)
	CountEdgesByReferrerSince(ctx context.Context, referrerID uuid.UUID, since time.Time) (int, error)
	ListEdgesByReferrer(ctx context.Context, referrerID uuid.UUID) ([]ReferralEdge, error)
	// GetEdgeByReferred returns (nil, nil) when the account was never referred.
	GetEdgeByReferred(ctx context.Context, referredID uuid.UUID) (*ReferralEdge, error)

	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)
}

// repository implements Repository against PostgreSQL
type repository struct {
	db       *sqlx.DB
	accounts account.Repository
}

// NewRepository creates new ledger repository
func NewRepository(db *sqlx.DB, accounts account.Repository) Repository {
	return &repository{db: db, accounts: accounts}
}

func (r *repository) Earn(ctx context.Context, accountID uuid.UUID, currency account.Currency, amount int, reason Reason, description string) (*Entry, *account.Account, error) {
	return r.apply(ctx, accountID, currency, amount, reason, description)
}

func (r *repository) Spend(ctx context.Context, accountID uuid.UUID, currency account.Currency, amount int, reason Reason, description string) (*Entry, *account.Account, error) {
	return r.apply(ctx, accountID, currency, -amount, reason, description)
}

func (r *repository) apply(ctx context.Context, accountID uuid.UUID, currency account.Currency, delta int, reason Reason, description string) (*Entry, *account.Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	acc, err := r.accounts.ApplyDeltaTx(ctx2, tx, accountID, currency, delta)
	if err != nil {
		return nil, nil, err
	}

	entry, err := r.insertEntry(ctx2, tx, accountID, delta, currency, reason, description)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return entry, acc, nil
}

// EarnDaily relies on the balance UPDATE taking the account row lock:
// a concurrent claim blocks there until this transaction commits, so its
// dedup count always sees the entry written here.
func (r *repository) EarnDaily(ctx context.Context, accountID uuid.UUID, amount int, since time.Time) (*Entry, *account.Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	acc, err := r.accounts.ApplyDeltaTx(ctx2, tx, accountID, account.CurrencyToken, amount)
	if err != nil {
		return nil, nil, err
	}

	var count int
	err = tx.GetContext(ctx2, &count, `
		SELECT COUNT(*) FROM ledger_entries
		WHERE account_id = $1 AND reason = $2 AND created_at >= $3
	`, accountID, ReasonDailyLogin, since)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: count daily claims", ErrInternal)
	}
	if count > 0 {
		// Rollback discards the grant above
		return nil, nil, ErrDailyAlreadyClaimed
	}

	entry, err := r.insertEntry(ctx2, tx, accountID, amount, account.CurrencyToken, ReasonDailyLogin, "Daily login reward")
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return entry, acc, nil
}

// RecordPurchase counts prior purchase entries under the account row lock,
// so concurrent purchases cannot both observe "first".
func (r *repository) RecordPurchase(ctx context.Context, accountID uuid.UUID, amount int) (*Entry, *account.Account, bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	acc, err := r.accounts.ApplyDeltaTx(ctx2, tx, accountID, account.CurrencyCredit, amount)
	if err != nil {
		return nil, nil, false, err
	}

	var prior int
	err = tx.GetContext(ctx2, &prior, `
		SELECT COUNT(*) FROM ledger_entries
		WHERE account_id = $1 AND reason = $2
	`, accountID, ReasonPurchase)
	if err != nil {
		return nil, nil, false, fmt.Errorf("%w: count purchases", ErrInternal)
	}

	entry, err := r.insertEntry(ctx2, tx, accountID, amount, account.CurrencyCredit, ReasonPurchase, "Credit purchase")
	if err != nil {
		return nil, nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, false, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return entry, acc, prior == 0, nil
}

func (r *repository) ProcessReferral(ctx context.Context, referrerID, referredID uuid.UUID, referrerReward, referredReward int) (*ReferralResult, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	// Both rows locked in ascending id order (account.Repository contract)
	locked, err := r.accounts.LockTx(ctx2, tx, referrerID, referredID)
	if err != nil {
		return nil, err
	}

	referrer, ok := locked[referrerID]
	if !ok {
		return nil, ErrUnknownAccount
	}
	referred, ok := locked[referredID]
	if !ok {
		return nil, ErrUnknownAccount
	}

	// First write wins
	if referred.WasReferred() {
		return nil, ErrAlreadyReferred
	}

	if err := r.accounts.SetReferredByTx(ctx2, tx, referredID, referrer.ReferralCode); err != nil {
		return nil, err
	}

	edge := &ReferralEdge{
		ID:           uuid.New(),
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		ReferralCode: referrer.ReferralCode,
		CreatedAt:    time.Now(),
	}
	_, err = tx.ExecContext(ctx2, `
		INSERT INTO referral_edges (id, referrer_id, referred_id, referral_code)
		VALUES ($1, $2, $3, $4)
	`, edge.ID, edge.ReferrerID, edge.ReferredID, edge.ReferralCode)
	if err != nil {
		return nil, fmt.Errorf("%w: insert referral edge", ErrInternal)
	}

	if _, err := r.accounts.ApplyDeltaTx(ctx2, tx, referrerID, account.CurrencyToken, referrerReward); err != nil {
		return nil, err
	}
	if _, err := r.insertEntry(ctx2, tx, referrerID, referrerReward, account.CurrencyToken, ReasonReferralSignup, "Referral signup reward"); err != nil {
		return nil, err
	}

	if referredReward > 0 {
		if _, err := r.accounts.ApplyDeltaTx(ctx2, tx, referredID, account.CurrencyToken, referredReward); err != nil {
			return nil, err
		}
		if _, err := r.insertEntry(ctx2, tx, referredID, referredReward, account.CurrencyToken, ReasonWelcomeReferral, "Welcome referral bonus"); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &ReferralResult{
		Edge:           edge,
		ReferrerReward: referrerReward,
		ReferredReward: referredReward,
	}, nil
}

func (r *repository) Exchange(ctx context.Context, accountID uuid.UUID, tokenAmount, creditAmount int) (*ExchangeResult, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	// Token deduction first; the guard rejects insufficient balances
	if _, err := r.accounts.ApplyDeltaTx(ctx2, tx, accountID, account.CurrencyToken, -tokenAmount); err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Exchanged %d tokens for %d credits", tokenAmount, creditAmount)
	if _, err := r.insertEntry(ctx2, tx, accountID, -tokenAmount, account.CurrencyToken, ReasonExchange, description); err != nil {
		return nil, err
	}

	// Credit grant cannot fail the guard (delta is positive); any failure
	// here rolls back the token deduction with it.
	acc, err := r.accounts.ApplyDeltaTx(ctx2, tx, accountID, account.CurrencyCredit, creditAmount)
	if err != nil {
		return nil, err
	}

	if _, err := r.insertEntry(ctx2, tx, accountID, creditAmount, account.CurrencyCredit, ReasonExchange, description); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &ExchangeResult{
		TokensSpent:    tokenAmount,
		CreditsGranted: creditAmount,
		Account:        acc,
	}, nil
}

func (r *repository) insertEntry(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, amountDelta int, currency account.Currency, reason Reason, description string) (*Entry, error) {
	if description == "" {
		description = "balance adjustment"
	}

	var entry Entry
	err := tx.GetContext(ctx, &entry, `
		INSERT INTO ledger_entries (id, account_id, amount_delta, currency, reason, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+entryColumns+`
	`, uuid.New(), accountID, amountDelta, currency, reason, description)
	if err != nil {
		return nil, fmt.Errorf("%w: insert ledger entry", ErrInternal)
	}

	return &entry, nil
}

// ListByAccount returns entries most recent first. Restartable: no cursor
// state is retained between calls.
func (r *repository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx2, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries", ErrInternal)
	}

	return entries, nil
}

func (r *repository) SumEarnedSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sum int
	err := r.db.GetContext(ctx2, &sum, `
		SELECT COALESCE(SUM(amount_delta), 0) FROM ledger_entries
		WHERE account_id = $1 AND currency = 'token' AND amount_delta > 0 AND created_at >= $2
	`, accountID, since)
	if err != nil {
		return 0, fmt.Errorf("%w: sum earned", ErrInternal)
	}

	return sum, nil
}

func (r *repository) CountEntriesSince(ctx context.Context, accountID uuid.UUID, since time.Time) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.GetContext(ctx2, &count, `
		SELECT COUNT(*) FROM ledger_entries
		WHERE account_id = $1 AND created_at >= $2
	`, accountID, since)
	if err != nil {
		return 0, fmt.Errorf("%w: count entries", ErrInternal)
	}

	return count, nil
}

// SumByCurrency re-sums the full entry log for one balance. Reconciliation
// audit path, not the live balance path.
func (r *repository) SumByCurrency(ctx context.Context, accountID uuid.UUID, currency account.Currency) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sum int
	err := r.db.GetContext(ctx2, &sum, `
		SELECT COALESCE(SUM(amount_delta), 0) FROM ledger_entries
		WHERE account_id = $1 AND currency = $2
	`, accountID, currency)
	if err != nil {
		return 0, fmt.Errorf("%w: sum entries", ErrInternal)
	}

	return sum, nil
}

func (r *repository) CountEdgesByReferrer(ctx context.Context, referrerID uuid.UUID) (int, error) {
	return r.countEdges(ctx, referrerID, time.Time{})
}

func (r *repository) CountEdgesByReferrerSince(ctx context.Context, referrerID uuid.UUID, since time.Time) (int, error) {
	return r.countEdges(ctx, referrerID, since)
}

func (r *repository) countEdges(ctx context.Context, referrerID uuid.UUID, since time.Time) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.GetContext(ctx2, &count, `
		SELECT COUNT(*) FROM referral_edges
		WHERE referrer_id = $1 AND created_at >= $2
	`, referrerID, since)
	if err != nil {
		return 0, fmt.Errorf("%w: count referral edges", ErrInternal)
	}

	return count, nil
}

func (r *repository) ListEdgesByReferrer(ctx context.Context, referrerID uuid.UUID) ([]ReferralEdge, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	edges := make([]ReferralEdge, 0)
	err := r.db.SelectContext(ctx2, &edges, `
		SELECT id, referrer_id, referred_id, referral_code, created_at
		FROM referral_edges
		WHERE referrer_id = $1
		ORDER BY created_at DESC
	`, referrerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list referral edges", ErrInternal)
	}

	return edges, nil
}

func (r *repository) GetEdgeByReferred(ctx context.Context, referredID uuid.UUID) (*ReferralEdge, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var edge ReferralEdge
	err := r.db.GetContext(ctx2, &edge, `
		SELECT id, referrer_id, referred_id, referral_code, created_at
		FROM referral_edges
		WHERE referred_id = $1
	`, referredID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get referral edge", ErrInternal)
	}

	return &edge, nil
}

func (r *repository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}

	rows := make([]LeaderboardRow, 0)
	err := r.db.SelectContext(ctx2, &rows, `
		SELECT email, total_tokens_earned, token_balance
		FROM accounts
		WHERE is_active = true
		ORDER BY total_tokens_earned DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: leaderboard", ErrInternal)
	}

	return rows, nil
}
