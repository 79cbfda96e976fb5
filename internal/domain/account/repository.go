package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

const accountColumns = `
	id, email, password_hash, plan,
	credit_balance, token_balance, total_tokens_earned,
	referral_code, referred_by, wallet_address,
	is_active, last_login_at, created_at, updated_at`

// Repository is the authoritative current-state view of every account.
// All balance mutation goes through ApplyDelta / ApplyDeltaTx, no direct
// setters, so the non-negative invariant is enforced in one place.
type Repository interface {
	Create(ctx context.Context, acc *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByReferralCode(ctx context.Context, code string) (*Account, error)

	// ApplyDelta atomically adds delta (positive or negative) to the named
	// balance. Fails with ErrInsufficientBalance if the result would go
	// negative. Positive token deltas also bump total_tokens_earned.
	ApplyDelta(ctx context.Context, id uuid.UUID, currency Currency, delta int) (*Account, error)
	// ApplyDeltaTx is ApplyDelta inside an external transaction. The caller
	// owns commit/rollback.
	ApplyDeltaTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, currency Currency, delta int) (*Account, error)

	// LockTx locks the given account rows FOR UPDATE in ascending id order
	// (fixed global order, so cross-account operations cannot deadlock).
	LockTx(ctx context.Context, tx *sqlx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*Account, error)
	// SetReferredByTx records the referrer's code. Caller must hold the row
	// lock and have verified referred_by is still unset.
	SetReferredByTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, code string) error

	TouchLogin(ctx context.Context, id uuid.UUID) error
	ListInactiveSince(ctx context.Context, cutoff time.Time, limit, offset int) ([]*Account, error)
	List(ctx context.Context, limit, offset int) ([]*Account, error)
}

// repository implements Repository against PostgreSQL
type repository struct {
	db *sqlx.DB
}

// NewRepository creates new account repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create inserts a new account, generating a unique referral code with
// bounded retries on collision.
func (r *repository) Create(ctx context.Context, acc *Account) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		acc.ReferralCode = GenerateReferralCode()

		_, err := r.db.ExecContext(ctx2, `
			INSERT INTO accounts (id, email, password_hash, plan, credit_balance, referral_code, referred_by, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		`, acc.ID, acc.Email, acc.PasswordHash, acc.Plan, acc.CreditBalance, acc.ReferralCode, acc.ReferredBy)
		if err == nil {
			return nil
		}

		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if pqErr.Constraint == "accounts_email_key" {
				return ErrEmailTaken
			}
			// Referral code collision, draw again
			continue
		}
		return fmt.Errorf("%w: insert account", ErrInternal)
	}

	return ErrCodeGenerationExhausted
}

// GetByID returns account by ID
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail returns account by email
func (r *repository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.getBy(ctx, "email = $1", email)
}

// GetByReferralCode returns account by its referral code
func (r *repository) GetByReferralCode(ctx context.Context, code string) (*Account, error) {
	return r.getBy(ctx, "referral_code = $1", code)
}

func (r *repository) getBy(ctx context.Context, where string, arg interface{}) (*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var acc Account
	err := r.db.GetContext(ctx2, &acc, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get account", ErrInternal)
	}

	return &acc, nil
}

func deltaQuery(currency Currency) (string, error) {
	switch currency {
	case CurrencyCredit:
		return `
			UPDATE accounts
			SET credit_balance = credit_balance + $2, updated_at = now()
			WHERE id = $1 AND credit_balance + $2 >= 0
			RETURNING ` + accountColumns, nil
	case CurrencyToken:
		// Positive token deltas are earns and bump the monotonic
		// total_tokens_earned counter in the same statement.
		return `
			UPDATE accounts
			SET token_balance = token_balance + $2,
			    total_tokens_earned = total_tokens_earned + GREATEST($2, 0),
			    updated_at = now()
			WHERE id = $1 AND token_balance + $2 >= 0
			RETURNING ` + accountColumns, nil
	default:
		return "", ErrInvalidCurrency
	}
}

// ApplyDelta atomically adjusts a single balance. The guard in the WHERE
// clause makes check and mutation one statement. Concurrent spends can
// never both pass a stale balance check.
func (r *repository) ApplyDelta(ctx context.Context, id uuid.UUID, currency Currency, delta int) (*Account, error) {
	query, err := deltaQuery(currency)
	if err != nil {
		return nil, err
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var acc Account
	err = r.db.GetContext(ctx2, &acc, query, id, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.deltaFailure(ctx2, id)
		}
		return nil, fmt.Errorf("%w: apply delta", ErrInternal)
	}

	return &acc, nil
}

// ApplyDeltaTx applies a delta within an external transaction.
func (r *repository) ApplyDeltaTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, currency Currency, delta int) (*Account, error) {
	query, err := deltaQuery(currency)
	if err != nil {
		return nil, err
	}

	var acc Account
	err = tx.GetContext(ctx, &acc, query, id, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.deltaFailureTx(ctx, tx, id)
		}
		return nil, fmt.Errorf("%w: apply delta", ErrInternal)
	}

	return &acc, nil
}

// deltaFailure distinguishes a missing account from a guard rejection.
func (r *repository) deltaFailure(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("%w: check account", ErrInternal)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientBalance
}

func (r *repository) deltaFailureTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("%w: check account", ErrInternal)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientBalance
}

// LockTx locks account rows FOR UPDATE in ascending id order.
func (r *repository) LockTx(ctx context.Context, tx *sqlx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*Account, error) {
	strIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		strIDs = append(strIDs, id.String())
	}

	accounts := make([]Account, 0, len(ids))
	err := tx.SelectContext(ctx, &accounts, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, pq.Array(strIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: lock accounts", ErrInternal)
	}

	locked := make(map[uuid.UUID]*Account, len(accounts))
	for i := range accounts {
		locked[accounts[i].ID] = &accounts[i]
	}
	return locked, nil
}

// SetReferredByTx writes the referrer's code onto a locked account row.
func (r *repository) SetReferredByTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, code string) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET referred_by = $2, updated_at = now()
		WHERE id = $1 AND referred_by IS NULL
	`, id, code)
	if err != nil {
		return fmt.Errorf("%w: set referred_by", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrInternal
	}
	return nil
}

// TouchLogin records login time for inactivity tracking
func (r *repository) TouchLogin(ctx context.Context, id uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		UPDATE accounts SET last_login_at = now(), updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("%w: touch login", ErrInternal)
	}
	return nil
}

// ListInactiveSince returns active accounts whose last login predates cutoff.
func (r *repository) ListInactiveSince(ctx context.Context, cutoff time.Time, limit, offset int) ([]*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	accounts := make([]*Account, 0)
	err := r.db.SelectContext(ctx2, &accounts, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE is_active = true AND last_login_at IS NOT NULL AND last_login_at < $1
		ORDER BY last_login_at ASC
		LIMIT $2 OFFSET $3
	`, cutoff, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list inactive accounts", ErrInternal)
	}

	return accounts, nil
}

// List returns active accounts in creation order
func (r *repository) List(ctx context.Context, limit, offset int) ([]*Account, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	accounts := make([]*Account, 0)
	err := r.db.SelectContext(ctx2, &accounts, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE is_active = true
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts", ErrInternal)
	}

	return accounts, nil
}
