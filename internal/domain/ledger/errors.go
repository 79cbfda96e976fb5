package ledger

import (
	"errors"

	"github.com/smartsaas/smartsaas-api/internal/domain/account"
)

var (
	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInsufficientBalance is the account store's guard error, re-exported
	// so callers can match it without importing the account package.
	ErrInsufficientBalance = account.ErrInsufficientBalance

	// ErrUnknownAccount is returned when an account id doesn't resolve
	ErrUnknownAccount = errors.New("unknown account")

	// ErrAlreadyReferred is returned when the referred account already has a referrer
	ErrAlreadyReferred = errors.New("account already referred")

	// ErrSelfReferral is returned when an account tries to refer itself
	ErrSelfReferral = errors.New("self referral not allowed")

	// ErrBelowMinimum is returned when an exchange is under the minimum token amount
	ErrBelowMinimum = errors.New("amount below exchange minimum")

	// ErrDailyAlreadyClaimed is returned when the daily reward was already claimed today
	ErrDailyAlreadyClaimed = errors.New("daily reward already claimed")

	ErrInternal = errors.New("internal error")
)
