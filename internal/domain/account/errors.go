package account

import "errors"

var (
	// ErrNotFound is returned when the account id or email doesn't resolve
	ErrNotFound = errors.New("account not found")

	// ErrEmailTaken is returned when registering an already used email
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login with a wrong email or password
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInsufficientBalance is returned when a delta would drive a balance negative
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidCurrency is returned for a currency outside credit/token
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrCodeGenerationExhausted is returned when referral code generation
	// keeps colliding. Operational alarm, not a user-facing case.
	ErrCodeGenerationExhausted = errors.New("referral code generation exhausted")

	ErrInternal = errors.New("internal error")
)
