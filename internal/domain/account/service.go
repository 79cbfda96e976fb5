package account

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/smartsaas/smartsaas-api/internal/pkg/jwt"
	"github.com/smartsaas/smartsaas-api/internal/pkg/password"
)

// Rewarder grants signup-time rewards once the account row exists.
// Implemented by the ledger service; failures here never fail registration.
type Rewarder interface {
	GrantWelcome(ctx context.Context, accountID uuid.UUID)
	RedeemReferralCode(ctx context.Context, code string, referredID uuid.UUID) error
}

// Service handles registration, authentication and account lookups
type Service struct {
	repo          Repository
	jwtService    *jwt.Service
	rewarder      Rewarder
	signupCredits int
}

// NewService creates account service
func NewService(repo Repository, jwtService *jwt.Service, rewarder Rewarder, signupCredits int) *Service {
	return &Service{
		repo:          repo,
		jwtService:    jwtService,
		rewarder:      rewarder,
		signupCredits: signupCredits,
	}
}

// Register creates an account seeded with the free credit allotment,
// grants the welcome bonus and redeems an optional referral code.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	acc := &Account{
		ID:            uuid.New(),
		Email:         normalizeEmail(req.Email),
		PasswordHash:  hash,
		Plan:          PlanFree,
		CreditBalance: s.signupCredits,
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", acc.ID.String()).
		Str("referral_code", acc.ReferralCode).
		Int("signup_credits", s.signupCredits).
		Msg("account registered")

	// Signup rewards are best-effort: the account exists either way.
	if s.rewarder != nil {
		s.rewarder.GrantWelcome(ctx, acc.ID)

		if code := strings.ToUpper(strings.TrimSpace(req.ReferralCode)); code != "" {
			if err := s.rewarder.RedeemReferralCode(ctx, code, acc.ID); err != nil {
				log.Warn().
					Err(err).
					Str("account_id", acc.ID.String()).
					Str("referral_code", code).
					Msg("referral code not redeemed")
			}
		}
	}

	// Re-read so the response reflects signup rewards
	created, err := s.repo.GetByID(ctx, acc.ID)
	if err != nil {
		created = acc
	}

	return s.authResponse(created)
}

// Login verifies credentials and issues a JWT pair
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	acc, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, acc.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.TouchLogin(ctx, acc.ID); err != nil {
		log.Warn().Err(err).Str("account_id", acc.ID.String()).Msg("failed to record login time")
	}

	return s.authResponse(acc)
}

// Refresh exchanges a valid refresh token for a new JWT pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	acc, err := s.repo.GetByID(ctx, claims.AccountID)
	if err != nil {
		return nil, err
	}

	return s.authResponse(acc)
}

// Get resolves an account id into the current account snapshot
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) authResponse(acc *Account) (*AuthResponse, error) {
	access, err := s.jwtService.GenerateAccessToken(acc.ID, string(acc.Plan))
	if err != nil {
		return nil, err
	}

	refresh, err := s.jwtService.GenerateRefreshToken(acc.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Account: toAccountResponse(acc),
		Tokens: TokensResponse{
			AccessToken:  access,
			RefreshToken: refresh,
			ExpiresIn:    int64(s.jwtService.GetAccessTTL().Seconds()),
		},
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
