package account

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/smartsaas/smartsaas-api/internal/middleware"
	"github.com/smartsaas/smartsaas-api/internal/pkg/jwt"
	"github.com/smartsaas/smartsaas-api/internal/pkg/response"
	"github.com/smartsaas/smartsaas-api/internal/pkg/validator"
)

// Handler handles account HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates account handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			response.Conflict(w, "Email already registered")
		case errors.Is(err, ErrCodeGenerationExhausted):
			log.Error().Err(err).Str("email", req.Email).Msg("referral code space exhausted")
			response.InternalError(w)
		default:
			log.Error().Err(err).Str("email", req.Email).Msg("failed to register account")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, result)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid email or password")
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("failed to login")
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// Refresh handles POST /auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpiredToken):
			response.Unauthorized(w, "Refresh token expired")
		case errors.Is(err, jwt.ErrInvalidToken), errors.Is(err, ErrNotFound):
			response.Unauthorized(w, "Invalid refresh token")
		default:
			log.Error().Err(err).Msg("failed to refresh tokens")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, result)
}

// Me handles GET /auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	acc, err := h.service.Get(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Account not found")
			return
		}
		log.Error().Err(err).Str("account_id", accountID.String()).Msg("failed to load account")
		response.InternalError(w)
		return
	}

	response.OK(w, toAccountResponse(acc))
}
