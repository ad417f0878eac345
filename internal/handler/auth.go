package handler

import (
	"log/slog"

	"github.com/ytvaala/ytvaala/internal/handler/dto"
	"github.com/ytvaala/ytvaala/internal/router"
	"github.com/ytvaala/ytvaala/internal/service"
	"github.com/ytvaala/ytvaala/internal/validation"
)

// AuthHandler handles registration, login and the caller's profile.
type AuthHandler struct {
	accounts  *service.AccountService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *service.AccountService, v *validation.Validator, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, validator: v, logger: logger}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *router.Context) (any, error) {
	var req dto.RegisterRequest
	if err := bind(c, h.validator, &req); err != nil {
		return nil, err
	}

	return h.accounts.Register(c.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *router.Context) (any, error) {
	var req dto.LoginRequest
	if err := bind(c, h.validator, &req); err != nil {
		return nil, err
	}

	return h.accounts.Login(c.Context(), req.Email, req.Password)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}
	return h.accounts.Me(c.Context(), id)
}
