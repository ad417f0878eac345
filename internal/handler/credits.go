package handler

import (
	"log/slog"

	"github.com/ytvaala/ytvaala/internal/handler/dto"
	"github.com/ytvaala/ytvaala/internal/ledger"
	"github.com/ytvaala/ytvaala/internal/router"
	"github.com/ytvaala/ytvaala/internal/validation"
)

// CreditsHandler exposes the caller's balance and ledger.
type CreditsHandler struct {
	ledger    *ledger.Ledger
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCreditsHandler creates a new CreditsHandler.
func NewCreditsHandler(l *ledger.Ledger, v *validation.Validator, logger *slog.Logger) *CreditsHandler {
	return &CreditsHandler{ledger: l, validator: v, logger: logger}
}

// Balance handles GET /credits/balance.
func (h *CreditsHandler) Balance(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}

	credits, err := h.ledger.Balance(c.Context(), id)
	if err != nil {
		return nil, err
	}
	return dto.BalanceResponse{Credits: credits}, nil
}

// Add handles POST /credits/add.
func (h *CreditsHandler) Add(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}

	var req dto.AddCreditsRequest
	if err := bind(c, h.validator, &req); err != nil {
		return nil, err
	}

	receipt, err := h.ledger.AddCredits(c.Context(), id, req.Amount, req.Description)
	if err != nil {
		return nil, err
	}

	h.logger.InfoContext(c.Context(), "credits_added",
		slog.String("account_id", id),
		slog.Int64("amount", req.Amount),
		slog.Int64("balance", receipt.Balance),
	)
	return receipt, nil
}

// History handles GET /credits/history.
func (h *CreditsHandler) History(c *router.Context) (any, error) {
	id, err := accountID(c)
	if err != nil {
		return nil, err
	}
	return h.ledger.History(c.Context(), id, queryLimit(c))
}
