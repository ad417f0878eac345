// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ytvaala/ytvaala/internal/apperr"
	"github.com/ytvaala/ytvaala/internal/ledger"
	"github.com/ytvaala/ytvaala/internal/model"
	"github.com/ytvaala/ytvaala/internal/repository"
)

// SignupBonusDescription labels the credit granted at registration.
const SignupBonusDescription = "Signup bonus"

// Account errors returned to clients.
var (
	ErrEmailTaken         = apperr.BadRequest("User with this email already exists")
	ErrInvalidCredentials = apperr.Unauthorized("Invalid email or password")
	ErrUserNotFound       = apperr.NotFound("User not found")
)

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	DeleteAccount(ctx context.Context, id string) error
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// TokenSigner issues bearer tokens.
type TokenSigner interface {
	Sign(id model.Identity) (string, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User  *model.Account `json:"user"`
	Token string         `json:"token"`
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Email    string
	Password string
	Name     *string
}

// AccountService handles registration, login and profile lookups.
type AccountService struct {
	accounts    AccountStore
	credits     *ledger.Ledger
	hasher      PasswordHasher
	tokens      TokenSigner
	signupBonus int64
	logger      *slog.Logger
	now         func() time.Time
}

// NewAccountService creates a new AccountService.
func NewAccountService(accounts AccountStore, credits *ledger.Ledger, hasher PasswordHasher, tokens TokenSigner, signupBonus int64, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{
		accounts:    accounts,
		credits:     credits,
		hasher:      hasher,
		tokens:      tokens,
		signupBonus: signupBonus,
		logger:      logger.With("component", "accounts"),
		now:         time.Now,
	}
}

// Register creates an account, grants the signup bonus through the ledger
// and issues a token. If the bonus cannot be granted the account is removed
// again so the email stays free for a retry.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	account := &model.Account{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         input.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if s.signupBonus > 0 {
		receipt, err := s.credits.AddCredits(ctx, account.ID, s.signupBonus, SignupBonusDescription)
		if err != nil {
			s.logger.ErrorContext(ctx, "signup bonus not granted",
				slog.String("account_id", account.ID),
				slog.String("error", err.Error()),
			)
			if delErr := s.accounts.DeleteAccount(context.WithoutCancel(ctx), account.ID); delErr != nil {
				s.logger.ErrorContext(ctx, "failed to remove account after bonus failure",
					slog.String("account_id", account.ID),
					slog.String("error", delErr.Error()),
				)
			}
			return nil, fmt.Errorf("failed to grant signup bonus: %w", err)
		}
		account.Credits = receipt.Balance
	}

	s.logger.InfoContext(ctx, "account registered", slog.String("account_id", account.ID))
	return s.issue(account)
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords produce the same error.
func (s *AccountService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		s.logger.WarnContext(ctx, "stored password hash unreadable",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issue(account)
}

// Me returns the caller's account.
func (s *AccountService) Me(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func (s *AccountService) issue(account *model.Account) (*AuthResult, error) {
	token, err := s.tokens.Sign(model.Identity{AccountID: account.ID, Email: account.Email})
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &AuthResult{User: account, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
