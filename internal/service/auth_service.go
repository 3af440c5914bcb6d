package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/notify"
	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/internal/utils"
	"github.com/Baaaki/yamdb/pkg/logger"
	"go.uber.org/zap"
)

const confirmationSubject = "Confirmation code"

// AccountStore is the persistence the account flows need.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	List(ctx context.Context, search string, page repository.Page) ([]models.Account, int64, error)
	ConsumeCode(ctx context.Context, id uint, nonce uint64, now time.Time) (bool, error)
	Delete(ctx context.Context, id uint) error
}

// CodeIssuer makes and checks confirmation codes.
type CodeIssuer interface {
	Make(account *models.Account) string
	Check(account *models.Account, code string) bool
}

// TokenIssuer turns a verified account into bearer tokens.
type TokenIssuer interface {
	IssuePair(account *models.Account) (utils.TokenPair, error)
	IssueAccess(account *models.Account) (string, error)
	Parse(token string, kind utils.TokenType) (*utils.Claims, error)
}

type AuthService struct {
	accounts  AccountStore
	validator *IdentityValidator
	codes     CodeIssuer
	tokens    TokenIssuer
	notifier  notify.Notifier
	now       func() time.Time
}

func NewAuthService(accounts AccountStore, codes CodeIssuer, tokens TokenIssuer, notifier notify.Notifier) *AuthService {
	return &AuthService{
		accounts:  accounts,
		validator: NewIdentityValidator(accounts),
		codes:     codes,
		tokens:    tokens,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Signup registers an unconfirmed account and mails it a confirmation code.
// Submitting an existing username/email pair again only sends a fresh code.
func (s *AuthService) Signup(ctx context.Context, username, email string) (*models.Account, error) {
	start := time.Now()

	logger.Log.Debug("Processing signup",
		zap.String("username", username),
		zap.String("email", email),
	)

	existing, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to look up username",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, err
	}
	if existing != nil && existing.Email == email {
		logger.Log.Info("Signup resubmitted, reissuing code",
			zap.Uint("account_id", existing.ID),
			zap.String("username", username),
		)
		if err := s.sendCode(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if err := s.validator.Validate(ctx, username, email, 0); err != nil {
		logger.Log.Warn("Signup validation failed",
			zap.String("username", username),
			zap.String("email", email),
			zap.Error(err),
		)
		return nil, err
	}

	account := &models.Account{
		Username: username,
		Email:    email,
		Role:     models.RoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost a race with a concurrent signup; report it like the pre-check would
			if verr := s.validator.Validate(ctx, username, email, 0); verr != nil {
				return nil, verr
			}
			return nil, NewValidationError(CodeDuplicateUsername, "username", "A user with that username already exists.")
		}
		logger.Log.Error("Failed to create account",
			zap.String("username", username),
			zap.Error(err),
		)
		return nil, err
	}

	if err := s.sendCode(ctx, account); err != nil {
		return nil, err
	}

	logger.Log.Info("Account registered",
		zap.Uint("account_id", account.ID),
		zap.String("username", username),
		zap.Duration("total_duration", time.Since(start)),
	)
	return account, nil
}

func (s *AuthService) sendCode(ctx context.Context, account *models.Account) error {
	code := s.codes.Make(account)
	body := fmt.Sprintf("Your confirmation code: %s", code)

	if err := s.notifier.Send(ctx, account.Email, confirmationSubject, body); err != nil {
		logger.Log.Error("Failed to deliver confirmation code",
			zap.Uint("account_id", account.ID),
			zap.String("email", account.Email),
			zap.Error(err),
		)
		return &DeliveryError{Err: err}
	}
	return nil
}

// Token exchanges a confirmation code for an access/refresh pair. A code works once.
func (s *AuthService) Token(ctx context.Context, username, code string) (utils.TokenPair, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		logger.Log.Error("Failed to look up username",
			zap.String("username", username),
			zap.Error(err),
		)
		return utils.TokenPair{}, err
	}
	if account == nil {
		logger.Log.Warn("Token request for unknown user", zap.String("username", username))
		return utils.TokenPair{}, ErrUnknownUser
	}

	if !s.codes.Check(account, code) {
		logger.Log.Warn("Token request with invalid code", zap.Uint("account_id", account.ID))
		return utils.TokenPair{}, ErrInvalidCode
	}

	now := s.now()
	consumed, err := s.accounts.ConsumeCode(ctx, account.ID, account.CodeNonce, now)
	if err != nil {
		logger.Log.Error("Failed to consume confirmation code",
			zap.Uint("account_id", account.ID),
			zap.Error(err),
		)
		return utils.TokenPair{}, err
	}
	if !consumed {
		logger.Log.Warn("Confirmation code already used", zap.Uint("account_id", account.ID))
		return utils.TokenPair{}, ErrInvalidCode
	}

	pair, err := s.tokens.IssuePair(account)
	if err != nil {
		logger.Log.Error("Failed to issue tokens",
			zap.Uint("account_id", account.ID),
			zap.Error(err),
		)
		return utils.TokenPair{}, err
	}

	logger.Log.Info("Account verified",
		zap.Uint("account_id", account.ID),
		zap.String("username", account.Username),
	)
	return pair, nil
}

// Refresh issues a new access token for a still valid refresh token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.Parse(refreshToken, utils.RefreshToken)
	if err != nil {
		return "", err
	}

	account, err := s.accounts.GetByID(ctx, claims.UserID)
	if err != nil {
		return "", err
	}
	if account == nil {
		logger.Log.Warn("Refresh token for deleted account", zap.Uint("account_id", claims.UserID))
		return "", utils.ErrInvalidToken
	}

	return s.tokens.IssueAccess(account)
}
