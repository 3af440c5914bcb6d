package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Baaaki/yamdb/internal/access"
	"github.com/Baaaki/yamdb/internal/audit"
	"github.com/Baaaki/yamdb/internal/models"
	"github.com/Baaaki/yamdb/internal/repository"
	"github.com/Baaaki/yamdb/pkg/logger"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const maxNameLength = 150

// ProfileUpdate is a partial account edit; nil fields are left alone.
type ProfileUpdate struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
	Bio       *string
	Role      *models.Role
}

// NewAccount is what an administrator submits to create an account.
type NewAccount struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Bio       string
	Role      models.Role
}

type AccountService struct {
	accounts  AccountStore
	validator *IdentityValidator
	policy    *bluemonday.Policy
	audit     audit.Recorder
}

func NewAccountService(accounts AccountStore, recorder audit.Recorder) *AccountService {
	return &AccountService{
		accounts:  accounts,
		validator: NewIdentityValidator(accounts),
		policy:    bluemonday.StrictPolicy(),
		audit:     recorder,
	}
}

// Me returns the caller's own account.
func (s *AccountService) Me(_ context.Context, actor *models.Account) (*models.Account, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return actor, nil
}

// UpdateMe edits the caller's own profile. A proposed role is ignored.
func (s *AccountService) UpdateMe(ctx context.Context, actor *models.Account, upd ProfileUpdate) (*models.Account, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}

	target := *actor
	if err := s.apply(ctx, &target, upd, false); err != nil {
		return nil, err
	}

	logger.Log.Info("Profile updated",
		zap.Uint("account_id", target.ID),
		zap.String("username", target.Username),
	)
	return &target, nil
}

func (s *AccountService) List(ctx context.Context, actor *models.Account, search string, page repository.Page) ([]models.Account, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	return s.accounts.List(ctx, search, page)
}

func (s *AccountService) Get(ctx context.Context, actor *models.Account, username string) (*models.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.lookup(ctx, username)
}

// Create adds an account on behalf of an administrator. The account still has to
// confirm its email through signup before it can obtain tokens.
func (s *AccountService) Create(ctx context.Context, actor *models.Account, in NewAccount) (*models.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(ctx, in.Username, in.Email, 0); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return nil, NewValidationError(CodeInvalid, "role", fmt.Sprintf("%q is not a valid choice.", string(role)))
	}

	account := &models.Account{
		Username:  in.Username,
		Email:     in.Email,
		Role:      role,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       stripMarkup(s.policy, in.Bio),
	}
	if err := checkNames(account); err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError(CodeDuplicateUsername, "username", "A user with that username already exists.")
		}
		return nil, err
	}

	s.record(ctx, actor, "account.create", account.Username, "role="+string(account.Role))
	return account, nil
}

// Update edits any account, role included.
func (s *AccountService) Update(ctx context.Context, actor *models.Account, username string, upd ProfileUpdate) (*models.Account, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	target, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	before := target.Role

	if err := s.apply(ctx, target, upd, true); err != nil {
		return nil, err
	}

	detail := ""
	if target.Role != before {
		detail = fmt.Sprintf("role=%s->%s", before, target.Role)
	}
	s.record(ctx, actor, "account.update", username, detail)
	return target, nil
}

func (s *AccountService) Delete(ctx context.Context, actor *models.Account, username string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	target, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, target.ID); err != nil {
		logger.Log.Error("Failed to delete account",
			zap.Uint("account_id", target.ID),
			zap.Error(err),
		)
		return err
	}

	s.record(ctx, actor, "account.delete", username, "")
	return nil
}

func (s *AccountService) lookup(ctx context.Context, username string) (*models.Account, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return account, nil
}

func (s *AccountService) apply(ctx context.Context, target *models.Account, upd ProfileUpdate, privileged bool) error {
	username, email := target.Username, target.Email
	if upd.Username != nil {
		username = *upd.Username
	}
	if upd.Email != nil {
		email = *upd.Email
	}
	if username != target.Username || email != target.Email {
		if err := s.validator.Validate(ctx, username, email, target.ID); err != nil {
			return err
		}
	}

	role, err := ResolveRole(target.Role, upd.Role, privileged)
	if err != nil {
		return err
	}

	target.Username = username
	target.Email = email
	target.Role = role
	if upd.FirstName != nil {
		target.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		target.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Bio != nil {
		target.Bio = stripMarkup(s.policy, *upd.Bio)
	}
	if err := checkNames(target); err != nil {
		return err
	}

	if err := s.accounts.Update(ctx, target); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return NewValidationError(CodeDuplicateUsername, "username", "A user with that username already exists.")
		}
		return err
	}
	return nil
}

func checkNames(a *models.Account) error {
	var verr *ValidationError
	if len(a.FirstName) > maxNameLength {
		verr = NewValidationError(CodeInvalid, "first_name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
	}
	if len(a.LastName) > maxNameLength {
		if verr == nil {
			verr = &ValidationError{Code: CodeInvalid}
		}
		verr.Add("last_name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLength))
	}
	if verr != nil {
		return verr
	}
	return nil
}

func (s *AccountService) record(ctx context.Context, actor *models.Account, action, target, detail string) {
	recordAudit(ctx, s.audit, actor, action, target, detail)
}

func requireAdmin(actor *models.Account) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !access.IsAdminOrSuper(actor) {
		return ErrPermissionDenied
	}
	return nil
}

// recordAudit never fails the request; the change it describes is already committed.
func recordAudit(ctx context.Context, recorder audit.Recorder, actor *models.Account, action, target, detail string) {
	err := recorder.Record(ctx, audit.Entry{
		Actor:  actor.Username,
		Action: action,
		Target: target,
		Detail: detail,
	})
	if err != nil {
		logger.Log.Error("Failed to record audit entry",
			zap.String("action", action),
			zap.String("target", target),
			zap.Error(err),
		)
	}
}
