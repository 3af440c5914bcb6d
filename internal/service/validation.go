package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Baaaki/yamdb/internal/models"
	"github.com/go-playground/validator/v10"
)

const (
	// ReservedUsername collides with the /users/me route.
	ReservedUsername  = "me"
	MaxUsernameLength = 150
	MaxEmailLength    = 254
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.@+-]+$`)
	validate        = validator.New()
)

// ValidUsername reports whether s only uses the allowed username characters.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

type identityLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// IdentityValidator checks a username/email pair before it is persisted.
type IdentityValidator struct {
	accounts identityLookup
}

func NewIdentityValidator(accounts identityLookup) *IdentityValidator {
	return &IdentityValidator{accounts: accounts}
}

// Validate runs the format checks first and the uniqueness checks last.
// exceptID names the account being edited so it does not collide with itself.
func (v *IdentityValidator) Validate(ctx context.Context, username, email string, exceptID uint) error {
	if err := checkUsername(username); err != nil {
		return err
	}
	if err := checkEmail(email); err != nil {
		return err
	}

	existing, err := v.accounts.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != exceptID {
		return NewValidationError(CodeDuplicateUsername, "username", "A user with that username already exists.")
	}

	existing, err = v.accounts.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != exceptID {
		return NewValidationError(CodeDuplicateEmail, "email", "A user with that email already exists.")
	}
	return nil
}

func checkUsername(username string) error {
	switch {
	case username == "":
		return NewValidationError(CodeInvalid, "username", "This field is required.")
	case username == ReservedUsername:
		return NewValidationError(CodeReservedName, "username", fmt.Sprintf("The username %q is reserved.", ReservedUsername))
	case !ValidUsername(username):
		return NewValidationError(CodeInvalidCharacter, "username", "Only letters, digits and @/./+/-/_ are allowed.")
	case len(username) > MaxUsernameLength:
		return NewValidationError(CodeInvalid, "username", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxUsernameLength))
	}
	return nil
}

func checkEmail(email string) error {
	if email == "" {
		return NewValidationError(CodeInvalid, "email", "This field is required.")
	}
	if len(email) > MaxEmailLength {
		return NewValidationError(CodeInvalid, "email", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxEmailLength))
	}
	if err := validate.Var(email, "email"); err != nil {
		return NewValidationError(CodeInvalid, "email", "Enter a valid email address.")
	}
	return nil
}

// ResolveRole applies the role-mutation guard. Self-service edits keep the
// current role whatever was proposed; privileged edits may set any valid role.
func ResolveRole(current models.Role, proposed *models.Role, privileged bool) (models.Role, error) {
	if proposed == nil || !privileged {
		return current, nil
	}
	if !proposed.Valid() {
		return "", NewValidationError(CodeInvalid, "role", fmt.Sprintf("%q is not a valid choice.", string(*proposed)))
	}
	return *proposed, nil
}
