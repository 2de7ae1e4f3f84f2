package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/auth"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

// Validation constants.
const (
	MaxUsernameLength = 50
	MaxEmailLength    = 100
	MinPasswordLength = 8
)

// AccountService handles registration, login and profile management.
type AccountService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAccountService creates an AccountService with all required dependencies.
func NewAccountService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new account from self-service registration.
//
// Username and email uniqueness are pre-checked here, but the pre-checks
// race against concurrent registrations; the storage UNIQUE constraints are
// the backstop, and the repository already reports their violation as the
// same AlreadyExists kind.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, apperror.AlreadyExists("account", "username", username)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: checking username: %w", err)
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, apperror.AlreadyExists("account", "email", email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/account: checking email: %w", err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password is not usable")
	}

	acct := &model.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, apperror.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: creating account %q: %w", username, err)
	}

	s.logger.Info("account registered",
		slog.Int64("accountID", acct.ID),
		slog.String("username", acct.Username),
	)

	return acct, nil
}

// LoginResult bundles the authenticated account with its issued token so
// the handler can respond in one step.
type LoginResult struct {
	Account *model.Account
	Token   string
}

// errBadCredentials is the single outcome for every authentication failure.
// Unknown username, wrong password, deactivated and banned all look the
// same from the outside — the login endpoint must not leak which accounts
// exist or what state they are in.
func errBadCredentials() error {
	return apperror.Unauthorized("incorrect username or password")
}

// Authenticate verifies credentials and issues a token.
//
// Success requires all of: the username resolves, the password matches the
// stored digest, the account is active, the account is not banned. Changing
// any one condition flips the result to the uniform failure.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	acct, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials()
		}
		return nil, fmt.Errorf("service/account: loading account for login: %w", err)
	}

	if !s.passwords.Verify(acct.PasswordHash, password) {
		return nil, errBadCredentials()
	}
	if !acct.CanAuthenticate() {
		return nil, errBadCredentials()
	}

	token, err := s.tokens.Issue(acct.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: issuing token for account %d: %w", acct.ID, err)
	}

	s.logger.Info("account authenticated",
		slog.Int64("accountID", acct.ID),
		slog.String("username", acct.Username),
	)

	return &LoginResult{Account: acct, Token: token}, nil
}

// GetByID returns the account with the given identifier.
func (s *AccountService) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// GetByUsername returns the account with the given username.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.accounts.GetByUsername(ctx, username)
}

// GetByEmail returns the account with the given email address.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.accounts.GetByEmail(ctx, email)
}

// List returns a page of active accounts.
func (s *AccountService) List(ctx context.Context, limit, offset int) ([]model.Account, error) {
	return s.accounts.ListActive(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}

// ProfileUpdate is the self-service/admin profile patch. Nil fields are
// left untouched. Admin and Active are honored only when the actor is an
// admin editing someone else — an account can never toggle its own flags.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
	Admin    *bool
	Active   *bool
}

// UpdateProfile patches an account. The caller has already passed the
// ownership-or-admin gate; actor is the resolved acting account.
//
// A plaintext password in the patch is replaced by its bcrypt digest here —
// plaintext never reaches the repository layer. Username/email changes are
// pre-checked against reassignment into a uniqueness violation, with the
// storage constraint as backstop.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *model.Account, targetID int64, in ProfileUpdate) (*model.Account, error) {
	patch := model.AccountPatch{}

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if username == "" {
			return nil, apperror.ValidationFailed("username", "username is required")
		}
		if len(username) > MaxUsernameLength {
			return nil, apperror.ValidationFailed("username",
				fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
		}
		if existing, err := s.accounts.GetByUsername(ctx, username); err == nil && existing.ID != targetID {
			return nil, apperror.AlreadyExists("account", "username", username)
		} else if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/account: checking username: %w", err)
		}
		patch.Username = &username
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if existing, err := s.accounts.GetByEmail(ctx, email); err == nil && existing.ID != targetID {
			return nil, apperror.AlreadyExists("account", "email", email)
		} else if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/account: checking email: %w", err)
		}
		patch.Email = &email
	}

	if in.Password != nil {
		if len(*in.Password) < MinPasswordLength {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
		}
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, apperror.ValidationFailed("password", "password is not usable")
		}
		patch.PasswordHash = &hash
	}

	// Role and lifecycle flags are ignored on self-edits, admin or not.
	if actor.ID != targetID && actor.Admin {
		patch.Admin = in.Admin
		patch.Active = in.Active
	}

	acct, err := s.accounts.Update(ctx, targetID, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account profile updated",
		slog.Int64("accountID", targetID),
		slog.Int64("actorID", actor.ID),
	)

	return acct, nil
}

// Deactivate is the self-service "delete my account" path (also available
// to admins through the same owner-or-admin gate). The record is kept and
// every dependent review/favorite stays valid; the account just can no
// longer authenticate.
func (s *AccountService) Deactivate(ctx context.Context, actor *model.Account, targetID int64) (*model.Account, error) {
	acct, err := s.accounts.SetActive(ctx, targetID, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account deactivated",
		slog.Int64("accountID", targetID),
		slog.Int64("actorID", actor.ID),
	)

	return acct, nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return apperror.ValidationFailed("email",
			fmt.Sprintf("email must be %d characters or less", MaxEmailLength))
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperror.ValidationFailed("email", "email address is not valid")
	}
	return nil
}
