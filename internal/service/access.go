// Package service contains the business logic layer of the application.
//
// The dependency chain mirrors the rest of the repo:
//
//	Handler (HTTP) → Service (business rules) → Repository (DB)
//	              ↘ auth.TokenService / auth.PasswordService
//
// Services accept primitives and return domain models and apperror kinds;
// they know nothing about HTTP.
package service

import (
	"context"
	"log/slog"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/auth"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

// AccessService resolves "who is calling and what may they do".
//
// ResolveAccount runs the fixed stages every protected operation needs:
//
//	1. token presence        → Unauthorized
//	2. token verification    → Unauthorized
//	3. account resolution    → Unauthorized (same message as 2 — a deleted
//	                           subject must not be distinguishable from a
//	                           malformed token by the caller)
//	4. lifecycle gate        → Forbidden (deactivated / banned)
//
// The role gate (RequireAdmin) and the ownership gate (RequireOwnerOrAdmin)
// are selected per operation on top of the resolved account. When no stage
// fails, the returned account is trusted for the rest of the request.
type AccessService struct {
	accounts repository.AccountRepository
	tokens   *auth.TokenService
	logger   *slog.Logger
}

// NewAccessService creates an AccessService with all required dependencies.
func NewAccessService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AccessService {
	return &AccessService{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
}

// ResolveAccount turns a presented bearer token into a trusted acting
// account, or fails with the stage-specific outcome described above.
// rawToken may be empty — that is valid input meaning "unauthenticated".
func (s *AccessService) ResolveAccount(ctx context.Context, rawToken string) (*model.Account, error) {
	if rawToken == "" {
		return nil, apperror.Unauthorized("authentication required")
	}

	accountID, err := s.tokens.Verify(rawToken)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired token")
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		// The subject no longer resolves to an account. Internally a
		// distinct branch, externally identical to a bad token.
		s.logger.Warn("token subject does not resolve",
			slog.Int64("accountID", accountID),
		)
		return nil, apperror.Unauthorized("invalid or expired token")
	}

	if !acct.Active {
		return nil, apperror.Forbidden("account deactivated")
	}
	if acct.Banned {
		return nil, apperror.Forbidden("account banned")
	}

	return acct, nil
}

// ResolveAdmin resolves the acting account and additionally requires the
// admin role.
func (s *AccessService) ResolveAdmin(ctx context.Context, rawToken string) (*model.Account, error) {
	acct, err := s.ResolveAccount(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if err := s.RequireAdmin(acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// RequireAdmin is the role gate: the resolved account must hold the admin
// role.
func (s *AccessService) RequireAdmin(acct *model.Account) error {
	if !acct.Admin {
		return apperror.Forbidden("admin required")
	}
	return nil
}

// RequireOwnerOrAdmin is the ownership gate: the resolved account must own
// the target resource or hold the admin role.
func (s *AccessService) RequireOwnerOrAdmin(acct *model.Account, ownerID int64) error {
	if acct.ID == ownerID || acct.Admin {
		return nil
	}
	return apperror.Forbidden("access denied")
}
