package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

// MaxBanReasonLength bounds the free-text ban reason.
const MaxBanReasonLength = 500

// LifecycleService implements the administrative account state machine:
// promote/demote, ban/unban, deactivate/activate.
//
// Every operation takes the already-resolved acting admin (the handler has
// run the role gate) and applies its own guards BEFORE any write:
//
//   - promote, demote, ban and deactivate refuse to target the actor
//     itself — the guard lives here, not in the transport layer, so the
//     invariant holds for any caller;
//   - ban refuses admin targets outright, whoever asks: an admin must be
//     demoted first. Self-service paths therefore can never create the
//     admin+banned combination.
//
// Each transition is one read-then-conditional-write through the account
// store; a missing target is NotFound, never a silent success, and a guard
// rejection performs zero writes.
type LifecycleService struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// NewLifecycleService creates a LifecycleService.
func NewLifecycleService(accounts repository.AccountRepository, logger *slog.Logger) *LifecycleService {
	return &LifecycleService{accounts: accounts, logger: logger}
}

// Promote grants the admin role to the target account.
func (s *LifecycleService) Promote(ctx context.Context, actor *model.Account, targetID int64) (*model.Account, error) {
	if actor.ID == targetID {
		return nil, apperror.ValidationFailed("id", "cannot promote yourself")
	}

	acct, err := s.accounts.SetAdmin(ctx, targetID, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account promoted to admin",
		slog.Int64("accountID", targetID),
		slog.Int64("actorID", actor.ID),
	)
	return acct, nil
}

// Demote revokes the admin role from the target account.
func (s *LifecycleService) Demote(ctx context.Context, actor *model.Account, targetID int64) (*model.Account, error) {
	if actor.ID == targetID {
		return nil, apperror.ValidationFailed("id", "cannot demote yourself")
	}

	acct, err := s.accounts.SetAdmin(ctx, targetID, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account demoted from admin",
		slog.Int64("accountID", targetID),
		slog.Int64("actorID", actor.ID),
	)
	return acct, nil
}

// Ban blocks the target account. The reason is recorded alongside the ban
// timestamp; the store writes all three ban fields in one statement.
//
// The target is read first: banning an admin is rejected before any write,
// and the read doubles as the existence check so a vanished target is a
// clean NotFound.
func (s *LifecycleService) Ban(ctx context.Context, actor *model.Account, targetID int64, reason string) (*model.Account, error) {
	if actor.ID == targetID {
		return nil, apperror.ValidationFailed("id", "cannot ban yourself")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > MaxBanReasonLength {
		return nil, apperror.ValidationFailed("banReason",
			fmt.Sprintf("ban reason must be %d characters or less", MaxBanReasonLength))
	}

	target, err := s.accounts.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Admin {
		return nil, apperror.ValidationFailed("id", "cannot ban an administrator")
	}

	acct, err := s.accounts.Ban(ctx, targetID, reason)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account banned",
		slog.Int64("accountID", targetID),
		slog.Int64("actorID", actor.ID),
		slog.String("reason", reason),
	)
	return acct, nil
}

// Unban lifts a ban. Unbanning an account that is not banned is harmless —
// the transition is idempotent and the paired fields end up null either way.
func (s *LifecycleService) Unban(ctx context.Context, actor *model.Account, targetID int64) (*model.Account, error) {
	acct, err := s.accounts.Unban(ctx, targetID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account unbanned",
		slog.Int64("accountID", targetID),
		slog.Int64("actorID", actor.ID),
	)
	return acct, nil
}

// Deactivate is the administrative deactivation path and refuses
// self-targeting; an admin deactivating their own account must go through
// the self-service path like everyone else.
func (s *LifecycleService) Deactivate(ctx context.Context, actor *model.Account, targetID int64) (*model.Account, error) {
	if actor.ID == targetID {
		return nil, apperror.ValidationFailed("id", "cannot deactivate yourself")
	}

	acct, err := s.accounts.SetActive(ctx, targetID, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account deactivated by admin",
		slog.Int64("accountID", targetID),
		slog.Int64("actorID", actor.ID),
	)
	return acct, nil
}

// Activate reinstates a deactivated account.
func (s *LifecycleService) Activate(ctx context.Context, actor *model.Account, targetID int64) (*model.Account, error) {
	acct, err := s.accounts.SetActive(ctx, targetID, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account activated",
		slog.Int64("accountID", targetID),
		slog.Int64("actorID", actor.ID),
	)
	return acct, nil
}

// ListAdmins returns a page of active admin accounts.
func (s *LifecycleService) ListAdmins(ctx context.Context, limit, offset int) ([]model.Account, error) {
	return s.accounts.ListAdmins(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}

// ListBanned returns a page of banned accounts.
func (s *LifecycleService) ListBanned(ctx context.Context, limit, offset int) ([]model.Account, error) {
	return s.accounts.ListBanned(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}

// ListInactive returns a page of deactivated accounts.
func (s *LifecycleService) ListInactive(ctx context.Context, limit, offset int) ([]model.Account, error) {
	return s.accounts.ListInactive(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}
