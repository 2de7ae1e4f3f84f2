package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avolkov/bookshelf/internal/apperror"
)

// =========================================================================
// PROMOTE / DEMOTE
// =========================================================================

func TestPromoteDemote_RoundTrip(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.registerAdmin(t, "root")
	target := e.register(t, "candidate")

	promoted, err := e.lifecycle.Promote(ctx, admin, target.ID)
	if err != nil {
		t.Fatalf("Promote() error = %v", err)
	}
	if !promoted.Admin {
		t.Error("Promote() did not set the admin role")
	}

	demoted, err := e.lifecycle.Demote(ctx, admin, target.ID)
	if err != nil {
		t.Fatalf("Demote() error = %v", err)
	}
	if demoted.Admin {
		t.Error("Demote() did not clear the admin role")
	}
}

func TestPromote_SelfGuardPerformsNoWrite(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.registerAdmin(t, "selfpromoter")

	before, _ := e.db.Accounts().GetByID(ctx, admin.ID)

	_, err := e.lifecycle.Promote(ctx, admin, admin.ID)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Promote(self) error = %v, want ErrValidation", err)
	}
	if got := appMessage(t, err); got != "cannot promote yourself" {
		t.Errorf("message = %q, want %q", got, "cannot promote yourself")
	}

	after, _ := e.db.Accounts().GetByID(ctx, admin.ID)
	if *before != *after {
		t.Error("rejected self-promotion still modified the account")
	}
}

func TestDemote_SelfGuard(t *testing.T) {
	e := newTestEnv(t)
	admin := e.registerAdmin(t, "selfdemoter")

	_, err := e.lifecycle.Demote(context.Background(), admin, admin.ID)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Demote(self) error = %v, want ErrValidation", err)
	}
	if got := appMessage(t, err); got != "cannot demote yourself" {
		t.Errorf("message = %q, want %q", got, "cannot demote yourself")
	}
}

func TestPromote_MissingTarget(t *testing.T) {
	e := newTestEnv(t)
	admin := e.registerAdmin(t, "root2")

	_, err := e.lifecycle.Promote(context.Background(), admin, 9999)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Promote(missing) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// BAN / UNBAN
// =========================================================================

func TestBanUnban_EndToEnd(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.registerAdmin(t, "moderator")
	target := e.register(t, "offender")

	banned, err := e.lifecycle.Ban(ctx, admin, target.ID, "  repeated spam  ")
	if err != nil {
		t.Fatalf("Ban() error = %v", err)
	}
	if !banned.Banned || banned.BannedAt == nil || banned.BanReason == nil {
		t.Fatalf("Ban() triplet incomplete: %+v", banned)
	}
	if *banned.BanReason != "repeated spam" {
		t.Errorf("BanReason = %q, want trimmed %q", *banned.BanReason, "repeated spam")
	}

	// The banned account cannot log in, even with correct credentials.
	if _, err := e.accounts.Authenticate(ctx, "offender", "password123"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Authenticate() while banned error = %v, want ErrUnauthorized", err)
	}

	unbanned, err := e.lifecycle.Unban(ctx, admin, target.ID)
	if err != nil {
		t.Fatalf("Unban() error = %v", err)
	}
	if unbanned.Banned || unbanned.BannedAt != nil || unbanned.BanReason != nil {
		t.Errorf("Unban() left ban fields set: %+v", unbanned)
	}

	// And the account works again.
	if _, err := e.accounts.Authenticate(ctx, "offender", "password123"); err != nil {
		t.Errorf("Authenticate() after unban error = %v", err)
	}
}

func TestBan_SelfGuard(t *testing.T) {
	e := newTestEnv(t)
	admin := e.registerAdmin(t, "selfbanner")

	_, err := e.lifecycle.Ban(context.Background(), admin, admin.ID, "")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Ban(self) error = %v, want ErrValidation", err)
	}
	if got := appMessage(t, err); got != "cannot ban yourself" {
		t.Errorf("message = %q, want %q", got, "cannot ban yourself")
	}
}

func TestBan_AdminTargetRejectedBeforeWrite(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.registerAdmin(t, "senior")
	peer := e.registerAdmin(t, "junioradmin")

	_, err := e.lifecycle.Ban(ctx, admin, peer.ID, "office politics")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Ban(admin) error = %v, want ErrValidation", err)
	}
	if got := appMessage(t, err); got != "cannot ban an administrator" {
		t.Errorf("message = %q, want %q", got, "cannot ban an administrator")
	}

	after, _ := e.db.Accounts().GetByID(ctx, peer.ID)
	if after.Banned || after.BannedAt != nil {
		t.Error("rejected ban still wrote ban fields")
	}
}

func TestBan_ReasonTooLong(t *testing.T) {
	e := newTestEnv(t)
	admin := e.registerAdmin(t, "verbose")
	target := e.register(t, "victim")

	_, err := e.lifecycle.Ban(context.Background(), admin, target.ID, strings.Repeat("x", 501))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Ban() with oversized reason error = %v, want ErrValidation", err)
	}
}

func TestUnban_IsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.registerAdmin(t, "forgiver")
	target := e.register(t, "neverbanned")

	// Unbanning an account that was never banned succeeds and leaves the
	// paired fields null.
	acct, err := e.lifecycle.Unban(ctx, admin, target.ID)
	if err != nil {
		t.Fatalf("Unban() on clean account error = %v", err)
	}
	if acct.Banned || acct.BannedAt != nil || acct.BanReason != nil {
		t.Errorf("Unban() produced ban fields from nothing: %+v", acct)
	}
}

// =========================================================================
// DEACTIVATE / ACTIVATE
// =========================================================================

func TestAdminDeactivate_SelfGuard(t *testing.T) {
	e := newTestEnv(t)
	admin := e.registerAdmin(t, "selfoff")

	_, err := e.lifecycle.Deactivate(context.Background(), admin, admin.ID)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Deactivate(self) error = %v, want ErrValidation", err)
	}
	if got := appMessage(t, err); got != "cannot deactivate yourself" {
		t.Errorf("message = %q, want %q", got, "cannot deactivate yourself")
	}
}

func TestAdminDeactivateActivate_RoundTrip(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.registerAdmin(t, "operator")
	target := e.register(t, "suspendee")

	deactivated, err := e.lifecycle.Deactivate(ctx, admin, target.ID)
	if err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	if deactivated.Active {
		t.Error("Deactivate() left the account active")
	}

	activated, err := e.lifecycle.Activate(ctx, admin, target.ID)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if !activated.Active {
		t.Error("Activate() did not reinstate the account")
	}
	if _, err := e.accounts.Authenticate(ctx, "suspendee", "password123"); err != nil {
		t.Errorf("Authenticate() after reinstatement error = %v", err)
	}
}

// =========================================================================
// LISTINGS
// =========================================================================

func TestLifecycleListings(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	admin := e.registerAdmin(t, "lister")
	bannedTarget := e.register(t, "tobeban")
	inactiveTarget := e.register(t, "tobeoff")

	if _, err := e.lifecycle.Ban(ctx, admin, bannedTarget.ID, "x"); err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if _, err := e.lifecycle.Deactivate(ctx, admin, inactiveTarget.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	admins, err := e.lifecycle.ListAdmins(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListAdmins() error = %v", err)
	}
	if len(admins) != 1 || admins[0].ID != admin.ID {
		t.Errorf("ListAdmins() = %+v, want just %d", admins, admin.ID)
	}

	bannedList, err := e.lifecycle.ListBanned(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListBanned() error = %v", err)
	}
	if len(bannedList) != 1 || bannedList[0].ID != bannedTarget.ID {
		t.Errorf("ListBanned() = %+v, want just %d", bannedList, bannedTarget.ID)
	}

	inactiveList, err := e.lifecycle.ListInactive(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListInactive() error = %v", err)
	}
	if len(inactiveList) != 1 || inactiveList[0].ID != inactiveTarget.ID {
		t.Errorf("ListInactive() = %+v, want just %d", inactiveList, inactiveTarget.ID)
	}
}
