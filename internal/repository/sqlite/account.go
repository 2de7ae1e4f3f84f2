package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

// compile-time check that *AccountDB implements repository.AccountRepository
var _ repository.AccountRepository = (*AccountDB)(nil)

const accountColumns = `id, username, email, password_hash, is_active, is_admin,
	is_banned, banned_at, ban_reason, created_at`

// AccountDB is the account store: the generic CRUD core plus the
// authentication lookups and lifecycle transitions.
type AccountDB struct {
	store[model.Account]
}

func newAccountDB(conn *sql.DB) *AccountDB {
	return &AccountDB{store[model.Account]{
		conn:    conn,
		table:   "accounts",
		name:    "account",
		columns: accountColumns,
		scanRow: scanAccount,
	}}
}

func scanAccount(row rowScanner) (*model.Account, error) {
	var (
		a         model.Account
		bannedAt  sql.NullTime
		banReason sql.NullString
	)
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.Email,
		&a.PasswordHash,
		&a.Active,
		&a.Admin,
		&a.Banned,
		&bannedAt,
		&banReason,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if bannedAt.Valid {
		t := bannedAt.Time
		a.BannedAt = &t
	}
	if banReason.Valid {
		r := banReason.String
		a.BanReason = &r
	}
	return &a, nil
}

// Create inserts a new account. Server-assigned defaults (identifier,
// creation timestamp, active=true, admin=false, banned=false) are written
// back into acct. A UNIQUE violation on username or email is translated to
// the AlreadyExists kind — this is the backstop for the registration race
// the service-level pre-checks cannot close.
func (db *AccountDB) Create(ctx context.Context, acct *model.Account) error {
	acct.Active = true
	acct.Admin = false
	acct.Banned = false
	acct.BannedAt = nil
	acct.BanReason = nil
	acct.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (username, email, password_hash, is_active, is_admin, is_banned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		acct.Username,
		acct.Email,
		acct.PasswordHash,
		acct.Active,
		acct.Admin,
		acct.Banned,
		acct.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return db.uniqueViolationError(err, acct)
		}
		return fmt.Errorf("sqlite: inserting account %q: %w", acct.Username, err)
	}

	acct.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new account id: %w", err)
	}

	return nil
}

// uniqueViolationError picks the offending field out of the driver error so
// the caller learns whether the username or the email collided.
func (db *AccountDB) uniqueViolationError(err error, acct *model.Account) error {
	msg := err.Error()
	if strings.Contains(msg, "accounts.email") {
		return apperror.AlreadyExists("account", "email", acct.Email)
	}
	return apperror.AlreadyExists("account", "username", acct.Username)
}

// Update applies a partial update. Nil patch fields are left untouched; an
// all-nil patch returns the current record unchanged.
func (db *AccountDB) Update(ctx context.Context, id int64, patch model.AccountPatch) (*model.Account, error) {
	var (
		sets []string
		args []any
	)
	if patch.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *patch.Username)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if patch.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *patch.PasswordHash)
	}
	if patch.Active != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *patch.Active)
	}
	if patch.Admin != nil {
		sets = append(sets, "is_admin = ?")
		args = append(args, *patch.Admin)
	}
	return db.patch(ctx, id, sets, args)
}

// GetByUsername looks an account up by its unique username.
func (db *AccountDB) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return db.getByField(ctx, "username", username)
}

// GetByEmail looks an account up by its unique email address.
func (db *AccountDB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.getByField(ctx, "email", email)
}

func (db *AccountDB) getByField(ctx context.Context, field, value string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+field+` = ?`, value)

	acct, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", value)
		}
		return nil, fmt.Errorf("sqlite: getting account by %s: %w", field, err)
	}
	return acct, nil
}

// SetAdmin grants or revokes the admin role.
func (db *AccountDB) SetAdmin(ctx context.Context, id int64, admin bool) (*model.Account, error) {
	return db.patch(ctx, id, []string{"is_admin = ?"}, []any{admin})
}

// SetActive activates or deactivates the account. Deactivation is the
// system's notion of deletion — the row, and everything referencing it,
// stays put.
func (db *AccountDB) SetActive(ctx context.Context, id int64, active bool) (*model.Account, error) {
	return db.patch(ctx, id, []string{"is_active = ?"}, []any{active})
}

// Ban marks the account banned. One UPDATE sets the flag, the timestamp and
// the reason together, so the triplet can never be half-written.
func (db *AccountDB) Ban(ctx context.Context, id int64, reason string) (*model.Account, error) {
	return db.patch(ctx, id,
		[]string{"is_banned = ?", "banned_at = ?", "ban_reason = ?"},
		[]any{true, time.Now().UTC(), reason})
}

// Unban clears the ban. The same single-statement rule as Ban: flag,
// timestamp and reason are nulled together.
func (db *AccountDB) Unban(ctx context.Context, id int64) (*model.Account, error) {
	return db.patch(ctx, id,
		[]string{"is_banned = ?", "banned_at = NULL", "ban_reason = NULL"},
		[]any{false})
}

// ListActive returns active accounts in identifier order. This is the
// default listing — deactivated accounts are hidden from it.
func (db *AccountDB) ListActive(ctx context.Context, opts repository.ListOptions) ([]model.Account, error) {
	return db.selectMany(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_active = 1 ORDER BY id LIMIT ? OFFSET ?`,
		clampLimit(opts.Limit), clampOffset(opts.Offset))
}

// ListAdmins returns active accounts holding the admin role.
func (db *AccountDB) ListAdmins(ctx context.Context, opts repository.ListOptions) ([]model.Account, error) {
	return db.selectMany(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_admin = 1 AND is_active = 1 ORDER BY id LIMIT ? OFFSET ?`,
		clampLimit(opts.Limit), clampOffset(opts.Offset))
}

// ListBanned returns banned accounts.
func (db *AccountDB) ListBanned(ctx context.Context, opts repository.ListOptions) ([]model.Account, error) {
	return db.selectMany(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_banned = 1 ORDER BY id LIMIT ? OFFSET ?`,
		clampLimit(opts.Limit), clampOffset(opts.Offset))
}

// ListInactive returns deactivated accounts.
func (db *AccountDB) ListInactive(ctx context.Context, opts repository.ListOptions) ([]model.Account, error) {
	return db.selectMany(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE is_active = 0 ORDER BY id LIMIT ? OFFSET ?`,
		clampLimit(opts.Limit), clampOffset(opts.Offset))
}
