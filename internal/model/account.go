// Package model defines the data structures used throughout the application.
package model

import "time"

// Account represents a registered user of the catalog.
//
// The lifecycle flags are independent booleans rather than a single status
// enum: Active gates self-service deletion (accounts are never hard-deleted,
// only deactivated, so reviews and favorites keep a valid owner), Banned is
// an administrative block. "Can log in" is exactly Active && !Banned.
//
// Banned, BannedAt and BanReason move together: a ban sets all three, an
// unban clears all three. A row with Banned=false and a non-null BannedAt
// is invalid and never produced by the account store.
type Account struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never serialized
	Active       bool       `json:"isActive"`
	Admin        bool       `json:"isAdmin"`
	Banned       bool       `json:"isBanned"`
	BannedAt     *time.Time `json:"bannedAt,omitempty"`
	BanReason    *string    `json:"banReason,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// RecordID implements repository.Record.
func (a Account) RecordID() int64 { return a.ID }

// CanAuthenticate reports whether the account is allowed to log in.
func (a Account) CanAuthenticate() bool { return a.Active && !a.Banned }

// AccountPatch is a partial update for an account. Nil fields are left
// untouched; an all-nil patch is a no-op that returns the current record.
//
// PasswordHash carries an already-hashed credential — plaintext passwords
// are hashed in the service layer and never reach the repository.
type AccountPatch struct {
	Username     *string
	Email        *string
	PasswordHash *string
	Active       *bool
	Admin        *bool
}
