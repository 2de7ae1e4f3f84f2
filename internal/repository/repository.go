// Package repository defines the persistence contracts the service layer
// programs against. Implementations live in subpackages (sqlite).
//
// Every entity kind shares one generic contract: Repository[T, P] is
// create/get/list/update/delete over records with an integer identifier,
// with partial-update (patch) semantics. Entity-specific queries are added
// by embedding the generic interface in a per-entity one — composition, not
// inheritance.
package repository

import (
	"context"

	"github.com/avolkov/bookshelf/internal/model"
)

// Record is the minimal contract a persisted entity must satisfy.
type Record interface {
	RecordID() int64
}

// ListOptions carries offset/limit pagination. Values are validated and
// clamped by the caller; implementations apply them as-is.
type ListOptions struct {
	Limit  int
	Offset int
}

// Repository is the generic data-access abstraction.
//
// T is the record type, P its patch type (a struct of pointer fields; nil
// means "leave untouched"). Semantics:
//
//   - Create persists rec and fills in its identifier and server-assigned
//     defaults in place.
//   - GetByID returns apperror.ErrNotFound (kind, not a raw driver error)
//     when no record exists — "absent" is a typed outcome.
//   - List returns a stable identifier-ordered page.
//   - Update merges only the non-nil patch fields and returns the resulting
//     record; an empty patch succeeds and returns the current record.
//   - Delete hard-removes the record and returns the pre-delete snapshot.
//
// No operation implements optimistic concurrency; for a given identifier
// the last writer wins. Compound invariants (uniqueness on update etc.)
// are the caller's responsibility, with storage constraints as backstop.
type Repository[T Record, P any] interface {
	Create(ctx context.Context, rec *T) error
	GetByID(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, opts ListOptions) ([]T, error)
	Update(ctx context.Context, id int64, patch P) (*T, error)
	Delete(ctx context.Context, id int64) (*T, error)
}

// AccountRepository specializes the generic repository for accounts with
// authentication lookups and the lifecycle state transitions.
//
// Ban and Unban are single-statement transitions: banned, banned_at and
// ban_reason always change together, never partially.
type AccountRepository interface {
	Repository[model.Account, model.AccountPatch]

	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)

	SetAdmin(ctx context.Context, id int64, admin bool) (*model.Account, error)
	SetActive(ctx context.Context, id int64, active bool) (*model.Account, error)
	Ban(ctx context.Context, id int64, reason string) (*model.Account, error)
	Unban(ctx context.Context, id int64) (*model.Account, error)

	ListAdmins(ctx context.Context, opts ListOptions) ([]model.Account, error)
	ListBanned(ctx context.Context, opts ListOptions) ([]model.Account, error)
	ListInactive(ctx context.Context, opts ListOptions) ([]model.Account, error)
	ListActive(ctx context.Context, opts ListOptions) ([]model.Account, error)
}

// BookRepository adds catalog queries to the generic contract.
type BookRepository interface {
	Repository[model.Book, model.BookPatch]

	GetByTitleAuthor(ctx context.Context, title, author string) (*model.Book, error)
	ListTopRated(ctx context.Context, opts ListOptions) ([]model.Book, error)
	SetRating(ctx context.Context, id int64, rating float64) error
}

// ReviewRepository adds per-book and per-account review queries.
type ReviewRepository interface {
	Repository[model.Review, model.ReviewPatch]

	ListByBook(ctx context.Context, bookID int64) ([]model.Review, error)
	ListByAccount(ctx context.Context, accountID int64) ([]model.Review, error)
	AverageRating(ctx context.Context, bookID int64) (float64, error)
}

// FavoriteRepository adds the (account, book) pair operations.
type FavoriteRepository interface {
	Repository[model.Favorite, model.FavoritePatch]

	Find(ctx context.Context, accountID, bookID int64) (*model.Favorite, error)
	Remove(ctx context.Context, accountID, bookID int64) error
	ListByAccount(ctx context.Context, accountID int64, opts ListOptions) ([]model.Favorite, error)
}
