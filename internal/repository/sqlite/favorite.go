package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

// compile-time check that *FavoriteDB implements repository.FavoriteRepository
var _ repository.FavoriteRepository = (*FavoriteDB)(nil)

const favoriteColumns = `id, account_id, book_id, created_at`

// FavoriteDB is the favorites store. Rows are immutable; the interesting
// operations are the (account, book) pair lookups.
type FavoriteDB struct {
	store[model.Favorite]
}

func newFavoriteDB(conn *sql.DB) *FavoriteDB {
	return &FavoriteDB{store[model.Favorite]{
		conn:    conn,
		table:   "favorites",
		name:    "favorite",
		columns: favoriteColumns,
		scanRow: scanFavorite,
	}}
}

func scanFavorite(row rowScanner) (*model.Favorite, error) {
	var f model.Favorite
	err := row.Scan(&f.ID, &f.AccountID, &f.BookID, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a favorite. The UNIQUE(account_id, book_id) constraint
// turns a duplicate add into AlreadyExists.
func (db *FavoriteDB) Create(ctx context.Context, fav *model.Favorite) error {
	fav.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO favorites (account_id, book_id, created_at) VALUES (?, ?, ?)`,
		fav.AccountID, fav.BookID, fav.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.AlreadyExists("favorite", "book", fav.BookID)
		}
		return fmt.Errorf("sqlite: inserting favorite: %w", err)
	}

	fav.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new favorite id: %w", err)
	}
	return nil
}

// Update exists to satisfy the generic contract; favorites have no mutable
// fields, so every patch is the empty patch and returns the current record.
func (db *FavoriteDB) Update(ctx context.Context, id int64, _ model.FavoritePatch) (*model.Favorite, error) {
	return db.patch(ctx, id, nil, nil)
}

// Find returns the favorite for an (account, book) pair, or NotFound.
func (db *FavoriteDB) Find(ctx context.Context, accountID, bookID int64) (*model.Favorite, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE account_id = ? AND book_id = ?`,
		accountID, bookID)

	fav, err := scanFavorite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("favorite", bookID)
		}
		return nil, fmt.Errorf("sqlite: getting favorite: %w", err)
	}
	return fav, nil
}

// Remove deletes the favorite for an (account, book) pair.
// Removing a pair that was never favorited is NotFound, not a silent no-op.
func (db *FavoriteDB) Remove(ctx context.Context, accountID, bookID int64) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM favorites WHERE account_id = ? AND book_id = ?`,
		accountID, bookID)
	if err != nil {
		return fmt.Errorf("sqlite: removing favorite: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("favorite", bookID)
	}
	return nil
}

// ListByAccount returns one account's favorites, oldest first.
func (db *FavoriteDB) ListByAccount(ctx context.Context, accountID int64, opts repository.ListOptions) ([]model.Favorite, error) {
	return db.selectMany(ctx,
		`SELECT `+favoriteColumns+` FROM favorites WHERE account_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		accountID, clampLimit(opts.Limit), clampOffset(opts.Offset))
}
