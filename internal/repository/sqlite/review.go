package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

// compile-time check that *ReviewDB implements repository.ReviewRepository
var _ repository.ReviewRepository = (*ReviewDB)(nil)

const reviewColumns = `id, book_id, account_id, rating, text, created_at`

// ReviewDB is the review store.
type ReviewDB struct {
	store[model.Review]
}

func newReviewDB(conn *sql.DB) *ReviewDB {
	return &ReviewDB{store[model.Review]{
		conn:    conn,
		table:   "reviews",
		name:    "review",
		columns: reviewColumns,
		scanRow: scanReview,
	}}
}

func scanReview(row rowScanner) (*model.Review, error) {
	var r model.Review
	err := row.Scan(&r.ID, &r.BookID, &r.AccountID, &r.Rating, &r.Text, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a new review and writes the assigned identifier and
// creation timestamp back into review.
func (db *ReviewDB) Create(ctx context.Context, review *model.Review) error {
	review.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO reviews (book_id, account_id, rating, text, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		review.BookID, review.AccountID, review.Rating, review.Text, review.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting review for book %d: %w", review.BookID, err)
	}

	review.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new review id: %w", err)
	}
	return nil
}

// Update applies a partial update; nil patch fields are left untouched.
func (db *ReviewDB) Update(ctx context.Context, id int64, patch model.ReviewPatch) (*model.Review, error) {
	var (
		sets []string
		args []any
	)
	if patch.Rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *patch.Rating)
	}
	if patch.Text != nil {
		sets = append(sets, "text = ?")
		args = append(args, *patch.Text)
	}
	return db.patch(ctx, id, sets, args)
}

// ListByBook returns every review of one book, oldest first.
func (db *ReviewDB) ListByBook(ctx context.Context, bookID int64) ([]model.Review, error) {
	return db.selectMany(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE book_id = ? ORDER BY id`, bookID)
}

// ListByAccount returns every review written by one account, oldest first.
func (db *ReviewDB) ListByAccount(ctx context.Context, accountID int64) ([]model.Review, error) {
	return db.selectMany(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE account_id = ? ORDER BY id`, accountID)
}

// AverageRating computes the mean review rating for a book.
// A book with no reviews averages to 0.
func (db *ReviewDB) AverageRating(ctx context.Context, bookID int64) (float64, error) {
	var avg sql.NullFloat64
	err := db.conn.QueryRowContext(ctx,
		`SELECT AVG(rating) FROM reviews WHERE book_id = ?`, bookID,
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("sqlite: averaging ratings for book %d: %w", bookID, err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}
