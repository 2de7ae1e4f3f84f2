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

// compile-time check that *BookDB implements repository.BookRepository
var _ repository.BookRepository = (*BookDB)(nil)

const bookColumns = `id, title, author, pages, rating, created_at`

// BookDB is the catalog book store.
type BookDB struct {
	store[model.Book]
}

func newBookDB(conn *sql.DB) *BookDB {
	return &BookDB{store[model.Book]{
		conn:    conn,
		table:   "books",
		name:    "book",
		columns: bookColumns,
		scanRow: scanBook,
	}}
}

func scanBook(row rowScanner) (*model.Book, error) {
	var b model.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Pages, &b.Rating, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new book and writes the assigned identifier and creation
// timestamp back into book.
func (db *BookDB) Create(ctx context.Context, book *model.Book) error {
	book.CreatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO books (title, author, pages, rating, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		book.Title, book.Author, book.Pages, book.Rating, book.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting book %q: %w", book.Title, err)
	}

	book.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new book id: %w", err)
	}
	return nil
}

// Update applies a partial update; nil patch fields are left untouched.
func (db *BookDB) Update(ctx context.Context, id int64, patch model.BookPatch) (*model.Book, error) {
	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Author != nil {
		sets = append(sets, "author = ?")
		args = append(args, *patch.Author)
	}
	if patch.Pages != nil {
		sets = append(sets, "pages = ?")
		args = append(args, *patch.Pages)
	}
	if patch.Rating != nil {
		sets = append(sets, "rating = ?")
		args = append(args, *patch.Rating)
	}
	return db.patch(ctx, id, sets, args)
}

// GetByTitleAuthor finds a book by the (title, author) pair. Used by the
// service's duplicate check before creation.
func (db *BookDB) GetByTitleAuthor(ctx context.Context, title, author string) (*model.Book, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE title = ? AND author = ?`,
		title, author)

	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("book", title)
		}
		return nil, fmt.Errorf("sqlite: getting book by title/author: %w", err)
	}
	return book, nil
}

// ListTopRated returns books ordered by rating, best first.
func (db *BookDB) ListTopRated(ctx context.Context, opts repository.ListOptions) ([]model.Book, error) {
	return db.selectMany(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY rating DESC, id LIMIT ? OFFSET ?`,
		clampLimit(opts.Limit), clampOffset(opts.Offset))
}

// SetRating updates the cached average rating after a review change.
func (db *BookDB) SetRating(ctx context.Context, id int64, rating float64) error {
	_, err := db.patch(ctx, id, []string{"rating = ?"}, []any{rating})
	return err
}
