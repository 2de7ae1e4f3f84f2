package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

// Validation constants for catalog entries.
const (
	MaxTitleLength  = 100
	MaxAuthorLength = 100
)

// BookService handles catalog business rules. Mutations are admin-only;
// that gate runs in the handler layer via the access pipeline, so the
// service only enforces data rules.
type BookService struct {
	books  repository.BookRepository
	logger *slog.Logger
}

// NewBookService creates a BookService.
func NewBookService(books repository.BookRepository, logger *slog.Logger) *BookService {
	return &BookService{books: books, logger: logger}
}

// Create adds a book to the catalog. The (title, author) pair must be new.
func (s *BookService) Create(ctx context.Context, title, author string, pages int) (*model.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	if author == "" {
		return nil, apperror.ValidationFailed("author", "author is required")
	}
	if len(author) > MaxAuthorLength {
		return nil, apperror.ValidationFailed("author",
			fmt.Sprintf("author must be %d characters or less", MaxAuthorLength))
	}
	if pages <= 0 {
		return nil, apperror.ValidationFailed("pages", "pages must be positive")
	}

	if _, err := s.books.GetByTitleAuthor(ctx, title, author); err == nil {
		return nil, apperror.AlreadyExists("book", "title", title)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/book: checking duplicate: %w", err)
	}

	book := &model.Book{Title: title, Author: author, Pages: pages}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("service/book: creating book %q: %w", title, err)
	}

	s.logger.Info("book created",
		slog.Int64("bookID", book.ID),
		slog.String("title", book.Title),
	)
	return book, nil
}

// GetByID returns one book.
func (s *BookService) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	return s.books.GetByID(ctx, id)
}

// List returns a page of books in identifier order.
func (s *BookService) List(ctx context.Context, limit, offset int) ([]model.Book, error) {
	return s.books.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}

// ListTopRated returns a page of books, best rated first.
func (s *BookService) ListTopRated(ctx context.Context, limit, offset int) ([]model.Book, error) {
	return s.books.ListTopRated(ctx, repository.ListOptions{Limit: limit, Offset: offset})
}

// Update patches a book. Absent fields are left untouched.
func (s *BookService) Update(ctx context.Context, id int64, patch model.BookPatch) (*model.Book, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" || len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title", "title is invalid")
		}
		patch.Title = &title
	}
	if patch.Author != nil {
		author := strings.TrimSpace(*patch.Author)
		if author == "" || len(author) > MaxAuthorLength {
			return nil, apperror.ValidationFailed("author", "author is invalid")
		}
		patch.Author = &author
	}
	if patch.Pages != nil && *patch.Pages <= 0 {
		return nil, apperror.ValidationFailed("pages", "pages must be positive")
	}

	book, err := s.books.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("book updated", slog.Int64("bookID", id))
	return book, nil
}

// Delete removes a book from the catalog and returns the final snapshot.
func (s *BookService) Delete(ctx context.Context, id int64) (*model.Book, error) {
	book, err := s.books.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("book deleted", slog.Int64("bookID", id))
	return book, nil
}
