package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

// FavoriteService handles each account's favorites list.
type FavoriteService struct {
	favorites repository.FavoriteRepository
	books     repository.BookRepository
	logger    *slog.Logger
}

// NewFavoriteService creates a FavoriteService.
func NewFavoriteService(
	favorites repository.FavoriteRepository,
	books repository.BookRepository,
	logger *slog.Logger,
) *FavoriteService {
	return &FavoriteService{favorites: favorites, books: books, logger: logger}
}

// Add puts a book on the acting account's favorites list. The book must
// exist; favoriting it twice is AlreadyExists (backed by the storage
// UNIQUE constraint on the pair).
func (s *FavoriteService) Add(ctx context.Context, actor *model.Account, bookID int64) (*model.Favorite, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, err
	}

	fav := &model.Favorite{AccountID: actor.ID, BookID: bookID}
	if err := s.favorites.Create(ctx, fav); err != nil {
		return nil, err
	}

	s.logger.Info("favorite added",
		slog.Int64("accountID", actor.ID),
		slog.Int64("bookID", bookID),
	)
	return fav, nil
}

// Remove takes a book off the acting account's favorites list. Removing a
// book that was never favorited is NotFound.
func (s *FavoriteService) Remove(ctx context.Context, actor *model.Account, bookID int64) error {
	if err := s.favorites.Remove(ctx, actor.ID, bookID); err != nil {
		return err
	}

	s.logger.Info("favorite removed",
		slog.Int64("accountID", actor.ID),
		slog.Int64("bookID", bookID),
	)
	return nil
}

// List returns a page of the acting account's favorites.
func (s *FavoriteService) List(ctx context.Context, actor *model.Account, limit, offset int) ([]model.Favorite, error) {
	favs, err := s.favorites.ListByAccount(ctx, actor.ID,
		repository.ListOptions{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("service/favorite: listing favorites: %w", err)
	}
	return favs, nil
}

// Contains reports whether the book is on the acting account's list.
func (s *FavoriteService) Contains(ctx context.Context, actor *model.Account, bookID int64) (bool, error) {
	_, err := s.favorites.Find(ctx, actor.ID, bookID)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}
