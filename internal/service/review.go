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

// MaxReviewLength bounds the review text.
const MaxReviewLength = 1000

// ReviewService handles review business rules and keeps each book's cached
// average rating in step with its reviews.
type ReviewService struct {
	reviews repository.ReviewRepository
	books   repository.BookRepository
	logger  *slog.Logger
}

// NewReviewService creates a ReviewService.
func NewReviewService(
	reviews repository.ReviewRepository,
	books repository.BookRepository,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{reviews: reviews, books: books, logger: logger}
}

// Create adds a review by the acting account. The book must exist and the
// rating must be 1..5.
func (s *ReviewService) Create(ctx context.Context, actor *model.Account, bookID int64, rating int, text string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, apperror.ValidationFailed("rating", "rating must be between 1 and 5")
	}
	text = strings.TrimSpace(text)
	if len(text) > MaxReviewLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("review text must be %d characters or less", MaxReviewLength))
	}

	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, err
	}

	review := &model.Review{
		BookID:    bookID,
		AccountID: actor.ID,
		Rating:    rating,
		Text:      text,
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("service/review: creating review: %w", err)
	}

	s.refreshBookRating(ctx, bookID)

	s.logger.Info("review created",
		slog.Int64("reviewID", review.ID),
		slog.Int64("bookID", bookID),
		slog.Int64("accountID", actor.ID),
	)
	return review, nil
}

// GetByID returns one review.
func (s *ReviewService) GetByID(ctx context.Context, id int64) (*model.Review, error) {
	return s.reviews.GetByID(ctx, id)
}

// ListByBook returns every review of a book.
func (s *ReviewService) ListByBook(ctx context.Context, bookID int64) ([]model.Review, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	return s.reviews.ListByBook(ctx, bookID)
}

// ListByAccount returns every review written by an account.
func (s *ReviewService) ListByAccount(ctx context.Context, accountID int64) ([]model.Review, error) {
	return s.reviews.ListByAccount(ctx, accountID)
}

// AverageRating returns the mean rating of a book's reviews (0 when there
// are none).
func (s *ReviewService) AverageRating(ctx context.Context, bookID int64) (float64, error) {
	if _, err := s.books.GetByID(ctx, bookID); err != nil {
		return 0, err
	}
	return s.reviews.AverageRating(ctx, bookID)
}

// Delete removes a review. The ownership-or-admin gate has already run in
// the handler against the review's author.
func (s *ReviewService) Delete(ctx context.Context, id int64) (*model.Review, error) {
	review, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return nil, err
	}

	s.refreshBookRating(ctx, review.BookID)

	s.logger.Info("review deleted",
		slog.Int64("reviewID", id),
		slog.Int64("bookID", review.BookID),
	)
	return review, nil
}

// refreshBookRating recomputes the cached average on the book row. Failure
// here is logged, not propagated — the review write already succeeded and
// the cache self-heals on the next review change.
func (s *ReviewService) refreshBookRating(ctx context.Context, bookID int64) {
	avg, err := s.reviews.AverageRating(ctx, bookID)
	if err == nil {
		err = s.books.SetRating(ctx, bookID, avg)
	}
	if err != nil {
		s.logger.Error("failed to refresh book rating",
			slog.Int64("bookID", bookID),
			slog.String("error", err.Error()),
		)
	}
}
