package model

import "time"

// Favorite marks a book as favorited by an account. The (AccountID, BookID)
// pair is unique — favoriting the same book twice is a conflict.
type Favorite struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"accountId"`
	BookID    int64     `json:"bookId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordID implements repository.Record.
func (f Favorite) RecordID() int64 { return f.ID }

// FavoritePatch exists to satisfy the generic repository contract; favorites
// are immutable once created, so it has no fields.
type FavoritePatch struct{}
