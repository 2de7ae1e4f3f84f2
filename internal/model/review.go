package model

import "time"

// Review is a rating plus free text left by an account on a book.
type Review struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"bookId"`
	AccountID int64     `json:"accountId"`
	Rating    int       `json:"rating"` // 1..5
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordID implements repository.Record.
func (r Review) RecordID() int64 { return r.ID }

// ReviewPatch is a partial update for a review. Nil fields are left untouched.
type ReviewPatch struct {
	Rating *int
	Text   *string
}
