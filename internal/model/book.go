package model

import "time"

// Book is a catalog entry. Rating is the cached average of its review
// ratings; 0 means "not yet rated".
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Pages     int       `json:"pages"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordID implements repository.Record.
func (b Book) RecordID() int64 { return b.ID }

// BookPatch is a partial update for a book. Nil fields are left untouched.
type BookPatch struct {
	Title  *string
	Author *string
	Pages  *int
	Rating *float64
}
