package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/avolkov/bookshelf/internal/apperror"
	"github.com/avolkov/bookshelf/internal/model"
	"github.com/avolkov/bookshelf/internal/repository"
)

func TestFavoriteCreate_DuplicatePair(t *testing.T) {
	db := newTestDB(t)
	acct := createTestAccount(t, db.Accounts(), "collector")
	book := createTestBook(t, db.Books(), "Favorited", "Author")
	f := db.Favorites()
	ctx := context.Background()

	first := &model.Favorite{AccountID: acct.ID, BookID: book.ID}
	if err := f.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := &model.Favorite{AccountID: acct.ID, BookID: book.ID}
	if err := f.Create(ctx, dup); !errors.Is(err, apperror.ErrAlreadyExists) {
		t.Errorf("Create() duplicate pair error = %v, want ErrAlreadyExists", err)
	}

	// A different account may favorite the same book.
	other := createTestAccount(t, db.Accounts(), "othercollector")
	theirs := &model.Favorite{AccountID: other.ID, BookID: book.ID}
	if err := f.Create(ctx, theirs); err != nil {
		t.Errorf("Create() same book, different account error = %v", err)
	}
}

func TestFavoriteFindAndRemove(t *testing.T) {
	db := newTestDB(t)
	acct := createTestAccount(t, db.Accounts(), "finder")
	book := createTestBook(t, db.Books(), "Findable", "Author")
	f := db.Favorites()
	ctx := context.Background()

	// Not favorited yet.
	if _, err := f.Find(ctx, acct.ID, book.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Find() before add error = %v, want ErrNotFound", err)
	}
	if err := f.Remove(ctx, acct.ID, book.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Remove() before add error = %v, want ErrNotFound", err)
	}

	if err := f.Create(ctx, &model.Favorite{AccountID: acct.ID, BookID: book.ID}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := f.Find(ctx, acct.ID, book.ID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found.AccountID != acct.ID || found.BookID != book.ID {
		t.Errorf("Find() = %+v", found)
	}

	if err := f.Remove(ctx, acct.ID, book.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := f.Find(ctx, acct.ID, book.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Find() after remove error = %v, want ErrNotFound", err)
	}
}

func TestFavoriteListByAccount_IsolatedPerAccount(t *testing.T) {
	db := newTestDB(t)
	a := createTestAccount(t, db.Accounts(), "lista")
	b := createTestAccount(t, db.Accounts(), "listb")
	book1 := createTestBook(t, db.Books(), "One", "Author")
	book2 := createTestBook(t, db.Books(), "Two", "Author")
	f := db.Favorites()
	ctx := context.Background()

	for _, fav := range []*model.Favorite{
		{AccountID: a.ID, BookID: book1.ID},
		{AccountID: a.ID, BookID: book2.ID},
		{AccountID: b.ID, BookID: book1.ID},
	} {
		if err := f.Create(ctx, fav); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	mine, err := f.ListByAccount(ctx, a.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("ListByAccount(a) returned %d favorites, want 2", len(mine))
	}

	theirs, err := f.ListByAccount(ctx, b.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListByAccount() error = %v", err)
	}
	if len(theirs) != 1 || theirs[0].BookID != book1.ID {
		t.Errorf("ListByAccount(b) = %+v", theirs)
	}
}
