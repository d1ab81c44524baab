package domain_test

import (
	"errors"
	"testing"

	"github.com/msomdec/library-api/internal/domain"
)

func TestBook_BorrowAvailable(t *testing.T) {
	b := &domain.Book{Status: domain.BookStatusAvailable}
	user := domain.NewUserID()

	if err := b.Borrow(user); err != nil {
		t.Fatalf("Borrow: %v", err)
	}
	if b.Status != domain.BookStatusBorrowed {
		t.Fatalf("expected Borrowed, got %s", b.Status)
	}
	if !b.HeldBy(user) {
		t.Fatal("expected book to be held by borrower")
	}
}

func TestBook_BorrowAlreadyBorrowed(t *testing.T) {
	holder := domain.NewUserID()
	b := &domain.Book{Status: domain.BookStatusBorrowed, HolderID: &holder}

	err := b.Borrow(domain.NewUserID())
	if !errors.Is(err, domain.ErrBookUnavailable) {
		t.Fatalf("expected ErrBookUnavailable, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatal("expected ErrBookUnavailable to be a conflict")
	}
	if !b.HeldBy(holder) {
		t.Fatal("failed borrow must not change the holder")
	}
}

func TestBook_ReturnByHolder(t *testing.T) {
	b := &domain.Book{Status: domain.BookStatusAvailable}
	user := domain.NewUserID()
	if err := b.Borrow(user); err != nil {
		t.Fatalf("Borrow: %v", err)
	}

	if err := b.Return(user); err != nil {
		t.Fatalf("Return: %v", err)
	}
	if b.Status != domain.BookStatusAvailable || b.HolderID != nil {
		t.Fatalf("expected Available with nil holder, got %s holder=%v", b.Status, b.HolderID)
	}
}

func TestBook_ReturnRejected(t *testing.T) {
	holder := domain.NewUserID()

	tests := []struct {
		name string
		book domain.Book
		user domain.UserID
	}{
		{"available book", domain.Book{Status: domain.BookStatusAvailable}, holder},
		{"held by someone else", domain.Book{Status: domain.BookStatusBorrowed, HolderID: &holder}, domain.NewUserID()},
		{"borrowed without holder", domain.Book{Status: domain.BookStatusBorrowed}, holder},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.book
			err := b.Return(tc.user)
			if !errors.Is(err, domain.ErrCannotReturn) {
				t.Fatalf("expected ErrCannotReturn, got %v", err)
			}
			if b.Status != tc.book.Status {
				t.Fatal("rejected return must not change status")
			}
		})
	}
}

func TestParseBookStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.BookStatus
		wantErr bool
	}{
		{"0", domain.BookStatusAvailable, false},
		{"1", domain.BookStatusBorrowed, false},
		{"Available", domain.BookStatusAvailable, false},
		{"borrowed", domain.BookStatusBorrowed, false},
		{"2", 0, true},
		{"lost", 0, true},
		{"", 0, true},
	}

	for _, tc := range tests {
		got, err := domain.ParseBookStatus(tc.in)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("ParseBookStatus(%q): expected ErrInvalidInput, got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBookStatus(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBookStatus(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestParseBookID(t *testing.T) {
	id := domain.NewBookID()
	parsed, err := domain.ParseBookID(id.String())
	if err != nil {
		t.Fatalf("ParseBookID: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected %s, got %s", id, parsed)
	}

	if _, err := domain.ParseBookID("not-a-uuid"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPrincipal_Anonymous(t *testing.T) {
	if !domain.Anonymous.IsAnonymous() {
		t.Fatal("expected zero principal to be anonymous")
	}
	p := domain.Principal{UserID: domain.NewUserID(), Username: "reader"}
	if p.IsAnonymous() {
		t.Fatal("expected principal with user id to be authenticated")
	}
}
