package domain

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookID identifies a catalogue entry.
type BookID uuid.UUID

// NewBookID returns a fresh random BookID.
func NewBookID() BookID { return BookID(uuid.New()) }

// ParseBookID parses the canonical textual form of a BookID.
func ParseBookID(s string) (BookID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BookID{}, fmt.Errorf("%w: malformed book id", ErrInvalidInput)
	}
	return BookID(id), nil
}

func (id BookID) String() string { return uuid.UUID(id).String() }

// BookStatus is the loan state of a book. It is stored and serialized as its ordinal.
type BookStatus int

const (
	BookStatusAvailable BookStatus = 0
	BookStatusBorrowed  BookStatus = 1
)

func (s BookStatus) String() string {
	switch s {
	case BookStatusAvailable:
		return "Available"
	case BookStatusBorrowed:
		return "Borrowed"
	default:
		return "BookStatus(" + strconv.Itoa(int(s)) + ")"
	}
}

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	return s == BookStatusAvailable || s == BookStatusBorrowed
}

// ParseBookStatus accepts either the ordinal ("0", "1") or the name
// ("available", "Borrowed", ...) of a status.
func ParseBookStatus(s string) (BookStatus, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if st := BookStatus(n); st.Valid() {
			return st, nil
		}
		return 0, fmt.Errorf("%w: unknown book status %q", ErrInvalidInput, s)
	}
	switch strings.ToLower(s) {
	case "available":
		return BookStatusAvailable, nil
	case "borrowed":
		return BookStatusBorrowed, nil
	}
	return 0, fmt.Errorf("%w: unknown book status %q", ErrInvalidInput, s)
}

// Book is a single catalogue entry together with its loan state.
// HolderID is non-nil exactly when Status is BookStatusBorrowed.
type Book struct {
	ID        BookID
	Title     string
	Author    string
	Genre     string
	Status    BookStatus
	HolderID  *UserID
	Version   int64 // incremented by every loan transition
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Borrow moves an available book into the borrowed state held by user.
func (b *Book) Borrow(user UserID) error {
	if b.Status != BookStatusAvailable {
		return ErrBookUnavailable
	}
	b.Status = BookStatusBorrowed
	b.HolderID = &user
	return nil
}

// Return releases a borrowed book. Only the current holder may return it.
func (b *Book) Return(user UserID) error {
	if b.Status != BookStatusBorrowed || b.HolderID == nil || *b.HolderID != user {
		return ErrCannotReturn
	}
	b.Status = BookStatusAvailable
	b.HolderID = nil
	return nil
}

// HeldBy reports whether user currently holds the book.
func (b *Book) HeldBy(user UserID) bool {
	return b.HolderID != nil && *b.HolderID == user
}

// BookFilter narrows a catalogue listing. Nil or empty fields do not constrain.
type BookFilter struct {
	Genre  string
	Status *BookStatus
}

// BookRepository defines persistence operations for the catalogue.
type BookRepository interface {
	Create(ctx context.Context, book *Book) error
	GetByID(ctx context.Context, id BookID) (*Book, error)
	// List returns books matching filter ordered by title ascending.
	List(ctx context.Context, filter BookFilter) ([]Book, error)
	// Update overwrites title, author and genre. Loan state is untouched.
	Update(ctx context.Context, book *Book) error
	// Delete removes a book and returns the row as it was when removed.
	Delete(ctx context.Context, id BookID) (*Book, error)
	// Transition loads the book, applies fn and persists the resulting loan
	// state within one store transaction. The write is additionally guarded by
	// the version read, so a concurrent transition yields ErrStaleVersion.
	// Errors returned by fn abort the transaction and are returned unchanged.
	Transition(ctx context.Context, id BookID, fn func(*Book) error) (*Book, error)
}
