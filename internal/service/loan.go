package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/observability/metrics"
)

// LoanService moves books between the available and borrowed states.
// Each transition is checked and written inside one store transaction; a
// conflict is a final answer and is never retried.
type LoanService struct {
	books domain.BookRepository
}

// NewLoanService creates a new LoanService.
func NewLoanService(books domain.BookRepository) *LoanService {
	return &LoanService{books: books}
}

// Borrow lends an available book to the caller.
// It fails with domain.ErrBookUnavailable when the book is already on loan.
func (s *LoanService) Borrow(ctx context.Context, p domain.Principal, id domain.BookID) (*domain.Book, error) {
	if p.IsAnonymous() {
		metrics.ObserveLoan("borrow", metrics.ResultDenied)
		return nil, domain.ErrUnauthorized
	}

	book, err := s.books.Transition(ctx, id, func(b *domain.Book) error {
		return b.Borrow(p.UserID)
	})
	if err != nil {
		// Losing a version race means another transition got there first.
		if errors.Is(err, domain.ErrStaleVersion) {
			err = fmt.Errorf("%w: %w", domain.ErrBookUnavailable, err)
		}
		return nil, s.fail("borrow", id, p, err)
	}

	metrics.ObserveLoan("borrow", metrics.ResultSuccess)
	slog.Info("book borrowed", "book_id", id.String(), "user_id", p.UserID.String())
	return book, nil
}

// Return hands a book back. Only the user currently holding it may return it;
// anyone else gets domain.ErrCannotReturn.
func (s *LoanService) Return(ctx context.Context, p domain.Principal, id domain.BookID) (*domain.Book, error) {
	if p.IsAnonymous() {
		metrics.ObserveLoan("return", metrics.ResultDenied)
		return nil, domain.ErrUnauthorized
	}

	book, err := s.books.Transition(ctx, id, func(b *domain.Book) error {
		return b.Return(p.UserID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleVersion) {
			err = fmt.Errorf("%w: %w", domain.ErrCannotReturn, err)
		}
		return nil, s.fail("return", id, p, err)
	}

	metrics.ObserveLoan("return", metrics.ResultSuccess)
	slog.Info("book returned", "book_id", id.String(), "user_id", p.UserID.String())
	return book, nil
}

func (s *LoanService) fail(op string, id domain.BookID, p domain.Principal, err error) error {
	switch {
	case errors.Is(err, domain.ErrConflict):
		metrics.ObserveLoan(op, metrics.ResultConflict)
		slog.Info("loan transition rejected", "operation", op, "book_id", id.String(), "user_id", p.UserID.String(), "reason", err.Error())
		return err
	case errors.Is(err, domain.ErrNotFound):
		metrics.ObserveLoan(op, metrics.ResultNotFound)
		return err
	case errors.Is(err, domain.ErrUnauthorized):
		// The token outlived its user.
		metrics.ObserveLoan(op, metrics.ResultDenied)
		slog.Warn("loan transition for unknown user", "operation", op, "book_id", id.String(), "user_id", p.UserID.String())
		return err
	default:
		metrics.ObserveLoan(op, metrics.ResultError)
		return fmt.Errorf("%s book: %w", op, err)
	}
}
