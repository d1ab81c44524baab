package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/msomdec/library-api/internal/domain"
)

const (
	maxTitleLength  = 200
	maxAuthorLength = 200
	maxGenreLength  = 100
)

// CatalogService handles browsing and editing the book catalogue.
type CatalogService struct {
	books domain.BookRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(books domain.BookRepository) *CatalogService {
	return &CatalogService{books: books}
}

// List returns the books matching filter, ordered by title.
func (s *CatalogService) List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown book status", domain.ErrInvalidInput)
	}
	filter.Genre = strings.TrimSpace(filter.Genre)
	return s.books.List(ctx, filter)
}

// GetByID returns a book by its ID.
func (s *CatalogService) GetByID(ctx context.Context, id domain.BookID) (*domain.Book, error) {
	return s.books.GetByID(ctx, id)
}

// Create adds an available book to the catalogue.
func (s *CatalogService) Create(ctx context.Context, p domain.Principal, title, author, genre string) (*domain.Book, error) {
	if p.IsAnonymous() {
		return nil, domain.ErrUnauthorized
	}
	book := &domain.Book{
		ID:     domain.NewBookID(),
		Status: domain.BookStatusAvailable,
	}
	if err := setDescription(book, title, author, genre); err != nil {
		return nil, err
	}

	if err := s.books.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	slog.Info("book created", "book_id", book.ID.String(), "user_id", p.UserID.String())
	return book, nil
}

// Update overwrites the descriptive fields of a book. Loan state is never touched.
func (s *CatalogService) Update(ctx context.Context, p domain.Principal, id domain.BookID, title, author, genre string) error {
	if p.IsAnonymous() {
		return domain.ErrUnauthorized
	}
	book := &domain.Book{ID: id}
	if err := setDescription(book, title, author, genre); err != nil {
		return err
	}

	if err := s.books.Update(ctx, book); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

// Delete removes a book whatever its loan state. Removing a borrowed book
// drops the borrower's loan with it, which is logged.
func (s *CatalogService) Delete(ctx context.Context, p domain.Principal, id domain.BookID) error {
	if p.IsAnonymous() {
		return domain.ErrUnauthorized
	}

	book, err := s.books.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete book: %w", err)
	}

	if book.HolderID != nil {
		slog.Warn("deleted a borrowed book", "book_id", id.String(), "holder_id", book.HolderID.String(), "user_id", p.UserID.String())
	}
	return nil
}

func setDescription(book *domain.Book, title, author, genre string) error {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	genre = strings.TrimSpace(genre)

	if title == "" || author == "" || genre == "" {
		return fmt.Errorf("%w: title, author, and genre are required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return fmt.Errorf("%w: title must be %d characters or fewer", domain.ErrInvalidInput, maxTitleLength)
	}
	if utf8.RuneCountInString(author) > maxAuthorLength {
		return fmt.Errorf("%w: author must be %d characters or fewer", domain.ErrInvalidInput, maxAuthorLength)
	}
	if utf8.RuneCountInString(genre) > maxGenreLength {
		return fmt.Errorf("%w: genre must be %d characters or fewer", domain.ErrInvalidInput, maxGenreLength)
	}

	book.Title = title
	book.Author = author
	book.Genre = genre
	return nil
}
