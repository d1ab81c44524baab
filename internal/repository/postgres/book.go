package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msomdec/library-api/internal/domain"
)

const (
	dialectPostgres = "postgres"
	bookColumns     = `id, title, author, genre, status, holder_id, version, created_at, updated_at`
)

// BookRepository implements domain.BookRepository using PostgreSQL.
type BookRepository struct {
	pool *pgxpool.Pool
}

// NewBookRepository creates a new Postgres-backed BookRepository.
func NewBookRepository(db *DB) *BookRepository {
	return &BookRepository{pool: db.Pool}
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO books (id, title, author, genre, status, holder_id, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(book.ID), book.Title, book.Author, book.Genre, int16(book.Status), holderValue(book.HolderID), book.Version, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	book.CreatedAt = now
	book.UpdatedAt = now
	return nil
}

func (r *BookRepository) GetByID(ctx context.Context, id domain.BookID) (*domain.Book, error) {
	book, err := scanBook(r.pool.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get book by id: %w", err)
	}
	return book, nil
}

func (r *BookRepository) List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	ds := goqu.Dialect(dialectPostgres).
		From("books").
		Select(goqu.L(bookColumns)).
		Order(goqu.I("title").Asc(), goqu.I("id").Asc())
	if filter.Genre != "" {
		ds = ds.Where(goqu.Ex{"genre": filter.Genre})
	}
	if filter.Status != nil {
		ds = ds.Where(goqu.Ex{"status": int16(*filter.Status)})
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

func (r *BookRepository) Update(ctx context.Context, book *domain.Book) error {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE books SET title = $1, author = $2, genre = $3, updated_at = $4 WHERE id = $5`,
		book.Title, book.Author, book.Genre, now, uuid.UUID(book.ID),
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	book.UpdatedAt = now
	return nil
}

// Delete removes a book and returns it as it was at the moment of removal.
func (r *BookRepository) Delete(ctx context.Context, id domain.BookID) (*domain.Book, error) {
	book, err := scanBook(r.pool.QueryRow(ctx,
		`DELETE FROM books WHERE id = $1 RETURNING `+bookColumns, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("delete book: %w", err)
	}
	return book, nil
}

func (r *BookRepository) Transition(ctx context.Context, id domain.BookID, fn func(*domain.Book) error) (*domain.Book, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	book, err := scanBook(tx.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1 FOR UPDATE`, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lock book for transition: %w", err)
	}

	readVersion := book.Version
	if err := fn(book); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	tag, err := tx.Exec(ctx,
		`UPDATE books SET status = $1, holder_id = $2, version = version + 1, updated_at = $3
		 WHERE id = $4 AND version = $5`,
		int16(book.Status), holderValue(book.HolderID), now, uuid.UUID(id), readVersion,
	)
	if err != nil {
		// The holder no longer exists, though their token is still valid.
		if foreignKeyViolation(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("write transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrStaleVersion
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	book.Version = readVersion + 1
	book.UpdatedAt = now
	return book, nil
}

func scanBook(row pgx.Row) (*domain.Book, error) {
	var (
		book   domain.Book
		id     uuid.UUID
		status int16
		holder *uuid.UUID
	)
	if err := row.Scan(&id, &book.Title, &book.Author, &book.Genre, &status, &holder,
		&book.Version, &book.CreatedAt, &book.UpdatedAt); err != nil {
		return nil, err
	}

	book.ID = domain.BookID(id)
	book.Status = domain.BookStatus(status)
	if holder != nil {
		holderID := domain.UserID(*holder)
		book.HolderID = &holderID
	}
	return &book, nil
}

func holderValue(id *domain.UserID) any {
	if id == nil {
		return nil
	}
	return uuid.UUID(*id)
}
