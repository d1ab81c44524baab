package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3" // dialect registration
	"github.com/msomdec/library-api/internal/domain"
)

const bookColumns = `id, title, author, genre, status, holder_id, version, created_at, updated_at`

// BookRepository implements domain.BookRepository using SQLite.
type BookRepository struct {
	db      *sql.DB
	dialect goqu.DialectWrapper
}

// NewBookRepository creates a new SQLite-backed BookRepository.
func NewBookRepository(db *DB) *BookRepository {
	return &BookRepository{db: db.SqlDB, dialect: goqu.Dialect("sqlite3")}
}

func (r *BookRepository) Create(ctx context.Context, book *domain.Book) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, title, author, genre, status, holder_id, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID.String(), book.Title, book.Author, book.Genre, int(book.Status), holderValue(book.HolderID), book.Version, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	book.CreatedAt = now
	book.UpdatedAt = now
	return nil
}

func (r *BookRepository) GetByID(ctx context.Context, id domain.BookID) (*domain.Book, error) {
	book, err := scanBook(r.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get book by id: %w", err)
	}
	return book, nil
}

func (r *BookRepository) List(ctx context.Context, filter domain.BookFilter) ([]domain.Book, error) {
	ds := r.dialect.From("books").
		Select(goqu.L(bookColumns)).
		Order(goqu.I("title").Asc(), goqu.I("id").Asc())
	if filter.Genre != "" {
		ds = ds.Where(goqu.Ex{"genre": filter.Genre})
	}
	if filter.Status != nil {
		ds = ds.Where(goqu.Ex{"status": int(*filter.Status)})
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	result, err := r.db.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, genre = ?, updated_at = ? WHERE id = ?`,
		book.Title, book.Author, book.Genre, now, book.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	book.UpdatedAt = now
	return nil
}

// Delete removes a book and returns it as it was at the moment of removal.
func (r *BookRepository) Delete(ctx context.Context, id domain.BookID) (*domain.Book, error) {
	book, err := scanBook(r.db.QueryRowContext(ctx,
		`DELETE FROM books WHERE id = ? RETURNING `+bookColumns, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("delete book: %w", err)
	}
	return book, nil
}

func (r *BookRepository) Transition(ctx context.Context, id domain.BookID, fn func(*domain.Book) error) (*domain.Book, error) {
	// The DSN opens transactions with BEGIN IMMEDIATE, so the read below
	// already holds the database write lock.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	book, err := scanBook(tx.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get book for transition: %w", err)
	}

	readVersion := book.Version
	if err := fn(book); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE books SET status = ?, holder_id = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		int(book.Status), holderValue(book.HolderID), now, id.String(), readVersion,
	)
	if err != nil {
		// The holder no longer exists, though their token is still valid.
		if foreignKeyViolation(err) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("write transition: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrStaleVersion
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	book.Version = readVersion + 1
	book.UpdatedAt = now
	return book, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*domain.Book, error) {
	var (
		book   domain.Book
		id     string
		status int
		holder sql.NullString
	)
	if err := row.Scan(&id, &book.Title, &book.Author, &book.Genre, &status, &holder,
		&book.Version, &book.CreatedAt, &book.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if book.ID, err = domain.ParseBookID(id); err != nil {
		return nil, fmt.Errorf("decode book id %q: %w", id, err)
	}
	book.Status = domain.BookStatus(status)
	if holder.Valid {
		holderID, err := domain.ParseUserID(holder.String)
		if err != nil {
			return nil, fmt.Errorf("decode holder id %q: %w", holder.String, err)
		}
		book.HolderID = &holderID
	}
	return &book, nil
}

func holderValue(id *domain.UserID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
