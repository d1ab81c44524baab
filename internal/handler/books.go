package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/service"
)

// BookHandler serves the catalogue and the borrow/return actions.
type BookHandler struct {
	catalog *service.CatalogService
	loans   *service.LoanService
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(catalog *service.CatalogService, loans *service.LoanService) *BookHandler {
	return &BookHandler{catalog: catalog, loans: loans}
}

// HandleList returns the catalogue, optionally filtered by genre and status.
// GET /books?genre=...&status=...
func (h *BookHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.BookFilter{Genre: q.Get("genre")}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParseBookStatus(raw)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "Unknown status filter.")
			return
		}
		filter.Status = &status
	}

	books, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, "list books", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookDTOs(books))
}

// HandleGet returns a single book.
// GET /books/{id}
func (h *BookHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDFromPath(w, r)
	if !ok {
		return
	}

	book, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, "get book", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookDTO(book))
}

// HandleCreate adds a book to the catalogue.
// POST /books
func (h *BookHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := readJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	book, err := h.catalog.Create(r.Context(), PrincipalFromContext(r.Context()), req.Title, req.Author, req.Genre)
	if err != nil {
		h.writeError(w, "create book", err)
		return
	}

	w.Header().Set("Location", "/books/"+book.ID.String())
	writeJSON(w, http.StatusCreated, toBookDTO(book))
}

// HandleUpdate replaces the title, author and genre of a book.
// PUT /books/{id}
func (h *BookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDFromPath(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if err := readJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if err := h.catalog.Update(r.Context(), PrincipalFromContext(r.Context()), id, req.Title, req.Author, req.Genre); err != nil {
		h.writeError(w, "update book", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes a book.
// DELETE /books/{id}
func (h *BookHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		h.writeError(w, "delete book", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBorrow lends the book to the caller.
// POST /books/{id}/borrow
func (h *BookHandler) HandleBorrow(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDFromPath(w, r)
	if !ok {
		return
	}

	if _, err := h.loans.Borrow(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		h.writeError(w, "borrow book", err)
		return
	}
	writeMessage(w, http.StatusOK, "Borrowed")
}

// HandleReturn hands the book back.
// POST /books/{id}/return
func (h *BookHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := bookIDFromPath(w, r)
	if !ok {
		return
	}

	if _, err := h.loans.Return(r.Context(), PrincipalFromContext(r.Context()), id); err != nil {
		h.writeError(w, "return book", err)
		return
	}
	writeMessage(w, http.StatusOK, "Returned")
}

func (h *BookHandler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Book not found")
	case errors.Is(err, domain.ErrBookUnavailable):
		writeMessage(w, http.StatusBadRequest, "Book not available")
	case errors.Is(err, domain.ErrCannotReturn):
		writeMessage(w, http.StatusBadRequest, "Cannot return")
	default:
		slog.Error(op, "error", err)
		writeMessage(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again.")
	}
}

// bookIDFromPath parses the {id} segment. A malformed id names no book, so
// it is answered like any other unknown book.
func bookIDFromPath(w http.ResponseWriter, r *http.Request) (domain.BookID, bool) {
	id, err := domain.ParseBookID(r.PathValue("id"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Book not found")
		return domain.BookID{}, false
	}
	return id, true
}
