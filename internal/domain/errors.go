package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidInput = errors.New("invalid input")
)

// Conflict refinements. All of them satisfy errors.Is(err, ErrConflict).
var (
	ErrDuplicateUsername = fmt.Errorf("%w: username already exists", ErrConflict)
	ErrDuplicateEmail    = fmt.Errorf("%w: email already exists", ErrConflict)
	ErrBookUnavailable   = fmt.Errorf("%w: book not available", ErrConflict)
	ErrCannotReturn      = fmt.Errorf("%w: book is not held by this user", ErrConflict)
	ErrStaleVersion      = fmt.Errorf("%w: book changed concurrently", ErrConflict)
)
