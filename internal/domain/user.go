package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserID identifies a registered user.
type UserID uuid.UUID

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// ParseUserID parses the canonical textual form of a UserID.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, fmt.Errorf("%w: malformed user id", ErrInvalidInput)
	}
	return UserID(id), nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether id is the nil UUID.
func (id UserID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

// User represents a registered user of the library.
type User struct {
	ID           UserID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts the user. It returns ErrDuplicateUsername or
	// ErrDuplicateEmail when a unique column is already taken.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id UserID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
