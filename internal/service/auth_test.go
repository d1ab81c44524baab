package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/repository/sqlite"
	"github.com/msomdec/library-api/internal/service"
)

var testTokens = service.TokenConfig{
	Secret:   "test-secret-key-for-unit-tests-0123456789",
	Issuer:   "library-api",
	Audience: "library-api-clients",
	TTL:      2 * time.Hour,
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAuthService(t *testing.T, opts ...service.AuthOption) (*service.AuthService, *sqlite.DB) {
	t.Helper()
	db := newTestDB(t)
	// Use cost 4 for fast tests.
	return service.NewAuthService(db.Users(), testTokens, 4, opts...), db
}

func TestAuthService_Register_Success(t *testing.T) {
	auth, _ := newTestAuthService(t)

	user, err := auth.Register(context.Background(), "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID.IsZero() {
		t.Fatal("expected user ID to be set")
	}
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "" || user.PasswordHash == "password123" {
		t.Fatal("expected password to be hashed")
	}
}

func TestAuthService_Register_Duplicates(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := auth.Register(ctx, "alice", "other@example.com", "password123")
	if !errors.Is(err, domain.ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	_, err = auth.Register(ctx, "bob", "alice@example.com", "password123")
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected duplicate email to be a conflict, got %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"empty username", "", "a@example.com", "password123"},
		{"empty email", "alice", "", "password123"},
		{"empty password", "alice", "a@example.com", ""},
		{"short username", "al", "a@example.com", "password123"},
		{"long username", strings.Repeat("a", 65), "a@example.com", "password123"},
		{"bad email", "alice", "not-an-email", "password123"},
		{"display name email", "alice", "Alice <a@example.com>", "password123"},
		{"short password", "alice", "a@example.com", "12345"},
		{"long password", "alice", "a@example.com", strings.Repeat("p", 73)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Register(ctx, tt.username, tt.email, tt.password)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAuthService_Register_ConcurrentSameUsername(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	const attempts = 6
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email := "racer" + string(rune('a'+i)) + "@example.com"
			_, err := auth.Register(ctx, "racer", email, "password123")
			switch {
			case err == nil:
				successes.Add(1)
			case !errors.Is(err, domain.ErrDuplicateUsername):
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := successes.Load(); got != 1 {
		t.Fatalf("expected exactly 1 successful registration, got %d", got)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, "alice", "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	token, err := auth.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	p, err := auth.Authenticate(token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if p.UserID != user.ID {
		t.Fatalf("expected user ID %s, got %s", user.ID, p.UserID)
	}
	if p.Username != "alice" {
		t.Fatalf("expected username alice, got %s", p.Username)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	auth, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, wrongPassword := auth.Login(ctx, "alice", "wrongpassword")
	_, unknownUser := auth.Login(ctx, "nobody", "password123")

	if !errors.Is(wrongPassword, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", wrongPassword)
	}
	if !errors.Is(unknownUser, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown user, got %v", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("expected identical errors, got %q and %q", wrongPassword, unknownUser)
	}
}

func TestAuthService_Authenticate_Rejects(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := issuedAt
	clock := func() time.Time { return now }

	auth, db := newTestAuthService(t, service.WithClock(clock))
	ctx := context.Background()
	if _, err := auth.Register(ctx, "alice", "alice@example.com", "password123"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, err := auth.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	otherSecret := testTokens
	otherSecret.Secret = "a-completely-different-secret-of-length"
	otherIssuer := testTokens
	otherIssuer.Issuer = "someone-else"
	otherAudience := testTokens
	otherAudience.Audience = "someone-else"

	tests := []struct {
		name  string
		auth  *service.AuthService
		token string
	}{
		{"empty", auth, ""},
		{"garbage", auth, "not.a.jwt"},
		{"tampered", auth, tampered},
		{"wrong secret", service.NewAuthService(db.Users(), otherSecret, 4, service.WithClock(clock)), token},
		{"wrong issuer", service.NewAuthService(db.Users(), otherIssuer, 4, service.WithClock(clock)), token},
		{"wrong audience", service.NewAuthService(db.Users(), otherAudience, 4, service.WithClock(clock)), token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.auth.Authenticate(tt.token)
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if !p.IsAnonymous() {
				t.Fatalf("expected anonymous principal, got %+v", p)
			}
		})
	}

	t.Run("expired", func(t *testing.T) {
		now = issuedAt.Add(testTokens.TTL + time.Minute)
		if _, err := auth.Authenticate(token); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
