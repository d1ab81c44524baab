package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/msomdec/library-api/internal/domain"
	"github.com/msomdec/library-api/internal/observability/metrics"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 64
	minPasswordLength = 6
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordBytes = 72
)

// TokenConfig controls the bearer tokens issued by AuthService.
type TokenConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithClock replaces the time source used to stamp and verify tokens.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

// AuthService registers users, verifies their credentials and issues and
// verifies the HS256 bearer tokens that identify them afterwards.
type AuthService struct {
	users      domain.UserRepository
	jwtSecret  []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService creates a new AuthService.
func NewAuthService(users domain.UserRepository, tokens TokenConfig, bcryptCost int, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:      users,
		jwtSecret:  []byte(tokens.Secret),
		issuer:     tokens.Issuer,
		audience:   tokens.Audience,
		tokenTTL:   tokens.TTL,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type tokenClaims struct {
	UniqueName string `json:"unique_name"`
	jwt.RegisteredClaims
}

// Register creates a new user account after validating inputs.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := validateRegistration(username, email, password); err != nil {
		metrics.ObserveAuth("register", metrics.ResultDenied)
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		metrics.ObserveAuth("register", metrics.ResultError)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           domain.NewUserID(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			metrics.ObserveAuth("register", metrics.ResultConflict)
			return nil, err
		}
		metrics.ObserveAuth("register", metrics.ResultError)
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.ObserveAuth("register", metrics.ResultSuccess)
	slog.Info("user registered", "user_id", user.ID.String(), "username", user.Username)
	return user, nil
}

func validateRegistration(username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return fmt.Errorf("%w: username, email, and password are required", domain.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return fmt.Errorf("%w: username must be between %d and %d characters", domain.ErrInvalidInput, minUsernameLength, maxUsernameLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email address is not valid", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}
	return nil
}

// Login verifies credentials and returns a signed JWT token string.
// Unknown usernames and wrong passwords both yield domain.ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Spend the same bcrypt work as a real check so response
			// timing does not reveal which usernames exist.
			_ = bcrypt.CompareHashAndPassword(s.unknownUserHash(), []byte(password))
			metrics.ObserveAuth("login", metrics.ResultDenied)
			return "", domain.ErrUnauthorized
		}
		metrics.ObserveAuth("login", metrics.ResultError)
		return "", fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.ObserveAuth("login", metrics.ResultDenied)
		return "", domain.ErrUnauthorized
	}

	token, err := s.generateJWT(user)
	if err != nil {
		metrics.ObserveAuth("login", metrics.ResultError)
		return "", fmt.Errorf("generate jwt: %w", err)
	}

	metrics.ObserveAuth("login", metrics.ResultSuccess)
	return token, nil
}

// Authenticate verifies a bearer token and resolves the principal it names.
// Only the signature, expiry, issuer and audience are checked; the user is not
// looked up again. Any failure returns domain.Anonymous and domain.ErrUnauthorized.
func (s *AuthService) Authenticate(tokenString string) (domain.Principal, error) {
	if tokenString == "" {
		return domain.Anonymous, domain.ErrUnauthorized
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return domain.Anonymous, domain.ErrUnauthorized
	}

	userID, err := domain.ParseUserID(claims.Subject)
	if err != nil || userID.IsZero() {
		return domain.Anonymous, domain.ErrUnauthorized
	}

	return domain.Principal{UserID: userID, Username: claims.UniqueName}, nil
}

func (s *AuthService) generateJWT(user *domain.User) (string, error) {
	now := s.now()
	claims := tokenClaims{
		UniqueName: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) unknownUserHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("library-api-unknown-user"), s.bcryptCost)
		if err != nil {
			slog.Error("generate placeholder hash", "error", err)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
