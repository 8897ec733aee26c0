package account

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmptyCredentials = errors.New("username and password cannot be empty")
	ErrUserExists       = errors.New("user already exists")
	ErrUnknownUser      = errors.New("user is not registered")
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrInvalidToken     = errors.New("invalid token")
	ErrBadAmount        = errors.New("deposit amount must be positive")
)

// User is a registered participant. Balance tracks the fiat on-ramped so
// far; Assets tracks per-symbol holdings.
type User struct {
	ID           string
	Username     string
	passwordHash []byte
	Balance      decimal.Decimal
	Assets       map[string]decimal.Decimal
}

// Store is the in-memory user registry. Sessions are opaque uuid tokens
// handed out at signin.
type Store struct {
	mu       sync.Mutex
	users    map[string]*User  // keyed by username
	sessions map[string]string // token -> username
}

func NewStore() *Store {
	return &Store{
		users:    make(map[string]*User),
		sessions: make(map[string]string),
	}
}

// Register creates a user with a bcrypt-hashed password.
func (s *Store) Register(username, password string) error {
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}
	s.users[username] = &User{
		ID:           uuid.New().String(),
		Username:     username,
		passwordHash: hash,
		Balance:      decimal.Zero,
		Assets:       make(map[string]decimal.Decimal),
	}

	log.Info().Str("username", username).Msg("user registered")
	return nil
}

// Authenticate verifies the password and mints a session token.
func (s *Store) Authenticate(username, password string) (string, error) {
	s.mu.Lock()
	user, exists := s.users[username]
	s.mu.Unlock()
	if !exists {
		return "", ErrUnknownUser
	}

	// bcrypt comparison happens outside the lock; it is deliberately slow.
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return "", ErrWrongCredentials
	}

	token := uuid.New().String()
	s.mu.Lock()
	s.sessions[token] = username
	s.mu.Unlock()

	log.Info().Str("username", username).Msg("user signed in")
	return token, nil
}

// Lookup resolves a session token to its user.
func (s *Store) Lookup(token string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, exists := s.sessions[token]
	if !exists {
		return nil, ErrInvalidToken
	}
	return s.users[username], nil
}

// Deposit credits an on-ramped amount and returns the new balance.
func (s *Store) Deposit(username string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrBadAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[username]
	if !exists {
		return decimal.Zero, ErrUnknownUser
	}
	user.Balance = user.Balance.Add(amount)

	log.Info().
		Str("username", username).
		Str("amount", amount.String()).
		Str("balance", user.Balance.String()).
		Msg("deposit credited")
	return user.Balance, nil
}
