package auth

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"stockpos/m/domain"
)

var (
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Store keeps user accounts in memory, keyed by username. Passwords are
// stored as bcrypt hashes only.
type Store struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewStore builds the user store with a seeded demo account so the API is
// usable out of the box. Seed credentials come from SEED_USERNAME and
// SEED_PASSWORD; if unset, dev defaults are used with a warning.
func NewStore() *Store {
	s := &Store{users: make(map[string]domain.User)}

	username := os.Getenv("SEED_USERNAME")
	password := os.Getenv("SEED_PASSWORD")
	if username == "" || password == "" {
		username, password = "user1", "secret"
		log.Printf("SEED_USERNAME/SEED_PASSWORD not set, seeding dev user %q", username)
	}
	if _, err := s.Register(username, password, "User One", username+"@example.com"); err != nil {
		log.Printf("unable to seed user %q: %v", username, err)
	}
	return s
}

// Register creates a user account. The returned copy never carries the
// password hash.
func (s *Store) Register(username, password, fullName, email string) (domain.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return domain.User{}, fmt.Errorf("user %s: %w", username, ErrUserExists)
	}
	user := domain.User{
		Username: username,
		FullName: fullName,
		Email:    email,
		Password: string(hashed),
	}
	s.users[username] = user

	user.Password = ""
	return user, nil
}

// Authenticate checks the password for the given username. Unknown users,
// wrong passwords and disabled accounts all report the same error.
func (s *Store) Authenticate(username, password string) (domain.User, error) {
	s.mu.RLock()
	user, ok := s.users[username]
	s.mu.RUnlock()
	if !ok || user.Disabled {
		return domain.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	user.Password = ""
	return user, nil
}

// SetPassword replaces the stored hash for an existing user.
func (s *Store) SetPassword(username, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return ErrInvalidCredentials
	}
	user.Password = string(hashed)
	s.users[username] = user
	return nil
}

// Lookup reports whether the username is registered. The returned copy
// never carries the password hash.
func (s *Store) Lookup(username string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	user.Password = ""
	return user, ok
}
