package filedrive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches the work factor the registration flow has always used.
const bcryptCost = 10

// Registration carries a validated registration request. Field-level rules
// (alphanumeric names, password length and confirmation) belong to the
// boundary layer; the service enforces only what persistence integrity
// needs.
type Registration struct {
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// UserService manages registration and credential verification.
type UserService struct {
	repo UserRepo
}

func NewUserService(repo UserRepo) *UserService {
	return &UserService{repo: repo}
}

// Register hashes the password and persists a new user. A taken username
// yields ErrConflict and leaves the existing user untouched.
func (s *UserService) Register(ctx context.Context, reg Registration) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, fmt.Errorf("register: %w", err)
	}

	if strings.TrimSpace(reg.Username) == "" {
		return User{}, fmt.Errorf("register: %w: username cannot be empty", ErrInvalidInput)
	}
	if reg.Password == "" {
		return User{}, fmt.Errorf("register: %w: password cannot be empty", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("register: hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, NewUser{
		Username:     reg.Username,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		PasswordHash: string(hash),
	})
	if err != nil {
		return User{}, fmt.Errorf("register: %w", err)
	}

	return user, nil
}

// Authenticate verifies a username/password pair. Unknown usernames and
// wrong passwords are both ErrUnauthorized; the caller learns nothing about
// which failed.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, fmt.Errorf("authenticate: %w", err)
	}

	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, fmt.Errorf("authenticate: %w", ErrUnauthorized)
		}
		return User{}, fmt.Errorf("authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, fmt.Errorf("authenticate: %w", ErrUnauthorized)
	}

	return user, nil
}

// CurrentPrincipal resolves a previously authenticated user id back to its
// record, reporting ErrUnauthorized when the user no longer exists.
func (s *UserService) CurrentPrincipal(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, fmt.Errorf("current principal: %w", err)
	}

	uid, err := ParseID(id)
	if err != nil {
		return User{}, fmt.Errorf("current principal: %w", ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, fmt.Errorf("current principal: %w", ErrUnauthorized)
		}
		return User{}, fmt.Errorf("current principal: %w", err)
	}

	return user, nil
}
