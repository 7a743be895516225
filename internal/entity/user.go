package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// User is a dashboard operator. The password is only ever held as a hash.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewUser(email, passwordHash string, now time.Time) *User {
	return &User{
		ID:           uuid.New().String(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}
}

type UserRepositoryInterface interface {
	// Create returns ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
}
