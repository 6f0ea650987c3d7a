package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/h4food/foodmarket/internal/domain/failure"
)

var (
	ErrNotFound      = failure.New(failure.KindNotFound, "user: not found")
	ErrEmailTaken    = failure.New(failure.KindConflict, "user: email already registered")
	ErrEmailRequired = failure.New(failure.KindValidation, "user: email is required")
	ErrEmailInvalid  = failure.New(failure.KindValidation, "user: email is malformed")
)

type User struct {
	ID        string
	Email     string
	Name      string
	PhotoURL  string
	CreatedAt time.Time
}

// New normalises the email to lower case; uniqueness is enforced by the store.
func New(email, name, photoURL string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrEmailInvalid
	}
	return &User{
		Email:     email,
		Name:      strings.TrimSpace(name),
		PhotoURL:  photoURL,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type Repository interface {
	// Create assigns the id and fails with ErrEmailTaken on a duplicate email.
	Create(ctx context.Context, u *User) (string, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
