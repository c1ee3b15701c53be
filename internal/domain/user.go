package domain

import (
	"errors"
	"strings"
	"time"
)

// DefaultStartingBalance is the balance granted to a newly created account.
const DefaultStartingBalance = 50

var (
	ErrEmptyUserID    = errors.New("user ID cannot be empty")
	ErrNegativePoints = errors.New("points cannot be negative")
)

// User is an account holder. The ID is issued by the external identity
// provider and is treated as opaque.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the identity information used to create or refresh an account.
type Profile struct {
	Email string
	Name  string
}

// NewUser creates a User with the given starting balance.
func NewUser(id string, profile Profile, startingBalance int) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        id,
		Email:     profile.Email,
		Name:      profile.Name,
		Points:    startingBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrEmptyUserID
	}
	if u.Points < 0 {
		return ErrNegativePoints
	}
	return nil
}
