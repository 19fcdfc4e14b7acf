package store

import (
	"errors"
	"fmt"
	"time"
)

// Profile is the role a user holds in the application.
type Profile string

const (
	ProfileAdmin  Profile = "ADMIN"
	ProfileAuthor Profile = "AUTOR"
)

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool {
	return p == ProfileAdmin || p == ProfileAuthor
}

// User is one row of the usuario table.
// PasswordHash is stored as given; callers hash before Insert/UpdatePassword.
type User struct {
	ID           int64
	Name         string
	CPF          string
	BirthDate    string
	Email        string
	Phone        string
	PasswordHash string
	Profile      Profile
	CreatedAt    time.Time
}

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a unique column (cpf, email) collides.
	ErrDuplicate = errors.New("user already exists")
)

// DuplicateError names the unique column that rejected a write.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "" {
		return ErrDuplicate.Error()
	}
	return fmt.Sprintf("%s: %s already registered", ErrDuplicate.Error(), e.Field)
}

// Is makes errors.Is(err, ErrDuplicate) hold.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}
