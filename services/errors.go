// Package services provides the library business logic services
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrNoCopiesAvailable  = errors.New("no copies available")
	ErrInvalidState       = errors.New("invalid borrow state")
	ErrDuplicateISBN      = errors.New("isbn already exists")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrHasActiveBorrows   = errors.New("has active borrows")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidFileName    = errors.New("invalid file name")
)

// notFound translates gorm's ErrRecordNotFound into ErrNotFound for the named entity
func notFound(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s %v: %w", entity, id, err)
}

func validation(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
