package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by every lookup failure.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped by every assignment rule violation.
	ErrConflict = errors.New("conflict")

	ErrItemNotFound      = fmt.Errorf("magic item %w", ErrNotFound)
	ErrCharacterNotFound = fmt.Errorf("character %w", ErrNotFound)
	ErrAmuletNotFound    = fmt.Errorf("amulet %w", ErrNotFound)

	ErrWeaponAmuletConflict = fmt.Errorf("%w: character already holds an amulet and cannot take a weapon", ErrConflict)
)

// ValidationError reports a rejected item or character field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
