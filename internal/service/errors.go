package service

import (
	"errors"
	"fmt"

	"github.com/septivank/civic-kiosk/internal/auth"
	"github.com/septivank/civic-kiosk/internal/repository"
	"github.com/septivank/civic-kiosk/internal/validator"
)

// Error categories surfaced to the HTTP layer. Anything else is internal.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

func requireCaller(caller *auth.Identity) error {
	if caller == nil {
		return auth.ErrUnauthorized
	}
	return nil
}

func requireStaff(caller *auth.Identity) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.Role.IsStaff() {
		return fmt.Errorf("%w: role %s may not perform this action", ErrForbidden, caller.Role)
	}
	return nil
}

// classify maps storage sentinels onto service categories
func classify(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrNotPending):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}

func invalidField(field, reason string) error {
	return fmt.Errorf("%w: %w", ErrValidation, &validator.ValidationError{Field: field, Reason: reason})
}

