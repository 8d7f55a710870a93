// internal/services/errors.go
package services

import (
	"errors"

	"github.com/permitdesk/licensing-backend/internal/utils"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrUnauthorized = errors.New("not permitted for this user")
	ErrInvalidState = errors.New("invalid state for this operation")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("record already exists")
)

// ValidationError carries per-field failures and matches ErrValidation.
type ValidationError struct {
	Fields []utils.ValidationError
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error()
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// validate runs struct validation and wraps failures as a ValidationError.
func validate(req interface{}) error {
	if err := utils.ValidateStruct(req); err != nil {
		fields := utils.GetValidationErrors(err)
		if len(fields) == 0 {
			return err
		}
		return &ValidationError{Fields: fields}
	}
	return nil
}
