package services

import "errors"

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrNotTaskOwner       = errors.New("not authorized to access this task")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError marks schema/shape violations so the handler layer can map
// them to 400 without inspecting message text.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
