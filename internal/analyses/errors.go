package analyses

import "errors"

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNoSelection       = errors.New("no chunks selected")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrResultSealed      = errors.New("result is read-only")
)

const (
	ErrorCodeValidation        = "validation_error"
	ErrorCodeNoSelection       = "no_selection"
	ErrorCodeInvalidTransition = "invalid_transition"
	ErrorCodeProvider          = "provider_error"
	ErrorCodeInternal          = "internal_error"
)
