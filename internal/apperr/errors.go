package apperr

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrBusy                 = errors.New("submission already in progress")
	ErrUnavailable          = errors.New("generation backend unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrInvalidInput         = errors.New("invalid input")
)
