package service

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrRenderingFailed    = errors.New("rendering failed")
	ErrServiceUnavailable = errors.New("service unavailable")
)
