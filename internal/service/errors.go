package service

import "errors"

var (
	ErrInvalidStatus     = errors.New("invalid booking status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrEmptyMessage      = errors.New("message is required")
)
