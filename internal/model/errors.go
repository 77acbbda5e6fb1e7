package model

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrQuotaExceeded = errors.New("monthly entry limit reached")
	// ErrEntryBusy is returned when an entry is already in the processing
	// state and a second pipeline invocation is attempted.
	ErrEntryBusy = errors.New("entry already processed or in progress")
)
