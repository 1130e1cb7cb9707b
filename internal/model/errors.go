package model

import "errors"

// Persistence sentinels returned by repositories.  Services translate them
// into apperror kinds with entity-specific messages.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)
