package storage

import "errors"

// Sentinel errors shared by every backend. Match them with errors.Is.
var (
	ErrNotFound     = errors.New("storage: not found")
	ErrDuplicateKey = errors.New("storage: record already written")
	ErrInvalidInput = errors.New("storage: invalid input")
)
