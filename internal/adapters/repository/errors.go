package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrUnsupportedDriver = errors.New("unsupported store driver")
	ErrMigrate           = errors.New("migrate store schema")
	ErrInvalidLimit      = errors.New("invalid report limit")
	ErrClosed            = errors.New("store closed")
)
