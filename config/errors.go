package config

import "errors"

var (
	// ErrReadConfig wraps failures reading or decoding configuration sources.
	ErrReadConfig = errors.New("config: failed to read configuration")

	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)
