package health

import "errors"

var (
	// ErrServiceNotFound indicates a name that was not registered at startup.
	ErrServiceNotFound = errors.New("health: service not found")

	// ErrDuplicateService indicates the same name was configured twice.
	ErrDuplicateService = errors.New("health: duplicate service")

	// ErrInvalidServiceName indicates an empty service name.
	ErrInvalidServiceName = errors.New("health: invalid service name")

	// ErrCheckTimeout indicates a probe did not finish before its deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckFailed indicates a probe returned a non-healthy result without
	// an error of its own.
	ErrCheckFailed = errors.New("health: check failed")
)
