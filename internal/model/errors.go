package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch: the two rasters do not share width/height.
	ErrDimensionMismatch = errors.New("band rasters have different dimensions")
	// ErrDataUnavailable: no sufficiently recent image exists. Treated as a skip.
	ErrDataUnavailable = errors.New("no recent image available")
	// ErrRunInProgress: a run was requested while another one is running.
	ErrRunInProgress = errors.New("run already in progress")
)

// ExternalServiceError wraps failures of band/vision/dispatch providers.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// PersistenceError wraps repository write failures.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsExternal reports whether err comes from an external provider.
func IsExternal(err error) bool {
	var e *ExternalServiceError
	return errors.As(err, &e)
}

// IsPersistence reports whether err is a repository failure.
func IsPersistence(err error) bool {
	var e *PersistenceError
	return errors.As(err, &e)
}
