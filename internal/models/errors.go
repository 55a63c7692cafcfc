package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for structured error handling.
const (
	ErrCodeConnection  = "CONNECTION_ERROR"
	ErrCodeInit        = "INIT_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeIO          = "IO_ERROR"
	ErrCodeMove        = "MOVE_ERROR"
	ErrCodeInvalidPath = "INVALID_PATH"
	ErrCodeValidation  = "VALIDATION_ERROR"
)

// Sentinel errors, one per failure kind. Every error returned by the
// gateway matches exactly one of these with errors.Is.
var (
	ErrConnection  = errors.New("connection failed")
	ErrInit        = errors.New("init failed")
	ErrNotFound    = errors.New("remote file not found")
	ErrIO          = errors.New("i/o failure")
	ErrMove        = errors.New("move failed")
	ErrInvalidPath = errors.New("invalid path")
	ErrValidation  = errors.New("invalid settings")
)

// Code returns the error code for the kind err belongs to, or "" when err
// is not a gateway error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrConnection):
		return ErrCodeConnection
	case errors.Is(err, ErrInit):
		return ErrCodeInit
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrMove):
		return ErrCodeMove
	case errors.Is(err, ErrInvalidPath):
		return ErrCodeInvalidPath
	case errors.Is(err, ErrValidation):
		return ErrCodeValidation
	case errors.Is(err, ErrIO):
		return ErrCodeIO
	default:
		return ""
	}
}

// StorageError describes a failed gateway operation. Kind is one of the
// sentinel errors above; Err is the backend or local cause, if any.
type StorageError struct {
	Kind error
	Op   string
	Path string
	Err  error
}

// NewStorageError builds a StorageError of the given kind.
func NewStorageError(kind error, op, path string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *StorageError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	if e.Path != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Kind.Error())
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the kind and the cause.
func (e *StorageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ValidationError lists every required setting that was missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required %s", ErrValidation, strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
