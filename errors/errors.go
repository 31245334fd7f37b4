// Package errors provides error types and handling for remote transfer
// operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a transfer operation error with context about the
// operation that failed. It wraps the underlying backend error with
// additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "listFiles", "pushFilesFromWorker")
	Op string

	// Bucket is the container name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error from the backend SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("transfer.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("transfer.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("transfer.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("transfer.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// Sentinel errors for common transfer operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("transfer: invalid input")

	// ErrNotSupported indicates the backend does not implement the
	// requested operation
	ErrNotSupported = errors.New("transfer: operation not supported")

	// ErrUnsupportedTransferPair indicates a peer-to-peer transfer was
	// requested between two different backend types
	ErrUnsupportedTransferPair = errors.New("transfer: unsupported transfer pairing")

	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("transfer: object not found")
)

// IsNotSupported checks if an error indicates an unimplemented operation.
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsUnsupportedTransferPair checks if an error indicates a transfer
// between incompatible backend types.
func IsUnsupportedTransferPair(err error) bool {
	return errors.Is(err, ErrUnsupportedTransferPair)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
