// Package common defines the error kinds shared by the upload and cache
// subsystems. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is a local pre-flight rejection; never retried.
	ErrValidation = errors.New("validation error")

	// ErrAuthRequired means there is no usable session token; never retried.
	ErrAuthRequired = errors.New("authentication required")

	// ErrNetwork covers transport failures without a usable response and
	// server-side 5xx responses; retried up to the attempt limit.
	ErrNetwork = errors.New("network error")

	// ErrServer is an application-level rejection carried by the envelope.
	ErrServer = errors.New("server error")

	// ErrCancelled marks a deliberate cancellation. It is a terminal state,
	// not a failure.
	ErrCancelled = errors.New("cancelled")

	ErrLimitReached = errors.New("file limit reached")
)

// ErrorKind classifies an upload failure.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindAuthRequired ErrorKind = "auth_required"
	KindNetwork      ErrorKind = "network"
	KindServer       ErrorKind = "server"
)

var kindSentinels = map[ErrorKind]error{
	KindValidation:   ErrValidation,
	KindAuthRequired: ErrAuthRequired,
	KindNetwork:      ErrNetwork,
	KindServer:       ErrServer,
}

// UploadError is the classified failure attached to a failed task.
type UploadError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of e's kind.
func (e *UploadError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Retryable reports whether the failure may be retried.
func (e *UploadError) Retryable() bool {
	return e.Kind == KindNetwork
}

// NewValidationError builds a validation failure with a formatted message.
func NewValidationError(format string, args ...any) *UploadError {
	return &UploadError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Classify maps an arbitrary error to an UploadError. Errors that are already
// classified are returned unchanged; unknown errors are treated as network
// failures since they carry no server verdict.
func Classify(err error) *UploadError {
	if err == nil {
		return nil
	}
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue
	}
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrLimitReached):
		return &UploadError{Kind: KindValidation, Message: err.Error(), Err: err}
	case errors.Is(err, ErrAuthRequired):
		return &UploadError{Kind: KindAuthRequired, Message: err.Error(), Err: err}
	case errors.Is(err, ErrServer):
		return &UploadError{Kind: KindServer, Message: err.Error(), Err: err}
	default:
		return &UploadError{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
}
