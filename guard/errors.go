package guard

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrResolution indicates the executable path could not be
	// determined.
	ErrResolution = errors.New("executable path resolution failed")

	// ErrInvalidPolicy indicates an unknown policy value.
	ErrInvalidPolicy = errors.New("invalid guard policy")

	// ErrPathNotFound indicates an explicitly supplied path does not
	// exist at construction time.
	ErrPathNotFound = errors.New("guarded path does not exist")
)

// ErrorCode provides structured error classification.
type ErrorCode string

const (
	// ErrCodeResolution indicates a path resolution failure.
	ErrCodeResolution ErrorCode = "RESOLUTION_FAILED"

	// ErrCodeInvalidPolicy indicates a configuration error.
	ErrCodeInvalidPolicy ErrorCode = "INVALID_POLICY"

	// ErrCodeInternalError indicates an internal error.
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// GuardError provides detailed error information for construction
// failures. Teardown never returns errors; everything surfaced through
// GuardError happens synchronously at build time.
type GuardError struct {
	// Op is the operation that failed.
	Op string

	// Path is the guarded path, if known.
	Path string

	// Err is the underlying error.
	Err error

	// Code is the structured error code.
	Code ErrorCode

	// Details provides human-readable details.
	Details string

	// Retryable indicates whether retrying the operation may succeed.
	Retryable bool
}

// Error returns the error message.
func (e *GuardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Path, e.Details)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *GuardError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *GuardError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewResolutionError creates a resolution error for build-time failures.
// Resolution errors are retryable: the caller may create the file, or
// the environment may change, before a later Build.
func NewResolutionError(path string, err error) error {
	return &GuardError{
		Op:        "resolve",
		Path:      path,
		Err:       fmt.Errorf("%w: %w", ErrResolution, err),
		Code:      ErrCodeResolution,
		Retryable: true,
	}
}

// NewPolicyError creates an invalid-policy error.
func NewPolicyError(policy Policy) error {
	return &GuardError{
		Op:      "build",
		Err:     ErrInvalidPolicy,
		Code:    ErrCodeInvalidPolicy,
		Details: fmt.Sprintf("unknown policy %q", policy),
	}
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var guardErr *GuardError
	if errors.As(err, &guardErr) {
		return guardErr.Code
	}
	return ErrCodeInternalError
}

// IsRetryable reports whether retrying the failed operation may
// succeed. Unknown errors are not retryable.
func IsRetryable(err error) bool {
	var guardErr *GuardError
	if errors.As(err, &guardErr) {
		return guardErr.Retryable
	}
	return false
}
