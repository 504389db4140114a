// Package remove performs the actual unlinking of the executable.
// This is the ONLY package in the entire library that deletes files.
// All platform-specific deletion semantics are contained here; callers
// see one fallible attempt operation and a classified result.
package remove

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

// Reason classifies why a deletion attempt failed.
type Reason string

const (
	// ReasonNone indicates the attempt did not fail.
	ReasonNone Reason = ""

	// ReasonNotFound indicates no file exists at the path.
	ReasonNotFound Reason = "not_found"

	// ReasonPermission indicates the filesystem denied the unlink.
	ReasonPermission Reason = "permission_denied"

	// ReasonInUse indicates the file is locked or busy. On filesystems
	// with locked-file semantics the lock on a running executable is
	// released only when the process exits, so no retry issued before
	// our own exit can succeed.
	ReasonInUse Reason = "in_use"

	// ReasonOther covers all remaining IO errors.
	ReasonOther Reason = "other"
)

// Result contains the outcome of one deletion attempt.
type Result struct {
	// Removed is true when the directory entry is gone.
	Removed bool

	// Reason classifies the failure when Removed is false.
	Reason Reason

	// Err is the underlying filesystem error, nil on success.
	Err error

	// Duration is the wall clock time of the attempt.
	Duration time.Duration
}

// Remover unlinks files via os.Remove.
// This is the sole abstraction for file deletion.
type Remover struct{}

// New creates a new remover.
func New() *Remover {
	return &Remover{}
}

// Attempt tries once to unlink the file at path. On POSIX filesystems
// unlinking a running executable succeeds immediately: the directory
// entry goes away while the mapped image keeps the inode alive until the
// process exits. On platforms that forbid deleting an in-use executable
// the attempt fails with ReasonInUse (or ReasonPermission where the OS
// reports the lock as an access error).
func (r *Remover) Attempt(path string) *Result {
	start := time.Now()
	err := os.Remove(path)
	duration := time.Since(start)

	if err == nil {
		return &Result{Removed: true, Duration: duration}
	}

	return &Result{
		Reason:   Classify(err),
		Err:      err,
		Duration: duration,
	}
}

// Classify maps a filesystem error to a Reason. The in-use check is
// platform-specific and runs first because some platforms surface a
// locked executable as a permission error.
func Classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonNone
	case isInUse(err):
		return ReasonInUse
	case errors.Is(err, fs.ErrNotExist):
		return ReasonNotFound
	case errors.Is(err, fs.ErrPermission):
		return ReasonPermission
	default:
		return ReasonOther
	}
}
