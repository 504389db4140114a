//go:build windows

package remove

import (
	"errors"
	"syscall"
)

// Windows error codes surfaced when a file cannot be unlinked because it
// is open or mapped. A running executable's image section holds the file
// open, so these are the normal failure mode for self-deletion on NTFS.
const (
	errorSharingViolation syscall.Errno = 32
	errorLockViolation    syscall.Errno = 33
)

// isInUse reports whether err indicates the file is locked by an open
// handle or mapped section. Note that Windows reports a running
// executable's image lock as ERROR_ACCESS_DENIED in some paths; those
// fall through to the permission classification.
func isInUse(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return errno == errorSharingViolation || errno == errorLockViolation
}
