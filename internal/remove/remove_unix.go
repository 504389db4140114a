//go:build unix

package remove

import (
	"errors"
	"syscall"
)

// isInUse reports whether err indicates the file is busy. Unix unlink
// does not fail for running executables (the inode outlives the directory
// entry), but ETXTBSY/EBUSY can still surface from filesystems that take
// mandatory locks, such as some network mounts.
func isInUse(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return errno == syscall.ETXTBSY || errno == syscall.EBUSY
}
