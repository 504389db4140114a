// Package selfpath resolves the filesystem path of the currently running
// executable. The path cannot change during the life of the process, so the
// first successful resolution is cached and returned on every later call.
package selfpath

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	once     sync.Once
	resolved string
	haveErr  error
)

// Resolve returns the absolute path of the running binary with symlinks
// resolved. The result is cached process-wide: both the path and a
// resolution failure are sticky, matching the fact that neither can change
// while the process runs.
//
// Resolution can fail in restricted environments (sandboxes that hide
// /proc/self/exe, or a binary whose backing file was unlinked before the
// first call).
func Resolve() (string, error) {
	once.Do(func() {
		resolved, haveErr = resolve()
	})
	return resolved, haveErr
}

// MustResolve is like Resolve but panics on failure. Use only in program
// setup where a missing self-path is unrecoverable.
func MustResolve() string {
	path, err := Resolve()
	if err != nil {
		panic(fmt.Sprintf("selfpath: %v", err))
	}
	return path
}

func resolve() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("reading executable path: %w", err)
	}

	abs, err := filepath.Abs(exe)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path for %s: %w", exe, err)
	}

	// os.Executable may return the symlink the process was started
	// through. Deleting the symlink would leave the real binary behind,
	// so follow it. A failure here is tolerable: the binary may already
	// be unlinked on Linux ("/proc/self/exe (deleted)"), in which case
	// the unresolved path is still the best available answer.
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}

	return abs, nil
}
