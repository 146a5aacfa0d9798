//go:build !windows

package install

import (
	"golang.org/x/sys/unix"
)

// markExecutable sets rwxr-xr-x on path.
func markExecutable(path string) error {
	return unix.Chmod(path, 0o755)
}
