//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// execProcess replaces the current process image with path: POSIX dispatch
// uses exec semantics, so the launcher never returns.
func execProcess(path string, argv []string) error {
	return unix.Exec(path, argv, os.Environ())
}
