package state

import (
	"fmt"
	"time"
)

// UnableToObtainLockError reports that the state-file lock could not be
// acquired after the bounded retry schedule.
type UnableToObtainLockError struct {
	Path string
}

func (e *UnableToObtainLockError) Error() string {
	return fmt.Sprintf("unable to obtain lock on %s", e.Path)
}

// StateFileOutOfDateError is the optimistic-concurrency guard: some other
// writer committed between this caller's load and save.
type StateFileOutOfDateError struct {
	Expected *time.Time
	Found    *time.Time
}

func (e *StateFileOutOfDateError) Error() string {
	return fmt.Sprintf("state file out of date: expected updated-at %s, found %s", fmtTime(e.Expected), fmtTime(e.Found))
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "<none>"
	}
	return t.Format(time.RFC3339Nano)
}

// UnknownStateVersionError is returned when the on-disk envelope carries a
// version discriminator this build doesn't recognize.
type UnknownStateVersionError struct {
	Version string
}

func (e *UnknownStateVersionError) Error() string {
	return fmt.Sprintf("unknown state file version: %q", e.Version)
}

// PackageNotInstalledError is returned by MakePackageCurrent when the
// target id has no corresponding installed package.
type PackageNotInstalledError struct {
	Name    string
	Version string
}

func (e *PackageNotInstalledError) Error() string {
	return fmt.Sprintf("package not installed: %s@%s", e.Name, e.Version)
}

// NoSuchBinaryError is returned when a binary name or (name, version) pair
// cannot be resolved to an installed binary.
type NoSuchBinaryError struct {
	Name    string
	Version string
}

func (e *NoSuchBinaryError) Error() string {
	return fmt.Sprintf("no such binary: %s@%s", e.Name, e.Version)
}
