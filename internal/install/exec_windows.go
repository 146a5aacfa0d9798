//go:build windows

package install

// markExecutable is a no-op on Windows: there is no POSIX execute bit to
// set.
func markExecutable(path string) error {
	return nil
}
