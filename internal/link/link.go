// Package link republishes the shim-dispatch table: one symlink per
// current binary name, all pointing at the single toolup-shim executable.
package link

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ehdev/toolup/internal/paths"
	"github.com/ehdev/toolup/internal/state"
)

// ShimBinaryName is the fixed executable every published link points at.
const ShimBinaryName = "toolup-shim"

// Republish ensures link_dir contains exactly one symlink per entry in
// payload.CurrentBinaries, each pointing at the shim sitting beside the
// running toolup executable, and removes links for names no longer
// current.
//
// shimPathOverride, if non-empty, replaces the computed sibling-of-current-
// exe resolution.
func Republish(p paths.Paths, payload state.InstalledState, shimPathOverride string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(p.LinkDir, 0o755); err != nil {
		return fmt.Errorf("preparing link dir: %w", err)
	}

	shimTarget := shimPathOverride
	if shimTarget == "" {
		resolved, err := shimPath()
		if err != nil {
			return fmt.Errorf("resolving shim path: %w", err)
		}
		shimTarget = resolved
	}

	entries, err := os.ReadDir(p.LinkDir)
	if err != nil {
		return fmt.Errorf("listing link dir: %w", err)
	}
	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		present[e.Name()] = struct{}{}
	}

	for name := range payload.CurrentBinaries {
		linkPath := filepath.Join(p.LinkDir, name)
		if _, err := os.Lstat(linkPath); err == nil {
			if err := os.Remove(linkPath); err != nil {
				return fmt.Errorf("removing stale link %s: %w", linkPath, err)
			}
		}
		if err := os.Symlink(shimTarget, linkPath); err != nil {
			return fmt.Errorf("creating link %s: %w", linkPath, err)
		}
		delete(present, name)
	}

	for name := range present {
		linkPath := filepath.Join(p.LinkDir, name)
		if _, err := os.Lstat(linkPath); err == nil {
			logger.Debug("removing orphaned link", "name", name)
			if err := os.Remove(linkPath); err != nil {
				return fmt.Errorf("removing orphaned link %s: %w", linkPath, err)
			}
		}
	}

	return nil
}

// shimPath locates the shim next to whatever toolup executable is
// currently running.
func shimPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		resolved = exe
	}
	return filepath.Join(filepath.Dir(resolved), ShimBinaryName), nil
}
