// Command toolup-shim is the thin launcher every published link points at.
// It dispatches purely on argv[0] and never accepts its own CLI flags:
// paths come from the environment only, since a shim invoked as "clu" or
// "tool-x" can't be handed "--config-dir" without colliding with the
// wrapped tool's own argument parsing.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ehdev/toolup/internal/paths"
	"github.com/ehdev/toolup/internal/state"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	p, err := paths.Resolve(paths.Overrides{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "toolup-shim: resolving paths:", err)
		os.Exit(1)
	}

	store := state.New(p, logger)
	container, err := store.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "toolup-shim: loading state:", err)
		os.Exit(1)
	}

	key := filepath.Base(os.Args[0])
	path, err := state.GetCurrentBinaryPath(container.Payload, key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "toolup-shim:", err)
		os.Exit(1)
	}

	argv := append([]string{path}, os.Args[1:]...)
	if err := execProcess(path, argv); err != nil {
		fmt.Fprintln(os.Stderr, "toolup-shim: exec:", err)
		os.Exit(1)
	}
}
