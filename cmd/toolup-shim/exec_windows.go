//go:build windows

package main

import (
	"os"
	"os/exec"
)

// execProcess spawns path as a child, forwards stdio, and propagates its
// exit code, since Windows has no exec-family process replacement (spec
// §4.7).
func execProcess(path string, argv []string) error {
	cmd := exec.Command(path, argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return err
	}
	os.Exit(0)
	return nil
}
