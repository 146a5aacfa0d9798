package link

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ehdev/toolup/internal/paths"
	"github.com/ehdev/toolup/internal/state"
)

func testPaths(t *testing.T) paths.Paths {
	t.Helper()
	dir := t.TempDir()
	return paths.Paths{
		ConfigDir:   dir,
		ToolRootDir: filepath.Join(dir, "root"),
		LinkDir:     filepath.Join(dir, "root", "_bin"),
		LogDir:      filepath.Join(dir, "logs"),
	}
}

func TestRepublish_CreatesOneLinkPerCurrentBinary(t *testing.T) {
	p := testPaths(t)
	shimTarget := filepath.Join(t.TempDir(), "toolup-shim")
	if err := os.WriteFile(shimTarget, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("writing fake shim: %v", err)
	}

	payload := state.NewEmptyState()
	payload.CurrentBinaries["clu"] = state.InstalledBinary{Name: "clu", PathToExec: "/x/clu"}
	payload.CurrentBinaries["bin-2"] = state.InstalledBinary{Name: "bin-2", PathToExec: "/x/bin-2"}

	if err := Republish(p, payload, shimTarget, nil); err != nil {
		t.Fatalf("republish: %v", err)
	}

	for _, name := range []string{"clu", "bin-2"} {
		linkPath := filepath.Join(p.LinkDir, name)
		target, err := os.Readlink(linkPath)
		if err != nil {
			t.Fatalf("reading link %s: %v", linkPath, err)
		}
		if target != shimTarget {
			t.Errorf("link %s points at %s, expected %s", name, target, shimTarget)
		}
	}
}

func TestRepublish_RemovesOrphanedLinks(t *testing.T) {
	p := testPaths(t)
	shimTarget := filepath.Join(t.TempDir(), "toolup-shim")
	os.WriteFile(shimTarget, []byte("#!/bin/sh\n"), 0o755)

	payload := state.NewEmptyState()
	payload.CurrentBinaries["clu"] = state.InstalledBinary{Name: "clu", PathToExec: "/x/clu"}
	if err := Republish(p, payload, shimTarget, nil); err != nil {
		t.Fatalf("first republish: %v", err)
	}

	delete(payload.CurrentBinaries, "clu")
	payload.CurrentBinaries["renamed"] = state.InstalledBinary{Name: "renamed", PathToExec: "/x/renamed"}
	if err := Republish(p, payload, shimTarget, nil); err != nil {
		t.Fatalf("second republish: %v", err)
	}

	if _, err := os.Lstat(filepath.Join(p.LinkDir, "clu")); !os.IsNotExist(err) {
		t.Error("expected the orphaned clu link to be removed")
	}
	if _, err := os.Lstat(filepath.Join(p.LinkDir, "renamed")); err != nil {
		t.Error("expected the renamed link to exist")
	}
}

func TestRepublish_ReplacesStaleLinkTarget(t *testing.T) {
	p := testPaths(t)
	oldShim := filepath.Join(t.TempDir(), "old-shim")
	newShim := filepath.Join(t.TempDir(), "new-shim")
	os.WriteFile(oldShim, []byte("old"), 0o755)
	os.WriteFile(newShim, []byte("new"), 0o755)

	payload := state.NewEmptyState()
	payload.CurrentBinaries["clu"] = state.InstalledBinary{Name: "clu", PathToExec: "/x/clu"}

	if err := Republish(p, payload, oldShim, nil); err != nil {
		t.Fatalf("first republish: %v", err)
	}
	if err := Republish(p, payload, newShim, nil); err != nil {
		t.Fatalf("second republish: %v", err)
	}

	target, err := os.Readlink(filepath.Join(p.LinkDir, "clu"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != newShim {
		t.Errorf("expected link to be repointed at %s, got %s", newShim, target)
	}
}
