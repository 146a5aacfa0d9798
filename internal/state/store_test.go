package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ehdev/toolup/internal/paths"
)

func writeRawStateFile(p paths.Paths, contents string) error {
	if err := os.MkdirAll(p.ConfigDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.StateFilePath(), []byte(contents), 0o644)
}

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

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	s := New(testPaths(t), testLogger())
	c, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.UpdatedAt != nil {
		t.Error("expected nil UpdatedAt for a missing state file")
	}
	if len(c.Payload.InstalledPackages) != 0 {
		t.Error("expected empty payload for a missing state file")
	}
}

func TestStore_SaveThenLoadRoundTrip(t *testing.T) {
	s := New(testPaths(t), testLogger())
	c, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	pkg := InstalledPackage{ID: "urn:package:toolup/clu/1.0.0", Name: "clu", Version: "1.0.0", PackageDir: "/x"}
	AddInstalledPackage(&c.Payload, PackageToInstall{Package: pkg, Entrypoints: map[string]string{"clu": "clu"}})

	saved, err := s.Save(c)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.UpdatedAt == nil {
		t.Fatal("expected UpdatedAt to be stamped")
	}

	reloaded, err := s.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Payload.InstalledPackages) != 1 {
		t.Fatalf("expected 1 installed package after reload, got %d", len(reloaded.Payload.InstalledPackages))
	}
	if !reloaded.UpdatedAt.Equal(*saved.UpdatedAt) {
		t.Error("reloaded UpdatedAt does not match saved UpdatedAt")
	}
}

func TestStore_OptimisticConcurrency(t *testing.T) {
	p := testPaths(t)
	s := New(p, testLogger())

	first, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	second, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	pkgA := InstalledPackage{ID: "urn:package:toolup/a/1.0.0", Name: "a", Version: "1.0.0", PackageDir: "/a"}
	AddInstalledPackage(&first.Payload, PackageToInstall{Package: pkgA, Entrypoints: map[string]string{"a": "a"}})
	if _, err := s.Save(first); err != nil {
		t.Fatalf("first save should succeed: %v", err)
	}

	pkgB := InstalledPackage{ID: "urn:package:toolup/b/1.0.0", Name: "b", Version: "1.0.0", PackageDir: "/b"}
	AddInstalledPackage(&second.Payload, PackageToInstall{Package: pkgB, Entrypoints: map[string]string{"b": "b"}})
	_, err = s.Save(second)
	if err == nil {
		t.Fatal("expected second save to fail with StateFileOutOfDateError")
	}
	if _, ok := err.(*StateFileOutOfDateError); !ok {
		t.Errorf("expected *StateFileOutOfDateError, got %T", err)
	}
}

func TestStore_UnknownVersionIsFatal(t *testing.T) {
	p := testPaths(t)
	s := New(p, testLogger())

	// Seed a state file carrying an unrecognized version tag.
	if err := writeRawStateFile(p, `{"version":"v99","updated-at":null,"payload":{}}`); err != nil {
		t.Fatalf("seeding state file: %v", err)
	}

	_, err := s.Load()
	if err == nil {
		t.Fatal("expected an error for an unknown state file version")
	}
	if _, ok := err.(*UnknownStateVersionError); !ok {
		t.Errorf("expected *UnknownStateVersionError, got %T", err)
	}
}
