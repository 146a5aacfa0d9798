package pkgdef

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTemplate_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	outputFile := filepath.Join(dir, "toolup-package.yaml")

	if err := WriteTemplate(outputFile); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteTemplate(outputFile); err == nil {
		t.Fatal("expected a second write to the same path to fail")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	outputFile := filepath.Join(dir, "toolup-package.yaml")
	if err := WriteTemplate(outputFile); err != nil {
		t.Fatalf("writing template: %v", err)
	}

	got, err := Load(outputFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := DefaultTemplate()
	if got.Name != want.Name || got.Version != want.Version {
		t.Errorf("unexpected round trip: got %+v, want %+v", got, want)
	}
	if len(got.Entrypoints) != len(want.Entrypoints) || got.Entrypoints[0] != want.Entrypoints[0] {
		t.Errorf("unexpected entrypoints: got %v, want %v", got.Entrypoints, want.Entrypoints)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected an error loading a missing package definition")
	}
}
