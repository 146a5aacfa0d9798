package update

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ehdev/toolup/internal/archive"
	"github.com/ehdev/toolup/internal/paths"
	"github.com/ehdev/toolup/internal/remote"
	"github.com/ehdev/toolup/internal/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
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

func writeLocalRemoteConfig(t *testing.T, p paths.Paths, name, archivePath string) {
	t.Helper()
	if err := os.MkdirAll(p.RemoteConfigDir(), 0o755); err != nil {
		t.Fatalf("preparing remote.d: %v", err)
	}
	cfg := remote.Config{Name: name, Kind: remote.KindLocal, LocalPath: archivePath}
	if err := cfg.Save(p.RemoteConfigPath(name)); err != nil {
		t.Fatalf("saving remote config: %v", err)
	}
}

func buildArchive(t *testing.T, name, version, content string) string {
	t.Helper()
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing entrypoint: %v", err)
	}

	manifest := archive.Manifest{
		Name:        name,
		Version:     version,
		Entrypoints: map[string]string{name: name},
		ArchivedAt:  time.Now().UTC(),
	}

	var buf bytes.Buffer
	if err := archive.WriteArchive(&buf, srcDir, manifest); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
	archivePath := filepath.Join(t.TempDir(), name+"-"+version+".tar.gz")
	if err := os.WriteFile(archivePath, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive file: %v", err)
	}
	return archivePath
}

func TestLoop_Run_MissingRemoteDirIsNoop(t *testing.T) {
	p := testPaths(t)
	store := state.New(p, testLogger())
	loop := New(p, store, remote.NewRegistry(), testLogger())

	results, err := loop.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for a missing remote dir, got %d", len(results))
	}
}

func TestLoop_Run_InstallsFromLocalRemote(t *testing.T) {
	p := testPaths(t)
	store := state.New(p, testLogger())
	loop := New(p, store, remote.NewRegistry(), testLogger())

	archivePath := buildArchive(t, "clu", "1.0.0", "hello")
	writeLocalRemoteConfig(t, p, "clu-remote", archivePath)

	results, err := loop.Run(context.Background(), Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !results[0].Installed {
		t.Errorf("expected remote to be installed, got %+v", results[0])
	}

	container, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := container.Payload.CurrentBinaries["clu"]; !ok {
		t.Error("expected clu to be a current binary after update")
	}
	if _, err := os.Lstat(filepath.Join(p.LinkDir, "clu")); err != nil {
		t.Errorf("expected a link for clu: %v", err)
	}
}

func TestLoop_Run_OnlyScopesToSingleRemote(t *testing.T) {
	p := testPaths(t)
	store := state.New(p, testLogger())
	loop := New(p, store, remote.NewRegistry(), testLogger())

	writeLocalRemoteConfig(t, p, "clu-remote", buildArchive(t, "clu", "1.0.0", "hello"))
	writeLocalRemoteConfig(t, p, "foo-remote", buildArchive(t, "foo", "1.0.0", "world"))

	results, err := loop.Run(context.Background(), Options{Only: "clu-remote"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly 1 result when scoped, got %d", len(results))
	}
	if results[0].RemoteName != "clu-remote" {
		t.Errorf("expected clu-remote, got %s", results[0].RemoteName)
	}

	container, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := container.Payload.CurrentBinaries["foo"]; ok {
		t.Error("expected foo to remain uninstalled when scoped to clu-remote")
	}
}
