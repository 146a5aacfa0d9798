// Package install implements the pipeline that turns a downloaded archive
// into an installed, current package: extract, verify, rename into place,
// mutate state, republish links. Each run is tagged with a uuid install_id
// threaded through every log line.
package install

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehdev/toolup/internal/archive"
	"github.com/ehdev/toolup/internal/link"
	"github.com/ehdev/toolup/internal/paths"
	"github.com/ehdev/toolup/internal/state"
	"github.com/ehdev/toolup/pkg/urn"
)

// AlreadyExistsError is returned when the destination package directory
// exists and overwrite was not requested.
type AlreadyExistsError struct {
	Dir string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("package already installed at %s (pass --overwrite to replace it)", e.Dir)
}

// Options controls a single install pipeline run.
type Options struct {
	// ArchivePath is the local gzipped-tar file to install.
	ArchivePath string
	// Overwrite allows replacing an existing destination directory.
	Overwrite bool
	// RemoteName, if set, is recorded on the InstalledPackage.
	RemoteName string
	// ETag, if set, is recorded on the InstalledPackage.
	ETag string
	// ShimPathOverride is forwarded to link.Republish.
	ShimPathOverride string
}

// Pipeline runs the install pipeline against a Store.
type Pipeline struct {
	paths  paths.Paths
	store  *state.Store
	logger *slog.Logger
}

// New returns a Pipeline rooted at p, persisting through store.
func New(p paths.Paths, store *state.Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{paths: p, store: store, logger: logger}
}

// Run extracts opts.ArchivePath, verifies its contents, installs it into a
// versioned directory, marks it current, and republishes dispatch links.
func (pl *Pipeline) Run(opts Options) (state.PackageDescription, error) {
	installID := uuid.NewString()
	logger := pl.logger.With("install_id", installID)

	tmp := filepath.Join(pl.paths.ToolRootDir, fmt.Sprintf("tmp.%d", time.Now().Unix()))
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return state.PackageDescription{}, fmt.Errorf("preparing scratch dir: %w", err)
	}
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			_ = os.RemoveAll(tmp)
		}
	}()

	manifest, err := archive.ExtractToDir(opts.ArchivePath, tmp)
	if err != nil {
		return state.PackageDescription{}, err
	}
	if err := manifest.Validate(); err != nil {
		return state.PackageDescription{}, fmt.Errorf("invalid manifest: %w", err)
	}
	if err := archive.VerifyHashes(tmp, manifest); err != nil {
		return state.PackageDescription{}, err
	}

	for _, rel := range manifest.Entrypoints {
		if err := markExecutable(filepath.Join(tmp, rel)); err != nil {
			return state.PackageDescription{}, fmt.Errorf("marking entrypoint executable: %w", err)
		}
	}

	destDir := filepath.Join(pl.paths.ToolRootDir, unixFriendly(manifest.Name), manifest.Version)
	if _, err := os.Stat(destDir); err == nil {
		if !opts.Overwrite {
			return state.PackageDescription{}, &AlreadyExistsError{Dir: destDir}
		}
		if err := os.RemoveAll(destDir); err != nil {
			return state.PackageDescription{}, fmt.Errorf("removing existing install: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return state.PackageDescription{}, fmt.Errorf("preparing destination parent: %w", err)
	}
	if err := os.Rename(tmp, destDir); err != nil {
		return state.PackageDescription{}, fmt.Errorf("renaming into place: %w", err)
	}
	cleanupTmp = false

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return state.PackageDescription{}, fmt.Errorf("resolving absolute path: %w", err)
	}

	container, err := pl.store.Load()
	if err != nil {
		return state.PackageDescription{}, err
	}
	if container.Payload.InstalledPackages == nil {
		container.Payload = state.NewEmptyState()
	}

	pkg := state.InstalledPackage{
		ID:         urn.Package(manifest.Name, manifest.Version),
		Name:       manifest.Name,
		Version:    manifest.Version,
		PackageDir: absDest,
		RemoteName: opts.RemoteName,
		ETag:       opts.ETag,
	}

	state.AddInstalledPackage(&container.Payload, state.PackageToInstall{
		Package:     pkg,
		Entrypoints: manifest.Entrypoints,
	})
	if err := state.MakePackageCurrent(&container.Payload, pkg, logger); err != nil {
		return state.PackageDescription{}, err
	}

	saved, err := pl.store.Save(container)
	if err != nil {
		return state.PackageDescription{}, err
	}

	if err := link.Republish(pl.paths, saved.Payload, opts.ShimPathOverride, logger); err != nil {
		return state.PackageDescription{}, fmt.Errorf("republishing links: %w", err)
	}

	logger.Info("installed package", "name", pkg.Name, "version", pkg.Version, "dir", pkg.PackageDir)

	return state.DescribePackage(saved.Payload, pkg), nil
}

func unixFriendly(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
