package pkgdef

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ehdev/toolup/internal/archive"
)

// BuildArchiveOptions controls a single `package archive` run: the thin
// glue that turns a UserDefinedPackage plus a target directory into an
// archive.Manifest and hands it to archive.WriteArchive.
type BuildArchiveOptions struct {
	TargetDir    string
	ConfigPath   string
	ArchivePath  string
	ArchivedTime time.Time
}

// BuildArchive reads the user package definition at opts.ConfigPath,
// validates every entrypoint exists under opts.TargetDir, and writes a
// gzipped-tar archive to opts.ArchivePath.
func BuildArchive(opts BuildArchiveOptions) error {
	udp, err := Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	targetDir, err := filepath.Abs(opts.TargetDir)
	if err != nil {
		return fmt.Errorf("pkgdef: resolving target dir: %w", err)
	}
	if _, err := os.Stat(targetDir); err != nil {
		return fmt.Errorf("pkgdef: target dir %s: %w", targetDir, err)
	}

	entrypoints := make(map[string]string, len(udp.Entrypoints))
	for _, rel := range udp.Entrypoints {
		if _, err := os.Stat(filepath.Join(targetDir, rel)); err != nil {
			return fmt.Errorf("pkgdef: entrypoint %s not found under %s: %w", rel, targetDir, err)
		}
		entrypoints[filepath.Base(rel)] = rel
	}

	manifest := archive.Manifest{
		Name:        udp.Name,
		Version:     udp.Version,
		Entrypoints: entrypoints,
		ArchivedAt:  opts.ArchivedTime,
		FileHashes:  make(map[string]string),
	}

	out, err := os.Create(opts.ArchivePath)
	if err != nil {
		return fmt.Errorf("pkgdef: creating archive file: %w", err)
	}
	defer out.Close()

	return archive.WriteArchive(out, targetDir, manifest)
}
