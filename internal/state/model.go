package state

import (
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/ehdev/toolup/pkg/urn"
)

// PackageToInstall bundles a newly-placed package with its entrypoints, as
// the install pipeline hands it to AddInstalledPackage.
type PackageToInstall struct {
	Package InstalledPackage
	// Entrypoints maps binary-name -> relative path inside the package dir.
	Entrypoints map[string]string
}

// AddInstalledPackage upserts pkg into installed-packages by id and, for
// each entrypoint, upserts a matching InstalledBinary. Existing entries are
// replaced (id-equal); current-* is untouched.
//
// Calling this twice for the same (name, version) with different
// PackageDir values yields exactly one entry per id, pointing at the
// second PackageDir.
func AddInstalledPackage(payload *InstalledState, in PackageToInstall) {
	payload.InstalledPackages[in.Package.ID] = in.Package
	for binName, rel := range in.Entrypoints {
		binID := urn.Binary(in.Package.Name, in.Package.Version, binName)
		payload.InstalledBinaries[binID] = InstalledBinary{
			ID:         binID,
			Name:       binName,
			Version:    in.Package.Version,
			PathToExec: filepath.Join(in.Package.PackageDir, rel),
			PackageID:  in.Package.ID,
		}
	}
}

// MakePackageCurrent designates pkg as the current version for its name.
//
// If another package id is currently current for this name, every
// current-binaries entry owned by the old id is evicted first, so that
// switching the current version updates every binary name the package
// owns atomically. If a rewrite replaces a binary that belonged to a
// different package id, a warning is logged.
func MakePackageCurrent(payload *InstalledState, pkg InstalledPackage, logger *slog.Logger) error {
	if _, ok := payload.InstalledPackages[pkg.ID]; !ok {
		return &PackageNotInstalledError{Name: pkg.Name, Version: pkg.Version}
	}

	if existing, ok := payload.CurrentPackages[pkg.Name]; ok && existing.ID != pkg.ID {
		for name, b := range payload.CurrentBinaries {
			if b.PackageID == existing.ID {
				delete(payload.CurrentBinaries, name)
			}
		}
	}

	for _, b := range payload.InstalledBinaries {
		if b.PackageID != pkg.ID {
			continue
		}
		if prev, ok := payload.CurrentBinaries[b.Name]; ok && prev.PackageID != pkg.ID {
			if logger != nil {
				logger.Warn("binary name now resolves to a different package",
					"binary", b.Name,
					"previous_package_id", prev.PackageID,
					"new_package_id", pkg.ID)
			}
		}
		payload.CurrentBinaries[b.Name] = b
	}

	payload.CurrentPackages[pkg.Name] = pkg
	return nil
}

// RemovePackageByID removes every installed-binaries and current-binaries
// entry owned by id, the current-packages pointer if it targets id, and
// the package itself.
func RemovePackageByID(payload *InstalledState, id string) {
	for binID, b := range payload.InstalledBinaries {
		if b.PackageID == id {
			delete(payload.InstalledBinaries, binID)
		}
	}
	for name, b := range payload.CurrentBinaries {
		if b.PackageID == id {
			delete(payload.CurrentBinaries, name)
		}
	}
	for name, p := range payload.CurrentPackages {
		if p.ID == id {
			delete(payload.CurrentPackages, name)
		}
	}
	delete(payload.InstalledPackages, id)
}

// DescribedBinary is a binary owned by a package, annotated with whether
// it is currently the dispatch target for its name.
type DescribedBinary struct {
	Name       string `json:"name"`
	PathToExec string `json:"path-to-exec"`
	Current    bool   `json:"current"`
}

// PackageDescription is the read-only materialization describe_package
// returns: the package plus the binaries it owns.
type PackageDescription struct {
	PackageID  string                     `json:"package-id"`
	Name       string                     `json:"name"`
	Version    string                     `json:"version"`
	RemoteName string                     `json:"remote-name,omitempty"`
	ETag       string                     `json:"etag,omitempty"`
	Binaries   map[string]DescribedBinary `json:"binaries"`
}

// DescribePackage enumerates the binaries pkg owns and marks each current
// one.
func DescribePackage(payload InstalledState, pkg InstalledPackage) PackageDescription {
	out := PackageDescription{
		PackageID:  pkg.ID,
		Name:       pkg.Name,
		Version:    pkg.Version,
		RemoteName: pkg.RemoteName,
		ETag:       pkg.ETag,
		Binaries:   make(map[string]DescribedBinary),
	}
	for _, b := range payload.InstalledBinaries {
		if b.PackageID != pkg.ID {
			continue
		}
		cur, ok := payload.CurrentBinaries[b.Name]
		out.Binaries[b.Name] = DescribedBinary{
			Name:       b.Name,
			PathToExec: b.PathToExec,
			Current:    ok && cur.PackageID == pkg.ID,
		}
	}
	return out
}

// ListInstalledPackages describes every installed package, sorted by name
// then version for stable output.
func ListInstalledPackages(payload InstalledState) []PackageDescription {
	out := make([]PackageDescription, 0, len(payload.InstalledPackages))
	for _, pkg := range payload.InstalledPackages {
		out = append(out, DescribePackage(payload, pkg))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// GetCurrentBinaryPath resolves the current dispatch path for a binary
// name.
func GetCurrentBinaryPath(payload InstalledState, name string) (string, error) {
	b, ok := payload.CurrentBinaries[name]
	if !ok {
		return "", &NoSuchBinaryError{Name: name, Version: "CURRENT"}
	}
	return b.PathToExec, nil
}

// GetBinaryPath resolves a specific (name, version) pair to its installed
// path, regardless of whether it is current.
func GetBinaryPath(payload InstalledState, name, version string) (string, error) {
	for _, b := range payload.InstalledBinaries {
		if b.Name == name && b.Version == version {
			return b.PathToExec, nil
		}
	}
	return "", &NoSuchBinaryError{Name: name, Version: version}
}
