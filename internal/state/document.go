// Package state implements toolup's durable, versioned, concurrency-safe
// record of installed packages and binaries: the on-disk global-state.json
// document, its lock discipline, its optimistic-concurrency check, and the
// in-memory mutation API over its payload.
package state

import (
	"time"
)

// schemaVersion is the only state-file version this build recognizes.
// Unknown versions are a hard error; the version field reserves room for
// forward-compatible migrations later.
const schemaVersion = "v1"

// InstalledPackage is an installed, on-disk version of a named package.
type InstalledPackage struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	PackageDir string `json:"package-dir"`
	RemoteName string `json:"remote-name,omitempty"`
	ETag       string `json:"etag,omitempty"`
}

// Equal compares two InstalledPackage values ignoring PackageDir: a
// reinstall at a new path is not a semantic change.
func (p InstalledPackage) Equal(o InstalledPackage) bool {
	return p.ID == o.ID && p.Name == o.Name && p.Version == o.Version &&
		p.RemoteName == o.RemoteName && p.ETag == o.ETag
}

// InstalledBinary is a single (package, entrypoint) pairing materialized as
// an on-disk executable path.
type InstalledBinary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	PathToExec string `json:"path-to-exec"`
	PackageID  string `json:"package-id"`
}

// InstalledState is the payload of the global state document: every
// installed package and binary, plus which package/binary is current for
// each name.
type InstalledState struct {
	InstalledPackages map[string]InstalledPackage `json:"installed-packages"`
	InstalledBinaries map[string]InstalledBinary  `json:"installed-binaries"`
	CurrentBinaries   map[string]InstalledBinary  `json:"current-binaries"`
	CurrentPackages   map[string]InstalledPackage `json:"current-packages"`
}

// NewEmptyState returns a payload with all four maps initialized empty.
func NewEmptyState() InstalledState {
	return InstalledState{
		InstalledPackages: make(map[string]InstalledPackage),
		InstalledBinaries: make(map[string]InstalledBinary),
		CurrentBinaries:   make(map[string]InstalledBinary),
		CurrentPackages:   make(map[string]InstalledPackage),
	}
}

// clone returns a deep copy of s, so callers can mutate a load()ed
// container without aliasing shared map state across goroutines/tests.
func (s InstalledState) clone() InstalledState {
	out := NewEmptyState()
	for k, v := range s.InstalledPackages {
		out.InstalledPackages[k] = v
	}
	for k, v := range s.InstalledBinaries {
		out.InstalledBinaries[k] = v
	}
	for k, v := range s.CurrentBinaries {
		out.CurrentBinaries[k] = v
	}
	for k, v := range s.CurrentPackages {
		out.CurrentPackages[k] = v
	}
	return out
}

// envelope is the on-disk, versioned top-level document.
type envelope struct {
	Version   string         `json:"version"`
	UpdatedAt *time.Time     `json:"updated-at"`
	Payload   InstalledState `json:"payload"`
}

func (e envelope) checkVersion() error {
	if e.Version != schemaVersion {
		return &UnknownStateVersionError{Version: e.Version}
	}
	return nil
}

func emptyEnvelope() envelope {
	return envelope{Version: schemaVersion, Payload: NewEmptyState()}
}
