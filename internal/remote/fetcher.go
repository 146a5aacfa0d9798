package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/ehdev/toolup/internal/paths"
)

// Artifact is a downloaded archive: a path on disk plus the ETag the
// remote reported, if any.
type Artifact struct {
	Path string
	ETag string
}

// Fetcher is the capability every repository kind implements.
type Fetcher interface {
	// NeedsUpdate reports whether a new download is warranted given the
	// etag recorded for the currently-installed package, if any.
	NeedsUpdate(ctx context.Context, cfg Config, etag string) (bool, error)
	// Download makes the archive available on local disk and returns its
	// location and new ETag. Network kinds write it into
	// Paths.DownloadScratchDir; the local kind returns its configured path.
	Download(ctx context.Context, cfg Config, p paths.Paths) (Artifact, error)
}

// Registry maps a RepositoryKind to the Fetcher that handles it.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[RepositoryKind]Fetcher
}

// NewRegistry returns a Registry with the built-in local and s3 fetchers
// already registered.
func NewRegistry() *Registry {
	r := &Registry{fetchers: make(map[RepositoryKind]Fetcher)}
	r.mustRegister(KindLocal, &LocalFetcher{})
	r.mustRegister(KindS3, NewS3Fetcher())
	return r
}

func (r *Registry) mustRegister(kind RepositoryKind, f Fetcher) {
	if err := r.Register(kind, f); err != nil {
		panic(err)
	}
}

// Register adds a fetcher for kind. Returns an error if kind is already
// registered.
func (r *Registry) Register(kind RepositoryKind, f Fetcher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.fetchers[kind]; exists {
		return fmt.Errorf("remote: fetcher already registered for kind %q", kind)
	}
	r.fetchers[kind] = f
	return nil
}

// Get returns the fetcher for kind.
func (r *Registry) Get(kind RepositoryKind) (Fetcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[kind]
	return f, ok
}
