package remote

import (
	"context"

	"github.com/ehdev/toolup/internal/paths"
)

// LocalFetcher implements Fetcher for an already-built archive on the
// local filesystem. It always reports needing an update — there is
// nothing to conditionally check — and its ETag is always empty.
type LocalFetcher struct{}

// NeedsUpdate always returns true for a local repository.
func (LocalFetcher) NeedsUpdate(ctx context.Context, cfg Config, etag string) (bool, error) {
	return true, nil
}

// Download returns the configured path directly; nothing is copied.
func (LocalFetcher) Download(ctx context.Context, cfg Config, p paths.Paths) (Artifact, error) {
	return Artifact{Path: cfg.LocalPath, ETag: ""}, nil
}
