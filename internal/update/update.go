// Package update drives the per-remote update loop: enumerate remote
// configurations, conditionally fetch, and feed the install pipeline. Each
// invocation is a single synchronous pass, not a continuous background
// scheduler.
package update

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ehdev/toolup/internal/install"
	"github.com/ehdev/toolup/internal/link"
	"github.com/ehdev/toolup/internal/paths"
	"github.com/ehdev/toolup/internal/remote"
	"github.com/ehdev/toolup/internal/state"
)

// Options controls a single update-loop run.
type Options struct {
	// Only restricts the loop to a single remote name. Empty means all.
	Only string
	// ShimPathOverride is forwarded to the install pipeline and the final
	// link republish.
	ShimPathOverride string
}

// Result summarizes what the loop did for a single remote.
type Result struct {
	RemoteName string
	Installed  bool
	Skipped    bool
	Err        error
}

// Loop runs the update loop against every file in Paths.RemoteConfigDir.
type Loop struct {
	paths    paths.Paths
	store    *state.Store
	registry *remote.Registry
	logger   *slog.Logger
}

// New returns a Loop rooted at p.
func New(p paths.Paths, store *state.Store, registry *remote.Registry, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{paths: p, store: store, registry: registry, logger: logger}
}

// Run enumerates remote.d/*.json and drives fetch+install for each,
// honoring opts.Only. An empty remote directory is not an error. Links are
// refreshed once after the loop, regardless of how many remotes changed.
func (l *Loop) Run(ctx context.Context, opts Options) ([]Result, error) {
	entries, err := os.ReadDir(l.paths.RemoteConfigDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing remote configs: %w", err)
	}

	var results []Result
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		if opts.Only != "" && name != opts.Only {
			continue
		}

		res := l.runOne(ctx, filepath.Join(l.paths.RemoteConfigDir(), e.Name()), opts)
		results = append(results, res)
	}

	container, err := l.store.Load()
	if err != nil {
		return results, err
	}
	if err := link.Republish(l.paths, container.Payload, opts.ShimPathOverride, l.logger); err != nil {
		return results, fmt.Errorf("republishing links: %w", err)
	}

	return results, nil
}

func (l *Loop) runOne(ctx context.Context, configPath string, opts Options) Result {
	cfg, err := remote.LoadConfig(configPath)
	if err != nil {
		return Result{Err: fmt.Errorf("loading %s: %w", configPath, err)}
	}
	res := Result{RemoteName: cfg.Name}

	fetcher, ok := l.registry.Get(cfg.Kind)
	if !ok {
		res.Err = fmt.Errorf("remote %s: no fetcher registered for kind %q", cfg.Name, cfg.Kind)
		return res
	}

	container, err := l.store.Load()
	if err != nil {
		res.Err = err
		return res
	}
	var etag string
	if current, ok := container.Payload.CurrentPackages[cfg.Name]; ok {
		etag = current.ETag
	}

	needsUpdate, err := fetcher.NeedsUpdate(ctx, cfg, etag)
	if err != nil {
		res.Err = fmt.Errorf("remote %s: checking for update: %w", cfg.Name, err)
		return res
	}
	if !needsUpdate {
		res.Skipped = true
		l.logger.Debug("remote up to date", "remote", cfg.Name)
		return res
	}

	artifact, err := fetcher.Download(ctx, cfg, l.paths)
	if err != nil {
		res.Err = fmt.Errorf("remote %s: downloading: %w", cfg.Name, err)
		return res
	}
	defer func() {
		if artifact.Path != "" && cfg.Kind != remote.KindLocal {
			_ = os.Remove(artifact.Path)
		}
	}()

	pipeline := install.New(l.paths, l.store, l.logger)
	_, err = pipeline.Run(install.Options{
		ArchivePath:      artifact.Path,
		Overwrite:        true,
		RemoteName:       cfg.Name,
		ETag:             artifact.ETag,
		ShimPathOverride: opts.ShimPathOverride,
	})
	if err != nil {
		res.Err = fmt.Errorf("remote %s: installing: %w", cfg.Name, err)
		return res
	}

	res.Installed = true
	l.logger.Info("updated from remote", "remote", cfg.Name)
	return res
}
