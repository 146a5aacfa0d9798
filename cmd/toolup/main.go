// Command toolup is a per-user tool version manager: it downloads signed
// binary packages, installs many versions side by side, tracks which
// version of each tool is current, and publishes stable symlinks backed by
// toolup-shim.
//
// # Usage
//
//	toolup package init
//	toolup package install ./clu-1.0.0.tar.gz
//	toolup remote add s3 --name clu --url https://example.s3.amazonaws.com/clu.tar.gz
//	toolup remote update
//	toolup exec clu --help
//
// # Configuration
//
// Paths are resolved from, in precedence order: --config-dir/--tool-root-dir
// flags, TOOLUP_GLOBAL_CONFIG_DIR/TOOLUP_ROOT_TOOL_DIR environment
// variables, then platform defaults.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ehdev/toolup/internal/install"
	"github.com/ehdev/toolup/internal/link"
	"github.com/ehdev/toolup/internal/paths"
	"github.com/ehdev/toolup/internal/pkgdef"
	"github.com/ehdev/toolup/internal/remote"
	"github.com/ehdev/toolup/internal/state"
	"github.com/ehdev/toolup/internal/update"
)

// buildVersion is overridden at build time via -ldflags.
var buildVersion = "dev"

type globalFlags struct {
	configDir   string
	toolRootDir string
	shimPath    string
	debugCount  int
	warnOnly    bool
	errorOnly   bool
	console     bool
}

func main() {
	gf := &globalFlags{}
	fs := flag.NewFlagSet("toolup", flag.ContinueOnError)
	registerGlobalFlags(fs, gf)

	// Global flags must precede the subcommand name: flag.Parse stops at
	// the first non-flag argument, which is exactly the subcommand.
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: toolup [global flags] <package|remote|exec|config|version> ...")
		os.Exit(1)
	}
	subcommand := fs.Arg(0)
	args := fs.Args()[1:]

	logger := newLogger(gf)

	if err := dispatch(context.Background(), subcommand, args, fs, gf, logger); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

// debugCountFlag implements flag.Value as a repeatable, argument-less
// counter: "-d -d -d" counts three. Any count above zero selects debug
// level; repeating the flag does not raise verbosity further.
type debugCountFlag struct{ n *int }

func (f debugCountFlag) String() string   { return "" }
func (f debugCountFlag) IsBoolFlag() bool { return true }
func (f debugCountFlag) Set(string) error { *f.n++; return nil }

func registerGlobalFlags(fs *flag.FlagSet, gf *globalFlags) {
	fs.StringVar(&gf.configDir, "config-dir", "", "override the config directory")
	fs.StringVar(&gf.toolRootDir, "tool-root-dir", "", "override the tool root directory")
	fs.StringVar(&gf.shimPath, "shim-path", "", "override the resolved shim executable path")
	fs.Var(debugCountFlag{n: &gf.debugCount}, "d", "increase log verbosity (repeatable)")
	fs.BoolVar(&gf.warnOnly, "w", false, "log at warn level")
	fs.BoolVar(&gf.errorOnly, "e", false, "log at error level")
	fs.BoolVar(&gf.console, "console", false, "emit structured JSON logs instead of text")
}

func newLogger(gf *globalFlags) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case gf.errorOnly:
		level = slog.LevelError
	case gf.warnOnly:
		level = slog.LevelWarn
	case gf.debugCount > 0:
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if gf.console {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func dispatch(ctx context.Context, subcommand string, args []string, _ *flag.FlagSet, gf *globalFlags, logger *slog.Logger) error {
	switch subcommand {
	case "version":
		fmt.Printf("toolup %s\n", buildVersion)
		return nil
	case "package":
		return runPackage(ctx, args, gf, logger)
	case "remote":
		return runRemote(ctx, args, gf, logger)
	case "exec":
		return runExec(args, gf, logger)
	case "config":
		return runConfig(args, gf, logger)
	default:
		return fmt.Errorf("unknown subcommand %q", subcommand)
	}
}

func resolvePaths(gf *globalFlags) (paths.Paths, error) {
	return paths.Resolve(paths.Overrides{
		ConfigDir:   gf.configDir,
		ToolRootDir: gf.toolRootDir,
	})
}

func runPackage(ctx context.Context, args []string, gf *globalFlags, logger *slog.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: toolup package <init|archive|install> ...")
	}
	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("package init", flag.ContinueOnError)
		output := fs.String("output-file", "package.yaml", "path to write the template to")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if err := pkgdef.WriteTemplate(*output); err != nil {
			return err
		}
		logger.Info("wrote package template", "path", *output)
		return nil

	case "archive":
		fs := flag.NewFlagSet("package archive", flag.ContinueOnError)
		targetDir := fs.String("target-dir", "", "directory containing the built artifacts")
		configPath := fs.String("config", "package.yaml", "user package definition file")
		archivePath := fs.String("archive-path", "", "path to write the archive to")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *targetDir == "" || *archivePath == "" {
			return fmt.Errorf("--target-dir and --archive-path are required")
		}
		if err := pkgdef.BuildArchive(pkgdef.BuildArchiveOptions{
			TargetDir:    *targetDir,
			ConfigPath:   *configPath,
			ArchivePath:  *archivePath,
			ArchivedTime: time.Now().UTC(),
		}); err != nil {
			return err
		}
		logger.Info("wrote archive", "path", *archivePath)
		return nil

	case "install":
		fs := flag.NewFlagSet("package install", flag.ContinueOnError)
		overwrite := fs.Bool("overwrite", false, "replace an existing install at the same version")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return fmt.Errorf("usage: toolup package install <archive-path> [--overwrite]")
		}

		p, err := resolvePaths(gf)
		if err != nil {
			return err
		}
		store := state.New(p, logger)
		pipeline := install.New(p, store, logger)
		desc, err := pipeline.Run(install.Options{
			ArchivePath:      fs.Arg(0),
			Overwrite:        *overwrite,
			ShimPathOverride: gf.shimPath,
		})
		if err != nil {
			return err
		}
		logger.Info("installed", "name", desc.Name, "version", desc.Version)
		return nil

	default:
		return fmt.Errorf("unknown package subcommand %q", args[0])
	}
}

func runRemote(ctx context.Context, args []string, gf *globalFlags, logger *slog.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: toolup remote <add|delete|list|update> ...")
	}

	p, err := resolvePaths(gf)
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		return runRemoteAdd(args[1:], p)
	case "delete":
		return runRemoteDelete(args[1:], p, logger)
	case "list":
		return runRemoteList(p)
	case "update":
		return runRemoteUpdate(ctx, args[1:], p, gf, logger)
	default:
		return fmt.Errorf("unknown remote subcommand %q", args[0])
	}
}

func runRemoteAdd(args []string, p paths.Paths) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: toolup remote add <local|s3> ...")
	}

	switch args[0] {
	case "local":
		fs := flag.NewFlagSet("remote add local", flag.ContinueOnError)
		name := fs.String("name", "", "remote name")
		path := fs.String("path", "", "path to the archive")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *name == "" || *path == "" {
			return fmt.Errorf("--name and --path are required")
		}
		cfg := remote.Config{
			Name:                *name,
			UpdatePeriodSeconds: int((24 * time.Hour).Seconds()),
			Kind:                remote.KindLocal,
			LocalPath:           *path,
		}
		return writeRemoteConfig(p, cfg)

	case "s3":
		fs := flag.NewFlagSet("remote add s3", flag.ContinueOnError)
		name := fs.String("name", "", "remote name")
		url := fs.String("url", "", "S3 object URL")
		auth := fs.String("auth", "none", "auth strategy: none, default-aws-auth, or script")
		authScript := fs.String("auth-script", "", "path to an auth script (required when --auth=script)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *name == "" || *url == "" {
			return fmt.Errorf("--name and --url are required")
		}
		strategy := remote.AuthStrategyKind(*auth)
		if strategy == remote.AuthScript && *authScript == "" {
			return fmt.Errorf("--auth-script is required when --auth=script")
		}
		cfg := remote.Config{
			Name:                *name,
			UpdatePeriodSeconds: int((24 * time.Hour).Seconds()),
			Kind:                remote.KindS3,
			S3URL:               *url,
			AuthStrategy:        strategy,
			AuthScriptPath:      *authScript,
		}
		return writeRemoteConfig(p, cfg)

	default:
		return fmt.Errorf("unknown remote kind %q", args[0])
	}
}

func writeRemoteConfig(p paths.Paths, cfg remote.Config) error {
	if err := os.MkdirAll(p.RemoteConfigDir(), 0o755); err != nil {
		return fmt.Errorf("preparing remote config dir: %w", err)
	}
	return cfg.Save(p.RemoteConfigPath(cfg.Name))
}

func runRemoteDelete(args []string, p paths.Paths, logger *slog.Logger) error {
	fs := flag.NewFlagSet("remote delete", flag.ContinueOnError)
	name := fs.String("name", "", "remote name")
	cascade := fs.Bool("cascade", false, "also remove every installed package sourced from this remote")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	if *cascade {
		store := state.New(p, logger)
		container, err := store.Load()
		if err != nil {
			return err
		}
		var toRemove []string
		for id, pkg := range container.Payload.InstalledPackages {
			if pkg.RemoteName == *name {
				toRemove = append(toRemove, id)
			}
		}
		for _, id := range toRemove {
			state.RemovePackageByID(&container.Payload, id)
		}
		saved, err := store.Save(container)
		if err != nil {
			return err
		}
		if err := link.Republish(p, saved.Payload, "", logger); err != nil {
			return err
		}
		logger.Info("cascaded removal", "remote", *name, "packages_removed", len(toRemove))
	}

	if err := os.Remove(p.RemoteConfigPath(*name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing remote config: %w", err)
	}
	return nil
}

func runRemoteList(p paths.Paths) error {
	entries, err := os.ReadDir(p.RemoteConfigDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("listing remote configs: %w", err)
	}

	store := state.New(p, slog.Default())
	container, err := store.Load()
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		cfg, err := remote.LoadConfig(filepath.Join(p.RemoteConfigDir(), e.Name()))
		if err != nil {
			return err
		}
		fmt.Printf("%s is sourced from %s\n", cfg.Name, remoteSource(cfg))
		for _, pkg := range container.Payload.InstalledPackages {
			if pkg.RemoteName != cfg.Name {
				continue
			}
			desc := state.DescribePackage(container.Payload, pkg)
			fmt.Printf("  %s@%s provides %s\n", desc.Name, desc.Version, formatBinaries(desc))
		}
	}
	return nil
}

func remoteSource(cfg remote.Config) string {
	if cfg.Kind == remote.KindLocal {
		return cfg.LocalPath
	}
	return cfg.S3URL
}

func formatBinaries(desc state.PackageDescription) string {
	out := ""
	for name, bin := range desc.Binaries {
		if out != "" {
			out += ", "
		}
		if bin.Current {
			out += name + " (current)"
		} else {
			out += name
		}
	}
	return out
}

func runRemoteUpdate(ctx context.Context, args []string, p paths.Paths, gf *globalFlags, logger *slog.Logger) error {
	fs := flag.NewFlagSet("remote update", flag.ContinueOnError)
	only := fs.String("only", "", "restrict the update loop to a single remote name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store := state.New(p, logger)
	loop := update.New(p, store, remote.NewRegistry(), logger)
	results, err := loop.Run(ctx, update.Options{Only: *only, ShimPathOverride: gf.shimPath})
	if err != nil {
		return err
	}

	var firstErr error
	for _, r := range results {
		switch {
		case r.Err != nil:
			logger.Error("remote update failed", "remote", r.RemoteName, "error", r.Err)
			if firstErr == nil {
				firstErr = r.Err
			}
		case r.Installed:
			logger.Info("remote installed an update", "remote", r.RemoteName)
		case r.Skipped:
			logger.Debug("remote already up to date", "remote", r.RemoteName)
		}
	}
	return firstErr
}

func runExec(args []string, gf *globalFlags, logger *slog.Logger) error {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	version := fs.String("version", "", "run a specific installed version instead of the current one")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: toolup exec [--version V] <command-name> [args...]")
	}
	name := fs.Arg(0)
	cmdArgs := fs.Args()[1:]

	p, err := resolvePaths(gf)
	if err != nil {
		return err
	}
	store := state.New(p, logger)
	container, err := store.Load()
	if err != nil {
		return err
	}

	var path string
	if v := resolveVersionOverride(*version); v != "" {
		path, err = state.GetBinaryPath(container.Payload, name, v)
	} else {
		path, err = state.GetCurrentBinaryPath(container.Payload, name)
	}
	if err != nil {
		return err
	}

	return execProcess(path, append([]string{path}, cmdArgs...))
}

func resolveVersionOverride(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("TOOLUP_VERSION_OVERRIDE")
}

func runConfig(args []string, gf *globalFlags, _ *slog.Logger) error {
	if len(args) == 0 || args[0] != "get-link-path" {
		return fmt.Errorf("usage: toolup config get-link-path")
	}
	p, err := resolvePaths(gf)
	if err != nil {
		return err
	}
	fmt.Println(p.LinkDir)
	return nil
}
