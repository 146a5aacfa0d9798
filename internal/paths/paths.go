// Package paths resolves the directories toolup reads and writes under the
// invoking user's account.
//
// # Resolution order
//
// ConfigDir and ToolRootDir are built once per process from, in precedence
// order:
//  1. an explicit CLI flag
//  2. an environment variable
//  3. a platform default
//
// LinkDir is always ToolRootDir/_bin, and LogDir always uses the platform
// default; neither has its own flag or environment variable.
//
// Paths is then passed as an explicit value to every other component; there
// is no process-wide mutable configuration.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "toolup"

// Paths holds the four user-scoped directories toolup operates under.
type Paths struct {
	// ConfigDir holds global-state.json and remote.d/*.json.
	ConfigDir string
	// ToolRootDir holds installed package files and scratch directories.
	ToolRootDir string
	// LinkDir holds the shim-named symlinks. Users put this on their PATH.
	LinkDir string
	// LogDir holds toolup's own logs, if file logging is enabled.
	LogDir string
}

// Overrides carries the CLI-flag values that take precedence over
// environment variables and defaults. Empty fields fall through.
type Overrides struct {
	ConfigDir   string
	ToolRootDir string
}

// Resolve builds a Paths value from CLI overrides, environment variables,
// and platform defaults, in that precedence order.
func Resolve(o Overrides) (Paths, error) {
	configDir, err := resolveConfigDir(o.ConfigDir)
	if err != nil {
		return Paths{}, err
	}
	toolRootDir, err := resolveToolRootDir(o.ToolRootDir)
	if err != nil {
		return Paths{}, err
	}
	logDir, err := defaultLogDir()
	if err != nil {
		return Paths{}, err
	}

	return Paths{
		ConfigDir:   configDir,
		ToolRootDir: toolRootDir,
		LinkDir:     filepath.Join(toolRootDir, "_bin"),
		LogDir:      logDir,
	}, nil
}

func resolveConfigDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("TOOLUP_GLOBAL_CONFIG_DIR"); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

func resolveToolRootDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv("TOOLUP_ROOT_TOOL_DIR"); v != "" {
		return v, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

func defaultLogDir() (string, error) {
	// There is no stdlib UserDataDir, so logs live in a "logs" directory
	// under the platform user config directory (os.UserConfigDir).
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName, "logs"), nil
}

// StateFilePath is the path to the versioned global state document.
func (p Paths) StateFilePath() string {
	return filepath.Join(p.ConfigDir, "global-state.json")
}

// LockFilePath is the companion advisory-lock file for the state document.
func (p Paths) LockFilePath() string {
	return p.StateFilePath() + ".lock"
}

// RemoteConfigDir is where one JSON file per remote lives.
func (p Paths) RemoteConfigDir() string {
	return filepath.Join(p.ConfigDir, "remote.d")
}

// RemoteConfigPath is the config file path for a single named remote.
func (p Paths) RemoteConfigPath(name string) string {
	return filepath.Join(p.RemoteConfigDir(), name+".json")
}

// DownloadScratchDir is where fetched archives land before install.
func (p Paths) DownloadScratchDir() string {
	return filepath.Join(p.ConfigDir, "remote-download")
}
