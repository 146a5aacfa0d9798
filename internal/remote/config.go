// Package remote fetches package archives from remote repositories: a
// local path (no-op passthrough) or an S3-compatible endpoint (presigned,
// conditional GET).
package remote

import (
	"encoding/json"
	"fmt"
	"os"
)

// RepositoryKind discriminates Config's package-repository-type.
type RepositoryKind string

const (
	KindLocal RepositoryKind = "local"
	KindS3    RepositoryKind = "s3"
)

// AuthStrategyKind discriminates the S3 auth-strategy variants.
type AuthStrategyKind string

const (
	AuthNone           AuthStrategyKind = "none"
	AuthDefaultAWSAuth AuthStrategyKind = "default-aws-auth"
	AuthScript         AuthStrategyKind = "script"
)

// Config is a single named remote's on-disk configuration
// (<config>/remote.d/<name>.json). It marshals to/from a flat,
// internally-tagged JSON shape: the package-repository-type discriminator
// and auth-strategy discriminator live at the top level of the document,
// not nested under a variant key.
type Config struct {
	Name                string
	UpdatePeriodSeconds int

	Kind RepositoryKind

	// Local fields (Kind == KindLocal)
	LocalPath string

	// S3 fields (Kind == KindS3)
	S3URL          string
	AuthStrategy   AuthStrategyKind
	AuthScriptPath string
}

type wireConfig struct {
	Name                string           `json:"name"`
	UpdatePeriodSeconds int              `json:"update-period-seconds"`
	Kind                RepositoryKind   `json:"package-repository-type"`
	Path                string           `json:"path,omitempty"`
	URL                 string           `json:"url,omitempty"`
	AuthStrategy        AuthStrategyKind `json:"auth-strategy,omitempty"`
	ScriptPath          string           `json:"script-path,omitempty"`
}

// MarshalJSON flattens Config into the wire shape.
func (c Config) MarshalJSON() ([]byte, error) {
	w := wireConfig{
		Name:                c.Name,
		UpdatePeriodSeconds: c.UpdatePeriodSeconds,
		Kind:                c.Kind,
	}
	switch c.Kind {
	case KindLocal:
		w.Path = c.LocalPath
	case KindS3:
		w.URL = c.S3URL
		w.AuthStrategy = c.AuthStrategy
		if c.AuthStrategy == AuthScript {
			w.ScriptPath = c.AuthScriptPath
		}
	default:
		return nil, fmt.Errorf("remote: unknown repository kind %q", c.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses the wire shape into Config.
func (c *Config) UnmarshalJSON(data []byte) error {
	var w wireConfig
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Config{
		Name:                w.Name,
		UpdatePeriodSeconds: w.UpdatePeriodSeconds,
		Kind:                w.Kind,
	}
	switch w.Kind {
	case KindLocal:
		c.LocalPath = w.Path
	case KindS3:
		c.S3URL = w.URL
		c.AuthStrategy = w.AuthStrategy
		c.AuthScriptPath = w.ScriptPath
	default:
		return fmt.Errorf("remote: unknown repository kind %q", w.Kind)
	}
	return nil
}

// LoadConfig reads and parses a single remote configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading remote config %s: %w", path, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parsing remote config %s: %w", path, err)
	}
	return c, nil
}

// Save writes the remote configuration as pretty-printed, kebab-cased JSON.
func (c Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing remote config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
