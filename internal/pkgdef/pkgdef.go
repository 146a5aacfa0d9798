// Package pkgdef defines the packager-authored user package definition and
// the template writer behind `toolup package init`.
package pkgdef

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UserDefinedPackage is what a packager hand-authors before running
// `package archive`: a name, a version, and the entrypoints to expose.
type UserDefinedPackage struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Entrypoints []string `yaml:"entrypoints"`
}

// DefaultTemplate is the starter definition `package init` writes.
func DefaultTemplate() UserDefinedPackage {
	return UserDefinedPackage{
		Name:        "clu",
		Version:     "1.0.0",
		Entrypoints: []string{"clu"},
	}
}

// WriteTemplate writes DefaultTemplate() to outputFile as YAML. It fails if
// outputFile already exists, so `package init` never clobbers edits in
// progress.
func WriteTemplate(outputFile string) error {
	if _, err := os.Stat(outputFile); err == nil {
		return fmt.Errorf("pkgdef: %s already exists", outputFile)
	}

	data, err := yaml.Marshal(DefaultTemplate())
	if err != nil {
		return fmt.Errorf("pkgdef: rendering template: %w", err)
	}
	return os.WriteFile(outputFile, data, 0o644)
}

// Load reads and parses a user package definition from path.
func Load(path string) (UserDefinedPackage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UserDefinedPackage{}, fmt.Errorf("pkgdef: reading %s: %w", path, err)
	}
	var udp UserDefinedPackage
	if err := yaml.Unmarshal(data, &udp); err != nil {
		return UserDefinedPackage{}, fmt.Errorf("pkgdef: parsing %s: %w", path, err)
	}
	return udp, nil
}
