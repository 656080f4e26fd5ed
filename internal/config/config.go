// Package config builds and validates the immutable LaunchConfig the
// bootstrap engine is constructed with, and persists it as JSON the same
// way the teacher's application config does.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sammwyy/minilaunch/internal/layout"
)

const (
	// DefaultMaxMemoryMB is the -Xmx default when no override is given.
	DefaultMaxMemoryMB = 2048
	// DefaultMinMemoryMB is the -Xms default when no override is given.
	DefaultMinMemoryMB = 512
)

// ArgOverride is one entry of a per-instance JVM or game argument override.
// Overrides are modeled as an ordered list rather than a Go map because
// spec.md §4.7 requires deterministic emission order, even though the
// override set itself is compared as a plain mapping (duplicate keys are
// not meaningful; SetArg replaces in place).
type ArgOverride struct {
	Key   string
	Value string
}

// LaunchConfig is immutable once the engine is constructed from it.
type LaunchConfig struct {
	Username string `json:"username"`
	VersionID string `json:"versionId"`

	McDir          string `json:"mcDir"`
	LibrariesDir   string `json:"librariesDir"`
	AssetsDir      string `json:"assetsDir"`
	VersionJSONPath string `json:"versionJsonPath"`
	VersionJarPath  string `json:"versionJarPath"`

	MaxMemoryMB int `json:"maxMemoryMb"`
	MinMemoryMB int `json:"minMemoryMb"`

	JVMArgs  []ArgOverride `json:"jvmArgs,omitempty"`
	GameArgs []ArgOverride `json:"gameArgs,omitempty"`
}

// New builds a LaunchConfig for a version under mcDir, deriving the
// libraries/assets/version paths from layout.Paths and filling in memory
// defaults. Call Validate before handing it to the engine.
func New(username, versionID, mcDir string) *LaunchConfig {
	paths := layout.NewPaths(mcDir)
	return &LaunchConfig{
		Username:        username,
		VersionID:       versionID,
		McDir:           mcDir,
		LibrariesDir:    paths.LibrariesDir,
		AssetsDir:       paths.AssetsDir,
		VersionJSONPath: paths.VersionJSONPath(versionID),
		VersionJarPath:  paths.VersionJarPath(versionID),
		MaxMemoryMB:     DefaultMaxMemoryMB,
		MinMemoryMB:     DefaultMinMemoryMB,
	}
}

// Validate enforces the construction-time invariants of spec.md §3 and §6:
// a non-empty username, a configured mcDir, and version file paths that
// resolve under mcDir/versions/<versionId>/.
func (c *LaunchConfig) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("launch config: username must not be empty")
	}
	if c.McDir == "" {
		return fmt.Errorf("launch config: mcDir must be set")
	}

	paths := layout.NewPaths(c.McDir)
	wantJSON := paths.VersionJSONPath(c.VersionID)
	wantJar := paths.VersionJarPath(c.VersionID)
	if c.VersionJSONPath != wantJSON {
		return fmt.Errorf("launch config: versionJsonPath %q does not resolve under %s", c.VersionJSONPath, paths.VersionDir(c.VersionID))
	}
	if c.VersionJarPath != wantJar {
		return fmt.Errorf("launch config: versionJarPath %q does not resolve under %s", c.VersionJarPath, paths.VersionDir(c.VersionID))
	}

	return nil
}

// SetArg inserts or replaces an override by key, preserving the position of
// the first insertion.
func SetArg(overrides []ArgOverride, key, value string) []ArgOverride {
	for i, o := range overrides {
		if o.Key == key {
			overrides[i].Value = value
			return overrides
		}
	}
	return append(overrides, ArgOverride{Key: key, Value: value})
}

// Load reads a LaunchConfig previously written by Save.
func Load(path string) (*LaunchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg LaunchConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding launch config: %w", err)
	}
	return &cfg, nil
}

// Save writes the LaunchConfig as indented JSON.
func (c *LaunchConfig) Save(path string) error {
	if err := layout.EnsureParents(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding launch config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
