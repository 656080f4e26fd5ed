// Package launchcmd assembles the deterministic java argv the bootstrap
// engine spawns a Minecraft client with, the way launcher.go's
// buildArguments/buildClasspath/buildGameArguments did for the teacher, but
// trimmed of ${...} legacy templating and the MSA/offline auth branching
// (spec.md §4.7 — there is exactly one profile: the offline sentinel).
package launchcmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/sammwyy/minilaunch/internal/config"
	"github.com/sammwyy/minilaunch/internal/layout"
	"github.com/sammwyy/minilaunch/internal/manifest"
	"github.com/sammwyy/minilaunch/internal/rules"
)

const offlineAccessToken = "0"

// Build returns the full java argv (without the "java" executable name
// itself) for launching desc under cfg.
func Build(cfg *config.LaunchConfig, desc *manifest.VersionDescriptor) ([]string, error) {
	if desc.MainClass == "" {
		return nil, fmt.Errorf("launchcmd: version descriptor %s has no main class", desc.ID)
	}

	paths := layout.NewPaths(cfg.McDir)

	var args []string

	args = append(args, fmt.Sprintf("-Xmx%dm", cfg.MaxMemoryMB), fmt.Sprintf("-Xms%dm", cfg.MinMemoryMB))

	for _, override := range cfg.JVMArgs {
		args = append(args, override.Key)
		if override.Value != "" {
			args = append(args, override.Value)
		}
	}

	args = append(args, "-cp", buildClasspath(paths, cfg, desc))

	args = append(args, desc.MainClass)

	args = append(args, buildGameArgs(cfg, desc)...)

	for _, override := range cfg.GameArgs {
		args = append(args, override.Key)
		if override.Value != "" {
			args = append(args, override.Value)
		}
	}

	return args, nil
}

// buildClasspath lists the client jar first, then every admitted library's
// main artifact in descriptor order. Native classifier artifacts are never
// added to the classpath — they're unpacked into a natives directory
// instead, which this bootstrap engine's scope does not manage (spec.md
// ties native extraction to a full game launch, not the bootstrap phase).
func buildClasspath(paths layout.Paths, cfg *config.LaunchConfig, desc *manifest.VersionDescriptor) string {
	entries := []string{cfg.VersionJarPath}

	for _, lib := range desc.Libraries {
		if !rules.Admitted(lib.Rules) {
			continue
		}
		if lib.Downloads == nil || lib.Downloads.Artifact == nil {
			continue
		}
		entries = append(entries, paths.LibraryPath(lib.Downloads.Artifact.Path))
	}

	separator := ":"
	if runtime.GOOS == "windows" {
		separator = ";"
	}

	return strings.Join(entries, separator)
}

// buildGameArgs emits the standard argument set in the fixed order spec.md
// §4.7 names. The uuid is freshly generated per call/launch, never derived
// from username, since there is no persistent account store in scope.
func buildGameArgs(cfg *config.LaunchConfig, desc *manifest.VersionDescriptor) []string {
	return []string{
		"--username", cfg.Username,
		"--version", desc.ID,
		"--gameDir", cfg.McDir,
		"--assetsDir", cfg.AssetsDir,
		"--assetIndex", desc.AssetIndex.ID,
		"--uuid", uuid.New().String(),
		"--accessToken", offlineAccessToken,
		"--userType", "mojang",
		"--versionType", string(desc.Type),
	}
}
