// Package rules evaluates Mojang's library admissibility rules against the
// host OS and architecture, and picks the native-library classifier (if
// any) for a library on this host.
package rules

import (
	"runtime"
	"strings"

	"github.com/sammwyy/minilaunch/internal/manifest"
)

// HostOS returns the host OS as Mojang's manifests name it:
// "windows", "linux", or "osx".
func HostOS() string {
	goos := runtime.GOOS
	switch {
	case strings.HasPrefix(goos, "win"):
		return "windows"
	case strings.Contains(goos, "linux"):
		return "linux"
	case strings.Contains(goos, "darwin"), strings.Contains(goos, "mac"):
		return "osx"
	default:
		return goos
	}
}

// HostArch returns the host architecture string rules are matched against.
func HostArch() string {
	return runtime.GOARCH
}

// Admitted reports whether a library is admitted on the current host.
//
// If rules is absent or empty, the library is admitted unconditionally.
// Otherwise rules are evaluated in order; the final verdict is the action of
// the last rule that matches the host. A library is rejected if no rule
// matches.
func Admitted(libRules []manifest.Rule) bool {
	if len(libRules) == 0 {
		return true
	}

	allowed := false
	for _, rule := range libRules {
		if !matches(rule, HostOS(), HostArch()) {
			continue
		}
		allowed = rule.Action == "allow"
	}

	return allowed
}

func matches(rule manifest.Rule, hostOS, hostArch string) bool {
	if rule.OS == nil {
		return true
	}
	if rule.OS.Name != "" && rule.OS.Name != hostOS {
		return false
	}
	if rule.OS.Arch != "" && !strings.Contains(hostArch, rule.OS.Arch) {
		return false
	}
	return true
}

// NativeClassifier returns the classifier key to use for a library's
// natives on this host, and whether the library declares one for this
// host's OS.
func NativeClassifier(lib manifest.Library) (string, bool) {
	if lib.Natives == nil {
		return "", false
	}
	classifier, ok := lib.Natives[HostOS()]
	return classifier, ok
}

// NativeArtifact resolves the Artifact for a library's native classifier on
// this host, if the library declares one and the descriptor carries it.
func NativeArtifact(lib manifest.Library) (*manifest.Artifact, bool) {
	classifier, ok := NativeClassifier(lib)
	if !ok || lib.Downloads == nil || lib.Downloads.Classifiers == nil {
		return nil, false
	}
	artifact, ok := lib.Downloads.Classifiers[classifier]
	if !ok || artifact == nil {
		return nil, false
	}
	return artifact, true
}
