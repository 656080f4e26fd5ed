package rules

import (
	"testing"

	"github.com/sammwyy/minilaunch/internal/manifest"
)

func TestAdmitted_NoRules(t *testing.T) {
	if !Admitted(nil) {
		t.Error("library with no rules should be admitted")
	}
	if !Admitted([]manifest.Rule{}) {
		t.Error("library with empty rules should be admitted")
	}
}

func TestAdmitted_AllowOnlyHost(t *testing.T) {
	libRules := []manifest.Rule{
		{Action: "allow", OS: &manifest.OSRule{Name: HostOS()}},
	}
	if !Admitted(libRules) {
		t.Error("library allowed only on the host OS should be admitted")
	}

	otherOS := "windows"
	if HostOS() == "windows" {
		otherOS = "linux"
	}
	libRules = []manifest.Rule{
		{Action: "allow", OS: &manifest.OSRule{Name: otherOS}},
	}
	if Admitted(libRules) {
		t.Error("library allowed only on another OS should be rejected")
	}
}

func TestAdmitted_DisallowWins(t *testing.T) {
	// Mirrors upstream semantics: an unconditional allow followed by an
	// OS-specific disallow rejects on that OS.
	libRules := []manifest.Rule{
		{Action: "allow"},
		{Action: "disallow", OS: &manifest.OSRule{Name: HostOS()}},
	}
	if Admitted(libRules) {
		t.Error("expected host-specific disallow to win over the unconditional allow")
	}
}

func TestAdmitted_NoMatchRejects(t *testing.T) {
	otherOS := "windows"
	if HostOS() == "windows" {
		otherOS = "osx"
	}
	libRules := []manifest.Rule{
		{Action: "allow", OS: &manifest.OSRule{Name: otherOS}},
	}
	if Admitted(libRules) {
		t.Error("library with only a non-matching rule should be rejected")
	}
}

func TestNativeClassifier(t *testing.T) {
	lib := manifest.Library{
		Natives: map[string]string{
			"windows": "natives-windows",
			"linux":   "natives-linux",
			"osx":     "natives-osx",
		},
	}

	classifier, ok := NativeClassifier(lib)
	if !ok {
		t.Fatal("expected a classifier for this host")
	}
	if classifier != "natives-"+HostOS() {
		t.Errorf("classifier = %q, want natives-%s", classifier, HostOS())
	}

	noNatives := manifest.Library{}
	if _, ok := NativeClassifier(noNatives); ok {
		t.Error("library with no natives map should report ok=false")
	}
}

func TestNativeArtifact(t *testing.T) {
	classifier := "natives-" + HostOS()
	lib := manifest.Library{
		Natives: map[string]string{HostOS(): classifier},
		Downloads: &manifest.LibraryDownloads{
			Classifiers: map[string]*manifest.Artifact{
				classifier: {Path: "some/native.jar"},
			},
		},
	}

	artifact, ok := NativeArtifact(lib)
	if !ok {
		t.Fatal("expected a native artifact")
	}
	if artifact.Path != "some/native.jar" {
		t.Errorf("path = %q", artifact.Path)
	}

	missing := manifest.Library{Natives: map[string]string{HostOS(): classifier}}
	if _, ok := NativeArtifact(missing); ok {
		t.Error("expected no native artifact when classifiers map is absent")
	}
}
