// Package shell is the single-flow bubbletea program that drives an
// engine.Engine through initialize, download, and launch, replacing the
// teacher's multi-screen navigation with one linear pipeline (spec.md's
// graphical shell is out of scope; this is the CLI/TUI status view that
// drives it).
package shell

import "github.com/sammwyy/minilaunch/internal/engine"

// initializeDone is sent when Engine.Initialize returns.
type initializeDone struct {
	state engine.LaunchStateSnapshot
	err   error
}

// downloadProgress mirrors one DownloadState progress callback invocation.
type downloadProgress struct {
	completed, failed, total int64
	currentFile              string
}

// downloadStatusChanged mirrors one DownloadState status callback invocation.
type downloadStatusChanged struct {
	status engine.Status
}

// downloadDone is sent once the download session reaches a terminal status.
type downloadDone struct {
	err error
}

// launchDone is sent once the child process has been started (or failed to
// start).
type launchDone struct {
	err error
}
