// Command minilaunch is a thin entrypoint: parse flags, build a
// LaunchConfig, construct the bootstrap engine, and hand control to the
// single-flow status view.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sammwyy/minilaunch/internal/config"
	"github.com/sammwyy/minilaunch/internal/engine"
	"github.com/sammwyy/minilaunch/internal/layout"
	"github.com/sammwyy/minilaunch/internal/shell"
)

func main() {
	username := flag.String("username", "", "offline player name")
	versionID := flag.String("version", "", "version id, e.g. 1.20.1")
	mcDir := flag.String("mcdir", layout.DefaultMCDir(), "installation root")
	maxMem := flag.Int("max-memory", config.DefaultMaxMemoryMB, "max heap size in MB")
	minMem := flag.Int("min-memory", config.DefaultMinMemoryMB, "min heap size in MB")
	flag.Parse()

	if *username == "" || *versionID == "" {
		fmt.Fprintln(os.Stderr, "usage: minilaunch -username <name> -version <id> [-mcdir path] [-max-memory mb] [-min-memory mb]")
		os.Exit(2)
	}

	cfg := config.New(*username, *versionID, *mcDir)
	cfg.MaxMemoryMB = *maxMem
	cfg.MinMemoryMB = *minMem

	eng, err := engine.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minilaunch:", err)
		os.Exit(1)
	}
	defer eng.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	model := shell.New(ctx, eng)
	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "minilaunch:", err)
		os.Exit(1)
	}
}
