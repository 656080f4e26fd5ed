package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sammwyy/minilaunch/internal/engine"
)

type phase int

const (
	phaseInitializing phase = iota
	phaseReadyToDownload
	phaseDownloading
	phaseReadyToLaunch
	phaseLaunching
	phaseDone
	phaseError
)

// Model is the single-flow status view: it never navigates between
// screens, it only advances phase by phase.
type Model struct {
	eng *engine.Engine
	ctx context.Context

	phase    phase
	progress progress.Model

	state       engine.LaunchStateSnapshot
	currentFile string
	err         error

	ds     *engine.DownloadState
	events chan tea.Msg
}

// New builds the shell model around an already-constructed Engine.
func New(ctx context.Context, eng *engine.Engine) *Model {
	return &Model{
		eng: eng,
		ctx: ctx,
		progress: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(50),
		),
		phase: phaseInitializing,
	}
}

func (m *Model) Init() tea.Cmd {
	return m.runInitialize
}

func (m *Model) runInitialize() tea.Msg {
	err := m.eng.Initialize(m.ctx)
	return initializeDone{state: m.eng.State(), err: err}
}

// startDownload kicks off Engine.Download and wires the returned
// DownloadState's callbacks into m.events, the same observer shape the
// teacher's launch.Status channel used, so listenForEvent just drains one
// channel regardless of how many distinct callbacks fired.
func (m *Model) startDownload() tea.Cmd {
	return func() tea.Msg {
		ds, err := m.eng.Download(m.ctx)
		if err != nil {
			return downloadDone{err: err}
		}

		m.ds = ds
		m.events = make(chan tea.Msg, 64)

		ds.OnProgress(func(completed, failed, total int64, currentFile string) {
			m.events <- downloadProgress{completed: completed, failed: failed, total: total, currentFile: currentFile}
		})
		ds.OnStatus(func(status engine.Status) {
			m.events <- downloadStatusChanged{status: status}
			if status.Terminal() {
				m.events <- downloadDone{}
			}
		})
		ds.OnError(func(err error) {
			m.events <- downloadDone{err: err}
		})

		return listenForEvent(m.events)()
	}
}

// listenForEvent blocks on the next queued event, the bubbletea idiom for
// bridging a plain Go channel into the Update loop without busy-polling.
func listenForEvent(events chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

func (m *Model) runLaunch() tea.Msg {
	_, err := m.eng.Launch(m.ctx)
	return launchDone{err: err}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case initializeDone:
		m.state = msg.state
		if msg.err != nil {
			m.phase, m.err = phaseError, msg.err
			return m, nil
		}
		if m.state.NeedsDownload() {
			m.phase = phaseReadyToDownload
			return m, m.startDownload()
		}
		m.phase = phaseReadyToLaunch
		return m, nil

	case downloadStatusChanged:
		m.phase = phaseDownloading
		return m, listenForEvent(m.events)

	case downloadProgress:
		m.currentFile = msg.currentFile
		cmd := m.progress.SetPercent(ratio(msg.completed, msg.total))
		return m, tea.Batch(cmd, listenForEvent(m.events))

	case downloadDone:
		m.state = m.eng.State()
		if msg.err != nil {
			m.phase, m.err = phaseError, msg.err
			return m, nil
		}
		if m.state.CanLaunch {
			m.phase = phaseReadyToLaunch
		} else {
			m.phase, m.err = phaseError, fmt.Errorf("download finished but the installation is still incomplete")
		}
		return m, nil

	case launchDone:
		if msg.err != nil {
			m.phase, m.err = phaseError, msg.err
			return m, nil
		}
		m.phase = phaseDone
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "q":
			if m.phase == phaseError || m.phase == phaseDone {
				return m, tea.Quit
			}
		case "enter":
			if m.phase == phaseReadyToLaunch {
				m.phase = phaseLaunching
				return m, m.runLaunch
			}
		}
	}

	return m, nil
}

func ratio(completed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7C3AED")).
			Padding(0, 1)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A1A1AA"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
)

func (m *Model) View() string {
	header := headerStyle.Render("minilaunch")

	var body string
	switch m.phase {
	case phaseInitializing:
		body = infoStyle.Render("Checking local installation...")
	case phaseReadyToDownload, phaseDownloading:
		speed := ""
		if m.ds != nil {
			speed = fmt.Sprintf(" (%s)", engine.FormatSpeed(m.ds.Speed()))
		}
		body = strings.Join([]string{
			infoStyle.Render(fmt.Sprintf("Downloading: %s%s", m.currentFile, speed)),
			m.progress.View(),
		}, "\n")
	case phaseReadyToLaunch:
		body = okStyle.Render("Ready to launch.") + "\n" + dimStyle.Render("[Enter] Launch  [Ctrl+C] Quit")
	case phaseLaunching:
		body = infoStyle.Render("Starting Minecraft...")
	case phaseDone:
		body = okStyle.Render("Launched.") + "\n" + dimStyle.Render("[q] Quit")
	case phaseError:
		body = errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n" + dimStyle.Render("[q] Quit")
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, "")
}
