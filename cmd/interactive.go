package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adamgarcia4/goLearning/gossipsim/logger"
	"github.com/adamgarcia4/goLearning/gossipsim/sim"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Start the interactive simulation console",
	Long: `Start a terminal UI that runs simulations one at a time and shows the
round counter and convergence state live.

Keyboard shortcuts:
  S / Enter - Start a run with the current seed and node counts
  + / -     - Add or remove a node
  ] / [     - Add or remove a seed
  X         - Cancel the running simulation
  Q         - Quit

Examples:
  gossipsim interactive --seeds=3 --nodes=50`,
	RunE: runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
	addSimFlags(interactiveCmd.Flags())
}

const (
	logLines      = 15
	maxLogScroll  = 100
	maxResultRows = 5
)

// progress is written from the barrier action and read on every tick.
type progress struct {
	mu        sync.Mutex
	round     int
	converged bool
	oracle    time.Duration
}

func (p *progress) observe(e sim.RoundEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.round = e.Round
	if e.Inspected {
		p.converged = p.converged || e.Converged
		p.oracle = e.Elapsed
	}
}

func (p *progress) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.round, p.converged, p.oracle = 0, false, 0
}

func (p *progress) snapshot() (int, bool, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.round, p.converged, p.oracle
}

type model struct {
	config    sim.Config
	simulator *sim.Simulator
	progress  *progress

	running bool
	cancel  context.CancelFunc
	results []*sim.RunResult

	err       error
	logBuffer *logger.LogBuffer
	logWriter *logger.LogBufferWriter
	logScroll int
	width     int
	quitting  bool
}

func initialModel(cfg sim.Config) model {
	// Interactive mode logs only to the buffer
	logBuffer := logger.GetGlobalLogBuffer()
	logWriter := logger.NewLogBufferWriter(logBuffer)
	logger.Init("", false)
	_ = logger.AddOutput(logWriter)
	if err := logger.SetLevel(viper.GetString("log-level")); err != nil {
		logger.Warnf("ignoring log level: %v", err)
	}

	prog := &progress{}
	cfg.OnRound = prog.observe

	return model{
		config:    cfg,
		simulator: sim.New(cfg),
		progress:  prog,
		logBuffer: logBuffer,
		logWriter: logWriter,
	}
}

type tickMsg struct{}

type runFinishedMsg struct {
	result *sim.RunResult
	err    error
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m model) Init() tea.Cmd {
	return tick()
}

// startRun runs one simulation off the UI goroutine.
func startRun(ctx context.Context, s *sim.Simulator, seeds, nodes int) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Run(ctx, seeds, nodes)
		return runFinishedMsg{result: res, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, tick()

	case runFinishedMsg:
		m.running = false
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.results = append(m.results, msg.result)
			if len(m.results) > maxResultRows {
				m.results = m.results[len(m.results)-maxResultRows:]
			}
		}
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if !m.running {
			return m, tea.Quit
		}
		// Wait for the run to tear down before exiting.
		m.quitting = true
		m.cancel()
		return m, nil

	case "s", "S", "enter":
		if m.running {
			m.err = fmt.Errorf("a simulation is already running")
			return m, nil
		}
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.running = true
		m.err = nil
		m.progress.reset()
		return m, startRun(ctx, m.simulator, m.config.SeedCount, m.config.NodeCount)

	case "x", "X":
		if m.running {
			m.cancel()
		}
		return m, nil

	case "+", "=":
		if m.config.NodeCount < sim.MaxNodes {
			m.config.NodeCount++
		}
		return m, nil

	case "-", "_":
		if m.config.NodeCount > m.config.SeedCount+1 {
			m.config.NodeCount--
		}
		return m, nil

	case "]":
		if m.config.SeedCount < m.config.NodeCount-1 {
			m.config.SeedCount++
		}
		return m, nil

	case "[":
		if m.config.SeedCount > 1 {
			m.config.SeedCount--
		}
		return m, nil

	case "up", "k":
		maxScroll := m.logBuffer.Len() - logLines
		if maxScroll > maxLogScroll {
			maxScroll = maxLogScroll
		}
		if m.logScroll < maxScroll {
			m.logScroll++
		}
		return m, nil

	case "down", "j":
		if m.logScroll > 0 {
			m.logScroll--
		}
		return m, nil
	}
	return m, nil
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(1, 2)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			PaddingTop(1)
)

func (m model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Gossip Convergence Simulator"))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n\n")
	}

	fmt.Fprintf(&s, "Seeds: %d   Nodes: %d   Round timeout: %s\n\n",
		m.config.SeedCount, m.config.NodeCount, m.config.RoundTimeout)

	round, converged, oracle := m.progress.snapshot()
	switch {
	case m.running && converged:
		s.WriteString(okStyle.Render(fmt.Sprintf("Round %d: converged, tearing down", round)))
	case m.running:
		fmt.Fprintf(&s, "Round %d: not converged (last check %s)", round, oracle)
	default:
		s.WriteString("Idle.")
	}
	s.WriteString("\n\n")

	if len(m.results) > 0 {
		s.WriteString("Recent runs:\n")
		for i := len(m.results) - 1; i >= 0; i-- {
			fmt.Fprintf(&s, "  %s\n", m.results[i])
		}
		s.WriteString("\n")
	}

	s.WriteString(m.renderLogs())
	s.WriteString("\n\n")

	help := "S/Enter start | +/- nodes | ]/[ seeds | X cancel | ↑/↓/j/k scroll logs | Q quit"
	if m.quitting {
		help = "Stopping simulation..."
	}
	s.WriteString(helpStyle.Render(help))

	return s.String()
}

// renderLogs shows logLines entries, newest first, offset by logScroll.
// Line 0 is the newest entry in the buffer.
func (m model) renderLogs() string {
	entries := m.logBuffer.GetRecent(logLines + m.logScroll)

	var lines []string
	if len(entries) == 0 {
		lines = []string{"     | (no logs yet)"}
	}
	end := len(entries) - m.logScroll
	if end < 0 {
		end = 0
	}
	start := end - logLines
	if start < 0 {
		start = 0
	}
	for i := end - 1; i >= start; i-- {
		age := len(entries) - 1 - i
		lines = append(lines, fmt.Sprintf("%4d | %s", age, logger.FormatLogEntry(entries[i])))
	}

	boxWidth := 100
	if m.width > 0 {
		boxWidth = m.width - 4
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Height(logLines - 2).
		Width(boxWidth)

	return box.Render("Logs:\n" + strings.Join(lines, "\n"))
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg := simConfigFromViper()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	m := initialModel(cfg)
	defer func() { _ = logger.RemoveOutput(m.logWriter) }()

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("interactive mode: %w", err)
	}
	return nil
}
