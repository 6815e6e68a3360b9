package cli

import (
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/fsindex/internal/metrics"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers refreshing the counters from the collector.
type tickMsg time.Time

// doneMsg carries the crawl result once the coordinator returns.
type doneMsg struct {
	err error
}

// crawlResult latches the coordinator's return value so both the UI
// command and the detached fallback can read it.
type crawlResult struct {
	err  error
	done chan struct{}
}

func watchCrawl(done <-chan error) *crawlResult {
	res := &crawlResult{done: make(chan struct{})}
	go func() {
		res.err = <-done
		close(res.done)
	}()
	return res
}

// progressModel is the bubbletea model for an in-flight crawl.
type progressModel struct {
	collector *metrics.Collector
	result    *crawlResult
	snap      metrics.Snapshot
	spinner   spinner.Model
	theme     Theme
	finished  bool
	quitting  bool
	err       error
}

// newProgressModel creates a new progress model.
func newProgressModel(collector *metrics.Collector, result *crawlResult) progressModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return progressModel{
		collector: collector,
		result:    result,
		snap:      collector.Snapshot(),
		spinner:   sp,
		theme:     defaultTheme,
	}
}

// Init returns the initial commands (start polling and the spinner).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.waitDone(),
		m.spinner.Tick,
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.snap = m.collector.Snapshot()
		return m, tickCmd()

	case doneMsg:
		m.finished = true
		m.err = msg.err
		m.snap = m.collector.Snapshot()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.finished {
		return m.finalView()
	}

	status := m.theme.statusStyle().Render("[indexing]")
	counts := fmt.Sprintf("%d files | %d dirs | %.0f files/sec",
		m.snap.FilesIndexed, m.snap.DirsScanned, m.snap.Rate())
	if m.snap.ScanErrors > 0 {
		counts += m.theme.errorStyle().Render(fmt.Sprintf(" | %d errors", m.snap.ScanErrors))
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to detach from the display")

	return fmt.Sprintf("%s %s %s\n%s\n", m.spinner.View(), status, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Indexing failed: %s\n", m.err))
	}

	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	output += fmt.Sprintf("  Files indexed:       %d\n", m.snap.FilesIndexed)
	output += fmt.Sprintf("  Directories scanned: %d\n", m.snap.DirsScanned)
	if m.snap.ScanErrors > 0 {
		output += m.theme.errorStyle().Render(fmt.Sprintf("  Scan errors:         %d\n", m.snap.ScanErrors))
	}
	return output
}

// waitDone blocks on the coordinator result in a command goroutine so
// Update never blocks.
func (m progressModel) waitDone() tea.Cmd {
	return func() tea.Msg {
		<-m.result.done
		return doneMsg{err: m.result.err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runProgress runs the interactive display until the crawl completes.
// Detaching with Ctrl+C leaves the crawl running and falls back to a
// plain blocking wait, as does a display failure.
func runProgress(collector *metrics.Collector, done <-chan error) error {
	result := watchCrawl(done)
	model := newProgressModel(collector, result)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err == nil {
		if m, ok := finalModel.(progressModel); ok && m.finished {
			return m.err
		}
	}

	<-result.done
	return result.err
}
