// Package ui implements the Bubble Tea terminal UI shown during a run: a
// spinner, a scrollable per-file status list and a live counter footer.
package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/docuforge/doc-pipeline/internal/cli/hooks"
	"github.com/docuforge/doc-pipeline/pkg/pipeline"
)

const listHeightMargin = 4

// Model is the state of the TUI application: the UI components, layout
// dimensions, run phase, aggregated counters and the per-file status list.
type Model struct {
	list        list.Model
	spinner     spinner.Model
	width       int
	height      int
	initialized bool
	// fileItems and itemMap are updated from hook messages; access MUST be
	// protected by listLock.
	fileItems []listItem
	itemMap   map[string]int
	listLock  sync.Mutex
	summary   Summary
	// phaseMessage is the overall stage shown in the header (Scanning,
	// Processing, Complete).
	phaseMessage string
	fatalError   string
	quitting     bool
	version      string
	pipelineName string
	processTime  map[string]time.Time
	debounceTimer *time.Timer
}

// listItem is a single input file in the TUI list.
type listItem struct {
	path     string
	status   pipeline.Status
	message  string
	duration time.Duration
}

// Summary holds the aggregated statistics displayed in the footer.
type Summary struct {
	TotalDiscovered int
	ProcessedCount  int
	ResumedCount    int
	SkippedCount    int
	ErrorCount      int
	StartTime       time.Time
}

// NewModel creates the initial model for the TUI.
func NewModel(version, pipelineName string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		list:         l,
		spinner:      s,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: "Initializing...",
		version:      version,
		pipelineName: pipelineName,
		fileItems:    make([]listItem, 0, 256),
		itemMap:      make(map[string]int),
		processTime:  make(map[string]time.Time),
	}
}

// Init starts the spinner animation.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages (user input, hook events) and updates the
// model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var listCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.FileDiscoveredMsg:
		m.listLock.Lock()
		if _, exists := m.itemMap[msg.Path]; !exists {
			m.fileItems = append(m.fileItems, listItem{path: msg.Path, status: pipeline.StatusPending})
			m.itemMap[msg.Path] = len(m.fileItems) - 1
			m.summary.TotalDiscovered++
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()
		if !m.quitting && (m.phaseMessage == "" || m.phaseMessage == "Initializing...") {
			m.phaseMessage = "Scanning..."
		}

	case hooks.FileStatusUpdateMsg:
		m.listLock.Lock()
		if idx, ok := m.itemMap[msg.Path]; ok && idx < len(m.fileItems) {
			item := &m.fileItems[idx]

			if isFinalStatus(msg.Status) && item.status == pipeline.StatusProcessing {
				if startTime, found := m.processTime[msg.Path]; found {
					item.duration = time.Since(startTime)
					delete(m.processTime, msg.Path)
				}
			} else if msg.Status == pipeline.StatusProcessing {
				m.processTime[msg.Path] = time.Now()
				item.duration = 0
			}

			if isFinalStatus(msg.Status) && !isFinalStatus(item.status) {
				m.incrementSummaryCount(msg.Status)
			}

			item.status = msg.Status
			item.message = msg.Message
			cmds = append(cmds, m.debounceListUpdate())
		} else {
			// Status update for an unknown item: discovery message was missed
			// or delayed, so add it now.
			m.fileItems = append(m.fileItems, listItem{
				path: msg.Path, status: msg.Status, message: msg.Message, duration: msg.Duration,
			})
			m.itemMap[msg.Path] = len(m.fileItems) - 1
			m.summary.TotalDiscovered++
			if isFinalStatus(msg.Status) {
				m.incrementSummaryCount(msg.Status)
			}
			cmds = append(cmds, m.debounceListUpdate())
		}
		m.listLock.Unlock()

		if !m.quitting && m.phaseMessage != "Processing..." && msg.Status == pipeline.StatusProcessing {
			m.phaseMessage = "Processing..."
		}

	case hooks.RunCompleteMsg:
		m.applyRunComplete(msg.Report)

	case UpdateListMsg:
		m.listLock.Lock()
		items := make([]list.Item, len(m.fileItems))
		for i, item := range m.fileItems {
			items[i] = item
		}
		m.listLock.Unlock()
		cmds = append(cmds, m.list.SetItems(items))
	}

	if listCmd != nil {
		cmds = append(cmds, listCmd)
	}
	return m, tea.Batch(cmds...)
}

// applyRunComplete applies the verified final counts from the report.
func (m *Model) applyRunComplete(report pipeline.Report) {
	m.phaseMessage = "Complete"
	m.summary.ProcessedCount = report.Summary.ProcessedCount
	m.summary.ResumedCount = report.Summary.ResumedCount
	m.summary.SkippedCount = report.Summary.SkippedCount
	m.summary.ErrorCount = report.Summary.ErrorCount
	if report.Summary.FatalErrorOccurred {
		m.fatalError = "Run halted due to fatal error."
		if len(report.Errors) > 0 {
			e := report.Errors[0]
			m.fatalError = fmt.Sprintf("Fatal Error: %s (%s)", e.Error, e.Path)
		}
	}
}

// View renders the current state of the TUI model.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return "Initializing..."
	}

	headerLeft := fmt.Sprintf("doc-pipeline v%s [%s]", m.version, m.pipelineName)
	headerRight := m.phaseMessage
	if m.phaseMessage != "Complete" && m.phaseMessage != "Initializing..." {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerCenter := ""
	headerWidth := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerWidth > 0 {
		headerCenter = lipgloss.PlaceHorizontal(headerWidth, lipgloss.Center, " ")
	}
	header := HeaderStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerCenter, headerRight))

	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	footerLeft := fmt.Sprintf(
		"Processed: %d | Resumed: %d | Skipped: %d | Failed: %d | Discovered: %d | Elapsed: %s",
		m.summary.ProcessedCount,
		m.summary.ResumedCount,
		m.summary.SkippedCount,
		m.summary.ErrorCount,
		m.summary.TotalDiscovered,
		elapsed,
	)
	footerRight := "q: quit"
	footerCenter := ""
	footerWidth := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight)
	if footerWidth > 0 {
		footerCenter = lipgloss.PlaceHorizontal(footerWidth, lipgloss.Center, " ")
	}
	footer := FooterStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerCenter, footerRight))

	errorView := ""
	if m.fatalError != "" {
		errorView = StatusStyleFailed.Render(m.fatalError) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		errorView,
		footer,
	)
}

// isFinalStatus checks if a status represents a terminal state for a file.
func isFinalStatus(status pipeline.Status) bool {
	return status == pipeline.StatusSuccess ||
		status == pipeline.StatusFailed ||
		status == pipeline.StatusSkipped ||
		status == pipeline.StatusResumed
}

// incrementSummaryCount updates summary counts based on the new final status.
// MUST be called with listLock held.
func (m *Model) incrementSummaryCount(status pipeline.Status) {
	switch status {
	case pipeline.StatusSuccess:
		m.summary.ProcessedCount++
	case pipeline.StatusResumed:
		m.summary.ResumedCount++
		m.summary.SkippedCount++
	case pipeline.StatusSkipped:
		m.summary.SkippedCount++
	case pipeline.StatusFailed:
		m.summary.ErrorCount++
	}
}

// FilterValue implements the list.Item interface.
func (i listItem) FilterValue() string { return i.path }

// Title implements the list.Item interface.
func (i listItem) Title() string { return i.path }

// Description implements the list.Item interface.
func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	statusIcon := " "
	switch i.status {
	case pipeline.StatusSuccess:
		statusStyle = StatusStyleSuccess
		statusIcon = "✓"
	case pipeline.StatusFailed:
		statusStyle = StatusStyleFailed
		statusIcon = "✗"
	case pipeline.StatusSkipped:
		statusStyle = StatusStyleSkipped
		statusIcon = "S"
	case pipeline.StatusResumed:
		statusStyle = StatusStyleResumed
		statusIcon = "R"
	case pipeline.StatusProcessing:
		statusStyle = StatusStyleProcessing
		statusIcon = "…"
	default:
		statusStyle = StatusStylePending
	}

	statusStr := statusStyle.Render(fmt.Sprintf("[%s]", statusIcon))
	details := ""
	switch i.status {
	case pipeline.StatusFailed:
		details = i.message
	case pipeline.StatusSkipped, pipeline.StatusResumed:
		parts := strings.SplitN(i.message, ":", 2)
		details = strings.TrimSpace(parts[0])
	case pipeline.StatusSuccess:
		if i.duration > 0 {
			details = formatDuration(i.duration)
		}
	}
	return fmt.Sprintf("%s %s", statusStr, details)
}

// formatDuration formats duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// UpdateListMsg signals that the list component should update its items.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond

// debounceListUpdate sends a message to trigger a list update after a short
// delay, preventing excessive renders during rapid status changes. MUST be
// called with listLock held.
func (m *Model) debounceListUpdate() tea.Cmd {
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceTimer = time.NewTimer(listUpdateDebounceDuration)
	return func() tea.Msg {
		<-m.debounceTimer.C
		return UpdateListMsg{}
	}
}

// Colors chosen for contrast on both dark and light terminals.
const (
	ColorHeaderFg = lipgloss.Color("252")
	ColorHeaderBg = lipgloss.Color("62")

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56")

	ColorNormalFg     = lipgloss.Color("250")
	ColorNormalDescFg = lipgloss.Color("244")

	ColorSelectedFg     = lipgloss.Color("255")
	ColorSelectedBg     = lipgloss.Color("56")
	ColorSelectedDescFg = lipgloss.Color("248")

	ColorStatusSuccess    = lipgloss.Color("40")
	ColorStatusFailed     = lipgloss.Color("196")
	ColorStatusSkipped    = lipgloss.Color("214")
	ColorStatusResumed    = lipgloss.Color("39")
	ColorStatusPending    = lipgloss.Color("244")
	ColorStatusProcessing = lipgloss.Color("205")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStyleSkipped    = lipgloss.NewStyle().Foreground(ColorStatusSkipped)
	StatusStyleResumed    = lipgloss.NewStyle().Foreground(ColorStatusResumed)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)
