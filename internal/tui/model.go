// Package tui provides the interactive incident review session browser
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tildaslashalef/incidentdeck/internal/app"
	"github.com/tildaslashalef/incidentdeck/internal/evidence"
	"github.com/tildaslashalef/incidentdeck/internal/gateway"
	"github.com/tildaslashalef/incidentdeck/internal/loggy"
	"github.com/tildaslashalef/incidentdeck/internal/safety"
	"github.com/tildaslashalef/incidentdeck/internal/session"
	"github.com/tildaslashalef/incidentdeck/internal/utils"
)

// Status represents the current status of the TUI
type Status int

const (
	// StatusInitializing is the status while the first workspace loads
	StatusInitializing Status = iota
	// StatusLoading is the status while a switch or reload is running
	StatusLoading
	// StatusReady is the status when views are browsable
	StatusReady
	// StatusGuardPrompt is the status while a migration decision is pending
	StatusGuardPrompt
	// StatusDetail is the status when an incident detail is open
	StatusDetail
	// StatusError is the status when an error occurred
	StatusError
)

// Tab identifies a browsable view
type Tab int

const (
	TabIncidents Tab = iota
	TabDashboard
	TabReport
	TabValidation
	TabEvidence
)

var tabNames = []string{"Incidents", "Dashboard", "Report", "Validation", "Evidence"}

// KeyMap defines the key bindings for the TUI
type KeyMap struct {
	Help    key.Binding
	Quit    key.Binding
	NextTab key.Binding
	Refresh key.Binding
	Open    key.Binding
	Back    key.Binding
	Up      key.Binding
	Down    key.Binding
	Proceed key.Binding
	Backup  key.Binding
	Cancel  key.Binding
}

// DefaultKeyMap returns the default key map
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open incident"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Proceed: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "run migrations"),
		),
		Backup: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "backup first"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// Keys is a global instance of the keymap for use in the model
var Keys = DefaultKeyMap()

// ShortHelp returns the short help text
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit, k.NextTab, k.Refresh}
}

// FullHelp returns the full help text
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Help, k.Quit, k.NextTab, k.Refresh},
		{k.Open, k.Back, k.Up, k.Down},
	}
}

// Model represents the TUI model
type Model struct {
	app    *app.App
	ctx    context.Context
	cancel context.CancelFunc

	status   Status
	tab      Tab
	cursor   int
	width    int
	height   int
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	showHelp bool
	styles   Styles
	renderer *glamour.TermRenderer

	guard    safety.GuardState
	notice   string
	gate     *evidence.GateResult
	errorMsg string
	ready    bool
}

// NewModel creates a new TUI model
func NewModel(application *app.App) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	h := help.New()
	h.ShowAll = false

	styles := DefaultStyles()
	s.Style = styles.Spinner

	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		app:      application,
		ctx:      ctx,
		cancel:   cancel,
		status:   StatusInitializing,
		spinner:  s,
		help:     h,
		styles:   styles,
		renderer: r,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		initializeSession(m),
	)
}

// switchOutcomeMsg reports how the initial open or a guarded proceed ended
type switchOutcomeMsg struct {
	outcome *session.Outcome
	err     error
}

// detailMsg carries a loaded incident detail
type detailMsg struct {
	detail *gateway.IncidentDetail
	err    error
}

// gateMsg carries a freshly computed evidence gate
type gateMsg struct {
	gate evidence.GateResult
	err  error
}

// reloadedMsg reports a manual refresh finishing
type reloadedMsg struct {
	err error
}

// backupDoneMsg reports the backup-first action finishing. The guard
// stays suspended either way; the migration decision remains outstanding.
type backupDoneMsg struct {
	result *gateway.BackupCreateResult
	err    error
}

// initializeSession opens the default workspace through the orchestrator
func initializeSession(m Model) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.app.Orchestrator.Initialize(m.ctx)
		return switchOutcomeMsg{outcome: outcome, err: err}
	}
}

// proceedWithMigrations resolves a suspended guard in favor of migrating
func proceedWithMigrations(m Model) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.app.Orchestrator.Proceed(m.ctx)
		return switchOutcomeMsg{outcome: outcome, err: err}
	}
}

// refreshViews re-runs the standard reload into the current view slot
func refreshViews(m Model) tea.Cmd {
	return func() tea.Msg {
		gen := m.app.Views.Generation()
		return reloadedMsg{err: m.app.Orchestrator.Reload(m.ctx, gen)}
	}
}

// loadDetail fetches one incident's detail view
func loadDetail(m Model, incidentID string) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.app.Client.IncidentDetail(m.ctx, incidentID)
		if err == nil {
			gen := m.app.Views.Generation()
			m.app.Views.Apply(gen, func(v *session.ViewState) { v.Detail = detail })
		}
		return detailMsg{detail: detail, err: err}
	}
}

// backupGuardTarget backs up the workspace the guard suspended on. The
// target is not open yet, so the backup names it as the source file.
func backupGuardTarget(m Model) tea.Cmd {
	return func() tea.Msg {
		dest := filepath.Join(filepath.Dir(m.app.Config.Workspace.DefaultPath), "backups")
		result, err := m.app.Client.CreateBackup(m.ctx, dest, m.guard.TargetPath)
		return backupDoneMsg{result: result, err: err}
	}
}

// computeGate snapshots evidence readiness and evaluates the gate
func computeGate(m Model) tea.Cmd {
	return func() tea.Msg {
		gate, err := m.app.Evidence.Gate(m.ctx, 0)
		return gateMsg{gate: gate, err: err}
	}
}

// Update updates the model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.updateKeys(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := 7
		footerHeight := 3
		viewportHeight := msg.Height - headerHeight - footerHeight
		if viewportHeight < 10 {
			viewportHeight = 10
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = viewportHeight
		}
		m.help.Width = msg.Width
		m.syncViewport()
		return m, nil

	case switchOutcomeMsg:
		if msg.err != nil {
			m.status = StatusError
			m.errorMsg = gateway.Guidance(msg.err)
			return m, nil
		}
		if msg.outcome != nil && msg.outcome.Guard != nil {
			m.status = StatusGuardPrompt
			m.guard = *msg.outcome.Guard
			return m, nil
		}
		if msg.outcome != nil && msg.outcome.Abandoned {
			return m, tea.Quit
		}
		m.status = StatusReady
		m.guard = safety.Clear()
		m.notice = ""
		m.syncViewport()
		return m, computeGate(m)

	case backupDoneMsg:
		m.status = StatusGuardPrompt
		if msg.err != nil {
			m.notice = m.styles.Error.Render("Backup failed: " + gateway.Guidance(msg.err))
		} else {
			m.notice = m.styles.Success.Render("Backup written to " + msg.result.BackupDir)
		}
		return m, nil

	case reloadedMsg:
		if msg.err != nil {
			m.status = StatusError
			m.errorMsg = gateway.Guidance(msg.err)
			return m, nil
		}
		m.status = StatusReady
		m.syncViewport()
		return m, nil

	case detailMsg:
		if msg.err != nil {
			m.status = StatusError
			m.errorMsg = gateway.Guidance(msg.err)
			return m, nil
		}
		m.status = StatusDetail
		m.syncViewport()
		return m, nil

	case gateMsg:
		if msg.err != nil {
			loggy.Warn("Evidence gate computation failed", "error", msg.err)
			return m, nil
		}
		gate := msg.gate
		m.gate = &gate
		if m.tab == TabEvidence {
			m.syncViewport()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Guard prompt has its own small key surface.
	if m.status == StatusGuardPrompt {
		switch {
		case key.Matches(msg, Keys.Proceed):
			m.status = StatusLoading
			return m, tea.Batch(m.spinner.Tick, proceedWithMigrations(m))
		case key.Matches(msg, Keys.Backup):
			if m.app.Orchestrator.BackupFirst() == safety.EffectOpenBackup {
				m.status = StatusLoading
				return m, tea.Batch(m.spinner.Tick, backupGuardTarget(m))
			}
			return m, nil
		case key.Matches(msg, Keys.Cancel):
			m.app.Orchestrator.CancelGuard()
			return m, tea.Quit
		case key.Matches(msg, Keys.Quit):
			m.cancel()
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, Keys.NextTab):
		if m.status == StatusReady {
			m.tab = Tab((int(m.tab) + 1) % len(tabNames))
			m.cursor = 0
			m.syncViewport()
			if m.tab == TabEvidence {
				return m, computeGate(m)
			}
		}
		return m, nil

	case key.Matches(msg, Keys.Refresh):
		if m.status == StatusReady {
			m.status = StatusLoading
			return m, tea.Batch(m.spinner.Tick, refreshViews(m))
		}
		return m, nil

	case key.Matches(msg, Keys.Open):
		if m.status == StatusReady && m.tab == TabIncidents {
			incidents := m.incidents()
			if m.cursor < len(incidents) {
				m.status = StatusLoading
				return m, tea.Batch(m.spinner.Tick, loadDetail(m, incidents[m.cursor].ID))
			}
		}
		return m, nil

	case key.Matches(msg, Keys.Back):
		if m.status == StatusDetail {
			m.status = StatusReady
			m.syncViewport()
		}
		return m, nil

	case key.Matches(msg, Keys.Up):
		if m.status == StatusReady && m.tab == TabIncidents {
			if m.cursor > 0 {
				m.cursor--
				m.syncViewport()
			}
		} else {
			m.viewport.LineUp(1)
		}
		return m, nil

	case key.Matches(msg, Keys.Down):
		if m.status == StatusReady && m.tab == TabIncidents {
			if m.cursor+1 < len(m.incidents()) {
				m.cursor++
				m.syncViewport()
			}
		} else {
			m.viewport.LineDown(1)
		}
		return m, nil

	case key.Matches(msg, key.NewBinding(key.WithKeys("pgup"))):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, key.NewBinding(key.WithKeys("pgdown"))):
		m.viewport.HalfViewDown()
		return m, nil
	}

	return m, nil
}

func (m Model) incidents() []gateway.IncidentListItem {
	view := m.app.Views.View()
	if view.Incidents == nil {
		return nil
	}
	return view.Incidents.Incidents
}

// syncViewport refreshes the viewport content for the current tab.
func (m *Model) syncViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.contentView())
	m.viewport.GotoTop()
}

// View renders the model
func (m Model) View() string {
	switch m.status {
	case StatusInitializing, StatusLoading:
		return lipgloss.JoinVertical(lipgloss.Left,
			"",
			fmt.Sprintf("%s %s", m.spinner.View(), m.styles.StatusText.Render("Loading workspace...")),
		)

	case StatusGuardPrompt:
		return m.guardView()

	case StatusError:
		return lipgloss.JoinVertical(lipgloss.Left,
			"",
			m.styles.Error.Render("✗ Something went wrong"),
			"",
			m.styles.Paragraph.Render(wordwrap.String(m.errorMsg, max(40, m.width-4))),
			"",
			m.styles.Subtle.Render("Press 'q' to quit"),
		)
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.showHelp {
		m.help.ShowAll = true
	} else {
		m.help.ShowAll = false
	}
	b.WriteString(m.styles.StatusBar.Render(m.help.View(Keys)))
	return b.String()
}

func (m Model) headerView() string {
	current := m.app.Sessions.Current()
	path := current.CurrentPath
	if path == "" {
		path = "(no workspace)"
	}

	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab && m.status != StatusDetail {
			tabs[i] = m.styles.TabActive.Render(name)
		} else {
			tabs[i] = m.styles.TabIdle.Render(name)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Title.Render("incidentdeck"),
		m.styles.Subtle.Render(path),
		strings.Join(tabs, "  "),
	)
}

func (m Model) guardView() string {
	pending := m.guard.PendingMigrations
	lines := []string{
		"",
		m.styles.Warning.Render("⚠ Pending schema migrations"),
		"",
		m.styles.Paragraph.Render(fmt.Sprintf("The workspace at %s needs %d migration(s) before it can be opened:", m.guard.TargetPath, len(pending))),
		"",
	}
	for _, name := range pending {
		lines = append(lines, m.styles.Subtle.Render("  • "+name))
	}
	lines = append(lines,
		"",
		m.styles.Paragraph.Render("Migrating changes the file on disk. A backup first is the safe choice."),
	)
	if m.notice != "" {
		lines = append(lines, "", m.notice)
	}
	lines = append(lines,
		"",
		fmt.Sprintf("%s %s    %s %s    %s %s",
			m.styles.Success.Render("[p]"), "run migrations",
			m.styles.Info.Render("[b]"), "backup first",
			m.styles.Error.Render("[esc]"), "cancel",
		),
	)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) contentView() string {
	if m.status == StatusDetail {
		return m.detailView()
	}

	switch m.tab {
	case TabIncidents:
		return m.incidentsView()
	case TabDashboard:
		return m.dashboardView()
	case TabReport:
		return m.reportView()
	case TabValidation:
		return m.validationView()
	case TabEvidence:
		return m.evidenceView()
	}
	return ""
}

func (m Model) incidentsView() string {
	incidents := m.incidents()
	if len(incidents) == 0 {
		return m.styles.Subtle.Render("No incidents in this workspace yet.")
	}

	var b strings.Builder
	for i, inc := range incidents {
		marker := "  "
		if i == m.cursor {
			marker = m.styles.StatusText.Render("> ")
		}
		sev := inc.Severity
		if sev == "" {
			sev = "-"
		}
		b.WriteString(fmt.Sprintf("%s%s  %s  %s\n",
			marker,
			m.styles.SeverityStyle(inc.Severity).Render(fmt.Sprintf("%-5s", sev)),
			m.styles.Paragraph.Render(inc.Title),
			m.styles.Subtle.Render(inc.ExternalID),
		))
	}
	return b.String()
}

func (m Model) dashboardView() string {
	view := m.app.Views.View()
	d := view.Dashboard
	if d == nil {
		return m.styles.Subtle.Render("Dashboard not loaded yet.")
	}

	severities := make([]string, 0, len(d.BySeverity))
	for sev := range d.BySeverity {
		severities = append(severities, sev)
	}
	sort.Strings(severities)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %d   %s %d\n\n",
		m.styles.Info.Render("Total:"), d.TotalIncidents,
		m.styles.Warning.Render("Open:"), d.OpenIncidents,
	))
	b.WriteString(fmt.Sprintf("%s %s   %s %s\n\n",
		m.styles.Info.Render("MTTR:"), utils.FormatMinutes(d.MTTRMinutes),
		m.styles.Info.Render("MTTA:"), utils.FormatMinutes(d.MTTAMinutes),
	))
	for _, sev := range severities {
		b.WriteString(fmt.Sprintf("  %s %d\n",
			m.styles.SeverityStyle(sev).Render(fmt.Sprintf("%-8s", sev)),
			d.BySeverity[sev],
		))
	}
	return b.String()
}

func (m Model) reportView() string {
	view := m.app.Views.View()
	if view.ReportMD == "" {
		return m.styles.Subtle.Render("Report not generated yet.")
	}
	rendered, err := m.renderer.Render(view.ReportMD)
	if err != nil {
		return view.ReportMD
	}
	return rendered
}

func (m Model) validationView() string {
	view := m.app.Views.View()
	report := view.Validation
	if report == nil {
		return m.styles.Subtle.Render("Validation report not loaded yet.")
	}
	if len(report.Items) == 0 {
		return m.styles.Success.Render("✓ No data quality warnings.")
	}

	var b strings.Builder
	for _, item := range report.Items {
		b.WriteString(m.styles.Title.Render(item.Title) + "\n")
		for _, w := range item.Warnings {
			b.WriteString(fmt.Sprintf("  %s %s\n",
				m.styles.Warning.Render(w.Code),
				m.styles.Subtle.Render(w.Message),
			))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) evidenceView() string {
	if m.gate == nil {
		return m.styles.Subtle.Render("Checking evidence readiness...")
	}

	check := func(ok bool, label string) string {
		if ok {
			return m.styles.Success.Render("✓ "+label) + "\n"
		}
		return m.styles.Error.Render("✗ "+label) + "\n"
	}

	var b strings.Builder
	b.WriteString(check(m.gate.CanSearch, "Evidence search available"))
	b.WriteString(check(m.gate.CanDraft, "Draft generation available"))
	if m.gate.Reason != evidence.ReasonNone {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render(string(m.gate.Reason)) + "\n")
		b.WriteString(m.styles.Subtle.Render(gateway.Guidance(gateway.NewCommandError(string(m.gate.Reason), ""))))
	}
	return b.String()
}

func (m Model) detailView() string {
	view := m.app.Views.View()
	detail := view.Detail
	if detail == nil {
		return m.styles.Subtle.Render("No incident selected.")
	}

	var b strings.Builder
	b.WriteString(m.styles.Title.Render(detail.Incident.Title) + "\n")
	b.WriteString(m.styles.Subtle.Render(fmt.Sprintf("%s  %s",
		detail.Incident.ID,
		m.styles.SeverityStyle(detail.Incident.Severity).Render(detail.Incident.Severity),
	)) + "\n\n")

	if len(detail.Events) == 0 {
		b.WriteString(m.styles.Subtle.Render("No timeline events."))
		return b.String()
	}
	for _, event := range detail.Events {
		b.WriteString(fmt.Sprintf("%s  %s\n",
			m.styles.Info.Render(utils.FormatTimestamp(event.Timestamp)),
			m.styles.Subtle.Render(event.Kind),
		))
		b.WriteString(m.styles.Paragraph.Render(wordwrap.String(event.Text, max(40, m.width-4))) + "\n\n")
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
