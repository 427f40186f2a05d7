package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/xray/cli/render"
	"github.com/pithecene-io/xray/runtime"
	"github.com/pithecene-io/xray/score"
	"github.com/pithecene-io/xray/types"
)

// Session is the query runner the model drives.
// *runtime.Session implements it.
type Session interface {
	Start(ctx context.Context, company string) (string, error)
	Cancel()
	Updates() <-chan runtime.Update
}

type (
	submitMsg        string
	updateMsg        runtime.Update
	sessionClosedMsg struct{}
)

// Model is the live score view.
type Model struct {
	ctx          context.Context
	session      Session
	weights      types.WeightTable
	defaultTasks int
	initial      string

	input   textinput.Model
	spinner spinner.Model
	bar     progress.Model

	queryID string
	company string
	state   types.AggregateState
	result  *runtime.QueryResult
	running bool
	err     error

	width    int
	quitting bool
}

// NewModel creates the live view. A non-empty initial company is
// submitted as soon as the program starts.
func NewModel(ctx context.Context, session Session, weights types.WeightTable, defaultTasks int, initial string) Model {
	if defaultTasks <= 0 {
		defaultTasks = types.DefaultExpectedTaskCount
	}

	ti := textinput.New()
	ti.Placeholder = "Company name"
	ti.Prompt = "search > "
	ti.CharLimit = 128
	ti.Width = 40
	ti.SetValue(initial)
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WarningStyle

	return Model{
		ctx:          ctx,
		session:      session,
		weights:      weights,
		defaultTasks: defaultTasks,
		initial:      strings.TrimSpace(initial),
		input:        ti,
		spinner:      sp,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick, waitForUpdate(m.session.Updates())}
	if m.initial != "" {
		initial := m.initial
		cmds = append(cmds, func() tea.Msg { return submitMsg(initial) })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = barWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			m.session.Cancel()
			return m, tea.Quit
		case key.Matches(msg, keys.Cancel):
			if m.running {
				m.session.Cancel()
			}
			return m, nil
		case key.Matches(msg, keys.Submit):
			return m.submit(m.input.Value())
		}

	case submitMsg:
		return m.submit(string(msg))

	case updateMsg:
		m.apply(runtime.Update(msg))
		return m, waitForUpdate(m.session.Updates())

	case sessionClosedMsg:
		m.running = false
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts a query for name, replacing the one in flight.
func (m Model) submit(name string) (tea.Model, tea.Cmd) {
	name = strings.TrimSpace(name)
	if name == "" {
		m.err = runtime.ErrEmptyCompany
		return m, nil
	}

	id, err := m.session.Start(m.ctx, name)
	if err != nil {
		m.err = err
		return m, nil
	}

	m.queryID = id
	m.company = name
	m.state = types.AggregateState{ExpectedTaskCount: m.defaultTasks}
	m.result = nil
	m.running = true
	m.err = nil
	m.input.SetValue(name)
	return m, nil
}

// apply takes an update for the current query. Updates of abandoned
// queries are dropped.
func (m *Model) apply(u runtime.Update) {
	if u.QueryID == "" || u.QueryID != m.queryID {
		return
	}
	m.state = u.State
	if u.Done {
		m.running = false
		m.result = u.Result
	}
}

// Report returns the report for the current snapshot.
func (m Model) Report() types.ScoreReport {
	report := score.Report(m.queryID, m.company, m.state, m.weights)
	if m.result != nil {
		outcome := m.result.Outcome
		report.Outcome = &outcome
	}
	return report
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("xray"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	if m.queryID != "" {
		b.WriteString("\n")
		b.WriteString(m.renderReport(m.Report()))
	}

	b.WriteString(HelpStyle.Render("enter: search • ctrl+x: cancel • esc/ctrl+c: quit"))
	return b.String()
}

func (m Model) renderReport(report types.ScoreReport) string {
	var b strings.Builder

	header := TitleStyle.Render(report.Company)
	if m.running {
		header += " " + m.spinner.View()
	}
	b.WriteString(header)
	b.WriteString("\n")

	b.WriteString(ScoreStyle.Render(fmt.Sprintf("%.2f", report.CompositeScore)))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(report.Progress.Fraction()))
	b.WriteString(fmt.Sprintf("  %d of %d signals\n\n", report.Progress.Completed, report.Progress.Total))

	for _, e := range report.Breakdown {
		b.WriteString(fmt.Sprintf("%s %4d%%  %s\n",
			LabelStyle.Render(e.Label),
			e.Weight,
			ValueStyle.Render(render.FormatValue(e.Value))))
	}

	if len(report.Tasks) > 0 {
		cards := make([]string, 0, len(report.Tasks))
		for _, rec := range report.Tasks {
			cards = append(cards, renderCard(rec, m.weights.WeightOf(rec.TaskID), m.spinner.View()))
		}
		b.WriteString("\n")
		b.WriteString(layoutCards(cards, m.width))
		b.WriteString("\n")
	}

	if report.Outcome != nil {
		line := OutcomeStyle(report.Outcome.Status).Render(string(report.Outcome.Status))
		if report.Outcome.Message != "" {
			line += "  " + report.Outcome.Message
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}

// renderCard renders one task as a bordered card.
func renderCard(rec types.TaskRecord, weight int, pending string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %d%% %s",
		TitleStyle.Render(score.Label(rec.TaskID)),
		weight,
		statusSymbol(rec.Status, pending)))

	if c := render.CompletedIn(rec); c != "" {
		b.WriteString("\n")
		b.WriteString(HelpStyle.UnsetMarginTop().Render(c))
	}

	details := render.Details(rec)
	if len(details) == 0 && rec.Status == types.TaskStatusSuccess {
		details = []string{"no data available"}
	}
	for _, d := range details {
		b.WriteString("\n")
		b.WriteString(StatusStyle(rec.Status).Render(d))
	}

	return CardStyle.Render(b.String())
}

func statusSymbol(status types.TaskStatus, pending string) string {
	switch status {
	case types.TaskStatusSuccess:
		return SuccessStyle.Render("✓")
	case types.TaskStatusError:
		return ErrorStyle.Render("✗")
	default:
		return pending
	}
}

// layoutCards places cards side by side as far as the width allows.
func layoutCards(cards []string, width int) string {
	perRow := 1
	if cardWidth := lipgloss.Width(CardStyle.Render("")); width > 0 && cardWidth > 0 {
		perRow = max(1, width/cardWidth)
	}

	rows := make([]string, 0, (len(cards)+perRow-1)/perRow)
	for i := 0; i < len(cards); i += perRow {
		end := min(i+perRow, len(cards))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func barWidth(termWidth int) int {
	return max(10, min(60, termWidth-24))
}

func waitForUpdate(ch <-chan runtime.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return sessionClosedMsg{}
		}
		return updateMsg(u)
	}
}

// keyMap defines key bindings.
type keyMap struct {
	Submit key.Binding
	Cancel key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "search"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}
