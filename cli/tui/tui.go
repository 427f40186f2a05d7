package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/xray/types"
)

// Run starts the live view and blocks until the user quits or ctx is
// done. It returns the final model's report of the last query, if any.
func Run(ctx context.Context, session Session, weights types.WeightTable, defaultTasks int, initial string) (*types.ScoreReport, error) {
	model := NewModel(ctx, session, weights, defaultTasks, initial)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return nil, err
	}

	m, ok := final.(Model)
	if !ok || m.queryID == "" {
		return nil, nil
	}
	report := m.Report()
	return &report, nil
}
