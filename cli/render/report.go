package render

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/xray/score"
	"github.com/pithecene-io/xray/types"
)

// noValue is shown for breakdown rows without a usable rating.
const noValue = "-"

// RenderReport outputs a score report. JSON and YAML encode the report as
// is; table prints a summary, the breakdown and one row per task.
func (r *Renderer) RenderReport(report types.ScoreReport, weights types.WeightTable, elapsed time.Duration) error {
	if r.format != FormatTable {
		return r.Render(report)
	}

	st := newTableStyles(r)
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "company:\t%s\n", report.Company)
	if report.QueryID != "" {
		fmt.Fprintf(w, "query:\t%s\n", report.QueryID)
	}
	fmt.Fprintf(w, "score:\t%s\n", st.score.Render(fmt.Sprintf("%.2f", report.CompositeScore)))
	fmt.Fprintf(w, "progress:\t%d of %d signals\n", report.Progress.Completed, report.Progress.Total)
	if report.Outcome != nil {
		fmt.Fprintf(w, "outcome:\t%s\n", st.outcome(report.Outcome.Status))
		if report.Outcome.Message != "" {
			fmt.Fprintf(w, "message:\t%s\n", report.Outcome.Message)
		}
	}
	if elapsed > 0 {
		fmt.Fprintf(w, "elapsed:\t%s\n", elapsed.Round(time.Millisecond))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(r.out)
	w = tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNAL\tWEIGHT\tVALUE")
	for _, e := range report.Breakdown {
		fmt.Fprintf(w, "%s\t%d%%\t%s\n", e.Label, e.Weight, FormatValue(e.Value))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(report.Tasks) == 0 {
		return nil
	}
	fmt.Fprintln(r.out)
	w = tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tSTATUS\tWEIGHT\tTIME\tDETAIL")
	for _, rec := range report.Tasks {
		fmt.Fprintf(w, "%s\t%s\t%d%%\t%s\t%s\n",
			rec.TaskID,
			rec.Status,
			weights.WeightOf(rec.TaskID),
			FormatElapsed(rec.ElapsedSeconds),
			strings.Join(Details(rec), "; "),
		)
	}
	return w.Flush()
}

// FormatValue formats a breakdown value, "-" when absent.
func FormatValue(v *float64) string {
	if v == nil {
		return noValue
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatElapsed formats a task's elapsed seconds, empty when unknown or zero.
func FormatElapsed(secs *float64) string {
	if secs == nil || *secs <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2fs", *secs)
}

// CompletedIn returns "completed in N.NNs" for a task with a positive
// elapsed time, empty otherwise.
func CompletedIn(rec types.TaskRecord) string {
	if e := FormatElapsed(rec.ElapsedSeconds); e != "" {
		return "completed in " + e
	}
	return ""
}

// Details returns the error of a failed task, or the highlights of a
// successful one.
func Details(rec types.TaskRecord) []string {
	if rec.Status == types.TaskStatusError {
		if rec.Error != "" {
			return []string{rec.Error}
		}
		return []string{"failed"}
	}
	h := Highlights(rec)
	if rec.Status != types.TaskStatusSuccess {
		return h
	}
	if rating, ok := score.Rating(rec.Payload); ok {
		h = append([]string{fmt.Sprintf("rating %.2f", rating)}, h...)
	}
	return h
}

// tableStyles colors the summary block. Only trailing cells are styled so
// escape sequences never skew tabwriter alignment. Colors are dropped with
// --no-color and when the output is not a terminal.
type tableStyles struct {
	score   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
}

func newTableStyles(r *Renderer) tableStyles {
	if r.noColor {
		plain := lipgloss.NewStyle()
		return tableStyles{score: plain, success: plain, failure: plain, muted: plain}
	}
	lr := lipgloss.NewRenderer(r.out)
	return tableStyles{
		score:   lr.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		success: lr.NewStyle().Foreground(lipgloss.Color("42")),
		failure: lr.NewStyle().Foreground(lipgloss.Color("196")),
		muted:   lr.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

func (s tableStyles) outcome(st types.QueryOutcomeStatus) string {
	switch st {
	case types.OutcomeCompleted:
		return s.success.Render(string(st))
	case types.OutcomeTransportError:
		return s.failure.Render(string(st))
	default:
		return s.muted.Render(string(st))
	}
}
