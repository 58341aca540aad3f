package app

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mgattozzi/assay/internal/duration"
)

// renderList prints every expanded test instance as a table: one row per
// generated wrapper, grouped by source file.
func (a *App) renderList(outcomes []fileOutcome) error {
	t := table.NewWriter()
	t.SetOutputMirror(a.outW)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"FILE", "FUNCTION", "TEST", "RETRIES", "TIMEOUT"})

	total := 0
	for _, o := range outcomes {
		for _, s := range o.summaries {
			retries := "-"
			if s.Retries > 0 {
				retries = strconv.Itoa(s.Retries)
			}
			timeout := "-"
			if s.TimeoutMillis > 0 {
				timeout = duration.Format(s.TimeoutMillis)
			}
			t.AppendRow(table.Row{o.path, s.Func, s.Name, retries, timeout})
			total++
		}
	}

	t.Render()
	a.logger.Debug("Listed test instances.", "count", total)
	return nil
}
