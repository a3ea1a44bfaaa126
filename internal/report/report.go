// Package report renders linting results for the terminal: per-diagnostic
// lines colored by severity, and an aggregate summary.
package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"blinter/internal/discover"
	"blinter/internal/lint"
)

var severityColor = map[lint.RuleSeverity]*color.Color{
	lint.SeverityError:       color.New(color.FgRed, color.Bold),
	lint.SeverityWarning:     color.New(color.FgYellow),
	lint.SeveritySecurity:    color.New(color.FgMagenta, color.Bold),
	lint.SeverityPerformance: color.New(color.FgCyan),
	lint.SeverityStyle:       color.New(color.FgBlue),
}

// WriteResults prints one line per diagnostic, grouped by file, in the
// order CollectFiles returned them.
func WriteResults(w io.Writer, results []discover.FileResult) {
	for _, r := range results {
		if r.Err != nil {
			color.New(color.FgRed).Fprintf(w, "%s: %v\n", r.Path, r.Err)
			continue
		}
		if len(r.Diagnostics) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s\n", r.Path)
		for _, d := range r.Diagnostics {
			rule := d.Rule()
			c, ok := severityColor[rule.Severity]
			if !ok {
				c = color.New()
			}
			label := c.Sprintf("%-7s %s", rule.Severity.String(), d.RuleCode)
			fmt.Fprintf(w, "  line %-5d %s  %s\n", d.LineNumber, label, rule.Name)
			if d.ContextNote != "" {
				fmt.Fprintf(w, "             %s\n", d.ContextNote)
			}
		}
	}
}

// Summary holds the aggregate counts printed by --summary.
type Summary struct {
	FilesScanned int
	FilesClean   int
	FilesFailed  int
	BySeverity   map[lint.RuleSeverity]int
	Total        int
}

// Summarize tallies severities across every diagnostic in results.
func Summarize(results []discover.FileResult) Summary {
	s := Summary{BySeverity: make(map[lint.RuleSeverity]int)}
	for _, r := range results {
		s.FilesScanned++
		if r.Err != nil {
			s.FilesFailed++
			continue
		}
		if len(r.Diagnostics) == 0 {
			s.FilesClean++
			continue
		}
		for _, d := range r.Diagnostics {
			s.BySeverity[d.Rule().Severity]++
			s.Total++
		}
	}
	return s
}

// WriteSummary prints Summary in descending severity order (spec.md §4.9's
// UI ordering, reused here for consistency with the per-file output).
func WriteSummary(w io.Writer, s Summary) {
	order := []lint.RuleSeverity{
		lint.SeverityError, lint.SeverityWarning, lint.SeveritySecurity,
		lint.SeverityPerformance, lint.SeverityStyle,
	}
	fmt.Fprintf(w, "\nscanned %d file(s), %d clean, %d failed to load\n", s.FilesScanned, s.FilesClean, s.FilesFailed)
	for _, sev := range order {
		n := s.BySeverity[sev]
		if n == 0 {
			continue
		}
		c, ok := severityColor[sev]
		if !ok {
			c = color.New()
		}
		c.Fprintf(w, "  %-12s %d\n", sev.String(), n)
	}
	fmt.Fprintf(w, "  %-12s %d\n", "TOTAL", s.Total)
}
