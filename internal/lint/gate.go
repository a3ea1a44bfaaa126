package lint

// Options is the configuration object that crosses from the external CLI
// and config-file layers into the core (spec.md §4.8). The core never
// parses flags or INI files itself — it only consumes this struct.
type Options struct {
	MaxLineLength int
	EnabledRules  map[string]bool // nil means "all rules enabled"
	DisabledRules map[string]bool
	MinSeverity   *RuleSeverity
	FollowCalls   bool
	MaxInputSize  int64
}

// DefaultOptions mirrors spec.md §4.8's defaults.
func DefaultOptions() Options {
	return Options{
		MaxLineLength: 100,
		MaxInputSize:  DefaultMaxInputSize,
	}
}

// allows applies the configuration and suppression filters of C8 to one
// candidate diagnostic, returning whether it survives.
func (o Options) allows(d Diagnostic, line Line) bool {
	if o.EnabledRules != nil && !o.EnabledRules[d.RuleCode] {
		return false
	}
	if o.DisabledRules[d.RuleCode] {
		return false
	}
	if o.MinSeverity != nil {
		rule, ok := LookupRule(d.RuleCode)
		if ok && rule.Severity.filterRank() < o.MinSeverity.filterRank() {
			return false
		}
	}
	if line.IsSuppressed(d.RuleCode) {
		return false
	}
	return true
}

// filterDiagnostics implements C8: it drops every candidate that fails
// Options.allows against the line it was raised on.
func filterDiagnostics(o Options, candidates []Diagnostic, lines []Line) []Diagnostic {
	out := make([]Diagnostic, 0, len(candidates))
	for _, d := range candidates {
		if d.LineNumber < 1 || d.LineNumber > len(lines) {
			continue
		}
		if o.allows(d, lines[d.LineNumber-1]) {
			out = append(out, d)
		}
	}
	return out
}
