package lint

import "sort"

// Diagnostic is a single finding, tied to a line and a rule (spec.md §3,
// §6). Equality is by all fields; ordering is defined by sortDiagnostics below.
type Diagnostic struct {
	LineNumber  int
	RuleCode    string
	ContextNote string
}

// Rule resolves the catalog entry for this diagnostic. Callers that need
// severity, name or explanation text use this rather than re-indexing
// Catalog themselves.
func (d Diagnostic) Rule() Rule {
	r, _ := LookupRule(d.RuleCode)
	return r
}

// dedupeDiagnostics removes diagnostics with identical (LineNumber,
// RuleCode) pairs, keeping the first occurrence's ContextNote (spec.md
// §4.9: "Diagnostic equality deduplicates identical (line_index,
// rule_code) pairs before sorting").
func dedupeDiagnostics(in []Diagnostic) []Diagnostic {
	seen := make(map[[2]interface{}]bool, len(in))
	out := make([]Diagnostic, 0, len(in))
	for _, d := range in {
		key := [2]interface{}{d.LineNumber, d.RuleCode}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// sortDiagnostics orders by (line ASC, severity UI-rank DESC, rule code
// ASC), per spec.md §4.9.
func sortDiagnostics(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.LineNumber != b.LineNumber {
			return a.LineNumber < b.LineNumber
		}
		ra, rb := a.Rule().Severity.uiRank(), b.Rule().Severity.uiRank()
		if ra != rb {
			return ra > rb
		}
		return a.RuleCode < b.RuleCode
	})
}

// emit runs the emitter stage (C9): dedupe then sort, producing the final
// ordered list returned to callers.
func emit(diags []Diagnostic) []Diagnostic {
	deduped := dedupeDiagnostics(diags)
	sortDiagnostics(deduped)
	return deduped
}
