package lint

import (
	"os"
	"regexp"
)

var reSetAssign = regexp.MustCompile(`(?i)^\s*set\s+"?([A-Za-z_][A-Za-z0-9_]*)"?\s*=`)
var reSetASet = regexp.MustCompile(`(?i)^\s*set\s*/a\s+"?([A-Za-z_][A-Za-z0-9_]*)"?\s*=`)
var reSetPSet = regexp.MustCompile(`(?i)^\s*set\s*/p\s+"?([A-Za-z_][A-Za-z0-9_]*)"?\s*=`)
var reForLoopVar = regexp.MustCompile(`(?i)\bfor\b.*%%([A-Za-z])\b`)

// populateContext walks a script once, recording label and variable
// definitions into ctx before any rule that depends on them runs. This is
// the bookkeeping half of C5/C6 described in spec.md §3: by the time
// rules_line.go and rules_file.go run their checks, ctx already knows
// every name the script defines, regardless of where in the file.
func populateContext(script *Script, ctx *AnalysisContext) {
	for _, line := range script.Lines {
		switch line.Kind {
		case KindLabel:
			ctx.DefineLabel(line.LabelName, line.Index)
		case KindCode:
			code := codeOnly(line.Text)
			if m := reSetAssign.FindStringSubmatch(code); m != nil {
				ctx.DefineVariable(m[1], line.Index)
			}
			if m := reSetASet.FindStringSubmatch(code); m != nil {
				ctx.DefineVariable(m[1], line.Index)
			}
			if m := reSetPSet.FindStringSubmatch(code); m != nil {
				ctx.DefineVariable(m[1], line.Index)
			}
			for _, m := range reForLoopVar.FindAllStringSubmatch(code, -1) {
				ctx.DefineVariable(m[1], line.Index)
			}
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Lint is the package's single entry point: load, classify, analyze, and
// filter one script, returning its final diagnostics (spec.md §3). It is a
// pure function of (path, opts) plus the filesystem at call time — no
// package-level mutable state is touched beyond the read-only Catalog, so
// concurrent calls from multiple goroutines are safe.
func Lint(path string, opts Options) ([]Diagnostic, error) {
	maxSize := opts.MaxInputSize
	if maxSize <= 0 {
		maxSize = DefaultMaxInputSize
	}

	script, err := LoadScript(path, maxSize)
	if err != nil {
		return nil, err
	}
	return LintScript(script, opts)
}

// LintScript runs the analysis pipeline against an already-loaded script.
// Exported so callers that need the decoded Script for other purposes
// (reporting encoding/line-ending info, tests) don't have to load twice.
func LintScript(script *Script, opts Options) ([]Diagnostic, error) {
	ctx := NewAnalysisContext(script)
	populateContext(script, ctx)

	var candidates []Diagnostic

	for _, line := range script.Lines {
		if line.Kind != KindCode {
			continue
		}
		lc := &LineContext{Script: script, Line: line, Options: opts, Ctx: ctx}
		candidates = append(candidates, runLineRules(lc)...)
	}

	// The call-follower's variable merge must land in ctx before
	// runFileRules reads it, or checkUndefinedVariables (E006) will have
	// already emitted for a name the callee defines (spec.md §8:
	// enabling follow_calls only ever removes E006, never adds it).
	if opts.FollowCalls {
		maxSize := opts.MaxInputSize
		if maxSize <= 0 {
			maxSize = DefaultMaxInputSize
		}
		candidates = append(candidates, followCalls(script, ctx, maxSize)...)
	}

	candidates = append(candidates, runFileRules(script, ctx, opts)...)

	filtered := filterDiagnostics(opts, candidates, script.Lines)
	return emit(filtered), nil
}
