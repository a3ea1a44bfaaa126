package lint

import (
	"path/filepath"
	"regexp"
	"strings"
)

var reCallExternal = regexp.MustCompile(`(?i)\bcall\s+"?([^":&|<>\s][^":&|<>]*\.(?:bat|cmd))"?`)
var reCallBare = regexp.MustCompile(`(?i)\bcall\s+([A-Za-z0-9_\\/-]+)(?:\s|$)`)

// followCalls implements C7: CALL targets naming another script (not a
// local label) are resolved relative to scriptDir, loaded, and merged into
// ctx so downstream variable-definition checks see what the callee sets.
// A name without an extension is tried as .bat, then .cmd. Resolution
// failures are non-fatal: an unresolved name written with .bat/.cmd
// surfaces as a W003-class diagnostic, while an unresolved bare name (which
// may be a command on PATH) is skipped (spec.md §4.7).
func followCalls(script *Script, ctx *AnalysisContext, maxSize int64) []Diagnostic {
	var out []Diagnostic
	scriptDir := filepath.Dir(script.Path)
	visited := map[string]bool{canonical(script.Path): true}

	for _, line := range script.Lines {
		if line.Kind != KindCode {
			continue
		}
		m := reCallExternal.FindStringSubmatch(line.Text)
		bare := false
		if m == nil {
			if m = reCallBare.FindStringSubmatch(line.Text); m == nil {
				continue
			}
			bare = true
		}
		target := resolveCallTarget(scriptDir, m[1])
		if target == "" {
			if !bare {
				out = append(out, diag(line.Index, "W003", "CALL target "+m[1]+" could not be resolved"))
			}
			continue
		}
		ctx.CallTargets[target] = true
		followOne(target, line.Index, ctx, visited, maxSize, &out)
	}
	return out
}

func followOne(target string, callLine int, ctx *AnalysisContext, visited map[string]bool, maxSize int64, out *[]Diagnostic) {
	key := canonical(target)
	if visited[key] {
		return
	}
	visited[key] = true

	callee, err := LoadScript(target, maxSize)
	if err != nil {
		*out = append(*out, diag(callLine, "W003", "CALL target "+target+" could not be loaded: "+err.Error()))
		return
	}

	calleeCtx := NewAnalysisContext(callee)
	populateContext(callee, calleeCtx)
	for name := range calleeCtx.VariablesDefined {
		ctx.ImportVariable(name, callLine)
	}

	// Follow the callee's own .bat/.cmd CALLs recursively, so a chain of
	// helper scripts still contributes its variable definitions; the
	// visited set stops cycles.
	calleeDir := filepath.Dir(target)
	for _, line := range callee.Lines {
		if line.Kind != KindCode {
			continue
		}
		m := reCallExternal.FindStringSubmatch(line.Text)
		if m == nil {
			continue
		}
		nested := resolveCallTarget(calleeDir, m[1])
		if nested == "" {
			continue
		}
		followOne(nested, callLine, ctx, visited, maxSize, out)
	}
}

// resolveCallTarget resolves a CALL argument against dir, trying the name
// as given and, if it has no batch extension, both .bat and .cmd (spec.md
// §4.7). It returns "" if no candidate exists on disk.
func resolveCallTarget(dir, name string) string {
	name = strings.Trim(name, `"`)
	candidates := []string{name}
	if ext := filepath.Ext(name); !strings.EqualFold(ext, ".bat") && !strings.EqualFold(ext, ".cmd") {
		candidates = append(candidates, name+".bat", name+".cmd")
	}
	for _, c := range candidates {
		full := c
		if !filepath.IsAbs(full) {
			full = filepath.Join(dir, c)
		}
		if fileExists(full) {
			return full
		}
	}
	return ""
}

func canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return filepath.Clean(abs)
}
