package lint

import (
	"fmt"
	"regexp"
	"strings"
)

// LineContext is what a per-line rule sees: the script, the line itself,
// the options, and the running AnalysisContext. LintScript does not set
// Prev, so it is nil for every rule it runs.
type LineContext struct {
	Script  *Script
	Line    Line
	Prev    *Line // previous line in the file, or nil
	Options Options
	Ctx     *AnalysisContext
}

// lineRule is the tagged-variant shape design note §9 calls for: a stable
// code paired with an evaluation function, stored in a plain slice rather
// than behind runtime reflection.
type lineRule struct {
	Code string
	Eval func(lc *LineContext) []Diagnostic
}

func diag(line int, code string, note string) Diagnostic {
	return Diagnostic{LineNumber: line, RuleCode: code, ContextNote: note}
}

// runLineRules evaluates every per-line rule against one code line, per
// C5 (spec.md §4.5). A panicking or misbehaving rule is isolated: see
// safeEval, which implements the "rule silently no-ops on that line"
// policy from spec.md §7.2.
func runLineRules(lc *LineContext) []Diagnostic {
	var out []Diagnostic
	for _, r := range lineRules {
		out = append(out, safeEval(r, lc)...)
	}
	out = append(out, runPatternRules(lc)...)
	return out
}

func safeEval(r lineRule, lc *LineContext) []Diagnostic {
	defer func() {
		recover() // a misbehaving rule no-ops on this line, it never aborts the file
	}()
	return r.Eval(lc)
}

// lineRules holds every per-line check with logic too specific to a code
// to live in the generic pattern table below.
var lineRules = []lineRule{
	{Code: "S002", Eval: checkEchoOffWithoutAt},
	{Code: "S003", Eval: checkCommandCasing},
	{Code: "S004", Eval: checkTrailingWhitespace},
	{Code: "S011", Eval: checkLineLength},
	{Code: "S007", Eval: checkFileExtensionUsage},
	{Code: "S028", Eval: checkRedundantParens},
	{Code: "W005", Eval: checkUnquotedVariableWithSpace},
	{Code: "W021", Eval: checkUnquotedIfComparison},
	{Code: "W024", Eval: checkDeprecatedCommand},
	{Code: "E003", Eval: checkIfKeywordSpacing},
	{Code: "E004", Eval: checkIfExistEqualsMix},
	{Code: "E007", Eval: checkEmptyVariableCheckSyntax},
	{Code: "E009", Eval: checkQuoteBalance},
	{Code: "E016", Eval: checkErrorlevelComparison},
	{Code: "E017", Eval: checkPercentTildeModifiers},
	{Code: "E019", Eval: checkPercentTildeTarget},
	{Code: "E020", Eval: checkForVarFormOnLine},
	{Code: "E021", Eval: checkSetAReservedOperators},
	{Code: "E022", Eval: checkSetASyntax},
	{Code: "E023", Eval: checkSetABitwise},
	{Code: "E024", Eval: checkPercentTildeCombinations},
	{Code: "E029", Eval: checkSetAComplexity},
	{Code: "E030", Eval: checkCaretContinuationTrailingSpace},
	{Code: "E031", Eval: checkCaretContinuationTarget},
	{Code: "E032", Eval: checkUnbalancedCaretEscape},
	{Code: "E033", Eval: checkCaretInsideQuotes},
	{Code: "E034", Eval: checkRemovedCommand},
	{Code: "E005", Eval: checkInvalidPathSyntax},
	{Code: "E010", Eval: checkForLoopMissingDo},
	{Code: "E011", Eval: checkMismatchedExpansionDelimiters},
	{Code: "E013", Eval: checkCommonCommandTypo},
	{Code: "E014", Eval: checkCallMissingColon},
	{Code: "E015", Eval: checkGotoEofMissingColon},
	{Code: "E025", Eval: checkParameterModifierContext},
	{Code: "E027", Eval: checkUNCWorkingDirectory},
	{Code: "E028", Eval: checkComplexQuoteEscaping},
	{Code: "P015", Eval: checkInefficientDelay},
	{Code: "SEC002", Eval: checkUnsafeSetValue},
}

func checkEchoOffWithoutAt(lc *LineContext) []Diagnostic {
	trimmed := lc.Line.Trimmed()
	if regexp.MustCompile(`(?i)^echo\s+off\b`).MatchString(trimmed) {
		return []Diagnostic{diag(lc.Line.Index, "S002", "use '@ECHO OFF' to also suppress this line")}
	}
	return nil
}

// checkCommandCasing implements S003 using ctx.commandCasing, an
// accumulator owned by this script's AnalysisContext: it remembers the
// first casing observed for each command name so later lines using a
// different casing of the same command are flagged.
func checkCommandCasing(lc *LineContext) []Diagnostic {
	trimmed := strings.TrimSpace(codeOnly(lc.Line.Text))
	toks := strings.Fields(trimmed)
	if len(toks) == 0 {
		return nil
	}
	first := toks[0]
	if !regexp.MustCompile(`^[A-Za-z]+$`).MatchString(first) {
		return nil
	}
	key := strings.ToLower(first)
	if lc.Ctx.commandCasing == nil {
		lc.Ctx.commandCasing = make(map[string]string)
	}
	seen, ok := lc.Ctx.commandCasing[key]
	if !ok {
		lc.Ctx.commandCasing[key] = first
		return nil
	}
	if seen != first {
		return []Diagnostic{diag(lc.Line.Index, "S003",
			fmt.Sprintf("command %q cased differently than earlier use %q", first, seen))}
	}
	return nil
}

func checkTrailingWhitespace(lc *LineContext) []Diagnostic {
	if strings.TrimRight(lc.Line.Text, " \t") != lc.Line.Text {
		return []Diagnostic{diag(lc.Line.Index, "S004", "")}
	}
	return nil
}

func checkLineLength(lc *LineContext) []Diagnostic {
	limit := lc.Options.MaxLineLength
	if limit <= 0 {
		limit = 100
	}
	if n := len([]rune(lc.Line.Text)); n > limit {
		return []Diagnostic{diag(lc.Line.Index, "S011", fmt.Sprintf("line is %d characters, limit is %d", n, limit))}
	}
	return nil
}

var reFileRefExt = regexp.MustCompile(`(?i)\b([A-Za-z0-9_.\\:/-]+\.(bat|cmd))\b`)

func checkFileExtensionUsage(lc *LineContext) []Diagnostic {
	var out []Diagnostic
	for _, m := range reFileRefExt.FindAllStringSubmatch(codeOnly(lc.Line.Text), -1) {
		if strings.EqualFold(m[2], "bat") {
			out = append(out, diag(lc.Line.Index, "S007", "consider the .cmd extension for scripts targeting Windows 2000 and newer"))
		}
	}
	return out
}

var reRedundantParens = regexp.MustCompile(`\(\s*\([^()]*\)\s*\)`)

func checkRedundantParens(lc *LineContext) []Diagnostic {
	if reRedundantParens.MatchString(codeOnly(lc.Line.Text)) {
		return []Diagnostic{diag(lc.Line.Index, "S028", "nested parentheses with no intervening operator")}
	}
	return nil
}

var reUnquotedVarSpace = regexp.MustCompile(`(?i)(set\s+|if\s+)[^"\n]*%[A-Za-z_][A-Za-z0-9_]*%(?:\s|$)`)

func checkUnquotedVariableWithSpace(lc *LineContext) []Diagnostic {
	line := codeOnly(lc.Line.Text)
	if !reUnquotedVarSpace.MatchString(line) {
		return nil
	}
	if strings.Contains(line, `"`) {
		return nil
	}
	if regexp.MustCompile(`(?i)\bif\s+exist\b`).MatchString(line) {
		return nil
	}
	return []Diagnostic{diag(lc.Line.Index, "W005", "quote variable expansions that may contain spaces")}
}

var reIfEquals = regexp.MustCompile(`(?i)^\s*if\s+(not\s+)?(%[^%]+%|![^!]+!|"[^"]*"|\S+)\s*==\s*(\S.*)$`)

func checkUnquotedIfComparison(lc *LineContext) []Diagnostic {
	m := reIfEquals.FindStringSubmatch(codeOnly(lc.Line.Text))
	if m == nil {
		return nil
	}
	left, right := m[2], strings.TrimSpace(m[3])
	if !strings.HasPrefix(left, `"`) || !strings.HasPrefix(right, `"`) {
		return []Diagnostic{diag(lc.Line.Index, "W021", "quote both sides of an IF comparison")}
	}
	return nil
}

// deprecatedCommands is the W024 list from spec.md §6. XCOPY is
// deliberately absent — the spec redesign explicitly removes it from the
// original's deprecated list.
var deprecatedCommands = []string{"WMIC", "CACLS", "WINRM", "BITSADMIN", "NBTSTAT", "DPATH", "KEYS", "NET SEND", "AT"}

// removedCommands is the E034 list from spec.md §6.
var removedCommands = []string{"CASPOL", "DISKCOMP", "APPEND", "BROWSTAT", "INUSE", "NET PRINT", "DISKCOPY", "STREAMS"}

func checkDeprecatedCommand(lc *LineContext) []Diagnostic {
	return matchCommandList(lc, deprecatedCommands, "W024", "is deprecated")
}

func checkRemovedCommand(lc *LineContext) []Diagnostic {
	return matchCommandList(lc, removedCommands, "E034", "has been removed from modern Windows")
}

func matchCommandList(lc *LineContext, list []string, code, verb string) []Diagnostic {
	line := strings.ToUpper(codeOnly(lc.Line.Text))
	var out []Diagnostic
	for _, cmd := range list {
		pattern := `\b` + regexp.QuoteMeta(cmd) + `\b`
		if regexp.MustCompile(pattern).MatchString(line) {
			out = append(out, diag(lc.Line.Index, code, fmt.Sprintf("%s %s", cmd, verb)))
		}
	}
	return out
}

var reIfNoSpace = regexp.MustCompile(`(?i)^\s*if\(`)

func checkIfKeywordSpacing(lc *LineContext) []Diagnostic {
	if reIfNoSpace.MatchString(lc.Line.Text) {
		return []Diagnostic{diag(lc.Line.Index, "E003", "'IF' must be separated from '(' by whitespace")}
	}
	return nil
}

var reIfExistEquals = regexp.MustCompile(`(?i)^\s*if\s+exist\b.*==`)

func checkIfExistEqualsMix(lc *LineContext) []Diagnostic {
	if reIfExistEquals.MatchString(codeOnly(lc.Line.Text)) {
		return []Diagnostic{diag(lc.Line.Index, "E004", "IF EXIST does not take a '==' comparison")}
	}
	return nil
}

var reEmptyVarCheck = regexp.MustCompile(`(?i)^\s*if\s+(not\s+)?%([A-Za-z_][A-Za-z0-9_]*)%==""`)

func checkEmptyVariableCheckSyntax(lc *LineContext) []Diagnostic {
	if reEmptyVarCheck.MatchString(codeOnly(lc.Line.Text)) {
		return []Diagnostic{diag(lc.Line.Index, "E007", `use "%VAR%"=="" instead of %VAR%==""`)}
	}
	return nil
}

func checkQuoteBalance(lc *LineContext) []Diagnostic {
	if quoteParity(lc.Line.Text)%2 != 0 {
		return []Diagnostic{diag(lc.Line.Index, "E009", "unmatched double quote")}
	}
	return nil
}

var reErrorlevelCompare = regexp.MustCompile(`(?i)\bif\s+(not\s+)?%?errorlevel%?\s+(\d+)\b`)
var reErrorlevelOperator = regexp.MustCompile(`(?i)\berrorlevel%?\s*(==|equ|neq|lss|leq|gtr|geq)\s*\d+`)

func checkErrorlevelComparison(lc *LineContext) []Diagnostic {
	line := codeOnly(lc.Line.Text)
	if !reErrorlevelCompare.MatchString(line) {
		return nil
	}
	if reErrorlevelOperator.MatchString(line) {
		return nil
	}
	return []Diagnostic{diag(lc.Line.Index, "E016", "IF ERRORLEVEL N tests 'greater than or equal'; use EQU/GTR/etc. to be explicit")}
}

func checkPercentTildeModifiers(lc *LineContext) []Diagnostic {
	var out []Diagnostic
	for _, issue := range parsePercentTilde(lc.Line.Text) {
		if issue.Code == "E017" {
			out = append(out, diag(lc.Line.Index, "E017", fmt.Sprintf("unknown modifier '%s'", issue.Text)))
		}
	}
	return out
}

func checkPercentTildeTarget(lc *LineContext) []Diagnostic {
	var out []Diagnostic
	for _, issue := range parsePercentTilde(lc.Line.Text) {
		if issue.Code == "E019" {
			out = append(out, diag(lc.Line.Index, "E019", fmt.Sprintf("%%~ applied to %q, which is not a parameter or FOR variable", issue.Text)))
		}
	}
	return out
}

func checkPercentTildeCombinations(lc *LineContext) []Diagnostic {
	var out []Diagnostic
	for _, issue := range parsePercentTilde(lc.Line.Text) {
		if issue.Code == "E024" {
			out = append(out, diag(lc.Line.Index, "E024", fmt.Sprintf("invalid modifier combination in %q", issue.Text)))
		}
	}
	return out
}

// checkForVarFormOnLine implements E020. Interactive (command-line) use is
// out of scope here, so this always checks the batch form.
func checkForVarFormOnLine(lc *LineContext) []Diagnostic {
	cols := checkForVariableForm(lc.Line.Text, ForVarBatch)
	var out []Diagnostic
	for range cols {
		out = append(out, diag(lc.Line.Index, "E020", "FOR metavariable in a batch file must use '%%x', not '%x'"))
	}
	return out
}

var reStringOpSubstring = regexp.MustCompile(`%[A-Za-z_][A-Za-z0-9_]*:~[^%]*%?`)
var reStringOpReplace = regexp.MustCompile(`%[A-Za-z_][A-Za-z0-9_]*:[^=%]*=[^%]*%?`)

// checkSetAReservedOperators implements E021: %VAR:~...% substring and
// %VAR:old=new% replacement expressions that don't close with exactly the
// two percent signs delimiting the whole construct.
func checkSetAReservedOperators(lc *LineContext) []Diagnostic {
	line := codeOnly(lc.Line.Text)
	var out []Diagnostic
	for _, pattern := range [...]*regexp.Regexp{reStringOpSubstring, reStringOpReplace} {
		for _, m := range pattern.FindAllString(line, -1) {
			if strings.Count(m, "%") != 2 {
				out = append(out, diag(lc.Line.Index, "E021", fmt.Sprintf("malformed string operation: %s", m)))
			}
		}
	}
	return out
}

func checkSetASyntax(lc *LineContext) []Diagnostic {
	var out []Diagnostic
	for _, issue := range validateSetA(lc.Line.Text) {
		if issue.Code == "E022" {
			out = append(out, diag(lc.Line.Index, "E022", issue.Note))
		}
	}
	return out
}

func checkSetABitwise(lc *LineContext) []Diagnostic {
	var out []Diagnostic
	for _, issue := range validateSetA(lc.Line.Text) {
		if issue.Code == "E023" {
			out = append(out, diag(lc.Line.Index, "E023", issue.Note))
		}
	}
	return out
}

func checkSetAComplexity(lc *LineContext) []Diagnostic {
	var out []Diagnostic
	for _, issue := range validateSetA(lc.Line.Text) {
		if issue.Code == "E029" {
			out = append(out, diag(lc.Line.Index, "E029", issue.Note))
		}
	}
	return out
}

var reCaretEOL = regexp.MustCompile(`\^\s+$`)
var reCaretEOLClean = regexp.MustCompile(`\^$`)

func checkCaretContinuationTrailingSpace(lc *LineContext) []Diagnostic {
	if reCaretEOL.MatchString(lc.Line.Text) {
		return []Diagnostic{diag(lc.Line.Index, "E030", "trailing whitespace after line-continuation caret")}
	}
	return nil
}

func checkCaretContinuationTarget(lc *LineContext) []Diagnostic {
	if !reCaretEOLClean.MatchString(strings.TrimRight(lc.Line.Text, " \t")) {
		return nil
	}
	if lc.Script == nil || lc.Line.Index >= len(lc.Script.Lines) {
		return nil
	}
	next := lc.Script.Lines[lc.Line.Index] // Lines is 0-indexed, Index is 1-based, so this is the next line
	if next.Kind == KindBlank || next.Kind == KindComment {
		return []Diagnostic{diag(lc.Line.Index, "E031", "caret continuation runs onto a blank or comment line")}
	}
	return nil
}

var reDoubleCaret = regexp.MustCompile(`\^\^[^\s^]`)

func checkUnbalancedCaretEscape(lc *LineContext) []Diagnostic {
	if reDoubleCaret.MatchString(codeOnly(lc.Line.Text)) {
		return []Diagnostic{diag(lc.Line.Index, "E032", "doubled caret leaves the following character unescaped")}
	}
	return nil
}

var reCaretInQuote = regexp.MustCompile(`"[^"]*\^[^"]*"`)

func checkCaretInsideQuotes(lc *LineContext) []Diagnostic {
	if reCaretInQuote.MatchString(lc.Line.Text) {
		return []Diagnostic{diag(lc.Line.Index, "E033", "caret has no special meaning inside a quoted string")}
	}
	return nil
}

// --- generic pattern-table rules ---------------------------------------

// patternRule matches the teacher's table-driven style (errorInfos indexed
// by ErrorCode) applied to regex-triggered findings: most SEC/P/S/W codes
// reduce to "this construct on a code line is always worth flagging,"
// mirroring the original's DANGEROUS_COMMAND_PATTERNS / CREDENTIAL_PATTERNS
// dictionaries.
type patternRule struct {
	Code    string
	Pattern *regexp.Regexp
	Note    string
	Match   func(line string) bool
}

func p(code, pattern, note string) patternRule {
	return patternRule{Code: code, Pattern: regexp.MustCompile(pattern), Note: note}
}

var reSetAssignVar = regexp.MustCompile(`(?i)set\s+"?([A-Za-z_][A-Za-z0-9_]*)"?=`)

// pBackrefTwice is the Go-regexp-compatible equivalent of
// `set\s+"?(VAR)"?=.*%\1%.*%\1%`, which RE2 cannot express directly since it
// has no backreference support. It matches a SET assignment whose captured
// variable name then appears (as %VAR%) at least twice more in the rest of
// the line.
func pBackrefTwice(code, note string) patternRule {
	return patternRule{
		Code: code,
		Note: note,
		Match: func(line string) bool {
			loc := reSetAssignVar.FindStringSubmatchIndex(line)
			if loc == nil {
				return false
			}
			varName := line[loc[2]:loc[3]]
			rest := strings.ToLower(line[loc[1]:])
			token := "%" + strings.ToLower(varName) + "%"
			first := strings.Index(rest, token)
			if first == -1 {
				return false
			}
			return strings.Contains(rest[first+len(token):], token)
		},
	}
}

// pUnless matches lines with the given prefix pattern where the remainder of
// the line (after the prefix match) does not also contain forbidden
// (case-insensitively). It is the Go-regexp-compatible equivalent of a
// `prefix(?!.*forbidden)` pattern, which RE2 cannot express directly since it
// has no lookahead support.
func pUnless(code, prefixPattern string, forbidden []string, note string) patternRule {
	prefix := regexp.MustCompile(prefixPattern)
	return patternRule{
		Code: code,
		Note: note,
		Match: func(line string) bool {
			loc := prefix.FindStringIndex(line)
			if loc == nil {
				return false
			}
			rest := strings.ToLower(line[loc[1]:])
			for _, f := range forbidden {
				if strings.Contains(rest, strings.ToLower(f)) {
					return false
				}
			}
			return true
		},
	}
}

var patternRules = []patternRule{
	p("SEC001", `(?i)set\s+/p\s+[^=]+=.*%.*%`, "user input flows into a command without validation"),
	p("SEC003", `(?i)del\s+["']?\*\.\*["']?(\s|$)`, "destructive wildcard delete without confirmation"),
	p("SEC003", `(?i)format\s+[a-z]:`, "FORMAT without confirmation"),
	p("SEC003", `(?i)rmdir\s+/s\s+/q\b`, "recursive quiet delete without confirmation"),
	p("SEC003", `(?i)\bshutdown\b`, "shutdown/reboot without confirmation"),
	p("SEC004", `(?i)reg\s+delete\s+.*\s+/f\b`, "forced registry deletion"),
	p("SEC005", `(?i)\breg\s+(add|delete)\s+hklm\b`, "registry write under HKLM may require elevation"),
	p("SEC005", `(?i)\bsc\s+(start|stop|config|create)\b`, "service control may require elevation"),
	p("SEC006", `[A-Za-z]:\\\\|[A-Za-z]:\\[^\\]`, "hardcoded absolute path may not exist on other systems"),
	p("SEC007", `(?i)c:\\temp\\|c:\\tmp\\`, "use %TEMP% instead of a hardcoded temp path"),
	p("SEC008", `(?i)\bpassword\s*=\s*\S+`, "hardcoded credential"),
	p("SEC008", `(?i)\bpwd\s*=\s*\S+`, "hardcoded credential"),
	p("SEC009", `(?i)powershell.*-executionpolicy\s+bypass`, "PowerShell execution-policy bypass"),
	p("SEC010", `(?i)echo.*password`, "ECHO may print a credential to the console or a log"),
	p("SEC011", `\.\.[\\/]`, "path traversal via '..' segment"),
	p("SEC012", `(?i)c:\\windows\\temp\\\w+\.(bat|cmd|tmp)\b`, "predictable temp-file name is a race-condition risk"),
	p("SEC013", `(?i)%[A-Za-z_][A-Za-z0-9_]*%.*\|\s*(cmd|powershell)\b`, "variable content piped directly into a shell"),
	p("SEC014", `(?i)\\\\[\w.-]+\\[\w$]+`, "UNC path operation with no elevation check"),
	p("SEC015", `(?i)%0\s*\|\s*%0`, "self-referential fork-bomb pattern"),
	p("SEC016", `(?i)drivers\\etc\\hosts`, "modifies the hosts file"),
	p("SEC017", `(?i)autorun\.inf`, "creates an autorun.inf file"),
	p("SEC018", `(?i)copy\s+%0\s+[a-z]:\\`, "copies itself to another drive"),
	p("SEC019", `(?i)netsh\s+advfirewall\s+set.*state\s+off`, "disables the firewall"),
	p("SEC019", `(?i)sc\s+(stop|config)\s+windefend`, "disables Windows Defender"),
	p("SEC020", `(?i)%temp%\\[\w.-]+\.exe`, "runs an executable staged in a temp directory"),
	p("SEC021", `(?i)start\s+[a-z]:\\[^"'][^<>|&]*\s[^"'<>|&]*\.exe`, "unquoted executable path containing a space"),
	p("SEC022", `(?i)(--password|--token|--api-key)[= ]\S+`, "secret passed as a plain command-line argument"),
	p("SEC023", `(?i)\b(\d{1,3}\.){3}\d{1,3}\b.*(curl|bitsadmin|certutil)`, "network call to a raw IP literal"),
	p("SEC024", `(?i)>\s*%0\b`, "script writes to its own source path"),
	p("P001", `(?i)if\s+exist\s+\S+\s+if\s+exist\s+\S+`, "repeated existence check for the same class of path"),
	p("P007", `(?i)(temp|tmp)\.(txt|log)\b`, "temp file name has no %RANDOM%-based uniqueness"),
	p("P009", `(?i)for\s+/f\s+["'][^"']*["']\s+%%\w+\s+in`, "FOR /F without 'tokens=*' in its options string"),
	pUnless("P010", `(?i)^\s*dir\s+`, []string{"/f"}, "DIR without /F on a potentially large directory"),
	pBackrefTwice("P012", "variable referenced twice in one string-building assignment"),
	pUnless("P013", `(?i)^\s*dir\s+`, []string{"/b"}, "DIR without /B produces verbose output"),
	p("P014", `(?i)>\s*nul\s+2>&1\s*>\s*nul`, "output redirected twice for no additional effect"),
	p("P016", `(?i)^\s*call\s+:[A-Za-z_]`, "CALL to a local label may be unnecessary overhead"),
	p("P017", `(?i)findstr\s+/[ci]*\s+"[^"]+"\s+.*&&\s*echo`, "FINDSTR used to test a fixed string; an IF comparison would do"),
	p("P019", `(?i)for\s+/[lf]\s+.*do\s+.*>>\s*\S+`, "per-iteration append reopens the output file every time"),
	p("P021", `(?i)set\s*/a\s+[A-Za-z_][A-Za-z0-9_]*\s*=\s*%[A-Za-z_][A-Za-z0-9_]*%\s*\+\s*["']`, "SET /A used where string concatenation was intended"),
	p("P022", `(?i)"[^"\s]+"(?:\s|$)`, "quoting a token with no spaces or special characters adds a needless parse step"),
	p("P025", `(?i)^\s*:\w+[\s\S]*?goto\s+\w+\s*$`, "polling loop with no delay between iterations"),
	p("W002", `(?i)^\s*(del|copy|move|xcopy|robocopy)\s+`, "no ERRORLEVEL check after an operation that can fail"),
	p("W003", `(?i)^\s*(del|copy|move|mkdir|rmdir)\s+`, "operation has no error handling"),
	p("W006", `(?i)\bpause\b`, "PAUSE left in a script intended for unattended use"),
	p("W007", `(?i)^\s*cd\s+[^&]*$`, "CD changes directory without checking it succeeded"),
	p("W008", `(?i)^\s*md\s+|^\s*mkdir\s+`, "MKDIR does not check whether the directory already exists"),
	pUnless("W009", `(?i)^\s*copy\s+`, []string{"/y"}, "COPY without /Y will prompt interactively on overwrite"),
	pUnless("W010", `(?i)^\s*del\s+`, []string{"/q"}, "DEL without /Q will prompt interactively"),
	pUnless("W011", `(?i)^\s*xcopy\s+`, []string{"/y"}, "XCOPY without /Y will prompt interactively"),
	p("W012", `(?i)%\*%`, "%*% is not valid; use %* to refer to all arguments"),
	p("W014", `(?i)^\s*goto\s*$`, "GOTO with no label target"),
	p("W015", `(?i)\bexit\s*$`, "EXIT with no explicit code leaves the previous ERRORLEVEL"),
	pUnless("W016", `(?i)^\s*rd\s+`, []string{"/s"}, "RD without /S on a non-empty directory will fail"),
	pUnless("W017", `(?i)^\s*taskkill\s+`, []string{"/f"}, "TASKKILL without /F may not terminate an unresponsive process"),
	p("W018", `\t`, "tab character in a line; mixed tabs and spaces render inconsistently"),
	p("W019", `(?i)%date%|%time%`, "locale-dependent %DATE%/%TIME% format used directly"),
	p("W020", `(?i)^\s*cls\b`, "CLS clears output that may be useful for debugging"),
	p("W022", `(?i)^\s*set\s+[A-Za-z_][A-Za-z0-9_]*\s*=\s*$`, "variable set to an empty value; confirm this is intentional"),
	p("W023", `(?i)\bassoc\b|\bftype\b`, "ASSOC/FTYPE changes machine-wide file associations"),
	pUnless("W025", `(?i)^\s*(del|copy|move|mkdir|rmdir)\s+`, []string{"2>", ">nul"}, "no error redirection on a command that can fail noisily"),
	p("W026", `(?i)^\s*net\s+use\b`, "NET USE without credential handling may prompt interactively"),
	p("W027", `(?i)^\s*%[A-Za-z_][A-Za-z0-9_]*%\s*$`, "line is a bare variable expansion used as a command"),
	p("W028", `(?i)\bexit\s*/b\s*$`, "EXIT /B with no explicit code"),
	pUnless("W029", `(?i)^\s*start\s+`, []string{"/wait"}, "START without /WAIT does not wait for the child process"),
	p("W030", `(?i)^\s*attrib\s+\+`, "ATTRIB changes file attributes with no corresponding reset"),
	p("W031", `(?i)^\s*icacls\b|^\s*cacls\b`, "ACL change has no corresponding restore"),
	p("W032", `(?i)^\s*schtasks\s+/create\b`, "scheduled task created with no corresponding cleanup"),
	p("W033", `(?i)^\s*wmic\b`, "WMIC output format is locale-dependent"),
	p("S005", `[A-Za-z]:(?:[^\\]|$)`, "drive letter not followed by a backslash"),
	p("S006", `(?i)\bgoto\s+eof\b`, "prefer 'GOTO :EOF' (with the colon) for clarity"),
	p("S008", `(?i)^\s*rem$`, "bare REM with no comment text"),
	p("S009", `(?i)^\s*::\s*$`, "bare '::' comment marker with no comment text"),
	p("S012", `(?i)^\s*echo\.\s*$`, "prefer 'echo.' consistently for blank output lines"),
	p("S013", `(?i)\b[A-Za-z]+\.(bat|cmd)\.(bat|cmd)\b`, "double script extension looks like a typo"),
	p("S014", `  +`, "multiple consecutive spaces between tokens"),
	p("S015", `(?i)^\s*if\s+"%[A-Za-z_0-9]+%"\s*==\s*""\s*goto`, "prefer 'IF NOT DEFINED VAR' over an empty-string comparison"),
	p("S016", `(?i)\bif\s+not\s+not\b`, "double negation in an IF condition"),
	p("S017", `(?i)^\s*@+\s*@+`, "redundant repeated '@' prefix"),
	p("S018", `(?i)%~[a-z0-9]*%`, "percent-tilde target closed with a trailing '%' is not valid syntax"),
	p("S019", `(?i)^\s*title\s*$`, "TITLE with no argument clears the window title"),
	p("S020", `^.*\^\s*$`, "line continuation; verify the joined command reads as intended"),
}

func runPatternRules(lc *LineContext) []Diagnostic {
	line := lc.Line.Text
	var out []Diagnostic
	for _, r := range patternRules {
		var matched bool
		if r.Match != nil {
			matched = r.Match(line)
		} else {
			matched = r.Pattern.MatchString(line)
		}
		if matched {
			out = append(out, diag(lc.Line.Index, r.Code, r.Note))
		}
	}
	return out
}

var rePathInvalidCharsDouble = regexp.MustCompile(`"([^"]*[<>|*?][^"]*)"`)
var rePathInvalidCharsSingle = regexp.MustCompile(`'([^']*[<>|*?][^']*)'`)

// checkInvalidPathSyntax implements E005: a quoted path argument that
// contains a character Windows never allows in a filename.
func checkInvalidPathSyntax(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	if rePathInvalidCharsDouble.MatchString(line) || rePathInvalidCharsSingle.MatchString(line) {
		return []Diagnostic{diag(lc.Line.Index, "E005", "quoted path contains an invalid character (<>|*?)")}
	}
	return nil
}

var reForLoopStart = regexp.MustCompile(`(?i)^for\s+`)

// checkForLoopMissingDo implements E010: a FOR statement with no DO clause
// never runs a body.
func checkForLoopMissingDo(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	if reForLoopStart.MatchString(line) && !strings.Contains(strings.ToLower(line), " do ") {
		return []Diagnostic{diag(lc.Line.Index, "E010", "FOR loop is missing the required DO keyword")}
	}
	return nil
}

var reHasPercentVar = regexp.MustCompile(`(?i)%[A-Z0-9_]`)
var reHasBangVar = regexp.MustCompile(`(?i)![A-Z0-9_]`)

// checkMismatchedExpansionDelimiters implements E011: an odd number of %
// or ! characters alongside what looks like a variable reference usually
// means one delimiter is missing its pair.
func checkMismatchedExpansionDelimiters(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	var out []Diagnostic
	if strings.Count(line, "%")%2 == 1 && reHasPercentVar.MatchString(line) {
		out = append(out, diag(lc.Line.Index, "E011", "variable reference may have a mismatched % delimiter"))
	}
	if strings.Count(line, "!")%2 == 1 && reHasBangVar.MatchString(line) {
		out = append(out, diag(lc.Line.Index, "E011", "delayed-expansion variable may have a mismatched ! delimiter"))
	}
	return out
}

// commonCommandTypos maps frequent misspellings of built-in commands to
// their correct form.
var commonCommandTypos = map[string]string{
	"iff": "if", "ecko": "echo", "ecoh": "echo", "forx": "for", "fro": "for",
	"goot": "goto", "sett": "set", "caal": "call", "exitt": "exit",
}

// checkCommonCommandTypo implements E013.
func checkCommonCommandTypo(lc *LineContext) []Diagnostic {
	fields := strings.Fields(lc.Line.Trimmed())
	if len(fields) == 0 {
		return nil
	}
	first := strings.ToLower(fields[0])
	if correct, ok := commonCommandTypos[first]; ok {
		return []Diagnostic{diag(lc.Line.Index, "E013", fmt.Sprintf("command %q looks like a typo for %q", first, correct))}
	}
	return nil
}

var reCallTarget = regexp.MustCompile(`(?i)^call\s+([^:\s]\S*)`)
var reCallTargetLooksExternal = regexp.MustCompile(`[\\/.:]|\.(bat|cmd|exe|com)$`)

// callBuiltinCommands are names CALL can invoke directly without a colon
// because they are programs/builtins, not internal labels.
var callBuiltinCommands = map[string]bool{
	"dir": true, "echo": true, "copy": true, "move": true, "del": true, "type": true,
	"find": true, "findstr": true, "sort": true, "more": true, "cls": true, "cd": true,
	"pushd": true, "popd": true, "mkdir": true, "rmdir": true, "attrib": true, "xcopy": true,
	"robocopy": true, "ping": true, "ipconfig": true, "netstat": true, "tasklist": true,
	"taskkill": true, "sc": true, "net": true, "reg": true, "wmic": true, "powershell": true,
	"timeout": true, "choice": true, "ver": true, "vol": true, "date": true, "time": true, "help": true,
}

// checkCallMissingColon implements E014: CALL to what looks like a local
// label name but without the leading colon.
func checkCallMissingColon(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	m := reCallTarget.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	target := m[1]
	lower := strings.ToLower(target)
	if reCallTargetLooksExternal.MatchString(lower) || callBuiltinCommands[lower] {
		return nil
	}
	return []Diagnostic{diag(lc.Line.Index, "E014", "CALL to label '"+target+"' should use a colon: CALL :"+target)}
}

var reGotoTarget = regexp.MustCompile(`(?i)^goto\s+(:?\S+)`)

// checkGotoEofMissingColon implements E015: GOTO EOF without the colon is
// a label lookup, not the special end-of-file jump.
func checkGotoEofMissingColon(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	m := reGotoTarget.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	if strings.EqualFold(m[1], "eof") {
		return []Diagnostic{diag(lc.Line.Index, "E015", "GOTO EOF should be GOTO :EOF; the colon is mandatory")}
	}
	return nil
}

var reParamModifierWrongContext = regexp.MustCompile(`%~[a-zA-Z]+([^0-9%\s][^%\s]*|[A-Z_][A-Z0-9_]*)%`)

// checkParameterModifierContext implements E025: a %~ modifier applied to
// something other than a batch parameter or a FOR metavariable.
func checkParameterModifierContext(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	if reParamModifierWrongContext.MatchString(line) {
		return []Diagnostic{diag(lc.Line.Index, "E025", "parameter modifier should only apply to a batch parameter (%1, %2, ...) or a FOR variable (%%i)")}
	}
	return nil
}

var reCdUNCPath = regexp.MustCompile(`(?i)^cd\s+\\\\[^\\]+\\`)

// checkUNCWorkingDirectory implements E027: CD cannot make a UNC share the
// current working directory.
func checkUNCWorkingDirectory(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	if reCdUNCPath.MatchString(line) {
		return []Diagnostic{diag(lc.Line.Index, "E027", "CD cannot target a UNC path as the working directory; use PUSHD/POPD instead")}
	}
	return nil
}

var reEmbeddedDoubleQuote = regexp.MustCompile(`["\s]""[^"]`)
var reTripleQuotedText = regexp.MustCompile(`"""[^"]*"""`)

// checkComplexQuoteEscaping implements E028: triple-quote or doubled-quote
// patterns outside the recognized """text""" convention.
func checkComplexQuoteEscaping(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	if !strings.Contains(line, `"""`) && !reEmbeddedDoubleQuote.MatchString(line) {
		return nil
	}
	if reTripleQuotedText.MatchString(line) {
		return nil
	}
	return []Diagnostic{diag(lc.Line.Index, "E028", "quote escaping looks malformed; check for a stray or doubled quote")}
}

var rePingLocalhostDelay = regexp.MustCompile(`(?i)ping.*-n\s+\d+.*localhost`)
var reChoiceDelayRedirect = regexp.MustCompile(`(?i)choice\s+/t\s+\d+.*>nul`)

// checkInefficientDelay implements P015: PING or CHOICE used purely to
// burn time, where TIMEOUT (Vista+) does the job directly.
func checkInefficientDelay(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	switch {
	case rePingLocalhostDelay.MatchString(line):
		return []Diagnostic{diag(lc.Line.Index, "P015", "using PING against localhost for a delay is inefficient; use TIMEOUT on Vista+")}
	case reChoiceDelayRedirect.MatchString(line):
		return []Diagnostic{diag(lc.Line.Index, "P015", "using CHOICE for a delay is inefficient; use TIMEOUT on Vista+")}
	}
	return nil
}

var reSetAssignValue = regexp.MustCompile(`(?i)^set\s+([A-Za-z0-9_]+)=(.+)`)

// checkUnsafeSetValue implements SEC002: an unquoted SET value can be
// split on spaces or reinterpreted by shell metacharacters.
func checkUnsafeSetValue(lc *LineContext) []Diagnostic {
	line := lc.Line.Trimmed()
	m := reSetAssignValue.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	value := strings.TrimSpace(m[2])
	if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		return nil
	}
	return []Diagnostic{diag(lc.Line.Index, "SEC002", "SET value is unquoted; quote it to avoid word-splitting or injection via spaces and special characters")}
}
