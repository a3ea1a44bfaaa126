package lint

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lintText(t *testing.T, text string, opts Options) []Diagnostic {
	t.Helper()
	script, err := NewScript("test.bat", []byte(text))
	require.NoError(t, err)
	diags, err := LintScript(script, opts)
	require.NoError(t, err)
	return diags
}

func hasCode(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.RuleCode == code {
			return true
		}
	}
	return false
}

func TestLintScriptIsDeterministic(t *testing.T) {
	text := "@echo off\nset FOO=bar\necho %FOO%\nif %UNSET%==1 goto done\n:done\nexit /b 0\n"
	opts := DefaultOptions()

	first := lintText(t, text, opts)
	second := lintText(t, text, opts)

	assert.Equal(t, first, second, "linting the same script twice must produce identical output")
}

func TestLintScriptIsIdempotentOnDiagnosticOrder(t *testing.T) {
	text := "set A=1\nset B=2\nif \"%A%\"==\"1\" goto skip\n:skip\n"
	diags := lintText(t, text, DefaultOptions())

	for i := 1; i < len(diags); i++ {
		prev, cur := diags[i-1], diags[i]
		if prev.LineNumber != cur.LineNumber {
			assert.LessOrEqual(t, prev.LineNumber, cur.LineNumber, "diagnostics must be sorted by line ascending")
			continue
		}
		assert.GreaterOrEqual(t, prev.Rule().Severity.uiRank(), cur.Rule().Severity.uiRank(),
			"same-line diagnostics must be sorted by UI severity rank descending")
	}
}

func TestSuppressSameLineHidesDiagnostic(t *testing.T) {
	text := "echo off & rem LINT:IGNORE-LINE S002\necho off\n"
	diags := lintText(t, text, DefaultOptions())

	var s002Lines []int
	for _, d := range diags {
		if d.RuleCode == "S002" {
			s002Lines = append(s002Lines, d.LineNumber)
		}
	}
	assert.NotContains(t, s002Lines, 1, "S002 on the suppressed line must not appear")
	assert.Contains(t, s002Lines, 2, "the second, unsuppressed line still reports")
}

func TestSuppressNextLineAppliesOnlyToNextNonBlankLine(t *testing.T) {
	text := "rem LINT:IGNORE S002\n\necho off\necho off\n"
	diags := lintText(t, text, DefaultOptions())

	var s002Lines []int
	for _, d := range diags {
		if d.RuleCode == "S002" {
			s002Lines = append(s002Lines, d.LineNumber)
		}
	}
	assert.NotContains(t, s002Lines, 3, "the directive skips the blank line and suppresses the next non-blank one")
	assert.Contains(t, s002Lines, 4, "only the targeted line is suppressed, later lines still report")
}

func TestParenBalanceReportsUnmatchedClose(t *testing.T) {
	text := "echo hi)\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E001"))
}

func TestParenBalanceReportsUnclosedAtEOF(t *testing.T) {
	text := "if (1==1 (\necho hi\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E001"))
}

func TestUndefinedGotoTargetReportsE002(t *testing.T) {
	text := "goto nowhere\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E002"))
}

func TestGotoEOFIsNeverUndefined(t *testing.T) {
	text := "goto :eof\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "E002"))
}

func TestUnreachableCodeAfterExit(t *testing.T) {
	text := "exit /b 0\necho never runs\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E008"))
}

func TestLabelResetsReachability(t *testing.T) {
	text := "exit /b 0\n:after\necho reachable\n"
	diags := lintText(t, text, DefaultOptions())
	for _, d := range diags {
		if d.RuleCode == "E008" {
			assert.NotEqual(t, 3, d.LineNumber, "a label resets reachability for the lines that follow it")
		}
	}
}

func TestUnmatchedEndlocalReportsP005(t *testing.T) {
	text := "endlocal\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "P005"))
}

func TestSetlocalNeverClosedReportsP006NotP003(t *testing.T) {
	text := "setlocal\necho hi\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "P006"), "a SETLOCAL left open at EOF is P006, regardless of SET usage")
	assert.False(t, hasCode(diags, "P003"), "P006 takes priority over P003 for a scope that was never closed")
}

func TestBalancedSetlocalWithNoSetCommandReportsP003(t *testing.T) {
	text := "setlocal\necho hi\nendlocal\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "P003"), "the scope closed cleanly but no SET command ever ran")
	assert.False(t, hasCode(diags, "P005"))
	assert.False(t, hasCode(diags, "P006"))
}

func TestBalancedSetlocalWithSetCommandReportsNeitherP003NorP006(t *testing.T) {
	text := "setlocal\nset FOO=bar\necho %FOO%\nendlocal\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "P003"))
	assert.False(t, hasCode(diags, "P005"))
	assert.False(t, hasCode(diags, "P006"))
}

func TestOpenSetlocalBeforeExitReportsP006(t *testing.T) {
	text := "@echo off\nsetlocal\nexit /b 0\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "P006"))
	assert.False(t, hasCode(diags, "P003"), "spec scenario 4: no SET anywhere, but P006 preempts P003 for the never-closed scope")

	var atLineTwo []string
	for _, d := range diags {
		if d.LineNumber == 2 {
			atLineTwo = append(atLineTwo, d.RuleCode)
		}
	}
	assert.Equal(t, []string{"P006"}, atLineTwo)
}

func TestDelayedExpansionEnabledButUnusedReportsP004AndP026(t *testing.T) {
	text := "setlocal enabledelayedexpansion\nset FOO=bar\necho %FOO%\nendlocal\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "P004"))
	assert.True(t, hasCode(diags, "P026"))
}

func TestDelayedExpansionEnabledAndReferencedReportsNeitherP004NorP026(t *testing.T) {
	text := "setlocal enabledelayedexpansion\nset FOO=bar\necho !FOO!\nendlocal\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "P004"))
	assert.False(t, hasCode(diags, "P026"))
}

func TestBangVariableWithoutDelayedExpansionReportsP008(t *testing.T) {
	text := "set FOO=bar\necho !FOO!\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "P008"))
}

func TestBangVariableInsideDelayedExpansionScopeDoesNotReportP008(t *testing.T) {
	text := "setlocal enabledelayedexpansion\nset FOO=bar\necho !FOO!\nendlocal\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "P008"))
}

func TestMinSeverityFiltersLowerRanks(t *testing.T) {
	text := "echo off   \n" // trailing whitespace triggers S004 (Style)
	sev := SeverityError
	opts := DefaultOptions()
	opts.MinSeverity = &sev

	diags := lintText(t, text, opts)
	assert.False(t, hasCode(diags, "S004"), "Style severity is below the Error floor and must be dropped")
}

func TestDisabledRuleNeverAppears(t *testing.T) {
	text := "echo off   \n"
	opts := DefaultOptions()
	opts.DisabledRules = map[string]bool{"S004": true}

	diags := lintText(t, text, opts)
	assert.False(t, hasCode(diags, "S004"))
}

func TestEnabledRulesAllowlistDropsEverythingElse(t *testing.T) {
	text := "echo off   \n:nowhere_else\ngoto missing\n"
	opts := DefaultOptions()
	opts.EnabledRules = map[string]bool{"S004": true}

	diags := lintText(t, text, opts)
	for _, d := range diags {
		assert.Equal(t, "S004", d.RuleCode)
	}
}

func TestDeprecatedCommandListFlagsWMIC(t *testing.T) {
	text := "wmic cpu get name\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "W024"))
}

func TestXcopyIsNotDeprecated(t *testing.T) {
	text := "xcopy a b /y\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "W024"), "XCOPY is explicitly not on the deprecated list")
}

func TestRemovedCommandListFlagsCaspol(t *testing.T) {
	text := "caspol -m -ag 1\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E034"))
}

func TestEmptyFileProducesNoDiagnostics(t *testing.T) {
	diags := lintText(t, "", DefaultOptions())
	assert.Empty(t, diags)
}

func TestOversizedInputReturnsLoadError(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/big.bat"
	require.NoError(t, os.WriteFile(path, []byte("echo hi\n"), 0o644))

	_, err := LoadScript(path, 2)
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, LoadErrorTooLarge, le.Kind)
}

func TestMissingFileReturnsNotFoundLoadError(t *testing.T) {
	_, err := LoadScript("/nonexistent/path/does-not-exist.bat", 0)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestConcurrentLintIsIndependent(t *testing.T) {
	opts := DefaultOptions()
	var wg sync.WaitGroup
	results := make([][]Diagnostic, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			text := fmt.Sprintf("@echo off\nset VAR%d=%d\necho %%VAR%d%%\n", idx, idx, idx)
			results[idx] = lintText(t, text, opts)
		}(i)
	}
	wg.Wait()

	for i, diags := range results {
		for _, d := range diags {
			assert.NotContains(t, d.ContextNote, fmt.Sprintf("VAR%d", (i+1)%20),
				"one goroutine's diagnostics must never reference another's variable name")
		}
	}
}

func TestWellFormedSubstringOperationDoesNotReportE021(t *testing.T) {
	text := "echo %FOO:~1,2%\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "E021"))
}

func TestCommandCasingMismatchReportsS003(t *testing.T) {
	text := "ECHO hi\necho bye\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "S003"))
}

func TestConsistentCommandCasingDoesNotReportS003(t *testing.T) {
	text := "echo hi\necho bye\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "S003"))
}

func TestRedundantNestedParensReportsS028(t *testing.T) {
	text := "set /a x=((1+2))\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "S028"))
}

func TestRedundantNestedParensCarriesStyleSeverity(t *testing.T) {
	text := "set /a x=((1+2))\n"
	diags := lintText(t, text, DefaultOptions())
	for _, d := range diags {
		if d.RuleCode == "S028" {
			assert.Equal(t, SeverityStyle, d.Rule().Severity, "S028 must resolve through the catalog, not the zero-value Rule")
			assert.NotEmpty(t, d.Rule().Name)
		}
	}
}

func TestInvalidPathCharacterReportsE005(t *testing.T) {
	text := "echo 'C:\\bad<name>.txt'\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E005"))
}

func TestForLoopMissingDoReportsE010(t *testing.T) {
	text := "for %%x in (1 2 3) echo %%x\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E010"))
}

func TestForLoopWithDoDoesNotReportE010(t *testing.T) {
	text := "for %%x in (1 2 3) do echo %%x\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "E010"))
}

func TestOddPercentDelimiterReportsE011(t *testing.T) {
	text := "echo %FOO\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E011"))
}

func TestCommonCommandTypoReportsE013(t *testing.T) {
	text := "sett FOO=1\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E013"))
}

func TestCallToLocalLabelWithoutColonReportsE014(t *testing.T) {
	text := "call dostuff\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E014"))
}

func TestCallToBuiltinDoesNotReportE014(t *testing.T) {
	text := "call findstr foo\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "E014"))
}

func TestGotoEofWithoutColonReportsE015(t *testing.T) {
	text := "goto eof\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E015"))
}

func TestGotoEofWithColonDoesNotReportE015(t *testing.T) {
	text := "goto :eof\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "E015"))
}

func TestParameterModifierOnNonParameterReportsE025(t *testing.T) {
	text := "echo %~fMYVAR%\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E025"))
}

func TestUNCWorkingDirectoryReportsE027(t *testing.T) {
	text := "cd \\\\server\\share\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E027"))
}

func TestComplexQuoteEscapingReportsE028(t *testing.T) {
	text := `echo a ""b` + "\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "E028"))
}

func TestRecommendedTripleQuoteFormDoesNotReportE028(t *testing.T) {
	text := `echo """text"""` + "\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "E028"))
}

func TestPingLocalhostDelayReportsP015(t *testing.T) {
	text := "ping -n 5 localhost\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "P015"))
}

func TestUnquotedSetValueReportsSEC002(t *testing.T) {
	text := "set VALUE=hello world\n"
	diags := lintText(t, text, DefaultOptions())
	assert.True(t, hasCode(diags, "SEC002"))
}

func TestQuotedSetValueDoesNotReportSEC002(t *testing.T) {
	text := `set VALUE="hello world"` + "\n"
	diags := lintText(t, text, DefaultOptions())
	assert.False(t, hasCode(diags, "SEC002"))
}

func TestDiagnosticDedupeDropsIdenticalLineAndCode(t *testing.T) {
	in := []Diagnostic{
		{LineNumber: 1, RuleCode: "S004", ContextNote: "a"},
		{LineNumber: 1, RuleCode: "S004", ContextNote: "b"},
	}
	out := dedupeDiagnostics(in)
	assert.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ContextNote, "the first occurrence's note is kept")
}
