package lint

import (
	"regexp"
	"strings"
)

// LineKind is the classification a Line receives from C2.
type LineKind int

const (
	KindBlank LineKind = iota
	KindComment
	KindLabel
	KindCode
)

// Line is one decoded, terminator-stripped line plus its classification
// and suppression bookkeeping (spec.md §3).
type Line struct {
	Index              int // 1-based
	Text               string
	OriginalEnding     string
	Kind               LineKind
	LabelName          string
	Suppressions       map[string]bool // empty+SuppressAll==false means "no suppression"
	SuppressAll        bool
	InheritedSuppress  map[string]bool
	InheritedSuppressAll bool

	// pendingAll/pendingCodes stage a LINT:IGNORE directive (no "-LINE")
	// found on this comment line until classifyLines folds it into the
	// next non-blank line's Inherited* fields.
	pendingAll   bool
	pendingCodes map[string]bool
}

// Trimmed returns Text with leading and trailing whitespace removed, the
// form most rules key their pattern matching on.
func (l Line) Trimmed() string {
	return strings.TrimSpace(l.Text)
}

// IsSuppressed reports whether code should not be reported for this line,
// folding in both same-line and inherited next-line directives (§4.2, §8).
func (l Line) IsSuppressed(code string) bool {
	if l.SuppressAll || l.InheritedSuppressAll {
		return true
	}
	if l.Suppressions[code] {
		return true
	}
	return l.InheritedSuppress[code]
}

var (
	reLabel       = regexp.MustCompile(`^:([A-Za-z_][A-Za-z0-9_.-]*)`)
	reRem         = regexp.MustCompile(`(?i)^rem\b`)
	reSuppress    = regexp.MustCompile(`(?i)LINT:IGNORE(-LINE)?\s*([A-Za-z0-9, ]*)`)
)

// classifyLines implements C2 over the already-decoded, already-split
// lines: kind assignment, label-name extraction, and suppression-directive
// parsing (including the "applies to the next non-blank line" carry-over).
func classifyLines(raw []string, endings []string) []Line {
	lines := make([]Line, len(raw))
	var pendingNext map[string]bool
	pendingNextAll := false
	havePending := false

	for i, text := range raw {
		trimmed := strings.TrimLeft(text, " \t")
		line := Line{
			Index:          i + 1,
			Text:           text,
			OriginalEnding: endings[i],
		}

		classifyTarget := strings.TrimPrefix(trimmed, "@")

		switch {
		case strings.TrimSpace(trimmed) == "":
			line.Kind = KindBlank
		case strings.HasPrefix(trimmed, "::"):
			line.Kind = KindComment
		case reRem.MatchString(classifyTarget):
			line.Kind = KindComment
		default:
			if m := reLabel.FindStringSubmatch(trimmed); m != nil {
				line.Kind = KindLabel
				line.LabelName = m[1]
			} else {
				line.Kind = KindCode
			}
		}

		if line.Kind == KindComment {
			parseSuppressionDirective(classifyTarget, &line)
		} else if line.Kind == KindCode {
			// A LINT:IGNORE-LINE directive trailing a code line (e.g.
			// after "&") suppresses diagnostics on that same code line.
			// The next-line form only makes sense on a standalone comment
			// line, so it is not recognized here.
			if m := reSuppress.FindStringSubmatch(trimmed); m != nil && m[1] == "-LINE" {
				codes := parseCodeList(m[2])
				if len(codes) == 0 {
					line.SuppressAll = true
				} else {
					line.Suppressions = codes
				}
			}
		}

		// Carry forward a next-line directive from the previous comment,
		// but only onto the next *non-blank* line (§4.2).
		if havePending && line.Kind != KindBlank {
			line.InheritedSuppress = pendingNext
			line.InheritedSuppressAll = pendingNextAll
			havePending = false
			pendingNext = nil
			pendingNextAll = false
		}

		if line.pendingAll || line.pendingCodes != nil {
			pendingNext = line.pendingCodes
			pendingNextAll = line.pendingAll
			havePending = true
		}

		lines[i] = line
	}

	return lines
}

func parseSuppressionDirective(trimmed string, line *Line) {
	m := reSuppress.FindStringSubmatch(trimmed)
	if m == nil {
		return
	}
	sameLine := m[1] == "-LINE"
	codes := parseCodeList(m[2])

	if sameLine {
		if len(codes) == 0 {
			line.SuppressAll = true
		} else {
			line.Suppressions = codes
		}
		return
	}

	if len(codes) == 0 {
		line.pendingAll = true
	} else {
		line.pendingCodes = codes
	}
}

func parseCodeList(s string) map[string]bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out[part] = true
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
