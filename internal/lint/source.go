package lint

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// LineEnding identifies the dominant line terminator observed in a Script.
type LineEnding int

const (
	LineEndingLF LineEnding = iota
	LineEndingCRLF
	LineEndingCR
	LineEndingMixed
)

func (e LineEnding) String() string {
	switch e {
	case LineEndingCRLF:
		return "CRLF"
	case LineEndingCR:
		return "CR"
	case LineEndingMixed:
		return "Mixed"
	default:
		return "LF"
	}
}

// LoadError is the sentinel family returned by LoadScript/Lint for failures that
// never reach the rule engines (spec.md §7.1).
type LoadError struct {
	Path string
	Kind LoadErrorKind
	Err  error
}

type LoadErrorKind int

const (
	LoadErrorNotFound LoadErrorKind = iota
	LoadErrorTooLarge
	LoadErrorDecodeFailure
)

func (e *LoadError) Error() string {
	switch e.Kind {
	case LoadErrorNotFound:
		return fmt.Sprintf("blinter: file not found: %s", e.Path)
	case LoadErrorTooLarge:
		return fmt.Sprintf("blinter: file too large: %s", e.Path)
	case LoadErrorDecodeFailure:
		return fmt.Sprintf("blinter: could not decode %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("blinter: load error for %s", e.Path)
	}
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a LoadError of kind LoadErrorNotFound.
func IsNotFound(err error) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == LoadErrorNotFound
}

// DefaultMaxInputSize is the resource ceiling from spec.md §5: a file is
// read in full into memory once, capped at 10 MiB by default.
const DefaultMaxInputSize = 10 * 1024 * 1024

// Script is the immutable result of C1+C2: decoded, classified source.
type Script struct {
	Path        string
	Raw         []byte
	Encoding    string
	LineEnding  LineEnding
	Lines       []Line
}

// LoadScript reads path, detects its encoding and line-ending style, and
// classifies every line (C1 + C2). maxSize<=0 uses DefaultMaxInputSize.
func LoadScript(path string, maxSize int64) (*Script, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxInputSize
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Path: path, Kind: LoadErrorNotFound, Err: err}
		}
		return nil, &LoadError{Path: path, Kind: LoadErrorNotFound, Err: err}
	}
	if info.Size() > maxSize {
		return nil, &LoadError{Path: path, Kind: LoadErrorTooLarge}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Kind: LoadErrorNotFound, Err: err}
	}
	return NewScript(path, raw)
}

// NewScript decodes raw bytes already read into memory (used directly by
// tests and by the call-follower, which has already loaded its own bytes).
func NewScript(path string, raw []byte) (*Script, error) {
	text, encName, err := decode(raw)
	if err != nil {
		return nil, &LoadError{Path: path, Kind: LoadErrorDecodeFailure, Err: err}
	}

	ending, rawLines, endings := splitLines(text)
	lines := classifyLines(rawLines, endings)

	return &Script{
		Path:       path,
		Raw:        raw,
		Encoding:   encName,
		LineEnding: ending,
		Lines:      lines,
	}, nil
}

// decode implements the ordered detection procedure of spec.md §4.1:
// BOM match, then strict UTF-8, then UTF-16 heuristics, then CP1252/Latin-1.
func decode(raw []byte) (string, string, error) {
	if bom, name, enc := detectBOM(raw); enc != nil {
		text, err := enc.NewDecoder().Bytes(bytes.TrimPrefix(raw, bom))
		if err != nil {
			return "", "", err
		}
		return string(text), name, nil
	}

	if utf8.Valid(raw) {
		return string(raw), "UTF-8", nil
	}

	if looksUTF16(raw) {
		for _, cand := range []struct {
			name string
			enc  encoding.Encoding
		}{
			{"UTF-16LE", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
			{"UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
		} {
			if text, err := cand.enc.NewDecoder().Bytes(raw); err == nil {
				return string(text), cand.name, nil
			}
		}
	}

	for _, cand := range []struct {
		name string
		enc  encoding.Encoding
	}{
		{"CP1252", charmap.Windows1252},
		{"Latin-1", charmap.ISO8859_1},
	} {
		if text, err := cand.enc.NewDecoder().Bytes(raw); err == nil {
			return string(text), cand.name, nil
		}
	}

	return "", "", fmt.Errorf("no decoder accepted the input")
}

func detectBOM(raw []byte) ([]byte, string, encoding.Encoding) {
	type bomEntry struct {
		bom  []byte
		name string
		enc  encoding.Encoding
	}
	// Longer BOMs (UTF-32) must be checked before their UTF-16 prefixes.
	candidates := []bomEntry{
		{[]byte{0x00, 0x00, 0xFE, 0xFF}, "UTF-32BE", nil},
		{[]byte{0xFF, 0xFE, 0x00, 0x00}, "UTF-32LE", nil},
		{[]byte{0xEF, 0xBB, 0xBF}, "UTF-8", unicode.UTF8BOM},
		{[]byte{0xFE, 0xFF}, "UTF-16BE", unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)},
		{[]byte{0xFF, 0xFE}, "UTF-16LE", unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)},
	}
	for _, c := range candidates {
		if bytes.HasPrefix(raw, c.bom) {
			return c.bom, c.name, c.enc
		}
	}
	return nil, "", nil
}

// looksUTF16 is the heuristic from spec.md §4.1 step 3: an even byte count
// and a majority of ASCII bytes in one parity class (the low byte of each
// UTF-16 code unit for common Western text) suggests UTF-16 without a BOM.
func looksUTF16(raw []byte) bool {
	if len(raw) < 4 || len(raw)%2 != 0 {
		return false
	}
	evenASCII, oddASCII := 0, 0
	pairs := len(raw) / 2
	for i := 0; i < pairs; i++ {
		lo, hi := raw[2*i], raw[2*i+1]
		if hi == 0 && lo < 0x80 {
			evenASCII++
		}
		if lo == 0 && hi < 0x80 {
			oddASCII++
		}
	}
	threshold := pairs * 7 / 10
	return evenASCII >= threshold || oddASCII >= threshold
}

// splitLines breaks decoded text into lines on any of CRLF/LF/CR while
// recording each line's original terminator, and classifies the file's
// dominant LineEnding per spec.md §4.1.
func splitLines(text string) (LineEnding, []string, []string) {
	var rawLines []string
	var endings []string

	counts := map[string]int{"\r\n": 0, "\n": 0, "\r": 0}

	i := 0
	n := len(text)
	start := 0
	for i < n {
		c := text[i]
		if c == '\r' {
			if i+1 < n && text[i+1] == '\n' {
				rawLines = append(rawLines, text[start:i])
				endings = append(endings, "\r\n")
				counts["\r\n"]++
				i += 2
				start = i
				continue
			}
			rawLines = append(rawLines, text[start:i])
			endings = append(endings, "\r")
			counts["\r"]++
			i++
			start = i
			continue
		}
		if c == '\n' {
			rawLines = append(rawLines, text[start:i])
			endings = append(endings, "\n")
			counts["\n"]++
			i++
			start = i
			continue
		}
		i++
	}
	if start < n {
		rawLines = append(rawLines, text[start:n])
		endings = append(endings, "")
	} else if n == 0 {
		rawLines = append(rawLines, "")
		endings = append(endings, "")
	}

	return dominantEnding(counts), rawLines, endings
}

func dominantEnding(counts map[string]int) LineEnding {
	total := counts["\r\n"] + counts["\n"] + counts["\r"]
	if total == 0 {
		return LineEndingLF
	}

	best, bestName := -1, "\n"
	for name, n := range counts {
		if n > best {
			best, bestName = n, name
		}
	}

	nonDominant := total - best
	if nonDominant > 0 && float64(best)/float64(total) < 0.95 {
		return LineEndingMixed
	}

	switch bestName {
	case "\r\n":
		return LineEndingCRLF
	case "\r":
		return LineEndingCR
	default:
		return LineEndingLF
	}
}
