// internal/align/align.go
//
// Gap alignment for fill-in-the-blank exercises.
// Responsibilities:
//   - Split a template on gap markers (runs of 3+ underscores) into literal parts.
//   - Recover, from the fully written answer, the word that fills each gap.
//
// Notes:
//   - Matching is a single left-to-right scan, case-insensitive, no backtracking.
//   - Literal parts are matched with their surrounding blanks; a part that only
//     matches once trimmed must still sit on word boundaries.
//   - A literal part that occurs more than once in the answer matches its FIRST
//     occurrence after the cursor.
//   - A part that cannot be found leaves the affected gap with an empty target;
//     callers treat "" as unfillable.
package align

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// gapMarker matches a blank: three or more underscores.
	gapMarker = regexp.MustCompile(`_{3,}`)

	// listPrefix matches a leading numeric list prefix such as "1. " or "12.".
	listPrefix = regexp.MustCompile(`^\s*\d+\.\s*`)
)

// trailingPunct is stripped from the right side of a recovered word.
const trailingPunct = `.,!?;:"'()[]{}…`

// StripListPrefix removes a leading "<digits>. " prefix, if present.
func StripListPrefix(s string) string {
	return listPrefix.ReplaceAllString(s, "")
}

// Parts splits template into its literal segments. A template with n gaps
// always yields n+1 parts (possibly empty at either end).
func Parts(template string) []string {
	return gapMarker.Split(StripListPrefix(template), -1)
}

// CountGaps reports how many gap markers template contains.
func CountGaps(template string) int {
	return len(gapMarker.FindAllStringIndex(StripListPrefix(template), -1))
}

// Align returns the ordered words filling each gap of template, recovered from answer.
// The result always has exactly CountGaps(template) entries.
func Align(template, answer string) []string {
	parts := Parts(template)
	n := len(parts) - 1
	words := make([]string, n)
	if n == 0 {
		return words
	}

	text := StripListPrefix(answer)
	cursor := 0

	for i, part := range parts {
		needle := strings.TrimSpace(part)
		if needle == "" {
			// A whitespace-only part between two gaps separates them at the
			// next blank in the answer.
			if part == "" || i == 0 || i == n {
				continue
			}
			if at := nextBlank(text, cursor); at >= 0 {
				words[i-1] = cleanWord(text[cursor:at])
				cursor = at
			}
			continue
		}
		// The part keeps its surrounding blanks so a short literal such as
		// " a " cannot match inside the word that fills the previous gap.
		at, size := indexFold(text[cursor:], part), len(part)
		if at < 0 {
			at, size = indexWord(text[cursor:], needle), len(needle)
		}
		if at < 0 {
			// Authoring mismatch: the gap before this part stays empty and the
			// cursor does not move, so later parts still get a chance to match.
			continue
		}
		at += cursor
		if i > 0 {
			words[i-1] = cleanWord(text[cursor:at])
		}
		cursor = at + size
	}

	// Whatever follows the last literal part fills the final gap.
	if strings.TrimSpace(parts[n]) == "" {
		words[n-1] = cleanWord(text[cursor:])
	}
	return words
}

// indexFold is a case-insensitive strings.Index returning a byte offset into s.
func indexFold(s, substr string) int {
	for i := range s {
		if len(s)-i < len(substr) {
			break
		}
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

// indexWord is indexFold restricted to matches that do not start or end in the
// middle of a word. It covers answers whose spacing differs from the template,
// e.g. a literal at the very start or end of the text.
func indexWord(s, substr string) int {
	for from := 0; from <= len(s); {
		at := indexFold(s[from:], substr)
		if at < 0 {
			return -1
		}
		at += from
		if wordEdge(s, at, substr) {
			return at
		}
		_, size := utf8.DecodeRuneInString(s[at:])
		from = at + size
	}
	return -1
}

// wordEdge reports whether substr found at s[at:] is not glued to a
// neighbouring letter or digit.
func wordEdge(s string, at int, substr string) bool {
	first, _ := utf8.DecodeRuneInString(substr)
	if isWordRune(first) && at > 0 {
		if prev, _ := utf8.DecodeLastRuneInString(s[:at]); isWordRune(prev) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(substr)
	end := at + len(substr)
	if isWordRune(last) && end < len(s) {
		if next, _ := utf8.DecodeRuneInString(s[end:]); isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\''
}

// nextBlank returns the offset of the first space or tab after the word that
// starts at from (leading blanks skipped), or -1.
func nextBlank(s string, from int) int {
	rest := s[from:]
	lead := len(rest) - len(strings.TrimLeft(rest, " \t"))
	sp := strings.IndexAny(rest[lead:], " \t")
	if sp < 0 {
		return -1
	}
	return from + lead + sp
}

// cleanWord trims whitespace and trailing punctuation from a recovered fragment.
func cleanWord(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, trailingPunct)
	return strings.TrimSpace(s)
}
