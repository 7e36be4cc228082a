package reader

import "strings"

// candidateDelimiters in tie-breaking order
var candidateDelimiters = []rune{'\t', ',', ';', '|'}

// DefaultDelimiter is used when a header line contains no candidate
const DefaultDelimiter = ','

// DetectDelimiter picks the most frequent of tab, comma, semicolon and pipe
// in line. Ties go to the earlier candidate, so tab wins; a line with none
// of them gives DefaultDelimiter.
func DetectDelimiter(line string) rune {
	best, bestCount := DefaultDelimiter, 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// ParseDelimiter converts a user-supplied delimiter. Besides single
// characters it accepts "tab", "\t", "comma", "semicolon", "pipe" and
// "space".
func ParseDelimiter(s string) (rune, bool) {
	switch strings.ToLower(s) {
	case "":
		return 0, true
	case "tab", `\t`, "\t":
		return '\t', true
	case "comma":
		return ',', true
	case "semicolon":
		return ';', true
	case "pipe":
		return '|', true
	case "space":
		return ' ', true
	}

	r := []rune(s)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, false
	}
	return r[0], true
}
