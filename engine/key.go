package engine

import "strings"

// keySeparator joins key fields
const keySeparator = "\x00"

// groupKey concatenates the key fields of row. Equality is exact string
// equality: "1" and "1.0" are different keys.
func groupKey(row []string, idx []int) string {
	switch len(idx) {
	case 0:
		return ""
	case 1:
		return row[idx[0]]
	}

	var b strings.Builder
	for i, pos := range idx {
		if i > 0 {
			b.WriteString(keySeparator)
		}
		b.WriteString(row[pos])
	}
	return b.String()
}

// keyFields picks the key columns out of row
func keyFields(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, pos := range idx {
		out[i] = row[pos]
	}
	return out
}
