package query

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindNA     Kind = iota // missing value ("NA")
	KindNumber             // float64
	KindString             // opaque string
	KindList               // collected values, in input order
	KindFreq               // frequency table
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNA:
		return "NA"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindFreq:
		return "freq"
	default:
		return "unknown"
	}
}

// Value is the tagged variant evaluated by compiled programs and stored in
// accumulator slots.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	List []Value
	Freq *FreqTable
}

// NA is the missing-value sentinel
var NA = Value{Kind: KindNA}

// NumberValue returns a numeric Value
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// StringValue returns a string Value
func StringValue(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// NaN returns the not-a-number Value
func NaN() Value {
	return NumberValue(math.NaN())
}

// ParseNumber reports whether s is a number. Surrounding spaces are ignored;
// anything strconv.ParseFloat rejects is not a number.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// FieldValue interprets a raw field: numbers become KindNumber, everything
// else stays an opaque string.
func FieldValue(s string) Value {
	if f, ok := ParseNumber(s); ok {
		return NumberValue(f)
	}
	return StringValue(s)
}

// AsNumber converts v to a float64 if possible
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		return ParseNumber(v.Str)
	default:
		return 0, false
	}
}

// String renders v the way it appears in output rows
func (v Value) String() string {
	switch v.Kind {
	case KindNA:
		return "NA"
	case KindNumber:
		return FormatNumber(v.Num)
	case KindString:
		return v.Str
	case KindList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = item.String()
		}
		return strings.Join(parts, ";")
	case KindFreq:
		if v.Freq == nil {
			return ""
		}
		return v.Freq.String()
	default:
		return ""
	}
}

// FormatNumber renders integral values without a fraction and everything else
// in the shortest form that round-trips.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e15:
		return strconv.FormatInt(int64(f), 10)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// FreqTable counts occurrences of values. Keys are the rendered form of the
// value, so "1" and "1.0" land in the same bucket.
type FreqTable struct {
	counts map[string]*freqEntry
}

type freqEntry struct {
	value Value
	count int
}

// NewFreqTable creates an empty frequency table
func NewFreqTable() *FreqTable {
	return &FreqTable{counts: make(map[string]*freqEntry)}
}

// Add increments the count for v
func (t *FreqTable) Add(v Value) {
	key := v.String()
	if e, ok := t.counts[key]; ok {
		e.count++
		return
	}
	t.counts[key] = &freqEntry{value: v, count: 1}
}

// Len returns the number of distinct values
func (t *FreqTable) Len() int {
	return len(t.counts)
}

// keys returns the table keys in ascending byte order
func (t *FreqTable) keys() []string {
	keys := make([]string, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders value:count pairs in ascending value order
func (t *FreqTable) String() string {
	keys := t.keys()
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ":" + strconv.Itoa(t.counts[k].count)
	}
	return strings.Join(parts, ";")
}
