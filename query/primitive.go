package query

import (
	"math"
	"sort"
	"strings"
)

// Options configures how a program treats its input.
type Options struct {
	// IncludeNonNumeric lets non-numeric values take part in count, last,
	// collect and freq. By default only numbers qualify.
	IncludeNonNumeric bool

	// Unique requests one output row per group key. Row-dependent
	// expressions are rejected under this option.
	Unique bool
}

// Primitive is an incremental accumulator: an initial value plus an update
// applied once per input row. Update must not fail; values that do not
// qualify leave the accumulator unchanged.
type Primitive interface {
	// Name returns the primitive name as written in expressions
	Name() string
	// Kind returns the kind of value held in the accumulator slot
	Kind() Kind
	// Init returns a fresh initial value
	Init() Value
	// Update folds x into acc and returns the new accumulator value
	Update(acc, x Value, opts Options) Value
}

// qualifies reports whether x takes part in an update under opts. Blank
// fields never qualify.
func qualifies(x Value, opts Options) bool {
	switch x.Kind {
	case KindNumber:
		return true
	case KindString:
		return opts.IncludeNonNumeric && strings.TrimSpace(x.Str) != ""
	default:
		return false
	}
}

// MinPrim keeps the smallest numeric value
type MinPrim struct{}

func (p *MinPrim) Name() string { return "min" }
func (p *MinPrim) Kind() Kind   { return KindNumber }
func (p *MinPrim) Init() Value  { return NumberValue(math.Inf(1)) }
func (p *MinPrim) Update(acc, x Value, opts Options) Value {
	if x.Kind == KindNumber && x.Num < acc.Num {
		return x
	}
	return acc
}

// MaxPrim keeps the largest numeric value
type MaxPrim struct{}

func (p *MaxPrim) Name() string { return "max" }
func (p *MaxPrim) Kind() Kind   { return KindNumber }
func (p *MaxPrim) Init() Value  { return NumberValue(math.Inf(-1)) }
func (p *MaxPrim) Update(acc, x Value, opts Options) Value {
	if x.Kind == KindNumber && x.Num > acc.Num {
		return x
	}
	return acc
}

// SumPrim adds numeric values
type SumPrim struct{}

func (p *SumPrim) Name() string { return "sum" }
func (p *SumPrim) Kind() Kind   { return KindNumber }
func (p *SumPrim) Init() Value  { return NumberValue(0) }
func (p *SumPrim) Update(acc, x Value, opts Options) Value {
	if x.Kind == KindNumber {
		return NumberValue(acc.Num + x.Num)
	}
	return acc
}

// CountPrim counts qualifying values
type CountPrim struct{}

func (p *CountPrim) Name() string { return "count" }
func (p *CountPrim) Kind() Kind   { return KindNumber }
func (p *CountPrim) Init() Value  { return NumberValue(0) }
func (p *CountPrim) Update(acc, x Value, opts Options) Value {
	if qualifies(x, opts) {
		return NumberValue(acc.Num + 1)
	}
	return acc
}

// FirstPrim captures the first non-empty value, numeric or not, whatever
// the options say.
type FirstPrim struct{}

func (p *FirstPrim) Name() string { return "first" }
func (p *FirstPrim) Kind() Kind   { return KindString }
func (p *FirstPrim) Init() Value  { return NA }
func (p *FirstPrim) Update(acc, x Value, opts Options) Value {
	if acc.Kind != KindNA {
		return acc
	}
	switch x.Kind {
	case KindNumber:
		return x
	case KindString:
		if strings.TrimSpace(x.Str) != "" {
			return x
		}
	}
	return acc
}

// LastPrim keeps the most recent qualifying value
type LastPrim struct{}

func (p *LastPrim) Name() string { return "last" }
func (p *LastPrim) Kind() Kind   { return KindString }
func (p *LastPrim) Init() Value  { return NA }
func (p *LastPrim) Update(acc, x Value, opts Options) Value {
	if qualifies(x, opts) {
		return x
	}
	return acc
}

// CollectPrim appends qualifying values to a list
type CollectPrim struct{}

func (p *CollectPrim) Name() string { return "collect" }
func (p *CollectPrim) Kind() Kind   { return KindList }
func (p *CollectPrim) Init() Value  { return Value{Kind: KindList} }
func (p *CollectPrim) Update(acc, x Value, opts Options) Value {
	if qualifies(x, opts) {
		acc.List = append(acc.List, x)
	}
	return acc
}

// FreqPrim counts occurrences of each qualifying value
type FreqPrim struct{}

func (p *FreqPrim) Name() string { return "freq" }
func (p *FreqPrim) Kind() Kind   { return KindFreq }
func (p *FreqPrim) Init() Value  { return Value{Kind: KindFreq, Freq: NewFreqTable()} }
func (p *FreqPrim) Update(acc, x Value, opts Options) Value {
	if qualifies(x, opts) {
		acc.Freq.Add(x)
	}
	return acc
}

// primitives is the fixed catalogue of accumulators
var primitives = map[string]Primitive{}

func init() {
	for _, p := range []Primitive{
		&MinPrim{},
		&MaxPrim{},
		&SumPrim{},
		&CountPrim{},
		&FirstPrim{},
		&LastPrim{},
		&CollectPrim{},
		&FreqPrim{},
	} {
		primitives[p.Name()] = p
	}
}

// LookupPrimitive returns the primitive registered under name
func LookupPrimitive(name string) (Primitive, bool) {
	p, ok := primitives[strings.ToLower(name)]
	return p, ok
}

// PrimitiveNames returns the primitive names in sorted order
func PrimitiveNames() []string {
	names := make([]string, 0, len(primitives))
	for name := range primitives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
