package query

import (
	"fmt"
	"math"
	"sort"
)

// Reduce functions operate on values gathered by the collect and freq
// primitives and run once per group, when the group is finalized.

// listNumbers extracts the numbers of a collected list in ascending order.
// Items kept by collect under IncludeNonNumeric that do not parse as numbers
// are skipped.
func listNumbers(fn string, v Value) ([]float64, error) {
	if v.Kind != KindList {
		return nil, fmt.Errorf("%s: expected collected list, got %s", fn, v.Kind)
	}
	nums := make([]float64, 0, len(v.List))
	for _, item := range v.List {
		if num, ok := item.AsNumber(); ok {
			nums = append(nums, num)
		}
	}
	sort.Float64s(nums)
	return nums, nil
}

// Median returns the middle value of sorted, or the mean of the two middle
// values for even lengths. Empty input gives NaN.
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Quantile interpolates linearly between order statistics at rank
// 1+(n-1)p. sorted must be in ascending order. Empty input gives NaN.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	rank := 1 + float64(n-1)*p
	lo := clampRank(math.Floor(rank), n)
	hi := clampRank(math.Ceil(rank), n)
	frac := rank - math.Floor(rank)
	return sorted[lo-1] + frac*(sorted[hi-1]-sorted[lo-1])
}

func clampRank(r float64, n int) int {
	switch {
	case r < 1:
		return 1
	case r > float64(n):
		return n
	default:
		return int(r)
	}
}

// RobustMean averages the values inside the Tukey fence
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. Empty or fully filtered input gives NaN.
func RobustMean(sorted []float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	lower, upper := q1-1.5*iqr, q3+1.5*iqr

	sum, count := 0.0, 0
	for _, v := range sorted {
		if v >= lower && v <= upper {
			sum += v
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// Mode returns the most frequent value. Numeric ties resolve to the median
// of the tied values; otherwise the smallest tied value in byte order wins.
// An empty table gives NaN.
func Mode(t *FreqTable) Value {
	if t == nil || t.Len() == 0 {
		return NaN()
	}

	best := 0
	for _, e := range t.counts {
		if e.count > best {
			best = e.count
		}
	}

	var tied []Value
	for _, k := range t.keys() {
		if e := t.counts[k]; e.count == best {
			tied = append(tied, e.value)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}

	nums := make([]float64, 0, len(tied))
	for _, v := range tied {
		num, ok := v.AsNumber()
		if !ok {
			return tied[0]
		}
		nums = append(nums, num)
	}
	sort.Float64s(nums)
	return NumberValue(Median(nums))
}

// MedianReduce implements reduce_median(list)
type MedianReduce struct{}

func (f *MedianReduce) Name() string  { return "reduce_median" }
func (f *MedianReduce) MinArity() int { return 1 }
func (f *MedianReduce) MaxArity() int { return 1 }
func (f *MedianReduce) Evaluate(args []Value) (Value, error) {
	nums, err := listNumbers("median", args[0])
	if err != nil {
		return NA, err
	}
	return NumberValue(Median(nums)), nil
}

// QuantileReduce implements reduce_quantile(p, list); p may be a number or
// a list of numbers, each in [0,1].
type QuantileReduce struct{}

func (f *QuantileReduce) Name() string  { return "reduce_quantile" }
func (f *QuantileReduce) MinArity() int { return 2 }
func (f *QuantileReduce) MaxArity() int { return 2 }
func (f *QuantileReduce) Evaluate(args []Value) (Value, error) {
	nums, err := listNumbers("quantile", args[1])
	if err != nil {
		return NA, err
	}

	if args[0].Kind == KindList {
		out := Value{Kind: KindList, List: make([]Value, 0, len(args[0].List))}
		for _, item := range args[0].List {
			p, err := quantileProbability(item)
			if err != nil {
				return NA, err
			}
			out.List = append(out.List, NumberValue(Quantile(nums, p)))
		}
		return out, nil
	}

	p, err := quantileProbability(args[0])
	if err != nil {
		return NA, err
	}
	return NumberValue(Quantile(nums, p)), nil
}

func quantileProbability(v Value) (float64, error) {
	p, err := valueToNumber(v)
	if err != nil {
		return 0, fmt.Errorf("quantile: probability: %w", err)
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("quantile: probability %s outside [0,1]", FormatNumber(p))
	}
	return p, nil
}

// ModeReduce implements reduce_mode(freq)
type ModeReduce struct{}

func (f *ModeReduce) Name() string  { return "reduce_mode" }
func (f *ModeReduce) MinArity() int { return 1 }
func (f *ModeReduce) MaxArity() int { return 1 }
func (f *ModeReduce) Evaluate(args []Value) (Value, error) {
	if args[0].Kind != KindFreq {
		return NA, fmt.Errorf("mode: expected frequency table, got %s", args[0].Kind)
	}
	return Mode(args[0].Freq), nil
}

// CountDistinctReduce implements reduce_count_distinct(freq)
type CountDistinctReduce struct{}

func (f *CountDistinctReduce) Name() string  { return "reduce_count_distinct" }
func (f *CountDistinctReduce) MinArity() int { return 1 }
func (f *CountDistinctReduce) MaxArity() int { return 1 }
func (f *CountDistinctReduce) Evaluate(args []Value) (Value, error) {
	if args[0].Kind != KindFreq {
		return NA, fmt.Errorf("count_distinct: expected frequency table, got %s", args[0].Kind)
	}
	return NumberValue(float64(args[0].Freq.Len())), nil
}

// RobustAvgReduce implements reduce_ravg(list)
type RobustAvgReduce struct{}

func (f *RobustAvgReduce) Name() string  { return "reduce_ravg" }
func (f *RobustAvgReduce) MinArity() int { return 1 }
func (f *RobustAvgReduce) MaxArity() int { return 1 }
func (f *RobustAvgReduce) Evaluate(args []Value) (Value, error) {
	nums, err := listNumbers("ravg", args[0])
	if err != nil {
		return NA, err
	}
	return NumberValue(RobustMean(nums)), nil
}
