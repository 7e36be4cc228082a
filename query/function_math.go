package query

import (
	"fmt"
	"math"
)

// Math Functions

// AbsFunc returns the absolute value of a number
type AbsFunc struct{}

func (f *AbsFunc) Name() string  { return "abs" }
func (f *AbsFunc) MinArity() int { return 1 }
func (f *AbsFunc) MaxArity() int { return 1 }
func (f *AbsFunc) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("abs: %w", err)
	}
	return NumberValue(math.Abs(num)), nil
}

// SqrtFunc returns the square root
type SqrtFunc struct{}

func (f *SqrtFunc) Name() string  { return "sqrt" }
func (f *SqrtFunc) MinArity() int { return 1 }
func (f *SqrtFunc) MaxArity() int { return 1 }
func (f *SqrtFunc) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("sqrt: %w", err)
	}
	if num < 0 {
		return NA, fmt.Errorf("sqrt: negative number")
	}
	return NumberValue(math.Sqrt(num)), nil
}

// PowFunc returns x raised to the power of y
type PowFunc struct{}

func (f *PowFunc) Name() string  { return "pow" }
func (f *PowFunc) MinArity() int { return 2 }
func (f *PowFunc) MaxArity() int { return 2 }
func (f *PowFunc) Evaluate(args []Value) (Value, error) {
	base, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("pow: base: %w", err)
	}
	exponent, err := valueToNumber(args[1])
	if err != nil {
		return NA, fmt.Errorf("pow: exponent: %w", err)
	}
	return NumberValue(math.Pow(base, exponent)), nil
}

// ExpFunc returns e**x
type ExpFunc struct{}

func (f *ExpFunc) Name() string  { return "exp" }
func (f *ExpFunc) MinArity() int { return 1 }
func (f *ExpFunc) MaxArity() int { return 1 }
func (f *ExpFunc) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("exp: %w", err)
	}
	return NumberValue(math.Exp(num)), nil
}

// LogFunc returns the natural logarithm
type LogFunc struct{}

func (f *LogFunc) Name() string  { return "log" }
func (f *LogFunc) MinArity() int { return 1 }
func (f *LogFunc) MaxArity() int { return 1 }
func (f *LogFunc) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("log: %w", err)
	}
	if num <= 0 {
		return NA, fmt.Errorf("log: non-positive number")
	}
	return NumberValue(math.Log(num)), nil
}

// Log10Func returns the base-10 logarithm
type Log10Func struct{}

func (f *Log10Func) Name() string  { return "log10" }
func (f *Log10Func) MinArity() int { return 1 }
func (f *Log10Func) MaxArity() int { return 1 }
func (f *Log10Func) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("log10: %w", err)
	}
	if num <= 0 {
		return NA, fmt.Errorf("log10: non-positive number")
	}
	return NumberValue(math.Log10(num)), nil
}

// RoundFunc rounds a number to the specified number of decimal places
type RoundFunc struct{}

func (f *RoundFunc) Name() string  { return "round" }
func (f *RoundFunc) MinArity() int { return 1 }
func (f *RoundFunc) MaxArity() int { return 2 }
func (f *RoundFunc) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("round: %w", err)
	}

	// Default to 0 decimal places
	decimals := 0.0
	if len(args) == 2 {
		decimals, err = valueToNumber(args[1])
		if err != nil {
			return NA, fmt.Errorf("round: decimals argument: %w", err)
		}
	}

	multiplier := math.Pow(10, decimals)
	return NumberValue(math.Round(num*multiplier) / multiplier), nil
}

// FloorFunc returns the largest integer less than or equal to a number
type FloorFunc struct{}

func (f *FloorFunc) Name() string  { return "floor" }
func (f *FloorFunc) MinArity() int { return 1 }
func (f *FloorFunc) MaxArity() int { return 1 }
func (f *FloorFunc) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("floor: %w", err)
	}
	return NumberValue(math.Floor(num)), nil
}

// CeilFunc returns the smallest integer greater than or equal to a number
type CeilFunc struct{}

func (f *CeilFunc) Name() string  { return "ceil" }
func (f *CeilFunc) MinArity() int { return 1 }
func (f *CeilFunc) MaxArity() int { return 1 }
func (f *CeilFunc) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("ceil: %w", err)
	}
	return NumberValue(math.Ceil(num)), nil
}

// SignFunc returns -1, 0 or 1
type SignFunc struct{}

func (f *SignFunc) Name() string  { return "sign" }
func (f *SignFunc) MinArity() int { return 1 }
func (f *SignFunc) MaxArity() int { return 1 }
func (f *SignFunc) Evaluate(args []Value) (Value, error) {
	num, err := valueToNumber(args[0])
	if err != nil {
		return NA, fmt.Errorf("sign: %w", err)
	}
	switch {
	case num > 0:
		return NumberValue(1), nil
	case num < 0:
		return NumberValue(-1), nil
	default:
		return NumberValue(0), nil
	}
}

// LeastFunc returns the smallest of its arguments. min(a, b, ...) with two
// or more arguments compiles to this function instead of the min primitive.
type LeastFunc struct{}

func (f *LeastFunc) Name() string  { return "least" }
func (f *LeastFunc) MinArity() int { return 1 }
func (f *LeastFunc) MaxArity() int { return -1 }
func (f *LeastFunc) Evaluate(args []Value) (Value, error) {
	result := math.Inf(1)
	for i, arg := range args {
		num, err := valueToNumber(arg)
		if err != nil {
			return NA, fmt.Errorf("least: argument %d: %w", i+1, err)
		}
		result = math.Min(result, num)
	}
	return NumberValue(result), nil
}

// GreatestFunc returns the largest of its arguments
type GreatestFunc struct{}

func (f *GreatestFunc) Name() string  { return "greatest" }
func (f *GreatestFunc) MinArity() int { return 1 }
func (f *GreatestFunc) MaxArity() int { return -1 }
func (f *GreatestFunc) Evaluate(args []Value) (Value, error) {
	result := math.Inf(-1)
	for i, arg := range args {
		num, err := valueToNumber(arg)
		if err != nil {
			return NA, fmt.Errorf("greatest: argument %d: %w", i+1, err)
		}
		result = math.Max(result, num)
	}
	return NumberValue(result), nil
}
