package query

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function represents a scalar function that can be evaluated
type Function interface {
	// Name returns the function name (case-insensitive)
	Name() string
	// MinArity returns the minimum number of arguments
	MinArity() int
	// MaxArity returns the maximum number of arguments (-1 for unlimited)
	MaxArity() int
	// Evaluate evaluates the function with the given arguments
	Evaluate(args []Value) (Value, error)
}

// FunctionRegistry manages function lookup and registration
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry creates a new function registry
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register registers a function
func (r *FunctionRegistry) Register(f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToLower(f.Name())] = f
}

// Get retrieves a function by name (case-insensitive)
func (r *FunctionRegistry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, exists := r.functions[strings.ToLower(name)]
	return f, exists
}

// globalRegistry is the default function registry
var globalRegistry *FunctionRegistry

func init() {
	globalRegistry = NewFunctionRegistry()

	// Math functions
	globalRegistry.Register(&AbsFunc{})
	globalRegistry.Register(&SqrtFunc{})
	globalRegistry.Register(&PowFunc{})
	globalRegistry.Register(&ExpFunc{})
	globalRegistry.Register(&LogFunc{})
	globalRegistry.Register(&Log10Func{})
	globalRegistry.Register(&RoundFunc{})
	globalRegistry.Register(&FloorFunc{})
	globalRegistry.Register(&CeilFunc{})
	globalRegistry.Register(&SignFunc{})
	globalRegistry.Register(&LeastFunc{})
	globalRegistry.Register(&GreatestFunc{})

	// Reduce functions over collected values
	globalRegistry.Register(&MedianReduce{})
	globalRegistry.Register(&QuantileReduce{})
	globalRegistry.Register(&ModeReduce{})
	globalRegistry.Register(&CountDistinctReduce{})
	globalRegistry.Register(&RobustAvgReduce{})
}

// GetGlobalRegistry returns the global function registry
func GetGlobalRegistry() *FunctionRegistry {
	return globalRegistry
}

// Names returns the registered function names in sorted order
func (r *FunctionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionNames lists every name callable in an expression: primitives,
// macros and scalar functions
func FunctionNames() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(list []string) {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	add(PrimitiveNames())
	add(MacroNames())
	add(globalRegistry.Names())
	sort.Strings(names)
	return names
}

// valueToNumber converts a scalar Value to a number
func valueToNumber(v Value) (float64, error) {
	if f, ok := v.AsNumber(); ok {
		return f, nil
	}
	if v.Kind == KindString {
		return 0, fmt.Errorf("%w: %q", ErrNotNumeric, v.Str)
	}
	return 0, fmt.Errorf("%w: %s value", ErrNotNumeric, v.Kind)
}
