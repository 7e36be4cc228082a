package query

import (
	"errors"
	"fmt"
	"math"
)

// evalFunc evaluates a compiled expression against the current row's input
// vector and a group's accumulator vector.
type evalFunc func(input []string, acc []Value) (Value, error)

// Output is one named value produced per group (or per row, when the program
// is row-dependent).
type Output struct {
	Name string
	Expr string // canonical form after macro expansion
	eval evalFunc
}

// Update advances one accumulator slot per input row
type Update struct {
	Slot int
	Prim Primitive
	Arg  string // canonical form of the primitive's argument
	eval evalFunc
}

// Program is a compiled aggregation expression. It is immutable and may be
// shared by any number of groups.
type Program struct {
	Source       string
	Outputs      []Output
	Updates      []Update
	Inputs       []int // schema positions of referenced columns, first-occurrence order
	RowDependent bool
	opts         Options
}

// Compile translates expression text into a Program over schema. Errors are
// *CompileError values wrapping one of the package's sentinel errors.
func Compile(text string, schema *Schema, opts Options) (*Program, error) {
	assignments, err := Parse(text)
	if err != nil {
		return nil, err
	}

	c := &compiler{
		src:       text,
		schema:    schema,
		inputSlot: make(map[int]int),
		slotByKey: make(map[string]int),
	}

	prog := &Program{Source: text, opts: opts}
	for _, a := range assignments {
		expanded, err := ExpandMacros(a.Expr)
		if err != nil {
			return nil, c.wrap(err)
		}
		eval, err := c.compile(expanded)
		if err != nil {
			return nil, c.wrap(err)
		}
		prog.Outputs = append(prog.Outputs, Output{Name: a.Name, Expr: expanded.String(), eval: eval})
	}

	prog.Updates = c.updates
	prog.Inputs = c.inputs
	prog.RowDependent = c.rowDependent

	if prog.RowDependent && opts.Unique {
		return nil, c.wrap(ErrRowDependentUnique)
	}

	return prog, nil
}

// compiler lowers an expanded AST in one depth-first pass, allocating an
// accumulator slot for every distinct primitive call.
type compiler struct {
	src          string
	schema       *Schema
	inputs       []int
	inputSlot    map[int]int // schema position -> input vector index
	updates      []Update
	slotByKey    map[string]int // canonical primitive call -> slot
	aggDepth     int
	rowDependent bool
}

func (c *compiler) wrap(err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		return err
	}
	return &CompileError{Expr: c.src, Pos: -1, Err: err}
}

func (c *compiler) compile(n Node) (evalFunc, error) {
	switch node := n.(type) {
	case *NumberLit:
		v := NumberValue(node.Value)
		return func([]string, []Value) (Value, error) { return v, nil }, nil

	case *StringLit:
		v := StringValue(node.Value)
		return func([]string, []Value) (Value, error) { return v, nil }, nil

	case *ListLit:
		items := make([]evalFunc, len(node.Items))
		for i, item := range node.Items {
			eval, err := c.compile(item)
			if err != nil {
				return nil, err
			}
			items[i] = eval
		}
		return func(input []string, acc []Value) (Value, error) {
			out := Value{Kind: KindList, List: make([]Value, len(items))}
			for i, item := range items {
				v, err := item(input, acc)
				if err != nil {
					return NA, err
				}
				out.List[i] = v
			}
			return out, nil
		}, nil

	case *ColumnRef:
		return c.compileColumn(node)

	case *UnaryExpr:
		return c.compileUnary(node)

	case *BinaryExpr:
		return c.compileBinary(node)

	case *CallExpr:
		return c.compileCall(node)

	default:
		return nil, fmt.Errorf("%w: unsupported node %T", ErrSyntax, n)
	}
}

func (c *compiler) compileColumn(ref *ColumnRef) (evalFunc, error) {
	pos := c.schema.Index(ref.Name)
	if pos < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, ref.Name)
	}

	slot, ok := c.inputSlot[pos]
	if !ok {
		slot = len(c.inputs)
		c.inputs = append(c.inputs, pos)
		c.inputSlot[pos] = slot
	}

	// A column outside any primitive is read at finalize time, so the
	// output varies per row.
	if c.aggDepth == 0 {
		c.rowDependent = true
	}

	return func(input []string, _ []Value) (Value, error) {
		return FieldValue(input[slot]), nil
	}, nil
}

func (c *compiler) compileUnary(u *UnaryExpr) (evalFunc, error) {
	operand, err := c.compile(u.Operand)
	if err != nil {
		return nil, err
	}
	return func(input []string, acc []Value) (Value, error) {
		v, err := operand(input, acc)
		if err != nil {
			return NA, err
		}
		num, err := valueToNumber(v)
		if err != nil {
			return NA, err
		}
		return NumberValue(-num), nil
	}, nil
}

func (c *compiler) compileBinary(b *BinaryExpr) (evalFunc, error) {
	left, err := c.compile(b.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.compile(b.Right)
	if err != nil {
		return nil, err
	}
	op := b.Op

	return func(input []string, acc []Value) (Value, error) {
		lv, err := left(input, acc)
		if err != nil {
			return NA, err
		}
		rv, err := right(input, acc)
		if err != nil {
			return NA, err
		}
		x, err := valueToNumber(lv)
		if err != nil {
			return NA, err
		}
		y, err := valueToNumber(rv)
		if err != nil {
			return NA, err
		}
		return arithmetic(op, x, y)
	}, nil
}

// arithmetic applies an infix operator
func arithmetic(op TokenType, x, y float64) (Value, error) {
	switch op {
	case TokenPlus:
		return NumberValue(x + y), nil
	case TokenMinus:
		return NumberValue(x - y), nil
	case TokenStar:
		return NumberValue(x * y), nil
	case TokenSlash:
		if y == 0 {
			return NA, ErrDivisionByZero
		}
		return NumberValue(x / y), nil
	case TokenPercent:
		if y == 0 {
			return NA, ErrDivisionByZero
		}
		return NumberValue(math.Mod(x, y)), nil
	case TokenPower:
		return NumberValue(math.Pow(x, y)), nil
	default:
		return NA, fmt.Errorf("unsupported operator %v", op)
	}
}

func (c *compiler) compileCall(call *CallExpr) (evalFunc, error) {
	name := call.Name

	// min(a, b, ...) and max(a, b, ...) are the scalar forms
	if (name == "min" || name == "max") && len(call.Args) > 1 {
		if name == "min" {
			name = "least"
		} else {
			name = "greatest"
		}
	} else if prim, ok := LookupPrimitive(name); ok {
		return c.compilePrimitive(prim, call)
	}

	fn, ok := GetGlobalRegistry().Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, call.Name)
	}
	if len(call.Args) < fn.MinArity() || (fn.MaxArity() >= 0 && len(call.Args) > fn.MaxArity()) {
		return nil, fmt.Errorf("%w: %s called with %d", ErrArity, call.Name, len(call.Args))
	}

	args := make([]evalFunc, len(call.Args))
	for i, arg := range call.Args {
		eval, err := c.compile(arg)
		if err != nil {
			return nil, err
		}
		args[i] = eval
	}

	return func(input []string, acc []Value) (Value, error) {
		values := make([]Value, len(args))
		for i, arg := range args {
			v, err := arg(input, acc)
			if err != nil {
				return NA, err
			}
			values[i] = v
		}
		return fn.Evaluate(values)
	}, nil
}

// compilePrimitive allocates (or reuses) an accumulator slot for a primitive
// call and returns a reference to it.
func (c *compiler) compilePrimitive(prim Primitive, call *CallExpr) (evalFunc, error) {
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("%w: %s expects 1, got %d", ErrArity, call.Name, len(call.Args))
	}

	key := call.String()
	slot, ok := c.slotByKey[key]
	if !ok {
		c.aggDepth++
		arg, err := c.compile(call.Args[0])
		c.aggDepth--
		if err != nil {
			return nil, err
		}

		slot = len(c.updates)
		c.updates = append(c.updates, Update{
			Slot: slot,
			Prim: prim,
			Arg:  call.Args[0].String(),
			eval: arg,
		})
		c.slotByKey[key] = slot
	}

	return func(_ []string, acc []Value) (Value, error) {
		return acc[slot], nil
	}, nil
}

// OutputNames returns the output column names in declared order
func (p *Program) OutputNames() []string {
	names := make([]string, len(p.Outputs))
	for i, o := range p.Outputs {
		names[i] = o.Name
	}
	return names
}

// InputVector picks the referenced columns out of a full row
func (p *Program) InputVector(row []string) []string {
	input := make([]string, len(p.Inputs))
	for i, pos := range p.Inputs {
		input[i] = row[pos]
	}
	return input
}

// NewAccumulator returns a freshly initialised accumulator vector
func (p *Program) NewAccumulator() []Value {
	acc := make([]Value, len(p.Updates))
	for i, u := range p.Updates {
		acc[i] = u.Prim.Init()
	}
	return acc
}

// Update folds one row into acc. Every primitive argument is evaluated
// against the accumulator as it was before this row; if any of them fails,
// acc is left untouched and the error is returned.
func (p *Program) Update(acc []Value, input []string) error {
	args := make([]Value, len(p.Updates))
	for i, u := range p.Updates {
		v, err := u.eval(input, acc)
		if err != nil {
			return fmt.Errorf("%s(%s): %w", u.Prim.Name(), u.Arg, err)
		}
		args[i] = v
	}
	for i, u := range p.Updates {
		acc[u.Slot] = u.Prim.Update(acc[u.Slot], args[i], p.opts)
	}
	return nil
}

// Finalize evaluates every output against acc and the given row's input
// vector. acc is not modified.
func (p *Program) Finalize(acc []Value, input []string) ([]Value, error) {
	out := make([]Value, len(p.Outputs))
	for i, o := range p.Outputs {
		v, err := o.eval(input, acc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.Name, err)
		}
		out[i] = v
	}
	return out, nil
}

// NaNOutputs returns one NaN per output, used when finalize fails
func (p *Program) NaNOutputs() []Value {
	out := make([]Value, len(p.Outputs))
	for i := range out {
		out[i] = NaN()
	}
	return out
}
