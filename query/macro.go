package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Macro is a named statistic defined as a template over primitives, reduce
// functions and scalar functions. ARG0, ARG1, ... stand for the call's
// arguments.
type Macro struct {
	Name     string
	Arity    int
	Template string
	body     Node
}

// Templates only name primitives and functions, never other macros, so a
// single bottom-up pass expands everything.
var macroDefs = []*Macro{
	{Name: "avg", Arity: 1, Template: "sum(ARG0)/count(ARG0)"},
	{Name: "mean", Arity: 1, Template: "sum(ARG0)/count(ARG0)"},
	{Name: "var", Arity: 1, Template: "abs(sum(ARG0*ARG0) - pow(sum(ARG0),2)/count(ARG0))/count(ARG0)"},
	{Name: "sd", Arity: 1, Template: "sqrt(abs(sum(ARG0*ARG0) - pow(sum(ARG0),2)/count(ARG0))/count(ARG0))"},
	{Name: "mse", Arity: 2, Template: "sqrt(sum((ARG0-ARG1)*(ARG0-ARG1))/count(ARG0))"},
	{Name: "corr", Arity: 2, Template: "(sum(ARG0*ARG1) - sum(ARG0)*sum(ARG1)/count(ARG0)) / " +
		"sqrt((sum(ARG0*ARG0) - pow(sum(ARG0),2)/count(ARG0)) * (sum(ARG1*ARG1) - pow(sum(ARG1),2)/count(ARG1)))"},
	{Name: "range", Arity: 1, Template: "max(ARG0)-min(ARG0)"},
	{Name: "median", Arity: 1, Template: "reduce_median(collect(ARG0))"},
	{Name: "quantile", Arity: 2, Template: "reduce_quantile(ARG0, collect(ARG1))"},
	{Name: "ravg", Arity: 1, Template: "reduce_ravg(collect(ARG0))"},
	{Name: "mode", Arity: 1, Template: "reduce_mode(freq(ARG0))"},
	{Name: "count_distinct", Arity: 1, Template: "reduce_count_distinct(freq(ARG0))"},
}

var macros = map[string]*Macro{}

func init() {
	for _, m := range macroDefs {
		body, err := ParseExpr(m.Template)
		if err != nil {
			panic(fmt.Sprintf("macro %s: %v", m.Name, err))
		}
		m.body = body
		macros[m.Name] = m
	}
}

// LookupMacro returns the macro registered under name
func LookupMacro(name string) (*Macro, bool) {
	m, ok := macros[strings.ToLower(name)]
	return m, ok
}

// MacroNames returns the registered macro names in sorted order
func MacroNames() []string {
	names := make([]string, 0, len(macros))
	for name := range macros {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpandMacros rewrites every macro call in n into its template. Arguments
// are expanded before substitution, so macro calls nested in arguments are
// handled in the same pass.
func ExpandMacros(n Node) (Node, error) {
	switch node := n.(type) {
	case *CallExpr:
		args := make([]Node, len(node.Args))
		for i, arg := range node.Args {
			expanded, err := ExpandMacros(arg)
			if err != nil {
				return nil, err
			}
			args[i] = expanded
		}

		m, ok := LookupMacro(node.Name)
		if !ok {
			return &CallExpr{Name: node.Name, Args: args}, nil
		}
		if len(args) != m.Arity {
			return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrArity, m.Name, m.Arity, len(args))
		}
		return substitute(m.body, args), nil

	case *UnaryExpr:
		operand, err := ExpandMacros(node.Operand)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: node.Op, Operand: operand}, nil

	case *BinaryExpr:
		left, err := ExpandMacros(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := ExpandMacros(node.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: left, Op: node.Op, Right: right}, nil

	case *ListLit:
		items := make([]Node, len(node.Items))
		for i, item := range node.Items {
			expanded, err := ExpandMacros(item)
			if err != nil {
				return nil, err
			}
			items[i] = expanded
		}
		return &ListLit{Items: items}, nil

	default:
		return n, nil
	}
}

// substitute copies a template body, replacing placeholders with args
func substitute(n Node, args []Node) Node {
	switch node := n.(type) {
	case *ColumnRef:
		if idx, ok := placeholderIndex(node.Name); ok && idx < len(args) {
			return args[idx]
		}
		return node
	case *CallExpr:
		out := &CallExpr{Name: node.Name, Args: make([]Node, len(node.Args))}
		for i, arg := range node.Args {
			out.Args[i] = substitute(arg, args)
		}
		return out
	case *UnaryExpr:
		return &UnaryExpr{Op: node.Op, Operand: substitute(node.Operand, args)}
	case *BinaryExpr:
		return &BinaryExpr{Left: substitute(node.Left, args), Op: node.Op, Right: substitute(node.Right, args)}
	case *ListLit:
		out := &ListLit{Items: make([]Node, len(node.Items))}
		for i, item := range node.Items {
			out.Items[i] = substitute(item, args)
		}
		return out
	default:
		return n
	}
}

func placeholderIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "ARG") {
		return 0, false
	}
	idx, err := strconv.Atoi(name[3:])
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
