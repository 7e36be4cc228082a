package query

import (
	"strconv"
	"strings"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Literals
	TokenNumber TokenType = iota
	TokenString
	TokenIdent

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenSlash   // /
	TokenPercent // %
	TokenPower   // ** or ^
	TokenAssign  // =

	// Delimiters
	TokenComma        // ,
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBracket  // [
	TokenRightBracket // ]

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenNumber:       "number",
	TokenString:       "string",
	TokenIdent:        "identifier",
	TokenPlus:         "'+'",
	TokenMinus:        "'-'",
	TokenStar:         "'*'",
	TokenSlash:        "'/'",
	TokenPercent:      "'%'",
	TokenPower:        "'**'",
	TokenAssign:       "'='",
	TokenComma:        "','",
	TokenLeftParen:    "'('",
	TokenRightParen:   "')'",
	TokenLeftBracket:  "'['",
	TokenRightBracket: "']'",
	TokenEOF:          "end of expression",
	TokenError:        "invalid character",
}

// String returns a readable token type name for error messages
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "token(" + strconv.Itoa(int(t)) + ")"
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Pos    int  // byte offset in the source
	Quoted bool // identifier was written in backquotes
}

// Assignment is one named output of an expression: name=expr
type Assignment struct {
	Name string
	Expr Node
}

// Node is an expression AST node.
//
// String returns a canonical rendering used to deduplicate primitive calls
// and to name unnamed outputs.
type Node interface {
	String() string
	node()
}

// ColumnRef references an input column by name
type ColumnRef struct {
	Name string
}

// NumberLit is a numeric literal
type NumberLit struct {
	Value float64
}

// StringLit is a quoted string literal
type StringLit struct {
	Value string
}

// ListLit is a bracketed list literal: [0.25, 0.75]
type ListLit struct {
	Items []Node
}

// CallExpr is a function, primitive, macro or reduce call
type CallExpr struct {
	Name string // lowercase
	Args []Node
}

// UnaryExpr is a prefix operator application
type UnaryExpr struct {
	Op      TokenType
	Operand Node
}

// BinaryExpr is an infix arithmetic operator application
type BinaryExpr struct {
	Left  Node
	Op    TokenType
	Right Node
}

func (*ColumnRef) node()  {}
func (*NumberLit) node()  {}
func (*StringLit) node()  {}
func (*ListLit) node()    {}
func (*CallExpr) node()   {}
func (*UnaryExpr) node()  {}
func (*BinaryExpr) node() {}

func (c *ColumnRef) String() string { return c.Name }

func (n *NumberLit) String() string { return FormatNumber(n.Value) }

func (s *StringLit) String() string { return strconv.Quote(s.Value) }

func (l *ListLit) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (c *CallExpr) String() string {
	parts := make([]string, len(c.Args))
	for i, arg := range c.Args {
		parts[i] = arg.String()
	}
	return c.Name + "(" + strings.Join(parts, ",") + ")"
}

func (u *UnaryExpr) String() string {
	return "(" + operatorSymbol(u.Op) + u.Operand.String() + ")"
}

func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + operatorSymbol(b.Op) + b.Right.String() + ")"
}

func operatorSymbol(op TokenType) string {
	switch op {
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPercent:
		return "%"
	case TokenPower:
		return "**"
	default:
		return "?"
	}
}
