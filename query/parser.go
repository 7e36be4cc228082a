package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses aggregation expressions into ASTs
type Parser struct {
	input  string
	tokens []Token
	pos    int
	depth  int // open parseExpr/parseUnary frames
}

// NewParser creates a new parser over the tokens of input
func NewParser(input string, tokens []Token) *Parser {
	return &Parser{
		input:  input,
		tokens: tokens,
	}
}

// nest opens one level of recursion, failing at the current token once
// MaxExpressionDepth is exceeded. Every successful call pairs with unnest.
func (p *Parser) nest() error {
	p.depth++
	if p.depth > MaxExpressionDepth {
		err := fmt.Errorf("%w: more than %d levels", ErrExpressionTooDeep, MaxExpressionDepth)
		return &CompileError{Expr: p.input, Pos: p.current().Pos, Err: err}
	}
	return nil
}

func (p *Parser) unnest() {
	p.depth--
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: "", Pos: len(p.input)}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: "", Pos: len(p.input)}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// errorf builds a syntax error located at the current token
func (p *Parser) errorf(format string, args ...interface{}) error {
	return &CompileError{
		Expr: p.input,
		Pos:  p.current().Pos,
		Err:  fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...)),
	}
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return p.errorf("expected %v, got %s", tokType, describe(p.current()))
	}
	p.advance()
	return nil
}

// describe renders a token for error messages
func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of expression"
	case TokenError:
		return fmt.Sprintf("invalid input %q", tok.Value)
	default:
		return fmt.Sprintf("%v %q", tok.Type, tok.Value)
	}
}

// Parse parses comma-separated assignments: "total=sum(x), avg(y)".
// An item without a name is named after its own source text.
func Parse(text string) ([]Assignment, error) {
	if err := ValidateExpression(text); err != nil {
		return nil, &CompileError{Expr: text, Pos: -1, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &CompileError{Expr: text, Pos: -1, Err: ErrEmptyExpression}
	}

	tokens := Tokenize(text)
	if err := ValidateTokens(tokens); err != nil {
		return nil, &CompileError{Expr: text, Pos: -1, Err: err}
	}

	parser := NewParser(text, tokens)
	assignments, err := parser.parseAssignments()
	if err != nil {
		return nil, err
	}

	if parser.current().Type == TokenError {
		return nil, parser.errorf("invalid character %q", parser.current().Value)
	}
	if parser.current().Type != TokenEOF {
		return nil, parser.errorf("unexpected trailing input %s", describe(parser.current()))
	}

	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if seen[a.Name] {
			return nil, &CompileError{Expr: text, Pos: -1, Err: fmt.Errorf("%w: %q", ErrDuplicateOutput, a.Name)}
		}
		seen[a.Name] = true
	}

	return assignments, nil
}

// ParseExpr parses a single expression without assignments
func ParseExpr(text string) (Node, error) {
	tokens := Tokenize(text)
	parser := NewParser(text, tokens)
	node, err := parser.parseExpr()
	if err != nil {
		return nil, err
	}
	if parser.current().Type != TokenEOF {
		return nil, parser.errorf("unexpected trailing input %s", describe(parser.current()))
	}
	return node, nil
}

// parseAssignments parses: item { "," item }
func (p *Parser) parseAssignments() ([]Assignment, error) {
	var items []Assignment

	for {
		item, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		items = append(items, item)

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}

		break
	}

	return items, nil
}

// parseAssignment parses: [ name "=" ] expr
func (p *Parser) parseAssignment() (Assignment, error) {
	var item Assignment

	if p.current().Type == TokenIdent && p.peek().Type == TokenAssign {
		item.Name = p.current().Value
		if err := ValidateColumnName(item.Name); err != nil {
			return item, &CompileError{Expr: p.input, Pos: p.current().Pos, Err: err}
		}
		p.advance() // name
		p.advance() // =
	}

	start := p.current().Pos
	expr, err := p.parseExpr()
	if err != nil {
		return item, err
	}
	item.Expr = expr

	if item.Name == "" {
		item.Name = strings.TrimSpace(p.input[start:p.current().Pos])
	}

	return item, nil
}

// parseExpr parses additive expressions (lowest precedence)
func (p *Parser) parseExpr() (Node, error) {
	if err := p.nest(); err != nil {
		return nil, err
	}
	defer p.unnest()

	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		op := p.current().Type
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}

	return left, nil
}

// parseTerm parses multiplicative expressions
func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().Type == TokenStar || p.current().Type == TokenSlash || p.current().Type == TokenPercent {
		op := p.current().Type
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Left: left, Op: op, Right: right}
	}

	return left, nil
}

// parseUnary parses prefix signs
func (p *Parser) parseUnary() (Node, error) {
	if err := p.nest(); err != nil {
		return nil, err
	}
	defer p.unnest()

	switch p.current().Type {
	case TokenMinus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*NumberLit); ok {
			return &NumberLit{Value: -lit.Value}, nil
		}
		return &UnaryExpr{Op: TokenMinus, Operand: operand}, nil
	case TokenPlus:
		p.advance()
		return p.parseUnary()
	}

	return p.parsePower()
}

// parsePower parses right-associative exponentiation
func (p *Parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.current().Type == TokenPower {
		p.advance()
		exponent, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Left: base, Op: TokenPower, Right: exponent}, nil
	}

	return base, nil
}

// parsePrimary parses literals, names, calls and parenthesised expressions
func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf("invalid number %q", tok.Value)
		}
		p.advance()
		return &NumberLit{Value: value}, nil

	case TokenString:
		p.advance()
		return &StringLit{Value: tok.Value}, nil

	case TokenLeftBracket:
		return p.parseList()

	case TokenLeftParen:
		p.advance()
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenIdent:
		if !tok.Quoted && p.peek().Type == TokenLeftParen {
			return p.parseCall()
		}
		if err := ValidateColumnName(tok.Value); err != nil {
			return nil, &CompileError{Expr: p.input, Pos: tok.Pos, Err: err}
		}
		p.advance()
		return &ColumnRef{Name: tok.Value}, nil

	case TokenError:
		return nil, p.errorf("invalid input %q", tok.Value)

	default:
		return nil, p.errorf("expected value, got %s", describe(tok))
	}
}

// parseCall parses: name "(" [ expr { "," expr } ] ")"
func (p *Parser) parseCall() (Node, error) {
	name := strings.ToLower(p.current().Value)
	p.advance() // skip function name

	if err := p.expect(TokenLeftParen); err != nil {
		return nil, err
	}

	call := &CallExpr{Name: name}

	// Check for empty argument list
	if p.current().Type == TokenRightParen {
		p.advance()
		return call, nil
	}

	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}

		break
	}

	if err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}

	return call, nil
}

// parseList parses: "[" expr { "," expr } "]"
func (p *Parser) parseList() (Node, error) {
	p.advance() // skip [

	list := &ListLit{}
	for {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)

		if p.current().Type == TokenComma {
			p.advance()
			continue
		}

		break
	}

	if err := p.expect(TokenRightBracket); err != nil {
		return nil, err
	}

	return list, nil
}
