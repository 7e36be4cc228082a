package query

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes aggregation expressions
type Lexer struct {
	input string
	pos   int // position after ch
	start int // position of ch
	ch    rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// readChar reads the next character
func (l *Lexer) readChar() {
	l.start = l.pos
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	r, width := utf8.DecodeRuneInString(l.input[l.pos:])
	l.ch = r
	l.pos += width
}

// peekChar looks at the next character without advancing
func (l *Lexer) peekChar() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readString reads a quoted string
func (l *Lexer) readString(quote rune) (string, bool) {
	var result strings.Builder
	l.readChar() // skip opening quote

	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				result.WriteRune('\n')
			case 't':
				result.WriteRune('\t')
			case 0:
				return result.String(), false
			default:
				result.WriteRune(l.ch)
			}
		} else {
			result.WriteRune(l.ch)
		}
		l.readChar()
	}

	if l.ch != quote {
		return result.String(), false
	}
	l.readChar() // skip closing quote
	return result.String(), true
}

// readNumber reads an unsigned decimal number with optional exponent.
// A leading minus is always lexed as an operator.
func (l *Lexer) readNumber() string {
	var result strings.Builder

	for unicode.IsDigit(l.ch) || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}

	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			result.WriteRune(l.ch)
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				result.WriteRune(l.ch)
				l.readChar()
			}
			for unicode.IsDigit(l.ch) {
				result.WriteRune(l.ch)
				l.readChar()
			}
		}
	}
	return result.String()
}

// readIdentifier reads a function or column name
func (l *Lexer) readIdentifier() string {
	var result strings.Builder
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' || l.ch == '.' {
		result.WriteRune(l.ch)
		l.readChar()
	}
	return result.String()
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.start
	var tok Token

	switch l.ch {
	case 0:
		tok = Token{Type: TokenEOF, Value: ""}
	case '+':
		tok = Token{Type: TokenPlus, Value: "+"}
		l.readChar()
	case '-':
		tok = Token{Type: TokenMinus, Value: "-"}
		l.readChar()
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			tok = Token{Type: TokenPower, Value: "**"}
		} else {
			tok = Token{Type: TokenStar, Value: "*"}
		}
		l.readChar()
	case '^':
		tok = Token{Type: TokenPower, Value: "^"}
		l.readChar()
	case '/':
		tok = Token{Type: TokenSlash, Value: "/"}
		l.readChar()
	case '%':
		tok = Token{Type: TokenPercent, Value: "%"}
		l.readChar()
	case '=':
		tok = Token{Type: TokenAssign, Value: "="}
		l.readChar()
	case ',':
		tok = Token{Type: TokenComma, Value: ","}
		l.readChar()
	case '(':
		tok = Token{Type: TokenLeftParen, Value: "("}
		l.readChar()
	case ')':
		tok = Token{Type: TokenRightParen, Value: ")"}
		l.readChar()
	case '[':
		tok = Token{Type: TokenLeftBracket, Value: "["}
		l.readChar()
	case ']':
		tok = Token{Type: TokenRightBracket, Value: "]"}
		l.readChar()
	case '\'', '"':
		value, ok := l.readString(l.ch)
		if !ok {
			tok = Token{Type: TokenError, Value: "unterminated string"}
		} else {
			tok = Token{Type: TokenString, Value: value}
		}
	case '`':
		value, ok := l.readString('`')
		if !ok || value == "" {
			tok = Token{Type: TokenError, Value: "unterminated or empty quoted name"}
		} else {
			tok = Token{Type: TokenIdent, Value: value, Quoted: true}
		}
	default:
		if unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekChar())) {
			tok = Token{Type: TokenNumber, Value: l.readNumber()}
		} else if unicode.IsLetter(l.ch) || l.ch == '_' {
			tok = Token{Type: TokenIdent, Value: l.readIdentifier()}
		} else {
			tok = Token{Type: TokenError, Value: string(l.ch)}
			l.readChar()
		}
	}

	tok.Pos = pos
	return tok
}

// Tokenize returns all tokens from the input
func Tokenize(input string) []Token {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok := lexer.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}

	return tokens
}
