package query

import (
	"errors"
	"fmt"
)

// Validation constants to prevent resource exhaustion on hostile expressions
const (
	// MaxExpressionLength is the maximum allowed expression length (64KB)
	MaxExpressionLength = 64 * 1024

	// MaxTokens is the maximum number of tokens in an expression
	MaxTokens = 4096

	// MaxExpressionDepth is the maximum nesting depth for expressions
	MaxExpressionDepth = 100

	// MaxColumnNameLength is the maximum length for a column or output name
	MaxColumnNameLength = 256
)

var (
	// ErrExpressionTooLong is returned when an expression exceeds MaxExpressionLength
	ErrExpressionTooLong = errors.New("expression too long")

	// ErrTooManyTokens is returned when an expression has too many tokens
	ErrTooManyTokens = errors.New("too many tokens in expression")

	// ErrExpressionTooDeep is returned when expression nesting exceeds limit
	ErrExpressionTooDeep = errors.New("expression nesting too deep")

	// ErrColumnNameTooLong is returned when a name is too long
	ErrColumnNameTooLong = errors.New("column name too long")

	// ErrEmptyExpression is returned for blank expressions
	ErrEmptyExpression = errors.New("empty expression")
)

// ValidateExpression performs size validation on expression input
func ValidateExpression(text string) error {
	if len(text) > MaxExpressionLength {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrExpressionTooLong, len(text), MaxExpressionLength)
	}
	return nil
}

// ValidateColumnName validates column name length
func ValidateColumnName(name string) error {
	if len(name) > MaxColumnNameLength {
		return fmt.Errorf("%w: %d chars (max %d)", ErrColumnNameTooLong, len(name), MaxColumnNameLength)
	}
	return nil
}

// ValidateTokens validates token count
func ValidateTokens(tokens []Token) error {
	if len(tokens) > MaxTokens {
		return fmt.Errorf("%w: %d tokens (max %d)", ErrTooManyTokens, len(tokens), MaxTokens)
	}
	return nil
}
