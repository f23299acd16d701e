package expression

import (
	"fmt"
)

// ErrorKind classifies engine errors.
type ErrorKind int

const (
	// ErrUnexpectedToken is raised for input the parser cannot place,
	// including an empty expression (token == "").
	ErrUnexpectedToken ErrorKind = iota
	// ErrMissingDelimiter is raised for an unterminated bracket, paren,
	// quote, or escape sequence.
	ErrMissingDelimiter
	// ErrUndefinedSymbol is raised when no binding exists for a symbol.
	ErrUndefinedSymbol
	// ErrArityMismatch is raised when a known symbol is called with the
	// wrong number of arguments.
	ErrArityMismatch
	// ErrArrayBounds is raised at evaluation time for an out-of-range
	// array index.
	ErrArrayBounds
)

// Error is the typed error value produced by parsing and evaluation. Every
// kind renders a complete human-readable sentence suitable for direct
// display to a developer.
type Error struct {
	Kind   ErrorKind
	Token  string  // offending text, for parse errors
	Symbol Symbol  // subject, for symbol errors
	Arity  Arity   // expected arity, for ErrArityMismatch
	Index  float64 // offending index, for ErrArrayBounds
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnexpectedToken:
		if e.Token == "" {
			return "Empty expression"
		}
		return fmt.Sprintf("Unexpected token '%s'", e.Token)
	case ErrMissingDelimiter:
		return fmt.Sprintf("Missing '%s'", e.Token)
	case ErrUndefinedSymbol:
		return fmt.Sprintf("Undefined %s", e.Symbol)
	case ErrArityMismatch:
		plural := "s"
		if e.Arity.Min == 1 && !e.Arity.AtLeast {
			plural = ""
		}
		return fmt.Sprintf("%s expects %s argument%s",
			capitalized(e.Symbol.String()), e.Arity, plural)
	case ErrArrayBounds:
		return fmt.Sprintf("Index %s out of bounds for %s",
			FormatNumber(e.Index), e.Symbol)
	default:
		return "Unknown expression error"
	}
}

func unexpectedToken(tok string) *Error {
	return &Error{Kind: ErrUnexpectedToken, Token: tok}
}

func missingDelimiter(delim string) *Error {
	return &Error{Kind: ErrMissingDelimiter, Token: delim}
}

func undefinedSymbol(sym Symbol) *Error {
	return &Error{Kind: ErrUndefinedSymbol, Symbol: sym}
}

func arityMismatch(sym Symbol, expected Arity) *Error {
	return &Error{Kind: ErrArityMismatch, Symbol: sym, Arity: expected}
}

func arrayBounds(sym Symbol, index float64) *Error {
	return &Error{Kind: ErrArrayBounds, Symbol: sym, Index: index}
}

func capitalized(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
