// Package expression implements a small arithmetic, boolean, and string
// expression language: a lexer, an operator-precedence parser producing
// immutable cacheable parse trees, and a numeric evaluator with bind-time
// constant folding. Expressions are plain strings ("width / 2 + margin",
// "max(a, b) >= 0 ? a : b") evaluated against caller-supplied constants,
// arrays, and custom symbols.
package expression

import (
	"fmt"
	"strings"
)

// SymbolKind distinguishes the role a symbol plays in an expression.
type SymbolKind int

const (
	KindVariable SymbolKind = iota // named value, e.g. pi
	KindInfix                      // binary operator, e.g. a + b
	KindPrefix                     // leading operator, e.g. -a
	KindPostfix                    // trailing operator, e.g. a%
	KindFunction                   // call with argument list, e.g. pow(a, b)
	KindArray                      // indexed lookup, e.g. colors[2]
)

// String returns the human-readable role name, as used in error messages.
func (k SymbolKind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindInfix:
		return "infix operator"
	case KindPrefix:
		return "prefix operator"
	case KindPostfix:
		return "postfix operator"
	case KindFunction:
		return "function"
	case KindArray:
		return "array"
	default:
		return "symbol"
	}
}

// Arity is the argument-count contract of a function symbol: an exact count,
// or a lower bound for variadic functions.
type Arity struct {
	Min     int
	AtLeast bool
}

// Exactly returns an arity requiring exactly n arguments.
func Exactly(n int) Arity {
	return Arity{Min: n}
}

// AtLeast returns an arity accepting n or more arguments.
func AtLeast(n int) Arity {
	return Arity{Min: n, AtLeast: true}
}

// Matches reports whether a call-site arity satisfies a declared arity (or
// vice versa). Matching is contract containment, not structural equality: an
// exact count matches a lower bound that contains it, so a variadic builtin
// declared AtLeast(2) satisfies a call with three arguments.
func (a Arity) Matches(b Arity) bool {
	switch {
	case a.AtLeast && b.AtLeast:
		return a.Min == b.Min
	case a.AtLeast:
		return b.Min >= a.Min
	case b.AtLeast:
		return a.Min >= b.Min
	default:
		return a.Min == b.Min
	}
}

// String renders the arity for diagnostics: "2" or "at least 2".
func (a Arity) String() string {
	if a.AtLeast {
		return fmt.Sprintf("at least %d", a.Min)
	}
	return fmt.Sprintf("%d", a.Min)
}

// Symbol identifies an operator, variable, function, or array reference
// recognized by the parser. Identity is (kind, name), plus arity for
// functions. Symbols are immutable and usable as map keys; they outlive any
// single expression since they key the symbol tables evaluators bind against.
type Symbol struct {
	Kind  SymbolKind
	Name  string
	Arity Arity // meaningful only for KindFunction
}

// Variable returns a variable symbol.
func Variable(name string) Symbol {
	return Symbol{Kind: KindVariable, Name: name}
}

// Infix returns an infix operator symbol.
func Infix(op string) Symbol {
	return Symbol{Kind: KindInfix, Name: op}
}

// Prefix returns a prefix operator symbol.
func Prefix(op string) Symbol {
	return Symbol{Kind: KindPrefix, Name: op}
}

// Postfix returns a postfix operator symbol.
func Postfix(op string) Symbol {
	return Symbol{Kind: KindPostfix, Name: op}
}

// Function returns a function symbol with the given arity contract.
func Function(name string, arity Arity) Symbol {
	return Symbol{Kind: KindFunction, Name: name, Arity: arity}
}

// Array returns an array symbol. Array access is always unary-indexed.
func Array(name string) Symbol {
	return Symbol{Kind: KindArray, Name: name}
}

// Matches reports whether two symbols refer to the same entity, applying the
// arity containment rule for functions.
func (s Symbol) Matches(other Symbol) bool {
	if s.Kind != other.Kind || s.Name != other.Name {
		return false
	}
	if s.Kind == KindFunction {
		return s.Arity.Matches(other.Arity)
	}
	return true
}

// String renders the symbol for diagnostics, e.g. "function 'pow()'" or
// "infix operator '+'".
func (s Symbol) String() string {
	switch s.Kind {
	case KindFunction:
		return fmt.Sprintf("function '%s()'", s.Name)
	case KindArray:
		return fmt.Sprintf("array '%s[]'", s.Name)
	default:
		return fmt.Sprintf("%s '%s'", s.Kind, s.Name)
	}
}

// IsValidIdentifier reports whether the string is a single well-formed
// identifier (plain or quoted). Hosts use this to validate configuration
// keys before constructing expressions.
func IsValidIdentifier(s string) bool {
	c := newCursor(s)
	if name, ok := c.scanIdentifier(); ok {
		return name == s && c.atEnd()
	}
	c = newCursor(s)
	if name, _, ok := c.scanQuotedIdentifier(); ok {
		return name == s && c.atEnd()
	}
	return false
}

// IsValidOperator reports whether the string is a single well-formed operator
// token. Bracket and separator characters are structural syntax, not
// operators.
func IsValidOperator(s string) bool {
	if s == "" || strings.ContainsAny(s, "([{)]}") {
		return false
	}
	c := newCursor(s)
	op, ok := c.scanOperator(nil)
	return ok && op == s && c.atEnd()
}
