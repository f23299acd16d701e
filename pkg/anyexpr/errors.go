package anyexpr

import (
	"fmt"
	"strings"

	"github.com/parcelui/expression/pkg/expression"
)

// TypeError is raised when an operator or function is applied to
// incompatible dynamic types, when nil appears where a concrete value is
// required, or when a result cannot be cast to the caller's requested shape.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string {
	return e.Message
}

// CapacityError is raised when the number of distinct boxed values within
// one expression exceeds the side table's fixed maximum.
type CapacityError struct{}

func (e *CapacityError) Error() string {
	return fmt.Sprintf(
		"Maximum number of stored values exceeded (limit %d)", MaxStoredValues)
}

func errCapacity() error {
	return &CapacityError{}
}

func errTypeMismatch(sym expression.Symbol, args ...any) error {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = typeName(a)
	}
	return &TypeError{Message: fmt.Sprintf(
		"%s cannot be used with arguments of type (%s)",
		capitalized(sym.String()), strings.Join(names, ", "))}
}

func errUnexpectedNil() error {
	return &TypeError{Message: "Unexpected nil return value"}
}

func errResultMismatch(got any, want string) error {
	return &TypeError{Message: fmt.Sprintf(
		"Return value of type %s could not be cast to %s",
		typeName(got), want)}
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

func capitalized(s string) string {
	if s != "" && s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
