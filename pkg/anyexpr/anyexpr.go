package anyexpr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/parcelui/expression/pkg/expression"
)

// SymbolFunc evaluates a bound symbol against dynamically-typed arguments.
type SymbolFunc func(args []any) (any, error)

// Config supplies polymorphic symbol bindings for an AnyExpression.
type Config struct {
	Options expression.Options

	// Constants maps names to fixed values of any type. Slice values are
	// addressable with the name[index] syntax; everything else binds as a
	// variable.
	Constants map[string]any

	// Symbols maps symbols to caller implementations. Entries are treated
	// as impure unless Options includes PureSymbols.
	Symbols map[expression.Symbol]SymbolFunc

	// Impure, when non-nil, is consulted first for every symbol. A non-nil
	// result is re-invoked on each evaluation and never folded.
	Impure func(expression.Symbol) SymbolFunc
}

// AnyExpression evaluates an expression over arbitrary values. It layers a
// value store on top of the numeric engine: plain numbers flow through the
// core unboxed, while strings, bools, nil, and opaque values travel as
// tagged doubles. The wrapper intercepts '+', '==', '!=', '?:' and '??' to
// give them value-aware semantics; every other operator coerces its
// arguments to numbers and fails with a TypeError when it cannot.
type AnyExpression struct {
	store  *valueStore
	core   *expression.Expression
	parsed *expression.ParsedExpression
}

// New parses (via the shared cache) and binds an expression in one step.
// Like the core, construction never fails; problems surface from Evaluate.
func New(source string, cfg *Config) *AnyExpression {
	return NewParsed(expression.Parse(source), cfg)
}

// NewParsed binds an already-parsed tree over dynamic values. Boolean
// builtins are always enabled here since truthiness is inherent to the
// dynamic operators.
func NewParsed(parsed *expression.ParsedExpression, cfg *Config) *AnyExpression {
	if cfg == nil {
		cfg = &Config{}
	}
	opts := cfg.Options | expression.BoolSymbols
	st := &valueStore{}

	impureFns := make(map[expression.Symbol]expression.SymbolFunc)
	pureFns := make(map[expression.Symbol]expression.SymbolFunc)
	constants := make(map[string]float64)
	arrays := make(map[string][]float64)

	for sym := range parsed.Symbols() {
		switch {
		case cfg.Impure != nil && cfg.Impure(sym) != nil:
			impureFns[sym] = wrapUser(st, sym, cfg.Impure(sym))

		case sym.Kind == expression.KindVariable && hasConstant(cfg, sym.Name):
			d, err := st.box(cfg.Constants[sym.Name])
			if err != nil {
				impureFns[sym] = errThunk(err)
				continue
			}
			constants[sym.Name] = d

		case sym.Kind == expression.KindArray && hasConstant(cfg, sym.Name):
			contents, err := lowerSlice(st, cfg.Constants[sym.Name])
			if err != nil {
				impureFns[sym] = errThunk(err)
				continue
			}
			arrays[sym.Name] = contents

		default:
			if fn, ok := lookupUser(cfg.Symbols, sym); ok {
				wrapped := wrapUser(st, sym, fn)
				if opts&expression.PureSymbols != 0 {
					pureFns[sym] = wrapped
				} else {
					impureFns[sym] = wrapped
				}
				continue
			}
			if fn, ok := specialSymbol(st, sym); ok {
				pureFns[sym] = fn
				continue
			}
			if d, ok := literalConstant(st, sym); ok {
				constants[sym.Name] = d
			}
		}
	}

	core := expression.NewParsed(parsed, &expression.Config{
		Options:   opts,
		Constants: constants,
		Arrays:    arrays,
		Impure: func(sym expression.Symbol) expression.SymbolFunc {
			return impureFns[sym]
		},
		Pure: func(sym expression.Symbol) expression.SymbolFunc {
			if fn, ok := pureFns[sym]; ok {
				return fn
			}
			if fn, ok := expression.BuiltinSymbol(sym, opts); ok {
				return numericWrapper(st, sym, fn)
			}
			return nil
		},
	})

	// Values boxed so far were stored by binding (constants, folds) and
	// must outlive every evaluation.
	st.freeze()
	return &AnyExpression{store: st, core: core, parsed: parsed}
}

// String returns the canonical rendering of the expression as parsed.
func (e *AnyExpression) String() string {
	return e.parsed.String()
}

// Symbols returns the set of symbols referenced by the parsed tree.
func (e *AnyExpression) Symbols() map[expression.Symbol]bool {
	return e.parsed.Symbols()
}

// Evaluate executes the expression and returns its dynamically-typed
// result. Values stored during this evaluation are released afterwards.
func (e *AnyExpression) Evaluate() (any, error) {
	d, err := e.core.Evaluate()
	if err != nil {
		e.store.reset()
		return nil, err
	}
	v := e.store.unbox(d)
	e.store.reset()
	return v, nil
}

func hasConstant(cfg *Config, name string) bool {
	_, ok := cfg.Constants[name]
	return ok
}

func lookupUser(table map[expression.Symbol]SymbolFunc, sym expression.Symbol) (SymbolFunc, bool) {
	if table == nil {
		return nil, false
	}
	if fn, ok := table[sym]; ok {
		return fn, true
	}
	if sym.Kind == expression.KindFunction {
		for candidate, fn := range table {
			if candidate.Matches(sym) {
				return fn, true
			}
		}
	}
	return nil, false
}

// wrapUser adapts a dynamic symbol implementation to the numeric core:
// arguments are unboxed on the way in and the result is boxed on the way
// out.
func wrapUser(st *valueStore, sym expression.Symbol, fn SymbolFunc) expression.SymbolFunc {
	return func(args []float64) (float64, error) {
		values := make([]any, len(args))
		for i, d := range args {
			values[i] = st.unbox(d)
		}
		out, err := fn(values)
		if err != nil {
			return 0, err
		}
		return st.box(out)
	}
}

func errThunk(err error) expression.SymbolFunc {
	return func([]float64) (float64, error) { return 0, err }
}

// lowerSlice boxes every element of a slice or array constant so the core's
// native indexed access serves it directly.
func lowerSlice(st *valueStore, v any) ([]float64, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errResultMismatch(v, "array")
	}
	out := make([]float64, rv.Len())
	for i := range out {
		d, err := st.box(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// literalConstant resolves the symbols that are constants of the dynamic
// layer itself: nil, and identifiers quoted as string literals.
func literalConstant(st *valueStore, sym expression.Symbol) (float64, bool) {
	if sym.Kind != expression.KindVariable {
		return 0, false
	}
	if sym.Name == "nil" || sym.Name == "null" {
		return nilBits, true
	}
	if strings.HasPrefix(sym.Name, "'") || strings.HasPrefix(sym.Name, "\"") ||
		strings.HasPrefix(sym.Name, "`") {
		if text, ok := expression.UnquoteIdentifier(sym.Name); ok {
			d, err := st.box(text)
			if err == nil {
				return d, true
			}
		}
	}
	return 0, false
}

// specialSymbol returns the value-aware implementation for the operators
// the dynamic layer redefines.
func specialSymbol(st *valueStore, sym expression.Symbol) (expression.SymbolFunc, bool) {
	if sym.Kind != expression.KindInfix {
		return nil, false
	}
	switch sym.Name {
	case "+":
		return valueAdd(st, sym), true
	case "==":
		return valueEqual(st, false), true
	case "!=":
		return valueEqual(st, true), true
	case "?:":
		return conditional(st, sym), true
	case "??":
		return coalesce(st), true
	}
	return nil, false
}

// valueAdd concatenates when either side is a string and adds numerically
// otherwise.
func valueAdd(st *valueStore, sym expression.Symbol) expression.SymbolFunc {
	return func(args []float64) (float64, error) {
		lhs := st.unbox(args[0])
		rhs := st.unbox(args[1])
		_, lstr := lhs.(string)
		_, rstr := rhs.(string)
		if lstr || rstr {
			return st.box(stringify(lhs) + stringify(rhs))
		}
		a, aok := toNumber(lhs)
		b, bok := toNumber(rhs)
		if !aok || !bok {
			return 0, errTypeMismatch(sym, lhs, rhs)
		}
		return a + b, nil
	}
}

// valueEqual compares by value: numbers across numeric types, strings,
// slices element-wise, and otherwise identity where the types allow it.
// Incomparable values are unequal, never an error.
func valueEqual(st *valueStore, negate bool) expression.SymbolFunc {
	return func(args []float64) (float64, error) {
		eq := equalValues(st.unbox(args[0]), st.unbox(args[1]))
		if eq != negate {
			return trueBits, nil
		}
		return falseBits, nil
	}
}

// conditional is the ternary. Only the condition is coerced; the chosen
// branch passes through with its original bit pattern, so boxed values
// survive selection undistorted. The 2-argument elvis form returns the
// first operand when it is truthy.
func conditional(st *valueStore, sym expression.Symbol) expression.SymbolFunc {
	return func(args []float64) (float64, error) {
		cond, ok := truthy(st.unbox(args[0]))
		if !ok {
			return 0, errTypeMismatch(sym, st.unbox(args[0]))
		}
		if len(args) == 3 {
			if cond {
				return args[1], nil
			}
			return args[2], nil
		}
		if cond {
			return args[0], nil
		}
		return args[1], nil
	}
}

// coalesce returns the left operand unless it is nil.
func coalesce(st *valueStore) expression.SymbolFunc {
	return func(args []float64) (float64, error) {
		if st.unbox(args[0]) == nil {
			return args[1], nil
		}
		return args[0], nil
	}
}

// numericWrapper adapts a numeric builtin to dynamic arguments: boxed
// values that coerce to numbers are unwrapped, anything else is a
// TypeError naming the offending types.
func numericWrapper(st *valueStore, sym expression.Symbol, fn expression.SymbolFunc) expression.SymbolFunc {
	return func(args []float64) (float64, error) {
		nums := make([]float64, len(args))
		for i, d := range args {
			if !isReserved(d) {
				nums[i] = d
				continue
			}
			n, ok := toNumber(st.unbox(d))
			if !ok {
				values := make([]any, len(args))
				for j, a := range args {
					values[j] = st.unbox(a)
				}
				return 0, errTypeMismatch(sym, values...)
			}
			nums[i] = n
		}
		return fn(nums)
	}
}

// truthy reports the boolean reading of a value. Nil is false; numbers are
// true when nonzero; other types have no truth value.
func truthy(v any) (value, ok bool) {
	if v == nil {
		return false, true
	}
	if b, isBool := v.(bool); isBool {
		return b, true
	}
	if n, isNum := toNumber(v); isNum {
		return n != 0, true
	}
	return false, false
}

// toNumber coerces a value to a double. Bools count as 1 and 0; strings do
// not coerce.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// FormatValue renders a result for display: nil as the empty string,
// numbers the way a developer wrote them, everything else via its natural
// string form.
func FormatValue(v any) string {
	return stringify(v)
}

// stringify renders a value for concatenation and display. Nil renders as
// the empty string; numbers render the way a developer wrote them.
func stringify(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return expression.FormatNumber(n)
	case float32:
		return expression.FormatNumber(float64(n))
	case bool:
		return strconv.FormatBool(n)
	case int:
		return strconv.FormatInt(int64(n), 10)
	case int64:
		return strconv.FormatInt(n, 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	default:
		if n, ok := toNumber(v); ok {
			return expression.FormatNumber(n)
		}
		return fmt.Sprintf("%v", v)
	}
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, aok := toNumber(a); aok {
		if bn, bok := toNumber(b); bok {
			return an == bn
		}
		return false
	}
	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		return bok && as == bs
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() == reflect.Slice && rb.Kind() == reflect.Slice {
		if ra.Len() != rb.Len() {
			return false
		}
		for i := 0; i < ra.Len(); i++ {
			if !equalValues(ra.Index(i).Interface(), rb.Index(i).Interface()) {
				return false
			}
		}
		return true
	}
	if ra.Type() == rb.Type() && ra.Type().Comparable() {
		return a == b
	}
	return false
}
