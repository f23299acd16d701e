package expression

import (
	"math"
)

// Standard math symbols, always available unless overridden by the caller.
// Division, modulo, and the math functions use IEEE-754 double semantics
// as-is: 1/0 is +Inf and 0/0 is NaN, with no explicit divide-by-zero error.
var mathSymbols = map[Symbol]SymbolFunc{
	Variable("pi"): func([]float64) (float64, error) { return math.Pi, nil },

	Infix("+"): func(args []float64) (float64, error) { return args[0] + args[1], nil },
	Infix("-"): func(args []float64) (float64, error) { return args[0] - args[1], nil },
	Infix("*"): func(args []float64) (float64, error) { return args[0] * args[1], nil },
	Infix("/"): func(args []float64) (float64, error) { return args[0] / args[1], nil },
	Infix("%"): func(args []float64) (float64, error) { return math.Mod(args[0], args[1]), nil },

	Prefix("-"): func(args []float64) (float64, error) { return -args[0], nil },

	Function("sqrt", Exactly(1)):  unary(math.Sqrt),
	Function("floor", Exactly(1)): unary(math.Floor),
	Function("ceil", Exactly(1)):  unary(math.Ceil),
	Function("round", Exactly(1)): unary(math.Round),
	Function("cos", Exactly(1)):   unary(math.Cos),
	Function("acos", Exactly(1)):  unary(math.Acos),
	Function("sin", Exactly(1)):   unary(math.Sin),
	Function("asin", Exactly(1)):  unary(math.Asin),
	Function("tan", Exactly(1)):   unary(math.Tan),
	Function("atan", Exactly(1)):  unary(math.Atan),
	Function("abs", Exactly(1)):   unary(math.Abs),

	Function("pow", Exactly(2)):   binary(math.Pow),
	Function("atan2", Exactly(2)): binary(math.Atan2),
	Function("mod", Exactly(2)):   binary(math.Mod),

	Function("max", AtLeast(2)): variadic(math.Max),
	Function("min", AtLeast(2)): variadic(math.Min),
}

// Boolean symbols, opt-in via the BoolSymbols option. Comparisons yield 1 or
// 0; the ternary '?:' selects on a nonzero condition. The 2-argument form of
// '?:' (the elvis spelling a ?: b) returns the first nonzero argument, else
// the second; it predates the 3-ary ternary and is kept as a narrow
// compatibility alias.
var boolSymbols = map[Symbol]SymbolFunc{
	Variable("true"):  func([]float64) (float64, error) { return 1, nil },
	Variable("false"): func([]float64) (float64, error) { return 0, nil },

	Infix("=="): comparison(func(a, b float64) bool { return a == b }),
	Infix("!="): comparison(func(a, b float64) bool { return a != b }),
	Infix(">"):  comparison(func(a, b float64) bool { return a > b }),
	Infix(">="): comparison(func(a, b float64) bool { return a >= b }),
	Infix("<"):  comparison(func(a, b float64) bool { return a < b }),
	Infix("<="): comparison(func(a, b float64) bool { return a <= b }),
	Infix("&&"): comparison(func(a, b float64) bool { return a != 0 && b != 0 }),
	Infix("||"): comparison(func(a, b float64) bool { return a != 0 || b != 0 }),

	Prefix("!"): func(args []float64) (float64, error) {
		if args[0] == 0 {
			return 1, nil
		}
		return 0, nil
	},

	Infix("?:"): func(args []float64) (float64, error) {
		if len(args) == 3 {
			if args[0] != 0 {
				return args[1], nil
			}
			return args[2], nil
		}
		if args[0] != 0 {
			return args[0], nil
		}
		return args[1], nil
	},
}

func unary(fn func(float64) float64) SymbolFunc {
	return func(args []float64) (float64, error) { return fn(args[0]), nil }
}

func binary(fn func(float64, float64) float64) SymbolFunc {
	return func(args []float64) (float64, error) { return fn(args[0], args[1]), nil }
}

func variadic(fn func(float64, float64) float64) SymbolFunc {
	return func(args []float64) (float64, error) {
		acc := args[0]
		for _, v := range args[1:] {
			acc = fn(acc, v)
		}
		return acc, nil
	}
}

func comparison(test func(a, b float64) bool) SymbolFunc {
	return func(args []float64) (float64, error) {
		if test(args[0], args[1]) {
			return 1, nil
		}
		return 0, nil
	}
}

// BuiltinSymbol returns the standard implementation for a symbol, applying
// the arity containment rule for functions. The boolean table is consulted
// only when opts includes BoolSymbols. Wrapper layers use this to delegate
// to default numeric behavior after intercepting the symbols they care
// about.
func BuiltinSymbol(sym Symbol, opts Options) (SymbolFunc, bool) {
	if fn, ok := tableLookup(mathSymbols, sym); ok {
		return fn, true
	}
	if opts&BoolSymbols != 0 {
		// The ternary halves are only meaningful fused; an unregistered
		// bare '?' or ':' resolves through '?:' and nothing else.
		if sym.Kind == KindInfix && (sym.Name == "?" || sym.Name == ":") {
			return nil, false
		}
		if fn, ok := tableLookup(boolSymbols, sym); ok {
			return fn, true
		}
	}
	return nil, false
}

func tableLookup(table map[Symbol]SymbolFunc, sym Symbol) (SymbolFunc, bool) {
	if fn, ok := table[sym]; ok {
		return fn, true
	}
	if sym.Kind == KindFunction {
		for candidate, fn := range table {
			if candidate.Matches(sym) {
				return fn, true
			}
		}
	}
	return nil, false
}
