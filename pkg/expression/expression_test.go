package expression

import (
	"math"
	"testing"
)

func TestArithmeticEvaluation(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1 + 2", 3},
		{"10 - 3", 7},
		{"4 * 5", 20},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"-5", -5},
		{"pow(2, 10)", 1024},
		{"sqrt(16)", 4},
		{"floor(2.7)", 2},
		{"ceil(2.1)", 3},
		{"abs(-3)", 3},
		{"mod(10, 3)", 1},
		{"max(1, 5, 3)", 5},
		{"min(4, 2, 8, 1)", 1},
		{"pi", math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := New(tt.input, nil).Evaluate()
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIEEEDivisionSemantics(t *testing.T) {
	got, err := New("1 / 0", nil).Evaluate()
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if !math.IsInf(got, 1) {
		t.Errorf("1 / 0 = %v, want +Inf", got)
	}

	got, err = New("0 / 0", nil).Evaluate()
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("0 / 0 = %v, want NaN", got)
	}
}

func TestBooleanEvaluation(t *testing.T) {
	cfg := &Config{Options: BoolSymbols}

	tests := []struct {
		input string
		want  float64
	}{
		{"1 < 2", 1},
		{"2 < 1", 0},
		{"1 == 1", 1},
		{"1 != 1", 0},
		{"3 >= 3", 1},
		{"1 < 2 && 3 > 4", 0},
		{"1 < 2 || 3 > 4", 1},
		{"!0", 1},
		{"!5", 0},
		{"true", 1},
		{"false", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := New(tt.input, cfg).Evaluate()
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBooleanSymbolsRequireOptIn(t *testing.T) {
	_, err := New("1 < 2", nil).Evaluate()
	if err == nil {
		t.Fatal("expected error without BoolSymbols")
	}
	want := "Undefined infix operator '<'"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestConstants(t *testing.T) {
	cfg := &Config{Constants: map[string]float64{
		"width":   320,
		"margin":  8,
		"foo.bar": 7,
	}}

	tests := []struct {
		input string
		want  float64
	}{
		{"width / 2", 160},
		{"width - margin * 2", 304},
		{"foo.bar + 1", 8},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := New(tt.input, cfg).Evaluate()
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArrays(t *testing.T) {
	cfg := &Config{Arrays: map[string][]float64{
		"a": {10, 20, 30},
	}}

	tests := []struct {
		input string
		want  float64
	}{
		{"a[0]", 10},
		{"a[2]", 30},
		{"a[1 + 1]", 30},
		{"a[2.9]", 30}, // fractional indexes floor
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := New(tt.input, cfg).Evaluate()
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArrayBounds(t *testing.T) {
	cfg := &Config{Arrays: map[string][]float64{
		"a": {10, 20, 30},
	}}

	tests := []struct {
		input   string
		wantErr string
	}{
		{"a[5]", "Index 5 out of bounds for array 'a[]'"},
		{"a[-1]", "Index -1 out of bounds for array 'a[]'"},
		{"a[0 / 0]", "Index NaN out of bounds for array 'a[]'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := New(tt.input, cfg).Evaluate()
			if err == nil {
				t.Fatal("expected bounds error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("got %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestUndefinedSymbols(t *testing.T) {
	tests := []struct {
		input   string
		wantErr string
	}{
		{"foo", "Undefined variable 'foo'"},
		{"1 <=> 2", "Undefined infix operator '<=>'"},
		{"nope(1)", "Undefined function 'nope()'"},
		{"a[0]", "Undefined array 'a[]'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := New(tt.input, nil).Evaluate()
			if err == nil {
				t.Fatal("expected undefined-symbol error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("got %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestArityMismatchDiagnostics(t *testing.T) {
	cfg := &Config{Symbols: map[Symbol]SymbolFunc{
		Function("clamp", Exactly(3)): func(args []float64) (float64, error) {
			return math.Min(math.Max(args[0], args[1]), args[2]), nil
		},
	}}

	tests := []struct {
		input   string
		wantErr string
	}{
		{"pow(1)", "Function 'pow()' expects 2 arguments"},
		{"sqrt(1, 2)", "Function 'sqrt()' expects 1 argument"},
		{"max(1)", "Function 'max()' expects at least 2 arguments"},
		{"clamp(1, 2)", "Function 'clamp()' expects 3 arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := New(tt.input, cfg).Evaluate()
			if err == nil {
				t.Fatal("expected arity error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("got %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCustomSymbols(t *testing.T) {
	cfg := &Config{Symbols: map[Symbol]SymbolFunc{
		Function("double", Exactly(1)): func(args []float64) (float64, error) {
			return args[0] * 2, nil
		},
		Infix("<=>"): func(args []float64) (float64, error) {
			switch {
			case args[0] < args[1]:
				return -1, nil
			case args[0] > args[1]:
				return 1, nil
			default:
				return 0, nil
			}
		},
	}}

	tests := []struct {
		input string
		want  float64
	}{
		{"double(21)", 42},
		{"1 <=> 2", -1},
		{"2 <=> 2", 0},
		{"3 <=> 2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := New(tt.input, cfg).Evaluate()
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserSymbolsOverrideBuiltins(t *testing.T) {
	cfg := &Config{Symbols: map[Symbol]SymbolFunc{
		Infix("+"): func(args []float64) (float64, error) {
			return args[0] * args[1], nil
		},
	}}

	got, err := New("3 + 4", cfg).Evaluate()
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if got != 12 {
		t.Errorf("got %v, want 12", got)
	}
}

func TestImpureSymbolsAreNeverFolded(t *testing.T) {
	calls := 0
	cfg := &Config{
		Impure: func(sym Symbol) SymbolFunc {
			if sym == Variable("tick") {
				return func([]float64) (float64, error) {
					calls++
					return float64(calls), nil
				}
			}
			return nil
		},
	}

	expr := New("tick + 0", cfg)
	for want := 1.0; want <= 3; want++ {
		got, err := expr.Evaluate()
		if err != nil {
			t.Fatalf("eval error: %v", err)
		}
		if got != want {
			t.Errorf("got %v, want %v", got, want)
		}
	}
	if calls != 3 {
		t.Errorf("impure symbol invoked %d times, want 3", calls)
	}
}

func TestPureSymbolsAreFolded(t *testing.T) {
	calls := 0
	cfg := &Config{
		Options: PureSymbols,
		Symbols: map[Symbol]SymbolFunc{
			Function("answer", Exactly(0)): func([]float64) (float64, error) {
				calls++
				return 42, nil
			},
		},
	}

	expr := New("answer() + 1", cfg)
	for i := 0; i < 3; i++ {
		got, err := expr.Evaluate()
		if err != nil {
			t.Fatalf("eval error: %v", err)
		}
		if got != 43 {
			t.Errorf("got %v, want 43", got)
		}
	}
	if calls != 1 {
		t.Errorf("pure symbol invoked %d times, want 1 (folded at bind)", calls)
	}
}

func TestDisableOptimizationPreservesResults(t *testing.T) {
	inputs := []string{
		"2 + 3 * 4",
		"pow(2, 8) - 6",
		"max(1, 2) * min(3, 4)",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			optimized, err := New(input, nil).Evaluate()
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			plain, err := New(input, &Config{Options: DisableOptimization}).Evaluate()
			if err != nil {
				t.Fatalf("eval error: %v", err)
			}
			if optimized != plain {
				t.Errorf("optimized %v != unoptimized %v", optimized, plain)
			}
		})
	}
}

func TestDisableOptimizationPreservesErrors(t *testing.T) {
	for _, opts := range []Options{0, DisableOptimization} {
		_, err := New("pow(1)", &Config{Options: opts}).Evaluate()
		if err == nil {
			t.Fatal("expected arity error")
		}
		want := "Function 'pow()' expects 2 arguments"
		if err.Error() != want {
			t.Errorf("opts=%d: got %q, want %q", opts, err.Error(), want)
		}
	}
}

func TestFoldFailuresSurfaceAtEvaluation(t *testing.T) {
	// All-literal arguments make this foldable; the fold must keep the node
	// and report the error from Evaluate, not swallow or raise it early.
	cfg := &Config{Arrays: map[string][]float64{"a": {1}}}
	expr := New("a[9]", cfg)

	_, err := expr.Evaluate()
	if err == nil {
		t.Fatal("expected bounds error")
	}
	want := "Index 9 out of bounds for array 'a[]'"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestConstructionNeverFails(t *testing.T) {
	// Parse and binding errors are deferred to Evaluate.
	expr := New("(((", nil)
	if expr == nil {
		t.Fatal("New returned nil for malformed input")
	}
	if _, err := expr.Evaluate(); err == nil {
		t.Error("expected evaluation error for malformed input")
	}
}

func TestExpressionStringIsPreOptimization(t *testing.T) {
	expr := New("1 + 2", nil)
	if got := expr.String(); got != "1 + 2" {
		t.Errorf("got %q, want %q", got, "1 + 2")
	}
}

func TestSymbolNames(t *testing.T) {
	parsed := Parse("width + pow(height, 2)")
	names := parsed.SymbolNames()
	want := []string{"+", "height", "pow", "width"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
