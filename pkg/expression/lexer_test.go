package expression

import (
	"testing"
)

func TestNumberLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"42", 42},
		{"0", 0},
		{"3.14", 3.14},
		{"0x10", 16},
		{"0xff", 255},
		{"1e3", 1000},
		{"2.5e2", 250},
		{"1E-2", 0.01},
		{"1e+3", 1000},
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

func TestMalformedNumberLiterals(t *testing.T) {
	tests := []struct {
		input   string
		wantErr string
	}{
		{"1e+", "Unexpected token '1e+'"},
		{"1e", "Unexpected token '1e'"},
		{"0x", "Unexpected token '0x'"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := Parse(tt.input).Err()
			if err == nil {
				t.Fatal("expected parse error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("got %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"foo", true},
		{"_bar", true},
		{"$x", true},
		{"foo.bar", true},
		{"foo.bar.baz", true},
		{"a1", true},
		{"x'", true},
		{"'quoted'", true},
		{"`backtick`", true},
		{"", false},
		{"123", false},
		{"a b", false},
		{"foo.", false},
		{"'unterminated", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidIdentifier(tt.input); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidOperator(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"+", true},
		{"-", true},
		{"??", true},
		{"?:", true},
		{"==", true},
		{"<=>", true},
		{"...", true},
		{"", false},
		{"(", false},
		{"[", false},
		{"+ ", false},
		{"abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsValidOperator(tt.input); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUnquoteIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"'foo'", "foo", true},
		{`"foo"`, "foo", true},
		{"`foo`", "foo", true},
		{"''", "", true},
		{`'a\tb'`, "a\tb", true},
		{`'a\nb'`, "a\nb", true},
		{`'don\'t'`, "don't", true},
		{`'\u{48}i'`, "Hi", true},
		{"foo", "", false},
		{"'", "", false},
		{"'unterminated", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := UnquoteIdentifier(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{5, "5"},
		{-3, "-3"},
		{2.5, "2.5"},
		{0, "0"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatNumber(tt.value); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
