package expression

import "math"

// Options is a bit set of evaluation options.
type Options uint8

const (
	// DisableOptimization turns off bind-time constant folding. Disabling
	// optimization never changes the result of a successful evaluation,
	// nor which error a failing one produces.
	DisableOptimization Options = 1 << iota
	// BoolSymbols enables the boolean operator table (comparisons, &&,
	// ||, !, the ternary, and the true/false constants).
	BoolSymbols
	// PureSymbols marks caller-supplied symbols in Config.Symbols as pure:
	// deterministic and side-effect free, so they may be inlined and
	// constant-folded. Without it user symbols are re-invoked on every
	// evaluation.
	PureSymbols
	// NoDeferredOptimize forces optimization to run at construction rather
	// than lazily. Binding here is always eager, so the flag is accepted
	// for configuration compatibility and has no additional effect.
	NoDeferredOptimize
)

// Config supplies the symbol bindings for an Expression.
type Config struct {
	Options Options

	// Constants maps variable names to fixed values, folded as literals.
	Constants map[string]float64

	// Arrays maps array names to their contents for name[index] access.
	Arrays map[string][]float64

	// Symbols maps symbols to caller implementations. Entries are treated
	// as impure unless Options includes PureSymbols.
	Symbols map[Symbol]SymbolFunc

	// Impure, when non-nil, is consulted first for every symbol. A non-nil
	// result is bound directly and re-invoked on each evaluation in its
	// original tree position, never folded; use it for symbols whose value
	// changes between evaluations or that have side effects.
	Impure func(Symbol) SymbolFunc

	// Pure, when non-nil, is consulted at bind time for symbols not
	// otherwise resolved, before the builtin tables. Results are inlined
	// and eligible for folding.
	Pure func(Symbol) SymbolFunc
}

// Expression is a parse tree bound to concrete symbol implementations.
// Binding resolves an evaluator for every symbol node up front, so
// Evaluate never hits an unresolved placeholder. Evaluation mutates no tree
// state; a single Expression is safe for concurrent Evaluate calls as long
// as its impure symbols are.
type Expression struct {
	root   *node
	parsed *ParsedExpression
}

// New parses (via the shared cache) and binds an expression in one step.
// Construction never fails: parse and binding problems are captured and
// surface as typed errors from Evaluate, which keeps error behavior
// identical whether or not a tree was optimized.
func New(source string, cfg *Config) *Expression {
	return NewParsed(Parse(source), cfg)
}

// NewParsed binds an already-parsed tree. The tree is shared, not copied:
// binding produces new nodes and never mutates the ParsedExpression, so one
// cached parse may back many concurrently-bound expressions.
func NewParsed(parsed *ParsedExpression, cfg *Config) *Expression {
	if cfg == nil {
		cfg = &Config{}
	}
	b := &binder{cfg: cfg}
	return &Expression{root: b.bind(parsed.root), parsed: parsed}
}

// String returns the canonical rendering of the expression as parsed,
// before any optimization.
func (e *Expression) String() string {
	return e.parsed.String()
}

// Symbols returns the set of symbols referenced by the parsed tree,
// regardless of how they were bound.
func (e *Expression) Symbols() map[Symbol]bool {
	return e.parsed.Symbols()
}

// Evaluate executes the bound tree and returns its numeric result. It is
// side-effect free with respect to the tree; side effects can only come
// from caller-supplied impure symbols.
func (e *Expression) Evaluate() (float64, error) {
	return evalNode(e.root)
}

func evalNode(n *node) (float64, error) {
	switch n.kind {
	case nodeLiteral:
		return n.value, nil
	case nodeError:
		return 0, n.err
	}
	args := make([]float64, len(n.args))
	for i, arg := range n.args {
		v, err := evalNode(arg)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return n.eval(args)
}

// binder walks a parse tree bottom-up, attaching an evaluator to every
// symbol node and folding pure all-literal applications into literals.
type binder struct {
	cfg *Config
}

func (b *binder) bind(n *node) *node {
	switch n.kind {
	case nodeLiteral, nodeError:
		return n
	}

	args := make([]*node, len(n.args))
	for i, arg := range n.args {
		args[i] = b.bind(arg)
	}
	sym := n.symbol

	fn, pure := b.resolve(sym, len(args))
	if fn == nil {
		// Constant: replace with a literal (itself a fold) unless
		// optimization is off, in which case bind a closure so observable
		// behavior stays identical.
		v := b.cfg.Constants[sym.Name]
		if b.cfg.Options&DisableOptimization != 0 {
			fn = func([]float64) (float64, error) { return v, nil }
			return &node{kind: nodeSymbol, symbol: sym, args: args, eval: fn}
		}
		return literalNode(v)
	}

	bound := &node{kind: nodeSymbol, symbol: sym, args: args, eval: fn}
	if pure && b.cfg.Options&DisableOptimization == 0 && allLiterals(args) {
		values := make([]float64, len(args))
		for i, arg := range args {
			values[i] = arg.value
		}
		// A failed fold is kept un-folded rather than raised here, so the
		// same error surfaces at evaluation time in its natural position.
		if v, err := fn(values); err == nil {
			return literalNode(v)
		}
	}
	return bound
}

// resolve picks the evaluator for a symbol. A nil func with pure == true
// signals a constant (handled by the caller); otherwise fn is always
// non-nil, falling back to a thunk that raises undefined-symbol or arity
// mismatch at evaluation time.
func (b *binder) resolve(sym Symbol, argc int) (fn SymbolFunc, pure bool) {
	cfg := b.cfg

	if cfg.Impure != nil {
		if fn := cfg.Impure(sym); fn != nil {
			return fn, false
		}
	}
	if sym.Kind == KindVariable {
		if _, ok := cfg.Constants[sym.Name]; ok {
			return nil, true
		}
	}
	if sym.Kind == KindArray {
		if arr, ok := cfg.Arrays[sym.Name]; ok {
			return arrayAccessor(sym, arr), true
		}
	}
	if fn, ok := lookupUserSymbol(cfg.Symbols, sym); ok {
		return fn, cfg.Options&PureSymbols != 0
	}
	if cfg.Pure != nil {
		if fn := cfg.Pure(sym); fn != nil {
			return fn, true
		}
	}
	if fn, ok := BuiltinSymbol(sym, cfg.Options); ok {
		return fn, true
	}
	return b.deferredError(sym), false
}

func lookupUserSymbol(table map[Symbol]SymbolFunc, sym Symbol) (SymbolFunc, bool) {
	if table == nil {
		return nil, false
	}
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

// deferredError builds the thunk bound to an unresolvable symbol. When the
// name is known under a different arity the thunk raises an arity mismatch
// naming the found requirement, which reads far better than a bare
// undefined-symbol for a miscounted call; the decision is deferred to
// evaluation time to avoid false positives before all overloads are known.
func (b *binder) deferredError(sym Symbol) SymbolFunc {
	var err *Error = undefinedSymbol(sym)
	if sym.Kind == KindFunction {
		if found, ok := b.findOtherArity(sym); ok {
			err = arityMismatch(sym, found)
		}
	}
	return func([]float64) (float64, error) { return 0, err }
}

func (b *binder) findOtherArity(sym Symbol) (Arity, bool) {
	tables := []map[Symbol]SymbolFunc{b.cfg.Symbols, mathSymbols}
	if b.cfg.Options&BoolSymbols != 0 {
		tables = append(tables, boolSymbols)
	}
	for _, table := range tables {
		for candidate := range table {
			if candidate.Kind == KindFunction && candidate.Name == sym.Name {
				return candidate.Arity, true
			}
		}
	}
	return Arity{}, false
}

// arrayAccessor floors the index and bounds-checks it against the captured
// contents, naming the symbol and the original un-floored index on error.
func arrayAccessor(sym Symbol, contents []float64) SymbolFunc {
	arr := make([]float64, len(contents))
	copy(arr, contents)
	return func(args []float64) (float64, error) {
		raw := args[0]
		floored := math.Floor(raw)
		if math.IsNaN(raw) || floored < 0 || floored >= float64(len(arr)) {
			return 0, arrayBounds(sym, raw)
		}
		return arr[int(floored)], nil
	}
}

func allLiterals(nodes []*node) bool {
	for _, n := range nodes {
		if n.kind != nodeLiteral {
			return false
		}
	}
	return true
}
