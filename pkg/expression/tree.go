package expression

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// nodeKind tags the parse tree node variants.
type nodeKind int

const (
	nodeLiteral nodeKind = iota
	nodeSymbol
	nodeError
)

// SymbolFunc evaluates a bound symbol against its already-evaluated
// arguments.
type SymbolFunc func(args []float64) (float64, error)

// node is one subexpression of a parse tree. A node exclusively owns its
// children; trees are acyclic by construction since nodes are built bottom-up
// from consumed tokens. Nodes are immutable once parsing completes:
// optimization produces new nodes, never mutates shared ones.
type node struct {
	kind   nodeKind
	value  float64    // nodeLiteral
	symbol Symbol     // nodeSymbol
	args   []*node    // nodeSymbol children
	eval   SymbolFunc // bound evaluator, nil until binding
	err    *Error     // nodeError
	text   string     // nodeError original source text
}

func literalNode(v float64) *node {
	return &node{kind: nodeLiteral, value: v}
}

func symbolNode(sym Symbol, args ...*node) *node {
	return &node{kind: nodeSymbol, symbol: sym, args: args}
}

func errorNode(err *Error, text string, partial ...*node) *node {
	return &node{kind: nodeError, err: err, text: text, args: partial}
}

// isOperand reports whether the node can serve as an operand during stack
// collapsing: literals, variables, and applied operators are operands; an
// operator token not yet given arguments is not.
func (n *node) isOperand() bool {
	switch n.kind {
	case nodeLiteral:
		return true
	case nodeSymbol:
		switch n.symbol.Kind {
		case KindInfix, KindPrefix, KindPostfix:
			return n.args != nil
		default:
			return true
		}
	default:
		return false
	}
}

func (n *node) collectSymbols(out map[Symbol]bool) {
	if n.kind == nodeSymbol {
		out[n.symbol] = true
	}
	for _, arg := range n.args {
		arg.collectSymbols(out)
	}
}

// precedenceLevel returns the collapse rank of the node when it is an infix
// expression, for parenthesization during rendering.
func (n *node) precedenceLevel() (int, bool) {
	if n.kind == nodeSymbol && n.symbol.Kind == KindInfix && n.args != nil {
		return precedence(n.symbol.Name), true
	}
	return 0, false
}

// description renders the node back to canonical source form.
func (n *node) description() string {
	switch n.kind {
	case nodeLiteral:
		return FormatNumber(n.value)
	case nodeError:
		return n.text
	}
	sym := n.symbol
	switch sym.Kind {
	case KindVariable:
		return sym.Name
	case KindPrefix:
		return sym.Name + n.wrapArg(0, precedence(sym.Name))
	case KindPostfix:
		return n.wrapArg(0, precedence(sym.Name)) + sym.Name
	case KindInfix:
		switch {
		case sym.Name == "?:" && len(n.args) == 3:
			return n.wrapArg(0, precedence("?:")) + " ? " +
				n.args[1].description() + " : " + n.wrapArg(2, precedence("?:"))
		case sym.Name == ",":
			return n.args[0].description() + ", " + n.args[1].description()
		default:
			p := precedence(sym.Name)
			lhs := n.wrapArg(0, p)
			rhs := n.args[1].description()
			if rp, ok := n.args[1].precedenceLevel(); ok &&
				(rp < p || (rp == p && !isRightAssociative(sym.Name))) {
				rhs = "(" + rhs + ")"
			}
			return lhs + " " + sym.Name + " " + rhs
		}
	case KindFunction:
		parts := make([]string, len(n.args))
		for i, arg := range n.args {
			parts[i] = arg.description()
		}
		return sym.Name + "(" + strings.Join(parts, ", ") + ")"
	case KindArray:
		return sym.Name + "[" + n.args[0].description() + "]"
	}
	return sym.Name
}

// wrapArg renders a child, parenthesizing infix children that bind more
// loosely than the parent.
func (n *node) wrapArg(i, parentPrec int) string {
	arg := n.args[i]
	s := arg.description()
	if p, ok := arg.precedenceLevel(); ok && p < parentPrec {
		return "(" + s + ")"
	}
	if n.symbol.Kind == KindPrefix || n.symbol.Kind == KindPostfix {
		if _, ok := arg.precedenceLevel(); ok {
			return "(" + s + ")"
		}
	}
	return s
}

// FormatNumber renders a double the way a developer wrote it: integral
// values without a trailing fraction and large integers without scientific
// notation.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && !math.IsNaN(v) &&
		math.Abs(v) < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ParsedExpression is the opaque, read-only handle wrapping a parsed tree.
// It is immutable and safe to cache and share: many bound evaluators can
// reuse one tree, which is why parsing is the cached operation.
type ParsedExpression struct {
	root   *node
	source string
}

// String returns the canonical pretty-printed rendering of the tree.
func (p *ParsedExpression) String() string {
	return p.root.description()
}

// Err returns the parse error captured inside the tree, or nil. Errors are
// stored as data rather than thrown so the portions of the tree preceding
// the failure stay introspectable.
func (p *ParsedExpression) Err() error {
	if n := findError(p.root); n != nil {
		return n.err
	}
	return nil
}

func findError(n *node) *node {
	if n.kind == nodeError {
		return n
	}
	for _, arg := range n.args {
		if e := findError(arg); e != nil {
			return e
		}
	}
	return nil
}

// Symbols returns the set of symbols referenced by the tree. It is available
// even when the tree contains a parse error, reporting what was understood
// up to the failure point.
func (p *ParsedExpression) Symbols() map[Symbol]bool {
	out := make(map[Symbol]bool)
	p.root.collectSymbols(out)
	return out
}

// SymbolNames returns the sorted names of all referenced symbols, for
// display.
func (p *ParsedExpression) SymbolNames() []string {
	seen := make(map[string]bool)
	for sym := range p.Symbols() {
		seen[sym.Name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
