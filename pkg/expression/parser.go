package expression

// Operator precedence ranks, highest-binding first. The table is data, not
// grammar: any operator token the lexer produces gets a rank here, so
// user-defined operators participate in collapsing without parser changes.
func precedence(op string) int {
	switch op {
	case "*", "/", "%", "&":
		return 8 // multiplicative
	case "+", "-", "|", "^":
		return 7 // additive
	case "<<", ">>", ">>>":
		return 6 // shift
	case "...", "..<":
		return 5 // range
	case "is", "as", "isa":
		return 4 // cast
	case "??", "?:":
		return 3 // null-coalescing
	case "==", "!=", "===", "!==", "<", "<=", ">", ">=":
		return 2 // comparison
	case "&&", "and":
		return 1
	case "||", "or":
		return 0
	case "?", ":":
		return -1 // ternary
	case ",":
		return -3
	default:
		if len(op) > 1 && op[len(op)-1] == '=' {
			return -2 // assignment-like
		}
		return 7
	}
}

func isRightAssociative(op string) bool {
	switch op {
	case "==", "!=", "===", "!==", "<", "<=", ">", ">=", "?", ":":
		return true
	default:
		return len(op) > 1 && op[len(op)-1] == '='
	}
}

// takesPrecedence reports whether the operator that appears later in the
// token run (next) must collapse before the earlier one (op). The ternary
// pair is special-cased so '?' always combines with its branch before a
// following ':' and a new '?' preempts an open ':'.
func takesPrecedence(next, op string) bool {
	if op == "?" && next == ":" {
		return false
	}
	if op == ":" && next == "?" {
		return true
	}
	np, p := precedence(next), precedence(op)
	if np > p {
		return true
	}
	return np == p && isRightAssociative(next)
}

// parser consumes a cursor up to (never past) one of its delimiter strings,
// producing a single subexpression tree.
type parser struct {
	cur        *cursor
	delimiters []string
}

// parseSubexpression runs the shift phase, gathering a flat stack of
// partially-classified nodes, then collapses it to one operand.
func (p *parser) parseSubexpression() (*node, *Error) {
	var stack []*node

	last := func() *node {
		if len(stack) == 0 {
			return nil
		}
		return stack[len(stack)-1]
	}

	for {
		preceded := p.cur.skipWhitespace()
		if p.cur.atEnd() || p.cur.matchesDelimiter(p.delimiters) {
			break
		}

		// Structural brackets are handled before operator scanning.
		if p.cur.lookingAt("(") {
			if l := last(); !preceded && isBareIdentifier(l) {
				n, err := p.parseCall(l.symbol.Name)
				if err != nil {
					return collapsePartial(stack), err
				}
				stack[len(stack)-1] = n
				continue
			} else if l != nil && l.isOperand() {
				return collapsePartial(stack), unexpectedToken("(")
			}
			n, err := p.parseGroup()
			if err != nil {
				return collapsePartial(stack), err
			}
			stack = append(stack, n)
			continue
		}
		if p.cur.lookingAt("[") {
			l := last()
			if preceded || !isBareIdentifier(l) {
				return collapsePartial(stack), unexpectedToken("[")
			}
			n, err := p.parseIndexed(l.symbol.Name)
			if err != nil {
				return collapsePartial(stack), err
			}
			stack[len(stack)-1] = n
			continue
		}

		if v, _, serr, ok := p.cur.scanNumber(); ok {
			if serr != nil {
				return collapsePartial(stack), serr
			}
			stack = append(stack, literalNode(v))
			continue
		}
		if name, ok := p.cur.scanIdentifier(); ok {
			stack = append(stack, symbolNode(Variable(name)))
			continue
		}
		if name, serr, ok := p.cur.scanQuotedIdentifier(); ok {
			if serr != nil {
				return collapsePartial(stack), serr
			}
			stack = append(stack, symbolNode(Variable(name)))
			continue
		}
		if op, ok := p.cur.scanOperator(p.delimiters); ok {
			followed := p.cur.followedByWhitespace()
			var sym Symbol
			switch {
			case preceded == followed:
				sym = Infix(op)
			case preceded:
				sym = Prefix(op)
			default:
				sym = Postfix(op)
			}
			stack = append(stack, &node{kind: nodeSymbol, symbol: sym})
			continue
		}

		return collapsePartial(stack), unexpectedToken(string(p.cur.peek()))
	}

	if len(stack) == 0 {
		return nil, unexpectedToken("")
	}
	return collapse(stack)
}

// isBareIdentifier reports whether the node is an unquoted identifier that
// can be rewritten into a call or array access.
func isBareIdentifier(n *node) bool {
	if n == nil || n.kind != nodeSymbol || n.symbol.Kind != KindVariable ||
		n.args != nil {
		return false
	}
	switch n.symbol.Name[0] {
	case '\'', '"', '`':
		return false
	}
	return true
}

// parseGroup parses a parenthesized subexpression.
func (p *parser) parseGroup() (*node, *Error) {
	p.cur.scanString("(")
	inner := &parser{cur: p.cur, delimiters: []string{")"}}
	n, err := inner.parseSubexpression()
	if err != nil {
		return nil, err
	}
	if !p.cur.scanString(")") {
		return nil, missingDelimiter(")")
	}
	return n, nil
}

// parseCall collects comma-delimited arguments up to the matching ')',
// rewriting the preceding identifier into a function symbol whose arity is
// the argument count.
func (p *parser) parseCall(name string) (*node, *Error) {
	p.cur.scanString("(")
	var args []*node
	p.cur.skipWhitespace()
	if !p.cur.scanString(")") {
		for {
			inner := &parser{cur: p.cur, delimiters: []string{",", ")"}}
			arg, err := inner.parseSubexpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.scanString(",") {
				continue
			}
			if p.cur.scanString(")") {
				break
			}
			return nil, missingDelimiter(")")
		}
	}
	return symbolNode(Function(name, Exactly(len(args))), args...), nil
}

// parseIndexed handles '[' after a bare identifier, rewriting it into an
// array symbol with the index expression as its single child. Arrays are
// always unary-indexed: a comma before ']' is an arity mismatch, not a
// multi-dimensional index.
func (p *parser) parseIndexed(name string) (*node, *Error) {
	p.cur.scanString("[")
	inner := &parser{cur: p.cur, delimiters: []string{",", "]"}}
	index, err := inner.parseSubexpression()
	if err != nil {
		return nil, err
	}
	sym := Array(name)
	if p.cur.scanString(",") {
		return nil, arityMismatch(sym, Exactly(1))
	}
	if !p.cur.scanString("]") {
		return nil, missingDelimiter("]")
	}
	return symbolNode(sym, index), nil
}

// collapsePartial best-effort collapses a stack for error-node introspection,
// falling back to the raw items.
func collapsePartial(stack []*node) *node {
	if n, err := collapse(stack); err == nil {
		return n
	}
	if len(stack) == 1 {
		return stack[0]
	}
	return nil
}

// collapse repeatedly resolves adjacent (operand, operator, operand) triples
// into single operand nodes, honoring the precedence table. It is the reduce
// phase of the shift/reduce parser, expressed over a flat slice rather than
// grammar recursion so arbitrary operator tokens participate uniformly.
func collapse(stack []*node) (*node, *Error) {
	var reduce func(i int) *Error
	reduce = func(i int) *Error {
		if len(stack) <= i {
			return unexpectedToken("")
		}
		if len(stack) == i+1 {
			if n := stack[i]; !n.isOperand() {
				return unexpectedToken(n.symbol.Name)
			}
			return nil
		}
		lhs := stack[i]
		if !lhs.isOperand() {
			switch lhs.symbol.Kind {
			case KindInfix, KindPostfix:
				// An operator in operand position can only be prefix.
				stack[i] = &node{kind: nodeSymbol, symbol: Prefix(lhs.symbol.Name)}
				return reduce(i)
			default: // prefix
				next := stack[i+1]
				if next.isOperand() {
					stack[i] = symbolNode(lhs.symbol, next)
					stack = append(stack[:i+1], stack[i+2:]...)
					return reduce(0)
				}
				if err := reduce(i + 1); err != nil {
					return err
				}
				return reduce(i)
			}
		}

		op := stack[i+1]
		if op.isOperand() {
			return unexpectedToken(op.description())
		}
		switch op.symbol.Kind {
		case KindPostfix:
			stack[i] = symbolNode(op.symbol, lhs)
			stack = append(stack[:i+1], stack[i+2:]...)
			return reduce(0)
		case KindPrefix:
			// An operator between two operands acts as infix regardless of
			// its whitespace classification.
			stack[i+1] = &node{kind: nodeSymbol, symbol: Infix(op.symbol.Name)}
			return reduce(i)
		}

		// op is infix.
		if len(stack) <= i+2 {
			// A trailing infix token can only have been postfix.
			stack[i] = symbolNode(Postfix(op.symbol.Name), lhs)
			stack = stack[:i+1]
			return reduce(0)
		}
		rhs := stack[i+2]
		if !rhs.isOperand() {
			// Two adjacent operator tokens: the second becomes prefix when
			// the first plausibly reads as infix-then-prefix (a + -b), else
			// the first becomes postfix.
			if rhs.symbol.Kind != KindPrefix && op.symbol.Kind == KindInfix {
				stack[i+2] = &node{kind: nodeSymbol, symbol: Prefix(rhs.symbol.Name)}
			} else if rhs.symbol.Kind != KindPrefix {
				stack[i+1] = &node{kind: nodeSymbol, symbol: Postfix(op.symbol.Name)}
				return reduce(i)
			}
			if err := reduce(i + 2); err != nil {
				return err
			}
			return reduce(i)
		}

		if len(stack) > i+3 {
			next := stack[i+3]
			if !next.isOperand() && next.symbol.Kind != KindPostfix &&
				takesPrecedence(next.symbol.Name, op.symbol.Name) {
				if err := reduce(i + 2); err != nil {
					return err
				}
				return reduce(i)
			}
			if !next.isOperand() && next.symbol.Kind == KindPostfix {
				if err := reduce(i + 2); err != nil {
					return err
				}
				return reduce(i)
			}
		}

		combined := fuseInfix(op.symbol.Name, lhs, rhs)
		stack[i] = combined
		stack = append(stack[:i+1], stack[i+3:]...)
		return reduce(0)
	}

	if err := reduce(0); err != nil {
		return nil, err
	}
	return stack[0], nil
}

// fuseInfix combines an infix application, fusing '?' then ':' into the
// single 3-ary '?:' node when both appear in the expected relative position.
// A ':' without a preceding unresolved '?' stays a plain infix symbol.
func fuseInfix(op string, lhs, rhs *node) *node {
	if op == ":" && lhs.kind == nodeSymbol && lhs.symbol == Infix("?") &&
		len(lhs.args) == 2 {
		return symbolNode(Infix("?:"), lhs.args[0], lhs.args[1], rhs)
	}
	return symbolNode(Infix(op), lhs, rhs)
}
