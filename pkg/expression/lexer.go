package expression

import (
	"strconv"
	"strings"
	"unicode"
)

// cursor is a save/restore scanner over the unicode scalars of an expression
// source string. Scan methods return "no match" (ok == false) when input does
// not start with their expected lead scalar and leave the position untouched;
// only structurally broken constructs (an unterminated quote, a malformed
// escape) produce typed errors. Higher-level combinators that try an
// alternative must restore a saved position first.
type cursor struct {
	src []rune
	pos int
}

func newCursor(s string) *cursor {
	return &cursor{src: []rune(s)}
}

func (c *cursor) atEnd() bool {
	return c.pos >= len(c.src)
}

func (c *cursor) peek() rune {
	if c.atEnd() {
		return 0
	}
	return c.src[c.pos]
}

func (c *cursor) save() int      { return c.pos }
func (c *cursor) restore(p int)  { c.pos = p }
func (c *cursor) remaining() string {
	return string(c.src[c.pos:])
}

// skipWhitespace advances past whitespace and reports whether any was
// consumed. The start of input counts as whitespace for operator
// classification.
func (c *cursor) skipWhitespace() bool {
	skipped := c.pos == 0
	for !c.atEnd() && unicode.IsSpace(c.src[c.pos]) {
		c.pos++
		skipped = true
	}
	return skipped
}

// followedByWhitespace reports whether the scalar at the current position is
// whitespace or end of input, without consuming it.
func (c *cursor) followedByWhitespace() bool {
	return c.atEnd() || unicode.IsSpace(c.src[c.pos])
}

// scanString consumes the exact string s if present.
func (c *cursor) scanString(s string) bool {
	p := c.pos
	for _, r := range s {
		if p >= len(c.src) || c.src[p] != r {
			return false
		}
		p++
	}
	c.pos = p
	return true
}

// lookingAt reports whether the input at the cursor starts with s.
func (c *cursor) lookingAt(s string) bool {
	p := c.save()
	ok := c.scanString(s)
	c.restore(p)
	return ok
}

func (c *cursor) scanRune(pred func(rune) bool) (rune, bool) {
	if c.atEnd() || !pred(c.src[c.pos]) {
		return 0, false
	}
	r := c.src[c.pos]
	c.pos++
	return r, true
}

func (c *cursor) scanRunes(pred func(rune) bool) (string, bool) {
	start := c.pos
	for !c.atEnd() && pred(c.src[c.pos]) {
		c.pos++
	}
	if c.pos == start {
		return "", false
	}
	return string(c.src[start:c.pos]), true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func isIdentHead(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) ||
		unicode.Is(unicode.Sc, r) // currency-like lead scalars
}

func isIdentBody(r rune) bool {
	return isIdentHead(r) || isDigit(r)
}

// Operator character set. '.' and '-' are handled separately so that member
// chains and negative literals scan correctly.
const operatorChars = "/=+!*%<>&|^~?:,"

func isOperatorRune(r rune) bool {
	return strings.ContainsRune(operatorChars, r)
}

// scanNumber scans an integer, fractional, hex-prefixed, or exponent-form
// numeric literal. A malformed exponent is a typed parse error embedding the
// partial text.
func (c *cursor) scanNumber() (float64, string, *Error, bool) {
	start := c.save()
	if !isDigit(c.peek()) {
		return 0, "", nil, false
	}

	// Hex literal.
	if c.scanString("0x") || c.scanString("0X") {
		digits, ok := c.scanRunes(isHexDigit)
		if !ok {
			text := string(c.src[start:c.pos])
			return 0, text, unexpectedToken(text), true
		}
		u, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			text := string(c.src[start:c.pos])
			return 0, text, unexpectedToken(text), true
		}
		return float64(u), string(c.src[start:c.pos]), nil, true
	}

	c.scanRunes(isDigit)
	if p := c.save(); c.scanString(".") {
		if _, ok := c.scanRunes(isDigit); !ok {
			c.restore(p) // trailing '.' is an operator, not a fraction
		}
	}
	if c.scanString("e") || c.scanString("E") {
		if !c.scanString("+") {
			c.scanString("-")
		}
		if _, ok := c.scanRunes(isDigit); !ok {
			text := string(c.src[start:c.pos])
			return 0, text, unexpectedToken(text), true
		}
	}

	text := string(c.src[start:c.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, text, unexpectedToken(text), true
	}
	return v, text, nil, true
}

// scanIdentifier scans a plain identifier: a letter/underscore/currency lead
// scalar, dot-separated segments, and optional trailing prime quotes.
func (c *cursor) scanIdentifier() (string, bool) {
	start := c.save()
	if _, ok := c.scanRune(isIdentHead); !ok {
		return "", false
	}
	c.scanRunes(isIdentBody)
	for {
		p := c.save()
		if !c.scanString(".") {
			break
		}
		if _, ok := c.scanRune(isIdentHead); !ok {
			c.restore(p) // member-access dot needs a following segment
			break
		}
		c.scanRunes(isIdentBody)
	}
	c.scanRunes(func(r rune) bool { return r == '\'' })
	return string(c.src[start:c.pos]), true
}

// scanQuotedIdentifier scans a single/double/backtick-delimited identifier.
// The returned name is the raw source text including delimiters; the second
// result is the unescaped content. An unterminated quote or `\u{` escape is
// a typed parse error.
func (c *cursor) scanQuotedIdentifier() (string, *Error, bool) {
	delim := c.peek()
	if delim != '\'' && delim != '"' && delim != '`' {
		return "", nil, false
	}
	start := c.save()
	c.pos++
	for !c.atEnd() {
		r := c.src[c.pos]
		switch r {
		case delim:
			c.pos++
			return string(c.src[start:c.pos]), nil, true
		case '\\':
			c.pos++
			if c.atEnd() {
				return "", missingDelimiter(string(delim)), true
			}
			if c.src[c.pos] == 'u' {
				c.pos++
				if !c.scanString("{") {
					return "", unexpectedToken("\\u"), true
				}
				if _, ok := c.scanRunes(isHexDigit); !ok {
					return "", unexpectedToken("\\u{"), true
				}
				if !c.scanString("}") {
					return "", missingDelimiter("}"), true
				}
				continue
			}
			c.pos++
		default:
			c.pos++
		}
	}
	return "", missingDelimiter(string(delim)), true
}

// UnquoteIdentifier resolves the escapes in a quoted identifier as returned
// by the parser (delimiters included) and returns its content. It reports
// false for names that are not quoted identifiers.
func UnquoteIdentifier(name string) (string, bool) {
	if len(name) < 2 {
		return "", false
	}
	delim := rune(name[0])
	if delim != '\'' && delim != '"' && delim != '`' {
		return "", false
	}
	runes := []rune(name)
	if runes[len(runes)-1] != delim {
		return "", false
	}
	var sb strings.Builder
	body := runes[1 : len(runes)-1]
	for i := 0; i < len(body); i++ {
		r := body[i]
		if r != '\\' || i+1 >= len(body) {
			sb.WriteRune(r)
			continue
		}
		i++
		switch body[i] {
		case '0':
			sb.WriteByte(0)
		case 't':
			sb.WriteByte('\t')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 'u':
			if i+1 < len(body) && body[i+1] == '{' {
				j := i + 2
				for j < len(body) && body[j] != '}' {
					j++
				}
				u, err := strconv.ParseUint(string(body[i+2:j]), 16, 32)
				if err == nil {
					sb.WriteRune(rune(u))
				}
				i = j
			}
		default:
			sb.WriteRune(body[i])
		}
	}
	return sb.String(), true
}

// scanOperator scans an operator token with maximal munch, giving '.' and '-'
// special lead handling. It never consumes a delimiter string.
func (c *cursor) scanOperator(delimiters []string) (string, bool) {
	if c.matchesDelimiter(delimiters) {
		return "", false
	}
	start := c.save()
	var op string
	if s, ok := c.scanRunes(func(r rune) bool { return r == '.' }); ok {
		op = s
	} else if s, ok := c.scanRunes(func(r rune) bool { return r == '-' }); ok {
		op = s
	}
	if tail, ok := c.scanRunes(isOperatorRune); ok {
		op += tail
	}
	if op == "" {
		c.restore(start)
		return "", false
	}
	// Back off trailing runes that would swallow a delimiter, e.g. an
	// expression embedded up to "," inside "min(a, b)".
	for op != "" && endsWithDelimiter(op, delimiters) {
		op = op[:len(op)-1]
		c.restore(start + len([]rune(op)))
		if op == "" {
			c.restore(start)
			return "", false
		}
	}
	return op, true
}

func endsWithDelimiter(op string, delimiters []string) bool {
	for _, d := range delimiters {
		if strings.HasSuffix(op, d) {
			return true
		}
	}
	return false
}

func (c *cursor) matchesDelimiter(delimiters []string) bool {
	for _, d := range delimiters {
		if c.lookingAt(d) {
			return true
		}
	}
	return false
}
