package expression

import (
	"strings"
	"sync"
)

// The process-wide parse cache. Expressions are typically small and reused
// across many evaluation cycles, and parsing is strictly more expensive than
// rebinding symbols, so parsed trees are memoized by exact source string.
// The lock guards only the map reads and writes, never a parse itself: a
// cache-miss parse on one goroutine does not block lookups of unrelated
// entries. Entries are never evicted automatically.
var parseCache = struct {
	sync.Mutex
	trees map[string]*ParsedExpression
}{trees: make(map[string]*ParsedExpression)}

// Parse parses an expression source string, returning a cached tree when one
// exists. The returned ParsedExpression is immutable and shared; bind it as
// many times as needed.
func Parse(source string) *ParsedExpression {
	parseCache.Lock()
	cached := parseCache.trees[source]
	parseCache.Unlock()
	if cached != nil {
		return cached
	}

	parsed := ParseUncached(source)

	parseCache.Lock()
	parseCache.trees[source] = parsed
	parseCache.Unlock()
	return parsed
}

// ParseUncached parses an expression without consulting or populating the
// cache.
func ParseUncached(source string) *ParsedExpression {
	cur := newCursor(source)
	p := &parser{cur: cur}
	root, err := p.parseSubexpression()
	if err == nil && !cur.atEnd() {
		cur.skipWhitespace()
		if !cur.atEnd() {
			err = unexpectedToken(strings.TrimSpace(cur.remaining()))
		}
	}
	if err != nil {
		if root != nil {
			root = errorNode(err, source, root)
		} else {
			root = errorNode(err, source)
		}
	}
	return &ParsedExpression{root: root, source: source}
}

// ParseUpTo parses an expression embedded in host text, stopping without
// consuming input at the first of the delimiter strings (or end of input).
// It returns the parsed expression and the unconsumed remainder, and is
// deliberately uncached since the delimiters change the production.
func ParseUpTo(source string, delimiters ...string) (*ParsedExpression, string) {
	cur := newCursor(source)
	p := &parser{cur: cur, delimiters: delimiters}
	root, err := p.parseSubexpression()
	if err != nil {
		if root != nil {
			root = errorNode(err, source, root)
		} else {
			root = errorNode(err, source)
		}
	}
	return &ParsedExpression{root: root, source: source}, cur.remaining()
}

// ClearCache empties the parse cache.
func ClearCache() {
	parseCache.Lock()
	parseCache.trees = make(map[string]*ParsedExpression)
	parseCache.Unlock()
}

// ClearCacheFor evicts the cache entry for a single source string, leaving
// unrelated entries in place.
func ClearCacheFor(source string) {
	parseCache.Lock()
	delete(parseCache.trees, source)
	parseCache.Unlock()
}
