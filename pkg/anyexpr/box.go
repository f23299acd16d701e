// Package anyexpr wraps the numeric expression engine so ordinary-looking
// expressions ("a + b", "name == 'foo'", "x ?? fallback") can carry
// arbitrary opaque values through arithmetic and comparison operators. The
// numeric core stays oblivious: non-numeric values are smuggled through it
// as reserved quiet-NaN bit patterns indexing a bounded per-expression side
// table, while plain numbers travel unboxed on the core's native fast path.
package anyexpr

import (
	"math"
)

// boxMask is the reserved bit-pattern class: sign bit, exponent all ones,
// and the quiet bit. The default NaN produced by arithmetic (0/0) has a
// clear sign bit and never matches, so computed NaNs pass through unboxed.
const boxMask uint64 = 0xFFF8_0000_0000_0000

// Payloads within the reserved space. Three sentinels cost no table slot;
// everything else indexes the side table.
const (
	payloadNil uint64 = iota
	payloadFalse
	payloadTrue
	firstIndex
)

// MaxStoredValues bounds the side table. The tag's index space is far
// larger, but a single expression referencing hundreds of distinct boxed
// values is a host bug, not a use case; exceeding the bound is a hard error,
// never silent truncation.
const MaxStoredValues = 256

var (
	nilBits   = math.Float64frombits(boxMask | payloadNil)
	falseBits = math.Float64frombits(boxMask | payloadFalse)
	trueBits  = math.Float64frombits(boxMask | payloadTrue)
)

func isReserved(v float64) bool {
	return math.Float64bits(v)&boxMask == boxMask
}

// valueStore is the per-expression side table of boxed values. Values boxed
// during binding (literal constants, folded results) persist for the
// expression's lifetime; values boxed during a single evaluation are
// discarded by reset afterwards, so repeated evaluation with changing
// dynamic inputs cannot grow the table or leak stale indices.
type valueStore struct {
	values []any
	frozen int
}

// box encodes a value as a double. Numerics that round-trip exactly through
// double precision are returned as themselves, keeping arithmetic on
// ordinary numbers as fast as the core's native path; everything else is
// appended to the table and returned as a tagged index.
func (s *valueStore) box(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return nilBits, nil
	case bool:
		if n {
			return trueBits, nil
		}
		return falseBits, nil
	case float64:
		if isReserved(n) {
			// A double whose own bit pattern collides with the reserved
			// space must be boxed so it round-trips unchanged instead of
			// being misread as a sentinel or index.
			return s.boxIndexed(n)
		}
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return s.boxInt(int64(n))
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return s.boxInt(n)
	case uint:
		return s.boxUint(uint64(n))
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return s.boxUint(n)
	default:
		return s.boxIndexed(v)
	}
}

const maxExactInt = 1 << 53

func (s *valueStore) boxInt(n int64) (float64, error) {
	if n >= -maxExactInt && n <= maxExactInt {
		return float64(n), nil
	}
	return s.boxIndexed(n)
}

func (s *valueStore) boxUint(n uint64) (float64, error) {
	if n <= maxExactInt {
		return float64(n), nil
	}
	return s.boxIndexed(n)
}

func (s *valueStore) boxIndexed(v any) (float64, error) {
	if len(s.values) >= MaxStoredValues {
		return 0, errCapacity()
	}
	s.values = append(s.values, v)
	index := uint64(len(s.values)-1) + firstIndex
	return math.Float64frombits(boxMask | index), nil
}

// unbox is the exact inverse of box: a tagged double yields the sentinel or
// stored value it encodes, any other bit pattern is a plain number.
func (s *valueStore) unbox(d float64) any {
	bits := math.Float64bits(d)
	if bits&boxMask != boxMask {
		return d
	}
	switch payload := bits &^ boxMask; payload {
	case payloadNil:
		return nil
	case payloadFalse:
		return false
	case payloadTrue:
		return true
	default:
		if i := int(payload - firstIndex); i < len(s.values) {
			return s.values[i]
		}
		return d
	}
}

// freeze snapshots the table after binding; everything stored so far is a
// bind-time literal that must survive across evaluations.
func (s *valueStore) freeze() {
	s.frozen = len(s.values)
}

// reset restores the table to its bind-time contents, discarding values
// stored during the evaluation that just finished.
func (s *valueStore) reset() {
	s.values = s.values[:s.frozen]
}
