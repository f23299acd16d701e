package anyexpr

// EvaluateFloat64 evaluates the expression and coerces the result to a
// double. Bools coerce to 1 and 0; nil and strings do not coerce.
func (e *AnyExpression) EvaluateFloat64() (float64, error) {
	v, err := e.Evaluate()
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, errUnexpectedNil()
	}
	n, ok := toNumber(v)
	if !ok {
		return 0, errResultMismatch(v, "float64")
	}
	return n, nil
}

// EvaluateInt64 evaluates the expression and coerces the result to an
// integer, truncating any fractional part.
func (e *AnyExpression) EvaluateInt64() (int64, error) {
	v, err := e.Evaluate()
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case nil:
		return 0, errUnexpectedNil()
	}
	n, ok := toNumber(v)
	if !ok {
		return 0, errResultMismatch(v, "int64")
	}
	return int64(n), nil
}

// EvaluateBool evaluates the expression and coerces the result to a bool.
// Numbers are true when nonzero.
func (e *AnyExpression) EvaluateBool() (bool, error) {
	v, err := e.Evaluate()
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, errUnexpectedNil()
	}
	b, ok := truthy(v)
	if !ok {
		return false, errResultMismatch(v, "bool")
	}
	return b, nil
}

// EvaluateString evaluates the expression and renders the result as a
// string. Unlike the other typed helpers, nil renders as the empty string
// rather than failing, matching how nil behaves in concatenation.
func (e *AnyExpression) EvaluateString() (string, error) {
	v, err := e.Evaluate()
	if err != nil {
		return "", err
	}
	return stringify(v), nil
}
