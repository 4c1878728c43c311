package expr

import (
	"math"
)

// All arithmetic is IEEE-754 double precision. Logical and/or return
// the deciding operand's value (so "0 or 5" is 5), comparisons yield
// 1 or 0, and truthiness is "not equal to zero". This mirrors the
// numeric semantics the stored expressions were authored against.

type node interface{ eval(vars map[string]float64) (float64, *Error) }

type numberNode float64

func (n numberNode) eval(map[string]float64) (float64, *Error) { return float64(n), nil }

type identNode string

func (n identNode) eval(vars map[string]float64) (float64, *Error) {
	v, ok := vars[string(n)]
	if !ok {
		return 0, errf(CodeMissingVariable, "name %q is not defined", string(n))
	}
	return v, nil
}

type negNode struct{ x node }

func (n *negNode) eval(vars map[string]float64) (float64, *Error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

type notNode struct{ x node }

func (n *notNode) eval(vars map[string]float64) (float64, *Error) {
	v, err := n.x.eval(vars)
	if err != nil {
		return 0, err
	}
	if truthy(v) {
		return 0, nil
	}
	return 1, nil
}

type binaryNode struct {
	op   tokKind
	x, y node
}

func (n *binaryNode) eval(vars map[string]float64) (float64, *Error) {
	a, err := n.x.eval(vars)
	if err != nil {
		return 0, err
	}
	b, err := n.y.eval(vars)
	if err != nil {
		return 0, err
	}

	switch n.op {
	case tokPlus:
		return a + b, nil
	case tokMinus:
		return a - b, nil
	case tokStar:
		return a * b, nil
	case tokSlash:
		if b == 0 {
			return 0, errf(CodeEvaluationError, "division by zero")
		}
		return a / b, nil
	case tokPercent:
		if b == 0 {
			return 0, errf(CodeEvaluationError, "modulo by zero")
		}
		// Result takes the sign of the divisor, matching the semantics
		// the stored expressions were written against.
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return r, nil
	}
	return 0, errf(CodeEvaluationError, "unknown operator")
}

// logicalNode is an n-ary and/or with short-circuit evaluation.
type logicalNode struct {
	op    tokKind
	terms []node
}

func (n *logicalNode) eval(vars map[string]float64) (float64, *Error) {
	var v float64
	for _, t := range n.terms {
		var err *Error
		v, err = t.eval(vars)
		if err != nil {
			return 0, err
		}
		if n.op == tokAnd && !truthy(v) {
			return v, nil
		}
		if n.op == tokOr && truthy(v) {
			return v, nil
		}
	}
	return v, nil
}

// compareNode is a chained comparison; every link must hold and each
// operand is evaluated once.
type compareNode struct {
	first node
	ops   []tokKind
	rest  []node
}

func (n *compareNode) eval(vars map[string]float64) (float64, *Error) {
	left, err := n.first.eval(vars)
	if err != nil {
		return 0, err
	}
	for i, op := range n.ops {
		right, err := n.rest[i].eval(vars)
		if err != nil {
			return 0, err
		}
		var ok bool
		switch op {
		case tokEQ:
			ok = left == right
		case tokNE:
			ok = left != right
		case tokLT:
			ok = left < right
		case tokLE:
			ok = left <= right
		case tokGT:
			ok = left > right
		case tokGE:
			ok = left >= right
		}
		if !ok {
			return 0, nil
		}
		left = right
	}
	return 1, nil
}

func truthy(v float64) bool { return v != 0 }

// EvalBool evaluates the program in boolean mode: the final value is
// coerced via truthiness. Faults are recorded in the result, never
// raised; an errored evaluation reads as false.
func (p *Program) EvalBool(vars map[string]float64) BoolResult {
	v, err := p.root.eval(vars)
	if err != nil {
		return BoolResult{Err: err}
	}
	return BoolResult{Result: truthy(v)}
}

// EvalNumeric evaluates the program in numeric mode: the final value
// must be a finite float.
func (p *Program) EvalNumeric(vars map[string]float64) NumericResult {
	v, err := p.root.eval(vars)
	if err != nil {
		return NumericResult{Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NumericResult{Err: errf(CodeEvaluationError, "non-finite result")}
	}
	return NumericResult{Value: v, Valid: true}
}
