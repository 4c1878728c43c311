package expr

import (
	"math"
	"testing"
)

func TestEvalBoolBasic(t *testing.T) {
	vars := map[string]float64{"revenue": 500, "margin": 0.2}

	cases := []struct {
		src  string
		want bool
	}{
		{"revenue < 1000 and margin > 0.1", true},
		{"revenue > 1000", false},
		{"not (revenue > 1000)", true},
		{"revenue == 500", true},
		{"revenue != 500", false},
		{"margin >= 0.2 and margin <= 0.2", true},
		{"0 < margin < 1", true},
		{"revenue < 400 or margin > 0.1", true},
		{"0", false},
		{"1 + 1", true},
	}
	for _, tc := range cases {
		out := EvalBool(tc.src, vars)
		if out.Err != nil {
			t.Errorf("EvalBool(%q) error: %v", tc.src, out.Err)
			continue
		}
		if out.Result != tc.want {
			t.Errorf("EvalBool(%q) = %v, want %v", tc.src, out.Result, tc.want)
		}
	}
}

func TestEvalNumeric(t *testing.T) {
	vars := map[string]float64{"revenue": 900, "margin": 0.2, "cost": 100, "technical_debt": 50}

	cases := []struct {
		src  string
		want float64
	}{
		{"revenue * margin", 180},
		{"revenue + cost", 1000},
		{"-cost", -100},
		{"revenue - cost * 2", 700},
		{"(revenue - cost) * 2", 1600},
		{"(cost * 0.04) + (technical_debt * 0.06) - (margin * 0.15)", 100*0.04 + 50*0.06 - 0.2*0.15},
		{"7 % 3", 1},
		{"-7 % 3", 2}, // sign follows the divisor
		{"revenue / 3", 300},
	}
	for _, tc := range cases {
		out := EvalNumeric(tc.src, vars)
		if out.Err != nil {
			t.Errorf("EvalNumeric(%q) error: %v", tc.src, out.Err)
			continue
		}
		if math.Abs(out.Value-tc.want) > 1e-12 {
			t.Errorf("EvalNumeric(%q) = %v, want %v", tc.src, out.Value, tc.want)
		}
	}
}

func TestMissingVariable(t *testing.T) {
	out := EvalBool("x > 1", map[string]float64{})
	if out.Err == nil || out.Err.Code != CodeMissingVariable {
		t.Fatalf("expected %s, got %v", CodeMissingVariable, out.Err)
	}
	if out.Result {
		t.Error("missing variable must read as false")
	}

	num := EvalNumeric("revenue * unknown_var", map[string]float64{"revenue": 100})
	if num.Err == nil || num.Err.Code != CodeMissingVariable {
		t.Fatalf("expected %s, got %v", CodeMissingVariable, num.Err)
	}
	if num.Valid {
		t.Error("missing variable must not produce a value")
	}
}

func TestDivisionByZero(t *testing.T) {
	for _, src := range []string{"1 / 0", "1 % 0", "x / (y - y)"} {
		out := EvalNumeric(src, map[string]float64{"x": 1, "y": 2})
		if out.Err == nil || out.Err.Code != CodeEvaluationError {
			t.Errorf("EvalNumeric(%q) = %v, want %s", src, out.Err, CodeEvaluationError)
		}
	}
}

func TestLogicalOperandValues(t *testing.T) {
	// and/or return the deciding operand's value, so they compose into
	// arithmetic the way the stored formulas expect.
	cases := []struct {
		src  string
		want float64
	}{
		{"0 or 5", 5},
		{"2 and 3", 3},
		{"0 and 3", 0},
		{"2 or 3", 2},
		{"(1 and 4) + 1", 5},
	}
	for _, tc := range cases {
		out := EvalNumeric(tc.src, map[string]float64{})
		if out.Err != nil {
			t.Errorf("EvalNumeric(%q) error: %v", tc.src, out.Err)
			continue
		}
		if out.Value != tc.want {
			t.Errorf("EvalNumeric(%q) = %v, want %v", tc.src, out.Value, tc.want)
		}
	}
}

func TestShortCircuitSkipsMissingVariable(t *testing.T) {
	// The right side never evaluates when the left side decides.
	out := EvalBool("1 == 1 or unbound > 0", map[string]float64{})
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if !out.Result {
		t.Error("expected true")
	}

	out = EvalBool("1 == 2 and unbound > 0", map[string]float64{})
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Result {
		t.Error("expected false")
	}
}

func TestNaNComparisonsAreFalse(t *testing.T) {
	vars := map[string]float64{"x": math.NaN()}
	for _, src := range []string{"x > 0", "x < 0", "x == x"} {
		out := EvalBool(src, vars)
		if out.Err != nil {
			t.Fatalf("EvalBool(%q) error: %v", src, out.Err)
		}
		if out.Result {
			t.Errorf("EvalBool(%q) = true, want false", src)
		}
	}
}

func TestNonFiniteNumericResult(t *testing.T) {
	out := EvalNumeric("x + 1", map[string]float64{"x": math.Inf(1)})
	if out.Err == nil || out.Err.Code != CodeEvaluationError {
		t.Fatalf("expected %s, got %v", CodeEvaluationError, out.Err)
	}
}

func TestCompiledProgramIsReusable(t *testing.T) {
	p, cerr := Compile("x * 2")
	if cerr != nil {
		t.Fatalf("Compile: %v", cerr)
	}
	for i := 0; i < 3; i++ {
		out := p.EvalNumeric(map[string]float64{"x": float64(i)})
		if out.Err != nil || out.Value != float64(i*2) {
			t.Fatalf("iteration %d: %+v", i, out)
		}
	}
}
