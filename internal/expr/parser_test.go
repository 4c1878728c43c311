package expr

import "testing"

func TestValidateAcceptsGrammar(t *testing.T) {
	valid := []string{
		"1",
		"revenue",
		"revenue < 1000 and margin > 0.1",
		"not (cost > 220)",
		"a + b * c - d / e % f",
		"-x + 2",
		"(margin < 0.15) and (technical_debt > 55)",
		"cost > (revenue * 0.78)",
		"0 < x < 10",
		"x == 1 or y != 2",
		"1.5e3 > 100",
		".5 < 1",
	}
	for _, src := range valid {
		if err := Validate(src); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", src, err)
		}
	}
}

func TestValidateEmptyExpression(t *testing.T) {
	for _, src := range []string{"", "   ", "\t\n"} {
		err := Validate(src)
		if err == nil || err.Code != CodeEmptyExpression {
			t.Errorf("Validate(%q) = %v, want %s", src, err, CodeEmptyExpression)
		}
	}
}

func TestValidateInvalidSyntax(t *testing.T) {
	invalid := []string{
		"revenue <",
		"* 5",
		"(a + b",
		"a b",
		"1.2.3",
		"and",
		"not",
		"a + + ",
		"a ? b",
	}
	for _, src := range invalid {
		err := Validate(src)
		if err == nil || err.Code != CodeInvalidSyntax {
			t.Errorf("Validate(%q) = %v, want %s", src, err, CodeInvalidSyntax)
		}
	}
}

func TestValidateDisallowedElements(t *testing.T) {
	disallowed := []string{
		`__import__('os')`,
		"os.system",
		"f(1)",
		"max(a, b)",
		"a[0]",
		`"text" == x`,
		"'text'",
		"x = 5",
		"{1: 2}",
		"a & b",
		"a | b",
		"a ** 2",
		"a // 2",
		"~x",
		"@decorator",
	}
	for _, src := range disallowed {
		err := Validate(src)
		if err == nil || err.Code != CodeDisallowedElement {
			t.Errorf("Validate(%q) = %v, want %s", src, err, CodeDisallowedElement)
		}
	}
}

// A disallowed expression must be rejected at validation; evaluation
// must never run, even partially. The variable map is a stand-in for an
// observable side effect: if evaluation touched it, the missing-variable
// code would surface instead of the disallowed code.
func TestDisallowedNeverEvaluates(t *testing.T) {
	out := EvalBool("probe(1) or unbound_variable", map[string]float64{})
	if out.Err == nil || out.Err.Code != CodeDisallowedElement {
		t.Fatalf("expected %s, got %v", CodeDisallowedElement, out.Err)
	}
	if out.Result {
		t.Error("rejected expression must read as false")
	}
}

func TestDeepNestingRejected(t *testing.T) {
	src := ""
	for i := 0; i < 500; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < 500; i++ {
		src += ")"
	}
	err := Validate(src)
	if err == nil || err.Code != CodeInvalidSyntax {
		t.Errorf("deeply nested source: got %v, want %s", err, CodeInvalidSyntax)
	}
}

func TestProgramSource(t *testing.T) {
	p, err := Compile("a + 1")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if p.Source() != "a + 1" {
		t.Errorf("Source() = %q", p.Source())
	}
}
