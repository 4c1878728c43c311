// Package expr implements the tenant-facing expression DSL: a closed
// arithmetic/boolean grammar over float variables, with a from-scratch
// scanner, parser, and tree-walking evaluator.
//
// The grammar is an allow-list. Anything it cannot express — function
// calls, attribute access, subscripting, string literals, assignment —
// is rejected before evaluation with a stable error code. The package
// never executes source through any general-purpose code facility, and
// no failure crosses its boundary as a panic: all faults are values.
package expr

import "fmt"

// Code is a stable, machine-readable expression error code.
type Code string

const (
	// CodeEmptyExpression marks a strictly empty or whitespace-only source.
	CodeEmptyExpression Code = "empty_expression"

	// CodeInvalidSyntax marks source the grammar cannot parse.
	CodeInvalidSyntax Code = "invalid_syntax"

	// CodeDisallowedElement marks a recognizable construct outside the
	// allow-listed grammar (call, attribute, subscript, string, ...).
	CodeDisallowedElement Code = "disallowed_expression_element"

	// CodeMissingVariable marks an identifier with no bound input value.
	CodeMissingVariable Code = "missing_variable"

	// CodeEvaluationError marks any runtime fault: division or modulo
	// by zero, or a non-finite numeric result.
	CodeEvaluationError Code = "evaluation_error"
)

// Error is a classified expression failure. Detail is optional,
// human-oriented context (for example the missing variable name).
type Error struct {
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// String renders the error the way snapshots record it: the bare code,
// or "code:detail" when detail is present.
func (e *Error) String() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return string(e.Code)
	}
	return string(e.Code) + ":" + e.Detail
}

func errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Program is a parsed, validated expression ready for evaluation.
// A Program is immutable and safe for concurrent use.
type Program struct {
	source string
	root   node
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.source }

// Validate parses the source and returns nil when it conforms to the
// grammar, or the classified error otherwise. Validation never
// evaluates anything.
func Validate(source string) *Error {
	_, err := Compile(source)
	return err
}

// BoolResult is the outcome of a boolean-mode evaluation. An errored
// evaluation yields Result=false with the error recorded inline.
type BoolResult struct {
	Result bool
	Err    *Error
}

// NumericResult is the outcome of a numeric-mode evaluation. Valid is
// false when the expression failed or produced a non-finite value.
type NumericResult struct {
	Value float64
	Valid bool
	Err   *Error
}

// EvalBool compiles and evaluates source in boolean mode.
func EvalBool(source string, vars map[string]float64) BoolResult {
	p, err := Compile(source)
	if err != nil {
		return BoolResult{Err: err}
	}
	return p.EvalBool(vars)
}

// EvalNumeric compiles and evaluates source in numeric mode.
func EvalNumeric(source string, vars map[string]float64) NumericResult {
	p, err := Compile(source)
	if err != nil {
		return NumericResult{Err: err}
	}
	return p.EvalNumeric(vars)
}
