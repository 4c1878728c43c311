package expr

import (
	"strconv"
	"strings"
)

// Grammar, precedence low to high:
//
//	expr       = orExpr
//	orExpr     = andExpr { "or" andExpr }
//	andExpr    = notExpr { "and" notExpr }
//	notExpr    = "not" notExpr | comparison
//	comparison = additive { ("=="|"!="|"<"|"<="|">"|">=") additive }
//	additive   = multiplicative { ("+"|"-") multiplicative }
//	multiplicative = unary { ("*"|"/"|"%") unary }
//	unary      = "-" unary | primary
//	primary    = NUMBER | IDENT | "(" expr ")"
//
// Comparisons chain: a < b < c means a < b and b < c with b evaluated
// once. There are no function calls, no strings, no containers, no
// assignment, and no way to loop or recurse, so evaluation cost is
// linear in source length.

type tokKind int

const (
	tokEOF tokKind = iota
	tokNumber
	tokIdent
	tokAnd
	tokOr
	tokNot
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokPercent
	tokLParen
	tokRParen
	tokEQ
	tokNE
	tokLT
	tokLE
	tokGT
	tokGE
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

// maxDepth bounds parser recursion so pathological nesting cannot
// exhaust the stack.
const maxDepth = 200

// Compile scans and parses source into a validated Program.
func Compile(source string) (*Program, *Error) {
	if strings.TrimSpace(source) == "" {
		return nil, &Error{Code: CodeEmptyExpression}
	}

	toks, serr := scan(source)
	if serr != nil {
		return nil, serr
	}

	p := &parser{toks: toks}
	root, perr := p.parseExpr(0)
	if perr != nil {
		return nil, perr
	}
	if p.peek().kind != tokEOF {
		return nil, errf(CodeInvalidSyntax, "unexpected %q", p.peek().text)
	}

	return &Program{source: source, root: root}, nil
}

// scan tokenizes source. Characters that belong to constructs outside
// the grammar are reported as disallowed elements rather than generic
// syntax errors, so tenants get a stable, actionable code.
func scan(source string) ([]token, *Error) {
	var toks []token
	i := 0
	n := len(source)

	for i < n {
		c := source[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
			continue

		case c >= '0' && c <= '9', c == '.' && i+1 < n && source[i+1] >= '0' && source[i+1] <= '9':
			start := i
			i = scanNumberEnd(source, i)
			text := source[start:i]
			num, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, errf(CodeInvalidSyntax, "bad number %q", text)
			}
			toks = append(toks, token{kind: tokNumber, text: text, num: num, pos: start})
			continue

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(source[i]) {
				i++
			}
			text := source[start:i]
			kind := tokIdent
			switch text {
			case "and":
				kind = tokAnd
			case "or":
				kind = tokOr
			case "not":
				kind = tokNot
			}
			toks = append(toks, token{kind: kind, text: text, pos: start})
			continue
		}

		two := ""
		if i+1 < n {
			two = source[i : i+2]
		}

		switch {
		case two == "==":
			toks = append(toks, token{kind: tokEQ, text: two, pos: i})
			i += 2
		case two == "!=":
			toks = append(toks, token{kind: tokNE, text: two, pos: i})
			i += 2
		case two == "<=":
			toks = append(toks, token{kind: tokLE, text: two, pos: i})
			i += 2
		case two == ">=":
			toks = append(toks, token{kind: tokGE, text: two, pos: i})
			i += 2
		case two == "**" || two == "//":
			// Power and floor division exist in the source language the
			// DSL resembles but are outside the allowed grammar.
			return nil, errf(CodeDisallowedElement, "operator %q", two)
		case c == '<':
			toks = append(toks, token{kind: tokLT, text: "<", pos: i})
			i++
		case c == '>':
			toks = append(toks, token{kind: tokGT, text: ">", pos: i})
			i++
		case c == '+':
			toks = append(toks, token{kind: tokPlus, text: "+", pos: i})
			i++
		case c == '-':
			toks = append(toks, token{kind: tokMinus, text: "-", pos: i})
			i++
		case c == '*':
			toks = append(toks, token{kind: tokStar, text: "*", pos: i})
			i++
		case c == '/':
			toks = append(toks, token{kind: tokSlash, text: "/", pos: i})
			i++
		case c == '%':
			toks = append(toks, token{kind: tokPercent, text: "%", pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case isDisallowedPunct(c):
			return nil, errf(CodeDisallowedElement, "character %q", string(c))
		default:
			return nil, errf(CodeInvalidSyntax, "unexpected character %q", string(c))
		}
	}

	toks = append(toks, token{kind: tokEOF, pos: n})
	return toks, nil
}

func scanNumberEnd(source string, i int) int {
	n := len(source)
	for i < n && (source[i] >= '0' && source[i] <= '9' || source[i] == '.') {
		i++
	}
	// optional exponent
	if i < n && (source[i] == 'e' || source[i] == 'E') {
		j := i + 1
		if j < n && (source[j] == '+' || source[j] == '-') {
			j++
		}
		if j < n && source[j] >= '0' && source[j] <= '9' {
			i = j
			for i < n && source[i] >= '0' && source[i] <= '9' {
				i++
			}
		}
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// isDisallowedPunct reports characters that open constructs the grammar
// deliberately excludes: attribute access, subscripting, containers,
// strings, assignment, bitwise operators, and decorators.
func isDisallowedPunct(c byte) bool {
	switch c {
	case '.', ',', '[', ']', '{', '}', ':', ';', '=', '&', '|', '^', '~', '@', '"', '\'':
		return true
	}
	return false
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) parseExpr(depth int) (node, *Error) {
	return p.parseOr(depth)
}

func (p *parser) parseOr(depth int) (node, *Error) {
	if depth > maxDepth {
		return nil, errf(CodeInvalidSyntax, "expression too deeply nested")
	}
	first, err := p.parseAnd(depth + 1)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokOr {
		return first, nil
	}
	terms := []node{first}
	for p.peek().kind == tokOr {
		p.next()
		t, err := p.parseAnd(depth + 1)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return &logicalNode{op: tokOr, terms: terms}, nil
}

func (p *parser) parseAnd(depth int) (node, *Error) {
	first, err := p.parseNot(depth + 1)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokAnd {
		return first, nil
	}
	terms := []node{first}
	for p.peek().kind == tokAnd {
		p.next()
		t, err := p.parseNot(depth + 1)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return &logicalNode{op: tokAnd, terms: terms}, nil
}

func (p *parser) parseNot(depth int) (node, *Error) {
	if depth > maxDepth {
		return nil, errf(CodeInvalidSyntax, "expression too deeply nested")
	}
	if p.peek().kind == tokNot {
		p.next()
		x, err := p.parseNot(depth + 1)
		if err != nil {
			return nil, err
		}
		return &notNode{x: x}, nil
	}
	return p.parseComparison(depth + 1)
}

func isCmp(k tokKind) bool {
	switch k {
	case tokEQ, tokNE, tokLT, tokLE, tokGT, tokGE:
		return true
	}
	return false
}

func (p *parser) parseComparison(depth int) (node, *Error) {
	left, err := p.parseAdditive(depth + 1)
	if err != nil {
		return nil, err
	}
	if !isCmp(p.peek().kind) {
		return left, nil
	}
	cmp := &compareNode{first: left}
	for isCmp(p.peek().kind) {
		op := p.next().kind
		right, err := p.parseAdditive(depth + 1)
		if err != nil {
			return nil, err
		}
		cmp.ops = append(cmp.ops, op)
		cmp.rest = append(cmp.rest, right)
	}
	return cmp, nil
}

func (p *parser) parseAdditive(depth int) (node, *Error) {
	left, err := p.parseMultiplicative(depth + 1)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokPlus || p.peek().kind == tokMinus {
		op := p.next().kind
		right, err := p.parseMultiplicative(depth + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, x: left, y: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative(depth int) (node, *Error) {
	left, err := p.parseUnary(depth + 1)
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokStar || p.peek().kind == tokSlash || p.peek().kind == tokPercent {
		op := p.next().kind
		right, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, x: left, y: right}
	}
	return left, nil
}

func (p *parser) parseUnary(depth int) (node, *Error) {
	if depth > maxDepth {
		return nil, errf(CodeInvalidSyntax, "expression too deeply nested")
	}
	if p.peek().kind == tokMinus {
		p.next()
		x, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		return &negNode{x: x}, nil
	}
	return p.parsePrimary(depth + 1)
}

func (p *parser) parsePrimary(depth int) (node, *Error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.next()
		return numberNode(t.num), nil

	case tokIdent:
		p.next()
		// An opening paren directly after an identifier is a function
		// call, which the grammar forbids.
		if p.peek().kind == tokLParen {
			return nil, errf(CodeDisallowedElement, "call of %q", t.text)
		}
		return identNode(t.text), nil

	case tokLParen:
		p.next()
		inner, err := p.parseExpr(depth + 1)
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, errf(CodeInvalidSyntax, "missing closing parenthesis")
		}
		p.next()
		return inner, nil

	case tokEOF:
		return nil, errf(CodeInvalidSyntax, "unexpected end of expression")

	default:
		return nil, errf(CodeInvalidSyntax, "unexpected %q", t.text)
	}
}
