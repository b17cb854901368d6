package formula

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Parse parses src into an expression tree. Operators outside mode are
// rejected with INVALID_FORMULA.
//
// Precedence, lowest first: or, and, not, comparison, + -, * / %, unary +/-, **.
// ** is right-associative and binds tighter than unary minus, so -2**2 is -4.
func Parse(src string, mode Mode) (Expr, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, invalid(src, err.Error())
	}
	p := &parser{src: src, tokens: tokens, mode: mode}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}
	return e, nil
}

type parser struct {
	src    string
	tokens []token
	pos    int
	mode   Mode
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) acceptOp(ops ...string) (string, bool) {
	tok := p.peek()
	if tok.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if tok.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *parser) requireCondition(tok token) error {
	if p.mode != Condition {
		return p.errorf(tok, "operator %q is not allowed in arithmetic formulas", tok.text)
	}
	return nil
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if _, ok := p.acceptOp("or"); !ok {
			return left, nil
		}
		if err := p.requireCondition(tok); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: "or", L: left, R: right}
	}
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if _, ok := p.acceptOp("and"); !ok {
			return left, nil
		}
		if err := p.requireCondition(tok); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: "and", L: left, R: right}
	}
}

func (p *parser) parseNot() (Expr, error) {
	tok := p.peek()
	if _, ok := p.acceptOp("not"); ok {
		if err := p.requireCondition(tok); err != nil {
			return nil, err
		}
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return Unary{Op: "not", X: x}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	op, ok := p.acceptOp("==", "!=", "<", "<=", ">", ">=")
	if !ok {
		return left, nil
	}
	if err := p.requireCondition(tok); err != nil {
		return nil, err
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if next := p.peek(); next.kind == tokOp && compareOps[next.text] {
		return nil, p.errorf(next, "chained comparisons are not supported")
	}
	return Binary{Op: op, L: left, R: right}, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("+", "-")
		if !ok {
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.acceptOp("*", "/", "%")
		if !ok {
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = Binary{Op: op, L: left, R: right}
	}
}

func (p *parser) parseUnary() (Expr, error) {
	if op, ok := p.acceptOp("+", "-"); ok {
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Unary{Op: op, X: x}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if _, ok := p.acceptOp("**"); ok {
		// the exponent may itself carry a sign: 2 ** -1
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Binary{Op: "**", L: base, R: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		value, err := decimal.NewFromString(tok.text)
		if err != nil {
			return nil, p.errorf(tok, "malformed number %q", tok.text)
		}
		return Number{Value: value}, nil
	case tokIdent:
		return Ident{Name: tok.text}, nil
	case tokLParen:
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected )")
		}
		return e, nil
	case tokEOF:
		return nil, p.errorf(tok, "unexpected end of formula")
	default:
		return nil, p.errorf(tok, "unexpected %q", tok.text)
	}
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return invalid(p.src, fmt.Sprintf(format, args...)+fmt.Sprintf(" at position %d", tok.pos))
}

func invalid(src, reason string) error {
	return shared.NewDomainError(shared.CodeInvalidFormula, reason).
		WithDetails(map[string]any{"formula": src})
}
