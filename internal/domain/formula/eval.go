package formula

import (
	"fmt"
	"math"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Eval evaluates e over vars. Booleans are represented as 1 and 0.
func Eval(e Expr, vars Vars) (decimal.Decimal, error) {
	switch n := e.(type) {
	case Number:
		return n.Value, nil
	case Ident:
		v, ok := vars[n.Name]
		if !ok {
			return decimal.Zero, shared.NewDomainError(shared.CodeInvalidFormula, "unknown identifier: "+n.Name).
				WithDetails(map[string]any{"identifier": n.Name})
		}
		return v, nil
	case Unary:
		x, err := Eval(n.X, vars)
		if err != nil {
			return decimal.Zero, err
		}
		switch n.Op {
		case "-":
			return x.Neg(), nil
		case "+":
			return x, nil
		case "not":
			return boolValue(x.IsZero()), nil
		}
	case Binary:
		if logicalOps[n.Op] {
			return evalLogical(n, vars)
		}
		l, err := Eval(n.L, vars)
		if err != nil {
			return decimal.Zero, err
		}
		r, err := Eval(n.R, vars)
		if err != nil {
			return decimal.Zero, err
		}
		if compareOps[n.Op] {
			return compare(n.Op, l, r), nil
		}
		if arithmeticOps[n.Op] {
			return arithmetic(n.Op, l, r)
		}
	}
	return decimal.Zero, shared.NewDomainError(shared.CodeInvalidFormula, "unsupported expression node")
}

func evalLogical(n Binary, vars Vars) (decimal.Decimal, error) {
	l, err := Eval(n.L, vars)
	if err != nil {
		return decimal.Zero, err
	}
	if n.Op == "and" && l.IsZero() {
		return decimal.Zero, nil
	}
	if n.Op == "or" && !l.IsZero() {
		return one, nil
	}
	r, err := Eval(n.R, vars)
	if err != nil {
		return decimal.Zero, err
	}
	return boolValue(!r.IsZero()), nil
}

func compare(op string, l, r decimal.Decimal) decimal.Decimal {
	c := l.Cmp(r)
	switch op {
	case "==":
		return boolValue(c == 0)
	case "!=":
		return boolValue(c != 0)
	case "<":
		return boolValue(c < 0)
	case "<=":
		return boolValue(c <= 0)
	case ">":
		return boolValue(c > 0)
	default:
		return boolValue(c >= 0)
	}
}

func arithmetic(op string, l, r decimal.Decimal) (decimal.Decimal, error) {
	switch op {
	case "+":
		return l.Add(r), nil
	case "-":
		return l.Sub(r), nil
	case "*":
		return l.Mul(r), nil
	case "/":
		if r.IsZero() {
			return decimal.Zero, shared.NewDomainError(shared.CodeInvalidFormula, "division by zero")
		}
		return l.Div(r), nil
	case "%":
		if r.IsZero() {
			return decimal.Zero, shared.NewDomainError(shared.CodeInvalidFormula, "modulo by zero")
		}
		return l.Mod(r), nil
	default:
		return power(l, r)
	}
}

// maxExponent bounds ** so a formula cannot spin on a huge exact power
const maxExponent = 64

func power(base, exp decimal.Decimal) (decimal.Decimal, error) {
	if exp.Abs().GreaterThan(decimal.NewFromInt(maxExponent)) {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidFormula,
			fmt.Sprintf("exponent %s is outside -%d..%d", exp.String(), maxExponent, maxExponent))
	}
	if exp.IsInteger() {
		result, err := base.PowInt32(int32(exp.IntPart()))
		if err != nil {
			return decimal.Zero, shared.NewDomainError(shared.CodeInvalidFormula, "invalid power: "+err.Error())
		}
		return result, nil
	}
	f := math.Pow(base.InexactFloat64(), exp.InexactFloat64())
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, shared.NewDomainError(shared.CodeInvalidFormula, "power result is not a finite number")
	}
	return decimal.NewFromFloat(f), nil
}

func boolValue(b bool) decimal.Decimal {
	if b {
		return one
	}
	return decimal.Zero
}

// Evaluate parses and evaluates an arithmetic formula
func Evaluate(src string, vars Vars) (decimal.Decimal, error) {
	e, err := Parse(src, Arithmetic)
	if err != nil {
		return decimal.Zero, err
	}
	return Eval(e, vars)
}

// Test parses and evaluates a condition, reporting whether it holds
func Test(src string, vars Vars) (bool, error) {
	e, err := Parse(src, Condition)
	if err != nil {
		return false, err
	}
	v, err := Eval(e, vars)
	if err != nil {
		return false, err
	}
	return !v.IsZero(), nil
}
