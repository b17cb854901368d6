// Package formula implements the restricted expression language used by report
// templates and audit rules. Expressions are parsed once into a sealed tree and
// evaluated over a map of named decimal values; nothing else is reachable.
package formula

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Mode selects which operators a formula may use
type Mode int

const (
	// Arithmetic allows + - * / % ** unary +/- and parentheses
	Arithmetic Mode = iota
	// Condition additionally allows comparisons and and/or/not
	Condition
)

// Expr is a node of the expression tree. The set of node kinds is closed.
type Expr interface {
	expr()
}

// Number is a numeric literal
type Number struct {
	Value decimal.Decimal
}

// Ident is a reference to a named value
type Ident struct {
	Name string
}

// Unary is a prefix operator: "-", "+" or "not"
type Unary struct {
	Op string
	X  Expr
}

// Binary is an infix operator
type Binary struct {
	Op   string
	L, R Expr
}

func (Number) expr() {}
func (Ident) expr()  {}
func (Unary) expr()  {}
func (Binary) expr() {}

// Vars holds identifier values
type Vars map[string]decimal.Decimal

// Idents returns the distinct identifiers referenced by e, sorted
func Idents(e Expr) []string {
	seen := make(map[string]struct{})
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case Ident:
			seen[n.Name] = struct{}{}
		case Unary:
			walk(n.X)
		case Binary:
			walk(n.L)
			walk(n.R)
		}
	}
	walk(e)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true, "**": true}
	compareOps    = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}
	logicalOps    = map[string]bool{"and": true, "or": true}
)
