package expression

import (
	"fmt"
	"strconv"
	"strings"
)

type Operator int

const (
	Add Operator = iota
	Sub
	Mul
	Div
)

var operatorTokenKindMap = map[TokenKind]Operator{
	PlusToken:  Add,
	MinusToken: Sub,
	MultToken:  Mul,
	DivToken:   Div,
}

func (o Operator) String() string {
	switch o {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	default:
		return fmt.Sprintf("Operator(%d)", int(o))
	}
}

func (o Operator) precedence() int {
	switch o {
	case Mul, Div:
		return 2
	default:
		return 1
	}
}

// Expr is a node of the expression tree. The only implementations are *Literal and *BinaryOp.
type Expr interface {
	isExpr()
}

type Literal struct {
	Value uint64
}

func (*Literal) isExpr() {}

type BinaryOp struct {
	Operator Operator
	Left     Expr
	Right    Expr
}

func (*BinaryOp) isExpr() {}

// Render returns infix text for expr using only the parentheses its shape requires.
func Render(expr Expr) string {
	var b strings.Builder
	render(&b, expr)
	return b.String()
}

func render(b *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *Literal:
		b.WriteString(strconv.FormatUint(e.Value, 10))

	case *BinaryOp:
		renderOperand(b, e.Left, e.Operator.precedence())
		b.WriteByte(' ')
		b.WriteString(e.Operator.String())
		b.WriteByte(' ')
		// operators are left-associative, so an equal-precedence right operand keeps its parens
		renderOperand(b, e.Right, e.Operator.precedence()+1)

	default:
		panic(fmt.Sprintf("should not leach here: %T", expr))
	}
}

func renderOperand(b *strings.Builder, expr Expr, minPrecedence int) {
	if op, ok := expr.(*BinaryOp); ok && op.Operator.precedence() < minPrecedence {
		b.WriteByte('(')
		render(b, expr)
		b.WriteByte(')')
		return
	}
	render(b, expr)
}

// SExpr renders expr as an S-expression such as (+ 1 (* 2 3)).
func SExpr(expr Expr) string {
	switch e := expr.(type) {
	case nil:
		return "nil"
	case *Literal:
		return strconv.FormatUint(e.Value, 10)
	case *BinaryOp:
		return "(" + e.Operator.String() + " " + SExpr(e.Left) + " " + SExpr(e.Right) + ")"
	default:
		panic(fmt.Sprintf("should not leach here: %T", expr))
	}
}
