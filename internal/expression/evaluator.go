package expression

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"

	"github.com/karupanerura/arithmetic-repl/internal/types"
)

// Evaluate reduces expr to its value with checked unsigned arithmetic.
// Errors of child nodes are returned as is.
func Evaluate(expr Expr) (uint64, error) {
	switch e := expr.(type) {
	case *Literal:
		return e.Value, nil

	case *BinaryOp:
		left, err := Evaluate(e.Left)
		if err != nil {
			return 0, err
		}

		right, err := Evaluate(e.Right)
		if err != nil {
			return 0, err
		}

		return calculate(e.Operator, left, right)

	default:
		panic(fmt.Sprintf("should not leach here: %T", expr))
	}
}

func calculate(op Operator, lhs, rhs uint64) (uint64, error) {
	switch op {
	case Add:
		sum, carry := bits.Add64(lhs, rhs, 0)
		if carry != 0 {
			return 0, newCalculationError(types.OverflowErrorTag, op, lhs, rhs, "overflows uint64")
		}
		return sum, nil

	case Sub:
		diff, borrow := bits.Sub64(lhs, rhs, 0)
		if borrow != 0 {
			return 0, newCalculationError(types.UnderflowErrorTag, op, lhs, rhs, "is negative")
		}
		return diff, nil

	case Mul:
		hi, lo := bits.Mul64(lhs, rhs)
		if hi != 0 {
			return 0, newCalculationError(types.OverflowErrorTag, op, lhs, rhs, "overflows uint64")
		}
		return lo, nil

	case Div:
		if rhs == 0 {
			return 0, newCalculationError(types.ZeroDivisionErrorTag, op, lhs, rhs, "")
		}
		return lhs / rhs, nil

	default:
		panic(fmt.Sprintf("unknown operator: %s", op))
	}
}

// Operands are recorded in Extra as decimal strings.
func newCalculationError(tag types.ErrorTag, op Operator, lhs, rhs uint64, reason string) error {
	msg := fmt.Sprintf("%d %s %d", lhs, op.String(), rhs)
	if reason != "" {
		msg += " " + reason
	}
	return &types.Error{
		Tag: tag,
		Err: errors.New(msg),
		Extra: map[string]any{
			"operator": op.String(),
			"left":     strconv.FormatUint(lhs, 10),
			"right":    strconv.FormatUint(rhs, 10),
		},
	}
}
