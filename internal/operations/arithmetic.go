package operations

import (
	"context"

	"github.com/rahul/stepwise/internal/plan"
)

// binary is a two-argument numeric operation.
type binary struct {
	name        string
	description string
	fn          func(a, b float64) (float64, error)
}

func (b *binary) Name() string        { return b.name }
func (b *binary) Description() string { return b.description }
func (b *binary) Arity() int          { return 2 }

func (b *binary) Parameters() map[string]any {
	return positional("number", "first operand", "second operand")
}

func (b *binary) Invoke(ctx context.Context, args []plan.Argument) (plan.Argument, error) {
	if err := checkArity(b.name, 2, args); err != nil {
		return nil, err
	}
	x, err := numberArg(b.name, args, 0)
	if err != nil {
		return nil, err
	}
	y, err := numberArg(b.name, args, 1)
	if err != nil {
		return nil, err
	}
	v, err := b.fn(x, y)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func NewSum() Operation {
	return &binary{
		name:        "Sum",
		description: "Adds two numbers together",
		fn:          func(a, b float64) (float64, error) { return a + b, nil },
	}
}

func NewSubtract() Operation {
	return &binary{
		name:        "Subtract",
		description: "Subtracts second number from first",
		fn:          func(a, b float64) (float64, error) { return a - b, nil },
	}
}

func NewMultiply() Operation {
	return &binary{
		name:        "Multiply",
		description: "Multiplies two numbers together",
		fn:          func(a, b float64) (float64, error) { return a * b, nil },
	}
}

func NewDivide() Operation {
	return &binary{
		name:        "Divide",
		description: "Divides first number by second number",
		fn: func(a, b float64) (float64, error) {
			if b == 0 {
				return 0, ErrDivisionByZero
			}
			return a / b, nil
		},
	}
}

// Arithmetic returns the four basic operations.
func Arithmetic() []Operation {
	return []Operation{NewSum(), NewSubtract(), NewMultiply(), NewDivide()}
}
