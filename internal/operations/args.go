package operations

import (
	"errors"
	"fmt"

	"github.com/rahul/stepwise/internal/plan"
)

var (
	ErrDivisionByZero = errors.New("division by zero is not allowed")
	ErrArity          = errors.New("wrong number of arguments")
	ErrArgumentType   = errors.New("wrong argument type")
)

// ArityError reports a call with the wrong number of arguments.
type ArityError struct {
	Operation string
	Want      int
	Got       int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: expected %d arguments, got %d", e.Operation, e.Want, e.Got)
}

func (e *ArityError) Unwrap() error { return ErrArity }

// ArgumentTypeError reports an argument of a type the operation rejects.
type ArgumentTypeError struct {
	Operation string
	Index     int
	Want      string
	Got       any
}

func (e *ArgumentTypeError) Error() string {
	return fmt.Sprintf("%s: argument %d must be a %s, got %T (%v)", e.Operation, e.Index, e.Want, e.Got, e.Got)
}

func (e *ArgumentTypeError) Unwrap() error { return ErrArgumentType }

func checkArity(op string, want int, args []plan.Argument) error {
	if len(args) != want {
		return &ArityError{Operation: op, Want: want, Got: len(args)}
	}
	return nil
}

func numberArg(op string, args []plan.Argument, i int) (float64, error) {
	switch v := plan.NormalizeArgument(args[i]).(type) {
	case float64:
		return v, nil
	default:
		return 0, &ArgumentTypeError{Operation: op, Index: i, Want: "number", Got: args[i]}
	}
}

func stringArg(op string, args []plan.Argument, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok || s == "" {
		return "", &ArgumentTypeError{Operation: op, Index: i, Want: "non-empty string", Got: args[i]}
	}
	return s, nil
}

// positional builds the Parameters schema for a fixed list of arguments.
func positional(itemType string, names ...string) map[string]any {
	items := make([]any, 0, len(names))
	for _, n := range names {
		items = append(items, map[string]any{"type": itemType, "description": n})
	}
	return map[string]any{
		"type":        "array",
		"prefixItems": items,
		"minItems":    len(names),
		"maxItems":    len(names),
	}
}
