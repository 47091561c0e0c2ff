package memo

import (
	"errors"
	"fmt"
)

// Sentinel errors for memoized functions.
var (
	// ErrArity matches every *ArityError via errors.Is.
	ErrArity = errors.New("memo: invalid number of arguments")

	// ErrNilFunc indicates New was given a nil producer.
	ErrNilFunc = errors.New("memo: producer function is nil")

	// ErrInvalidArity indicates a negative arity.
	ErrInvalidArity = errors.New("memo: arity must not be negative")

	// ErrCloneType indicates WithClone was given a function for a different value type.
	ErrCloneType = errors.New("memo: clone function does not match value type")

	// ErrProducerPanic wraps a panic recovered from a producer invocation.
	ErrProducerPanic = errors.New("memo: producer panicked")

	// ErrArgumentType indicates a typed adapter received an argument of the wrong type.
	ErrArgumentType = errors.New("memo: argument has wrong type")
)

// ArityError reports a call with the wrong number of arguments. It is raised
// before any store or coalescer interaction.
type ArityError struct {
	Got  int
	Want int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("memo: invalid number of arguments passed (%d != %d)", e.Got, e.Want)
}

// Is reports whether target is ErrArity.
func (e *ArityError) Is(target error) bool {
	return target == ErrArity
}
