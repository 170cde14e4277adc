// Package gerr defines the three error kinds the network orchestrator and
// fluid model raise, mirroring the teacher's plain-error-value style
// (circuit.Circuit wraps with fmt.Errorf) while still letting callers
// distinguish fatal initialization failures from recoverable numerical ones.
package gerr

import "fmt"

// InitializationError reports invalid configuration, duplicate or
// uninitialized links, a node list supplied twice, a fluid phase mismatch, or
// a link attached to an incompatible node. It is always fatal to the caller's
// current attempt to initialize or step the network.
type InitializationError struct {
	Source string
	Msg    string
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s: initialization error: %s", e.Source, e.Msg)
}

func NewInitializationError(source, msg string) error {
	return &InitializationError{Source: source, Msg: msg}
}

// NumericalError reports a non-positive pivot during decomposition, an
// exceeded decomposition limit, a zero combined flow in Fluid.AddState, or a
// backend solver failure. It is raised from Step and is not fatal: the
// caller may catch it, log it, and retry on the next major frame.
type NumericalError struct {
	Source string
	Msg    string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("%s: numerical error: %s", e.Source, e.Msg)
}

func NewNumericalError(source, msg string) error {
	return &NumericalError{Source: source, Msg: msg}
}

// OutOfBoundsError reports an invalid fluid-type/index lookup on a composite
// fluid, or an invalid port/node argument on a link. It is raised from the
// offending accessor and is never caught internally.
type OutOfBoundsError struct {
	Source string
	Msg    string
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("%s: out of bounds: %s", e.Source, e.Msg)
}

func NewOutOfBoundsError(source, msg string) error {
	return &OutOfBoundsError{Source: source, Msg: msg}
}
