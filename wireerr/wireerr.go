// Package wireerr defines the build-time error taxonomy returned by the
// Graph Builder (graph) and by simfacade's Build. flatten reports an
// unknown top module or an unexpected node kind as a plain error, and
// levelize never fails; everything else is a runtime non-error coerced
// to a zero value.
package wireerr

import "fmt"

// Code classifies a build failure.
type Code int

const (
	// BadArity means a primitive call was given the wrong number of
	// arguments for its fixed (nand, dff, ram, rom) or minimum
	// (concat) arity.
	BadArity Code = iota
	// UnknownPrimitive means a call's callee could not be resolved to
	// either a reserved primitive name or a deferred module reference.
	UnknownPrimitive
	// NoModules means the module list handed to build() was empty.
	NoModules
	// InvalidWidth means a width invariant was violated (mismatched
	// nand operand widths, a concat exceeding 32 bits, an out-of-range
	// addr_w, or similar).
	InvalidWidth
)

func (c Code) String() string {
	switch c {
	case BadArity:
		return "BadArity"
	case UnknownPrimitive:
		return "UnknownPrimitive"
	case NoModules:
		return "NoModules"
	case InvalidWidth:
		return "InvalidWidth"
	default:
		return "Unknown"
	}
}

// BuildError is the single typed failure build() ever returns.
type BuildError struct {
	Code   Code
	Module string
	Node   string
	Msg    string
}

func (e *BuildError) Error() string {
	where := e.Module
	if e.Node != "" {
		where += "." + e.Node
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, where, e.Msg)
}

// New constructs a BuildError.
func New(code Code, module, node, msg string) *BuildError {
	return &BuildError{Code: code, Module: module, Node: node, Msg: msg}
}

// Newf constructs a BuildError with a formatted message.
func Newf(code Code, module, node, format string, args ...any) *BuildError {
	return New(code, module, node, fmt.Sprintf(format, args...))
}

// CodeOf extracts the Code from err if it is a *BuildError, or -1 if it
// is nil or some other error type.
func CodeOf(err error) Code {
	be, ok := err.(*BuildError)
	if !ok {
		return -1
	}
	return be.Code
}
