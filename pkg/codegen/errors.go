package codegen

import "fmt"

// RefKind classifies what an unresolved reference pointed at. The surface
// error is a single kind; the classification lets callers split it later
// without changing the contract.
type RefKind int

const (
	RefVariable RefKind = iota
	RefFunction
	RefArgument
	RefLoop
)

// UndefinedError reports a reference the compiler could not resolve: an
// unknown variable, an unknown function, a call missing a required argument,
// or break/continue with no enclosing loop.
type UndefinedError struct {
	Kind RefKind
	Name string
	// Arg is the zero-based parameter index for RefArgument.
	Arg int
}

func (e *UndefinedError) Error() string {
	switch e.Kind {
	case RefFunction:
		return fmt.Sprintf("undefined function '%s'", e.Name)
	case RefArgument:
		return fmt.Sprintf("missing required argument %d for function '%s'", e.Arg, e.Name)
	case RefLoop:
		return fmt.Sprintf("'%s' outside of a loop", e.Name)
	default:
		return fmt.Sprintf("undefined variable '%s'", e.Name)
	}
}

// VerifyError reports that generated code failed structural verification.
// It indicates a defect in the code generator, not in the input program.
type VerifyError struct {
	Func   string
	Detail string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("module verification failed: function '%s': %s", e.Func, e.Detail)
}
