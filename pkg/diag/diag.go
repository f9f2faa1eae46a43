// Package diag defines the compiler's two error taxonomies: user errors,
// raised by the parser, symbol table builder and validator against a malformed program,
// and internal errors, raised by the MIPS lowering pass when it is itself inconsistent
// with the IR it is fed. Every taxonomy member is a distinct type so callers (and tests)
// can discriminate with errors.As instead of string-matching a message.
package diag

import "fmt"

// UnrecognizedToken is raised by the parser on a grammar mismatch or unknown token.
type UnrecognizedToken struct{ Token string }

func (e *UnrecognizedToken) Error() string { return fmt.Sprintf("unrecognized token %q", e.Token) }

// DuplicateIdentifier is raised by the symbol table builder when two rows share
// both name and lexical parent.
type DuplicateIdentifier struct{ Name string }

func (e *DuplicateIdentifier) Error() string {
	return fmt.Sprintf("duplicate identifier %q in the same scope", e.Name)
}

// SymbolNotFound is raised by the validator when an identifier does not resolve
// against any row reachable from the current scope history.
type SymbolNotFound struct{ Name string }

func (e *SymbolNotFound) Error() string { return fmt.Sprintf("symbol %q not found", e.Name) }

// IncorrectDatatype is raised when an operand, argument, or initializer's type does
// not match the type required by its context.
type IncorrectDatatype struct {
	Context  string
	Expected string
	Got      string
}

func (e *IncorrectDatatype) Error() string {
	return fmt.Sprintf("incorrect datatype in %s: expected %s, got %s", e.Context, e.Expected, e.Got)
}

// IncorrectNumArguments is raised on a function call whose argument count does not
// match the callee's parameter count.
type IncorrectNumArguments struct {
	Function string
	Expected int
	Got      int
}

func (e *IncorrectNumArguments) Error() string {
	return fmt.Sprintf("function %q takes %d argument(s), got %d", e.Function, e.Expected, e.Got)
}

// BadFunctionReturn is raised when a non-void function has no return statement
// whose expression validates at the declared return type.
type BadFunctionReturn struct{ Function string }

func (e *BadFunctionReturn) Error() string {
	return fmt.Sprintf("function %q does not return a value of its declared return type", e.Function)
}

// ImmutableReassignment is raised when a constant variable or parameter is the
// target of a VarAssign.
type ImmutableReassignment struct{ Name string }

func (e *ImmutableReassignment) Error() string {
	return fmt.Sprintf("cannot reassign constant %q", e.Name)
}

// ControlVariableNotIntegral is raised when a for-loop's control variable is declared
// with a non-integer type (only int and long are accepted).
type ControlVariableNotIntegral struct{ Name string }

func (e *ControlVariableNotIntegral) Error() string {
	return fmt.Sprintf("for-loop control variable %q must be int or long", e.Name)
}

// MissingBreakInIndefLoop is raised when an indefinite loop body does not reachably
// contain at least one break statement.
type MissingBreakInIndefLoop struct{}

func (e *MissingBreakInIndefLoop) Error() string {
	return "indefinite loop has no reachable 'break' statement"
}

// UnsupportedCast is raised when a TypeCast names a (from, into) pair the MIPS
// backend has no template for.
type UnsupportedCast struct{ From, Into string }

func (e *UnsupportedCast) Error() string {
	return fmt.Sprintf("unsupported cast from %s into %s", e.From, e.Into)
}

// UnsupportedOperandType is an internal error: the MIPS lowering pass popped an
// operand type off the typed stack that has no template for the opcode being lowered.
type UnsupportedOperandType struct {
	Opcode string
	Type   string
}

func (e *UnsupportedOperandType) Error() string {
	return fmt.Sprintf("internal error: opcode %q has no template for operand type %q", e.Opcode, e.Type)
}

// TemplateArityMismatch is an internal error: the number of `{}` placeholders in a
// selected template does not match the number of arguments supplied for substitution.
type TemplateArityMismatch struct {
	Opcode   string
	Expected int
	Got      int
}

func (e *TemplateArityMismatch) Error() string {
	return fmt.Sprintf("internal error: template for %q expects %d argument(s), got %d", e.Opcode, e.Expected, e.Got)
}

// MissingLocalOffset is an internal error: the lowering pass tried to Load/Store a
// local_addr that was never assigned a frame offset.
type MissingLocalOffset struct{ LocalAddr int }

func (e *MissingLocalOffset) Error() string {
	return fmt.Sprintf("internal error: no frame offset recorded for local address %d", e.LocalAddr)
}
