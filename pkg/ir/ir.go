// Package ir defines the stack-machine intermediate representation and the emitter that
// lowers a validated AST into a linear sequence of it. The instruction set is a flat,
// closed enumeration of opcodes sharing one Instruction struct, produced once and
// consumed exactly once by pkg/mips.
package ir

import "iridescent.dev/compiler/pkg/ast"

// Op tags which Instruction variant a value holds.
type Op int

const (
	OpFuncStart Op = iota
	OpFuncEnd

	OpPush
	OpLoad
	OpStore
	OpLoadParam
	OpReturn

	OpAdd
	OpSub
	OpMult
	OpDiv
	OpNumNeg
	OpComplement

	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpLeftShiftLogical
	OpRightShiftLogical
	OpRightShiftArithmetic

	OpLogicNeg
	OpLogicAnd
	OpLogicOr
	OpLogicXor

	OpEqual
	OpNotEqual
	OpGreaterThan
	OpLessThan
	OpGreaterEqual
	OpLessEqual

	OpLabel
	OpJump
	OpJumpZero
	OpJumpNotZero
	OpCall

	OpOut
	OpIn

	OpCast
)

// Instruction is one IR instruction. Only the fields relevant to Op are populated; this
// mirrors the original compiler's IntermediateInstr enum flattened into a single struct,
// the same flattening pkg/ast.Literal uses for AST literal values.
type Instruction struct {
	Op Op

	// Frame / Call / Cast
	Name       string
	Type       ast.Type
	FromType   ast.Type // Cast
	ReturnType ast.Type // Call

	// Data
	Literal   ast.Literal
	LocalAddr int
	Index     int

	// Control
	Label string

	// I/O
	Length int
}
