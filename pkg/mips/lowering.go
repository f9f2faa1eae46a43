package mips

import (
	"fmt"
	"strconv"
	"strings"

	"iridescent.dev/compiler/pkg/ast"
	"iridescent.dev/compiler/pkg/diag"
	"iridescent.dev/compiler/pkg/ir"
	"iridescent.dev/compiler/pkg/utils"
)

const targetArch = "mips"

// widthOf returns the byte width assigned to each primitive type: 4 bytes for
// byte/char/bool/int/float/string, 8 for long/double.
func widthOf(t ast.Type) int {
	switch t {
	case ast.Long, ast.Double:
		return 8
	default:
		return 4
	}
}

// Lowerer consumes a flat IR instruction stream and produces MIPS assembly text. It owns
// the growing text/data sections, the per-function local offset map, the running
// var-offset cursor, and the typed operand stack.
type Lowerer struct {
	frameSizes map[string]int

	text []string
	data []string

	localOffsets     map[int]int
	currentVarOffset int

	stackTypes utils.Stack[ast.Type]

	literalLabels map[string]string // cache: literal key -> data-section label
	nextLiteral   int

	currentFunc string
}

// NewLowerer returns a Lowerer that will compute each function's frame size from functions
// by summing the byte widths of its locals.
func NewLowerer(functions []*ast.Function) *Lowerer {
	return &Lowerer{
		frameSizes:    frameSizesOf(functions),
		stackTypes:    utils.NewStack[ast.Type](),
		literalLabels: map[string]string{},
	}
}

func frameSizesOf(functions []*ast.Function) map[string]int {
	sizes := map[string]int{}
	for _, fn := range functions {
		size := 0
		for _, t := range collectLocalTypes(fn.Body) {
			size += widthOf(t)
		}
		sizes[fn.Name] = size
	}
	return sizes
}

// collectLocalTypes walks a function body recursively, gathering the type of every
// local declaration - including for-loop control variables, which live in the loop
// body's own scope - but not parameters, whose storage lives in the caller's frame.
func collectLocalTypes(body []ast.Node) []ast.Type {
	var types []ast.Type
	for _, node := range body {
		switch n := node.(type) {
		case *ast.VarDecl:
			types = append(types, n.Type)
		case *ast.IfElifElse:
			for _, arm := range n.Arms {
				switch a := arm.(type) {
				case *ast.IfStatement:
					types = append(types, collectLocalTypes(a.Body)...)
				case *ast.ElseStatement:
					types = append(types, collectLocalTypes(a.Body)...)
				}
			}
		case *ast.IndefLoop:
			types = append(types, collectLocalTypes(n.Body)...)
		case *ast.WhileLoop:
			types = append(types, collectLocalTypes(n.Body)...)
		case *ast.ForLoop:
			types = append(types, n.ControlType)
			types = append(types, collectLocalTypes(n.Body)...)
		}
	}
	return types
}

// Lower runs the full linear pass over instrs and returns the final assembly text: a
// `.data` section followed by a `.text` section whose first instruction jumps to main,
// and whose epilogue always writes the halt syscall.
func (l *Lowerer) Lower(instrs []ir.Instruction) (string, error) {
	if loadErr != nil {
		return "", loadErr
	}

	for _, instr := range instrs {
		if err := l.lowerOne(instr); err != nil {
			return "", err
		}
	}

	var out strings.Builder
	out.WriteString(".data\n")
	for _, line := range l.data {
		out.WriteString(line)
		out.WriteString("\n")
	}

	out.WriteString(".text\n")
	out.WriteString("j main\n")
	out.WriteString(RuntimeSnippet)
	if !strings.HasSuffix(RuntimeSnippet, "\n") {
		out.WriteString("\n")
	}
	for _, line := range l.text {
		out.WriteString(line)
		out.WriteString("\n")
	}
	out.WriteString("_halt:\n")
	out.WriteString("li $v0, 10\n")
	out.WriteString("syscall\n")

	return out.String(), nil
}

func (l *Lowerer) emit(lines ...string) {
	l.text = append(l.text, lines...)
}

func (l *Lowerer) lowerOne(instr ir.Instruction) error {
	switch instr.Op {
	case ir.OpFuncStart:
		return l.lowerFuncStart(instr)
	case ir.OpFuncEnd:
		l.currentFunc = ""
		return nil

	case ir.OpPush:
		return l.lowerPush(instr)
	case ir.OpStore:
		return l.lowerStore(instr)
	case ir.OpLoad:
		return l.lowerLoad(instr)
	case ir.OpLoadParam:
		return l.lowerLoadParam(instr)
	case ir.OpReturn:
		return l.lowerReturn(instr)

	case ir.OpAdd:
		return l.lowerBinaryArith("add", instr)
	case ir.OpSub:
		return l.lowerBinaryArith("sub", instr)
	case ir.OpMult:
		return l.lowerBinaryArith("mult", instr)
	case ir.OpDiv:
		return l.lowerBinaryArith("div", instr)
	case ir.OpNumNeg:
		return l.lowerUnaryArith("num_neg", instr)
	case ir.OpComplement:
		return l.lowerUnaryArith("complement", instr)

	case ir.OpBitwiseAnd:
		return l.lowerBinaryArith("bitwise_and", instr)
	case ir.OpBitwiseOr:
		return l.lowerBinaryArith("bitwise_or", instr)
	case ir.OpBitwiseXor:
		return l.lowerBinaryArith("bitwise_xor", instr)
	case ir.OpLeftShiftLogical:
		return l.lowerBinaryArith("left_shift_logical", instr)
	case ir.OpRightShiftLogical:
		return l.lowerBinaryArith("right_shift_logical", instr)
	case ir.OpRightShiftArithmetic:
		return l.lowerBinaryArith("right_shift_arithmetic", instr)

	case ir.OpLogicNeg:
		return l.lowerUnaryBool("logic_neg", instr)
	case ir.OpLogicAnd:
		return l.lowerBinaryBool("logic_and", instr)
	case ir.OpLogicOr:
		return l.lowerBinaryBool("logic_or", instr)
	case ir.OpLogicXor:
		return l.lowerBinaryBool("logic_xor", instr)

	case ir.OpEqual:
		return l.lowerRelational("equal", instr)
	case ir.OpNotEqual:
		return l.lowerRelational("not_equal", instr)
	case ir.OpGreaterThan:
		return l.lowerRelational("greater_than", instr)
	case ir.OpLessThan:
		return l.lowerRelational("less_than", instr)
	case ir.OpGreaterEqual:
		return l.lowerRelational("greater_equal", instr)
	case ir.OpLessEqual:
		return l.lowerRelational("less_equal", instr)

	case ir.OpLabel:
		return l.lowerPlain("label", instr.Label)
	case ir.OpJump:
		return l.lowerPlain("jump", instr.Label)
	case ir.OpJumpZero:
		l.stackTypes.Pop()
		return l.lowerPlain("jump_zero", instr.Label)
	case ir.OpJumpNotZero:
		l.stackTypes.Pop()
		return l.lowerPlain("jump_not_zero", instr.Label)
	case ir.OpCall:
		return l.lowerCall(instr)

	case ir.OpOut:
		return l.lowerOut(instr)
	case ir.OpIn:
		return l.lowerIn(instr)

	case ir.OpCast:
		return l.lowerCast(instr)

	default:
		return fmt.Errorf("internal error: unhandled IR opcode %d", instr.Op)
	}
}

func (l *Lowerer) lowerFuncStart(instr ir.Instruction) error {
	l.currentFunc = instr.Name
	l.localOffsets = map[int]int{}
	l.currentVarOffset = 0

	frameSize, ok := l.frameSizes[instr.Name]
	if !ok {
		frameSize = 0
	}

	l.emit(
		instr.Name+":",
		"move $t9, $fp",
		"move $fp, $sp",
		fmt.Sprintf("subu $sp, $sp, %d", frameSize),
		"sw $ra, 0($fp)",
		"sw $t9, 4($fp)",
	)
	return nil
}

func (l *Lowerer) substitute(lines []string, opcode string, args ...string) ([]string, error) {
	want := 0
	for _, line := range lines {
		want += strings.Count(line, "{}")
	}
	if want != len(args) {
		return nil, &diag.TemplateArityMismatch{Opcode: opcode, Expected: want, Got: len(args)}
	}

	out := make([]string, len(lines))
	idx := 0
	for i, line := range lines {
		for strings.Contains(line, "{}") {
			line = strings.Replace(line, "{}", args[idx], 1)
			idx++
		}
		out[i] = line
	}
	return out, nil
}

func (l *Lowerer) lowerPush(instr ir.Instruction) error {
	template, ok := LookupTyped(targetArch, "push", string(instr.Type))
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: "push", Type: string(instr.Type)}
	}

	var args []string
	switch instr.Type {
	case ast.Long:
		hi := int32(instr.Literal.Int >> 32)
		lo := int32(instr.Literal.Int)
		args = []string{strconv.FormatInt(int64(hi), 10), strconv.FormatInt(int64(lo), 10)}
	case ast.Float, ast.Double:
		args = []string{l.literalLabel(fmt.Sprintf("%s:%v", instr.Type, instr.Literal.Float), func(label string) {
			directive := ".float"
			if instr.Type == ast.Double {
				directive = ".double"
			}
			l.data = append(l.data, fmt.Sprintf("%s: %s %v", label, directive, instr.Literal.Float))
		})}
	case ast.String:
		args = []string{l.literalLabel("str:"+instr.Literal.Str, func(label string) {
			l.data = append(l.data, fmt.Sprintf("%s: .asciiz %q", label, instr.Literal.Str))
		})}
	case ast.Char:
		args = []string{l.literalLabel(fmt.Sprintf("char:%d", instr.Literal.Char), func(label string) {
			l.data = append(l.data, fmt.Sprintf("%s: .byte %d", label, instr.Literal.Char))
		})}
	case ast.Bool:
		v := 0
		if instr.Literal.Bool {
			v = 1
		}
		args = []string{strconv.Itoa(v)}
	default:
		args = []string{strconv.FormatInt(instr.Literal.Int, 10)}
	}

	lines, err := l.substitute(template, "push", args...)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(instr.Type)
	return nil
}

// literalLabel returns the data-section label for a literal pool entry, allocating a
// fresh `_t_<hex>` label and calling alloc to append the `.data` line only the first
// time this exact literal is seen.
func (l *Lowerer) literalLabel(key string, alloc func(label string)) string {
	if label, ok := l.literalLabels[key]; ok {
		return label
	}
	label := fmt.Sprintf("_t_%x", l.nextLiteral)
	l.nextLiteral++
	l.literalLabels[key] = label
	alloc(label)
	return label
}

func (l *Lowerer) offsetsFor(id int, t ast.Type, allocateIfMissing bool) (int, error) {
	offset, ok := l.localOffsets[id]
	if !ok {
		if !allocateIfMissing {
			return 0, &diag.MissingLocalOffset{LocalAddr: id}
		}
		l.currentVarOffset += widthOf(t)
		offset = -l.currentVarOffset
		l.localOffsets[id] = offset
	}
	return offset, nil
}

func wordArgs(t ast.Type, offset int) []string {
	if widthOf(t) == 8 {
		return []string{strconv.Itoa(offset), strconv.Itoa(offset + 4)}
	}
	return []string{strconv.Itoa(offset)}
}

func (l *Lowerer) lowerStore(instr ir.Instruction) error {
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}

	offset, err := l.offsetsFor(instr.LocalAddr, instr.Type, true)
	if err != nil {
		return err
	}

	template, ok := LookupTyped(targetArch, "store", string(instr.Type))
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: "store", Type: string(instr.Type)}
	}
	lines, err := l.substitute(template, "store", wordArgs(instr.Type, offset)...)
	if err != nil {
		return err
	}
	l.emit(lines...)
	return nil
}

func (l *Lowerer) lowerLoad(instr ir.Instruction) error {
	offset, err := l.offsetsFor(instr.LocalAddr, instr.Type, false)
	if err != nil {
		return err
	}

	template, ok := LookupTyped(targetArch, "load", string(instr.Type))
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: "load", Type: string(instr.Type)}
	}
	lines, err := l.substitute(template, "load", wordArgs(instr.Type, offset)...)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(instr.Type)
	return nil
}

func (l *Lowerer) lowerLoadParam(instr ir.Instruction) error {
	offset := (instr.Index + 2) * 4

	template, ok := LookupTyped(targetArch, "load_param", string(instr.Type))
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: "load_param", Type: string(instr.Type)}
	}
	lines, err := l.substitute(template, "load_param", wordArgs(instr.Type, offset)...)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(instr.Type)
	return nil
}

func (l *Lowerer) lowerReturn(instr ir.Instruction) error {
	if instr.Type != ast.Void {
		if _, err := l.stackTypes.Pop(); err != nil {
			return fmt.Errorf("internal error: %w", err)
		}
	}

	opcode := "return"
	if l.currentFunc == "main" {
		opcode = "return_halt"
	}

	template, ok := LookupTyped(targetArch, opcode, string(instr.Type))
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: opcode, Type: string(instr.Type)}
	}
	lines, err := l.substitute(template, opcode)
	if err != nil {
		return err
	}
	l.emit(lines...)
	return nil
}

func (l *Lowerer) lowerBinaryArith(opcode string, instr ir.Instruction) error {
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}

	template, ok := LookupTyped(targetArch, opcode, string(instr.Type))
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: opcode, Type: string(instr.Type)}
	}
	lines, err := l.substitute(template, opcode)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(instr.Type)
	return nil
}

func (l *Lowerer) lowerUnaryArith(opcode string, instr ir.Instruction) error {
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}

	template, ok := LookupTyped(targetArch, opcode, string(instr.Type))
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: opcode, Type: string(instr.Type)}
	}
	lines, err := l.substitute(template, opcode)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(instr.Type)
	return nil
}

func (l *Lowerer) lowerUnaryBool(opcode string, instr ir.Instruction) error {
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}

	template, ok := LookupTyped(targetArch, opcode, "bool")
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: opcode, Type: "bool"}
	}
	lines, err := l.substitute(template, opcode)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(ast.Bool)
	return nil
}

func (l *Lowerer) lowerBinaryBool(opcode string, instr ir.Instruction) error {
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}

	template, ok := LookupTyped(targetArch, opcode, "bool")
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: opcode, Type: "bool"}
	}
	lines, err := l.substitute(template, opcode)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(ast.Bool)
	return nil
}

// lowerRelational pops two operands of instr.Type (the comparison's operand type, not
// its byte result type) and pushes a byte result.
func (l *Lowerer) lowerRelational(opcode string, instr ir.Instruction) error {
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}

	template, ok := LookupTyped(targetArch, opcode, string(instr.Type))
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: opcode, Type: string(instr.Type)}
	}
	lines, err := l.substitute(template, opcode)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(ast.Byte)
	return nil
}

func (l *Lowerer) lowerPlain(opcode string, arg string) error {
	template, ok := Lookup(targetArch, opcode)
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: opcode, Type: "<none>"}
	}
	lines, err := l.substitute(template, opcode, arg)
	if err != nil {
		return err
	}
	l.emit(lines...)
	return nil
}

func (l *Lowerer) lowerCall(instr ir.Instruction) error {
	frameSize, ok := l.frameSizes[instr.Name]
	if !ok {
		frameSize = 0
	}

	template, ok := Lookup(targetArch, "call")
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: "call", Type: "<none>"}
	}
	sizeStr := strconv.Itoa(frameSize)
	lines, err := l.substitute(template, "call", sizeStr, instr.Name, sizeStr)
	if err != nil {
		return err
	}
	l.emit(lines...)

	if instr.ReturnType != ast.Void {
		l.stackTypes.Push(instr.ReturnType)
	}
	return nil
}

func (l *Lowerer) lowerOut(instr ir.Instruction) error {
	operand, err := l.stackTypes.Pop()
	if err != nil {
		return fmt.Errorf("internal error: %w", err)
	}
	if operand != ast.String {
		return &diag.UnsupportedOperandType{Opcode: "out", Type: string(operand)}
	}

	template, ok := Lookup(targetArch, "out")
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: "out", Type: "<none>"}
	}
	lines, err := l.substitute(template, "out")
	if err != nil {
		return err
	}
	l.emit(lines...)
	return nil
}

func (l *Lowerer) lowerIn(instr ir.Instruction) error {
	template, ok := Lookup(targetArch, "in")
	if !ok {
		return &diag.UnsupportedOperandType{Opcode: "in", Type: "<none>"}
	}
	lenStr := strconv.Itoa(instr.Length)
	lines, err := l.substitute(template, "in", lenStr, lenStr)
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(ast.String)
	return nil
}

func (l *Lowerer) lowerCast(instr ir.Instruction) error {
	if _, err := l.stackTypes.Pop(); err != nil {
		return fmt.Errorf("internal error: %w", err)
	}

	template, ok := LookupCast(targetArch, string(instr.FromType), string(instr.Type))
	if !ok {
		return &diag.UnsupportedCast{From: string(instr.FromType), Into: string(instr.Type)}
	}
	lines, err := l.substitute(template, "cast")
	if err != nil {
		return err
	}
	l.emit(lines...)
	l.stackTypes.Push(instr.Type)
	return nil
}
