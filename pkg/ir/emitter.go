package ir

import (
	"fmt"

	"iridescent.dev/compiler/pkg/ast"
	"iridescent.dev/compiler/pkg/symtab"
	"iridescent.dev/compiler/pkg/utils"
)

// labelContext is the save/restore unit for nested control flow: the three optional
// labels available to the emitter while lowering an if/elif/else cascade or a loop.
type labelContext struct {
	IeieExit     string
	LoopBreak    string
	LoopContinue string
}

// addrKey identifies one declared variable by the scope it lives in and its name,
// matching the symbol table's own (name, parent_scope_id) uniqueness key.
type addrKey struct {
	ScopeID int
	Name    string
}

type varSlot struct {
	Type      ast.Type
	IsParam   bool
	LocalAddr int
	Index     int
}

// Emitter lowers a validated AST forest into a flat Instruction sequence. The fresh-
// address and fresh-label counters are fields of this struct rather than package
// globals, so multiple compilations can run concurrently without sharing state.
type Emitter struct {
	table *symtab.Table

	instrs    []Instruction
	nextAddr  int
	nextLabel int

	vars utils.OrderedMap[addrKey, varSlot]

	contexts utils.Stack[labelContext]
}

// NewEmitter returns an Emitter bound to table, the symbol table produced for the same
// AST forest that will be passed to Emit.
func NewEmitter(table *symtab.Table) *Emitter {
	return &Emitter{table: table, contexts: utils.NewStack[labelContext]()}
}

// Emit lowers every function in functions to IR, in declaration order.
func (e *Emitter) Emit(functions []*ast.Function) ([]Instruction, error) {
	for _, fn := range functions {
		if err := e.emitFunction(fn); err != nil {
			return nil, err
		}
	}
	return e.instrs, nil
}

func (e *Emitter) emit(instr Instruction) {
	e.instrs = append(e.instrs, instr)
}

func (e *Emitter) freshLabel() string {
	label := fmt.Sprintf("_%x", e.nextLabel)
	e.nextLabel++
	return label
}

func (e *Emitter) freshAddr() int {
	addr := e.nextAddr
	e.nextAddr++
	return addr
}

func (e *Emitter) currentContext() labelContext {
	ctx, err := e.contexts.Top()
	if err != nil {
		return labelContext{}
	}
	return ctx
}

func (e *Emitter) emitFunction(fn *ast.Function) error {
	history := []int{0, fn.ScopeID}

	e.emit(Instruction{Op: OpFuncStart, Name: fn.Name})

	for i, p := range fn.Params {
		e.vars.Set(addrKey{ScopeID: fn.ScopeID, Name: p.Name}, varSlot{Type: p.Type, IsParam: true, Index: i})
	}

	e.contexts.Push(labelContext{})
	if err := e.emitBody(fn.Body, history); err != nil {
		return err
	}
	e.contexts.Pop()

	e.emit(Instruction{Op: OpFuncEnd, Name: fn.Name})
	return nil
}

func (e *Emitter) lookupVar(history []int, name string) (varSlot, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if slot, ok := e.vars.Get(addrKey{ScopeID: history[i], Name: name}); ok {
			return slot, true
		}
	}
	return varSlot{}, false
}

func (e *Emitter) emitBody(body []ast.Node, history []int) error {
	for _, stmt := range body {
		if err := e.emitStatement(stmt, history); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitStatement(node ast.Node, history []int) error {
	switch n := node.(type) {
	case *ast.VarDecl:
		scope := history[len(history)-1]
		addr := e.freshAddr()
		e.vars.Set(addrKey{ScopeID: scope, Name: n.Name}, varSlot{Type: n.Type, LocalAddr: addr})
		if _, err := e.emitExpr(n.Init, history); err != nil {
			return err
		}
		e.emit(Instruction{Op: OpStore, Type: n.Type, LocalAddr: addr})
		return nil

	case *ast.VarAssign:
		slot, ok := e.lookupVar(history, n.Name)
		if !ok {
			return fmt.Errorf("internal error: no address recorded for %q", n.Name)
		}
		if _, err := e.emitExpr(n.Expr, history); err != nil {
			return err
		}
		e.emit(Instruction{Op: OpStore, Type: slot.Type, LocalAddr: slot.LocalAddr})
		return nil

	case *ast.Return:
		if n.Expr == nil {
			e.emit(Instruction{Op: OpReturn, Type: ast.Void})
			return nil
		}
		t, err := e.emitExpr(n.Expr, history)
		if err != nil {
			return err
		}
		e.emit(Instruction{Op: OpReturn, Type: t})
		return nil

	case *ast.FunctionCall:
		_, err := e.emitExpr(n, history)
		return err

	case *ast.Print:
		for _, term := range n.Terms {
			if _, err := e.emitExpr(term, history); err != nil {
				return err
			}
			e.emit(Instruction{Op: OpOut})
		}
		return nil

	case *ast.Break:
		e.emit(Instruction{Op: OpJump, Label: e.currentContext().LoopBreak})
		return nil

	case *ast.Continue:
		e.emit(Instruction{Op: OpJump, Label: e.currentContext().LoopContinue})
		return nil

	case *ast.IfElifElse:
		return e.emitIfElifElse(n, history)

	case *ast.IndefLoop:
		return e.emitIndefLoop(n, history)

	case *ast.WhileLoop:
		return e.emitWhileLoop(n, history)

	case *ast.ForLoop:
		return e.emitForLoop(n, history)

	default:
		return fmt.Errorf("internal error: unhandled statement node %T", node)
	}
}

func (e *Emitter) emitIfElifElse(n *ast.IfElifElse, history []int) error {
	exitLabel := e.freshLabel()
	outer := e.currentContext()
	e.contexts.Push(labelContext{IeieExit: exitLabel, LoopBreak: outer.LoopBreak, LoopContinue: outer.LoopContinue})

	for i, arm := range n.Arms {
		last := i == len(n.Arms)-1
		switch a := arm.(type) {
		case *ast.IfStatement:
			falseLabel := exitLabel
			if !last {
				falseLabel = e.freshLabel()
			}
			if _, err := e.emitExpr(a.Cond, history); err != nil {
				return err
			}
			e.emit(Instruction{Op: OpJumpZero, Label: falseLabel})
			if err := e.emitBody(a.Body, append(history, a.ScopeID)); err != nil {
				return err
			}
			e.emit(Instruction{Op: OpJump, Label: exitLabel})
			if !last {
				e.emit(Instruction{Op: OpLabel, Label: falseLabel})
			}

		case *ast.ElseStatement:
			if err := e.emitBody(a.Body, append(history, a.ScopeID)); err != nil {
				return err
			}
		}
	}

	e.emit(Instruction{Op: OpLabel, Label: exitLabel})
	e.contexts.Pop()
	return nil
}

func (e *Emitter) emitIndefLoop(n *ast.IndefLoop, history []int) error {
	start, end := e.freshLabel(), e.freshLabel()
	outer := e.currentContext()
	e.contexts.Push(labelContext{IeieExit: outer.IeieExit, LoopBreak: end, LoopContinue: start})

	e.emit(Instruction{Op: OpLabel, Label: start})
	if err := e.emitBody(n.Body, append(history, n.ScopeID)); err != nil {
		return err
	}
	e.emit(Instruction{Op: OpJump, Label: start})
	e.emit(Instruction{Op: OpLabel, Label: end})

	e.contexts.Pop()
	return nil
}

func (e *Emitter) emitWhileLoop(n *ast.WhileLoop, history []int) error {
	start, end := e.freshLabel(), e.freshLabel()
	outer := e.currentContext()
	e.contexts.Push(labelContext{IeieExit: outer.IeieExit, LoopBreak: end, LoopContinue: start})

	e.emit(Instruction{Op: OpLabel, Label: start})
	if _, err := e.emitExpr(n.Cond, history); err != nil {
		return err
	}
	e.emit(Instruction{Op: OpJumpZero, Label: end})
	if err := e.emitBody(n.Body, append(history, n.ScopeID)); err != nil {
		return err
	}
	e.emit(Instruction{Op: OpJump, Label: start})
	e.emit(Instruction{Op: OpLabel, Label: end})

	e.contexts.Pop()
	return nil
}

// emitForLoop lowers a for-loop. NOTE (preserved, not fixed): loop_continue is bound to
// the top-of-iteration label, the same target used for the condition recheck, so a
// `continue` inside the body jumps past the step update rather than running it. This is
// intentional as written; flagged in DESIGN.md rather than silently corrected.
func (e *Emitter) emitForLoop(n *ast.ForLoop, history []int) error {
	scope := n.ScopeID
	addr := e.freshAddr()
	e.vars.Set(addrKey{ScopeID: scope, Name: n.ControlName}, varSlot{Type: n.ControlType, LocalAddr: addr})

	if _, err := e.emitExpr(n.Initial, history); err != nil {
		return err
	}
	e.emit(Instruction{Op: OpStore, Type: n.ControlType, LocalAddr: addr})

	start, end := e.freshLabel(), e.freshLabel()
	inner := append(history, scope)

	e.emit(Instruction{Op: OpLabel, Label: start})
	e.emit(Instruction{Op: OpLoad, Type: n.ControlType, LocalAddr: addr})
	if _, err := e.emitExpr(n.Limit, inner); err != nil {
		return err
	}
	e.emit(Instruction{Op: OpGreaterThan, Type: n.ControlType})
	e.emit(Instruction{Op: OpJumpNotZero, Label: end})

	outer := e.currentContext()
	e.contexts.Push(labelContext{IeieExit: outer.IeieExit, LoopBreak: end, LoopContinue: start})
	if err := e.emitBody(n.Body, inner); err != nil {
		return err
	}
	e.contexts.Pop()

	if _, err := e.emitExpr(n.Step, inner); err != nil {
		return err
	}
	e.emit(Instruction{Op: OpLoad, Type: n.ControlType, LocalAddr: addr})
	e.emit(Instruction{Op: OpAdd, Type: n.ControlType})
	e.emit(Instruction{Op: OpStore, Type: n.ControlType, LocalAddr: addr})
	e.emit(Instruction{Op: OpJump, Label: start})
	e.emit(Instruction{Op: OpLabel, Label: end})

	return nil
}

// emitExpr lowers any expression-family node, appending its instructions in evaluation
// order, and returns the node's static type so the caller can annotate its own
// instruction's operand type without a second AST walk. Boolean expressions always
// materialize both operands - no short-circuiting is introduced.
func (e *Emitter) emitExpr(node ast.Node, history []int) (ast.Type, error) {
	switch n := node.(type) {
	case *ast.Value:
		e.emit(Instruction{Op: OpPush, Type: n.Type, Literal: n.Literal})
		return n.Type, nil

	case *ast.Identifier:
		slot, ok := e.lookupVar(history, n.Name)
		if !ok {
			return "", fmt.Errorf("internal error: no address recorded for %q", n.Name)
		}
		if slot.IsParam {
			e.emit(Instruction{Op: OpLoadParam, Type: slot.Type, Index: slot.Index})
		} else {
			e.emit(Instruction{Op: OpLoad, Type: slot.Type, LocalAddr: slot.LocalAddr})
		}
		return slot.Type, nil

	case *ast.Term:
		return e.emitExpr(n.Child, history)

	case *ast.Expression:
		t, err := e.emitExpr(n.Lhs, history)
		if err != nil {
			return "", err
		}
		if n.Op == nil {
			return t, nil
		}
		if n.Rhs == nil {
			e.emit(Instruction{Op: unaryIROp(*n.Op), Type: t})
			return t, nil
		}
		if _, err := e.emitExpr(n.Rhs, history); err != nil {
			return "", err
		}
		e.emit(Instruction{Op: binaryIROp(*n.Op), Type: t})
		return t, nil

	case *ast.FunctionCall:
		for _, arg := range n.Args {
			if _, err := e.emitExpr(arg, history); err != nil {
				return "", err
			}
		}
		row, _ := e.table.LookupFunction(n.Name)
		e.emit(Instruction{Op: OpCall, Name: n.Name, ReturnType: row.ReturnType})
		return row.ReturnType, nil

	case *ast.TypeCast:
		fromType, err := e.emitExpr(n.From, history)
		if err != nil {
			return "", err
		}
		e.emit(Instruction{Op: OpCast, FromType: fromType, Type: n.Into})
		return n.Into, nil

	case *ast.TernaryExpression:
		falseLabel, endLabel := e.freshLabel(), e.freshLabel()
		if _, err := e.emitExpr(n.Cond, history); err != nil {
			return "", err
		}
		e.emit(Instruction{Op: OpJumpZero, Label: falseLabel})
		t, err := e.emitExpr(n.IfTrue, history)
		if err != nil {
			return "", err
		}
		e.emit(Instruction{Op: OpJump, Label: endLabel})
		e.emit(Instruction{Op: OpLabel, Label: falseLabel})
		if _, err := e.emitExpr(n.IfFalse, history); err != nil {
			return "", err
		}
		e.emit(Instruction{Op: OpLabel, Label: endLabel})
		return t, nil

	case *ast.BooleanTerm:
		if n.Op != nil && *n.Op == ast.Invert {
			if _, err := e.emitExpr(n.Lhs, history); err != nil {
				return "", err
			}
			e.emit(Instruction{Op: OpLogicNeg, Type: ast.Bool})
			return ast.Bool, nil
		}
		if n.Op == nil {
			return e.emitExpr(n.Lhs, history)
		}
		t, err := e.emitExpr(n.Lhs, history)
		if err != nil {
			return "", err
		}
		if _, err := e.emitExpr(n.Rhs, history); err != nil {
			return "", err
		}
		e.emit(Instruction{Op: relationalIROp(*n.Op), Type: t})
		return ast.Bool, nil

	case *ast.BooleanExpression:
		lhsType, err := e.emitExpr(n.Lhs, history)
		if err != nil {
			return "", err
		}
		if n.Connector == nil {
			return lhsType, nil
		}
		if _, err := e.emitExpr(n.Rhs, history); err != nil {
			return "", err
		}
		e.emit(Instruction{Op: connectorIROp(*n.Connector), Type: ast.Bool})
		return ast.Bool, nil

	case *ast.Input:
		e.emit(Instruction{Op: OpIn, Length: n.Length})
		return ast.String, nil

	default:
		return "", fmt.Errorf("internal error: unhandled expression node %T", node)
	}
}

func unaryIROp(op ast.Operator) Op {
	switch op {
	case ast.Complement:
		return OpComplement
	case ast.NegateLogical:
		return OpLogicNeg
	default:
		return OpNumNeg
	}
}

func binaryIROp(op ast.Operator) Op {
	switch op {
	case ast.Subtraction:
		return OpSub
	case ast.Multiplication:
		return OpMult
	case ast.Division:
		return OpDiv
	case ast.BitAnd:
		return OpBitwiseAnd
	case ast.BitOr:
		return OpBitwiseOr
	case ast.BitXor:
		return OpBitwiseXor
	case ast.LeftShiftLogical:
		return OpLeftShiftLogical
	case ast.RightShiftLogical:
		return OpRightShiftLogical
	case ast.RightShiftArithmetic:
		return OpRightShiftArithmetic
	default:
		return OpAdd
	}
}

func relationalIROp(op ast.BooleanOperator) Op {
	switch op {
	case ast.NotEqual:
		return OpNotEqual
	case ast.Greater:
		return OpGreaterThan
	case ast.GreaterOrEqual:
		return OpGreaterEqual
	case ast.Less:
		return OpLessThan
	case ast.LessOrEqual:
		return OpLessEqual
	default:
		return OpEqual
	}
}

func connectorIROp(c ast.BooleanConnector) Op {
	switch c {
	case ast.Or:
		return OpLogicOr
	case ast.XOr:
		return OpLogicXor
	default:
		return OpLogicAnd
	}
}
