package parser

import (
	"strings"
	"testing"

	"iridescent.dev/compiler/pkg/ast"
)

func parseFunctions(t *testing.T, source string) []*ast.Function {
	t.Helper()
	p := NewParser(strings.NewReader(source))
	functions, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	return functions
}

func TestParseMinimalFunction(t *testing.T) {
	functions := parseFunctions(t, `int main() { return 0; }`)
	if len(functions) != 1 {
		t.Fatalf("got %d functions, want 1", len(functions))
	}
	fn := functions[0]
	if fn.Name != "main" || fn.ReturnType != ast.Int {
		t.Fatalf("got %+v", fn)
	}
	if len(fn.Body) != 1 {
		t.Fatalf("got %d statements, want 1", len(fn.Body))
	}
	ret, ok := fn.Body[0].(*ast.Return)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.Return", fn.Body[0])
	}
	term, ok := ret.Expr.(*ast.Term)
	if !ok {
		t.Fatalf("return expr = %T, want *ast.Term", ret.Expr)
	}
	value, ok := term.Child.(*ast.Value)
	if !ok || value.Literal.Int != 0 {
		t.Fatalf("return value = %+v", term.Child)
	}
}

// TestParseBinaryLiteralSum exercises the spec's headline arithmetic example:
// 0b1010 + 0x05 should parse into an Expression with Addition and the two int literals.
func TestParseBinaryLiteralSum(t *testing.T) {
	functions := parseFunctions(t, `int main() { int x = 0b1010 + 0x05; return x; }`)
	decl := functions[0].Body[0].(*ast.VarDecl)
	expr, ok := decl.Init.(*ast.Expression)
	if !ok {
		t.Fatalf("VarDecl.Init = %T, want *ast.Expression", decl.Init)
	}
	if expr.Op == nil || *expr.Op != ast.Addition {
		t.Fatalf("got op %v, want Addition", expr.Op)
	}

	lhs := expr.Lhs.(*ast.Term).Child.(*ast.Value)
	rhs := expr.Rhs.(*ast.Term).Child.(*ast.Value)
	if lhs.Literal.Int != 10 {
		t.Errorf("lhs = %d, want 10", lhs.Literal.Int)
	}
	if rhs.Literal.Int != 5 {
		t.Errorf("rhs = %d, want 5", rhs.Literal.Int)
	}
}

func TestParseUnaryNegation(t *testing.T) {
	functions := parseFunctions(t, `int main() { int x = -5; return x; }`)
	decl := functions[0].Body[0].(*ast.VarDecl)
	expr, ok := decl.Init.(*ast.Expression)
	if !ok {
		t.Fatalf("VarDecl.Init = %T, want *ast.Expression", decl.Init)
	}
	if expr.Op == nil || *expr.Op != ast.NegateNumerical {
		t.Fatalf("got op %v, want NegateNumerical", expr.Op)
	}
	if expr.Rhs != nil {
		t.Fatalf("unary expression should have nil Rhs, got %+v", expr.Rhs)
	}
}

// TestParseShiftOperatorsPreserveInversion confirms the parser feeds the raw token text
// straight to ast.BinaryOperatorFromString without re-normalizing it, so the inverted
// shift mapping survives end to end from source text.
func TestParseShiftOperatorsPreserveInversion(t *testing.T) {
	functions := parseFunctions(t, `int main() { int x = 1 << 2; return x; }`)
	decl := functions[0].Body[0].(*ast.VarDecl)
	expr := decl.Init.(*ast.Expression)
	if *expr.Op != ast.RightShiftLogical {
		t.Fatalf("got op %v, want RightShiftLogical for token '<<'", *expr.Op)
	}
}

func TestParseIfElifElse(t *testing.T) {
	src := `
	int main() {
		int x = 1;
		if (x == 1) {
			return 1;
		} elif (x == 2) {
			return 2;
		} else {
			return 0;
		}
	}`
	functions := parseFunctions(t, src)
	ieie, ok := functions[0].Body[1].(*ast.IfElifElse)
	if !ok {
		t.Fatalf("body[1] = %T, want *ast.IfElifElse", functions[0].Body[1])
	}
	if len(ieie.Arms) != 3 {
		t.Fatalf("got %d arms, want 3 (if, elif, else)", len(ieie.Arms))
	}
	if _, ok := ieie.Arms[0].(*ast.IfStatement); !ok {
		t.Errorf("arm 0 = %T, want *ast.IfStatement", ieie.Arms[0])
	}
	if _, ok := ieie.Arms[1].(*ast.IfStatement); !ok {
		t.Errorf("arm 1 (elif) = %T, want *ast.IfStatement", ieie.Arms[1])
	}
	if _, ok := ieie.Arms[2].(*ast.ElseStatement); !ok {
		t.Errorf("arm 2 = %T, want *ast.ElseStatement", ieie.Arms[2])
	}
}

func TestParseForLoop(t *testing.T) {
	src := `int main() {
		for (int i = 0; i <= 10; i += 1) {
			print(i);
		}
		return 0;
	}`
	functions := parseFunctions(t, src)
	loop, ok := functions[0].Body[0].(*ast.ForLoop)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.ForLoop", functions[0].Body[0])
	}
	if loop.ControlName != "i" || loop.ControlType != ast.Int {
		t.Fatalf("got control var %q:%s, want i:int", loop.ControlName, loop.ControlType)
	}
	if len(loop.Body) != 1 {
		t.Fatalf("got %d body statements, want 1", len(loop.Body))
	}
}

func TestParseTernary(t *testing.T) {
	functions := parseFunctions(t, `int main() { int x = true ? 1 : 2; return x; }`)
	decl := functions[0].Body[0].(*ast.VarDecl)
	ternary, ok := decl.Init.(*ast.TernaryExpression)
	if !ok {
		t.Fatalf("VarDecl.Init = %T, want *ast.TernaryExpression", decl.Init)
	}
	if ternary.IfTrue == nil || ternary.IfFalse == nil {
		t.Fatal("ternary arms must both be populated")
	}
}

func TestParseIndefLoopAndBreak(t *testing.T) {
	functions := parseFunctions(t, `int main() { loop { break; } return 0; }`)
	loop, ok := functions[0].Body[0].(*ast.IndefLoop)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.IndefLoop", functions[0].Body[0])
	}
	if _, ok := loop.Body[0].(*ast.Break); !ok {
		t.Fatalf("loop body[0] = %T, want *ast.Break", loop.Body[0])
	}
}

func TestParseFunctionCallWithArgs(t *testing.T) {
	src := `
	int add(int a, int b) { return a + b; }
	int main() { int x = add(1, 2); return x; }`
	functions := parseFunctions(t, src)
	if len(functions) != 2 {
		t.Fatalf("got %d functions, want 2", len(functions))
	}
	decl := functions[1].Body[0].(*ast.VarDecl)
	call, ok := decl.Init.(*ast.FunctionCall)
	if !ok {
		t.Fatalf("VarDecl.Init = %T, want *ast.FunctionCall", decl.Init)
	}
	if call.Name != "add" || len(call.Args) != 2 {
		t.Fatalf("got call %+v", call)
	}
}

func TestParseUnrecognizedTokenFails(t *testing.T) {
	p := NewParser(strings.NewReader(`int main() { @@@ }`))
	if _, err := p.Parse(); err == nil {
		t.Fatal("expected a parse error for malformed source")
	}
}
