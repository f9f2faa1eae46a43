package mips

import (
	"strings"
	"testing"

	"iridescent.dev/compiler/pkg/ast"
	"iridescent.dev/compiler/pkg/ir"
	"iridescent.dev/compiler/pkg/parser"
	"iridescent.dev/compiler/pkg/symtab"
)

func lower(t *testing.T, source string) string {
	t.Helper()
	p := parser.NewParser(strings.NewReader(source))
	functions, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	table, err := symtab.Build(functions)
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	instrs, err := ir.NewEmitter(table).Emit(functions)
	if err != nil {
		t.Fatalf("Emit() unexpected error: %v", err)
	}
	text, err := NewLowerer(functions).Lower(instrs)
	if err != nil {
		t.Fatalf("Lower() unexpected error: %v", err)
	}
	return text
}

func TestLowerProducesDataAndTextSections(t *testing.T) {
	out := lower(t, `int main() { return 0; }`)
	if !strings.HasPrefix(out, ".data\n") {
		t.Fatalf("expected output to start with .data section, got:\n%s", out)
	}
	if !strings.Contains(out, ".text\n") {
		t.Fatal("expected a .text section")
	}
	if !strings.Contains(out, "j main") {
		t.Fatal("expected the program to jump to main before anything else runs")
	}
	if !strings.Contains(out, "_halt:") {
		t.Fatal("expected a shared _halt epilogue")
	}
	if !strings.Contains(out, "li $v0, 10") || !strings.Contains(out, "syscall") {
		t.Fatal("expected the halt epilogue to invoke the exit syscall")
	}
}

func TestLowerMainReturnRoutesToHalt(t *testing.T) {
	out := lower(t, `int main() { return 0; }`)
	if !strings.Contains(out, "j _halt") {
		t.Fatal("expected main's return to jump to the shared halt epilogue")
	}
}

func TestLowerOrdinaryFunctionReturnsNormally(t *testing.T) {
	out := lower(t, `int add(int a, int b) { return a + b; }
	int main() { int x = add(1, 2); return x; }`)
	if !strings.Contains(out, "jr $ra") {
		t.Fatal("expected a non-main function to restore and jump through $ra")
	}
}

func TestLowerStringLiteralAllocatesDataLabel(t *testing.T) {
	out := lower(t, `int main() { print("hi"); return 0; }`)
	if !strings.Contains(out, ".asciiz") {
		t.Fatal("expected a string literal to land in the .data section as .asciiz")
	}
	if !strings.Contains(out, "_t_0") {
		t.Fatal("expected the first literal pool entry to be labeled _t_0")
	}
}

func TestLowerRepeatedStringLiteralReusesLabel(t *testing.T) {
	out := lower(t, `int main() { print("same"); print("same"); return 0; }`)
	if strings.Count(out, ".asciiz") != 1 {
		t.Fatalf("expected the repeated literal to be pooled once, got %d .asciiz directives", strings.Count(out, ".asciiz"))
	}
}

func TestLowerUnsupportedCastReportsError(t *testing.T) {
	var functions []*ast.Function
	l := NewLowerer(functions)
	instrs := []ir.Instruction{
		{Op: ir.OpPush, Type: ast.Bool},
		{Op: ir.OpCast, FromType: ast.Bool, Type: ast.Int},
	}
	if _, err := l.Lower(instrs); err == nil {
		t.Fatal("expected an error lowering a cast with no matching template")
	}
}

func TestWidthOf(t *testing.T) {
	cases := []struct {
		t    ast.Type
		want int
	}{
		{ast.Int, 4}, {ast.Byte, 4}, {ast.Bool, 4}, {ast.Char, 4}, {ast.String, 4},
		{ast.Long, 8}, {ast.Double, 8},
	}
	for _, c := range cases {
		if got := widthOf(c.t); got != c.want {
			t.Errorf("widthOf(%s) = %d, want %d", c.t, got, c.want)
		}
	}
}

func TestSubstituteMismatchedArityFails(t *testing.T) {
	l := NewLowerer(nil)
	if _, err := l.substitute([]string{"sw $ra, {}($fp)"}, "store"); err == nil {
		t.Fatal("expected a TemplateArityMismatch error for a missing argument")
	}
}
