package validator

import (
	"errors"
	"strings"
	"testing"

	"iridescent.dev/compiler/pkg/ast"
	"iridescent.dev/compiler/pkg/diag"
	"iridescent.dev/compiler/pkg/parser"
	"iridescent.dev/compiler/pkg/symtab"
)

func parseAndBuild(t *testing.T, source string) ([]*ast.Function, *symtab.Table) {
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
	return functions, table
}

func validate(t *testing.T, source string) []error {
	t.Helper()
	functions, table := parseAndBuild(t, source)
	return New(table).Validate(functions)
}

func TestValidateAcceptsWellTypedProgram(t *testing.T) {
	errs := validate(t, `int add(int a, int b) { return a + b; }
	int main() { int x = add(1, 2); return x; }`)
	if len(errs) != 0 {
		t.Fatalf("got errors %v, want none", errs)
	}
}

func TestValidateRejectsMismatchedVarDeclType(t *testing.T) {
	errs := validate(t, `int main() { int x = true; return x; }`)
	requireSingleError[*diag.IncorrectDatatype](t, errs)
}

func TestValidateRejectsImmutableReassignment(t *testing.T) {
	errs := validate(t, `int main() { int x = 1; x = 2; return x; }`)
	requireSingleError[*diag.ImmutableReassignment](t, errs)
}

func TestValidateAllowsMutableReassignment(t *testing.T) {
	errs := validate(t, `int main() { mut int x = 1; x = 2; return x; }`)
	if len(errs) != 0 {
		t.Fatalf("got errors %v, want none", errs)
	}
}

func TestValidateRejectsArityMismatch(t *testing.T) {
	errs := validate(t, `int add(int a, int b) { return a + b; }
	int main() { int x = add(1); return x; }`)
	requireSingleError[*diag.IncorrectNumArguments](t, errs)
}

func TestValidateRejectsMissingReturn(t *testing.T) {
	errs := validate(t, `int main() { int x = 1; }`)
	requireSingleError[*diag.BadFunctionReturn](t, errs)
}

func TestValidateRejectsIndefLoopWithoutBreak(t *testing.T) {
	errs := validate(t, `int main() { loop { int x = 1; } return 0; }`)
	requireSingleError[*diag.MissingBreakInIndefLoop](t, errs)
}

func TestValidateAllowsIndefLoopWithNestedIfBreak(t *testing.T) {
	errs := validate(t, `int main() {
		loop {
			if (true) { break; }
		}
		return 0;
	}`)
	if len(errs) != 0 {
		t.Fatalf("got errors %v, want none", errs)
	}
}

// TestValidateRejectsIndefLoopWhereOnlyNestedLoopBreaks checks that a break inside a
// nested loop does not satisfy the outer indefinite loop's own break requirement.
func TestValidateRejectsIndefLoopWhereOnlyNestedLoopBreaks(t *testing.T) {
	errs := validate(t, `int main() {
		loop {
			while (true) { break; }
		}
		return 0;
	}`)
	requireSingleError[*diag.MissingBreakInIndefLoop](t, errs)
}

func TestValidateRejectsNonIntegralForLoopControlVariable(t *testing.T) {
	errs := validate(t, `int main() {
		for (float i = 0.0; i <= 10.0; i += 1.0) { print(i); }
		return 0;
	}`)
	requireSingleError[*diag.ControlVariableNotIntegral](t, errs)
}

func TestValidateRejectsUnknownIdentifier(t *testing.T) {
	errs := validate(t, `int main() { return y; }`)
	requireSingleError[*diag.SymbolNotFound](t, errs)
}

func TestValidateTernaryRequiresMatchingBranchTypes(t *testing.T) {
	errs := validate(t, `int main() { int x = true ? 1 : true; return x; }`)
	requireSingleError[*diag.IncorrectDatatype](t, errs)
}

func TestValidateUnaryComplementRequiresIntegralOperand(t *testing.T) {
	errs := validate(t, `int main() { float x = ~1.0; return 0; }`)
	requireSingleError[*diag.IncorrectDatatype](t, errs)
}

func requireSingleError[T error](t *testing.T, errs []error) {
	t.Helper()
	if len(errs) != 1 {
		t.Fatalf("got %d errors (%v), want exactly 1", len(errs), errs)
	}
	var want T
	if !errors.As(errs[0], &want) {
		t.Fatalf("got error %v (%T), want %T", errs[0], errs[0], want)
	}
}
