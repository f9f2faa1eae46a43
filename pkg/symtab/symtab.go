// Package symtab builds and queries the flat symbol table. Rows live in an arena (a single
// growing slice) addressed by integer index rather than by owning pointer: this avoids
// cycles and the need for heap-allocated parent back-pointers.
package symtab

import (
	"iridescent.dev/compiler/pkg/ast"
	"iridescent.dev/compiler/pkg/diag"
)

// Kind tags which of the three row shapes a Row holds.
type Kind int

const (
	KindFunction Kind = iota
	KindVariable
	KindScopeBlock
)

// Row is one arena entry. Only the fields relevant to Kind are meaningful, mirroring the
// tagged-union shape of the three row variants.
type Row struct {
	Kind Kind
	Name string

	ParentScopeID int // scope this row lives in; 0 = global
	ParentRow     int // index of the enclosing ScopeBlock/Function row, -1 if none (global)

	// Function fields
	ReturnType     ast.Type
	ParameterTypes []ast.Type
	ScopeID        int // the function's own body scope

	// Variable fields
	Type       ast.Type
	Mutability ast.Mutability

	// ScopeBlock fields (ScopeID reused above for the block's own id)
}

// Table is the arena of Row values produced by Build. It is mutated only during
// construction; every downstream pass (pkg/validator, pkg/ir) treats it as read-only.
type Table struct {
	rows []Row
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{}
}

// Rows returns the arena's rows in insertion order.
func (t *Table) Rows() []Row {
	return t.rows
}

// Row returns the row at index i.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Add inserts a row, rejecting a (name, parent_scope_id) collision between Function or
// Variable rows with a diag.DuplicateIdentifier. ScopeBlock rows are named after their
// keyword ("if", "else", "loop", ...), so sibling blocks share a name and are not checked.
// Returns the new row's arena index.
func (t *Table) Add(row Row) (int, error) {
	for _, existing := range t.rows {
		if row.Kind == KindScopeBlock || existing.Kind == KindScopeBlock {
			continue
		}
		if existing.Name == row.Name && existing.ParentScopeID == row.ParentScopeID {
			return -1, &diag.DuplicateIdentifier{Name: row.Name}
		}
	}
	t.rows = append(t.rows, row)
	return len(t.rows) - 1, nil
}

// Lookup scans the scope-history chain (global first) for a row named name whose
// ParentScopeID is in history, returning the closest match (last entry in history wins,
// i.e. the innermost enclosing scope).
func (t *Table) Lookup(name string, history []int) (Row, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		scope := history[i]
		for _, row := range t.rows {
			if row.Kind == KindVariable && row.Name == name && row.ParentScopeID == scope {
				return row, true
			}
		}
	}
	return Row{}, false
}

// LookupFunction scans the global scope for a function named name.
func (t *Table) LookupFunction(name string) (Row, bool) {
	for _, row := range t.rows {
		if row.Kind == KindFunction && row.Name == name {
			return row, true
		}
	}
	return Row{}, false
}

// Build walks a forest of parsed functions and produces a Table: one row per function, one
// per parameter, one per local declaration, one per scope-introducing block, one per
// for-loop control variable. Every ScopeBlock row's ParentScopeID names the scope it is
// nested in (not its own scope) and its ParentRow indexes the enclosing Function or
// ScopeBlock row, so the parent chain always roots at a Function.
func Build(functions []*ast.Function) (*Table, error) {
	table := NewTable()

	for _, fn := range functions {
		paramTypes := make([]ast.Type, len(fn.Params))
		for i, p := range fn.Params {
			paramTypes[i] = p.Type
		}

		fnRow, err := table.Add(Row{
			Kind: KindFunction, Name: fn.Name, ParentScopeID: 0, ParentRow: -1,
			ReturnType: fn.ReturnType, ParameterTypes: paramTypes, ScopeID: fn.ScopeID,
		})
		if err != nil {
			return nil, err
		}

		for _, p := range fn.Params {
			if _, err := table.Add(Row{
				Kind: KindVariable, Name: p.Name, ParentScopeID: fn.ScopeID,
				Type: p.Type, Mutability: ast.Constant,
			}); err != nil {
				return nil, err
			}
		}

		if err := buildBody(table, fn.Body, fn.ScopeID, fnRow); err != nil {
			return nil, err
		}
	}

	return table, nil
}

// buildBody walks one scope's statement list. scopeID is the scope those statements (and
// any VarDecl among them) belong to; parentRow is the arena index of the Function or
// ScopeBlock row that owns scopeID, used as the ParentRow of any nested ScopeBlock.
func buildBody(table *Table, body []ast.Node, scopeID, parentRow int) error {
	for _, node := range body {
		if err := buildNode(table, node, scopeID, parentRow); err != nil {
			return err
		}
	}
	return nil
}

func buildNode(table *Table, node ast.Node, scopeID, parentRow int) error {
	switch n := node.(type) {
	case *ast.VarDecl:
		_, err := table.Add(Row{
			Kind: KindVariable, Name: n.Name, ParentScopeID: scopeID,
			Type: n.Type, Mutability: n.Mutability,
		})
		return err

	case *ast.IfElifElse:
		for _, arm := range n.Arms {
			switch a := arm.(type) {
			case *ast.IfStatement:
				row, err := table.Add(Row{Kind: KindScopeBlock, Name: "if", ParentScopeID: scopeID, ParentRow: parentRow, ScopeID: a.ScopeID})
				if err != nil {
					return err
				}
				if err := buildBody(table, a.Body, a.ScopeID, row); err != nil {
					return err
				}
			case *ast.ElseStatement:
				row, err := table.Add(Row{Kind: KindScopeBlock, Name: "else", ParentScopeID: scopeID, ParentRow: parentRow, ScopeID: a.ScopeID})
				if err != nil {
					return err
				}
				if err := buildBody(table, a.Body, a.ScopeID, row); err != nil {
					return err
				}
			}
		}
		return nil

	case *ast.IndefLoop:
		row, err := table.Add(Row{Kind: KindScopeBlock, Name: "loop", ParentScopeID: scopeID, ParentRow: parentRow, ScopeID: n.ScopeID})
		if err != nil {
			return err
		}
		return buildBody(table, n.Body, n.ScopeID, row)

	case *ast.WhileLoop:
		row, err := table.Add(Row{Kind: KindScopeBlock, Name: "while", ParentScopeID: scopeID, ParentRow: parentRow, ScopeID: n.ScopeID})
		if err != nil {
			return err
		}
		return buildBody(table, n.Body, n.ScopeID, row)

	case *ast.ForLoop:
		row, err := table.Add(Row{Kind: KindScopeBlock, Name: "for", ParentScopeID: scopeID, ParentRow: parentRow, ScopeID: n.ScopeID})
		if err != nil {
			return err
		}
		if _, err := table.Add(Row{
			Kind: KindVariable, Name: n.ControlName, ParentScopeID: n.ScopeID,
			Type: n.ControlType, Mutability: ast.Mutable,
		}); err != nil {
			return err
		}
		return buildBody(table, n.Body, n.ScopeID, row)

	default:
		// Return, VarAssign, FunctionCall, Break, Continue, Print and expression
		// statements introduce no symbol-table rows.
		return nil
	}
}
