// Package parser turns source text into the typed AST defined in pkg/ast. Parsing happens
// in two phases: goparsec combinators first build a generic, library-owned pc.Queryable
// tree (FromSource), then a DFS walk (FromAST) converts that tree into pkg/ast nodes that
// do not depend on the parsing library. Scope identifiers are assigned during this same
// walk, monotonically starting above the reserved global scope 0, since goparsec's tree
// carries no such concept itself.
package parser

import (
	"fmt"
	"io"
	"os"
	"strconv"

	pc "github.com/prataprc/goparsec"

	"iridescent.dev/compiler/pkg/ast"
	"iridescent.dev/compiler/pkg/diag"
)

// ----------------------------------------------------------------------------
// Parser combinators

var pcAST = pc.NewAST("program", 0)

var (
	pProgram = pcAST.Kleene("program", nil, pFunction)

	pFunction = pcAST.And("function", nil,
		pType, pIdent, pLParen,
		pcAST.Kleene("params", nil, pParam, pComma), pRParen,
		pLBrace, pcAST.Kleene("body", nil, pStatement), pRBrace,
	)

	pParam = pcAST.And("param", nil, pType, pIdent)
)

var (
	pStatement = pcAST.OrdChoice("statement", nil,
		pReturnStmt, pVarDeclStmt, pVarAssignStmt, pIfElifElse,
		pIndefLoop, pWhileLoop, pForLoop,
		pBreakStmt, pContinueStmt, pPrintStmt, pFuncCallStmt,
	)

	pReturnStmt = pcAST.And("return_stmt", nil,
		pc.Atom("return", "RETURN"), pc.Maybe(nil, pExprOrBool), pSemi)

	pVarDeclStmt = pcAST.And("var_decl", nil,
		pc.Maybe(nil, pMutability), pType, pIdent, pc.Atom("=", "ASSIGN"), pExprOrBool, pSemi)

	pVarAssignStmt = pcAST.And("var_assign", nil,
		pIdent, pc.Atom("=", "ASSIGN"), pExprOrBool, pSemi)

	pFuncCallStmt = pcAST.And("func_call_stmt", nil, pFuncCall, pSemi)

	pBreakStmt    = pcAST.And("break_stmt", nil, pc.Atom("break", "BREAK"), pSemi)
	pContinueStmt = pcAST.And("continue_stmt", nil, pc.Atom("continue", "CONTINUE"), pSemi)

	pPrintStmt = pcAST.And("print_stmt", nil,
		pc.Atom("print", "PRINT"), pLParen,
		pcAST.Kleene("terms", nil, pExprOrBool, pComma), pRParen, pSemi)
)

var (
	pIfElifElse = pcAST.And("if_elif_else", nil,
		pIfArm, pcAST.Kleene("elif_arms", nil, pElifArm), pc.Maybe(nil, pElseArm))

	pIfArm = pcAST.And("if_arm", nil,
		pc.Atom("if", "IF"), pLParen, pExprOrBool, pRParen,
		pLBrace, pcAST.Kleene("body", nil, pStatement), pRBrace)

	pElifArm = pcAST.And("elif_arm", nil,
		pc.Atom("elif", "ELIF"), pLParen, pExprOrBool, pRParen,
		pLBrace, pcAST.Kleene("body", nil, pStatement), pRBrace)

	pElseArm = pcAST.And("else_arm", nil,
		pc.Atom("else", "ELSE"), pLBrace, pcAST.Kleene("body", nil, pStatement), pRBrace)
)

var (
	pIndefLoop = pcAST.And("indef_loop", nil,
		pc.Atom("loop", "LOOP"), pLBrace, pcAST.Kleene("body", nil, pStatement), pRBrace)

	pWhileLoop = pcAST.And("while_loop", nil,
		pc.Atom("while", "WHILE"), pLParen, pExprOrBool, pRParen,
		pLBrace, pcAST.Kleene("body", nil, pStatement), pRBrace)

	pForLoop = pcAST.And("for_loop", nil,
		pc.Atom("for", "FOR"), pLParen,
		pType, pIdent, pc.Atom("=", "ASSIGN"), pExpression, pSemi,
		pIdent, pRelOp, pExpression, pSemi,
		pIdent, pc.Atom("+=", "PLUSEQ"), pExpression,
		pRParen, pLBrace, pcAST.Kleene("body", nil, pStatement), pRBrace)
)

// Expression grammar mirrors the flat Expression(lhs, op?, rhs?) / BooleanExpression
// shape of the AST: this is not a precedence-climbing grammar with many levels, matching
// the simplified binary-tree shape the AST node variants describe.
var (
	pExprOrBool = pcAST.OrdChoice("expr_or_bool", nil, pTernary, pBooleanExpression, pExpression)

	pTernary = pcAST.And("ternary", nil,
		pBooleanExpression, pc.Atom("?", "QUESTION"), pExprOrBool, pc.Atom(":", "COLON"), pExprOrBool)

	pExpression = pcAST.And("expression", nil,
		pUnaryOrTerm, pc.Maybe(nil, pcAST.And("expr_tail", nil, pBinOp, pTerm)))

	pUnaryOrTerm = pcAST.OrdChoice("unary_or_term", nil,
		pcAST.And("unary_term", nil, pUnOp, pTerm), pTerm)

	pBooleanExpression = pcAST.And("boolean_expression", nil,
		pBooleanTerm, pcAST.Kleene("bool_tail", nil, pcAST.And("connector_term", nil, pConnector, pBooleanTerm)))

	pBooleanTerm = pcAST.OrdChoice("boolean_term", nil,
		pcAST.And("bool_term_rel", nil, pExpression, pRelOp, pExpression),
		pcAST.And("bool_term_unary", nil, pc.Atom("!", "INVERT"), pBooleanAtom),
		pBooleanAtom,
	)

	pBooleanAtom = pcAST.OrdChoice("boolean_atom", nil,
		pFuncCall,
		pcAST.And("paren_bool", nil, pLParen, pBooleanExpression, pRParen),
		pcAST.And("bool_literal", nil, pBoolLit),
		pcAST.And("bool_ident", nil, pIdent),
	)

	pTerm = pcAST.And("term", nil, pPrimary)

	pPrimary = pcAST.OrdChoice("primary", nil,
		pcAST.And("paren_expr", nil, pLParen, pExprOrBool, pRParen),
		pTypeCast,
		pFuncCall,
		pcAST.And("value", nil, pLiteral),
		pcAST.And("ident_ref", nil, pIdent),
	)

	pTypeCast = pcAST.And("type_cast", nil, pLParen, pType, pRParen, pTerm)

	pFuncCall = pcAST.And("func_call", nil,
		pIdent, pLParen, pcAST.Kleene("args", nil, pExprOrBool, pComma), pRParen)
)

var (
	// NOTE: float/double must be tried before int, otherwise the integer part of a
	// float literal would be consumed by the int token first.
	pLiteral = pcAST.OrdChoice("literal", nil,
		pFloatLit, pIntLit, pCharLit, pStringLit, pBoolLit,
	)

	pIntLit    = pc.Token(`0[bB][01]+[lb]?|0[xX][0-9a-fA-F]+[lb]?|[0-9]+[lb]?`, "INT")
	pFloatLit  = pc.Token(`[0-9]+\.[0-9]+d?`, "FLOAT")
	pCharLit   = pc.Token(`'(\\.|[^'\\])'`, "CHAR")
	pStringLit = pc.Token(`"(\\.|[^"\\])*"`, "STRING")
	pBoolLit   = pcAST.OrdChoice("bool_lit", nil, pc.Atom("true", "TRUE"), pc.Atom("false", "FALSE"))
)

var (
	pIdent = pc.Token(`[A-Za-z_][0-9a-zA-Z_]*`, "IDENT")

	pMutability = pcAST.OrdChoice("mutability", nil, pc.Atom("mut", "MUT"), pc.Atom("const", "CONST"))

	pType = pcAST.OrdChoice("type", nil,
		pc.Atom("void", "VOID"), pc.Atom("byte", "BYTE"), pc.Atom("int", "INT_T"),
		pc.Atom("long", "LONG"), pc.Atom("float", "FLOAT_T"), pc.Atom("double", "DOUBLE"),
		pc.Atom("char", "CHAR_T"), pc.Atom("bool", "BOOL_T"), pc.Atom("string", "STRING_T"),
	)

	// Order matters: longer operators must be tried before their prefixes.
	pBinOp = pcAST.OrdChoice("bin_op", nil,
		pc.Atom("+", "PLUS"), pc.Atom("-", "MINUS"), pc.Atom("*", "STAR"), pc.Atom("/", "SLASH"),
		pc.Atom("&", "AMP"), pc.Atom("|", "PIPE"), pc.Atom("^", "CARET"),
		pc.Atom(">>>", "ASHIFTR"), pc.Atom(">>", "TOK_RSHIFT"), pc.Atom("<<", "TOK_LSHIFT"),
	)

	pRelOp = pcAST.OrdChoice("rel_op", nil,
		pc.Atom("==", "EQ"), pc.Atom("!=", "NEQ"),
		pc.Atom(">=", "GE"), pc.Atom("<=", "LE"), pc.Atom(">", "GT"), pc.Atom("<", "LT"),
	)

	pConnector = pcAST.OrdChoice("connector", nil,
		pc.Atom("&&", "AND"), pc.Atom("||", "OR"), pc.Atom("^^", "XOR"))

	pUnOp = pcAST.OrdChoice("un_op", nil,
		pc.Atom("!", "BANG"), pc.Atom("-", "UMINUS"), pc.Atom("~", "TILDE"))

	pSemi   = pc.Atom(";", "SEMI")
	pComma  = pc.Atom(",", "COMMA")
	pLBrace = pc.Atom("{", "LBRACE")
	pRBrace = pc.Atom("}", "RBRACE")
	pLParen = pc.Atom("(", "LPAREN")
	pRParen = pc.Atom(")", "RPAREN")
)

// ----------------------------------------------------------------------------
// Parser

// Parser converts source text read from an io.Reader into a forest of pkg/ast.Function
// nodes. It owns the monotonic scope-id counter for the duration of one compilation,
// kept as parser state rather than a package-level global.
type Parser struct {
	reader    io.Reader
	nextScope int
}

// NewParser returns a Parser reading source from r. Scope id 0 is reserved for the
// global scope; the parser's own counter starts at 1.
func NewParser(r io.Reader) *Parser {
	return &Parser{reader: r, nextScope: 1}
}

// Parse runs the full text-to-AST pipeline: read, build the generic parse tree, then
// convert it to typed pkg/ast.Function nodes.
func (p *Parser) Parse() ([]*ast.Function, error) {
	content, err := io.ReadAll(p.reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read source: %w", err)
	}

	root, ok := p.FromSource(content)
	if !ok {
		return nil, &diag.UnrecognizedToken{Token: "<eof>"}
	}

	return p.FromAST(root)
}

// FromSource scans source and returns the library-owned traversable parse tree.
func (p *Parser) FromSource(source []byte) (pc.Queryable, bool) {
	if os.Getenv("PARSEC_DEBUG") != "" {
		pcAST.SetDebug()
	}

	root, scanner := pcAST.Parsewith(pProgram, pc.NewScanner(source))
	_, _, eof := scanner.Endof()

	if os.Getenv("PRINT_AST") != "" {
		pcAST.Prettyprint()
	}

	return root, root != nil && eof
}

// FromAST walks the generic parse tree, producing one pkg/ast.Function per top-level
// declaration and assigning fresh scope ids to every scope-introducing body along the way.
func (p *Parser) FromAST(root pc.Queryable) ([]*ast.Function, error) {
	if root.GetName() != "program" {
		return nil, &diag.UnrecognizedToken{Token: root.GetName()}
	}

	functions := make([]*ast.Function, 0, len(root.GetChildren()))
	for _, child := range root.GetChildren() {
		fn, err := p.handleFunction(child)
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}
	return functions, nil
}

func (p *Parser) freshScope() int {
	id := p.nextScope
	p.nextScope++
	return id
}

func (p *Parser) handleFunction(node pc.Queryable) (*ast.Function, error) {
	children := node.GetChildren()
	if node.GetName() != "function" || len(children) < 4 {
		return nil, &diag.UnrecognizedToken{Token: node.GetName()}
	}

	returnType, err := ast.TypeFromString(children[0].GetValue())
	if err != nil {
		return nil, &diag.UnrecognizedToken{Token: children[0].GetValue()}
	}
	name := children[1].GetValue()

	var params []*ast.Parameter
	for _, p := range children[2].GetChildren() {
		param, err := handleParam(p)
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}

	scopeID := p.freshScope()
	body, err := p.handleStatementList(children[3])
	if err != nil {
		return nil, err
	}

	return &ast.Function{ReturnType: returnType, Name: name, Params: params, Body: body, ScopeID: scopeID}, nil
}

func handleParam(node pc.Queryable) (*ast.Parameter, error) {
	children := node.GetChildren()
	if node.GetName() != "param" || len(children) != 2 {
		return nil, &diag.UnrecognizedToken{Token: node.GetName()}
	}
	t, err := ast.TypeFromString(children[0].GetValue())
	if err != nil {
		return nil, &diag.UnrecognizedToken{Token: children[0].GetValue()}
	}
	return &ast.Parameter{Type: t, Name: children[1].GetValue()}, nil
}

func (p *Parser) handleStatementList(node pc.Queryable) ([]ast.Node, error) {
	var body []ast.Node
	for _, stmt := range node.GetChildren() {
		n, err := p.handleStatement(stmt)
		if err != nil {
			return nil, err
		}
		body = append(body, n)
	}
	return body, nil
}

func (p *Parser) handleStatement(node pc.Queryable) (ast.Node, error) {
	// pStatement is an OrdChoice, so the actual node is its single child.
	inner := node
	if node.GetName() == "statement" && len(node.GetChildren()) == 1 {
		inner = node.GetChildren()[0]
	}

	switch inner.GetName() {
	case "return_stmt":
		return p.handleReturn(inner)
	case "var_decl":
		return p.handleVarDecl(inner)
	case "var_assign":
		return p.handleVarAssign(inner)
	case "func_call_stmt":
		return p.handleExprOrBool(inner.GetChildren()[0])
	case "if_elif_else":
		return p.handleIfElifElse(inner)
	case "indef_loop":
		return p.handleIndefLoop(inner)
	case "while_loop":
		return p.handleWhileLoop(inner)
	case "for_loop":
		return p.handleForLoop(inner)
	case "break_stmt":
		return &ast.Break{}, nil
	case "continue_stmt":
		return &ast.Continue{}, nil
	case "print_stmt":
		return p.handlePrint(inner)
	default:
		return nil, &diag.UnrecognizedToken{Token: inner.GetName()}
	}
}

func (p *Parser) handleReturn(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	if len(children) == 0 {
		return &ast.Return{}, nil
	}
	expr, err := p.handleExprOrBool(children[0])
	if err != nil {
		return nil, err
	}
	return &ast.Return{Expr: expr}, nil
}

func (p *Parser) handleVarDecl(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	idx := 0

	mutability := ast.Constant
	if children[idx].GetName() == "mutability" {
		m, err := ast.MutabilityFromString(children[idx].GetValue())
		if err != nil {
			return nil, err
		}
		mutability = m
		idx++
	}

	t, err := ast.TypeFromString(children[idx].GetValue())
	if err != nil {
		return nil, &diag.UnrecognizedToken{Token: children[idx].GetValue()}
	}
	idx++
	name := children[idx].GetValue()
	idx++

	init, err := p.handleExprOrBool(children[idx])
	if err != nil {
		return nil, err
	}

	return &ast.VarDecl{Type: t, Mutability: mutability, Name: name, Init: init}, nil
}

func (p *Parser) handleVarAssign(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	name := children[0].GetValue()
	expr, err := p.handleExprOrBool(children[1])
	if err != nil {
		return nil, err
	}
	return &ast.VarAssign{Name: name, Expr: expr}, nil
}

func (p *Parser) handleIfElifElse(node pc.Queryable) (ast.Node, error) {
	var arms []ast.Node

	children := node.GetChildren()
	ifArm, err := p.handleIfArm(children[0])
	if err != nil {
		return nil, err
	}
	arms = append(arms, ifArm)

	for _, child := range children[1:] {
		switch child.GetName() {
		case "elif_arm":
			arm, err := p.handleIfArm(child)
			if err != nil {
				return nil, err
			}
			arms = append(arms, arm)
		case "else_arm":
			arm, err := p.handleElseArm(child)
			if err != nil {
				return nil, err
			}
			arms = append(arms, arm)
		}
	}

	return &ast.IfElifElse{Arms: arms}, nil
}

func (p *Parser) handleIfArm(node pc.Queryable) (*ast.IfStatement, error) {
	children := node.GetChildren()
	cond, err := p.handleExprOrBool(children[0])
	if err != nil {
		return nil, err
	}

	scopeID := p.freshScope()
	body, err := p.handleStatementList(children[1])
	if err != nil {
		return nil, err
	}
	return &ast.IfStatement{Cond: cond, Body: body, ScopeID: scopeID}, nil
}

func (p *Parser) handleElseArm(node pc.Queryable) (*ast.ElseStatement, error) {
	scopeID := p.freshScope()
	body, err := p.handleStatementList(node.GetChildren()[0])
	if err != nil {
		return nil, err
	}
	return &ast.ElseStatement{Body: body, ScopeID: scopeID}, nil
}

func (p *Parser) handleIndefLoop(node pc.Queryable) (ast.Node, error) {
	scopeID := p.freshScope()
	body, err := p.handleStatementList(node.GetChildren()[0])
	if err != nil {
		return nil, err
	}
	return &ast.IndefLoop{Body: body, ScopeID: scopeID}, nil
}

func (p *Parser) handleWhileLoop(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	cond, err := p.handleExprOrBool(children[0])
	if err != nil {
		return nil, err
	}
	scopeID := p.freshScope()
	body, err := p.handleStatementList(children[1])
	if err != nil {
		return nil, err
	}
	return &ast.WhileLoop{Cond: cond, Body: body, ScopeID: scopeID}, nil
}

func (p *Parser) handleForLoop(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	// type, ident(control name), initial, ident(ref, ignored - same control var), relop(ignored), limit,
	// ident(ref, ignored), step, body
	ctrlType, err := ast.TypeFromString(children[0].GetValue())
	if err != nil {
		return nil, &diag.UnrecognizedToken{Token: children[0].GetValue()}
	}
	ctrlName := children[1].GetValue()

	initial, err := p.handleExprOrBool(children[2])
	if err != nil {
		return nil, err
	}
	// children[3] is the repeated control-variable identifier in the limit clause.
	limit, err := p.handleExprOrBool(children[5])
	if err != nil {
		return nil, err
	}
	// children[6] is the repeated control-variable identifier in the step clause.
	step, err := p.handleExprOrBool(children[7])
	if err != nil {
		return nil, err
	}

	scopeID := p.freshScope()
	body, err := p.handleStatementList(children[8])
	if err != nil {
		return nil, err
	}

	return &ast.ForLoop{
		ControlType: ctrlType, ControlName: ctrlName,
		Initial: initial, Limit: limit, Step: step,
		Body: body, ScopeID: scopeID,
	}, nil
}

func (p *Parser) handlePrint(node pc.Queryable) (ast.Node, error) {
	var terms []ast.Node
	for _, child := range node.GetChildren()[0].GetChildren() {
		t, err := p.handleExprOrBool(child)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return &ast.Print{Terms: terms}, nil
}

// handleExprOrBool dispatches to the appropriate expression-family handler based on
// the node's tag; pExprOrBool is an OrdChoice so its child carries the real shape.
func (p *Parser) handleExprOrBool(node pc.Queryable) (ast.Node, error) {
	inner := node
	if node.GetName() == "expr_or_bool" && len(node.GetChildren()) == 1 {
		inner = node.GetChildren()[0]
	}

	switch inner.GetName() {
	case "ternary":
		return p.handleTernary(inner)
	case "boolean_expression":
		return p.handleBooleanExpression(inner)
	case "expression":
		return p.handleExpression(inner)
	default:
		return nil, &diag.UnrecognizedToken{Token: inner.GetName()}
	}
}

func (p *Parser) handleTernary(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	cond, err := p.handleBooleanExpression(children[0])
	if err != nil {
		return nil, err
	}
	ifTrue, err := p.handleExprOrBool(children[1])
	if err != nil {
		return nil, err
	}
	ifFalse, err := p.handleExprOrBool(children[2])
	if err != nil {
		return nil, err
	}
	return &ast.TernaryExpression{Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse}, nil
}

func (p *Parser) handleExpression(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()

	first := children[0]
	if first.GetName() == "unary_or_term" && len(first.GetChildren()) == 1 {
		first = first.GetChildren()[0]
	}

	var lhs ast.Node
	if first.GetName() == "unary_term" {
		op, err := ast.UnaryOperatorFromString(first.GetChildren()[0].GetValue())
		if err != nil {
			return nil, err
		}
		operand, err := p.handleTerm(first.GetChildren()[1])
		if err != nil {
			return nil, err
		}
		lhs = &ast.Expression{Lhs: operand, Op: &op}
	} else {
		term, err := p.handleTerm(first)
		if err != nil {
			return nil, err
		}
		lhs = term
	}

	if len(children) == 1 {
		return lhs, nil
	}

	tail := children[1]
	op, err := ast.BinaryOperatorFromString(tail.GetChildren()[0].GetValue())
	if err != nil {
		return nil, err
	}
	rhs, err := p.handleTerm(tail.GetChildren()[1])
	if err != nil {
		return nil, err
	}
	return &ast.Expression{Lhs: lhs, Op: &op, Rhs: rhs}, nil
}

func (p *Parser) handleTerm(node pc.Queryable) (ast.Node, error) {
	primary := node.GetChildren()[0]
	child, err := p.handlePrimary(primary)
	if err != nil {
		return nil, err
	}
	return &ast.Term{Child: child}, nil
}

func (p *Parser) handlePrimary(node pc.Queryable) (ast.Node, error) {
	inner := node
	if node.GetName() == "primary" && len(node.GetChildren()) == 1 {
		inner = node.GetChildren()[0]
	}

	switch inner.GetName() {
	case "paren_expr":
		return p.handleExprOrBool(inner.GetChildren()[0])
	case "type_cast":
		return p.handleTypeCast(inner)
	case "func_call":
		return p.handleFuncCall(inner)
	case "value":
		return handleLiteral(inner.GetChildren()[0])
	case "ident_ref":
		return &ast.Identifier{Name: inner.GetValue()}, nil
	default:
		return nil, &diag.UnrecognizedToken{Token: inner.GetName()}
	}
}

func (p *Parser) handleTypeCast(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	into, err := ast.TypeFromString(children[0].GetValue())
	if err != nil {
		return nil, &diag.UnrecognizedToken{Token: children[0].GetValue()}
	}
	from, err := p.handleTerm(children[1])
	if err != nil {
		return nil, err
	}
	return &ast.TypeCast{From: from, Into: into}, nil
}

func (p *Parser) handleFuncCall(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	name := children[0].GetValue()
	var args []ast.Node
	for _, arg := range children[1].GetChildren() {
		a, err := p.handleExprOrBool(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return &ast.FunctionCall{Name: name, Args: args}, nil
}

func (p *Parser) handleBooleanExpression(node pc.Queryable) (ast.Node, error) {
	children := node.GetChildren()
	lhs, err := p.handleBooleanTerm(children[0])
	if err != nil {
		return nil, err
	}
	if len(children) == 1 || len(children[1].GetChildren()) == 0 {
		return &ast.BooleanExpression{Lhs: lhs}, nil
	}

	// Fold the Kleene chain of (connector, term) pairs left-associatively.
	result := lhs
	for _, pair := range children[1].GetChildren() {
		pc := pair.GetChildren()
		connStr := pc[0].GetValue()
		conn, err := ast.BooleanConnectorFromString(connStr)
		if err != nil {
			return nil, err
		}
		rhs, err := p.handleBooleanTerm(pc[1])
		if err != nil {
			return nil, err
		}
		result = &ast.BooleanExpression{Lhs: result, Connector: &conn, Rhs: rhs}
	}
	return result, nil
}

func (p *Parser) handleBooleanTerm(node pc.Queryable) (ast.Node, error) {
	inner := node
	if node.GetName() == "boolean_term" && len(node.GetChildren()) == 1 {
		inner = node.GetChildren()[0]
	}

	switch inner.GetName() {
	case "bool_term_rel":
		children := inner.GetChildren()
		lhs, err := p.handleExpression(children[0])
		if err != nil {
			return nil, err
		}
		op, err := ast.BooleanOperatorFromString(children[1].GetValue())
		if err != nil {
			return nil, err
		}
		rhs, err := p.handleExpression(children[2])
		if err != nil {
			return nil, err
		}
		return &ast.BooleanTerm{Lhs: lhs, Op: &op, Rhs: rhs}, nil

	case "bool_term_unary":
		operand, err := p.handleBooleanAtom(inner.GetChildren()[0])
		if err != nil {
			return nil, err
		}
		op := ast.Invert
		return &ast.BooleanTerm{Lhs: operand, Op: &op}, nil

	case "boolean_atom":
		return p.handleBooleanAtom(inner)

	default:
		return nil, &diag.UnrecognizedToken{Token: inner.GetName()}
	}
}

func (p *Parser) handleBooleanAtom(node pc.Queryable) (ast.Node, error) {
	inner := node
	if node.GetName() == "boolean_atom" && len(node.GetChildren()) == 1 {
		inner = node.GetChildren()[0]
	}

	switch inner.GetName() {
	case "func_call":
		return p.handleFuncCall(inner)
	case "paren_bool":
		return p.handleBooleanExpression(inner.GetChildren()[0])
	case "bool_literal":
		lit, err := handleLiteral(inner.GetChildren()[0])
		if err != nil {
			return nil, err
		}
		return lit, nil
	case "bool_ident":
		return &ast.Identifier{Name: inner.GetValue()}, nil
	default:
		return nil, &diag.UnrecognizedToken{Token: inner.GetName()}
	}
}

func handleLiteral(node pc.Queryable) (ast.Node, error) {
	raw := node.GetValue()
	switch node.GetName() {
	case "FLOAT":
		isDouble := len(raw) > 0 && raw[len(raw)-1] == 'd'
		trimmed := raw
		if isDouble {
			trimmed = raw[:len(raw)-1]
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, &diag.UnrecognizedToken{Token: raw}
		}
		t := ast.Float
		if isDouble {
			t = ast.Double
		}
		return &ast.Value{Type: t, Literal: ast.Literal{Type: t, Float: f}}, nil

	case "INT":
		isByte := len(raw) > 0 && raw[len(raw)-1] == 'b'
		isLong := len(raw) > 0 && raw[len(raw)-1] == 'l'
		n, err := ast.IntFromLiteral(raw)
		if err != nil {
			return nil, &diag.UnrecognizedToken{Token: raw}
		}
		t := ast.Int
		if isByte {
			t = ast.Byte
		} else if isLong {
			t = ast.Long
		}
		return &ast.Value{Type: t, Literal: ast.Literal{Type: t, Int: n}}, nil

	case "CHAR":
		inner := raw[1 : len(raw)-1]
		var ch byte
		if len(inner) == 2 && inner[0] == '\\' {
			ch = unescapeChar(inner[1])
		} else {
			ch = inner[0]
		}
		return &ast.Value{Type: ast.Char, Literal: ast.Literal{Type: ast.Char, Char: ch}}, nil

	case "STRING":
		return &ast.Value{Type: ast.String, Literal: ast.Literal{Type: ast.String, Str: raw[1 : len(raw)-1]}}, nil

	case "TRUE", "FALSE":
		b, err := ast.BoolFromLiteral(raw)
		if err != nil {
			return nil, &diag.UnrecognizedToken{Token: raw}
		}
		return &ast.Value{Type: ast.Bool, Literal: ast.Literal{Type: ast.Bool, Bool: b}}, nil

	default:
		return nil, &diag.UnrecognizedToken{Token: node.GetName()}
	}
}

func unescapeChar(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case '0':
		return 0
	default:
		return c
	}
}
