package parser

import (
	"testing"

	"github.com/az/bfc/ast"
	"github.com/az/bfc/lexer"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return prog
}

func TestParseSimpleAssignment(t *testing.T) {
	prog := parse(t, `a = 3;`)
	if len(prog.Statements) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(prog.Statements))
	}
	assign, ok := prog.Statements[0].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("expected *ast.AssignStatement, got %T", prog.Statements[0])
	}
	ident, ok := assign.Target.(*ast.Identifier)
	if !ok || ident.Name != "a" {
		t.Fatalf("expected target identifier 'a', got %#v", assign.Target)
	}
	lit, ok := assign.Value.(*ast.IntegerLiteral)
	if !ok || lit.Value != 3 {
		t.Fatalf("expected integer literal 3, got %#v", assign.Value)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	prog := parse(t, `a = 1 + 2 * 3;`)
	assign := prog.Statements[0].(*ast.AssignStatement)
	bin, ok := assign.Value.(*ast.BinaryExpression)
	if !ok || bin.Op != ast.OpAdd {
		t.Fatalf("expected top-level '+', got %#v", assign.Value)
	}
	right, ok := bin.Right.(*ast.BinaryExpression)
	if !ok || right.Op != ast.OpMul {
		t.Fatalf("expected '*' nested under '+', got %#v", bin.Right)
	}
}

func TestParseArrayDeclAndIndexedAssign(t *testing.T) {
	prog := parse(t, `a[5]; a[0] = 72;`)
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(prog.Statements))
	}
	decl, ok := prog.Statements[0].(*ast.ArrayInitStatement)
	if !ok || decl.Name != "a" || len(decl.Shape) != 1 {
		t.Fatalf("expected 1-d array decl 'a', got %#v", prog.Statements[0])
	}
	assign, ok := prog.Statements[1].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("expected assign statement, got %T", prog.Statements[1])
	}
	elem, ok := assign.Target.(*ast.ArrayElement)
	if !ok || elem.Name != "a" || len(elem.Indices) != 1 {
		t.Fatalf("expected array element target, got %#v", assign.Target)
	}
}

func TestParseMultiDimArray(t *testing.T) {
	prog := parse(t, `grid[5][5]; grid[1][2] = 3;`)
	decl := prog.Statements[0].(*ast.ArrayInitStatement)
	if len(decl.Shape) != 2 {
		t.Fatalf("expected rank 2, got %d", len(decl.Shape))
	}
	assign := prog.Statements[1].(*ast.AssignStatement)
	elem := assign.Target.(*ast.ArrayElement)
	if len(elem.Indices) != 2 {
		t.Fatalf("expected 2 indices, got %d", len(elem.Indices))
	}
}

func TestParseIfElse(t *testing.T) {
	prog := parse(t, `if (a < b) { a = 1; } else { a = 2; }`)
	ifs, ok := prog.Statements[0].(*ast.IfStatement)
	if !ok {
		t.Fatalf("expected *ast.IfStatement, got %T", prog.Statements[0])
	}
	if ifs.Else == nil {
		t.Fatalf("expected an else-branch")
	}
	cond, ok := ifs.Cond.(*ast.BinaryExpression)
	if !ok || cond.Op != ast.OpLt {
		t.Fatalf("expected '<' condition, got %#v", ifs.Cond)
	}
}

func TestParseIfWithoutElse(t *testing.T) {
	prog := parse(t, `if (a) { putchar(65); }`)
	ifs := prog.Statements[0].(*ast.IfStatement)
	if ifs.Else != nil {
		t.Fatalf("expected no else-branch, got %#v", ifs.Else)
	}
}

func TestParseWhile(t *testing.T) {
	prog := parse(t, `while (a != 0) { a -= 1; }`)
	ws, ok := prog.Statements[0].(*ast.WhileStatement)
	if !ok {
		t.Fatalf("expected *ast.WhileStatement, got %T", prog.Statements[0])
	}
	if len(ws.Body.Stmts) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(ws.Body.Stmts))
	}
}

func TestParseFor(t *testing.T) {
	prog := parse(t, `for (i = 0; i < 5; i += 1) { putchar(i); }`)
	fs, ok := prog.Statements[0].(*ast.ForStatement)
	if !ok {
		t.Fatalf("expected *ast.ForStatement, got %T", prog.Statements[0])
	}
	if fs.Init == nil || fs.Cond == nil || fs.Step == nil {
		t.Fatalf("expected all three for-clauses present, got %#v", fs)
	}
}

func TestParseCallStatement(t *testing.T) {
	prog := parse(t, `putchar(65);`)
	cs, ok := prog.Statements[0].(*ast.CallStatement)
	if !ok {
		t.Fatalf("expected *ast.CallStatement, got %T", prog.Statements[0])
	}
	if cs.Call.Name != "putchar" || len(cs.Call.Args) != 1 {
		t.Fatalf("unexpected call shape: %#v", cs.Call)
	}
}

func TestParseSwapCall(t *testing.T) {
	prog := parse(t, `swap(a, b);`)
	cs := prog.Statements[0].(*ast.CallStatement)
	if cs.Call.Name != "swap" || len(cs.Call.Args) != 2 {
		t.Fatalf("unexpected call shape: %#v", cs.Call)
	}
}

func TestParseUnaryMinus(t *testing.T) {
	prog := parse(t, `a = -3;`)
	assign := prog.Statements[0].(*ast.AssignStatement)
	un, ok := assign.Value.(*ast.UnaryExpression)
	if !ok || un.Op != ast.OpNeg {
		t.Fatalf("expected unary '-' node, got %#v", assign.Value)
	}
}

func TestParseErrorMissingParen(t *testing.T) {
	p := New(lexer.New(`if (a { }`))
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatalf("expected a parse error for missing ')'")
	}
}

func TestParseErrorUnexpectedToken(t *testing.T) {
	p := New(lexer.New(`+ 3;`))
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatalf("expected a parse error for a statement starting with '+'")
	}
}
