// Package codegen is the AST walker: it threads a symbol environment
// and an emitter.Emitter through the tree produced by the parser,
// turning each node into tape-machine primitives while performing the
// semantic checks the parser leaves undone (spec.md §4.3.1 — undefined
// name, kind mismatch, rank mismatch, arity).
//
// Grounded on skx/math-compiler's compiler.makeinternalform/output split
// (compiler/compiler.go), generalized from a flat token-to-RPN pass into
// a tree walk, since this language has blocks, scoping and arrays that a
// single linear pass cannot express.
package codegen

import (
	"fmt"
	"strings"

	"github.com/az/bfc/ast"
	"github.com/az/bfc/emitter"
	"github.com/az/bfc/scope"
)

// Kind distinguishes a plain semantic error (undefined name, kind
// mismatch, arity) from an out-of-range one (array dimension or rank),
// so the compiler package can report the distinction spec.md's error
// design calls for.
type Kind int

const (
	KindSemantic Kind = iota
	KindRange
)

// Error is a semantic error tied to a source line.
type Error struct {
	Kind    Kind
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Generator walks a Program, accumulating emitted code and the symbol
// environment it was emitted against.
type Generator struct {
	em  *emitter.Emitter
	env *scope.Stack
}

// New returns a Generator with a fresh Emitter and environment.
func New() *Generator {
	return &Generator{em: emitter.New(), env: scope.New()}
}

func (g *Generator) errorf(line int, format string, args ...interface{}) error {
	return &Error{Kind: KindSemantic, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (g *Generator) rangeErrorf(line int, format string, args ...interface{}) error {
	return &Error{Kind: KindRange, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Generate walks prog top to bottom and returns the full primitive
// sequence, or the first semantic error encountered.
func (g *Generator) Generate(prog *ast.Program) (string, error) {
	g.env.Push(g.em.Depth())
	var b strings.Builder
	for _, stmt := range prog.Statements {
		code, err := g.walkStatement(stmt)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
	}
	g.env.Pop()
	return b.String(), nil
}

func (g *Generator) walkStatement(stmt ast.Statement) (string, error) {
	switch s := stmt.(type) {
	case *ast.AssignStatement:
		return g.walkAssign(s)
	case *ast.ArrayInitStatement:
		return g.walkArrayInit(s)
	case *ast.IfStatement:
		return g.walkIf(s)
	case *ast.WhileStatement:
		return g.walkWhile(s)
	case *ast.ForStatement:
		return g.walkFor(s)
	case *ast.CallStatement:
		return g.walkBuiltinCall(s.Call, false)
	case *ast.BlockStatement:
		return g.walkBlockBody(s)
	default:
		return "", g.errorf(stmt.Line(), "internal: unhandled statement %T", stmt)
	}
}

// walkBlockBody opens a scope at the current depth, walks stmts is the
// block's own statement list, and on exit emits pop(dp - dp_entry)
// before closing the scope — spec.md §4.2's block-exit contract.
func (g *Generator) walkBlockBody(block *ast.BlockStatement) (string, error) {
	dp0 := g.em.Depth()
	g.env.Push(dp0)
	var b strings.Builder
	for _, stmt := range block.Stmts {
		code, err := g.walkStatement(stmt)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
	}
	g.env.Pop()
	b.WriteString(g.em.Pop(g.em.Depth() - dp0))
	return b.String(), nil
}

func (g *Generator) walkArrayInit(stmt *ast.ArrayInitStatement) (string, error) {
	shape := make([]int, len(stmt.Shape))
	for i, dimExpr := range stmt.Shape {
		lit, ok := dimExpr.(*ast.IntegerLiteral)
		if !ok {
			return "", g.errorf(stmt.Line(), "array dimension must be a constant integer")
		}
		if lit.Value <= 0 {
			return "", g.rangeErrorf(stmt.Line(), "array dimension must be positive, got %d", lit.Value)
		}
		shape[i] = int(lit.Value)
	}

	pos := g.em.Depth()
	code := g.em.PushMultiDimArray(shape)
	slot := scope.Slot{Kind: scope.Array, Pos: pos, Shape: shape, Footprint: emitter.ArrayFootprint(shape)}
	if err := g.env.Declare(stmt.Name, slot); err != nil {
		return "", g.errorf(stmt.Line(), "%v", err)
	}
	return code, nil
}

var compoundOps = map[ast.AssignOp]func(*emitter.Emitter) string{
	ast.PLUS_ASSIGN:  func(e *emitter.Emitter) string { return e.Add() },
	ast.MINUS_ASSIGN: func(e *emitter.Emitter) string { return e.Subtract() },
	ast.STAR_ASSIGN:  func(e *emitter.Emitter) string { return e.Multiply() },
	ast.SLASH_ASSIGN: func(e *emitter.Emitter) string { return e.Divide() },
	ast.MOD_ASSIGN:   func(e *emitter.Emitter) string { return e.Modulo() },
}

func (g *Generator) walkAssign(stmt *ast.AssignStatement) (string, error) {
	switch target := stmt.Target.(type) {
	case *ast.Identifier:
		return g.walkScalarAssign(stmt.Line(), target.Name, stmt.Op, stmt.Value)
	case *ast.ArrayElement:
		return g.walkArrayAssign(stmt.Line(), target, stmt.Op, stmt.Value)
	default:
		return "", g.errorf(stmt.Line(), "internal: unhandled assignment target %T", stmt.Target)
	}
}

func (g *Generator) walkScalarAssign(line int, name string, op ast.AssignOp, valueExpr ast.Expression) (string, error) {
	slot, exists := g.env.Lookup(name)

	if op == ast.ASSIGN && !exists {
		code, err := g.walkExpression(valueExpr)
		if err != nil {
			return "", err
		}
		pos := g.em.Depth() - 1
		if err := g.env.Declare(name, scope.Slot{Kind: scope.Scalar, Pos: pos, Footprint: 1}); err != nil {
			return "", g.errorf(line, "%v", err)
		}
		return code, nil
	}

	if !exists {
		return "", g.errorf(line, "undefined name %q", name)
	}
	if slot.Kind != scope.Scalar {
		return "", g.errorf(line, "%q is an array, not a scalar", name)
	}

	if op == ast.ASSIGN {
		valueCode, err := g.walkExpression(valueExpr)
		if err != nil {
			return "", err
		}
		return valueCode + g.em.StoreVariable(slot.Pos), nil
	}

	apply, ok := compoundOps[op]
	if !ok {
		return "", g.errorf(line, "internal: unhandled assignment operator %q", op)
	}
	cur := g.em.LoadVariable(slot.Pos)
	valueCode, err := g.walkExpression(valueExpr)
	if err != nil {
		return "", err
	}
	code := cur + valueCode + apply(g.em) + g.em.StoreVariable(slot.Pos)
	return code, nil
}

func (g *Generator) walkArrayAssign(line int, elem *ast.ArrayElement, op ast.AssignOp, valueExpr ast.Expression) (string, error) {
	slot, exists := g.env.Lookup(elem.Name)
	if !exists {
		return "", g.errorf(line, "undefined name %q", elem.Name)
	}
	if slot.Kind != scope.Array {
		return "", g.errorf(line, "%q is a scalar, not an array", elem.Name)
	}
	if len(elem.Indices) != len(slot.Shape) {
		return "", g.rangeErrorf(line, "%q has rank %d, used with %d index(es)", elem.Name, len(slot.Shape), len(elem.Indices))
	}

	total := emitter.ArrayFootprint(slot.Shape)

	if op == ast.ASSIGN {
		valueCode, err := g.walkExpression(valueExpr)
		if err != nil {
			return "", err
		}
		idxCode, err := g.combineLinearIndex(elem.Indices, slot.Shape)
		if err != nil {
			return "", err
		}
		return valueCode + idxCode + g.em.IndexedStore(slot.Pos, total), nil
	}

	apply, ok := compoundOps[op]
	if !ok {
		return "", g.errorf(line, "internal: unhandled assignment operator %q", op)
	}
	indexCode, err := g.combineLinearIndex(elem.Indices, slot.Shape)
	if err != nil {
		return "", err
	}
	cur := indexCode + g.em.IndexedLoad(slot.Pos, total)
	valueCode, err := g.walkExpression(valueExpr)
	if err != nil {
		return "", err
	}
	idx2, err := g.combineLinearIndex(elem.Indices, slot.Shape)
	if err != nil {
		return "", err
	}
	code := cur + valueCode + apply(g.em) + idx2 + g.em.IndexedStore(slot.Pos, total)
	return code, nil
}

// combineLinearIndex walks a rank-k index list and emits a single
// combined row-major offset by Horner's method: ((i0*d1+i1)*d2+i2)...,
// so an array of any rank addresses through IndexedLoad/IndexedStore's
// single-index contract. shape is the declared dimensions corresponding
// positionally to indices.
func (g *Generator) combineLinearIndex(indices []ast.Expression, shape []int) (string, error) {
	code, err := g.walkExpression(indices[0])
	if err != nil {
		return "", err
	}
	for dim := 1; dim < len(indices); dim++ {
		code += g.em.LoadConstant(shape[dim])
		code += g.em.Multiply()
		next, err := g.walkExpression(indices[dim])
		if err != nil {
			return "", err
		}
		code += next
		code += g.em.Add()
	}
	return code, nil
}

func (g *Generator) walkIf(stmt *ast.IfStatement) (string, error) {
	condCode, err := g.walkExpression(stmt.Cond)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(condCode)
	b.WriteString(g.em.BeginIf())

	thenCode, err := g.walkBlockBody(stmt.Then)
	if err != nil {
		return "", err
	}
	b.WriteString(thenCode)
	b.WriteString(g.em.BeginElse())

	if stmt.Else != nil {
		elseCode, err := g.walkBlockBody(stmt.Else)
		if err != nil {
			return "", err
		}
		b.WriteString(elseCode)
	}
	b.WriteString(g.em.EndIf())
	return b.String(), nil
}

func (g *Generator) walkWhile(stmt *ast.WhileStatement) (string, error) {
	condCode, err := g.walkExpression(stmt.Cond)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(condCode)
	b.WriteString(g.em.BeginWhile())

	bodyCode, err := g.walkBlockBody(stmt.Body)
	if err != nil {
		return "", err
	}
	b.WriteString(bodyCode)

	recond, err := g.walkExpression(stmt.Cond)
	if err != nil {
		return "", err
	}
	b.WriteString(recond)
	b.WriteString(g.em.EndWhile())
	return b.String(), nil
}

// walkFor desugars the three-clause loop into the while form per
// spec.md §4.4, wrapped in its own scope so Init may declare a fresh
// loop variable without leaking it past the loop.
func (g *Generator) walkFor(stmt *ast.ForStatement) (string, error) {
	dp0 := g.em.Depth()
	g.env.Push(dp0)

	var b strings.Builder
	if stmt.Init != nil {
		code, err := g.walkAssign(stmt.Init)
		if err != nil {
			return "", err
		}
		b.WriteString(code)
	}

	cond := stmt.Cond
	if cond == nil {
		cond = ast.NewIntegerLiteral(stmt.Line(), 1)
	}

	condCode, err := g.walkExpression(cond)
	if err != nil {
		return "", err
	}
	b.WriteString(condCode)
	b.WriteString(g.em.BeginWhile())

	bodyCode, err := g.walkBlockBody(stmt.Body)
	if err != nil {
		return "", err
	}
	b.WriteString(bodyCode)

	if stmt.Step != nil {
		stepCode, err := g.walkAssign(stmt.Step)
		if err != nil {
			return "", err
		}
		b.WriteString(stepCode)
	}

	recond, err := g.walkExpression(cond)
	if err != nil {
		return "", err
	}
	b.WriteString(recond)
	b.WriteString(g.em.EndWhile())

	g.env.Pop()
	b.WriteString(g.em.Pop(g.em.Depth() - dp0))
	return b.String(), nil
}

var binaryOpFuncs = map[ast.BinaryOp]func(*emitter.Emitter) string{
	ast.OpAdd:   func(e *emitter.Emitter) string { return e.Add() },
	ast.OpSub:   func(e *emitter.Emitter) string { return e.Subtract() },
	ast.OpMul:   func(e *emitter.Emitter) string { return e.Multiply() },
	ast.OpDiv:   func(e *emitter.Emitter) string { return e.Divide() },
	ast.OpMod:   func(e *emitter.Emitter) string { return e.Modulo() },
	ast.OpEq:    func(e *emitter.Emitter) string { return e.Equal() },
	ast.OpNotEq: func(e *emitter.Emitter) string { return e.NotEqual() },
	ast.OpLt:    func(e *emitter.Emitter) string { return e.LessThan() },
	ast.OpGt:    func(e *emitter.Emitter) string { return e.GreaterThan() },
	ast.OpLtEq:  func(e *emitter.Emitter) string { return e.LessOrEqual() },
	ast.OpGtEq:  func(e *emitter.Emitter) string { return e.GreaterOrEqual() },
	ast.OpAnd:   func(e *emitter.Emitter) string { return e.BoolAnd() },
	ast.OpOr:    func(e *emitter.Emitter) string { return e.BoolOr() },
}

func (g *Generator) walkExpression(expr ast.Expression) (string, error) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return g.em.LoadConstant(int(e.Value)), nil

	case *ast.CharacterLiteral:
		return g.em.LoadConstant(int(e.Value)), nil

	case *ast.Identifier:
		slot, exists := g.env.Lookup(e.Name)
		if !exists {
			return "", g.errorf(e.Line(), "undefined name %q", e.Name)
		}
		if slot.Kind != scope.Scalar {
			return "", g.errorf(e.Line(), "%q is an array, used as a scalar", e.Name)
		}
		return g.em.LoadVariable(slot.Pos), nil

	case *ast.ArrayElement:
		slot, exists := g.env.Lookup(e.Name)
		if !exists {
			return "", g.errorf(e.Line(), "undefined name %q", e.Name)
		}
		if slot.Kind != scope.Array {
			return "", g.errorf(e.Line(), "%q is a scalar, not an array", e.Name)
		}
		if len(e.Indices) != len(slot.Shape) {
			return "", g.rangeErrorf(e.Line(), "%q has rank %d, used with %d index(es)", e.Name, len(slot.Shape), len(e.Indices))
		}
		idxCode, err := g.combineLinearIndex(e.Indices, slot.Shape)
		if err != nil {
			return "", err
		}
		return idxCode + g.em.IndexedLoad(slot.Pos, emitter.ArrayFootprint(slot.Shape)), nil

	case *ast.UnaryExpression:
		switch e.Op {
		case ast.OpPos:
			return g.walkExpression(e.Operand)
		case ast.OpNeg:
			operandCode, err := g.walkExpression(e.Operand)
			if err != nil {
				return "", err
			}
			return g.em.LoadConstant(0) + operandCode + g.em.Subtract(), nil
		case ast.OpNot:
			operandCode, err := g.walkExpression(e.Operand)
			if err != nil {
				return "", err
			}
			return operandCode + g.em.BoolNot(), nil
		default:
			return "", g.errorf(e.Line(), "internal: unhandled unary operator %q", e.Op)
		}

	case *ast.BinaryExpression:
		leftCode, err := g.walkExpression(e.Left)
		if err != nil {
			return "", err
		}
		rightCode, err := g.walkExpression(e.Right)
		if err != nil {
			return "", err
		}
		apply, ok := binaryOpFuncs[e.Op]
		if !ok {
			return "", g.errorf(e.Line(), "internal: unhandled binary operator %q", e.Op)
		}
		return leftCode + rightCode + apply(g.em), nil

	case *ast.CallExpression:
		return g.walkBuiltinCall(e, true)

	default:
		return "", g.errorf(expr.Line(), "internal: unhandled expression %T", expr)
	}
}
