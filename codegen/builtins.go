package codegen

import (
	"github.com/az/bfc/ast"
	"github.com/az/bfc/scope"
)

// walkBuiltinCall lowers one of the fixed built-in functions (spec.md's
// Non-goals exclude user-defined functions, so Name always resolves
// against this table). wantValue distinguishes an expression-position
// call (must leave exactly one value on the stack) from a
// statement-position call (any value is discarded).
func (g *Generator) walkBuiltinCall(call *ast.CallExpression, wantValue bool) (string, error) {
	switch call.Name {
	case "putchar":
		return g.builtinPutChar(call, wantValue)
	case "getchar":
		return g.builtinGetChar(call, wantValue)
	case "putint":
		return g.builtinPutInt(call, wantValue)
	case "getint":
		return g.builtinGetInt(call, wantValue)
	case "putarr":
		return g.builtinPutArr(call, wantValue)
	case "swap":
		return g.builtinSwap(call, wantValue)
	default:
		return "", g.errorf(call.Line(), "undefined function %q", call.Name)
	}
}

func (g *Generator) checkArity(call *ast.CallExpression, want int) error {
	if len(call.Args) != want {
		return g.errorf(call.Line(), "%s expects %d argument(s), got %d", call.Name, want, len(call.Args))
	}
	return nil
}

func (g *Generator) builtinPutChar(call *ast.CallExpression, wantValue bool) (string, error) {
	if err := g.checkArity(call, 1); err != nil {
		return "", err
	}
	if wantValue {
		return "", g.errorf(call.Line(), "putchar does not return a value")
	}
	argCode, err := g.walkExpression(call.Args[0])
	if err != nil {
		return "", err
	}
	return argCode + g.em.PutCharacter(), nil
}

func (g *Generator) builtinGetChar(call *ast.CallExpression, wantValue bool) (string, error) {
	if err := g.checkArity(call, 0); err != nil {
		return "", err
	}
	code := g.em.GetCharacter()
	if !wantValue {
		code += g.em.Pop(1)
	}
	return code, nil
}

func (g *Generator) builtinPutArr(call *ast.CallExpression, wantValue bool) (string, error) {
	if err := g.checkArity(call, 1); err != nil {
		return "", err
	}
	if wantValue {
		return "", g.errorf(call.Line(), "putarr does not return a value")
	}
	ident, ok := call.Args[0].(*ast.Identifier)
	if !ok {
		return "", g.errorf(call.Line(), "putarr expects an array name")
	}
	slot, exists := g.env.Lookup(ident.Name)
	if !exists {
		return "", g.errorf(call.Line(), "undefined name %q", ident.Name)
	}
	if slot.Kind != scope.Array {
		return "", g.errorf(call.Line(), "%q is a scalar, not an array", ident.Name)
	}
	return g.em.MultiDimPut(slot.Pos, slot.Shape), nil
}

func (g *Generator) builtinSwap(call *ast.CallExpression, wantValue bool) (string, error) {
	if err := g.checkArity(call, 2); err != nil {
		return "", err
	}
	if wantValue {
		return "", g.errorf(call.Line(), "swap does not return a value")
	}
	identA, okA := call.Args[0].(*ast.Identifier)
	identB, okB := call.Args[1].(*ast.Identifier)
	if !okA || !okB {
		return "", g.errorf(call.Line(), "swap expects two variable names")
	}
	slotA, existsA := g.env.Lookup(identA.Name)
	slotB, existsB := g.env.Lookup(identB.Name)
	if !existsA {
		return "", g.errorf(call.Line(), "undefined name %q", identA.Name)
	}
	if !existsB {
		return "", g.errorf(call.Line(), "undefined name %q", identB.Name)
	}
	if slotA.Kind != scope.Scalar || slotB.Kind != scope.Scalar {
		return "", g.errorf(call.Line(), "swap only operates on scalars")
	}

	// Classic three-step swap without a named temporary: copy both onto
	// the stack, then store each into the other's slot in reverse order.
	code := g.em.LoadVariable(slotA.Pos)
	code += g.em.LoadVariable(slotB.Pos)
	code += g.em.StoreVariable(slotA.Pos)
	code += g.em.StoreVariable(slotB.Pos)
	return code, nil
}

// builtinPutInt prints the unsigned decimal representation (0-255) of
// its argument, suppressing leading zero digits but always printing at
// least the ones digit. The target machine has no native integer
// formatting, so the digits are extracted at compile time as a fixed
// three-cell (hundreds/tens/ones) unrolling of the usual div/mod
// decomposition — the byte alphabet bounds the value to at most three
// digits, so no dynamic-length loop is needed.
func (g *Generator) builtinPutInt(call *ast.CallExpression, wantValue bool) (string, error) {
	if err := g.checkArity(call, 1); err != nil {
		return "", err
	}
	if wantValue {
		return "", g.errorf(call.Line(), "putint does not return a value")
	}
	argCode, err := g.walkExpression(call.Args[0])
	if err != nil {
		return "", err
	}

	valuePos := g.em.Depth() - 1
	var code string
	code += argCode

	code += g.em.LoadVariable(valuePos)
	code += g.em.LoadConstant(100)
	code += g.em.Divide()
	hundredsPos := g.em.Depth() - 1

	code += g.em.LoadVariable(valuePos)
	code += g.em.LoadConstant(100)
	code += g.em.Modulo()
	rem100Pos := g.em.Depth() - 1

	code += g.em.LoadVariable(rem100Pos)
	code += g.em.LoadConstant(10)
	code += g.em.Divide()
	tensPos := g.em.Depth() - 1

	code += g.em.LoadVariable(rem100Pos)
	code += g.em.LoadConstant(10)
	code += g.em.Modulo()
	onesPos := g.em.Depth() - 1

	code += g.em.LoadVariable(hundredsPos)
	code += g.em.LoadConstant(0)
	code += g.em.NotEqual()
	hNZPos := g.em.Depth() - 1

	code += g.em.LoadVariable(tensPos)
	code += g.em.LoadConstant(0)
	code += g.em.NotEqual()
	tNZPos := g.em.Depth() - 1

	code += g.em.LoadVariable(hNZPos)
	code += g.em.LoadVariable(tNZPos)
	code += g.em.BoolOr()
	showTensPos := g.em.Depth() - 1

	code += g.em.LoadVariable(hNZPos)
	code += g.genGuarded(func() string { return g.printDigit(hundredsPos) })

	code += g.em.LoadVariable(showTensPos)
	code += g.genGuarded(func() string { return g.printDigit(tensPos) })

	code += g.printDigit(onesPos)

	code += g.em.Pop(g.em.Depth() - valuePos)
	return code, nil
}

// printDigit renders the decimal digit stored at pos as a character.
func (g *Generator) printDigit(pos int) string {
	code := g.em.LoadVariable(pos)
	code += g.em.LoadConstant('0')
	code += g.em.Add()
	code += g.em.PutCharacter()
	return code
}

// genGuarded wraps body (which must leave dp unchanged net) so it only
// runs when the condition already pushed on top of the stack is
// nonzero. body is called after BeginIf, so the code it generates is
// addressed against the dp inside the then-branch. The Emitter always
// requires a matched begin_if/begin_else/end_if triple, so the
// else-branch here is simply empty.
func (g *Generator) genGuarded(body func() string) string {
	code := g.em.BeginIf()
	code += body()
	code += g.em.BeginElse()
	code += g.em.EndIf()
	return code
}

// builtinGetInt reads one line of ASCII digits terminated by '\n' and
// accumulates them into a single byte value (mod 256), mirroring the
// "read one character of lookahead" idiom the teacher's lexer uses
// (lexer.go's readChar/peekChar pair) but driven through the emitted
// while-loop primitive instead of a Go loop, since the digit count is
// not known until the newline is read at run time.
func (g *Generator) builtinGetInt(call *ast.CallExpression, wantValue bool) (string, error) {
	if err := g.checkArity(call, 0); err != nil {
		return "", err
	}

	var code string
	code += g.em.LoadConstant(0)
	accPos := g.em.Depth() - 1

	code += g.em.GetCharacter()
	cPos := g.em.Depth() - 1

	code += g.em.LoadVariable(cPos)
	code += g.em.LoadConstant('\n')
	code += g.em.NotEqual()
	code += g.em.BeginWhile()

	code += g.em.LoadVariable(cPos)
	code += g.em.LoadConstant('0')
	code += g.em.Subtract() // digit = c - '0'

	code += g.em.LoadVariable(accPos)
	code += g.em.LoadConstant(10)
	code += g.em.Multiply() // acc*10

	code += g.em.Add() // acc*10 + digit
	code += g.em.StoreVariable(accPos)

	code += g.em.GetCharacter()
	code += g.em.StoreVariable(cPos)

	code += g.em.LoadVariable(cPos)
	code += g.em.LoadConstant('\n')
	code += g.em.NotEqual()
	code += g.em.EndWhile()

	// Discard the trailing newline, leaving only the accumulated value.
	code += g.em.Pop(1)

	if !wantValue {
		code += g.em.Pop(1)
	}
	return code, nil
}
