// Package parser builds an ast.Program from a token stream. It performs
// no semantic checks beyond the grammar in spec.md §6 — undefined names,
// kind mismatches, and arity are all the walker's job (ast package +
// codegen package).
//
// Grounded on original_source/parser.py's statement/expression shape,
// reworked as a Go recursive-descent parser with a classic precedence
// table for expressions (the original's various dialects use the same
// climbing technique under different guises).
package parser

import (
	"fmt"

	"github.com/az/bfc/ast"
	"github.com/az/bfc/lexer"
	"github.com/az/bfc/token"
)

// Error is a parse error tied to a source line.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Parser consumes tokens from a Lexer one at a time, keeping one token
// of lookahead.
type Parser struct {
	l *lexer.Lexer

	cur  token.Token
	peek token.Token
}

// New builds a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

// ParseProgram consumes the entire token stream and returns the AST
// root, or the first parse error encountered.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Type != token.EOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
	}
	return prog, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	if p.cur.Type == token.ERROR {
		return nil, &Error{Line: p.cur.Line, Message: p.cur.Literal}
	}

	switch p.cur.Type {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.IDENT:
		return p.parseIdentStatement()
	default:
		return nil, p.errorf("unexpected token %q at start of statement", p.cur.Literal)
	}
}

func (p *Parser) parseBlock() (*ast.BlockStatement, error) {
	line := p.cur.Line
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var stmts []ast.Statement
	for p.cur.Type != token.RBRACE {
		if p.cur.Type == token.EOF {
			return nil, p.errorf("unterminated block, expected '}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	if err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return ast.NewBlockStatement(line, stmts), nil
}

func (p *Parser) parseIf() (ast.Statement, error) {
	line := p.cur.Line
	p.next() // consume 'if'

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(lowestPrecedence)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	var els *ast.BlockStatement
	if p.cur.Type == token.ELSE {
		p.next()
		els, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}

	return ast.NewIfStatement(line, cond, then, els), nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	line := p.cur.Line
	p.next() // consume 'while'

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression(lowestPrecedence)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return ast.NewWhileStatement(line, cond, body), nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	line := p.cur.Line
	p.next() // consume 'for'

	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}

	var init *ast.AssignStatement
	if p.cur.Type != token.SEMI {
		s, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		init = s
	}
	if err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	var cond ast.Expression
	if p.cur.Type != token.SEMI {
		c, err := p.parseExpression(lowestPrecedence)
		if err != nil {
			return nil, err
		}
		cond = c
	}
	if err := p.expect(token.SEMI); err != nil {
		return nil, err
	}

	var step *ast.AssignStatement
	if p.cur.Type != token.RPAREN {
		s, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		step = s
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return ast.NewForStatement(line, init, cond, step, body), nil
}

// parseIdentStatement disambiguates "name = ...", "name[..] = ...",
// "name[..];" (array declaration), and "name(...);" (call statement).
func (p *Parser) parseIdentStatement() (ast.Statement, error) {
	line := p.cur.Line
	name := p.cur.Literal

	if p.peek.Type == token.LPAREN {
		call, err := p.parseCallExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.SEMI); err != nil {
			return nil, err
		}
		return ast.NewCallStatement(line, call), nil
	}

	if p.peek.Type == token.LBRACKET {
		// Could be an array declaration `name[N];` or an indexed
		// assignment `name[i] = expr;`. Parse the bracket chain first
		// and decide from what follows.
		p.next() // consume name
		var exprs []ast.Expression
		for p.cur.Type == token.LBRACKET {
			p.next()
			idx, err := p.parseExpression(lowestPrecedence)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, idx)
			if err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
		}

		if p.cur.Type == token.SEMI {
			p.next()
			return ast.NewArrayInitStatement(line, name, exprs), nil
		}

		target := ast.NewArrayElement(line, name, exprs)
		return p.finishAssignment(line, target)
	}

	p.next() // consume name
	target := ast.NewIdentifier(line, name)
	return p.finishAssignment(line, target)
}

// parseAssignment parses a single assignment without the trailing ';',
// used for the for-loop's init/step clauses.
func (p *Parser) parseAssignment() (*ast.AssignStatement, error) {
	line := p.cur.Line
	if p.cur.Type != token.IDENT {
		return nil, p.errorf("expected identifier, got %q", p.cur.Literal)
	}
	name := p.cur.Literal
	p.next()

	var target ast.Expression = ast.NewIdentifier(line, name)
	if p.cur.Type == token.LBRACKET {
		var exprs []ast.Expression
		for p.cur.Type == token.LBRACKET {
			p.next()
			idx, err := p.parseExpression(lowestPrecedence)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, idx)
			if err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
		}
		target = ast.NewArrayElement(line, name, exprs)
	}

	op, ok := assignOps[p.cur.Type]
	if !ok {
		return nil, p.errorf("expected assignment operator, got %q", p.cur.Literal)
	}
	p.next()

	value, err := p.parseExpression(lowestPrecedence)
	if err != nil {
		return nil, err
	}
	return ast.NewAssignStatement(line, target, op, value), nil
}

// finishAssignment parses "Op Expr ;" given an already-parsed target.
func (p *Parser) finishAssignment(line int, target ast.Expression) (ast.Statement, error) {
	op, ok := assignOps[p.cur.Type]
	if !ok {
		return nil, p.errorf("expected assignment operator, got %q", p.cur.Literal)
	}
	p.next()

	value, err := p.parseExpression(lowestPrecedence)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.SEMI); err != nil {
		return nil, err
	}
	return ast.NewAssignStatement(line, target, op, value), nil
}

var assignOps = map[token.Type]ast.AssignOp{
	token.ASSIGN:       ast.ASSIGN,
	token.PLUS_ASSIGN:  ast.PLUS_ASSIGN,
	token.MINUS_ASSIGN: ast.MINUS_ASSIGN,
	token.STAR_ASSIGN:  ast.STAR_ASSIGN,
	token.SLASH_ASSIGN: ast.SLASH_ASSIGN,
	token.MOD_ASSIGN:   ast.MOD_ASSIGN,
}

// Operator precedence, lowest to highest, per spec.md §6.
const (
	lowestPrecedence = iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
)

var binaryPrecedence = map[token.Type]int{
	token.OR:       precOr,
	token.AND:      precAnd,
	token.EQ:       precEquality,
	token.NOT_EQ:   precEquality,
	token.LT:       precRelational,
	token.GT:       precRelational,
	token.LT_EQ:    precRelational,
	token.GT_EQ:    precRelational,
	token.PLUS:     precAdditive,
	token.MINUS:    precAdditive,
	token.ASTERISK: precMultiplicative,
	token.SLASH:    precMultiplicative,
	token.MOD:      precMultiplicative,
}

var binaryOps = map[token.Type]ast.BinaryOp{
	token.OR:       ast.OpOr,
	token.AND:      ast.OpAnd,
	token.EQ:       ast.OpEq,
	token.NOT_EQ:   ast.OpNotEq,
	token.LT:       ast.OpLt,
	token.GT:       ast.OpGt,
	token.LT_EQ:    ast.OpLtEq,
	token.GT_EQ:    ast.OpGtEq,
	token.PLUS:     ast.OpAdd,
	token.MINUS:    ast.OpSub,
	token.ASTERISK: ast.OpMul,
	token.SLASH:    ast.OpDiv,
	token.MOD:      ast.OpMod,
}

// parseExpression implements precedence climbing: it parses a unary
// term, then folds in binary operators whose precedence exceeds
// minPrec, left-associatively — matching spec.md §4.3's requirement
// that expression evaluation (and thus emission) is strictly
// left-to-right.
func (p *Parser) parseExpression(minPrec int) (ast.Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		prec, ok := binaryPrecedence[p.cur.Type]
		if !ok || prec <= minPrec {
			return left, nil
		}
		op := binaryOps[p.cur.Type]
		line := p.cur.Line
		p.next()

		right, err := p.parseExpression(prec)
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpression(line, left, op, right)
	}
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	switch p.cur.Type {
	case token.MINUS:
		line := p.cur.Line
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(line, ast.OpNeg, operand), nil
	case token.PLUS:
		line := p.cur.Line
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(line, ast.OpPos, operand), nil
	case token.BANG:
		line := p.cur.Line
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnaryExpression(line, ast.OpNot, operand), nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch p.cur.Type {
	case token.INT:
		line := p.cur.Line
		var v int64
		for _, c := range p.cur.Literal {
			v = v*10 + int64(c-'0')
		}
		p.next()
		return ast.NewIntegerLiteral(line, v), nil

	case token.CHAR:
		line := p.cur.Line
		lit := p.cur.Literal
		p.next()
		return ast.NewCharacterLiteral(line, lit[0]), nil

	case token.LPAREN:
		p.next()
		expr, err := p.parseExpression(lowestPrecedence)
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	case token.IDENT:
		line := p.cur.Line
		name := p.cur.Literal

		if p.peek.Type == token.LPAREN {
			return p.parseCallExpression()
		}

		p.next()
		if p.cur.Type != token.LBRACKET {
			return ast.NewIdentifier(line, name), nil
		}

		var exprs []ast.Expression
		for p.cur.Type == token.LBRACKET {
			p.next()
			idx, err := p.parseExpression(lowestPrecedence)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, idx)
			if err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
		}
		return ast.NewArrayElement(line, name, exprs), nil

	case token.ERROR:
		return nil, &Error{Line: p.cur.Line, Message: p.cur.Literal}

	default:
		return nil, p.errorf("unexpected token %q in expression", p.cur.Literal)
	}
}

func (p *Parser) parseCallExpression() (*ast.CallExpression, error) {
	line := p.cur.Line
	name := p.cur.Literal
	p.next() // consume name
	p.next() // consume '('

	var args []ast.Expression
	for p.cur.Type != token.RPAREN {
		arg, err := p.parseExpression(lowestPrecedence)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type == token.COMMA {
			p.next()
		} else {
			break
		}
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return ast.NewCallExpression(line, name, args), nil
}

func (p *Parser) expect(t token.Type) error {
	if p.cur.Type != t {
		return p.errorf("expected %q, got %q", t, p.cur.Literal)
	}
	p.next()
	return nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &Error{Line: p.cur.Line, Message: fmt.Sprintf(format, args...)}
}
