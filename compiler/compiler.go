// The compiler-package contains the core of our compiler.
//
// In brief we go through a three-step process:
//
//  1.  Use the lexer and parser to turn the source into an AST.
//
//  2.  Walk that AST, checking names, kinds, and arities as we go.
//
//  3.  Emit a sequence of tape-machine primitives for each construct.
//
// There are only one minor complication - reporting the three
// different error conditions (lexical/parse, semantic, and
// out-of-range) in a single consistent shape, so that a CLI driver
// can format them identically regardless of which stage produced them.
package compiler

import (
	"strings"

	"github.com/az/bfc/ast"
	"github.com/az/bfc/codegen"
	"github.com/az/bfc/lexer"
	"github.com/az/bfc/parser"
)

// Kind classifies an Error by the stage that produced it.
type Kind int

const (
	// KindParse covers both lexical and syntactic failures: the
	// source could not be turned into an AST at all.
	KindParse Kind = iota
	// KindSemantic covers undefined names, kind mismatches, and
	// arity errors caught while walking a syntactically valid AST.
	KindSemantic
	// KindRange covers array dimensions or ranks that are present
	// and well-typed but outside what the program can express.
	KindRange
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse error"
	case KindSemantic:
		return "semantic error"
	case KindRange:
		return "range error"
	default:
		return "error"
	}
}

// Error is the single error type this package ever returns: every
// user-visible failure, whatever stage raised it, carries a source
// line and a Kind.
type Error struct {
	Kind    Kind
	Line    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Compiler holds our object-state.
type Compiler struct {

	// debug holds a flag to decide whether a source comment banner
	// is prepended to the generated output.
	debug bool

	// lineWidth, if positive, wraps the generated primitive stream
	// at that many columns. Zero means "one unbroken line".
	lineWidth int

	// source holds the program text we're compiling.
	source string
}

// New creates a new compiler, given the source in the constructor.
func New(source string) *Compiler {
	return &Compiler{source: source}
}

// SetDebug changes the debug-flag for our output.
func (c *Compiler) SetDebug(val bool) {
	c.debug = val
}

// SetLineWidth sets the column at which the generated primitive stream
// is wrapped with newlines. A value of zero disables wrapping.
func (c *Compiler) SetLineWidth(n int) {
	c.lineWidth = n
}

// Compile converts the input program into a string of tape-machine
// primitives, or the first error encountered at any stage.
func (c *Compiler) Compile() (string, error) {
	prog, err := c.parse()
	if err != nil {
		return "", err
	}

	gen := codegen.New()
	code, err := gen.Generate(prog)
	if err != nil {
		cerr, ok := err.(*codegen.Error)
		if !ok {
			return "", err
		}
		kind := KindSemantic
		if cerr.Kind == codegen.KindRange {
			kind = KindRange
		}
		return "", &Error{Kind: kind, Line: cerr.Line, Message: cerr.Message}
	}

	if c.debug {
		code = "# generated by bfc\n" + code
	}
	return c.wrap(code), nil
}

// parse runs the lexer and parser, translating a *parser.Error into our
// own Error type so callers only ever see one error shape.
func (c *Compiler) parse() (*ast.Program, error) {
	l := lexer.New(c.source)
	p := parser.New(l)
	prog, err := p.ParseProgram()
	if err != nil {
		perr, ok := err.(*parser.Error)
		if !ok {
			return nil, err
		}
		return nil, &Error{Kind: KindParse, Line: perr.Line, Message: perr.Message}
	}
	return prog, nil
}

// wrap breaks code into fixed-width lines for readability; a lineWidth
// of zero returns code unchanged.
func (c *Compiler) wrap(code string) string {
	if c.lineWidth <= 0 {
		return code
	}
	var b strings.Builder
	for i := 0; i < len(code); i += c.lineWidth {
		end := i + c.lineWidth
		if end > len(code) {
			end = len(code)
		}
		b.WriteString(code[i:end])
		b.WriteByte('\n')
	}
	return b.String()
}
