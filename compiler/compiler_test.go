package compiler

import (
	"strings"
	"testing"
)

// We try to compile several bogus programs
func TestBogusInput(t *testing.T) {

	tests := []string{

		// a statement that doesn't start with a recognised token
		"+ 3;",

		// unterminated block
		"if (1) { a = 1;",

		// undefined name
		"a = b + 1;",

		// array used as a scalar
		"a[3]; b = a;",

		// wrong rank
		"a[3]; a[0][0] = 1;",

		// unterminated comment
		"/* oops",
	}

	for _, test := range tests {
		c := New(test)
		_, err := c.Compile()
		if err == nil {
			t.Errorf("expected an error compiling %q, got none", test)
		}
	}
}

// Test some valid programs compile without error.
func TestValidPrograms(t *testing.T) {

	tests := []string{
		"a = 3;",
		"a = 3; b = 4; putchar(a + b);",
		"a[5]; a[0] = 72; putchar(a[0]);",
		"while (0) { putchar(65); }",
		"if (1) { putchar(65); } else { putchar(66); }",
		"for (i = 0; i < 5; i += 1) { putchar(i); }",
		"a = 3; b = 4; swap(a, b);",
		"putint(255);",
	}

	for _, test := range tests {
		c := New(test)
		out, err := c.Compile()
		if err != nil {
			t.Errorf("did not expect an error compiling %q, got %v", test, err)
		}
		if out == "" {
			t.Errorf("expected non-empty output compiling %q", test)
		}
	}
}

// Test that every emitted byte is one of the eight primitives.
func TestOutputAlphabet(t *testing.T) {
	c := New("a = 3; b = 4; putchar(a + b); c[2]; c[0] = 1;")
	out, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range out {
		if !strings.ContainsRune("><+-.,[]", r) {
			t.Fatalf("unexpected character %q in generated output", r)
		}
	}
}

// SetLineWidth should wrap the output without changing its primitives.
func TestLineWidthWrapping(t *testing.T) {
	c := New("a = 3; putchar(a);")
	c.SetLineWidth(8)
	out, err := c.Compile()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if len(line) > 8 {
			t.Errorf("line %q exceeds configured width", line)
		}
	}
}

// Error Kind should distinguish parse failures from semantic ones.
func TestErrorKinds(t *testing.T) {
	c := New("+ 3;")
	_, err := c.Compile()
	cerr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.Kind != KindParse {
		t.Errorf("expected KindParse, got %v", cerr.Kind)
	}

	c = New("a = b;")
	_, err = c.Compile()
	cerr, ok = err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.Kind != KindSemantic {
		t.Errorf("expected KindSemantic, got %v", cerr.Kind)
	}

	c = New("a[0];")
	_, err = c.Compile()
	cerr, ok = err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if cerr.Kind != KindRange {
		t.Errorf("expected KindRange, got %v", cerr.Kind)
	}
}
