package compiler

import (
	"strings"
	"testing"

	"github.com/az/bfc/interp"
)

// Concrete end-to-end scenarios from spec.md §8, each compiled and then
// actually executed by the reference interpreter.
func TestGoldenScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		input  string
		want   string
	}{
		{
			name:   "three putchars",
			source: `putchar(65); putchar(66); putchar(10);`,
			want:   "AB\n",
		},
		{
			name:   "multiply and print",
			source: `a = 3; b = 4; putint(a*b); putchar(10);`,
			want:   "12\n",
		},
		{
			name:   "null-terminated array print",
			source: `a[5]; a[0] = 72; a[1] = 105; a[2] = 0; putarr(a);`,
			want:   "Hi",
		},
		{
			name: "gcd by repeated subtraction",
			source: `a = 36; b = 12;
				while (a != b) {
					if (a > b) { a -= b; } else { b -= a; }
				}
				putchar(48 + a);`,
			want: string([]byte{'0' + 12}),
		},
		{
			name:   "parse then print an integer",
			source: `a = getint(); putint(a); putchar(10);`,
			input:  "123\n",
			want:   "123\n",
		},
		{
			name: "nested for emitting an alphabet grid",
			source: `for (i = 0; i < 5; i += 1) {
				for (j = 0; j < 5; j += 1) {
					putchar(65 + i*5 + j);
				}
				putchar(10);
			}`,
			want: "ABCDE\nFGHIJ\nKLMNO\nPQRST\nUVWXY\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(tc.source)
			code, err := c.Compile()
			if err != nil {
				t.Fatalf("compile error: %v", err)
			}

			var sb strings.Builder
			m := interp.New(strings.NewReader(tc.input), &sb)
			m.MaxSteps = 50_000_000
			if err := m.Run(code); err != nil {
				t.Fatalf("runtime error: %v", err)
			}
			if sb.String() != tc.want {
				t.Errorf("got %q, want %q", sb.String(), tc.want)
			}
		})
	}
}
