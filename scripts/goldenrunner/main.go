// Command goldenrunner compiles and executes every testdata/*.src
// fixture concurrently, comparing the interpreter's output against the
// matching *.expected file. Pass -update to regenerate the golden files
// instead of checking them, after a deliberate behaviour change.
//
// Grounded on jcorbin/gothird's scripts/gen_vm_expects.go, which uses
// the same errgroup.WithContext/context.WithTimeout pairing to run a
// fan-out of independent jobs with one overall deadline; here the jobs
// are golden-test cases instead of a single goimports subprocess.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"

	"github.com/az/bfc/compiler"
	"github.com/az/bfc/interp"
)

var (
	dir     = flag.String("dir", "testdata", "directory containing .src/.input/.expected fixtures")
	update  = flag.Bool("update", false, "regenerate .expected golden files instead of checking them")
	timeout = flag.Duration("timeout", 30*time.Second, "overall deadline for the whole run")
)

// goldenCase is one fixture: <name>.src, an optional <name>.input, and
// the golden <name>.expected it must produce.
type goldenCase struct {
	name         string
	srcPath      string
	inputPath    string
	expectedPath string
}

func main() {
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cases, err := discoverCases(*dir)
	if err != nil {
		log.Fatalf("goldenrunner: %v", err)
	}
	if len(cases) == 0 {
		log.Fatalf("goldenrunner: no .src fixtures found under %s", *dir)
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, c := range cases {
		c := c
		eg.Go(func() error {
			return runCase(ctx, c)
		})
	}

	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
	fmt.Printf("%d golden case(s) ok\n", len(cases))
}

func discoverCases(dir string) ([]goldenCase, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var cases []goldenCase
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".src") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".src")
		c := goldenCase{
			name:         name,
			srcPath:      filepath.Join(dir, name+".src"),
			inputPath:    filepath.Join(dir, name+".input"),
			expectedPath: filepath.Join(dir, name+".expected"),
		}
		if _, err := os.Stat(c.inputPath); err != nil {
			c.inputPath = ""
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func runCase(ctx context.Context, c goldenCase) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.ReadFile(c.srcPath)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}

	comp := compiler.New(string(src))
	code, err := comp.Compile()
	if err != nil {
		return fmt.Errorf("%s: compile: %w", c.name, err)
	}

	var input string
	if c.inputPath != "" {
		b, err := os.ReadFile(c.inputPath)
		if err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		input = string(b)
	}

	got, err := interp.RunString(code, input)
	if err != nil {
		return fmt.Errorf("%s: run: %w", c.name, err)
	}

	if *update {
		if err := os.WriteFile(c.expectedPath, []byte(got), 0o644); err != nil {
			return fmt.Errorf("%s: %w", c.name, err)
		}
		return nil
	}

	want, err := os.ReadFile(c.expectedPath)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	if got != string(want) {
		return fmt.Errorf("%s: got %q, want %q", c.name, got, string(want))
	}
	return ctx.Err()
}
