// main.go - Entry point for the tmasm TMM front end

/*
TM: a fantasy 32-bit virtual machine and assembler.
License: GPLv3 or later
*/

// Command tmasm lexes and parses a TMM source file, mirroring the
// teacher's cmd/ie32to64 shape: a thin main.go over a library package.
//
// Assembler code generation — folding conditional-assembly directives,
// laying out label addresses, and emitting a ROM image — is not
// implemented. The source format's semantic analysis and code emission
// are an open question this repo does not answer (see DESIGN.md); tmasm
// stops at a parsed AST.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tm-project/tm/assembler"
)

func main() {
	inputFile := flag.String("i", "", "Input TMM source file")
	flag.StringVar(inputFile, "input-file", "", "Input TMM source file (long form of -i)")
	lexOnly := flag.Bool("l", false, "Lex only: print the token stream and exit without parsing")
	flag.BoolVar(lexOnly, "lex-only", false, "Lex only (long form of -l)")
	prewarm := flag.Bool("j", false, "Pre-resolve and read the transitive .include set concurrently before lexing")

	var includeDirs stringList
	flag.Var(&includeDirs, "I", "Additional include search directory for the -j prewarm scan (repeatable; lexing resolves includes relative to the input file only)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tmasm -i file.tmm [options]\n\nLexes and parses a TMM source file, printing its token stream or syntax tree.\n\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *inputFile == "" && flag.NArg() == 1 {
		*inputFile = flag.Arg(0)
	}
	if *inputFile == "" {
		flag.Usage()
		os.Exit(1)
	}

	if *prewarm {
		if err := prewarmIncludes(*inputFile, includeDirs); err != nil {
			fmt.Fprintf(os.Stderr, "tmasm: warning: include prewarm failed: %v\n", err)
		}
	}

	lex := assembler.NewLexer()
	if err := lex.LexEntry(*inputFile); err != nil {
		fmt.Fprintf(os.Stderr, "tmasm: %v\n", err)
		os.Exit(1)
	}

	if *lexOnly {
		for i, tok := range lex.Tokens() {
			fmt.Printf("%5d: %s\n", i, tok)
		}
		return
	}

	parser := assembler.NewParser(lex.Tokens())
	root, err := parser.ParseProgram()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmasm: %v\n", err)
		os.Exit(1)
	}

	dumpNode(os.Stdout, root, 0)
}

// dumpNode prints n's syntax tree as indented type/field lines, the
// lex+parse front end's only output: there is no code-generation backend
// to hand the tree to.
func dumpNode(w io.Writer, n assembler.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n == nil {
		fmt.Fprintf(w, "%s<nil>\n", indent)
		return
	}

	switch node := n.(type) {
	case *assembler.Block:
		fmt.Fprintf(w, "%sBlock (%d statements)\n", indent, len(node.Body))
		for _, stmt := range node.Body {
			dumpNode(w, stmt, depth+1)
		}
	case *assembler.LabelStatement:
		fmt.Fprintf(w, "%sLabel\n", indent)
		dumpNode(w, node.Identifier, depth+1)
	case *assembler.InstructionStatement:
		fmt.Fprintf(w, "%sInstruction opcode=$%02X operands=%d\n", indent, node.Mnemonic, len(node.Operands))
		for _, op := range node.Operands {
			dumpNode(w, op, depth+1)
		}
	case *assembler.IdentifierExpr:
		fmt.Fprintf(w, "%sIdentifier %q\n", indent, node.Name)
	case *assembler.NumericExpr:
		fmt.Fprintf(w, "%sNumeric %d\n", indent, node.Value)
	case *assembler.StringExpr:
		fmt.Fprintf(w, "%sString %q\n", indent, node.Value)
	case *assembler.RegisterExpr:
		fmt.Fprintf(w, "%sRegister id=%#x\n", indent, node.RegisterID)
	case *assembler.ConditionExpr:
		fmt.Fprintf(w, "%sCondition id=%#x\n", indent, node.ConditionID)
	case *assembler.PlaceholderExpr:
		fmt.Fprintf(w, "%sPlaceholder \\%d\n", indent, node.Index)
	case *assembler.PointerExpr:
		fmt.Fprintf(w, "%sPointer\n", indent)
		dumpNode(w, node.Expr, depth+1)
	case *assembler.UnaryExpr:
		fmt.Fprintf(w, "%sUnary %s\n", indent, node.Operator)
		dumpNode(w, node.Operand, depth+1)
	case *assembler.BinaryExpr:
		fmt.Fprintf(w, "%sBinary %s\n", indent, node.Operator)
		dumpNode(w, node.Left, depth+1)
		dumpNode(w, node.Right, depth+1)
	case *assembler.TernaryExpr:
		fmt.Fprintf(w, "%sTernary\n", indent)
		dumpNode(w, node.Cond, depth+1)
		dumpNode(w, node.Then, depth+1)
		dumpNode(w, node.Else, depth+1)
	default:
		fmt.Fprintf(w, "%s%T\n", indent, node)
	}
}

// stringList accumulates repeated -I flag occurrences, the flag package's
// idiom for a multi-value option (flag.Value interface).
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

var includeDirective = regexp.MustCompile(`(?m)^\s*\.\s*include\s+"([^"]+)"`)

// prewarmIncludes scans entryPath's raw text (and, transitively, every
// file it includes) for `.include "path"` lines and reads each
// discovered file concurrently with an errgroup.Group, purely to warm
// the OS page cache ahead of the lexer's inherently sequential
// tmm.lexer.c-style walk — a best-effort I/O convenience, never a
// correctness dependency (LexEntry re-resolves and re-reads every
// include on its own regardless of whether this ran).
func prewarmIncludes(entryPath string, searchDirs []string) error {
	paths, err := discoverIncludes(entryPath, searchDirs, make(map[string]bool))
	if err != nil {
		return err
	}

	g, _ := errgroup.WithContext(context.Background())
	for _, p := range paths {
		p := p
		g.Go(func() error {
			_, err := os.ReadFile(p)
			return err
		})
	}
	return g.Wait()
}

func discoverIncludes(path string, searchDirs []string, seen map[string]bool) ([]string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[abs] {
		return nil, nil
	}
	seen[abs] = true

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var found []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m := includeDirective.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		resolved := resolveIncludePath(m[1], filepath.Dir(path), searchDirs)
		found = append(found, resolved)
		nested, err := discoverIncludes(resolved, searchDirs, seen)
		if err == nil {
			found = append(found, nested...)
		}
	}
	return found, scanner.Err()
}

func resolveIncludePath(name, baseDir string, searchDirs []string) string {
	if filepath.IsAbs(name) {
		return name
	}
	candidate := filepath.Join(baseDir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(baseDir, name)
}
