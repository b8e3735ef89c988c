// Package compiler orchestrates the three stages of spec.md §4.5 — parse,
// lower, generate — behind the surface cmd/jpathc exposes, and implements
// the queries-file batch mode and compiled-unit error taxonomy of §7.
package compiler

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/nodepath/jpathc/internal/ast"
	"github.com/nodepath/jpathc/internal/codegen"
	"github.com/nodepath/jpathc/internal/codegen/godom"
	"github.com/nodepath/jpathc/internal/codegen/goondemand"
	"github.com/nodepath/jpathc/internal/ir"
	"github.com/nodepath/jpathc/internal/lower"
	"github.com/nodepath/jpathc/internal/parser"
)

// Options controls one compilation run (spec.md §6 CLI surface).
type Options struct {
	codegen.Options
	Logging bool
}

// Unit is one compiled query: its surface AST, lowered IR, and generated
// target source.
type Unit struct {
	Name   string
	Query  ast.Query
	IR     *ir.Query
	Source []byte
}

// CompileOne runs the full pipeline for a single query. id is the
// compilation id this invocation's klog lines are tagged with
// (SPEC_FULL.md §3); callers in batch mode share one id across the whole
// file, matching how client-go's controllers tag a whole reconcile pass
// with one request UID rather than one per step.
func CompileOne(id uuid.UUID, name, query string, opts Options) (*Unit, error) {
	klog.V(2).Infof("compile[%s]: parsing %s: %q", id, name, query)
	q, err := parser.Parse(query)
	if err != nil {
		return nil, &ParseError{Name: name, Err: err}
	}

	klog.V(2).Infof("compile[%s]: lowering %s", id, name)
	iq, err := lower.Lower(q)
	if err != nil {
		return nil, fmt.Errorf("lower %s: %w", name, err)
	}
	klog.V(2).Infof("compile[%s]: %s lowered to %d procedures, %d filters", id, name, len(iq.Procedures), len(iq.FilterProcedures))

	src, err := Generate(iq, opts.Options)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", name, err)
	}
	return &Unit{Name: name, Query: q, IR: iq, Source: src}, nil
}

// Generate dispatches to the requested target backend. It is the one place
// that is allowed to import both internal/codegen/godom and
// internal/codegen/goondemand, since internal/codegen itself stays a leaf
// package both backends depend on.
func Generate(iq *ir.Query, opts codegen.Options) ([]byte, error) {
	switch opts.Target {
	case codegen.GoDom:
		return godom.Generate(iq, opts)
	case codegen.GoOndemand, "":
		return goondemand.Generate(iq, opts)
	default:
		return nil, fmt.Errorf("unknown target %q", opts.Target)
	}
}

// CompileFile implements queries-file mode (SPEC_FULL.md §2.4, §4): each
// line is "<name> <query>"; every parse/lower/generate failure across the
// whole file is collected and returned together through NewMultipleErrors
// (the bare error when one line failed, a *MultipleErrors when several did),
// matching original_source/tests/test_helper.rs's all-failures-reported
// batch-compile behavior rather than stopping at the first bad line.
func CompileFile(path string, opts Options) ([]*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	id := uuid.New()
	var units []*Unit
	var errs []error
	lineNo := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, query, ok := strings.Cut(line, " ")
		if !ok {
			errs = append(errs, fmt.Errorf("%s:%d: malformed line %q, want \"<name> <query>\"", path, lineNo, line))
			continue
		}
		u, err := CompileOne(id, name, strings.TrimSpace(query), opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		units = append(units, u)
	}
	if err := sc.Err(); err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	if len(errs) > 0 {
		return units, NewMultipleErrors(errs)
	}
	return units, nil
}
