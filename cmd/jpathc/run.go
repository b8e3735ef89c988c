package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/nodepath/jpathc/internal/codegen"
	"github.com/nodepath/jpathc/internal/compiler"
)

// exitCodeFor maps the error taxonomy of spec.md §7 to the CLI's non-zero
// exit status: every failure this command can return — parse error,
// lowering error, standalone multi-query, or I/O error — exits 1, matching
// spec.md §6's "0 success; non-zero for parse error, multi-query in
// standalone mode, or any I/O error" contract (it does not distinguish
// exit codes further).
func exitCodeFor(err error) int {
	return 1
}

type standaloneMultiQueryError struct{ count int }

func (e standaloneMultiQueryError) Error() string {
	return fmt.Sprintf("--standalone requires exactly one query, got %d", e.count)
}

func runCompile(cmd *cobra.Command, args []string) error {
	input := args[0]

	// --logging turns on klog's V(2) compile tracing unless -v was given.
	if flags.logging && !cmd.Flags().Changed("v") {
		if err := cmd.Flags().Set("v", "2"); err != nil {
			return err
		}
	}

	target := codegen.Target(flags.target)
	if target != codegen.GoOndemand && target != codegen.GoDom {
		return fmt.Errorf("unknown --target %q (want go-ondemand or go-dom)", flags.target)
	}
	if !flags.standalone && flags.output == "" {
		return fmt.Errorf("--output is required in library mode")
	}

	opts := compiler.Options{
		Options: codegen.Options{
			Target:      target,
			PackageName: flags.pkg,
			Standalone:  flags.standalone,
			Logging:     flags.logging,
			GoBindings:  flags.goBindings != "",
			Mmap:        flags.mmap,
		},
		Logging: flags.logging,
	}

	var units []*compiler.Unit
	if st, statErr := os.Stat(input); statErr == nil && !st.IsDir() {
		us, err := compiler.CompileFile(input, opts)
		units = us
		if err != nil {
			return err
		}
	} else {
		u, err := compiler.CompileOne(uuid.New(), "query", input, opts)
		if err != nil {
			return err
		}
		units = []*compiler.Unit{u}
	}

	if flags.standalone && len(units) != 1 {
		return standaloneMultiQueryError{count: len(units)}
	}

	if flags.logging {
		for _, u := range units {
			klog.V(2).Infof("jpathc: %s -> %d bytes of %s source", u.Name, len(u.Source), target)
		}
	}

	if err := writeOutputs(units); err != nil {
		return err
	}
	if flags.irOutput != "" {
		if err := writeIR(units); err != nil {
			return err
		}
	}
	if flags.goBindings != "" {
		if flags.standalone {
			return fmt.Errorf("--go-bindings is not valid with --standalone")
		}
		if err := writeGoBindings(units); err != nil {
			return err
		}
	}
	return nil
}

// writeOutputs implements the single-path/multi-package split SPEC_FULL.md
// §2.4 resolves for --output: a single query writes straight to the given
// path. A queries-file compile with more than one surviving unit treats
// --output as a directory and writes one "<name>/<name>.go" subpackage per
// unit — each unit's Source was generated with a shared package name, so a
// flat multi-file layout would collide on the exported Eval symbol every
// unit defines; per-query subpackages give every query its own namespace
// instead, the same "one package per generated artifact" layout
// protoc-gen-go style generators use.
func writeOutputs(units []*compiler.Unit) error {
	if flags.standalone && flags.output == "" {
		_, err := os.Stdout.Write(units[0].Source)
		return err
	}
	if flags.standalone || len(units) == 1 {
		return writeFile(flags.output, units[0].Source)
	}
	if err := os.MkdirAll(flags.output, 0o755); err != nil {
		return &ioWriteError{Path: flags.output, Err: err}
	}
	for _, u := range units {
		src, err := compiler.Generate(u.IR, codegen.Options{
			Target:      codegen.Target(flags.target),
			PackageName: u.Name,
			Standalone:  false,
			Logging:     flags.logging,
			GoBindings:  flags.goBindings != "",
			Mmap:        flags.mmap,
		})
		if err != nil {
			return fmt.Errorf("regenerate %s for package %s: %w", u.Name, u.Name, err)
		}
		path := filepath.Join(flags.output, u.Name, u.Name+".go")
		if err := writeFile(path, src); err != nil {
			return err
		}
	}
	return nil
}

func writeIR(units []*compiler.Unit) error {
	if len(units) == 1 {
		b, err := compiler.DumpIR(units[0])
		if err != nil {
			return fmt.Errorf("render IR for %s: %w", units[0].Name, err)
		}
		return writeFile(flags.irOutput, b)
	}
	if err := os.MkdirAll(flags.irOutput, 0o755); err != nil {
		return &ioWriteError{Path: flags.irOutput, Err: err}
	}
	for _, u := range units {
		b, err := compiler.DumpIR(u)
		if err != nil {
			return fmt.Errorf("render IR for %s: %w", u.Name, err)
		}
		path := filepath.Join(flags.irOutput, u.Name+".ir.yaml")
		if err := writeFile(path, b); err != nil {
			return err
		}
	}
	return nil
}

func writeGoBindings(units []*compiler.Unit) error {
	if len(units) < 2 {
		return fmt.Errorf("--go-bindings requires queries-file mode with more than one query (each query needs its own output subpackage)")
	}
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Name
	}
	importBase, err := resolveImportBase(flags.output)
	if err != nil {
		return err
	}
	src := renderGoBindings(flags.pkg+"bindings", importBase, names)
	return writeFile(flags.goBindings, src)
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &ioWriteError{Path: path, Err: err}
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &ioWriteError{Path: path, Err: err}
	}
	return nil
}

type ioWriteError struct {
	Path string
	Err  error
}

func (e *ioWriteError) Error() string { return "write " + e.Path + ": " + e.Err.Error() }
func (e *ioWriteError) Unwrap() error { return e.Err }
