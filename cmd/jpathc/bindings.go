package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// renderGoBindings emits the thin wrapper file SPEC_FULL.md §4 describes
// (the original's --rust-bindings, renamed --go-bindings per §0): one
// exported function per named query, each forwarding to the Eval function
// of that query's generated subpackage, so a caller outside internal/ can
// import one package and get every compiled query without reaching into
// the per-query output directories writeOutputs lays out.
//
// importBase is the fully-qualified import path of the directory
// writeOutputs wrote the per-query subpackages into, resolved from the
// nearest enclosing go.mod (see resolveImportBase); each subpackage's
// import path is importBase + "/" + name, matching the directory layout
// writeOutputs already produced on disk.
func renderGoBindings(modulePkg, importBase string, names []string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "// Code generated by jpathc (--go-bindings). DO NOT EDIT.\n\n")
	fmt.Fprintf(&b, "package %s\n\n", modulePkg)
	fmt.Fprintf(&b, "import (\n\t\"encoding/json\"\n\n")
	for _, n := range names {
		fmt.Fprintf(&b, "\t%s %q\n", n, importBase+"/"+n)
	}
	fmt.Fprintf(&b, ")\n\n")
	for _, n := range names {
		exported := exportedName(n)
		fmt.Fprintf(&b, "// Eval%s runs the %q query against root.\n", exported, n)
		fmt.Fprintf(&b, "func Eval%s(root json.RawMessage) ([]json.RawMessage, error) {\n\treturn %s.Eval(root)\n}\n\n", exported, n)
	}
	return []byte(b.String())
}

// resolveImportBase finds the go.mod above dir and returns the fully
// qualified import path for dir itself, so generated bindings import their
// sibling subpackages by real module path instead of an invalid relative
// "./name" import (Go modules do not support those outside GOPATH mode).
func resolveImportBase(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	cur := abs
	for {
		modPath := filepath.Join(cur, "go.mod")
		if modName, err := readModuleName(modPath); err == nil {
			rel, err := filepath.Rel(cur, abs)
			if err != nil {
				return "", err
			}
			if rel == "." {
				return modName, nil
			}
			return modName + "/" + filepath.ToSlash(rel), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no go.mod found above %s; --go-bindings requires one to compute import paths", abs)
		}
		cur = parent
	}
}

func readModuleName(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, "module "); ok {
			return strings.TrimSpace(name), nil
		}
	}
	return "", fmt.Errorf("%s: no module directive", path)
}

func exportedName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
	}
	return string(r)
}
