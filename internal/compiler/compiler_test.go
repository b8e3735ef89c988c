package compiler_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodepath/jpathc/internal/codegen"
	"github.com/nodepath/jpathc/internal/compiler"
)

func defaultOptions() compiler.Options {
	return compiler.Options{
		Options: codegen.Options{
			Target:      codegen.GoOndemand,
			PackageName: "jpathquery",
			Standalone:  true,
		},
	}
}

func TestCompileOne_Success(t *testing.T) {
	u, err := compiler.CompileOne(uuid.New(), "byA", "$.a", defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "byA", u.Name)
	assert.NotEmpty(t, u.Source)
	assert.NotNil(t, u.IR)
	assert.NotEmpty(t, u.IR.Procedures)
}

func TestCompileOne_ParseErrorIsTyped(t *testing.T) {
	_, err := compiler.CompileOne(uuid.New(), "bad", "not a query", defaultOptions())
	require.Error(t, err)
	var pe *compiler.ParseError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad", pe.Name)
}

func TestCompileOne_BothTargets(t *testing.T) {
	for _, target := range []codegen.Target{codegen.GoOndemand, codegen.GoDom} {
		t.Run(string(target), func(t *testing.T) {
			opts := defaultOptions()
			opts.Options.Target = target
			u, err := compiler.CompileOne(uuid.New(), "q", "$..a[?@.x==1]", opts)
			require.NoError(t, err)
			assert.NotEmpty(t, u.Source)
		})
	}
}

func TestCompileFile_AllQueriesCompiled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.txt")
	content := "# a comment line is skipped\n" +
		"byA $.a\n" +
		"\n" +
		"byB $.b\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts := defaultOptions()
	opts.Standalone = false
	opts.PackageName = "jpathquery"
	units, err := compiler.CompileFile(path, opts)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "byA", units[0].Name)
	assert.Equal(t, "byB", units[1].Name)
}

// queries-file batch mode reports every bad line together, rather than
// stopping at the first one, and still returns the units that did compile.
func TestCompileFile_ReportsAllFailuresTogether(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.txt")
	content := "ok1 $.a\n" +
		"bad1 not a query\n" +
		"ok2 $.b\n" +
		"bad2 $[\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	units, err := compiler.CompileFile(path, defaultOptions())
	require.Error(t, err)
	var me *compiler.MultipleErrors
	require.ErrorAs(t, err, &me)
	assert.Len(t, me.Errors, 2)
	require.Len(t, units, 2)
	assert.Equal(t, "ok1", units[0].Name)
	assert.Equal(t, "ok2", units[1].Name)
}

func TestCompileFile_MalformedLineIsReported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queries.txt")
	require.NoError(t, os.WriteFile(path, []byte("nospaceline\n"), 0o644))

	_, err := compiler.CompileFile(path, defaultOptions())
	require.Error(t, err)
}

func TestCompileFile_MissingFileIsIOError(t *testing.T) {
	_, err := compiler.CompileFile(filepath.Join(t.TempDir(), "missing.txt"), defaultOptions())
	require.Error(t, err)
	var ioErr *compiler.IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestDumpIR_RendersYAML(t *testing.T) {
	u, err := compiler.CompileOne(uuid.New(), "q", "$.a.b", defaultOptions())
	require.NoError(t, err)
	b, err := compiler.DumpIR(u)
	require.NoError(t, err)
	assert.Contains(t, string(b), "procedures:")
	assert.Contains(t, string(b), "entryProcedure:")
}

func TestGenerate_UnknownTargetErrors(t *testing.T) {
	u, err := compiler.CompileOne(uuid.New(), "q", "$.a", defaultOptions())
	require.NoError(t, err)
	_, err = compiler.Generate(u.IR, codegen.Options{Target: "bogus"})
	assert.Error(t, err)
}
