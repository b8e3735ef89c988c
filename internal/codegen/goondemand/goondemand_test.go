package goondemand_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodepath/jpathc/internal/codegen"
	"github.com/nodepath/jpathc/internal/codegen/goondemand"
	"github.com/nodepath/jpathc/internal/lower"
	"github.com/nodepath/jpathc/internal/parser"
)

func generate(t *testing.T, query string, opts codegen.Options) string {
	t.Helper()
	q, err := parser.Parse(query)
	require.NoError(t, err)
	iq, err := lower.Lower(q)
	require.NoError(t, err)
	src, err := goondemand.Generate(iq, opts)
	require.NoError(t, err)
	return string(src)
}

func TestGenerate_LibraryMode_EmitsEvalAndPackageName(t *testing.T) {
	src := generate(t, "$.a.b", codegen.Options{Target: codegen.GoOndemand, PackageName: "byAB"})
	assert.Contains(t, src, "package byAB")
	assert.Contains(t, src, "func Eval(")
	assert.NotContains(t, src, "func main(")
}

func TestGenerate_StandaloneMode_EmitsMain(t *testing.T) {
	src := generate(t, "$.a", codegen.Options{Target: codegen.GoOndemand, PackageName: "main", Standalone: true})
	assert.Contains(t, src, "func main(")
}

func TestGenerate_MmapOption_ChangesStandaloneInputPath(t *testing.T) {
	withMmap := generate(t, "$.a", codegen.Options{PackageName: "main", Standalone: true, Mmap: true})
	withoutMmap := generate(t, "$.a", codegen.Options{PackageName: "main", Standalone: true, Mmap: false})
	assert.NotEqual(t, withMmap, withoutMmap)
}

func TestGenerate_FilterQueryEmitsFilterFunc(t *testing.T) {
	src := generate(t, "$[?@.a==1]", codegen.Options{PackageName: "byFilter"})
	assert.Contains(t, src, "filter_0_0")
}

// Logging is accepted but currently has no effect on go-ondemand's template
// output (see DESIGN.md); this pins today's behavior so a future template
// change that starts consuming it is a deliberate, visible diff here.
func TestGenerate_LoggingOptionCurrentlyDoesNotChangeOutput(t *testing.T) {
	withLogging := generate(t, "$.a", codegen.Options{PackageName: "byA", Logging: true})
	withoutLogging := generate(t, "$.a", codegen.Options{PackageName: "byA", Logging: false})
	assert.Equal(t, withLogging, withoutLogging)
}
