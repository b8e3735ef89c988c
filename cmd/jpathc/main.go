// Command jpathc is the ahead-of-time JSONPath compiler's CLI surface
// (spec.md §6), a github.com/spf13/cobra tree grounded on the cobra
// command trees in the retrieved pack (e.g. evalaf's cmd/evalaf), wired
// against the pipeline in internal/compiler.
package main

import (
	goflag "flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "jpathc:", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "jpathc [flags] <query | queries-file>",
	Short: "Ahead-of-time compiler for RFC 9535 JSONPath queries",
	Long: `jpathc lowers one or more named JSONPath queries to a procedural
intermediate representation and emits self-contained Go source that,
compiled and run against a JSON document, produces the nodelist the
query would select.

input is either a single JSONPath query string, or (in queries-file
mode) a path to a file holding one "<name> <query>" pair per line.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

var flags struct {
	target     string
	standalone bool
	output     string
	irOutput   string
	mmap       bool
	logging    bool
	goBindings string
	pkg        string
}

func init() {
	klogFlags := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(klogFlags)
	rootCmd.Flags().AddGoFlagSet(klogFlags)

	rootCmd.Flags().StringVar(&flags.target, "target", "go-ondemand", "emission backend: go-ondemand | go-dom")
	rootCmd.Flags().BoolVar(&flags.standalone, "standalone", false, "emit a self-contained program; only one query is permitted")
	rootCmd.Flags().StringVar(&flags.output, "output", "", "output path (file in single-query mode, directory in multi-query library mode); required unless --standalone")
	rootCmd.Flags().StringVar(&flags.irOutput, "ir-output", "", "dump a YAML rendering of the lowered IR to this path")
	rootCmd.Flags().BoolVar(&flags.mmap, "mmap", false, "emit mmap-based input ingestion in the standalone driver (go-ondemand only)")
	rootCmd.Flags().BoolVar(&flags.logging, "logging", false, "emit diagnostic klog lines while compiling (parsing, lowering, generation)")
	rootCmd.Flags().StringVar(&flags.goBindings, "go-bindings", "", "emit one wrapper file at this path with an exported function per named query (library mode only; renamed from --rust-bindings per SPEC_FULL.md §0)")
	rootCmd.Flags().StringVar(&flags.pkg, "package", "jpathquery", "Go package name for generated source")
}
