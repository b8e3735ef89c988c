package compiler

import "sigs.k8s.io/yaml"

// DumpIR renders an ir.Query as YAML for the --ir-output debug flag
// (SPEC_FULL.md §2.5). This is a debug artifact only: nothing in this
// module reads it back.
func DumpIR(iq *Unit) ([]byte, error) {
	return yaml.Marshal(iq.IR)
}
