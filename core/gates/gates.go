// Package gates defines the canonical gate-name table shared by all dialect
// front-ends. Every gate reference in every dialect is normalized to one
// canonical name during lowering; aliases cover the spellings of the supported
// surface dialects and the qelib1 standard library.
package gates

import "strings"

// Spec describes a canonical gate: its arity and how the operand list splits
// into controls and targets. Operand order in all dialects is controls first.
type Spec struct {
	// Name is the canonical, dialect-independent gate name (e.g., "CX").
	Name string

	// Qubits is the total operand count (controls + targets).
	Qubits int

	// Controls is how many leading operands are control qubits.
	Controls int

	// Params is the number of rotation/phase parameters the gate takes.
	Params int
}

// Targets returns the number of target qubits.
func (s Spec) Targets() int {
	return s.Qubits - s.Controls
}

// canonical is the table of all canonical gates. Frozen at init; never
// mutated at runtime.
var canonical = map[string]Spec{
	"ID":    {Name: "ID", Qubits: 1},
	"H":     {Name: "H", Qubits: 1},
	"X":     {Name: "X", Qubits: 1},
	"Y":     {Name: "Y", Qubits: 1},
	"Z":     {Name: "Z", Qubits: 1},
	"S":     {Name: "S", Qubits: 1},
	"SDG":   {Name: "SDG", Qubits: 1},
	"T":     {Name: "T", Qubits: 1},
	"TDG":   {Name: "TDG", Qubits: 1},
	"SX":    {Name: "SX", Qubits: 1},
	"RX":    {Name: "RX", Qubits: 1, Params: 1},
	"RY":    {Name: "RY", Qubits: 1, Params: 1},
	"RZ":    {Name: "RZ", Qubits: 1, Params: 1},
	"U1":    {Name: "U1", Qubits: 1, Params: 1},
	"U2":    {Name: "U2", Qubits: 1, Params: 2},
	"U3":    {Name: "U3", Qubits: 1, Params: 3},
	"RESET": {Name: "RESET", Qubits: 1},
	"CX":    {Name: "CX", Qubits: 2, Controls: 1},
	"CY":    {Name: "CY", Qubits: 2, Controls: 1},
	"CZ":    {Name: "CZ", Qubits: 2, Controls: 1},
	"CH":    {Name: "CH", Qubits: 2, Controls: 1},
	"SWAP":  {Name: "SWAP", Qubits: 2},
	"CRX":   {Name: "CRX", Qubits: 2, Controls: 1, Params: 1},
	"CRY":   {Name: "CRY", Qubits: 2, Controls: 1, Params: 1},
	"CRZ":   {Name: "CRZ", Qubits: 2, Controls: 1, Params: 1},
	"CU1":   {Name: "CU1", Qubits: 2, Controls: 1, Params: 1},
	"CU3":   {Name: "CU3", Qubits: 2, Controls: 1, Params: 3},
	"RZZ":   {Name: "RZZ", Qubits: 2, Params: 1},
	"CCX":   {Name: "CCX", Qubits: 3, Controls: 2},
	"CSWAP": {Name: "CSWAP", Qubits: 3, Controls: 1},
}

// aliases maps lowercased dialect spellings to canonical names. The table
// covers OpenQASM/qelib1, Qiskit method names, Cirq gate constructors, and
// Q# operation names.
var aliases = map[string]string{
	"id":        "ID",
	"i":         "ID",
	"iden":      "ID",
	"h":         "H",
	"x":         "X",
	"not":       "X",
	"y":         "Y",
	"z":         "Z",
	"s":         "S",
	"sdg":       "SDG",
	"t":         "T",
	"tdg":       "TDG",
	"sx":        "SX",
	"rx":        "RX",
	"ry":        "RY",
	"rz":        "RZ",
	"r1":        "U1", // Q# R1 phase gate
	"p":         "U1", // OpenQASM 3 phase spelling
	"phase":     "U1",
	"u1":        "U1",
	"u2":        "U2",
	"u3":        "U3",
	"u":         "U3",
	"reset":     "RESET",
	"cx":        "CX",
	"cnot":      "CX",
	"cy":        "CY",
	"cz":        "CZ",
	"ch":        "CH",
	"swap":      "SWAP",
	"crx":       "CRX",
	"cry":       "CRY",
	"crz":       "CRZ",
	"cu1":       "CU1",
	"cp":        "CU1",
	"cphase":    "CU1",
	"cu3":       "CU3",
	"rzz":       "RZZ",
	"ccx":       "CCX",
	"toffoli":   "CCX",
	"ccnot":     "CCX",
	"cswap":     "CSWAP",
	"fredkin":   "CSWAP",
	"czpowgate": "CZ",
}

// standardIncludes is the set of include files whose gate definitions are
// inlined during lowering rather than treated as unknown references.
var standardIncludes = map[string]bool{
	"qelib1.inc":   true,
	"stdgates.inc": true,
	"qelib1":       true,
	"stdgates":     true,
}

// Resolve maps a dialect gate spelling to its canonical Spec. Matching is
// case-insensitive. The second result is false when the name resolves through
// neither the canonical table nor the alias table.
func Resolve(name string) (Spec, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Spec{}, false
	}
	if canon, ok := aliases[key]; ok {
		return canonical[canon], true
	}
	if spec, ok := canonical[strings.ToUpper(key)]; ok {
		return spec, true
	}
	return Spec{}, false
}

// IsStandardInclude reports whether the named include file is a known
// standard gate library that lowering inlines.
func IsStandardInclude(name string) bool {
	return standardIncludes[strings.ToLower(strings.TrimSpace(name))]
}

// IsEntangling reports whether the canonical gate acts on more than one qubit.
func IsEntangling(canonicalName string) bool {
	spec, ok := canonical[canonicalName]
	return ok && spec.Qubits > 1
}

// IsControlledPhase reports whether the canonical gate is a controlled-phase
// rotation, the building block of QFT ladders.
func IsControlledPhase(canonicalName string) bool {
	switch canonicalName {
	case "CU1", "CRZ", "CZ":
		return true
	}
	return false
}

// CreatesSuperposition reports whether the canonical gate can move a basis
// state into superposition.
func CreatesSuperposition(canonicalName string) bool {
	switch canonicalName {
	case "H", "RX", "RY", "U2", "U3", "SX", "CH":
		return true
	}
	return false
}

// IsRotation reports whether the canonical gate is a parameterized rotation,
// the variational-ansatz building block.
func IsRotation(canonicalName string) bool {
	switch canonicalName {
	case "RX", "RY", "RZ", "CRX", "CRY", "CRZ", "RZZ", "U1", "U2", "U3", "CU1", "CU3":
		return true
	}
	return false
}

// Canonical returns the Spec for a canonical name. Used by validation to
// confirm that lowered programs reference only table entries.
func Canonical(name string) (Spec, bool) {
	spec, ok := canonical[name]
	return spec, ok
}

// CanonicalNames returns all canonical gate names. Order is unspecified.
func CanonicalNames() []string {
	names := make([]string, 0, len(canonical))
	for name := range canonical {
		names = append(names, name)
	}
	return names
}
