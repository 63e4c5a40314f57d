// Package uir defines the Unified Intermediate Representation: the single
// canonical circuit form every dialect front-end lowers into. All analysis
// downstream of lowering operates on these types and nothing
// dialect-specific survives past this package.
//
// A Program is immutable once lowering returns it: the static analyzer and
// the pattern recognizer only read it, and concurrent requests each own a
// private instance.
package uir

// Register is a declared quantum or classical register. Indices run
// 0..Size-1.
type Register struct {
	// Name is the register name as declared in the source.
	Name string `json:"name"`

	// Size is the declared number of wires.
	Size int `json:"size"`
}

// BlockKind distinguishes the two classical control-flow variants.
type BlockKind string

const (
	// BlockBranch is a conditional (if/else) block.
	BlockBranch BlockKind = "branch"

	// BlockLoop is an iteration (for/while) block.
	BlockLoop BlockKind = "loop"
)

// Operation is the closed set of UIR operation variants: Gate, Measure,
// Barrier, and Block. Program order of the operation list is the sole
// source of temporal and data dependency.
type Operation interface {
	// isOperation marks the closed variant set.
	isOperation()
}

// Gate is a quantum gate application. Qubit indices are flat: registers are
// laid out in declaration order, so an index identifies one wire across all
// quantum registers.
type Gate struct {
	// Name is the canonical gate name resolved through the gate table.
	Name string

	// Targets are the flat target qubit indices.
	Targets []int

	// Controls are the flat control qubit indices, empty for uncontrolled gates.
	Controls []int

	// Params are the evaluated rotation/phase parameters in radians.
	Params []float64
}

// Measure reads one qubit into one classical bit. Both indices are flat.
type Measure struct {
	Qubit int
	Bit   int
}

// Barrier is a scheduling fence across the listed qubits.
type Barrier struct {
	Qubits []int
}

// Block is embedded classical control flow. Nested operations appear once
// regardless of trip count; the condition descriptor is the source-level
// condition text, kept for complexity heuristics only.
type Block struct {
	Kind      BlockKind
	Condition string
	Body      []Operation
}

func (*Gate) isOperation()    {}
func (*Measure) isOperation() {}
func (*Barrier) isOperation() {}
func (*Block) isOperation()   {}

// Program is a complete lowered circuit.
type Program struct {
	// Dialect is the tag of the front-end that produced this program.
	Dialect string

	// Quantum and Classical are the declared registers in declaration order.
	Quantum   []Register
	Classical []Register

	// Ops is the operation list in program order.
	Ops []Operation
}

// QubitCount returns the sum of declared quantum register sizes.
func (p *Program) QubitCount() int {
	total := 0
	for _, r := range p.Quantum {
		total += r.Size
	}
	return total
}

// BitCount returns the sum of declared classical register sizes.
func (p *Program) BitCount() int {
	total := 0
	for _, r := range p.Classical {
		total += r.Size
	}
	return total
}

// QubitRef maps a flat qubit index back to its register name and local index.
// The second result is false when the index is outside every declared register.
func (p *Program) QubitRef(index int) (string, int, bool) {
	return registerRef(p.Quantum, index)
}

// BitRef maps a flat classical index back to its register name and local index.
func (p *Program) BitRef(index int) (string, int, bool) {
	return registerRef(p.Classical, index)
}

func registerRef(regs []Register, index int) (string, int, bool) {
	if index < 0 {
		return "", 0, false
	}
	offset := 0
	for _, r := range regs {
		if index < offset+r.Size {
			return r.Name, index - offset, true
		}
		offset += r.Size
	}
	return "", 0, false
}

// OperationCount returns the total number of operations including those
// nested inside blocks.
func (p *Program) OperationCount() int {
	return countOps(p.Ops)
}

func countOps(ops []Operation) int {
	total := 0
	for _, op := range ops {
		total++
		if b, ok := op.(*Block); ok {
			total += countOps(b.Body)
		}
	}
	return total
}

// NestingDepth returns the maximum block nesting depth of the program.
func (p *Program) NestingDepth() int {
	return nestingDepth(p.Ops)
}

func nestingDepth(ops []Operation) int {
	max := 0
	for _, op := range ops {
		if b, ok := op.(*Block); ok {
			if d := 1 + nestingDepth(b.Body); d > max {
				max = d
			}
		}
	}
	return max
}
