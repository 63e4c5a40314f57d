// Package analyzer computes static metrics over a lowered circuit: register
// totals, a canonical-name gate histogram, wire-timeline circuit depth and
// width, cyclomatic complexity over classical blocks, and a heuristic
// big-O estimate.
//
// The big-O label comes from a rule table over classical loop shapes:
//
//	no loops                          O(1)
//	one loop, no nesting              O(n)
//	nesting depth 2                   O(n^2)
//	nesting depth k >= 3              O(n^k)
//	loop with modular arithmetic      O((log n)^3), flagged approximate
//
// The estimate is a heuristic over statically visible structure, not a
// proof; Approximate is set whenever a block condition is empty or
// uninterpretable.
package analyzer

import (
	"fmt"
	"math"
	"regexp"

	"github.com/circuitlens/circuitlens/core/gates"
	"github.com/circuitlens/circuitlens/core/uir"
)

// Metrics is the static-analysis result for one program.
type Metrics struct {
	QubitCount           int            `json:"qubitCount"`
	ClassicalBitCount    int            `json:"classicalBitCount"`
	GateCount            int            `json:"gateCount"`
	SingleQubitGateCount int            `json:"singleQubitGates"`
	TwoQubitGateCount    int            `json:"twoQubitGates"`
	CXGateCount          int            `json:"cxGateCount"`
	CXGateRatio          float64        `json:"cxGateRatio"`
	MeasurementCount     int            `json:"measurementCount"`
	GateHistogram        map[string]int `json:"gateHistogram"`
	CircuitDepth         int            `json:"circuitDepth"`
	CircuitWidth         int            `json:"circuitWidth"`
	CyclomaticComplexity int            `json:"cyclomaticComplexity"`
	BigOEstimate         string         `json:"bigOEstimate"`
	Approximate          bool           `json:"approximate,omitempty"`

	// Quantum characteristics, scored in [0, 1].
	HasSuperposition   bool    `json:"hasSuperposition"`
	HasEntanglement    bool    `json:"hasEntanglement"`
	SuperpositionScore float64 `json:"superpositionScore"`
	EntanglementScore  float64 `json:"entanglementScore"`

	// Resource estimates. QuantumVolume is min(qubits, depth)^2; the
	// runtime model assumes 100ns single-qubit gates, 500ns entangling
	// gates, and 1us measurements; memory is the 2^n complex128 state
	// vector of a classical simulation.
	QuantumVolume      float64 `json:"quantumVolume"`
	EstimatedRuntimeMS float64 `json:"estimatedRuntimeMs"`
	EstimatedMemoryMB  float64 `json:"estimatedMemoryMb"`
}

// modularRe spots modular-arithmetic shapes in loop conditions, the telltale
// of modular-exponentiation circuits.
var modularRe = regexp.MustCompile(`%|\bmod\b|\bpow\b|\*\*`)

// analysis accumulates per-wire timelines. Qubit i occupies wire i; classical
// bit j occupies wire qubitTotal+j.
type analysis struct {
	qubitTotal    int
	depths        map[int]int
	touched       map[int]bool
	metrics       *Metrics
	superposition int
	hasHadamard   bool
}

// Analyze computes Metrics for a program. It is total: any program, including
// an empty one, produces a result.
func Analyze(p *uir.Program) *Metrics {
	m := &Metrics{
		QubitCount:        p.QubitCount(),
		ClassicalBitCount: p.BitCount(),
		GateHistogram:     make(map[string]int),
	}
	a := &analysis{
		qubitTotal: m.QubitCount,
		depths:     make(map[int]int),
		touched:    make(map[int]bool),
		metrics:    m,
	}

	a.walk(p.Ops)

	for _, d := range a.depths {
		if d > m.CircuitDepth {
			m.CircuitDepth = d
		}
	}
	m.CircuitWidth = len(a.touched)
	m.CyclomaticComplexity = 1 + countDecisions(p.Ops)
	m.BigOEstimate = a.bigO(p.Ops)
	a.quantumScores()
	a.resourceEstimates()
	return m
}

// quantumScores derives the superposition and entanglement potential of the
// circuit from its gate mix.
func (a *analysis) quantumScores() {
	m := a.metrics
	m.HasSuperposition = a.superposition > 0
	m.HasEntanglement = m.TwoQubitGateCount > 0
	if m.GateCount == 0 {
		return
	}
	total := float64(m.GateCount)

	sup := math.Min(float64(a.superposition)/total, 1)
	if a.hasHadamard {
		// Hadamards prepare an even superposition, the strongest form.
		sup = math.Min(sup*1.2, 1)
	}
	m.SuperpositionScore = round3(sup)

	ent := float64(m.TwoQubitGateCount) / total
	if m.QubitCount > 2 {
		// Wider registers have more entanglement capacity.
		ent *= math.Min(float64(m.QubitCount)/10, 1.5)
	}
	m.EntanglementScore = round3(math.Min(ent, 1))

	m.CXGateRatio = round3(float64(m.CXGateCount) / total)
}

// resourceEstimates fills quantum volume and the simulation cost model.
func (a *analysis) resourceEstimates() {
	m := a.metrics
	if m.QubitCount > 0 && m.CircuitDepth > 0 {
		side := math.Min(float64(m.QubitCount), float64(m.CircuitDepth))
		m.QuantumVolume = side * side
	}

	const (
		singleQubitGateUS = 0.1
		twoQubitGateUS    = 0.5
		measurementUS     = 1.0
	)
	totalUS := float64(m.SingleQubitGateCount)*singleQubitGateUS +
		float64(m.TwoQubitGateCount)*twoQubitGateUS +
		float64(m.MeasurementCount)*measurementUS
	m.EstimatedRuntimeMS = round3(totalUS / 1000)

	if m.QubitCount == 0 {
		m.EstimatedMemoryMB = 0.01
		return
	}
	stateBytes := math.Pow(2, float64(m.QubitCount)) * 16
	m.EstimatedMemoryMB = round3(stateBytes / (1 << 20))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func (a *analysis) walk(ops []uir.Operation) {
	for _, op := range ops {
		switch o := op.(type) {
		case *uir.Gate:
			a.metrics.GateCount++
			a.metrics.GateHistogram[o.Name]++
			if len(o.Controls)+len(o.Targets) == 1 {
				a.metrics.SingleQubitGateCount++
			}
			if gates.IsEntangling(o.Name) {
				a.metrics.TwoQubitGateCount++
			}
			if o.Name == "CX" {
				a.metrics.CXGateCount++
			}
			if gates.CreatesSuperposition(o.Name) {
				a.superposition++
				if o.Name == "H" {
					a.hasHadamard = true
				}
			}
			wires := make([]int, 0, len(o.Controls)+len(o.Targets))
			wires = append(wires, o.Controls...)
			wires = append(wires, o.Targets...)
			a.advance(wires)
		case *uir.Measure:
			a.metrics.MeasurementCount++
			a.advance([]int{o.Qubit, a.qubitTotal + o.Bit})
		case *uir.Barrier:
			// A barrier synchronizes its qubits; on the dependency-path
			// model it advances them like a gate.
			a.advance(o.Qubits)
		case *uir.Block:
			// Static occurrence: the body contributes once regardless of
			// how often it would execute.
			a.walk(o.Body)
		}
	}
}

// advance applies one operation across its participant wires: the operation
// lands one step past the deepest participant, and every participant moves
// to that depth.
func (a *analysis) advance(wires []int) {
	depth := 0
	for _, w := range wires {
		a.touched[w] = true
		if a.depths[w] > depth {
			depth = a.depths[w]
		}
	}
	depth++
	for _, w := range wires {
		a.depths[w] = depth
	}
}

func countDecisions(ops []uir.Operation) int {
	n := 0
	for _, op := range ops {
		if b, ok := op.(*uir.Block); ok {
			n += 1 + countDecisions(b.Body)
		}
	}
	return n
}

// bigO applies the rule table over classical loop nesting.
func (a *analysis) bigO(ops []uir.Operation) string {
	maxNest, modular := loopShape(ops, 0)
	if hasOpaqueCondition(ops) {
		a.metrics.Approximate = true
	}
	if modular {
		a.metrics.Approximate = true
		return "O((log n)^3)"
	}
	switch {
	case maxNest == 0:
		return "O(1)"
	case maxNest == 1:
		return "O(n)"
	case maxNest == 2:
		return "O(n^2)"
	default:
		return fmt.Sprintf("O(n^%d)", maxNest)
	}
}

// loopShape reports the deepest loop nesting and whether any loop condition
// carries modular arithmetic.
func loopShape(ops []uir.Operation, depth int) (int, bool) {
	maxNest := depth
	modular := false
	for _, op := range ops {
		b, ok := op.(*uir.Block)
		if !ok {
			continue
		}
		next := depth
		if b.Kind == uir.BlockLoop {
			next = depth + 1
			if modularRe.MatchString(b.Condition) {
				modular = true
			}
		}
		nest, mod := loopShape(b.Body, next)
		if nest > maxNest {
			maxNest = nest
		}
		if mod {
			modular = true
		}
	}
	return maxNest, modular
}

func hasOpaqueCondition(ops []uir.Operation) bool {
	for _, op := range ops {
		b, ok := op.(*uir.Block)
		if !ok {
			continue
		}
		if b.Condition == "" || hasOpaqueCondition(b.Body) {
			return true
		}
	}
	return false
}
