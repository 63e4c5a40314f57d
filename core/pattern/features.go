// Package pattern classifies circuits against a library of algorithm
// signatures. A feature vector is extracted from the lowered program and its
// metrics, then scored by a Scorer; the default scorer is rule-based, and an
// external scorer can substitute behind the same interface.
package pattern

import (
	"math"
	"regexp"

	"github.com/circuitlens/circuitlens/core/analyzer"
	"github.com/circuitlens/circuitlens/core/gates"
	"github.com/circuitlens/circuitlens/core/uir"
)

// Features is the signature-agnostic description of one circuit.
type Features struct {
	QubitCount      int
	GateTotal       int
	Histogram       map[string]float64 // gate counts normalized by GateTotal
	DepthWidthRatio float64
	HadamardDensity float64

	// Controlled-phase ladder: a run of CU1/CRZ gates with strictly
	// shrinking angle, the structural core of the QFT.
	PhaseLadder  bool
	PhaseHalving bool // each angle is half its predecessor
	PhaseDensity float64

	// Oracle-then-diffusion shape: an H wall, an X-conjugated controlled-Z
	// core, and a closing H wall, the Grover iteration.
	OracleDiffusion bool

	// Bell-pair preparation: an H whose target later controls a CX.
	BellPrep bool

	ModularBlocks     bool // loop condition with modular arithmetic
	HasLoops          bool
	HasBranches       bool
	RotationDensity   float64
	EntanglingDensity float64
	MeasureCoverage   float64 // fraction of declared qubits measured
}

var modularCondRe = regexp.MustCompile(`%|\bmod\b|\bpow\b|\*\*`)

// Extract builds the feature vector for a program and its metrics.
func Extract(p *uir.Program, m *analyzer.Metrics) Features {
	f := Features{
		QubitCount: m.QubitCount,
		GateTotal:  m.GateCount,
		Histogram:  make(map[string]float64, len(m.GateHistogram)),
	}
	if m.GateCount > 0 {
		for name, n := range m.GateHistogram {
			f.Histogram[name] = float64(n) / float64(m.GateCount)
		}
		f.HadamardDensity = f.Histogram["H"]
	}
	if m.CircuitWidth > 0 {
		f.DepthWidthRatio = float64(m.CircuitDepth) / float64(m.CircuitWidth)
	}

	flat := flatten(p.Ops)
	f.PhaseLadder, f.PhaseHalving, f.PhaseDensity = phaseLadder(flat, m.GateCount)
	f.OracleDiffusion = oracleDiffusion(flat, m.QubitCount)
	f.BellPrep = bellPrep(flat)
	f.ModularBlocks, f.HasLoops, f.HasBranches = blockShape(p.Ops)
	f.RotationDensity, f.EntanglingDensity = gateDensities(flat, m.GateCount)
	f.MeasureCoverage = measureCoverage(p.Ops, m.QubitCount)
	return f
}

// flatten yields the gate sequence in program order, descending into blocks
// once per static occurrence.
func flatten(ops []uir.Operation) []*uir.Gate {
	var out []*uir.Gate
	for _, op := range ops {
		switch o := op.(type) {
		case *uir.Gate:
			out = append(out, o)
		case *uir.Block:
			out = append(out, flatten(o.Body)...)
		}
	}
	return out
}

// phaseLadder looks for the longest run of controlled-phase gates with
// strictly decreasing angle magnitude, tracking whether every step halves.
func phaseLadder(flat []*uir.Gate, total int) (ladder, halving bool, density float64) {
	var angles []float64
	for _, g := range flat {
		if gates.IsControlledPhase(g.Name) && len(g.Params) > 0 {
			angles = append(angles, math.Abs(g.Params[0]))
		}
	}
	if total > 0 {
		density = float64(len(angles)) / float64(total)
	}

	best, bestHalves := 1, true
	run, runHalves := 1, true
	for i := 1; i < len(angles); i++ {
		if angles[i] < angles[i-1] && angles[i] > 0 {
			run++
			if math.Abs(angles[i]*2-angles[i-1]) > 1e-6*angles[i-1] {
				runHalves = false
			}
		} else {
			run, runHalves = 1, true
		}
		if run > best || (run == best && runHalves && !bestHalves) {
			best, bestHalves = run, runHalves
		}
	}
	if best >= 2 {
		return true, bestHalves, density
	}
	return false, false, density
}

// oracleDiffusion checks for the Grover iteration silhouette: enough
// Hadamards to wall the register, an X-conjugated controlled-Z style core,
// and Hadamards closing after the last X.
func oracleDiffusion(flat []*uir.Gate, qubits int) bool {
	if qubits < 2 {
		return false
	}
	hCount, xCount := 0, 0
	hasCore := false
	lastX, lastH := -1, -1
	for i, g := range flat {
		switch g.Name {
		case "H":
			hCount++
			lastH = i
		case "X":
			xCount++
			lastX = i
		case "CZ", "CCX", "CU1", "CRZ":
			if len(g.Controls) >= 1 {
				hasCore = true
			}
		}
	}
	return hCount >= qubits && xCount >= qubits && hasCore && lastH > lastX && lastX >= 0
}

// bellPrep reports an H gate whose target later controls a CX.
func bellPrep(flat []*uir.Gate) bool {
	hTargets := make(map[int]bool)
	for _, g := range flat {
		switch g.Name {
		case "H":
			for _, t := range g.Targets {
				hTargets[t] = true
			}
		case "CX":
			for _, c := range g.Controls {
				if hTargets[c] {
					return true
				}
			}
		}
	}
	return false
}

func blockShape(ops []uir.Operation) (modular, loops, branches bool) {
	for _, op := range ops {
		b, ok := op.(*uir.Block)
		if !ok {
			continue
		}
		if b.Kind == uir.BlockLoop {
			loops = true
			if modularCondRe.MatchString(b.Condition) {
				modular = true
			}
		} else {
			branches = true
		}
		m, l, br := blockShape(b.Body)
		modular = modular || m
		loops = loops || l
		branches = branches || br
	}
	return modular, loops, branches
}

func gateDensities(flat []*uir.Gate, total int) (rotation, entangling float64) {
	if total == 0 {
		return 0, 0
	}
	r, e := 0, 0
	for _, g := range flat {
		if gates.IsRotation(g.Name) {
			r++
		}
		if gates.IsEntangling(g.Name) {
			e++
		}
	}
	return float64(r) / float64(total), float64(e) / float64(total)
}

func measureCoverage(ops []uir.Operation, qubits int) float64 {
	if qubits == 0 {
		return 0
	}
	measured := make(map[int]bool)
	var walk func([]uir.Operation)
	walk = func(ops []uir.Operation) {
		for _, op := range ops {
			switch o := op.(type) {
			case *uir.Measure:
				measured[o.Qubit] = true
			case *uir.Block:
				walk(o.Body)
			}
		}
	}
	walk(ops)
	return float64(len(measured)) / float64(qubits)
}
