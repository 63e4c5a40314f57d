// Package detect identifies the dialect of a quantum source text by scoring
// per-dialect signature patterns. Confidence is the fraction of a dialect's
// signatures found in the text.
package detect

import (
	"fmt"
	"regexp"
	"strings"
)

// Result describes a detection outcome.
type Result struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Supported  bool    `json:"supported"`
	Details    string  `json:"details"`
}

// Unknown is reported when no signature matches.
const Unknown = "unknown"

type signature struct {
	tag      string
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?m)` + e)
	}
	return out
}

// signatures are ordered; earlier entries win score ties. OpenQASM first:
// its header line is unambiguous.
var signatures = []signature{
	{tag: "openqasm", patterns: compile(
		`OPENQASM\s+\d+\.\d+`,
		`include\s+"qelib1\.inc"`,
		`qreg\s+\w+\[\d+\]`,
		`creg\s+\w+\[\d+\]`,
		`^gate\s+\w+`,
	)},
	{tag: "qiskit", patterns: compile(
		`from\s+qiskit\s+import`,
		`import\s+qiskit`,
		`QuantumCircuit`,
		`QuantumRegister`,
		`ClassicalRegister`,
	)},
	{tag: "cirq", patterns: compile(
		`import\s+cirq`,
		`from\s+cirq\s+import`,
		`cirq\.Circuit`,
		`cirq\.LineQubit`,
	)},
	{tag: "qsharp", patterns: compile(
		`namespace\s+\w+\s*\{`,
		`operation\s+\w+\s*\(`,
		`use\s+\w+\s*=\s*Qubit`,
		`using\s*\(`,
		`Microsoft\.Quantum`,
	)},
}

// Detect scores the source against every dialect signature set and returns
// the best match, or an unsupported Unknown result.
func Detect(code string) Result {
	if strings.TrimSpace(code) == "" {
		return Result{Language: Unknown, Details: "empty source"}
	}

	best := Result{Language: Unknown}
	bestScore := 0
	for _, sig := range signatures {
		score := 0
		var matched []string
		for _, re := range sig.patterns {
			if re.MatchString(code) {
				score++
				if len(matched) < 3 {
					matched = append(matched, re.String())
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = Result{
				Language:   sig.tag,
				Confidence: float64(score) / float64(len(sig.patterns)),
				Supported:  true,
				Details:    fmt.Sprintf("matched %d of %d signatures: %s", score, len(sig.patterns), strings.Join(matched, ", ")),
			}
		}
	}
	if bestScore == 0 {
		best.Details = "no dialect signature matched"
	}
	return best
}
