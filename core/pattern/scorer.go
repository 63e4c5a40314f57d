package pattern

import (
	"sort"

	"github.com/circuitlens/circuitlens/core/analyzer"
	"github.com/circuitlens/circuitlens/core/uir"
)

// Labels in the signature library.
const (
	LabelQFT           = "qft"
	LabelGrover        = "grover"
	LabelShor          = "shor"
	LabelVQE           = "vqe"
	LabelTeleportation = "teleportation"
	LabelBellState     = "bell_state"
	LabelUnclassified  = "unclassified"
)

// priority breaks confidence ties; earlier wins.
var priority = []string{
	LabelQFT, LabelGrover, LabelShor, LabelTeleportation, LabelBellState, LabelVQE,
}

// Match is one signature's score for a circuit.
type Match struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Scorer maps a feature vector to per-signature confidences. The rule-based
// scorer is the default; a trained external scorer substitutes behind the
// same interface.
type Scorer interface {
	Score(f Features) []Match
}

// DefaultThreshold is the confidence floor below which a circuit is
// reported unclassified.
const DefaultThreshold = 0.4

// Recognizer scores a circuit against the signature library.
type Recognizer struct {
	scorer    Scorer
	threshold float64
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithScorer substitutes the scoring implementation.
func WithScorer(s Scorer) Option {
	return func(r *Recognizer) { r.scorer = s }
}

// WithThreshold overrides the unclassified floor.
func WithThreshold(t float64) Option {
	return func(r *Recognizer) { r.threshold = t }
}

// New builds a Recognizer with the rule-based scorer and default threshold.
func New(opts ...Option) *Recognizer {
	r := &Recognizer{scorer: RuleScorer{}, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recognize never fails: it returns the matches at or above the threshold in
// descending confidence, or a single zero-confidence unclassified entry.
func (r *Recognizer) Recognize(p *uir.Program, m *analyzer.Metrics) []Match {
	f := Extract(p, m)
	scored := r.scorer.Score(f)

	rank := make(map[string]int, len(priority))
	for i, label := range priority {
		rank[label] = i
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Confidence != scored[j].Confidence {
			return scored[i].Confidence > scored[j].Confidence
		}
		return rank[scored[i].Label] < rank[scored[j].Label]
	})

	var matches []Match
	for _, s := range scored {
		if s.Confidence >= r.threshold {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return []Match{{Label: LabelUnclassified, Confidence: 0}}
	}
	return matches
}

// RuleScorer is the deterministic default: weighted structural rules per
// signature, each clamped to [0,1].
type RuleScorer struct{}

// Score evaluates every signature in the library.
func (RuleScorer) Score(f Features) []Match {
	return []Match{
		{LabelQFT, scoreQFT(f)},
		{LabelGrover, scoreGrover(f)},
		{LabelShor, scoreShor(f)},
		{LabelVQE, scoreVQE(f)},
		{LabelTeleportation, scoreTeleportation(f)},
		{LabelBellState, scoreBellState(f)},
	}
}

func scoreQFT(f Features) float64 {
	if !f.PhaseLadder {
		return 0
	}
	score := 0.45
	if f.PhaseHalving {
		score += 0.2
	}
	if f.HadamardDensity >= 0.2 && f.HadamardDensity <= 0.75 {
		score += 0.2
	}
	score += 0.15 * f.MeasureCoverage
	return clamp(score)
}

func scoreGrover(f Features) float64 {
	if !f.OracleDiffusion {
		return 0
	}
	score := 0.55
	if f.HadamardDensity >= 0.3 {
		score += 0.2
	}
	if f.Histogram["X"] > 0 {
		score += 0.15
	}
	score += 0.1 * f.MeasureCoverage
	return clamp(score)
}

func scoreShor(f Features) float64 {
	if !f.ModularBlocks {
		return 0
	}
	score := 0.55
	if f.HasLoops {
		score += 0.2
	}
	if f.PhaseLadder {
		score += 0.15
	}
	score += 0.1 * f.MeasureCoverage
	return clamp(score)
}

func scoreVQE(f Features) float64 {
	// Controlled-phase rotations belong to the QFT family, not a
	// variational ansatz; discount them.
	rot := f.RotationDensity - f.PhaseDensity
	if rot < 0.25 {
		return 0
	}
	score := 0.4
	if f.EntanglingDensity >= 0.1 {
		score += 0.25
	}
	if f.HasLoops {
		score += 0.2
	}
	if rot >= 0.5 {
		score += 0.15
	}
	return clamp(score)
}

func scoreTeleportation(f Features) float64 {
	score := 0.0
	if f.QubitCount == 3 {
		score += 0.25
	}
	if f.BellPrep {
		score += 0.25
	}
	if f.QubitCount > 0 && f.MeasureCoverage >= 2.0/3.0-1e-9 && f.MeasureCoverage < 1 {
		score += 0.25
	}
	if f.HasBranches {
		score += 0.25
	}
	return clamp(score)
}

func scoreBellState(f Features) float64 {
	if !f.BellPrep {
		return 0
	}
	score := 0.4
	if f.QubitCount == 2 {
		score += 0.3
	}
	if f.MeasureCoverage == 1 {
		score += 0.2
	}
	if f.GateTotal <= 4 {
		score += 0.1
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
