// Package engine orchestrates the analysis pipeline: dialect lookup, parse,
// lower, resource limits, static metrics, and pattern recognition. The
// engine is stateless across requests; the result cache is keyed by content
// hash, so it holds no request state, only memoized pure-function results.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/circuitlens/circuitlens/core/analyzer"
	"github.com/circuitlens/circuitlens/core/cache"
	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/frontend"
	"github.com/circuitlens/circuitlens/core/pattern"
	"github.com/circuitlens/circuitlens/core/uir"

	// Dialect front-ends register themselves at init.
	_ "github.com/circuitlens/circuitlens/core/frontend/qasm"
	_ "github.com/circuitlens/circuitlens/core/frontend/qcall"
	_ "github.com/circuitlens/circuitlens/core/frontend/qprog"
)

// Options selects optional report sections.
type Options struct {
	IncludeComplexity bool `json:"includeComplexity"`
	IncludePatterns   bool `json:"includePatterns"`
}

// Request is one analysis request.
type Request struct {
	Code     string  `json:"code"`
	Language string  `json:"language"`
	Options  Options `json:"options"`
}

// Report is the analysis result.
type Report struct {
	Language        string            `json:"language"`
	SourceHash      string            `json:"sourceHash"`
	Classification  string            `json:"classification"`
	Confidence      float64           `json:"confidence"`
	Complexity      *analyzer.Metrics `json:"complexity,omitempty"`
	Patterns        []string          `json:"patterns"`
	Matches         []pattern.Match   `json:"matches,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
}

// Config bounds per-request work and sizes the result cache.
type Config struct {
	MaxSourceBytes   int
	MaxOperations    int
	MaxNesting       int
	CacheSize        int
	CacheTTL         time.Duration
	PatternThreshold float64

	// Recommendation thresholds.
	DepthHint int
	QubitHint int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxSourceBytes:   1 << 20,
		MaxOperations:    100000,
		MaxNesting:       32,
		CacheSize:        256,
		CacheTTL:         15 * time.Minute,
		PatternThreshold: pattern.DefaultThreshold,
		DepthHint:        50,
		QubitHint:        20,
	}
}

// Engine runs analysis requests. Safe for concurrent use.
type Engine struct {
	cfg        Config
	recognizer *pattern.Recognizer
	results    cache.Cache[string, *Report]
	group      singleflight.Group
}

// New builds an Engine from a configuration. Zero thresholds fall back to
// defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = def.MaxSourceBytes
	}
	if cfg.MaxOperations <= 0 {
		cfg.MaxOperations = def.MaxOperations
	}
	if cfg.MaxNesting <= 0 {
		cfg.MaxNesting = def.MaxNesting
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.PatternThreshold <= 0 {
		cfg.PatternThreshold = def.PatternThreshold
	}
	if cfg.DepthHint <= 0 {
		cfg.DepthHint = def.DepthHint
	}
	if cfg.QubitHint <= 0 {
		cfg.QubitHint = def.QubitHint
	}
	return &Engine{
		cfg:        cfg,
		recognizer: pattern.New(pattern.WithThreshold(cfg.PatternThreshold)),
		results: cache.NewLRUCache[string, *Report](cache.Config{
			MaxSize: cfg.CacheSize,
			TTL:     cfg.CacheTTL,
		}),
	}
}

// Languages returns the registered dialect tags.
func (e *Engine) Languages() []string {
	return frontend.List()
}

// CacheStats reports result-cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.results.Stats()
}

// Analyze runs one request through the pipeline. Identical requests share a
// cached result; concurrent duplicates await a single in-flight computation.
// Cancelling the context abandons the wait without cancelling the
// computation for other waiters.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Report, error) {
	if len(req.Code) > e.cfg.MaxSourceBytes {
		return nil, errors.NewResourceLimit("source size", e.cfg.MaxSourceBytes, len(req.Code))
	}

	key := cacheKey(req)
	if r, ok := e.results.Get(key); ok {
		return r, nil
	}

	ch := e.group.DoChan(key, func() (interface{}, error) {
		r, err := e.run(req)
		if err != nil {
			return nil, err
		}
		e.results.Put(key, r)
		return r, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Report), nil
	}
}

// cacheKey hashes the (language, options, source) tuple.
func cacheKey(req Request) string {
	opts := []byte{0, 0}
	if req.Options.IncludeComplexity {
		opts[0] = 1
	}
	if req.Options.IncludePatterns {
		opts[1] = 1
	}
	return uir.HashBytes([]byte(req.Language + "\x00" + string(opts) + "\x00" + req.Code))
}

// run executes the pipeline synchronously. Panics in any phase surface as
// InternalError rather than taking the process down.
func (e *Engine) run(req Request) (report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = errors.NewInternal("analyze", fmt.Errorf("panic: %v", r))
		}
	}()

	fe, err := frontend.Lookup(req.Language)
	if err != nil {
		return nil, err
	}
	ast, err := fe.Parse(req.Code)
	if err != nil {
		return nil, err
	}
	prog, err := fe.Lower(ast)
	if err != nil {
		return nil, err
	}

	if n := prog.OperationCount(); n > e.cfg.MaxOperations {
		return nil, errors.NewResourceLimit("operation count", e.cfg.MaxOperations, n)
	}
	if n := prog.NestingDepth(); n > e.cfg.MaxNesting {
		return nil, errors.NewResourceLimit("block nesting", e.cfg.MaxNesting, n)
	}

	metrics := analyzer.Analyze(prog)

	report = &Report{
		Language:       req.Language,
		SourceHash:     uir.HashBytes([]byte(req.Code)),
		Classification: pattern.LabelUnclassified,
		Patterns:       []string{},
	}
	if req.Options.IncludeComplexity {
		report.Complexity = metrics
	}
	if req.Options.IncludePatterns {
		matches := e.recognizer.Recognize(prog, metrics)
		report.Classification = matches[0].Label
		report.Confidence = matches[0].Confidence
		report.Matches = matches
		for _, m := range matches {
			if m.Label != pattern.LabelUnclassified {
				report.Patterns = append(report.Patterns, m.Label)
			}
		}
	}
	report.Recommendations = e.recommend(metrics, report)
	return report, nil
}

// recommend derives optimization hints from the metrics and classification.
func (e *Engine) recommend(m *analyzer.Metrics, r *Report) []string {
	var recs []string
	if m.CircuitDepth > e.cfg.DepthHint {
		recs = append(recs, fmt.Sprintf(
			"circuit depth %d exceeds %d: consider gate-cancellation optimization",
			m.CircuitDepth, e.cfg.DepthHint))
	}
	if m.QubitCount > e.cfg.QubitHint {
		recs = append(recs, fmt.Sprintf(
			"qubit count %d exceeds %d: verify target hardware capacity",
			m.QubitCount, e.cfg.QubitHint))
	}
	if m.MeasurementCount == 0 && m.GateCount > 0 {
		recs = append(recs, "no measurements found: results will not be observable")
	}
	if m.Approximate {
		recs = append(recs, "complexity estimate is approximate: annotate classical loop bounds for a tighter bound")
	}
	if r.Matches != nil && r.Classification == pattern.LabelUnclassified && m.GateCount > 0 {
		recs = append(recs, "no algorithm signature matched: consider annotating the circuit's intent")
	}
	return recs
}
