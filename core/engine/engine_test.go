package engine

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/circuitlens/circuitlens/core/errors"
)

const qftSource = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[3];
creg c[3];
h q[0];
cu1(pi/2) q[1],q[0];
cu1(pi/4) q[2],q[0];
h q[1];
cu1(pi/2) q[2],q[1];
h q[2];
measure q -> c;
`

func allOptions() Options {
	return Options{IncludeComplexity: true, IncludePatterns: true}
}

func TestAnalyzeQFT(t *testing.T) {
	e := New(DefaultConfig())
	report, err := e.Analyze(context.Background(), Request{
		Code:     qftSource,
		Language: "openqasm",
		Options:  allOptions(),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.Classification != "qft" {
		t.Fatalf("classification = %q, want qft", report.Classification)
	}
	if report.Confidence < 0.7 {
		t.Fatalf("confidence = %v, want >= 0.7", report.Confidence)
	}
	if report.Complexity == nil {
		t.Fatal("complexity missing")
	}
	if report.Complexity.QubitCount != 3 {
		t.Fatalf("qubit count = %d", report.Complexity.QubitCount)
	}
	if report.Complexity.GateHistogram["H"] != 3 || report.Complexity.GateHistogram["CU1"] != 3 {
		t.Fatalf("histogram = %v", report.Complexity.GateHistogram)
	}
	if len(report.Patterns) == 0 || report.Patterns[0] != "qft" {
		t.Fatalf("patterns = %v", report.Patterns)
	}
}

const groverQiskitSource = `from qiskit import QuantumCircuit, QuantumRegister, ClassicalRegister

qr = QuantumRegister(2, 'q')
cr = ClassicalRegister(2, 'c')
qc = QuantumCircuit(qr, cr)

qc.h(0)
qc.h(1)

qc.cz(0, 1)

qc.h(0)
qc.h(1)
qc.x(0)
qc.x(1)
qc.cz(0, 1)
qc.x(0)
qc.x(1)
qc.h(0)
qc.h(1)

qc.measure(qr, cr)
`

func TestAnalyzeGroverQiskit(t *testing.T) {
	e := New(DefaultConfig())
	report, err := e.Analyze(context.Background(), Request{
		Code:     groverQiskitSource,
		Language: "qiskit",
		Options:  allOptions(),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if report.Classification != "grover" {
		t.Fatalf("classification = %q, want grover", report.Classification)
	}
	if report.Confidence < 0.7 {
		t.Fatalf("confidence = %v, want >= 0.7", report.Confidence)
	}
	if report.Complexity.QubitCount != 2 || report.Complexity.ClassicalBitCount != 2 {
		t.Fatalf("register counts = %d/%d, want 2/2",
			report.Complexity.QubitCount, report.Complexity.ClassicalBitCount)
	}
	if report.Complexity.GateCount != 12 || report.Complexity.MeasurementCount != 2 {
		t.Fatalf("gate/measure counts = %d/%d, want 12/2",
			report.Complexity.GateCount, report.Complexity.MeasurementCount)
	}
}

func TestAnalyzeOptionsOmitSections(t *testing.T) {
	e := New(DefaultConfig())
	report, err := e.Analyze(context.Background(), Request{
		Code:     qftSource,
		Language: "openqasm",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Complexity != nil {
		t.Fatal("complexity should be omitted")
	}
	if report.Matches != nil {
		t.Fatal("matches should be omitted")
	}
	if report.Classification != "unclassified" {
		t.Fatalf("classification = %q", report.Classification)
	}
}

func TestAnalyzeErrorTaxonomy(t *testing.T) {
	e := New(DefaultConfig())
	tests := []struct {
		name     string
		req      Request
		sentinel error
	}{
		{
			name:     "unsupported language",
			req:      Request{Code: "qreg q[1];", Language: "fortran"},
			sentinel: errors.ErrUnsupportedLanguage,
		},
		{
			name:     "parse error",
			req:      Request{Code: "qreg q[;", Language: "openqasm"},
			sentinel: errors.ErrParse,
		},
		{
			name:     "unknown gate",
			req:      Request{Code: "qreg q[1];\nfoobar q[0];", Language: "openqasm"},
			sentinel: errors.ErrUnknownGate,
		},
		{
			name:     "register bounds",
			req:      Request{Code: "qreg q[2];\nh q[5];", Language: "openqasm"},
			sentinel: errors.ErrRegisterBounds,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Analyze(context.Background(), tt.req)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("err = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestAnalyzeResourceLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSourceBytes = 32
	e := New(cfg)
	_, err := e.Analyze(context.Background(), Request{
		Code:     strings.Repeat("h q[0];\n", 100),
		Language: "openqasm",
	})
	if !errors.Is(err, errors.ErrResourceLimit) {
		t.Fatalf("err = %v, want ErrResourceLimit", err)
	}

	cfg = DefaultConfig()
	cfg.MaxOperations = 2
	e = New(cfg)
	_, err = e.Analyze(context.Background(), Request{
		Code:     "qreg q[3];\nh q[0];\nh q[1];\nh q[2];",
		Language: "openqasm",
	})
	var rl *errors.ResourceLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("err = %v, want ResourceLimitError", err)
	}
	if rl.Limit != "operation count" || rl.Actual != 3 {
		t.Fatalf("limit detail = %#v", rl)
	}
}

func TestAnalyzeCached(t *testing.T) {
	e := New(DefaultConfig())
	req := Request{Code: qftSource, Language: "openqasm", Options: allOptions()}

	first, err := e.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := e.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached report pointer on repeat request")
	}
	if s := e.CacheStats(); s.Hits != 1 {
		t.Fatalf("cache hits = %d, want 1", s.Hits)
	}

	// Different options address a different cache slot.
	other, err := e.Analyze(context.Background(), Request{Code: qftSource, Language: "openqasm"})
	if err != nil {
		t.Fatalf("other: %v", err)
	}
	if other == first {
		t.Fatal("reports with different options must not share a cache entry")
	}
}

func TestAnalyzeConcurrent(t *testing.T) {
	e := New(DefaultConfig())
	req := Request{Code: qftSource, Language: "openqasm", Options: allOptions()}

	const n = 16
	var wg sync.WaitGroup
	reports := make([]*Report, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = e.Analyze(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if reports[i].Classification != "qft" {
			t.Fatalf("request %d classification = %q", i, reports[i].Classification)
		}
	}
}

func TestAnalyzeCancelledContext(t *testing.T) {
	e := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Analyze(ctx, Request{Code: qftSource, Language: "openqasm"})
	if err == nil {
		// A fast computation may win the race against the cancelled
		// context; both outcomes are valid.
		return
	}
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled or success", err)
	}
}

func TestLanguages(t *testing.T) {
	e := New(DefaultConfig())
	langs := e.Languages()
	want := map[string]bool{"openqasm": false, "qiskit": false, "cirq": false, "qsharp": false}
	for _, l := range langs {
		if _, ok := want[l]; ok {
			want[l] = true
		}
	}
	for tag, seen := range want {
		if !seen {
			t.Fatalf("languages %v missing %q", langs, tag)
		}
	}
}

func TestRecommendations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DepthHint = 3
	e := New(cfg)
	report, err := e.Analyze(context.Background(), Request{
		Code:     qftSource,
		Language: "openqasm",
		Options:  allOptions(),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "gate-cancellation") {
			found = true
		}
	}
	if !found {
		t.Fatalf("recommendations = %v, want depth hint", report.Recommendations)
	}
}
