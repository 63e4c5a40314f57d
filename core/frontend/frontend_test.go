package frontend

import (
	"errors"
	"math"
	"testing"

	cerrors "github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/uir"
)

type stubAST struct{ tag string }

func (a *stubAST) Dialect() string { return a.tag }

type stubFrontEnd struct{ tag string }

func (f *stubFrontEnd) Name() string { return f.tag }

func (f *stubFrontEnd) Parse(source string) (AST, error) {
	return &stubAST{tag: f.tag}, nil
}

func (f *stubFrontEnd) Lower(ast AST) (*uir.Program, error) {
	return &uir.Program{Dialect: f.tag}, nil
}

func TestRegistryLookup(t *testing.T) {
	Register(&stubFrontEnd{tag: "stub-dialect"})

	fe, err := Lookup("stub-dialect")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if fe.Name() != "stub-dialect" {
		t.Errorf("Name = %q", fe.Name())
	}

	_, err = Lookup("no-such-dialect")
	if !errors.Is(err, cerrors.ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
	var ule *cerrors.UnsupportedLanguageError
	if !errors.As(err, &ule) {
		t.Fatal("errors.As failed")
	}
	if len(ule.Supported) == 0 {
		t.Error("error should carry the registered tags")
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("duplicate registration should panic")
		}
	}()
	Register(&stubFrontEnd{tag: "dup-dialect"})
	Register(&stubFrontEnd{tag: "dup-dialect"})
}

func TestListSorted(t *testing.T) {
	tags := List()
	for i := 1; i < len(tags); i++ {
		if tags[i-1] >= tags[i] {
			t.Errorf("List not sorted: %v", tags)
		}
	}
}

func TestEvalParam(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"pi", math.Pi},
		{"pi/2", math.Pi / 2},
		{"pi/4", math.Pi / 4},
		{"-pi/2", -math.Pi / 2},
		{"2*pi", 2 * math.Pi},
		{"0.5", 0.5},
		{"3", 3},
		{"1e-3", 0.001},
		{"(pi+pi)/4", math.Pi / 2},
		{"np.pi/2", math.Pi / 2},
		{"math.pi", math.Pi},
		{"PI()/2", math.Pi / 2},
		{"pi/2 + pi/4", 3 * math.Pi / 4},
		{"--1", 1},
	}
	for _, tt := range tests {
		got, err := EvalParam(tt.expr)
		if err != nil {
			t.Errorf("EvalParam(%q) error: %v", tt.expr, err)
			continue
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("EvalParam(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalParamErrors(t *testing.T) {
	for _, expr := range []string{"", "foo", "1/0", "(pi", "1 2", "pi//2"} {
		if _, err := EvalParam(expr); err == nil {
			t.Errorf("EvalParam(%q) should fail", expr)
		}
	}
}
