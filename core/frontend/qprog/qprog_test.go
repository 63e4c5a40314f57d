package qprog

import (
	"math"
	"testing"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/uir"
)

const bellQSharp = `namespace Demo {
    operation Bell() : (Result, Result) {
        use q = Qubit[2];
        H(q[0]);
        CNOT(q[0], q[1]);
        let a = M(q[0]);
        let b = M(q[1]);
        return (a, b);
    }
}
`

func lowerSource(t *testing.T, source string) *uir.Program {
	t.Helper()
	fe := &FrontEnd{}
	ast, err := fe.Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	prog, err := fe.Lower(ast)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	return prog
}

func TestLowerBell(t *testing.T) {
	prog := lowerSource(t, bellQSharp)

	if prog.Dialect != DialectTag {
		t.Fatalf("dialect = %q", prog.Dialect)
	}
	if prog.QubitCount() != 2 {
		t.Fatalf("qubits = %d, want 2", prog.QubitCount())
	}
	// Results land in one implicit classical register.
	if len(prog.Classical) != 1 || prog.Classical[0].Name != "r" || prog.Classical[0].Size != 2 {
		t.Fatalf("classical registers = %#v", prog.Classical)
	}
	if len(prog.Ops) != 4 {
		t.Fatalf("ops = %d, want 4", len(prog.Ops))
	}

	h := prog.Ops[0].(*uir.Gate)
	if h.Name != "H" || h.Targets[0] != 0 {
		t.Fatalf("first op = %#v", h)
	}
	cx := prog.Ops[1].(*uir.Gate)
	if cx.Name != "CX" || cx.Controls[0] != 0 || cx.Targets[0] != 1 {
		t.Fatalf("second op = %#v", cx)
	}
	for i := 0; i < 2; i++ {
		m := prog.Ops[2+i].(*uir.Measure)
		if m.Qubit != i || m.Bit != i {
			t.Fatalf("measure %d = %#v", i, m)
		}
	}
}

func TestLowerControlledFunctor(t *testing.T) {
	source := `operation Main() : Unit {
    use q = Qubit[3];
    Controlled X([q[0]], q[1]);
    Controlled X([q[0], q[1]], q[2]);
}
`
	prog := lowerSource(t, source)
	if len(prog.Ops) != 2 {
		t.Fatalf("ops = %d, want 2", len(prog.Ops))
	}

	cx := prog.Ops[0].(*uir.Gate)
	if cx.Name != "CX" || cx.Controls[0] != 0 || cx.Targets[0] != 1 {
		t.Fatalf("Controlled X = %#v", cx)
	}
	ccx := prog.Ops[1].(*uir.Gate)
	if ccx.Name != "CCX" || len(ccx.Controls) != 2 || ccx.Targets[0] != 2 {
		t.Fatalf("doubly Controlled X = %#v", ccx)
	}
}

func TestLowerRotationsAndApplyToEach(t *testing.T) {
	source := `operation Main() : Unit {
    use q = Qubit[3];
    ApplyToEach(H, q);
    Rx(0.25, q[1]);
    R1(1.5, q[2]);
}
`
	prog := lowerSource(t, source)
	if len(prog.Ops) != 5 {
		t.Fatalf("ops = %d, want 5", len(prog.Ops))
	}
	for i := 0; i < 3; i++ {
		g := prog.Ops[i].(*uir.Gate)
		if g.Name != "H" || g.Targets[0] != i {
			t.Fatalf("broadcast op %d = %#v", i, g)
		}
	}
	rx := prog.Ops[3].(*uir.Gate)
	if rx.Name != "RX" || math.Abs(rx.Params[0]-0.25) > 1e-12 || rx.Targets[0] != 1 {
		t.Fatalf("rx = %#v", rx)
	}
	r1 := prog.Ops[4].(*uir.Gate)
	if r1.Name != "U1" || r1.Targets[0] != 2 {
		t.Fatalf("r1 = %#v, want U1", r1)
	}
}

func TestLowerControlFlow(t *testing.T) {
	source := `operation Main() : Unit {
    use q = Qubit[2];
    for i in 0..1 {
        H(q[i]);
    }
    if flag {
        X(q[0]);
    } else {
        Z(q[0]);
    }
    repeat {
        H(q[0]);
    } until (done);
}
`
	prog := lowerSource(t, source)
	if len(prog.Ops) != 4 {
		t.Fatalf("top-level ops = %d, want 4: %#v", len(prog.Ops), prog.Ops)
	}

	loop := prog.Ops[0].(*uir.Block)
	if loop.Kind != uir.BlockLoop || loop.Condition != "i in 0..1" {
		t.Fatalf("for block = %#v", loop)
	}
	if len(loop.Body) != 1 {
		t.Fatalf("for body = %#v", loop.Body)
	}
	// Loop-variable indices pin to the first iteration.
	if g := loop.Body[0].(*uir.Gate); g.Targets[0] != 0 {
		t.Fatalf("loop body gate = %#v", g)
	}

	branch := prog.Ops[1].(*uir.Block)
	if branch.Kind != uir.BlockBranch || branch.Condition != "flag" {
		t.Fatalf("if block = %#v", branch)
	}
	elseBlock := prog.Ops[2].(*uir.Block)
	if elseBlock.Kind != uir.BlockBranch || elseBlock.Condition != "else" {
		t.Fatalf("else block = %#v", elseBlock)
	}

	repeat := prog.Ops[3].(*uir.Block)
	if repeat.Kind != uir.BlockLoop || repeat.Condition != "done" {
		t.Fatalf("repeat block = %#v", repeat)
	}
}

func TestLowerResetForms(t *testing.T) {
	source := `operation Main() : Unit {
    use q = Qubit[2];
    let r0 = MResetZ(q[0]);
    Reset(q[1]);
    ResetAll(q);
}
`
	prog := lowerSource(t, source)
	if len(prog.Ops) != 5 {
		t.Fatalf("ops = %d, want 5", len(prog.Ops))
	}
	if _, ok := prog.Ops[0].(*uir.Measure); !ok {
		t.Fatalf("first op = %#v, want measure", prog.Ops[0])
	}
	for i, op := range prog.Ops[1:] {
		g, ok := op.(*uir.Gate)
		if !ok || g.Name != "RESET" {
			t.Fatalf("op %d = %#v, want RESET", i+1, op)
		}
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "empty source",
			source: "\n  \n",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, errors.ErrParse) {
					t.Fatalf("err = %v, want ErrParse", err)
				}
			},
		},
		{
			name:   "unknown gate",
			source: "use q = Qubit[1];\nFrobnicate(q[0]);\n",
			check: func(t *testing.T, err error) {
				var ug *errors.UnknownGateError
				if !errors.As(err, &ug) {
					t.Fatalf("err = %v, want UnknownGateError", err)
				}
				if ug.Gate != "Frobnicate" {
					t.Fatalf("gate = %q", ug.Gate)
				}
			},
		},
		{
			name:   "index out of bounds",
			source: "use q = Qubit[2];\nH(q[4]);\n",
			check: func(t *testing.T, err error) {
				var rb *errors.RegisterBoundsError
				if !errors.As(err, &rb) {
					t.Fatalf("err = %v, want RegisterBoundsError", err)
				}
				if rb.Register != "q" || rb.Index != 4 || rb.Size != 2 {
					t.Fatalf("bounds detail = %#v", rb)
				}
			},
		},
		{
			name:   "controlled form with no lift",
			source: "use q = Qubit[2];\nControlled T([q[0]], q[1]);\n",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, errors.ErrUnknownGate) {
					t.Fatalf("err = %v, want ErrUnknownGate", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &FrontEnd{}
			ast, err := fe.Parse(tt.source)
			if err == nil {
				_, err = fe.Lower(ast)
			}
			if err == nil {
				t.Fatal("expected error, got none")
			}
			tt.check(t, err)
		})
	}
}
