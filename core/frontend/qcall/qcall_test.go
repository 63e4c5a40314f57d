package qcall

import (
	"math"
	"strings"
	"testing"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/uir"
)

const groverQiskit = `from qiskit import QuantumCircuit

qc = QuantumCircuit(2, 2)
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
qc.measure([0, 1], [0, 1])
`

func lowerSource(t *testing.T, tag, source string) *uir.Program {
	t.Helper()
	fe := &FrontEnd{tag: tag}
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

func TestLowerQiskitGrover(t *testing.T) {
	prog := lowerSource(t, TagQiskit, groverQiskit)

	if got := prog.QubitCount(); got != 2 {
		t.Fatalf("qubits = %d, want 2", got)
	}
	if got := prog.BitCount(); got != 2 {
		t.Fatalf("bits = %d, want 2", got)
	}
	if got := len(prog.Ops); got != 14 {
		t.Fatalf("ops = %d, want 14", got)
	}

	first, ok := prog.Ops[0].(*uir.Gate)
	if !ok || first.Name != "H" || first.Targets[0] != 0 {
		t.Fatalf("first op = %#v, want H on qubit 0", prog.Ops[0])
	}
	cz, ok := prog.Ops[2].(*uir.Gate)
	if !ok || cz.Name != "CZ" {
		t.Fatalf("third op = %#v, want CZ", prog.Ops[2])
	}
	if cz.Controls[0] != 0 || cz.Targets[0] != 1 {
		t.Fatalf("CZ wires = ctrl %v tgt %v, want 0/1", cz.Controls, cz.Targets)
	}

	for i, want := range []struct{ q, b int }{{0, 0}, {1, 1}} {
		m, ok := prog.Ops[12+i].(*uir.Measure)
		if !ok || m.Qubit != want.q || m.Bit != want.b {
			t.Fatalf("measure %d = %#v, want q%d->c%d", i, prog.Ops[12+i], want.q, want.b)
		}
	}
}

func TestLowerQiskitNamedRegisters(t *testing.T) {
	source := `
qr = QuantumRegister(3, 'qr')
cr = ClassicalRegister(3, 'cr')
qc = QuantumCircuit(qr, cr)
qc.h(qr)
qc.measure(qr, cr)
`
	prog := lowerSource(t, TagQiskit, source)

	if len(prog.Quantum) != 1 || prog.Quantum[0].Name != "qr" || prog.Quantum[0].Size != 3 {
		t.Fatalf("quantum registers = %#v", prog.Quantum)
	}
	if len(prog.Classical) != 1 || prog.Classical[0].Name != "cr" {
		t.Fatalf("classical registers = %#v", prog.Classical)
	}
	// h on a whole register broadcasts, measure pairs up elementwise.
	if got := len(prog.Ops); got != 6 {
		t.Fatalf("ops = %d, want 6", got)
	}
	for i := 0; i < 3; i++ {
		g, ok := prog.Ops[i].(*uir.Gate)
		if !ok || g.Name != "H" || g.Targets[0] != i {
			t.Fatalf("op %d = %#v, want H on qubit %d", i, prog.Ops[i], i)
		}
	}
	for i := 0; i < 3; i++ {
		m, ok := prog.Ops[3+i].(*uir.Measure)
		if !ok || m.Qubit != i || m.Bit != i {
			t.Fatalf("measure %d = %#v", i, prog.Ops[3+i])
		}
	}
}

func TestLowerQiskitRegisterVariableAlias(t *testing.T) {
	// Registers are routinely assigned to variables whose names differ from
	// the register's own name; references go through the variable.
	source := `from qiskit import QuantumCircuit, QuantumRegister, ClassicalRegister

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
	prog := lowerSource(t, TagQiskit, source)

	// The register keeps its declared name; the variable is only an alias.
	if len(prog.Quantum) != 1 || prog.Quantum[0].Name != "q" || prog.Quantum[0].Size != 2 {
		t.Fatalf("quantum registers = %#v", prog.Quantum)
	}
	if len(prog.Classical) != 1 || prog.Classical[0].Name != "c" {
		t.Fatalf("classical registers = %#v", prog.Classical)
	}
	if got := len(prog.Ops); got != 14 {
		t.Fatalf("ops = %d, want 12 gates + 2 measures", got)
	}
	for i := 0; i < 2; i++ {
		m, ok := prog.Ops[12+i].(*uir.Measure)
		if !ok || m.Qubit != i || m.Bit != i {
			t.Fatalf("measure %d = %#v, want q%d->c%d", i, prog.Ops[12+i], i, i)
		}
	}
}

func TestLowerQiskitUnnamedRegisterAlias(t *testing.T) {
	source := `
qr = QuantumRegister(2)
cr = ClassicalRegister(2)
qc = QuantumCircuit(qr, cr)
qc.h(qr)
qc.measure(qr, cr)
`
	prog := lowerSource(t, TagQiskit, source)
	if len(prog.Quantum) != 1 || prog.Quantum[0].Name != "q" {
		t.Fatalf("quantum registers = %#v", prog.Quantum)
	}
	if got := len(prog.Ops); got != 4 {
		t.Fatalf("ops = %d, want 2 H + 2 measures", got)
	}
}

func TestLowerQiskitParams(t *testing.T) {
	source := `
qc = QuantumCircuit(2)
qc.cu1(pi/2, 1, 0)
qc.rx(0.25, 0)
`
	prog := lowerSource(t, TagQiskit, source)
	if len(prog.Ops) != 2 {
		t.Fatalf("ops = %d, want 2", len(prog.Ops))
	}

	cu1 := prog.Ops[0].(*uir.Gate)
	if cu1.Name != "CU1" || cu1.Controls[0] != 1 || cu1.Targets[0] != 0 {
		t.Fatalf("cu1 = %#v", cu1)
	}
	if math.Abs(cu1.Params[0]-math.Pi/2) > 1e-9 {
		t.Fatalf("cu1 param = %v, want pi/2", cu1.Params[0])
	}

	rx := prog.Ops[1].(*uir.Gate)
	if rx.Name != "RX" || rx.Params[0] != 0.25 || rx.Targets[0] != 0 {
		t.Fatalf("rx = %#v", rx)
	}
}

func TestLowerQiskitLoop(t *testing.T) {
	source := `
qc = QuantumCircuit(3)
for i in range(3):
    qc.h(i)
    qc.rz(0.1, q[i])
if x > 0:
    qc.x(0)
`
	prog := lowerSource(t, TagQiskit, source)
	if len(prog.Ops) != 2 {
		t.Fatalf("top-level ops = %d, want 2", len(prog.Ops))
	}

	loop, ok := prog.Ops[0].(*uir.Block)
	if !ok || loop.Kind != uir.BlockLoop {
		t.Fatalf("first op = %#v, want loop block", prog.Ops[0])
	}
	if loop.Condition != "i in range(3)" {
		t.Fatalf("loop condition = %q", loop.Condition)
	}
	if len(loop.Body) != 2 {
		t.Fatalf("loop body ops = %d, want 2", len(loop.Body))
	}
	// Loop-variable indices pin to the first iteration.
	for _, op := range loop.Body {
		g := op.(*uir.Gate)
		if g.Targets[0] != 0 {
			t.Fatalf("loop body gate targets %v, want qubit 0", g.Targets)
		}
	}

	branch, ok := prog.Ops[1].(*uir.Block)
	if !ok || branch.Kind != uir.BlockBranch || branch.Condition != "x > 0" {
		t.Fatalf("second op = %#v, want branch block", prog.Ops[1])
	}
}

func TestLowerQiskitMeasureAll(t *testing.T) {
	source := `
qc = QuantumCircuit(3)
qc.h(0)
qc.measure_all()
`
	prog := lowerSource(t, TagQiskit, source)
	if prog.BitCount() != 3 {
		t.Fatalf("bits = %d, want 3 from measure_all", prog.BitCount())
	}
	if len(prog.Classical) != 1 || prog.Classical[0].Name != "meas" {
		t.Fatalf("classical registers = %#v", prog.Classical)
	}
	if len(prog.Ops) != 4 {
		t.Fatalf("ops = %d, want 4", len(prog.Ops))
	}
}

const bellCirq = `import cirq

q = cirq.LineQubit.range(2)
circuit = cirq.Circuit()
circuit.append(cirq.H(q[0]))
circuit.append(cirq.CNOT(q[0], q[1]))
circuit.append(cirq.measure(q[0], q[1], key='m'))
`

func TestLowerCirqBell(t *testing.T) {
	prog := lowerSource(t, TagCirq, bellCirq)

	if prog.Dialect != TagCirq {
		t.Fatalf("dialect = %q", prog.Dialect)
	}
	if prog.QubitCount() != 2 {
		t.Fatalf("qubits = %d, want 2", prog.QubitCount())
	}
	// Measurements allocate an implicit classical register.
	if len(prog.Classical) != 1 || prog.Classical[0].Name != "m" || prog.Classical[0].Size != 2 {
		t.Fatalf("classical registers = %#v", prog.Classical)
	}
	if len(prog.Ops) != 4 {
		t.Fatalf("ops = %d, want 4", len(prog.Ops))
	}

	cx, ok := prog.Ops[1].(*uir.Gate)
	if !ok || cx.Name != "CX" || cx.Controls[0] != 0 || cx.Targets[0] != 1 {
		t.Fatalf("second op = %#v, want CX 0->1", prog.Ops[1])
	}
	for i := 0; i < 2; i++ {
		m, ok := prog.Ops[2+i].(*uir.Measure)
		if !ok || m.Qubit != i || m.Bit != i {
			t.Fatalf("measure %d = %#v", i, prog.Ops[2+i])
		}
	}
}

func TestLowerCirqParameterized(t *testing.T) {
	source := `
q = cirq.GridQubit.rect(1, 2)
circuit = cirq.Circuit()
circuit.append(cirq.rx(0.5).on(q[0]))
circuit.append(cirq.rz(1.5).on(q[1]))
`
	prog := lowerSource(t, TagCirq, source)
	if prog.QubitCount() != 2 {
		t.Fatalf("qubits = %d, want 2 from GridQubit.rect(1, 2)", prog.QubitCount())
	}
	rx := prog.Ops[0].(*uir.Gate)
	if rx.Name != "RX" || rx.Params[0] != 0.5 || rx.Targets[0] != 0 {
		t.Fatalf("rx = %#v", rx)
	}
	rz := prog.Ops[1].(*uir.Gate)
	if rz.Name != "RZ" || rz.Targets[0] != 1 {
		t.Fatalf("rz = %#v", rz)
	}
}

func TestLowerErrors(t *testing.T) {
	tests := []struct {
		name   string
		tag    string
		source string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "empty source",
			tag:    TagQiskit,
			source: "   \n\n",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, errors.ErrParse) {
					t.Fatalf("err = %v, want ErrParse", err)
				}
			},
		},
		{
			name:   "unknown gate",
			tag:    TagQiskit,
			source: "qc = QuantumCircuit(2)\nqc.frobnicate(0)\n",
			check: func(t *testing.T, err error) {
				var ug *errors.UnknownGateError
				if !errors.As(err, &ug) {
					t.Fatalf("err = %v, want UnknownGateError", err)
				}
				if ug.Gate != "frobnicate" || ug.Line != 2 {
					t.Fatalf("unknown gate detail = %#v", ug)
				}
			},
		},
		{
			name:   "qubit out of range",
			tag:    TagQiskit,
			source: "qc = QuantumCircuit(2)\nqc.h(5)\n",
			check: func(t *testing.T, err error) {
				var rb *errors.RegisterBoundsError
				if !errors.As(err, &rb) {
					t.Fatalf("err = %v, want RegisterBoundsError", err)
				}
				if rb.Index != 5 || rb.Size != 2 {
					t.Fatalf("bounds detail = %#v", rb)
				}
			},
		},
		{
			name:   "indexed out of range",
			tag:    TagCirq,
			source: "q = cirq.LineQubit.range(2)\ncircuit.append(cirq.H(q[3]))\n",
			check: func(t *testing.T, err error) {
				var rb *errors.RegisterBoundsError
				if !errors.As(err, &rb) {
					t.Fatalf("err = %v, want RegisterBoundsError", err)
				}
				if rb.Register != "q" || rb.Index != 3 {
					t.Fatalf("bounds detail = %#v", rb)
				}
			},
		},
		{
			name:   "measure count mismatch",
			tag:    TagQiskit,
			source: "qc = QuantumCircuit(3, 1)\nqc.measure(q, c)\n",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, errors.ErrParse) {
					t.Fatalf("err = %v, want ErrParse", err)
				}
				if !strings.Contains(err.Error(), "operand counts differ") {
					t.Fatalf("err message = %q", err)
				}
			},
		},
		{
			name:   "wrong arity",
			tag:    TagQiskit,
			source: "qc = QuantumCircuit(2)\nqc.cx(0)\n",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, errors.ErrParse) {
					t.Fatalf("err = %v, want ErrParse", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := &FrontEnd{tag: tt.tag}
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

func TestLowerHashDeterministic(t *testing.T) {
	a := lowerSource(t, TagQiskit, groverQiskit)
	b := lowerSource(t, TagQiskit, groverQiskit)
	if uir.Hash(a) != uir.Hash(b) {
		t.Fatal("identical source produced different hashes")
	}
}
