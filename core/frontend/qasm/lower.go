package qasm

import (
	"fmt"
	"strings"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/gates"
	"github.com/circuitlens/circuitlens/core/uir"
)

// lowerer carries the register layout while walking statements. Registers
// are laid out flat in declaration order.
type lowerer struct {
	program  *uir.Program
	qOffsets map[string]int
	qSizes   map[string]int
	cOffsets map[string]int
	cSizes   map[string]int
	qubits   int
	bits     int
}

func lower(file *File) (*uir.Program, error) {
	l := &lowerer{
		program:  &uir.Program{Dialect: DialectTag},
		qOffsets: make(map[string]int),
		qSizes:   make(map[string]int),
		cOffsets: make(map[string]int),
		cSizes:   make(map[string]int),
	}

	for _, stmt := range file.Stmts {
		op, err := l.lowerStmt(stmt)
		if err != nil {
			return nil, err
		}
		if op != nil {
			l.program.Ops = append(l.program.Ops, op...)
		}
	}
	return l.program, nil
}

func (l *lowerer) lowerStmt(stmt *Stmt) ([]uir.Operation, error) {
	switch {
	case stmt.Include != nil:
		name := strings.Trim(stmt.Include.Name, `"`)
		if !gates.IsStandardInclude(name) {
			return nil, errors.NewParse(stmt.Include.Pos.Line, stmt.Include.Pos.Column,
				fmt.Sprintf("unknown include %q", name))
		}
		// Standard library gate definitions are inlined via the canonical
		// table; the directive itself lowers to nothing.
		return nil, nil

	case stmt.QReg != nil:
		d := stmt.QReg
		if err := l.declare(d.Name, d.Size, d.Pos.Line, true); err != nil {
			return nil, err
		}
		return nil, nil

	case stmt.CReg != nil:
		d := stmt.CReg
		if err := l.declare(d.Name, d.Size, d.Pos.Line, false); err != nil {
			return nil, err
		}
		return nil, nil

	case stmt.Measure != nil:
		return l.lowerMeasure(stmt.Measure)

	case stmt.Barrier != nil:
		return l.lowerBarrier(stmt.Barrier)

	case stmt.Cond != nil:
		return l.lowerCond(stmt.Cond)

	case stmt.Gate != nil:
		return l.lowerGate(stmt.Gate)
	}
	return nil, nil
}

func (l *lowerer) declare(name string, size, line int, quantum bool) error {
	if _, exists := l.qOffsets[name]; exists {
		return errors.NewParse(line, 0, fmt.Sprintf("register %q already declared", name))
	}
	if _, exists := l.cOffsets[name]; exists {
		return errors.NewParse(line, 0, fmt.Sprintf("register %q already declared", name))
	}
	if size <= 0 {
		return errors.NewParse(line, 0, fmt.Sprintf("register %q has invalid size %d", name, size))
	}
	if quantum {
		l.qOffsets[name] = l.qubits
		l.qSizes[name] = size
		l.qubits += size
		l.program.Quantum = append(l.program.Quantum, uir.Register{Name: name, Size: size})
	} else {
		l.cOffsets[name] = l.bits
		l.cSizes[name] = size
		l.bits += size
		l.program.Classical = append(l.program.Classical, uir.Register{Name: name, Size: size})
	}
	return nil
}

func (l *lowerer) lowerGate(g *GateStmt) ([]uir.Operation, error) {
	spec, ok := gates.Resolve(g.Name)
	if !ok {
		return nil, errors.NewUnknownGate(g.Name, g.Pos.Line)
	}
	if len(g.Params) != spec.Params {
		return nil, errors.NewParse(g.Pos.Line, g.Pos.Column,
			fmt.Sprintf("gate %s takes %d parameter(s), got %d", strings.ToLower(spec.Name), spec.Params, len(g.Params)))
	}
	if len(g.Args) != spec.Qubits {
		return nil, errors.NewParse(g.Pos.Line, g.Pos.Column,
			fmt.Sprintf("gate %s takes %d qubit(s), got %d", strings.ToLower(spec.Name), spec.Qubits, len(g.Args)))
	}

	params := make([]float64, len(g.Params))
	for i, expr := range g.Params {
		params[i] = expr.Eval()
	}

	// Whole-register operands broadcast: all whole registers in one
	// statement must have the same size, and indexed operands repeat.
	span, err := l.broadcastSpan(g.Args, g.Pos.Line)
	if err != nil {
		return nil, err
	}

	var ops []uir.Operation
	for i := 0; i < span; i++ {
		operands := make([]int, len(g.Args))
		for j, arg := range g.Args {
			idx, err := l.resolveQubit(arg, i)
			if err != nil {
				return nil, err
			}
			operands[j] = idx
		}
		gate := &uir.Gate{
			Name:     spec.Name,
			Controls: operands[:spec.Controls],
			Targets:  operands[spec.Controls:],
			Params:   params,
		}
		ops = append(ops, gate)
	}
	return ops, nil
}

func (l *lowerer) lowerMeasure(m *MeasureStmt) ([]uir.Operation, error) {
	srcWhole := m.Src.Index == nil
	dstWhole := m.Dst.Index == nil
	if srcWhole != dstWhole {
		return nil, errors.NewParse(m.Pos.Line, m.Pos.Column,
			"measure operands must both be indexed or both whole registers")
	}

	qSize, ok := l.qSizes[m.Src.Reg]
	if !ok {
		return nil, errors.NewParse(m.Src.Pos.Line, m.Src.Pos.Column,
			fmt.Sprintf("undeclared quantum register %q", m.Src.Reg))
	}
	cSize, ok := l.cSizes[m.Dst.Reg]
	if !ok {
		return nil, errors.NewParse(m.Dst.Pos.Line, m.Dst.Pos.Column,
			fmt.Sprintf("undeclared classical register %q", m.Dst.Reg))
	}

	if srcWhole {
		if qSize != cSize {
			return nil, errors.NewParse(m.Pos.Line, m.Pos.Column,
				fmt.Sprintf("measure register sizes differ: %s[%d] -> %s[%d]", m.Src.Reg, qSize, m.Dst.Reg, cSize))
		}
		ops := make([]uir.Operation, qSize)
		for i := 0; i < qSize; i++ {
			ops[i] = &uir.Measure{
				Qubit: l.qOffsets[m.Src.Reg] + i,
				Bit:   l.cOffsets[m.Dst.Reg] + i,
			}
		}
		return ops, nil
	}

	qubit, err := l.resolveQubit(m.Src, 0)
	if err != nil {
		return nil, err
	}
	bit, err := l.resolveBit(m.Dst)
	if err != nil {
		return nil, err
	}
	return []uir.Operation{&uir.Measure{Qubit: qubit, Bit: bit}}, nil
}

func (l *lowerer) lowerBarrier(b *BarrierStmt) ([]uir.Operation, error) {
	var qubits []int
	for _, arg := range b.Args {
		if arg.Index == nil {
			size, ok := l.qSizes[arg.Reg]
			if !ok {
				return nil, errors.NewParse(arg.Pos.Line, arg.Pos.Column,
					fmt.Sprintf("undeclared quantum register %q", arg.Reg))
			}
			offset := l.qOffsets[arg.Reg]
			for i := 0; i < size; i++ {
				qubits = append(qubits, offset+i)
			}
			continue
		}
		idx, err := l.resolveQubit(arg, 0)
		if err != nil {
			return nil, err
		}
		qubits = append(qubits, idx)
	}
	return []uir.Operation{&uir.Barrier{Qubits: qubits}}, nil
}

func (l *lowerer) lowerCond(c *CondStmt) ([]uir.Operation, error) {
	if _, ok := l.cSizes[c.Reg]; !ok {
		return nil, errors.NewParse(c.Pos.Line, c.Pos.Column,
			fmt.Sprintf("undeclared classical register %q in condition", c.Reg))
	}

	var body []uir.Operation
	var err error
	switch {
	case c.Gate != nil:
		body, err = l.lowerGate(c.Gate)
	case c.Measure != nil:
		body, err = l.lowerMeasure(c.Measure)
	}
	if err != nil {
		return nil, err
	}
	block := &uir.Block{
		Kind:      uir.BlockBranch,
		Condition: fmt.Sprintf("%s==%d", c.Reg, c.Value),
		Body:      body,
	}
	return []uir.Operation{block}, nil
}

// broadcastSpan returns how many operations a statement expands into: 1 for
// fully indexed operands, or the shared whole-register size.
func (l *lowerer) broadcastSpan(args []*Operand, line int) (int, error) {
	span := 1
	for _, arg := range args {
		if arg.Index != nil {
			continue
		}
		size, ok := l.qSizes[arg.Reg]
		if !ok {
			return 0, errors.NewParse(arg.Pos.Line, arg.Pos.Column,
				fmt.Sprintf("undeclared quantum register %q", arg.Reg))
		}
		if span == 1 {
			span = size
		} else if size != span {
			return 0, errors.NewParse(line, 0,
				fmt.Sprintf("mismatched register sizes in broadcast: %d vs %d", span, size))
		}
	}
	return span, nil
}

// resolveQubit maps an operand to its flat qubit index; broadcast is the
// per-index offset for whole-register operands.
func (l *lowerer) resolveQubit(arg *Operand, broadcast int) (int, error) {
	size, ok := l.qSizes[arg.Reg]
	if !ok {
		return 0, errors.NewParse(arg.Pos.Line, arg.Pos.Column,
			fmt.Sprintf("undeclared quantum register %q", arg.Reg))
	}
	idx := broadcast
	if arg.Index != nil {
		idx = *arg.Index
	}
	if idx < 0 || idx >= size {
		return 0, errors.NewRegisterBounds(arg.Reg, idx, size, arg.Pos.Line)
	}
	return l.qOffsets[arg.Reg] + idx, nil
}

func (l *lowerer) resolveBit(arg *Operand) (int, error) {
	size, ok := l.cSizes[arg.Reg]
	if !ok {
		return 0, errors.NewParse(arg.Pos.Line, arg.Pos.Column,
			fmt.Sprintf("undeclared classical register %q", arg.Reg))
	}
	idx := 0
	if arg.Index != nil {
		idx = *arg.Index
	}
	if idx < 0 || idx >= size {
		return 0, errors.NewRegisterBounds(arg.Reg, idx, size, arg.Pos.Line)
	}
	return l.cOffsets[arg.Reg] + idx, nil
}
