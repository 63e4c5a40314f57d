package qcall

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/frontend"
	"github.com/circuitlens/circuitlens/core/gates"
	"github.com/circuitlens/circuitlens/core/uir"
)

// nonGateMethods are builder methods that touch no wires. They lower to
// nothing rather than tripping the unknown-gate check.
var nonGateMethods = map[string]bool{
	"draw": true, "depth": true, "width": true, "qasm": true, "size": true,
	"append": true, "compose": true, "copy": true, "decompose": true,
	"add_register": true, "initialize": true, "bind_parameters": true,
	"assign_parameters": true, "to_gate": true, "inverse": true,
	"save_statevector": true, "run": true, "result": true, "get_counts": true,
	"name": true, "append_gate": true, "print": true,
}

type callLowerer struct {
	program  *uir.Program
	tag      string
	qOffsets map[string]int
	qSizes   map[string]int
	cOffsets map[string]int
	cSizes   map[string]int
	qubits   int
	bits     int
	loopVars map[string]bool
	// cirq has no explicit classical registers; measured qubits get
	// sequential bits in one implicit register.
	implicitBits int
}

func lower(file *File) (*uir.Program, error) {
	l := &callLowerer{
		program:  &uir.Program{Dialect: file.Tag},
		tag:      file.Tag,
		qOffsets: make(map[string]int),
		qSizes:   make(map[string]int),
		cOffsets: make(map[string]int),
		cSizes:   make(map[string]int),
		loopVars: make(map[string]bool),
	}

	// Register declarations may appear anywhere before first use; collect
	// them in a first pass so call lowering sees the full layout.
	if err := l.collectRegisters(file.Stmts); err != nil {
		return nil, err
	}

	ops, err := l.lowerStmts(file.Stmts)
	if err != nil {
		return nil, err
	}
	l.program.Ops = ops

	if l.implicitBits > 0 {
		l.program.Classical = append(l.program.Classical, uir.Register{Name: "m", Size: l.implicitBits})
	}
	return l.program, nil
}

func (l *callLowerer) collectRegisters(stmts []Stmt) error {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *RegDecl:
			if err := l.declare(s); err != nil {
				return err
			}
		case *BlockStmt:
			if err := l.collectRegisters(s.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *callLowerer) declare(d *RegDecl) error {
	if d.Size <= 0 {
		return errors.NewParse(d.Line, 0, fmt.Sprintf("register %q has invalid size %d", d.Name, d.Size))
	}
	if d.Quantum {
		if _, exists := l.qOffsets[d.Name]; exists {
			return nil // re-scan of the same declaration
		}
		l.bind(l.qOffsets, l.qSizes, d, l.qubits)
		l.qubits += d.Size
		l.program.Quantum = append(l.program.Quantum, uir.Register{Name: d.Name, Size: d.Size})
		return nil
	}
	if _, exists := l.cOffsets[d.Name]; exists {
		return nil
	}
	l.bind(l.cOffsets, l.cSizes, d, l.bits)
	l.bits += d.Size
	l.program.Classical = append(l.program.Classical, uir.Register{Name: d.Name, Size: d.Size})
	return nil
}

// bind records a register's offset and size under its name and, when the
// declaration was assigned to a differently named variable, under that
// variable too, so qr = QuantumRegister(2, 'q') resolves as qr or q.
func (l *callLowerer) bind(offsets, sizes map[string]int, d *RegDecl, offset int) {
	offsets[d.Name] = offset
	sizes[d.Name] = d.Size
	if d.Alias != "" && d.Alias != d.Name {
		offsets[d.Alias] = offset
		sizes[d.Alias] = d.Size
	}
}

func (l *callLowerer) lowerStmts(stmts []Stmt) ([]uir.Operation, error) {
	var ops []uir.Operation
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *RegDecl:
			// handled in the first pass
		case *Call:
			lowered, err := l.lowerCall(s)
			if err != nil {
				return nil, err
			}
			ops = append(ops, lowered...)
		case *BlockStmt:
			loopVar := l.noteLoopVar(s)
			body, err := l.lowerStmts(s.Body)
			if err != nil {
				return nil, err
			}
			if loopVar != "" {
				delete(l.loopVars, loopVar)
			}
			kind := uir.BlockBranch
			if s.Loop {
				kind = uir.BlockLoop
			}
			ops = append(ops, &uir.Block{Kind: kind, Condition: s.Condition, Body: body})
		}
	}
	return ops, nil
}

// noteLoopVar records the iteration variable of a for block so indexed
// references through it resolve during body lowering.
func (l *callLowerer) noteLoopVar(s *BlockStmt) string {
	if !s.Loop {
		return ""
	}
	parts := strings.SplitN(s.Condition, " in ", 2)
	if len(parts) != 2 {
		return ""
	}
	name := strings.TrimSpace(parts[0])
	if name == "" || l.loopVars[name] {
		return ""
	}
	l.loopVars[name] = true
	return name
}

func (l *callLowerer) lowerCall(c *Call) ([]uir.Operation, error) {
	name := c.Name
	switch strings.ToLower(name) {
	case "measure":
		return l.lowerMeasure(c)
	case "measure_all":
		return l.lowerMeasureAll(c)
	case "barrier":
		return l.lowerBarrier(c)
	}
	if nonGateMethods[name] {
		return nil, nil
	}

	spec, ok := gates.Resolve(name)
	if !ok {
		return nil, errors.NewUnknownGate(name, c.Line)
	}

	if len(c.Args) < spec.Params {
		return nil, errors.NewParse(c.Line, 0,
			fmt.Sprintf("gate %s takes %d parameter(s), got %d arguments", name, spec.Params, len(c.Args)))
	}
	params := make([]float64, spec.Params)
	for i := 0; i < spec.Params; i++ {
		v, err := frontend.EvalParam(c.Args[i])
		if err != nil {
			return nil, errors.NewParse(c.Line, 0, fmt.Sprintf("bad parameter %q: %v", c.Args[i], err))
		}
		params[i] = v
	}

	qubitArgs := c.Args[spec.Params:]
	if len(qubitArgs) != spec.Qubits {
		return nil, errors.NewParse(c.Line, 0,
			fmt.Sprintf("gate %s takes %d qubit(s), got %d", name, spec.Qubits, len(qubitArgs)))
	}

	span, err := l.broadcastSpan(qubitArgs, c.Line)
	if err != nil {
		return nil, err
	}

	var ops []uir.Operation
	for i := 0; i < span; i++ {
		operands := make([]int, len(qubitArgs))
		for j, arg := range qubitArgs {
			idx, err := l.resolveQubit(arg, i, c.Line)
			if err != nil {
				return nil, err
			}
			operands[j] = idx
		}
		ops = append(ops, &uir.Gate{
			Name:     spec.Name,
			Controls: operands[:spec.Controls],
			Targets:  operands[spec.Controls:],
			Params:   params,
		})
	}
	return ops, nil
}

func (l *callLowerer) lowerMeasure(c *Call) ([]uir.Operation, error) {
	if l.tag == TagCirq {
		// cirq.measure(q[0], q[1], key='m') — every qubit argument gets the
		// next bit of the implicit register.
		var ops []uir.Operation
		for _, arg := range c.Args {
			if strings.Contains(arg, "key=") {
				continue
			}
			for _, q := range l.expandQubitArg(arg, c.Line) {
				ops = append(ops, &uir.Measure{Qubit: q, Bit: l.implicitBits})
				l.implicitBits++
			}
		}
		return ops, nil
	}

	if len(c.Args) != 2 {
		return nil, errors.NewParse(c.Line, 0,
			fmt.Sprintf("measure takes 2 arguments, got %d", len(c.Args)))
	}
	qubits, err := l.measureOperands(c.Args[0], c.Line, true)
	if err != nil {
		return nil, err
	}
	bits, err := l.measureOperands(c.Args[1], c.Line, false)
	if err != nil {
		return nil, err
	}
	if len(qubits) != len(bits) {
		return nil, errors.NewParse(c.Line, 0,
			fmt.Sprintf("measure operand counts differ: %d qubits, %d bits", len(qubits), len(bits)))
	}
	ops := make([]uir.Operation, len(qubits))
	for i := range qubits {
		ops[i] = &uir.Measure{Qubit: qubits[i], Bit: bits[i]}
	}
	return ops, nil
}

func (l *callLowerer) lowerMeasureAll(c *Call) ([]uir.Operation, error) {
	if l.bits < l.qubits {
		// measure_all appends its own classical register in Qiskit.
		grow := l.qubits - l.bits
		l.cOffsets["meas"] = l.bits
		l.cSizes["meas"] = grow
		l.bits += grow
		l.program.Classical = append(l.program.Classical, uir.Register{Name: "meas", Size: grow})
	}
	ops := make([]uir.Operation, l.qubits)
	for i := 0; i < l.qubits; i++ {
		ops[i] = &uir.Measure{Qubit: i, Bit: i}
	}
	return ops, nil
}

func (l *callLowerer) lowerBarrier(c *Call) ([]uir.Operation, error) {
	if len(c.Args) == 0 {
		qubits := make([]int, l.qubits)
		for i := range qubits {
			qubits[i] = i
		}
		return []uir.Operation{&uir.Barrier{Qubits: qubits}}, nil
	}
	var qubits []int
	for _, arg := range c.Args {
		idx, err := l.resolveQubit(arg, 0, c.Line)
		if err != nil {
			return nil, err
		}
		qubits = append(qubits, idx)
	}
	return []uir.Operation{&uir.Barrier{Qubits: qubits}}, nil
}

// measureOperands expands a measure argument: an index, a register name, or
// a [0, 1] list.
func (l *callLowerer) measureOperands(arg string, line int, quantum bool) ([]int, error) {
	arg = strings.TrimSpace(arg)
	if strings.HasPrefix(arg, "[") && strings.HasSuffix(arg, "]") {
		var out []int
		for _, item := range splitArgs(arg[1 : len(arg)-1]) {
			idx, err := l.resolveWire(item, line, quantum)
			if err != nil {
				return nil, err
			}
			out = append(out, idx)
		}
		return out, nil
	}

	sizes, offsets := l.qSizes, l.qOffsets
	if !quantum {
		sizes, offsets = l.cSizes, l.cOffsets
	}
	if size, ok := sizes[arg]; ok {
		out := make([]int, size)
		for i := range out {
			out[i] = offsets[arg] + i
		}
		return out, nil
	}

	idx, err := l.resolveWire(arg, line, quantum)
	if err != nil {
		return nil, err
	}
	return []int{idx}, nil
}

// expandQubitArg resolves a cirq qubit argument, expanding *register and
// whole-register forms. Unresolvable arguments are skipped.
func (l *callLowerer) expandQubitArg(arg string, line int) []int {
	arg = strings.TrimSpace(strings.TrimPrefix(arg, "*"))
	if size, ok := l.qSizes[arg]; ok {
		out := make([]int, size)
		for i := range out {
			out[i] = l.qOffsets[arg] + i
		}
		return out
	}
	if idx, err := l.resolveQubit(arg, 0, line); err == nil {
		return []int{idx}
	}
	return nil
}

func (l *callLowerer) broadcastSpan(args []string, line int) (int, error) {
	span := 1
	for _, arg := range args {
		size, ok := l.qSizes[strings.TrimSpace(arg)]
		if !ok {
			continue
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

// resolveQubit maps a qubit argument to its flat index. Accepted forms:
// an integer, name[index], a bare register name (broadcast), or an index
// expression through a loop variable (statically unresolvable, pinned to
// the first iteration).
func (l *callLowerer) resolveQubit(arg string, broadcast, line int) (int, error) {
	arg = strings.TrimSpace(arg)

	if size, ok := l.qSizes[arg]; ok {
		if broadcast >= size {
			return 0, errors.NewRegisterBounds(arg, broadcast, size, line)
		}
		return l.qOffsets[arg] + broadcast, nil
	}
	return l.resolveWire(arg, line, true)
}

// resolveWire resolves an integer or name[index] reference against the
// quantum or classical layout.
func (l *callLowerer) resolveWire(arg string, line int, quantum bool) (int, error) {
	arg = strings.TrimSpace(arg)
	total, sizes, offsets := l.qubits, l.qSizes, l.qOffsets
	kind := "qubit"
	if !quantum {
		total, sizes, offsets = l.bits, l.cSizes, l.cOffsets
		kind = "bit"
	}

	if n, err := strconv.Atoi(arg); err == nil {
		if n < 0 || n >= total {
			return 0, errors.NewRegisterBounds(l.flatName(quantum), n, total, line)
		}
		return n, nil
	}

	if open := strings.Index(arg, "["); open > 0 && strings.HasSuffix(arg, "]") {
		reg := strings.TrimSpace(arg[:open])
		idxText := strings.TrimSpace(arg[open+1 : len(arg)-1])
		size, ok := sizes[reg]
		if !ok {
			return 0, errors.NewParse(line, 0, fmt.Sprintf("undeclared register %q", reg))
		}
		idx, err := strconv.Atoi(idxText)
		if err != nil {
			if l.loopVars[idxText] || l.looksSymbolic(idxText) {
				// Index through a loop variable: statically unresolvable,
				// pinned to the first iteration.
				idx = 0
			} else {
				return 0, errors.NewParse(line, 0, fmt.Sprintf("bad %s index %q", kind, idxText))
			}
		}
		if idx < 0 || idx >= size {
			return 0, errors.NewRegisterBounds(reg, idx, size, line)
		}
		return offsets[reg] + idx, nil
	}

	if l.loopVars[arg] || l.looksSymbolic(arg) {
		// Bare loop-variable reference, e.g. qc.h(i): pinned to the first
		// iteration like indexed forms.
		return 0, nil
	}
	return 0, errors.NewParse(line, 0, fmt.Sprintf("cannot resolve %s reference %q", kind, arg))
}

// looksSymbolic reports whether an index expression involves identifiers,
// e.g. i+1 inside a loop body.
func (l *callLowerer) looksSymbolic(s string) bool {
	for name := range l.loopVars {
		if strings.Contains(s, name) {
			return true
		}
	}
	return false
}

func (l *callLowerer) flatName(quantum bool) string {
	if quantum {
		if len(l.program.Quantum) == 1 {
			return l.program.Quantum[0].Name
		}
		return "q"
	}
	if len(l.program.Classical) == 1 {
		return l.program.Classical[0].Name
	}
	return "c"
}
