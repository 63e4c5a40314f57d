package qprog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/frontend"
	"github.com/circuitlens/circuitlens/core/gates"
	"github.com/circuitlens/circuitlens/core/uir"
)

// intrinsics that take no qubits and lower to nothing.
var hostIntrinsics = map[string]bool{
	"Message": true, "DumpMachine": true, "DumpRegister": true,
	"Fact": true, "AssertMeasurement": true, "Length": true,
}

// controlledForms maps a canonical gate to its one-more-control canonical
// form, for the Controlled functor.
var controlledForms = map[string]string{
	"X": "CX", "Y": "CY", "Z": "CZ", "H": "CH", "SWAP": "CSWAP",
	"RX": "CRX", "RY": "CRY", "RZ": "CRZ", "U1": "CU1", "U3": "CU3",
	"CX": "CCX",
}

type progLowerer struct {
	program  *uir.Program
	offsets  map[string]int
	sizes    map[string]int
	qubits   int
	loopVars map[string]bool
	// measurement results land in one implicit classical register.
	resultBits int
}

func lower(file *File) (*uir.Program, error) {
	l := &progLowerer{
		program:  &uir.Program{Dialect: DialectTag},
		offsets:  make(map[string]int),
		sizes:    make(map[string]int),
		loopVars: make(map[string]bool),
	}

	if err := l.collectAllocs(file.Stmts); err != nil {
		return nil, err
	}

	ops, err := l.lowerStmts(file.Stmts)
	if err != nil {
		return nil, err
	}
	l.program.Ops = ops

	if l.resultBits > 0 {
		l.program.Classical = append(l.program.Classical, uir.Register{Name: "r", Size: l.resultBits})
	}
	return l.program, nil
}

func (l *progLowerer) collectAllocs(stmts []Stmt) error {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *AllocDecl:
			if err := l.declare(s); err != nil {
				return err
			}
		case *BlockStmt:
			if err := l.collectAllocs(s.Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *progLowerer) declare(d *AllocDecl) error {
	if d.Size <= 0 {
		return errors.NewParse(d.Line, 0, fmt.Sprintf("allocation %q has invalid size %d", d.Name, d.Size))
	}
	if _, exists := l.offsets[d.Name]; exists {
		return nil
	}
	l.offsets[d.Name] = l.qubits
	l.sizes[d.Name] = d.Size
	l.qubits += d.Size
	l.program.Quantum = append(l.program.Quantum, uir.Register{Name: d.Name, Size: d.Size})
	return nil
}

func (l *progLowerer) lowerStmts(stmts []Stmt) ([]uir.Operation, error) {
	var ops []uir.Operation
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *AllocDecl:
			// handled in the first pass
		case *Apply:
			lowered, err := l.lowerApply(s)
			if err != nil {
				return nil, err
			}
			ops = append(ops, lowered...)
		case *MeasureStmt:
			lowered, err := l.lowerMeasure(s)
			if err != nil {
				return nil, err
			}
			ops = append(ops, lowered...)
		case *ResetStmt:
			lowered, err := l.lowerReset(s)
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

func (l *progLowerer) noteLoopVar(s *BlockStmt) string {
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

func (l *progLowerer) lowerApply(a *Apply) ([]uir.Operation, error) {
	name := a.Name
	if hostIntrinsics[name] {
		return nil, nil
	}
	if name == "ApplyToEach" || name == "ApplyToEachA" || name == "ApplyToEachC" {
		return l.lowerApplyToEach(a)
	}

	spec, ok := gates.Resolve(name)
	if !ok {
		return nil, errors.NewUnknownGate(name, a.Line)
	}

	if len(a.Controls) > 0 {
		lifted, ok := controlledForms[spec.Name]
		if !ok {
			return nil, errors.NewUnknownGate("Controlled "+name, a.Line)
		}
		if len(a.Controls) > 1 {
			lifted, ok = controlledForms[lifted]
			if !ok || len(a.Controls) > 2 {
				return nil, errors.NewUnknownGate("Controlled "+name, a.Line)
			}
		}
		spec, _ = gates.Resolve(lifted)
	}

	if len(a.Args) < spec.Params {
		return nil, errors.NewParse(a.Line, 0,
			fmt.Sprintf("gate %s takes %d parameter(s), got %d arguments", name, spec.Params, len(a.Args)))
	}
	params := make([]float64, spec.Params)
	for i := 0; i < spec.Params; i++ {
		v, err := frontend.EvalParam(a.Args[i])
		if err != nil {
			return nil, errors.NewParse(a.Line, 0, fmt.Sprintf("bad parameter %q: %v", a.Args[i], err))
		}
		params[i] = v
	}

	qubitArgs := append(append([]string{}, a.Controls...), a.Args[spec.Params:]...)
	if len(qubitArgs) != spec.Qubits {
		return nil, errors.NewParse(a.Line, 0,
			fmt.Sprintf("gate %s takes %d qubit(s), got %d", spec.Name, spec.Qubits, len(qubitArgs)))
	}

	span, err := l.broadcastSpan(qubitArgs, a.Line)
	if err != nil {
		return nil, err
	}

	var ops []uir.Operation
	for i := 0; i < span; i++ {
		operands := make([]int, len(qubitArgs))
		for j, arg := range qubitArgs {
			idx, err := l.resolveQubit(arg, i, a.Line)
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

// lowerApplyToEach broadcasts ApplyToEach(H, register).
func (l *progLowerer) lowerApplyToEach(a *Apply) ([]uir.Operation, error) {
	if len(a.Args) != 2 {
		return nil, errors.NewParse(a.Line, 0, "ApplyToEach takes a gate and a register")
	}
	spec, ok := gates.Resolve(strings.TrimSpace(a.Args[0]))
	if !ok {
		return nil, errors.NewUnknownGate(a.Args[0], a.Line)
	}
	if spec.Qubits != 1 {
		return nil, errors.NewParse(a.Line, 0,
			fmt.Sprintf("ApplyToEach needs a single-qubit gate, %s takes %d", spec.Name, spec.Qubits))
	}
	reg := strings.TrimSpace(a.Args[1])
	size, ok := l.sizes[reg]
	if !ok {
		return nil, errors.NewParse(a.Line, 0, fmt.Sprintf("undeclared register %q", reg))
	}
	ops := make([]uir.Operation, size)
	for i := 0; i < size; i++ {
		ops[i] = &uir.Gate{Name: spec.Name, Targets: []int{l.offsets[reg] + i}}
	}
	return ops, nil
}

func (l *progLowerer) lowerMeasure(m *MeasureStmt) ([]uir.Operation, error) {
	var ops []uir.Operation
	for _, ref := range m.Qubits {
		for _, q := range l.expandQubitArg(ref, m.Line) {
			ops = append(ops, &uir.Measure{Qubit: q, Bit: l.resultBits})
			l.resultBits++
			if m.Reset {
				ops = append(ops, &uir.Gate{Name: "RESET", Targets: []int{q}})
			}
		}
	}
	if len(ops) == 0 {
		return nil, errors.NewParse(m.Line, 0, "measurement references no known qubit")
	}
	return ops, nil
}

func (l *progLowerer) lowerReset(r *ResetStmt) ([]uir.Operation, error) {
	arg := strings.TrimSpace(r.Arg)
	if r.All {
		size, ok := l.sizes[arg]
		if !ok {
			return nil, errors.NewParse(r.Line, 0, fmt.Sprintf("undeclared register %q", arg))
		}
		ops := make([]uir.Operation, size)
		for i := 0; i < size; i++ {
			ops[i] = &uir.Gate{Name: "RESET", Targets: []int{l.offsets[arg] + i}}
		}
		return ops, nil
	}
	q, err := l.resolveQubit(arg, 0, r.Line)
	if err != nil {
		return nil, err
	}
	return []uir.Operation{&uir.Gate{Name: "RESET", Targets: []int{q}}}, nil
}

func (l *progLowerer) expandQubitArg(arg string, line int) []int {
	arg = strings.TrimSpace(arg)
	if size, ok := l.sizes[arg]; ok {
		out := make([]int, size)
		for i := range out {
			out[i] = l.offsets[arg] + i
		}
		return out
	}
	if idx, err := l.resolveQubit(arg, 0, line); err == nil {
		return []int{idx}
	}
	return nil
}

func (l *progLowerer) broadcastSpan(args []string, line int) (int, error) {
	span := 1
	for _, arg := range args {
		size, ok := l.sizes[strings.TrimSpace(arg)]
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

func (l *progLowerer) resolveQubit(arg string, broadcast, line int) (int, error) {
	arg = strings.TrimSpace(arg)

	if size, ok := l.sizes[arg]; ok {
		if broadcast >= size {
			return 0, errors.NewRegisterBounds(arg, broadcast, size, line)
		}
		return l.offsets[arg] + broadcast, nil
	}

	if open := strings.Index(arg, "["); open > 0 && strings.HasSuffix(arg, "]") {
		reg := strings.TrimSpace(arg[:open])
		idxText := strings.TrimSpace(arg[open+1 : len(arg)-1])
		size, ok := l.sizes[reg]
		if !ok {
			return 0, errors.NewParse(line, 0, fmt.Sprintf("undeclared register %q", reg))
		}
		idx, err := strconv.Atoi(idxText)
		if err != nil {
			if l.loopVars[idxText] || l.looksSymbolic(idxText) {
				idx = 0
			} else {
				return 0, errors.NewParse(line, 0, fmt.Sprintf("bad qubit index %q", idxText))
			}
		}
		if idx < 0 || idx >= size {
			return 0, errors.NewRegisterBounds(reg, idx, size, line)
		}
		return l.offsets[reg] + idx, nil
	}

	if l.loopVars[arg] || l.looksSymbolic(arg) {
		return 0, nil
	}
	return 0, errors.NewParse(line, 0, fmt.Sprintf("cannot resolve qubit reference %q", arg))
}

func (l *progLowerer) looksSymbolic(s string) bool {
	for name := range l.loopVars {
		if strings.Contains(s, name) {
			return true
		}
	}
	return false
}
