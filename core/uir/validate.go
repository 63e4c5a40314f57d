package uir

import (
	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/gates"
)

// Validate checks the structural invariants of a lowered program: every
// referenced index lies within its register's declared size and every gate
// name resolves through the canonical table. Front-ends enforce both during
// lowering; Validate is the backstop that keeps the invariants checkable
// independently of any front-end.
func Validate(p *Program) []error {
	var errs []error
	qubits := p.QubitCount()
	bits := p.BitCount()
	validateOps(p, p.Ops, qubits, bits, &errs)
	return errs
}

func validateOps(p *Program, ops []Operation, qubits, bits int, errs *[]error) {
	for _, op := range ops {
		switch o := op.(type) {
		case *Gate:
			if _, ok := gates.Canonical(o.Name); !ok {
				*errs = append(*errs, errors.NewUnknownGate(o.Name, 0))
			}
			for _, q := range append(append([]int{}, o.Controls...), o.Targets...) {
				if q < 0 || q >= qubits {
					*errs = append(*errs, qubitBoundsError(p, q, qubits))
				}
			}
		case *Measure:
			if o.Qubit < 0 || o.Qubit >= qubits {
				*errs = append(*errs, qubitBoundsError(p, o.Qubit, qubits))
			}
			if o.Bit < 0 || o.Bit >= bits {
				*errs = append(*errs, bitBoundsError(p, o.Bit, bits))
			}
		case *Barrier:
			for _, q := range o.Qubits {
				if q < 0 || q >= qubits {
					*errs = append(*errs, qubitBoundsError(p, q, qubits))
				}
			}
		case *Block:
			validateOps(p, o.Body, qubits, bits, errs)
		}
	}
}

// An out-of-range flat index belongs to no declared register, so the error
// names the combined wire space of the relevant kind.
func qubitBoundsError(p *Program, index, total int) error {
	name := "q"
	if len(p.Quantum) == 1 {
		name = p.Quantum[0].Name
	}
	return errors.NewRegisterBounds(name, index, total, 0)
}

func bitBoundsError(p *Program, index, total int) error {
	name := "c"
	if len(p.Classical) == 1 {
		name = p.Classical[0].Name
	}
	return errors.NewRegisterBounds(name, index, total, 0)
}
