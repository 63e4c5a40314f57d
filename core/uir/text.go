package uir

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders a program in its canonical textual form: an OpenQASM 2.0
// compatible listing with canonical gate spellings. Re-lowering the output
// through the OpenQASM front-end yields an operationally equivalent program
// for any block-free circuit. Blocks cannot be expressed in the QASM 2.0
// surface, so their bodies are emitted inline between marker comments.
func Format(p *Program) string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n")

	for _, r := range p.Quantum {
		fmt.Fprintf(&sb, "qreg %s[%d];\n", r.Name, r.Size)
	}
	for _, r := range p.Classical {
		fmt.Fprintf(&sb, "creg %s[%d];\n", r.Name, r.Size)
	}

	formatOps(&sb, p, p.Ops)
	return sb.String()
}

func formatOps(sb *strings.Builder, p *Program, ops []Operation) {
	for _, op := range ops {
		switch o := op.(type) {
		case *Gate:
			sb.WriteString(strings.ToLower(o.Name))
			if len(o.Params) > 0 {
				sb.WriteString("(")
				for i, param := range o.Params {
					if i > 0 {
						sb.WriteString(",")
					}
					sb.WriteString(formatParam(param))
				}
				sb.WriteString(")")
			}
			sb.WriteString(" ")
			operands := append(append([]int{}, o.Controls...), o.Targets...)
			for i, q := range operands {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(qubitRef(p, q))
			}
			sb.WriteString(";\n")
		case *Measure:
			fmt.Fprintf(sb, "measure %s -> %s;\n", qubitRef(p, o.Qubit), bitRef(p, o.Bit))
		case *Barrier:
			sb.WriteString("barrier ")
			for i, q := range o.Qubits {
				if i > 0 {
					sb.WriteString(",")
				}
				sb.WriteString(qubitRef(p, q))
			}
			sb.WriteString(";\n")
		case *Block:
			fmt.Fprintf(sb, "// begin %s %s\n", o.Kind, o.Condition)
			formatOps(sb, p, o.Body)
			fmt.Fprintf(sb, "// end %s\n", o.Kind)
		}
	}
}

// formatParam renders a parameter deterministically so that identical
// programs always hash identically.
func formatParam(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

func qubitRef(p *Program, index int) string {
	if name, local, ok := p.QubitRef(index); ok {
		return fmt.Sprintf("%s[%d]", name, local)
	}
	return fmt.Sprintf("q[%d]", index)
}

func bitRef(p *Program, index int) string {
	if name, local, ok := p.BitRef(index); ok {
		return fmt.Sprintf("%s[%d]", name, local)
	}
	return fmt.Sprintf("c[%d]", index)
}
