// Package qcall implements the gate-call-sequence front-end for
// circuit-builder dialects: Qiskit-style and Cirq-style Python programs that
// construct a circuit through method calls. The parser is line-oriented with
// indentation-delimited for/if blocks; everything that is not a register
// declaration, a gate call, a measurement, or control flow is host-language
// scaffolding and is skipped.
package qcall

// File is the parse tree for a gate-call program.
type File struct {
	Tag   string
	Stmts []Stmt
}

// Dialect identifies the tree for the frontend.AST contract.
func (f *File) Dialect() string { return f.Tag }

// Stmt is the closed set of gate-call statement variants.
type Stmt interface {
	stmtLine() int
}

// RegDecl declares a quantum or classical register. Alias carries the
// assignment variable when it differs from the register's own name, so
// qr = QuantumRegister(2, 'q') resolves through either spelling.
type RegDecl struct {
	Line    int
	Name    string
	Alias   string
	Size    int
	Quantum bool
}

// Call is a gate, measure, or barrier invocation with raw argument text.
type Call struct {
	Line int
	Name string
	Args []string
}

// BlockStmt is a for/if/while block with its indented body.
type BlockStmt struct {
	Line      int
	Loop      bool
	Condition string
	Body      []Stmt
}

func (s *RegDecl) stmtLine() int   { return s.Line }
func (s *Call) stmtLine() int      { return s.Line }
func (s *BlockStmt) stmtLine() int { return s.Line }
