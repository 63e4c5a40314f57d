// Package qprog implements the structured-program front-end for Q#-style
// sources: namespaces and operations containing qubit allocations, gate
// applications with functors, measurements, and brace-delimited control
// flow. Host-language statements that do not touch qubits are skipped.
package qprog

// File is the parse tree for a structured quantum program.
type File struct {
	Stmts []Stmt
}

// Dialect identifies the tree for the frontend.AST contract.
func (f *File) Dialect() string { return DialectTag }

// Stmt is the closed set of structured-program statement variants.
type Stmt interface {
	stmtLine() int
}

// AllocDecl allocates a qubit register (use q = Qubit[n]).
type AllocDecl struct {
	Line int
	Name string
	Size int
}

// Apply is a gate application, possibly through the Controlled or Adjoint
// functor. Controls holds the raw text of the control-list argument when the
// Controlled functor was used.
type Apply struct {
	Line     int
	Name     string
	Args     []string
	Controls []string
}

// MeasureStmt measures one or more qubits.
type MeasureStmt struct {
	Line   int
	Qubits []string
	Reset  bool
}

// ResetStmt resets one qubit or a whole register.
type ResetStmt struct {
	Line int
	Arg  string
	All  bool
}

// BlockStmt is a for/if/repeat block with its brace-delimited body.
type BlockStmt struct {
	Line      int
	Loop      bool
	Condition string
	Body      []Stmt
}

func (s *AllocDecl) stmtLine() int   { return s.Line }
func (s *Apply) stmtLine() int       { return s.Line }
func (s *MeasureStmt) stmtLine() int { return s.Line }
func (s *ResetStmt) stmtLine() int   { return s.Line }
func (s *BlockStmt) stmtLine() int   { return s.Line }
