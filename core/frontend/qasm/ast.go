// Package qasm implements the OpenQASM 2.0 dialect front-end. The grammar
// covers the statement surface of the dialect: a version header, include
// directives, qreg/creg declarations, parameterized gate invocations with
// indexed or whole-register operands, barrier, conditional statements, and
// the measure form.
package qasm

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// File is the root of the OpenQASM parse tree.
//
//nolint:govet // participle grammar tags are not standard struct tags
type File struct {
	Pos     lexer.Position
	Version *VersionStmt `@@?`
	Stmts   []*Stmt      `@@*`
}

// Dialect identifies the tree for the frontend.AST contract.
func (f *File) Dialect() string { return DialectTag }

//nolint:govet // participle grammar tags are not standard struct tags
type VersionStmt struct {
	Pos    lexer.Position
	Number string `"OPENQASM" @Number ";"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type Stmt struct {
	Pos     lexer.Position
	Include *IncludeStmt `  @@`
	QReg    *QRegDecl    `| @@`
	CReg    *CRegDecl    `| @@`
	Measure *MeasureStmt `| @@`
	Barrier *BarrierStmt `| @@`
	Cond    *CondStmt    `| @@`
	Gate    *GateStmt    `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type IncludeStmt struct {
	Pos  lexer.Position
	Name string `"include" @String ";"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type QRegDecl struct {
	Pos  lexer.Position
	Name string `"qreg" @Ident`
	Size int    `"[" @Number "]" ";"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type CRegDecl struct {
	Pos  lexer.Position
	Name string `"creg" @Ident`
	Size int    `"[" @Number "]" ";"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type MeasureStmt struct {
	Pos lexer.Position
	Src *Operand `"measure" @@`
	Dst *Operand `"->" @@ ";"`
}

//nolint:govet // participle grammar tags are not standard struct tags
type BarrierStmt struct {
	Pos  lexer.Position
	Args []*Operand `"barrier" @@ ( "," @@ )* ";"`
}

// CondStmt is the QASM 2.0 conditional: if (creg == value) qop.
//
//nolint:govet // participle grammar tags are not standard struct tags
type CondStmt struct {
	Pos     lexer.Position
	Reg     string       `"if" "(" @Ident`
	Value   int          `"==" @Number ")"`
	Gate    *GateStmt    `( @@`
	Measure *MeasureStmt `| @@ )`
}

//nolint:govet // participle grammar tags are not standard struct tags
type GateStmt struct {
	Pos    lexer.Position
	Name   string     `@Ident`
	Params []*Expr    `( "(" ( @@ ( "," @@ )* )? ")" )?`
	Args   []*Operand `@@ ( "," @@ )* ";"`
}

// Operand is a register reference, whole (q) or indexed (q[2]).
//
//nolint:govet // participle grammar tags are not standard struct tags
type Operand struct {
	Pos   lexer.Position
	Reg   string `@Ident`
	Index *int   `( "[" @Number "]" )?`
}

// Expr is a parameter expression: sums of products over numbers, pi, and
// parenthesized subexpressions.
//
//nolint:govet // participle grammar tags are not standard struct tags
type Expr struct {
	Pos  lexer.Position
	Left *Term     `@@`
	Rest []*OpTerm `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type OpTerm struct {
	Op   string `@( "+" | "-" )`
	Term *Term  `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type Term struct {
	Left *Factor     `@@`
	Rest []*OpFactor `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type OpFactor struct {
	Op     string  `@( "*" | "/" )`
	Factor *Factor `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type Factor struct {
	Pos lexer.Position
	Neg *Factor  `  "-" @@`
	Num *float64 `| @Number`
	Pi  bool     `| @"pi"`
	Sub *Expr    `| "(" @@ ")"`
}

// qasmLexer tokenizes the OpenQASM surface. Comments begin with // and are
// elided along with whitespace.
var qasmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Eq", Pattern: `==`},
	{Name: "Punct", Pattern: `[\[\](){};,+\-*/]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// fileParser is the participle parser for complete OpenQASM files.
var fileParser = participle.MustBuild[File](
	participle.Lexer(qasmLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)
