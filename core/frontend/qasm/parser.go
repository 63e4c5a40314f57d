package qasm

import (
	stderrors "errors"
	"math"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/frontend"
	"github.com/circuitlens/circuitlens/core/uir"
)

// DialectTag is the registry tag for the OpenQASM 2.0 front-end.
const DialectTag = "openqasm"

func init() {
	frontend.Register(&FrontEnd{})
}

// FrontEnd parses and lowers OpenQASM 2.0 source.
type FrontEnd struct{}

// Name returns the dialect tag.
func (f *FrontEnd) Name() string { return DialectTag }

// Parse turns OpenQASM source text into its parse tree. Parse errors carry
// the line and column of the first offending token.
func (f *FrontEnd) Parse(source string) (frontend.AST, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.NewParse(1, 1, "empty source")
	}
	file, err := fileParser.ParseString("", source)
	if err != nil {
		return nil, toParseError(err)
	}
	return file, nil
}

// Lower converts a parsed OpenQASM file into the UIR.
func (f *FrontEnd) Lower(ast frontend.AST) (*uir.Program, error) {
	file, ok := ast.(*File)
	if !ok {
		return nil, errors.NewInternal("lower", stderrors.New("qasm: wrong AST type"))
	}
	return lower(file)
}

// toParseError converts participle and lexer failures into the structured
// ParseError taxonomy.
func toParseError(err error) error {
	var perr participle.Error
	if stderrors.As(err, &perr) {
		pos := perr.Position()
		return errors.NewParse(pos.Line, pos.Column, perr.Message())
	}
	return errors.NewParse(0, 0, err.Error())
}

// Eval evaluates a parameter expression tree to a float64.
func (e *Expr) Eval() float64 {
	v := e.Left.eval()
	for _, ot := range e.Rest {
		switch ot.Op {
		case "+":
			v += ot.Term.eval()
		case "-":
			v -= ot.Term.eval()
		}
	}
	return v
}

func (t *Term) eval() float64 {
	v := t.Left.eval()
	for _, of := range t.Rest {
		switch of.Op {
		case "*":
			v *= of.Factor.eval()
		case "/":
			v /= of.Factor.eval()
		}
	}
	return v
}

func (f *Factor) eval() float64 {
	switch {
	case f.Neg != nil:
		return -f.Neg.eval()
	case f.Num != nil:
		return *f.Num
	case f.Pi:
		return math.Pi
	case f.Sub != nil:
		return f.Sub.Eval()
	}
	return 0
}
