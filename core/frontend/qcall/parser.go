package qcall

import (
	stderrors "errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/frontend"
	"github.com/circuitlens/circuitlens/core/uir"
)

// Dialect tags served by this front-end family.
const (
	TagQiskit = "qiskit"
	TagCirq   = "cirq"
)

func init() {
	frontend.Register(&FrontEnd{tag: TagQiskit})
	frontend.Register(&FrontEnd{tag: TagCirq})
}

// FrontEnd parses one gate-call dialect flavor, selected by tag.
type FrontEnd struct {
	tag string
}

// Name returns the dialect tag.
func (f *FrontEnd) Name() string { return f.tag }

var (
	qregRe    = regexp.MustCompile(`QuantumRegister\s*\(\s*(\d+)\s*(?:,\s*['"](\w+)['"]\s*)?\)`)
	cregRe    = regexp.MustCompile(`ClassicalRegister\s*\(\s*(\d+)\s*(?:,\s*['"](\w+)['"]\s*)?\)`)
	circuitRe = regexp.MustCompile(`QuantumCircuit\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)`)
	methodRe  = regexp.MustCompile(`^\s*\w+\.(\w+)\s*\((.*)\)\s*$`)

	lineQubitRe = regexp.MustCompile(`cirq\.LineQubit\.range\s*\(\s*(\d+)\s*\)`)
	gridQubitRe = regexp.MustCompile(`cirq\.GridQubit\.rect\s*\(\s*(\d+)\s*,\s*(\d+)\s*\)`)
	cirqCallRe  = regexp.MustCompile(`cirq\.(\w+)\s*\(([^()]*(?:\([^()]*\)[^()]*)*)\)(?:\.on\s*\(([^()]*)\))?`)

	forRe   = regexp.MustCompile(`^\s*for\s+(.+?)\s*:\s*$`)
	ifRe    = regexp.MustCompile(`^\s*(?:if|elif)\s+(.+?)\s*:\s*$`)
	whileRe = regexp.MustCompile(`^\s*while\s+(.+?)\s*:\s*$`)
)

type scanLine struct {
	number int
	indent int
	text   string
}

// Parse scans the source into statements. Host-language statements that do
// not touch the circuit are skipped; structural problems (bad register
// sizes, inconsistent indentation) produce ParseErrors.
func (f *FrontEnd) Parse(source string) (frontend.AST, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.NewParse(1, 1, "empty source")
	}

	var lines []scanLine
	for i, raw := range strings.Split(source, "\n") {
		text := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimLeft(text, " \t")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, scanLine{
			number: i + 1,
			indent: len(text) - len(trimmed),
			text:   trimmed,
		})
	}

	stmts, rest, err := f.parseBlock(lines, 0)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, errors.NewParse(rest[0].number, 0, "unexpected indentation")
	}
	return &File{Tag: f.tag, Stmts: stmts}, nil
}

// parseBlock consumes lines at or above the given indent level, recursing
// for for/if/while bodies. Returns the statements and the unconsumed tail.
func (f *FrontEnd) parseBlock(lines []scanLine, indent int) ([]Stmt, []scanLine, error) {
	var stmts []Stmt
	for len(lines) > 0 {
		line := lines[0]
		if line.indent < indent {
			return stmts, lines, nil
		}
		lines = lines[1:]

		if m := forRe.FindStringSubmatch(line.text); m != nil {
			body, rest, err := f.parseBlock(lines, line.indent+1)
			if err != nil {
				return nil, nil, err
			}
			stmts = append(stmts, &BlockStmt{Line: line.number, Loop: true, Condition: m[1], Body: body})
			lines = rest
			continue
		}
		if m := whileRe.FindStringSubmatch(line.text); m != nil {
			body, rest, err := f.parseBlock(lines, line.indent+1)
			if err != nil {
				return nil, nil, err
			}
			stmts = append(stmts, &BlockStmt{Line: line.number, Loop: true, Condition: m[1], Body: body})
			lines = rest
			continue
		}
		if m := ifRe.FindStringSubmatch(line.text); m != nil {
			body, rest, err := f.parseBlock(lines, line.indent+1)
			if err != nil {
				return nil, nil, err
			}
			stmts = append(stmts, &BlockStmt{Line: line.number, Loop: false, Condition: m[1], Body: body})
			lines = rest
			continue
		}
		if line.text == "else:" || strings.HasPrefix(line.text, "else") && strings.HasSuffix(line.text, ":") {
			body, rest, err := f.parseBlock(lines, line.indent+1)
			if err != nil {
				return nil, nil, err
			}
			stmts = append(stmts, &BlockStmt{Line: line.number, Loop: false, Condition: "else", Body: body})
			lines = rest
			continue
		}

		parsed, err := f.parseSimple(line)
		if err != nil {
			return nil, nil, err
		}
		stmts = append(stmts, parsed...)
	}
	return stmts, nil, nil
}

// parseSimple extracts register declarations and calls from one line. A line
// may contribute several statements (QuantumCircuit declares two registers;
// a Cirq line may contain several gate constructors).
func (f *FrontEnd) parseSimple(line scanLine) ([]Stmt, error) {
	if f.tag == TagCirq {
		return f.parseCirqLine(line)
	}
	return f.parseQiskitLine(line)
}

func (f *FrontEnd) parseQiskitLine(line scanLine) ([]Stmt, error) {
	var stmts []Stmt

	if m := qregRe.FindStringSubmatch(line.text); m != nil {
		size, name := mustAtoi(m[1]), m[2]
		if name == "" {
			name = "q"
		}
		stmts = append(stmts, &RegDecl{Line: line.number, Name: name, Alias: assignTarget(line.text), Size: size, Quantum: true})
	}
	if m := cregRe.FindStringSubmatch(line.text); m != nil {
		size, name := mustAtoi(m[1]), m[2]
		if name == "" {
			name = "c"
		}
		stmts = append(stmts, &RegDecl{Line: line.number, Name: name, Alias: assignTarget(line.text), Size: size, Quantum: false})
	}
	if m := circuitRe.FindStringSubmatch(line.text); m != nil {
		stmts = append(stmts, &RegDecl{Line: line.number, Name: "q", Size: mustAtoi(m[1]), Quantum: true})
		if m[2] != "" {
			stmts = append(stmts, &RegDecl{Line: line.number, Name: "c", Size: mustAtoi(m[2]), Quantum: false})
		}
	}
	if len(stmts) > 0 {
		return stmts, nil
	}

	if m := methodRe.FindStringSubmatch(line.text); m != nil {
		return []Stmt{&Call{Line: line.number, Name: m[1], Args: splitArgs(m[2])}}, nil
	}
	return nil, nil
}

func (f *FrontEnd) parseCirqLine(line scanLine) ([]Stmt, error) {
	var stmts []Stmt

	if m := lineQubitRe.FindStringSubmatch(line.text); m != nil {
		name := "q"
		if v := assignTarget(line.text); v != "" {
			name = v
		}
		return []Stmt{&RegDecl{Line: line.number, Name: name, Size: mustAtoi(m[1]), Quantum: true}}, nil
	}
	if m := gridQubitRe.FindStringSubmatch(line.text); m != nil {
		name := "q"
		if v := assignTarget(line.text); v != "" {
			name = v
		}
		return []Stmt{&RegDecl{Line: line.number, Name: name, Size: mustAtoi(m[1]) * mustAtoi(m[2]), Quantum: true}}, nil
	}

	for _, m := range cirqCallRe.FindAllStringSubmatch(line.text, -1) {
		name := m[1]
		// Skip circuit scaffolding constructors.
		switch name {
		case "Circuit", "Simulator", "LineQubit", "GridQubit", "NamedQubit":
			continue
		}
		args := splitArgs(m[2])
		if m[3] != "" {
			// Parameterized form: cirq.rx(0.5).on(q[0]) — parameters come
			// from the constructor, operands from .on().
			args = append(args, splitArgs(m[3])...)
		}
		stmts = append(stmts, &Call{Line: line.number, Name: name, Args: args})
	}
	return stmts, nil
}

// splitArgs splits a call argument list at top-level commas, tolerating
// nested brackets and parens.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var args []string
	depth := 0
	start := 0
	for i, c := range s {
		switch c {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(s[start:]))
	return args
}

var identRe = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// assignTarget extracts the variable a constructor is assigned to, if any.
func assignTarget(text string) string {
	eq := strings.Index(text, "=")
	if eq <= 0 {
		return ""
	}
	name := strings.TrimSpace(text[:eq])
	if !identRe.MatchString(name) {
		return ""
	}
	return name
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Lower converts a parsed gate-call program into the UIR.
func (f *FrontEnd) Lower(ast frontend.AST) (*uir.Program, error) {
	file, ok := ast.(*File)
	if !ok || file.Tag != f.tag {
		return nil, errors.NewInternal("lower", stderrors.New("qcall: wrong AST type"))
	}
	return lower(file)
}
