package qprog

import (
	stderrors "errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/circuitlens/circuitlens/core/errors"
	"github.com/circuitlens/circuitlens/core/frontend"
	"github.com/circuitlens/circuitlens/core/uir"
)

// DialectTag is the tag this front-end registers under.
const DialectTag = "qsharp"

func init() {
	frontend.Register(&FrontEnd{})
}

// FrontEnd parses Q#-style structured programs.
type FrontEnd struct{}

// Name returns the dialect tag.
func (f *FrontEnd) Name() string { return DialectTag }

var (
	useRe   = regexp.MustCompile(`^(?:use|borrow)\s+(\w+)\s*=\s*Qubit\s*(?:\[\s*(\d+)\s*\]|\(\s*\))\s*;$`)
	usingRe = regexp.MustCompile(`^using\s*\(\s*(\w+)\s*=\s*Qubit\s*(?:\[\s*(\d+)\s*\]|\(\s*\))\s*\)$`)
	callRe  = regexp.MustCompile(`^((?:Controlled\s+|Adjoint\s+)*)(\w+)\s*\((.*)\)\s*;$`)
	mRe     = regexp.MustCompile(`\b(M|MResetZ|MResetX|MResetY)\s*\(\s*([^()]+?)\s*\)`)
	measRe  = regexp.MustCompile(`\bMeasure\s*\(\s*\[[^\]]*\]\s*,\s*\[([^\]]*)\]\s*\)`)
	forRe   = regexp.MustCompile(`^for\s+(.+?)\s*$`)
	ifRe    = regexp.MustCompile(`^(?:if|elif)\s+(.+?)\s*$`)
	untilRe = regexp.MustCompile(`^until\s*\(?(.+?)\)?\s*;?$`)
)

// transparentHeaders open scope without circuit semantics; their bodies
// lower inline.
var transparentHeaders = []string{
	"namespace", "operation", "function", "within", "apply", "body", "adjoint", "controlled",
}

type srcLine struct {
	number int
	text   string
}

// Parse scans the brace-structured source into statements.
func (f *FrontEnd) Parse(source string) (frontend.AST, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.NewParse(1, 1, "empty source")
	}

	var lines []srcLine
	for i, raw := range strings.Split(source, "\n") {
		if idx := strings.Index(raw, "//"); idx >= 0 {
			raw = raw[:idx]
		}
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		lines = append(lines, srcLine{number: i + 1, text: text})
	}

	stmts, rest, err := f.parseStmts(lines)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, errors.NewParse(rest[0].number, 0, "unmatched closing brace")
	}
	return &File{Stmts: stmts}, nil
}

// parseStmts consumes statements until an unmatched closing brace, which is
// returned to the caller along with the unconsumed tail.
func (f *FrontEnd) parseStmts(lines []srcLine) ([]Stmt, []srcLine, error) {
	var stmts []Stmt
	for len(lines) > 0 {
		line := lines[0]

		if strings.HasPrefix(line.text, "}") {
			tail := strings.TrimSpace(line.text[1:])
			switch {
			case tail == "":
				return stmts, lines, nil
			case strings.HasPrefix(tail, "until"):
				// repeat { ... } until (cond); the enclosing parse attaches
				// the condition to the loop it just built.
				return stmts, lines, nil
			default:
				// } else { — rewrite as a fresh header line and close here.
				lines[0].text = tail
				return stmts, lines, nil
			}
		}

		lines = lines[1:]

		if strings.HasSuffix(line.text, "{") {
			header := strings.TrimSpace(strings.TrimSuffix(line.text, "{"))
			body, rest, err := f.parseStmts(lines)
			if err != nil {
				return nil, nil, err
			}
			stmt, decls, err := f.classifyHeader(line.number, header, body)
			if err != nil {
				return nil, nil, err
			}
			stmts = append(stmts, decls...)
			if stmt != nil {
				if b, ok := stmt.(*BlockStmt); ok && b.Loop && len(rest) > 0 {
					tail := strings.TrimSpace(strings.TrimPrefix(rest[0].text, "}"))
					if m := untilRe.FindStringSubmatch(tail); m != nil {
						b.Condition = m[1]
					}
				}
				stmts = append(stmts, stmt)
			} else {
				stmts = append(stmts, body...)
			}
			lines = f.consumeClose(rest)
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

// consumeClose drops the closing-brace line a nested parseStmts stopped at.
// A rewritten "} else {" line is kept for the caller's loop to handle.
func (f *FrontEnd) consumeClose(lines []srcLine) []srcLine {
	if len(lines) == 0 {
		return nil
	}
	if strings.HasPrefix(lines[0].text, "}") {
		return lines[1:]
	}
	return lines
}

// classifyHeader maps a block header to its statement. A nil statement with
// nil error means the block is transparent and its body lowers inline.
func (f *FrontEnd) classifyHeader(line int, header string, body []Stmt) (Stmt, []Stmt, error) {
	if m := forRe.FindStringSubmatch(header); m != nil {
		return &BlockStmt{Line: line, Loop: true, Condition: m[1], Body: body}, nil, nil
	}
	if strings.HasPrefix(header, "while") {
		cond := strings.TrimSpace(strings.TrimPrefix(header, "while"))
		return &BlockStmt{Line: line, Loop: true, Condition: stripParens(cond), Body: body}, nil, nil
	}
	if header == "repeat" {
		return &BlockStmt{Line: line, Loop: true, Condition: "repeat", Body: body}, nil, nil
	}
	if m := ifRe.FindStringSubmatch(header); m != nil {
		return &BlockStmt{Line: line, Loop: false, Condition: stripParens(m[1]), Body: body}, nil, nil
	}
	if header == "else" || strings.HasPrefix(header, "else") {
		return &BlockStmt{Line: line, Loop: false, Condition: "else", Body: body}, nil, nil
	}
	if m := usingRe.FindStringSubmatch(header); m != nil {
		decl := &AllocDecl{Line: line, Name: m[1], Size: usingSize(m[2])}
		return nil, []Stmt{decl}, nil
	}
	for _, kw := range transparentHeaders {
		if header == kw || strings.HasPrefix(header, kw+" ") {
			return nil, nil, nil
		}
	}
	// Unknown header: treat as transparent scope rather than failing on
	// host-language constructs.
	return nil, nil, nil
}

func (f *FrontEnd) parseSimple(line srcLine) ([]Stmt, error) {
	text := line.text

	if m := useRe.FindStringSubmatch(text); m != nil {
		return []Stmt{&AllocDecl{Line: line.number, Name: m[1], Size: usingSize(m[2])}}, nil
	}

	// Measurements may sit inside let/set/return expressions; extract them
	// wherever they appear.
	if stmts := f.extractMeasures(line); len(stmts) > 0 {
		return stmts, nil
	}

	// Remaining binding/return/fail statements are host-language only.
	switch firstWord(text) {
	case "let", "set", "mutable", "return", "fail", "import", "open":
		return nil, nil
	}

	if strings.HasPrefix(text, "Reset(") || strings.HasPrefix(text, "ResetAll(") {
		all := strings.HasPrefix(text, "ResetAll(")
		open := strings.Index(text, "(")
		end := strings.LastIndex(text, ")")
		if end <= open {
			return nil, errors.NewParse(line.number, 0, "malformed reset statement")
		}
		return []Stmt{&ResetStmt{Line: line.number, Arg: strings.TrimSpace(text[open+1 : end]), All: all}}, nil
	}

	if m := callRe.FindStringSubmatch(text); m != nil {
		return f.parseApply(line.number, m[1], m[2], m[3])
	}

	// let bindings, returns, Message calls and other host statements.
	return nil, nil
}

// extractMeasures pulls M/MResetZ/Measure calls out of a statement.
func (f *FrontEnd) extractMeasures(line srcLine) []Stmt {
	var stmts []Stmt
	for _, m := range mRe.FindAllStringSubmatch(line.text, -1) {
		stmts = append(stmts, &MeasureStmt{
			Line:   line.number,
			Qubits: []string{strings.TrimSpace(m[2])},
			Reset:  strings.HasPrefix(m[1], "MReset"),
		})
	}
	for _, m := range measRe.FindAllStringSubmatch(line.text, -1) {
		ms := &MeasureStmt{Line: line.number}
		for _, q := range splitArgs(m[1]) {
			ms.Qubits = append(ms.Qubits, q)
		}
		stmts = append(stmts, ms)
	}
	return stmts
}

// parseApply handles a gate application with optional Controlled/Adjoint
// functors. Controlled consumes a leading control-list argument; Adjoint is
// transparent for analysis purposes.
func (f *FrontEnd) parseApply(line int, functors, name, argText string) ([]Stmt, error) {
	args := splitArgs(argText)
	apply := &Apply{Line: line, Name: name, Args: args}

	if strings.Contains(functors, "Controlled") {
		if len(args) == 0 {
			return nil, errors.NewParse(line, 0, "Controlled functor needs a control list")
		}
		list := strings.TrimSpace(args[0])
		if !strings.HasPrefix(list, "[") || !strings.HasSuffix(list, "]") {
			return nil, errors.NewParse(line, 0, "Controlled functor needs a [..] control list")
		}
		apply.Controls = splitArgs(list[1 : len(list)-1])
		apply.Args = args[1:]
	}
	return []Stmt{apply}, nil
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t("); i >= 0 {
		return s[:i]
	}
	return s
}

func usingSize(s string) int {
	if s == "" {
		return 1
	}
	n, _ := strconv.Atoi(s)
	return n
}

func stripParens(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// splitArgs splits an argument list at top-level commas, tolerating nested
// brackets and parens.
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

// Lower converts a parsed structured program into the UIR.
func (f *FrontEnd) Lower(ast frontend.AST) (*uir.Program, error) {
	file, ok := ast.(*File)
	if !ok {
		return nil, errors.NewInternal("lower", stderrors.New("qprog: wrong AST type"))
	}
	return lower(file)
}
