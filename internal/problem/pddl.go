package problem

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// PDDLSource reads PDDL problem files restricted to the blocks domain:
//
//	(define (problem name) (:domain blocks)
//	  (:objects a b c - block)
//	  (:init (ontable b) (on a b) (clear a) (handempty))
//	  (:goal (and (on b a))))
//
// Keywords and names are case-insensitive; ';' starts a comment.
type PDDLSource struct{}

// NewPDDLSource returns a PDDLSource.
func NewPDDLSource() *PDDLSource { return &PDDLSource{} }

// Read implements Source.
func (s *PDDLSource) Read(_ context.Context, path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %v", ErrRead, err)}
	}
	p, err := ParsePDDL(string(data))
	if err != nil {
		return nil, withPath(path, err)
	}
	return p, nil
}

// sexpr is either an atom or a parenthesised list.
type sexpr struct {
	atom string
	list []sexpr
	leaf bool
	line int
}

func (e sexpr) String() string {
	if e.leaf {
		return e.atom
	}
	parts := make([]string, len(e.list))
	for i, c := range e.list {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// head returns the lower-cased leading atom of a list, or "".
func (e sexpr) head() string {
	if e.leaf || len(e.list) == 0 || !e.list[0].leaf {
		return ""
	}
	return e.list[0].atom
}

type token struct {
	text string
	line int
}

func tokenize(src string) []token {
	var toks []token
	line := 1
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '(' || c == ')':
			toks = append(toks, token{text: string(c), line: line})
			i++
		default:
			start := i
			for i < len(src) && !strings.ContainsRune(" \t\r\n();", rune(src[i])) {
				i++
			}
			toks = append(toks, token{text: strings.ToLower(src[start:i]), line: line})
		}
	}
	return toks
}

func syntaxErr(line int, format string, args ...any) error {
	return &LoadError{Err: fmt.Errorf("%w: line %d: %s", ErrSyntax, line, fmt.Sprintf(format, args...))}
}

// maxNesting bounds list nesting in a PDDL document.
const maxNesting = 256

// parseSexpr reads one expression starting at toks[pos]. depth is the number
// of enclosing lists.
func parseSexpr(toks []token, pos, depth int) (sexpr, int, error) {
	if pos >= len(toks) {
		last := 1
		if len(toks) > 0 {
			last = toks[len(toks)-1].line
		}
		return sexpr{}, pos, syntaxErr(last, "unexpected end of input")
	}
	t := toks[pos]
	switch t.text {
	case ")":
		return sexpr{}, pos, syntaxErr(t.line, "unexpected ')'")
	case "(":
		if depth >= maxNesting {
			return sexpr{}, pos, syntaxErr(t.line, "nesting too deep (limit %d)", maxNesting)
		}
		e := sexpr{line: t.line}
		pos++
		for {
			if pos >= len(toks) {
				return sexpr{}, pos, syntaxErr(t.line, "unclosed '('")
			}
			if toks[pos].text == ")" {
				return e, pos + 1, nil
			}
			child, next, err := parseSexpr(toks, pos, depth+1)
			if err != nil {
				return sexpr{}, pos, err
			}
			e.list = append(e.list, child)
			pos = next
		}
	default:
		return sexpr{atom: t.text, leaf: true, line: t.line}, pos + 1, nil
	}
}

// ParsePDDL parses PDDL problem text.
//
// Postcondition: Returns a non-nil Problem or a *LoadError wrapping ErrSyntax.
func ParsePDDL(src string) (*Problem, error) {
	toks := tokenize(src)
	root, next, err := parseSexpr(toks, 0, 0)
	if err != nil {
		return nil, err
	}
	if next != len(toks) {
		return nil, syntaxErr(toks[next].line, "trailing input after problem definition")
	}
	if root.head() != "define" {
		return nil, syntaxErr(root.line, "expected (define ...)")
	}

	p := &Problem{}
	for _, section := range root.list[1:] {
		switch section.head() {
		case "problem":
			if len(section.list) != 2 || !section.list[1].leaf {
				return nil, syntaxErr(section.line, "expected (problem <name>)")
			}
			p.Name = section.list[1].atom
		case ":domain", ":requirements":
		case ":objects":
			objs, err := parseObjects(section)
			if err != nil {
				return nil, err
			}
			p.Objects = append(p.Objects, objs...)
		case ":init":
			for _, lit := range section.list[1:] {
				pred, err := parseLiteral(lit)
				if err != nil {
					return nil, err
				}
				p.Init = append(p.Init, pred)
			}
		case ":goal":
			if len(section.list) != 2 {
				return nil, syntaxErr(section.line, "expected exactly one goal formula")
			}
			goal, err := parseGoal(section.list[1])
			if err != nil {
				return nil, err
			}
			p.Goal = goal
		default:
			return nil, syntaxErr(section.line, "unknown section %s", section.String())
		}
	}
	return p, nil
}

// parseObjects reads "a b c - block d" style typed or untyped lists.
func parseObjects(section sexpr) ([]string, error) {
	var objs []string
	items := section.list[1:]
	for i := 0; i < len(items); i++ {
		it := items[i]
		if !it.leaf {
			return nil, syntaxErr(it.line, "object names must be atoms, got %s", it.String())
		}
		if it.atom == "-" {
			if i+1 >= len(items) || !items[i+1].leaf {
				return nil, syntaxErr(it.line, "'-' must be followed by a type name")
			}
			i++
			continue
		}
		objs = append(objs, it.atom)
	}
	return objs, nil
}

func parseLiteral(e sexpr) (Predicate, error) {
	if e.leaf || len(e.list) == 0 {
		return Predicate{}, syntaxErr(e.line, "expected a predicate, got %s", e.String())
	}
	pred := Predicate{Name: e.head()}
	if pred.Name == "" {
		return Predicate{}, syntaxErr(e.line, "predicate name must be an atom in %s", e.String())
	}
	if pred.Name == "not" {
		return Predicate{}, &LoadError{Predicate: e.String(), Err: ErrUnsupportedPredicate}
	}
	for _, a := range e.list[1:] {
		if !a.leaf {
			return Predicate{}, syntaxErr(a.line, "predicate arguments must be atoms in %s", e.String())
		}
		pred.Args = append(pred.Args, a.atom)
	}
	return pred, nil
}

// parseGoal accepts (and lit...) or a single literal.
func parseGoal(e sexpr) ([]Predicate, error) {
	if e.head() != "and" {
		pred, err := parseLiteral(e)
		if err != nil {
			return nil, err
		}
		return []Predicate{pred}, nil
	}
	var out []Predicate
	for _, lit := range e.list[1:] {
		if lit.head() == "and" || lit.head() == "or" {
			return nil, &LoadError{Predicate: lit.String(), Err: ErrUnsupportedPredicate}
		}
		pred, err := parseLiteral(lit)
		if err != nil {
			return nil, err
		}
		out = append(out, pred)
	}
	return out, nil
}
