package smt

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Kind int

const (
	Symbol  Kind = iota
	Keyword      // :named, :pattern, ...
	Literal      // Numerals, decimals, #b/#x constants and string literals
	List
)

var ErrMalformed = errors.New("malformed s-expression")

// Node is a single s-expression. Atoms keep their raw spelling in Text, lists
// keep their elements in Children.
type Node struct {
	Kind     Kind
	Text     string
	Children []Node
	Line     int
	Column   int
}

func (node Node) IsList() bool {
	return node.Kind == List
}

// Name returns the symbol's name with |quoting| removed, so that |p| and p
// compare equal.
func (node Node) Name() string {
	if node.Kind != Symbol {
		return ""
	}
	if len(node.Text) >= 2 && node.Text[0] == '|' && node.Text[len(node.Text)-1] == '|' {
		return node.Text[1 : len(node.Text)-1]
	}
	return node.Text
}

// Head returns the name of the symbol a list starts with, if any.
func (node Node) Head() string {
	if node.Kind != List || len(node.Children) == 0 {
		return ""
	}
	return node.Children[0].Name()
}

// String renders the node in SMT-LIB surface syntax with single spaces between
// list elements.
func (node Node) String() string {
	if node.Kind != List {
		return node.Text
	}
	var builder strings.Builder
	node.write(&builder)
	return builder.String()
}

func (node Node) write(builder *strings.Builder) {
	if node.Kind != List {
		builder.WriteString(node.Text)
		return
	}
	builder.WriteByte('(')
	for i, child := range node.Children {
		if i > 0 {
			builder.WriteByte(' ')
		}
		child.write(builder)
	}
	builder.WriteByte(')')
}

// Parse reads SMT-LIB text into its top-level s-expressions. A ';' starts a
// comment running to the end of the line.
func Parse(text string) ([]Node, error) {
	return newReader(text, true).readAll()
}

// ParseOutput reads solver responses. Responses carry no comments, and some
// solvers separate list elements with ';', so it is treated as whitespace.
func ParseOutput(text string) ([]Node, error) {
	return newReader(text, false).readAll()
}

type reader struct {
	src      string
	pos      int
	line     int
	column   int
	comments bool
}

func newReader(text string, comments bool) *reader {
	return &reader{
		src:      text,
		line:     1,
		column:   1,
		comments: comments,
	}
}

func (r *reader) readAll() ([]Node, error) {
	nodes := make([]Node, 0)
	open := make([]Node, 0) // Lists whose ')' has not been seen yet

	emit := func(node Node) {
		if len(open) == 0 {
			nodes = append(nodes, node)
		} else {
			open[len(open)-1].Children = append(open[len(open)-1].Children, node)
		}
	}

	for {
		r.skipSpace()
		if r.pos >= len(r.src) {
			break
		}

		line, column := r.line, r.column
		switch r.src[r.pos] {
		case '(':
			r.advance()
			open = append(open, Node{Kind: List, Children: make([]Node, 0), Line: line, Column: column})
		case ')':
			r.advance()
			if len(open) == 0 {
				return nil, r.errorf(line, column, "unexpected ')'")
			}
			list := open[len(open)-1]
			open = open[:len(open)-1]
			emit(list)
		default:
			atom, err := r.readAtom()
			if err != nil {
				return nil, err
			}
			emit(atom)
		}
	}

	if len(open) > 0 {
		list := open[len(open)-1]
		return nil, r.errorf(list.Line, list.Column, "unclosed '('")
	}
	return nodes, nil
}

func (r *reader) readAtom() (Node, error) {
	line, column := r.line, r.column
	start := r.pos

	switch r.src[r.pos] {
	case '"':
		r.advance()
		for {
			if r.pos >= len(r.src) {
				return Node{}, r.errorf(line, column, "unterminated string literal")
			}
			if r.advance() != '"' {
				continue
			}
			if r.pos < len(r.src) && r.src[r.pos] == '"' { // "" is an escaped quote
				r.advance()
				continue
			}
			break
		}
		return Node{Kind: Literal, Text: r.src[start:r.pos], Line: line, Column: column}, nil
	case '|':
		r.advance()
		for {
			if r.pos >= len(r.src) {
				return Node{}, r.errorf(line, column, "unterminated quoted symbol")
			}
			if r.advance() == '|' {
				break
			}
		}
		return Node{Kind: Symbol, Text: r.src[start:r.pos], Line: line, Column: column}, nil
	}

	for r.pos < len(r.src) && !isDelimiter(r.src[r.pos]) {
		r.advance()
	}
	text := r.src[start:r.pos]

	kind := Symbol
	if text[0] == ':' {
		kind = Keyword
	} else if text[0] == '#' || (text[0] >= '0' && text[0] <= '9') {
		kind = Literal
	}
	return Node{Kind: kind, Text: text, Line: line, Column: column}, nil
}

func (r *reader) skipSpace() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == ';' && r.comments:
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.advance()
			}
		case c == ';' || isSpace(c):
			r.advance()
		default:
			return
		}
	}
}

func (r *reader) advance() byte {
	c := r.src[r.pos]
	r.pos++
	if c == '\n' {
		r.line++
		r.column = 1
	} else {
		r.column++
	}
	return c
}

func (r *reader) errorf(line, column int, format string, args ...any) error {
	return errors.Wrapf(ErrMalformed, "line %d column %d: %s", line, column, fmt.Sprintf(format, args...))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	return isSpace(c) || c == '(' || c == ')' || c == '"' || c == '|' || c == ';'
}
