// # internal/token/token.go

// Package token models Rust token trees the way macro expansion needs them:
// flat streams of idents, literals, puncts and delimited groups, with joint
// spacing preserved so multi-char operators survive a round trip.
package token

import "strings"

type Delim byte

const (
	DelimNone Delim = iota
	DelimParen
	DelimBracket
	DelimBrace
)

func (d Delim) Open() string {
	switch d {
	case DelimParen:
		return "("
	case DelimBracket:
		return "["
	case DelimBrace:
		return "{"
	}
	return ""
}

func (d Delim) Close() string {
	switch d {
	case DelimParen:
		return ")"
	case DelimBracket:
		return "]"
	case DelimBrace:
		return "}"
	}
	return ""
}

// Tree is one node of a token stream.
type Tree interface {
	isTree()
	render(b *strings.Builder, prevJoint bool) bool
}

// Ident is an identifier or keyword.
type Ident struct {
	Text   string
	Offset int
}

// Literal is a numeric, string, char or byte literal, kept as written.
type Literal struct {
	Text   string
	Offset int
}

// Punct is a single punctuation character. Joint means the next token
// followed with no space, so "::" is two joint-linked puncts.
type Punct struct {
	Ch     byte
	Joint  bool
	Offset int
}

// Group is a delimited subtree.
type Group struct {
	Delim  Delim
	Stream Stream
	Offset int
}

func (Ident) isTree()   {}
func (Literal) isTree() {}
func (Punct) isTree()   {}
func (Group) isTree()   {}

// Stream is a sequence of token trees.
type Stream []Tree

func (s Stream) Empty() bool { return len(s) == 0 }

// Clone copies the top-level slice; trees themselves are immutable.
func (s Stream) Clone() Stream {
	return append(Stream(nil), s...)
}

func (i Ident) render(b *strings.Builder, prevJoint bool) bool {
	if b.Len() > 0 && !prevJoint {
		b.WriteByte(' ')
	}
	b.WriteString(i.Text)
	return false
}

func (l Literal) render(b *strings.Builder, prevJoint bool) bool {
	if b.Len() > 0 && !prevJoint {
		b.WriteByte(' ')
	}
	b.WriteString(l.Text)
	return false
}

func (p Punct) render(b *strings.Builder, prevJoint bool) bool {
	if b.Len() > 0 && !prevJoint {
		b.WriteByte(' ')
	}
	b.WriteByte(p.Ch)
	return p.Joint
}

func (g Group) render(b *strings.Builder, prevJoint bool) bool {
	if b.Len() > 0 && !prevJoint {
		b.WriteByte(' ')
	}
	b.WriteString(g.Delim.Open())
	joint := true
	for _, t := range g.Stream {
		joint = t.render(b, joint)
	}
	b.WriteString(g.Delim.Close())
	return false
}

// Render flattens the stream back to parsable source text. Joint puncts are
// emitted with no separating space so "=>" and "::" come back intact.
func (s Stream) Render() string {
	var b strings.Builder
	joint := true
	for _, t := range s {
		joint = t.render(&b, joint)
	}
	return b.String()
}

// String renders the stream; handy in logs and test failures.
func (s Stream) String() string { return s.Render() }
