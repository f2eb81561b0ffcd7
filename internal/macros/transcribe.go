// # internal/macros/transcribe.go
package macros

import (
	"log/slog"

	errs "crateview/internal/core/errors"
	"crateview/internal/token"
)

// transcriber writes the output stream for one matched rule. The frame stack
// holds the cycle index of every repetition currently being iterated.
type transcriber struct {
	bindings map[string]*binding
	stack    []int
}

func (t *transcriber) run(template token.Stream) (token.Stream, error) {
	out := token.Stream{}
	c := token.NewCursor(template)
	for {
		tree, ok := c.Next()
		if !ok {
			return out, nil
		}
		if p, isPunct := tree.(token.Punct); isPunct && p.Ch == '$' {
			// the previous punct was joint only because $ followed in the
			// template, not because of output adjacency
			if len(out) > 0 {
				if lp, wasPunct := out[len(out)-1].(token.Punct); wasPunct && lp.Joint {
					lp.Joint = false
					out[len(out)-1] = lp
				}
			}
			emitted, err := t.dollar(c, p)
			if err != nil {
				return nil, err
			}
			out = append(out, emitted...)
			continue
		}
		if g, isGroup := tree.(token.Group); isGroup {
			inner, err := t.run(g.Stream)
			if err != nil {
				return nil, err
			}
			out = append(out, token.Group{Delim: g.Delim, Stream: inner, Offset: g.Offset})
			continue
		}
		out = append(out, tree)
	}
}

func (t *transcriber) dollar(c *token.Cursor, dollar token.Punct) (token.Stream, error) {
	next, ok := c.Peek()
	if !ok {
		return token.Stream{dollar}, nil
	}
	switch next := next.(type) {
	case token.Ident:
		c.Next()
		if next.Text == "crate" {
			// $crate resolves to the defining crate; within one crate a
			// plain `crate` path works
			return token.Stream{token.Ident{Text: "crate", Offset: next.Offset}}, nil
		}
		b, bound := t.bindings[next.Text]
		if !bound {
			slog.Warn("unbound fragment in transcriber", "name", next.Text)
			return token.Stream{dollar, next}, nil
		}
		at := b.at(t.stack)
		if at == nil || at.kind != bindLeaf {
			return nil, errs.Newf(errs.CodeTranscribe, "fragment $%s used without enough repetitions", next.Text)
		}
		return at.leaf.Clone(), nil
	case token.Group:
		if next.Delim != token.DelimParen {
			return token.Stream{dollar}, nil
		}
		c.Next()
		sep, _, err := parseRepSuffix(c)
		if err != nil {
			return nil, err
		}
		return t.repetition(next.Stream, sep)
	default:
		return token.Stream{dollar}, nil
	}
}

// repetition iterates the cycles of the fragments named in the template.
// Every sequence-bound name must agree on the cycle count; a repetition
// naming no sequence bindings emits nothing.
func (t *transcriber) repetition(template token.Stream, sep []token.Tree) (token.Stream, error) {
	names := map[string]struct{}{}
	collectNames(template, names)

	cycles := -1
	for name := range names {
		b, bound := t.bindings[name]
		if !bound {
			continue
		}
		at := b.at(t.stack)
		if at == nil || at.kind != bindSeq {
			continue
		}
		if cycles == -1 {
			cycles = len(at.seq)
		} else if cycles != len(at.seq) {
			return nil, errs.Newf(errs.CodeTranscribe,
				"mismatched repetition counts: $%s has %d cycles, expected %d", name, len(at.seq), cycles)
		}
	}
	if cycles == -1 {
		return token.Stream{}, nil
	}

	// separator puncts carry a joint flag from the template's quantifier
	sep = append(token.Stream(nil), sep...)
	if len(sep) > 0 {
		if p, isPunct := sep[len(sep)-1].(token.Punct); isPunct {
			p.Joint = false
			sep[len(sep)-1] = p
		}
	}

	out := token.Stream{}
	for i := 0; i < cycles; i++ {
		if i > 0 {
			out = append(out, sep...)
		}
		t.stack = append(t.stack, i)
		sub, err := t.run(template)
		t.stack = t.stack[:len(t.stack)-1]
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// collectNames finds every $name referenced in a template, recursively.
func collectNames(template token.Stream, names map[string]struct{}) {
	for i, tree := range template {
		if g, isGroup := tree.(token.Group); isGroup {
			collectNames(g.Stream, names)
			continue
		}
		p, isPunct := tree.(token.Punct)
		if !isPunct || p.Ch != '$' || i+1 >= len(template) {
			continue
		}
		if id, isIdent := template[i+1].(token.Ident); isIdent && id.Text != "crate" {
			names[id.Text] = struct{}{}
		}
	}
}
