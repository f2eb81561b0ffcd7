// # internal/macros/consume.go
package macros

import (
	errs "crateview/internal/core/errors"
	"crateview/internal/token"
)

// consumeSeq matches a pattern sequence against the cursor. It does not
// require the cursor to be exhausted; callers that need that check it.
func consumeSeq(nodes []node, st *matchState, c *token.Cursor) error {
	for _, n := range nodes {
		if err := consumeNode(n, st, c); err != nil {
			return err
		}
	}
	return nil
}

func consumeNode(n node, st *matchState, c *token.Cursor) error {
	switch n := n.(type) {
	case literalTok:
		return consumeLiteral(n.tree, c)
	case fragment:
		frag, err := consumeFragment(n.kind, c)
		if err != nil {
			return err
		}
		return st.bind(n.name, frag)
	case group:
		tree, ok := c.Next()
		if !ok {
			return errs.New(errs.CodeMacroMatch, "unexpected end of input, expected group")
		}
		g, isGroup := tree.(token.Group)
		if !isGroup || g.Delim != n.delim {
			return errs.New(errs.CodeMacroMatch, "delimiter mismatch")
		}
		inner := token.NewCursor(g.Stream)
		if err := consumeSeq(n.inner, st, inner); err != nil {
			return err
		}
		if !inner.Done() {
			return errs.Newf(errs.CodeMacroMatch, "unexpected trailing tokens in group: %s", inner.Rest())
		}
		return nil
	case repetition:
		return consumeRepetition(n, st, c)
	}
	return errs.New(errs.CodeInternal, "unknown matcher node")
}

func consumeLiteral(want token.Tree, c *token.Cursor) error {
	got, ok := c.Next()
	if !ok {
		return errs.New(errs.CodeMacroMatch, "unexpected end of input")
	}
	if !sameToken(want, got) {
		return errs.Newf(errs.CodeMacroMatch, "expected %s", token.Stream{want})
	}
	return nil
}

// sameToken compares token content; spacing never affects a match.
func sameToken(a, b token.Tree) bool {
	switch a := a.(type) {
	case token.Ident:
		b, ok := b.(token.Ident)
		return ok && a.Text == b.Text
	case token.Literal:
		b, ok := b.(token.Literal)
		return ok && a.Text == b.Text
	case token.Punct:
		b, ok := b.(token.Punct)
		return ok && a.Ch == b.Ch
	}
	return false
}

// consumeRepetition runs match cycles. Each cycle is probed speculatively on
// a fork first, so a failed probe leaves neither cursor position nor
// bindings behind; only proven cycles are consumed for real.
func consumeRepetition(r repetition, st *matchState, c *token.Cursor) error {
	cycle := 0
	for {
		if r.quant == QuantQuestion && cycle == 1 {
			break
		}
		fork := c.Fork()
		if !probeCycle(r, st, fork, cycle) {
			break
		}
		st.pushCycle(cycle)
		if cycle > 0 {
			for _, sep := range r.sep {
				if err := consumeLiteral(sep, c); err != nil {
					st.popCycle()
					return err
				}
			}
		}
		err := consumeSeq(r.inner, st, c)
		st.popCycle()
		if err != nil {
			return err
		}
		cycle++
	}
	if r.quant == QuantPlus && cycle == 0 {
		return errs.New(errs.CodeMacroMatch, "expected at least one repetition")
	}
	return nil
}

func probeCycle(r repetition, st *matchState, fork *token.Cursor, cycle int) bool {
	st.speculating++
	defer func() { st.speculating-- }()
	start := fork.Rest()
	if cycle > 0 {
		for _, sep := range r.sep {
			if err := consumeLiteral(sep, fork); err != nil {
				return false
			}
		}
	}
	if err := consumeSeq(r.inner, st, fork); err != nil {
		return false
	}
	// a cycle that consumes nothing would never terminate
	return len(start) != len(fork.Rest())
}
