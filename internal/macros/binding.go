// # internal/macros/binding.go
package macros

import (
	errs "crateview/internal/core/errors"
	"crateview/internal/token"
)

type bindingKind int

const (
	bindUnset bindingKind = iota
	bindLeaf
	bindSeq
)

// binding is a tree of captured fragments: a leaf outside any repetition,
// one sequence level per enclosing repetition.
type binding struct {
	kind bindingKind
	leaf token.Stream
	seq  []*binding
}

// insert records a fragment at the repetition depth described by stack.
// A name captured at two different depths is malformed.
func (b *binding) insert(stack []int, frag token.Stream) error {
	if len(stack) == 0 {
		if b.kind == bindSeq {
			return errs.New(errs.CodeBindingDepth, "fragment bound at mixed repetition depths")
		}
		b.kind = bindLeaf
		b.leaf = frag
		return nil
	}
	if b.kind == bindLeaf {
		return errs.New(errs.CodeBindingDepth, "fragment bound at mixed repetition depths")
	}
	b.kind = bindSeq
	idx := stack[0]
	for len(b.seq) <= idx {
		b.seq = append(b.seq, &binding{})
	}
	return b.seq[idx].insert(stack[1:], frag)
}

// at descends by cycle indices. A leaf reached early is reused for every
// cycle, matching how an outer capture may appear inside a repetition.
func (b *binding) at(stack []int) *binding {
	cur := b
	for _, idx := range stack {
		if cur.kind != bindSeq {
			return cur
		}
		if idx >= len(cur.seq) {
			return nil
		}
		cur = cur.seq[idx]
	}
	return cur
}

// matchState accumulates bindings while a rule is matched. A nonzero
// speculating count means we are probing ahead and must not record anything;
// committed consumption happens only after the probe succeeded.
type matchState struct {
	bindings    map[string]*binding
	stack       []int
	speculating int
}

func newMatchState() *matchState {
	return &matchState{bindings: make(map[string]*binding)}
}

func (st *matchState) bind(name string, frag token.Stream) error {
	if st.speculating > 0 {
		return nil
	}
	b, ok := st.bindings[name]
	if !ok {
		b = &binding{}
		st.bindings[name] = b
	}
	return b.insert(st.stack, frag)
}

func (st *matchState) pushCycle(i int) { st.stack = append(st.stack, i) }
func (st *matchState) popCycle()       { st.stack = st.stack[:len(st.stack)-1] }
