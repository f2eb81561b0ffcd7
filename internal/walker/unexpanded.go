// # internal/walker/unexpanded.go
package walker

import (
	"crateview/internal/ident"
	"crateview/internal/item"
	"crateview/internal/token"
)

type UnexpandedKind int

const (
	// a macro_rules definition waiting to enter the textual scope
	KindMacroDef UnexpandedKind = iota
	// a bang invocation waiting for a definition
	KindInvocation
	// #[macro_use] extern crate: sweep a dependency's exported macros
	KindMacroUse
	// a submodule marker keeping expansion order aligned with the walk
	KindSubmodule
)

// UnexpandedItem is one deferred piece of macro work, queued during the walk
// in declaration order.
type UnexpandedItem struct {
	Kind UnexpandedKind

	Def *item.MacroItem // KindMacroDef

	InvokePath []string // KindInvocation
	Tokens     token.Stream
	Span       ident.Span
	Depth      int // how many expansions deep this invocation was produced

	Dep ident.CrateID // KindMacroUse

	Submodule string // KindSubmodule
	MacroUse  bool
}

// UnexpandedModule is a module's deferred queue. Pop always takes the front;
// Insert places new work relative to the front so expansion output is
// processed right where its invocation sat, keeping textual order. Reset
// rewinds the insertion point before walking a fresh batch of output.
type UnexpandedModule struct {
	items  []UnexpandedItem
	insert int
}

func (m *UnexpandedModule) Insert(it UnexpandedItem) {
	m.items = append(m.items, UnexpandedItem{})
	copy(m.items[m.insert+1:], m.items[m.insert:])
	m.items[m.insert] = it
	m.insert++
}

func (m *UnexpandedModule) Reset() {
	m.insert = 0
}

func (m *UnexpandedModule) Pop() (UnexpandedItem, bool) {
	if len(m.items) == 0 {
		return UnexpandedItem{}, false
	}
	it := m.items[0]
	m.items = m.items[1:]
	if m.insert > 0 {
		m.insert--
	}
	return it, true
}

func (m *UnexpandedModule) Len() int {
	return len(m.items)
}
