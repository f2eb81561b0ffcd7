// # internal/walker/scope.go
package walker

import "crateview/internal/item"

// ScopeRef points into a ScopeArena; EmptyScope is the scope with nothing
// in it.
type ScopeRef int

const EmptyScope ScopeRef = -1

type scopeNode struct {
	prev ScopeRef
	def  *item.MacroItem // nil for branch trackers
}

// ScopeArena holds the textual macro scope chains for one crate's expansion
// pass. Nodes are appended and never removed; a scope is just an index, so
// snapshotting a scope for a submodule is copying an int.
type ScopeArena struct {
	nodes []scopeNode
}

func NewScopeArena() *ScopeArena {
	return &ScopeArena{}
}

// Append links a definition after ref and returns the new scope.
func (a *ScopeArena) Append(ref ScopeRef, def *item.MacroItem) ScopeRef {
	a.nodes = append(a.nodes, scopeNode{prev: ref, def: def})
	return ScopeRef(len(a.nodes) - 1)
}

// Branch returns a scope that sees everything ref sees but whose later
// growth stays invisible to ref's chain. A plain `mod x;` walks with a
// branch; `#[macro_use] mod x;` keeps the live chain instead.
func (a *ScopeArena) Branch(ref ScopeRef) ScopeRef {
	return a.Append(ref, nil)
}

// Lookup finds the most recent definition of name visible from ref.
func (a *ScopeArena) Lookup(ref ScopeRef, name string) *item.MacroItem {
	for ref != EmptyScope {
		n := a.nodes[ref]
		if n.def != nil && n.def.Name == name {
			return n.def
		}
		ref = n.prev
	}
	return nil
}

// Len reports how many nodes the arena holds, dead branches included.
func (a *ScopeArena) Len() int {
	return len(a.nodes)
}
