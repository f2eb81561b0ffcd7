// # internal/db/db.go
package db

import "crateview/internal/item"

// Database holds everything scraped from a set of crates. Each namespace is
// keyed by absolute path; scopes sit beside modules so the resolver can
// rewrite import tables without touching items.
type Database struct {
	Types   *Namespace[*item.TypeItem]
	Symbols *Namespace[*item.SymbolItem]
	Macros  *Namespace[*item.MacroItem]
	Modules *Namespace[*item.ModuleItem]
	Scopes  *Namespace[*item.ModuleScope]
}

type Option func(*options)

type options struct {
	guard bool
}

// WithReentrancyGuard enables the debug reentrancy check on every namespace.
func WithReentrancyGuard() Option {
	return func(o *options) { o.guard = true }
}

func NewDatabase(opts ...Option) *Database {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	g := &reentrancyGuard{enabled: o.guard}
	return &Database{
		Types:   NewNamespace[*item.TypeItem]("types", g),
		Symbols: NewNamespace[*item.SymbolItem]("symbols", g),
		Macros:  NewNamespace[*item.MacroItem]("macros", g),
		Modules: NewNamespace[*item.ModuleItem]("modules", g),
		Scopes:  NewNamespace[*item.ModuleScope]("scopes", g),
	}
}

// Stats is a per-namespace count snapshot for the end-of-run report.
type Stats struct {
	Types   int
	Symbols int
	Macros  int
	Modules int
	Scopes  int
}

func (d *Database) Stats() Stats {
	return Stats{
		Types:   d.Types.Len(),
		Symbols: d.Symbols.Len(),
		Macros:  d.Macros.Len(),
		Modules: d.Modules.Len(),
		Scopes:  d.Scopes.Len(),
	}
}
