// # internal/item/item.go

// Package item is the data model for scraped declarations: what the walker
// lowers source into and what the database stores.
package item

import (
	"crateview/internal/ident"
	"crateview/internal/token"
)

type Visibility int

const (
	// NonPub covers private, pub(crate) and pub(in ...) alike; none of them
	// are visible outside the crate.
	NonPub Visibility = iota
	Pub
)

func (v Visibility) String() string {
	if v == Pub {
		return "pub"
	}
	return "non-pub"
}

// Metadata is shared by every item kind.
type Metadata struct {
	Vis        Visibility
	Docs       string
	Span       ident.Span
	Deprecated bool
	// attributes we recognize but do not interpret, kept as raw tokens
	Extra []token.Stream
}

type TypeKind int

const (
	StructKind TypeKind = iota
	EnumKind
	UnionKind
	TraitKind
	TypeAliasKind
)

func (k TypeKind) String() string {
	switch k {
	case StructKind:
		return "struct"
	case EnumKind:
		return "enum"
	case UnionKind:
		return "union"
	case TraitKind:
		return "trait"
	case TypeAliasKind:
		return "type alias"
	}
	return "unknown"
}

// TypeItem is a struct, enum, union, trait or type alias.
type TypeItem struct {
	Meta Metadata
	Name string
	Kind TypeKind
}

type SymbolKind int

const (
	ConstKind SymbolKind = iota
	StaticKind
	FunctionKind
)

func (k SymbolKind) String() string {
	switch k {
	case ConstKind:
		return "const"
	case StaticKind:
		return "static"
	case FunctionKind:
		return "fn"
	}
	return "unknown"
}

// SymbolItem is a const, static or free function.
type SymbolItem struct {
	Meta Metadata
	Name string
	Kind SymbolKind
}

type MacroKind int

const (
	DeclarativeKind MacroKind = iota
	ProcKind
	DeriveKind
	AttributeKind
)

func (k MacroKind) String() string {
	switch k {
	case DeclarativeKind:
		return "macro_rules"
	case ProcKind:
		return "proc macro"
	case DeriveKind:
		return "derive"
	case AttributeKind:
		return "attribute"
	}
	return "unknown"
}

// MacroItem is a macro definition. For declarative macros Tokens holds the
// full `macro_rules! name { ... }` item; rules are parsed at expansion time.
type MacroItem struct {
	Meta     Metadata
	Name     string
	Kind     MacroKind
	Tokens   token.Stream
	Exported bool
}

// ModuleItem marks a module in the tree; its contents live under its path.
type ModuleItem struct {
	Meta Metadata
	Name string
}

// Item is the capability surface shared by all item kinds.
type Item interface {
	ItemName() string
	Metadata() *Metadata
}

func (t *TypeItem) ItemName() string     { return t.Name }
func (t *TypeItem) Metadata() *Metadata  { return &t.Meta }
func (s *SymbolItem) ItemName() string   { return s.Name }
func (s *SymbolItem) Metadata() *Metadata { return &s.Meta }
func (m *MacroItem) ItemName() string    { return m.Name }
func (m *MacroItem) Metadata() *Metadata { return &m.Meta }
func (m *ModuleItem) ItemName() string   { return m.Name }
func (m *ModuleItem) Metadata() *Metadata { return &m.Meta }
