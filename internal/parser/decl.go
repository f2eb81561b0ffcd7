// # internal/parser/decl.go

// Package parser extracts Rust declarations from source files. Tree-sitter
// does the heavy parsing; byte ranges that the macro machinery needs as
// token trees (attribute bodies, use trees, macro bodies) are re-lexed.
package parser

import (
	"crateview/internal/ident"
	"crateview/internal/token"
)

type DeclKind int

const (
	DeclStruct DeclKind = iota
	DeclEnum
	DeclUnion
	DeclTrait
	DeclTypeAlias
	DeclFunction
	DeclConst
	DeclStatic
	DeclModule
	DeclUse
	DeclExternCrate
	DeclMacroDef
	DeclMacroInvocation
	DeclImpl
	DeclForeignMod
)

func (k DeclKind) String() string {
	switch k {
	case DeclStruct:
		return "struct"
	case DeclEnum:
		return "enum"
	case DeclUnion:
		return "union"
	case DeclTrait:
		return "trait"
	case DeclTypeAlias:
		return "type alias"
	case DeclFunction:
		return "fn"
	case DeclConst:
		return "const"
	case DeclStatic:
		return "static"
	case DeclModule:
		return "mod"
	case DeclUse:
		return "use"
	case DeclExternCrate:
		return "extern crate"
	case DeclMacroDef:
		return "macro_rules"
	case DeclMacroInvocation:
		return "macro invocation"
	case DeclImpl:
		return "impl"
	case DeclForeignMod:
		return "extern block"
	}
	return "unknown"
}

// Declaration is one top-level item in a module body, close to the CST but
// with token-level payloads already lexed.
type Declaration struct {
	Kind DeclKind
	Name string
	Vis  string // visibility modifier text, "" when absent
	Span ident.Span
	Docs string

	// outer attribute bodies, the stream inside each #[...]
	Attrs []token.Stream

	// inline module body, nil for `mod name;`
	Body    []Declaration
	HasBody bool

	// macro definitions: the full `macro_rules! name { ... }` stream
	// macro invocations: the stream inside the delimiters
	Tokens token.Stream
	// macro invocations: the path before the bang
	InvokePath []string

	// use declarations: the lexed use tree
	UseTree token.Stream

	// extern crate: alias from `as name`, "" when absent
	Rename string
}

// SourceFile is the extraction result for one file.
type SourceFile struct {
	Path       string
	Decls      []Declaration
	InnerAttrs []token.Stream
}
