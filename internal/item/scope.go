// # internal/item/scope.go
package item

import "crateview/internal/ident"

// ImportPath is an import target that may not be resolved yet. Abs is set
// once the resolver anchors the path to a crate; until then Raw holds the
// path as written.
type ImportPath struct {
	Abs *ident.Path
	Raw ident.UnresolvedPath
}

func Unresolved(raw ident.UnresolvedPath) *ImportPath {
	return &ImportPath{Raw: raw}
}

func Resolved(abs ident.Path) *ImportPath {
	return &ImportPath{Abs: &abs}
}

func (p *ImportPath) IsResolved() bool { return p.Abs != nil }

func (p *ImportPath) String() string {
	if p.Abs != nil {
		return p.Abs.String()
	}
	return p.Raw.String()
}

// ModuleScope is a module's import surface: the four tables the resolver
// absolutizes. Keys of the named tables are the local binding names.
type ModuleScope struct {
	Meta Metadata

	Imports        map[string]*ImportPath
	PubImports     map[string]*ImportPath
	GlobImports    []*ImportPath
	PubGlobImports []*ImportPath
}

func NewModuleScope(meta Metadata) *ModuleScope {
	return &ModuleScope{
		Meta:       meta,
		Imports:    make(map[string]*ImportPath),
		PubImports: make(map[string]*ImportPath),
	}
}
