// # internal/lower/items.go
package lower

import (
	errs "crateview/internal/core/errors"
	"crateview/internal/ident"
	"crateview/internal/item"
	"crateview/internal/parser"
	"crateview/internal/token"
)

// Attributes is the interpreted view of a declaration's outer attributes.
type Attributes struct {
	Docs         string
	PathOverride string // #[path = "..."]
	MacroUse     bool
	MacroExport  bool
	Deprecated   bool
	Derives      []string
	Extra        []token.Stream
}

// LowerAttributes interprets the attributes of one declaration. It returns
// CodeCfgdOut when a cfg predicate disables the item.
func (v *Vocabulary) LowerAttributes(decl *parser.Declaration, features []string) (*Attributes, error) {
	out := &Attributes{Docs: decl.Docs}
	for _, raw := range decl.Attrs {
		m, err := ParseMeta(raw)
		if err != nil {
			// keep attributes we cannot parse instead of dropping the item
			out.Extra = append(out.Extra, raw)
			continue
		}
		name := m.Ident()
		if !v.KnownAttr(name) {
			out.Extra = append(out.Extra, raw)
			continue
		}
		switch name {
		case "cfg":
			if len(m.Args) != 1 || m.Args[0].Meta == nil {
				return nil, errs.New(errs.CodeCfgdOut, "malformed cfg attribute")
			}
			if !InterpCfg(m.Args[0].Meta, features) {
				return nil, errs.New(errs.CodeCfgdOut, "item disabled by cfg")
			}
		case "path":
			out.PathOverride = m.Value
		case "macro_use":
			out.MacroUse = true
		case "macro_export":
			out.MacroExport = true
		case "deprecated":
			out.Deprecated = true
		case "doc":
			if m.Kind == MetaAssign {
				if out.Docs != "" {
					out.Docs += "\n"
				}
				out.Docs += m.Value
			}
		case "derive":
			for _, arg := range m.Args {
				if arg.Meta != nil {
					out.Derives = append(out.Derives, arg.Meta.Ident())
				}
			}
		}
	}
	return out, nil
}

// UnknownDerives returns the derive paths that are not builtin; each one is
// a proc-macro invocation the expansion pass records.
func (v *Vocabulary) UnknownDerives(attrs *Attributes) []string {
	var out []string
	for _, d := range attrs.Derives {
		if !v.BuiltinDerive(d) {
			out = append(out, d)
		}
	}
	return out
}

// LowerVisibility maps visibility modifier text. Only a bare `pub` is
// visible outside the crate; pub(crate) and friends are not.
func LowerVisibility(vis string) item.Visibility {
	if vis == "pub" {
		return item.Pub
	}
	return item.NonPub
}

func metadata(decl *parser.Declaration, attrs *Attributes, span ident.Span) item.Metadata {
	return item.Metadata{
		Vis:        LowerVisibility(decl.Vis),
		Docs:       attrs.Docs,
		Span:       span,
		Deprecated: attrs.Deprecated,
		Extra:      attrs.Extra,
	}
}

// LowerType lowers a struct, enum, union, trait or type alias declaration.
func LowerType(decl *parser.Declaration, attrs *Attributes) (*item.TypeItem, error) {
	var kind item.TypeKind
	switch decl.Kind {
	case parser.DeclStruct:
		kind = item.StructKind
	case parser.DeclEnum:
		kind = item.EnumKind
	case parser.DeclUnion:
		kind = item.UnionKind
	case parser.DeclTrait:
		kind = item.TraitKind
	case parser.DeclTypeAlias:
		kind = item.TypeAliasKind
	default:
		return nil, errs.Newf(errs.CodeInternal, "not a type declaration: %s", decl.Kind)
	}
	return &item.TypeItem{
		Meta: metadata(decl, attrs, decl.Span),
		Name: decl.Name,
		Kind: kind,
	}, nil
}

// LowerSymbol lowers a const, static or function declaration.
func LowerSymbol(decl *parser.Declaration, attrs *Attributes) (*item.SymbolItem, error) {
	var kind item.SymbolKind
	switch decl.Kind {
	case parser.DeclConst:
		kind = item.ConstKind
	case parser.DeclStatic:
		kind = item.StaticKind
	case parser.DeclFunction:
		kind = item.FunctionKind
	default:
		return nil, errs.Newf(errs.CodeInternal, "not a symbol declaration: %s", decl.Kind)
	}
	return &item.SymbolItem{
		Meta: metadata(decl, attrs, decl.Span),
		Name: decl.Name,
		Kind: kind,
	}, nil
}

// LowerMacroRules wraps a macro_rules definition. The rule tokens stay
// unparsed until the expansion pass needs them.
func LowerMacroRules(decl *parser.Declaration, attrs *Attributes) (*item.MacroItem, error) {
	if decl.Name == "" {
		return nil, errs.New(errs.CodeParse, "macro definition without a name")
	}
	return &item.MacroItem{
		Meta:     metadata(decl, attrs, decl.Span),
		Name:     decl.Name,
		Kind:     item.DeclarativeKind,
		Tokens:   decl.Tokens,
		Exported: attrs.MacroExport,
	}, nil
}

// LowerModule lowers a module declaration to its marker item.
func LowerModule(decl *parser.Declaration, attrs *Attributes) *item.ModuleItem {
	return &item.ModuleItem{
		Meta: metadata(decl, attrs, decl.Span),
		Name: decl.Name,
	}
}
