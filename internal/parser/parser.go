// # internal/parser/parser.go
package parser

import (
	"os"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	errs "crateview/internal/core/errors"
	"crateview/internal/ident"
	"crateview/internal/shared/observability"
	"crateview/internal/token"
)

// Parser turns Rust source into Declarations. It is safe for concurrent use;
// tree-sitter parser instances come from the pool.
type Parser struct {
	pool *ParserPool
}

func New() *Parser {
	return &Parser{pool: NewParserPool()}
}

// ParseFile reads and parses one file.
func (p *Parser) ParseFile(path string) (*SourceFile, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeParse, "failed to read source file").(*errs.DomainError).
			WithContext(errs.CtxFile, path)
	}
	return p.Parse(src, path)
}

// Parse parses a source buffer. The path is only used for spans and error
// context; expansion output comes through here with a synthetic path.
func (p *Parser) Parse(src []byte, path string) (*SourceFile, error) {
	sp := p.pool.Get()
	defer p.pool.Put(sp)

	tree := sp.Parse(src, nil)
	if tree == nil {
		observability.ParseErrors.Inc()
		return nil, errs.New(errs.CodeParse, "tree-sitter returned no tree").(*errs.DomainError).
			WithContext(errs.CtxFile, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		observability.ParseErrors.Inc()
		return nil, errs.New(errs.CodeParse, "syntax errors in source").(*errs.DomainError).
			WithContext(errs.CtxFile, path)
	}

	ex := &extractor{src: src, path: path}
	file := &SourceFile{Path: path}
	file.Decls, file.InnerAttrs = ex.declList(root)
	observability.FilesParsed.Inc()
	return file, nil
}

type extractor struct {
	src  []byte
	path string
}

func (ex *extractor) text(n *sitter.Node) string {
	return string(ex.src[n.StartByte():n.EndByte()])
}

func (ex *extractor) span(n *sitter.Node) ident.Span {
	start := n.StartPosition()
	end := n.EndPosition()
	return ident.Span{
		File:     ex.path,
		StartRow: start.Row, StartCol: start.Column,
		EndRow: end.Row, EndCol: end.Column,
	}
}

// declList walks the named children of a source_file or declaration_list,
// attaching pending outer attributes and doc comments to the item that
// follows them.
func (ex *extractor) declList(parent *sitter.Node) ([]Declaration, []token.Stream) {
	var decls []Declaration
	var inner []token.Stream
	var pendingAttrs []token.Stream
	var pendingDocs []string

	count := parent.NamedChildCount()
	for i := uint(0); i < count; i++ {
		n := parent.NamedChild(i)
		kind := n.Kind()
		switch kind {
		case "line_comment":
			text := ex.text(n)
			if strings.HasPrefix(text, "///") {
				pendingDocs = append(pendingDocs, strings.TrimSpace(strings.TrimPrefix(text, "///")))
			}
			continue
		case "block_comment":
			continue
		case "attribute_item":
			if body := ex.attrBody(n); body != nil {
				pendingAttrs = append(pendingAttrs, body)
			}
			continue
		case "inner_attribute_item":
			if body := ex.attrBody(n); body != nil {
				inner = append(inner, body)
			}
			continue
		}

		decl, ok := ex.decl(n, kind)
		if ok {
			decl.Attrs = pendingAttrs
			decl.Docs = strings.Join(pendingDocs, "\n")
			decls = append(decls, decl)
		}
		pendingAttrs = nil
		pendingDocs = nil
	}
	return decls, inner
}

func (ex *extractor) decl(n *sitter.Node, kind string) (Declaration, bool) {
	d := Declaration{Span: ex.span(n), Vis: ex.visibility(n)}
	switch kind {
	case "struct_item":
		d.Kind = DeclStruct
	case "enum_item":
		d.Kind = DeclEnum
	case "union_item":
		d.Kind = DeclUnion
	case "trait_item":
		d.Kind = DeclTrait
	case "type_item":
		d.Kind = DeclTypeAlias
	case "function_item":
		d.Kind = DeclFunction
	case "const_item":
		d.Kind = DeclConst
	case "static_item":
		d.Kind = DeclStatic
	case "impl_item":
		d.Kind = DeclImpl
		return d, true
	case "foreign_mod_item":
		d.Kind = DeclForeignMod
		return d, true
	case "mod_item":
		d.Kind = DeclModule
		if body := n.ChildByFieldName("body"); body != nil {
			d.HasBody = true
			d.Body, _ = ex.declList(body)
		}
	case "use_declaration":
		d.Kind = DeclUse
		if arg := n.ChildByFieldName("argument"); arg != nil {
			if s, err := token.Lex([]byte(ex.text(arg))); err == nil {
				d.UseTree = s
			}
		}
		return d, true
	case "extern_crate_declaration":
		return ex.externCrate(n, d)
	case "macro_definition":
		d.Kind = DeclMacroDef
		if s, err := token.Lex([]byte(ex.text(n))); err == nil {
			d.Tokens = s
		}
	case "macro_invocation":
		return ex.macroInvocation(n, d)
	default:
		return d, false
	}

	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = ex.text(name)
	}
	return d, true
}

func (ex *extractor) visibility(n *sitter.Node) string {
	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c.Kind() == "visibility_modifier" {
			return ex.text(c)
		}
	}
	return ""
}

// attrBody lexes an attribute item and unwraps the bracket group, returning
// the stream inside #[...].
func (ex *extractor) attrBody(n *sitter.Node) token.Stream {
	s, err := token.Lex([]byte(ex.text(n)))
	if err != nil {
		return nil
	}
	for _, t := range s {
		if g, isGroup := t.(token.Group); isGroup && g.Delim == token.DelimBracket {
			return g.Stream
		}
	}
	return nil
}

func (ex *extractor) externCrate(n *sitter.Node, d Declaration) (Declaration, bool) {
	d.Kind = DeclExternCrate
	// `extern crate foo as bar;` - lexing beats guessing at field names
	s, err := token.Lex([]byte(ex.text(n)))
	if err != nil {
		return d, false
	}
	var idents []string
	for _, t := range s {
		if id, isIdent := t.(token.Ident); isIdent {
			idents = append(idents, id.Text)
		}
	}
	// idents: extern, crate, name [, as, alias]
	if len(idents) >= 3 {
		d.Name = idents[2]
	}
	if len(idents) >= 5 && idents[3] == "as" {
		d.Rename = idents[4]
	}
	return d, d.Name != ""
}

func (ex *extractor) macroInvocation(n *sitter.Node, d Declaration) (Declaration, bool) {
	d.Kind = DeclMacroInvocation
	if m := n.ChildByFieldName("macro"); m != nil {
		d.InvokePath = strings.Split(ex.text(m), "::")
		d.Name = d.InvokePath[len(d.InvokePath)-1]
	}
	count := n.NamedChildCount()
	for i := uint(0); i < count; i++ {
		c := n.NamedChild(i)
		if c.Kind() != "token_tree" {
			continue
		}
		s, err := token.Lex([]byte(ex.text(c)))
		if err != nil {
			return d, false
		}
		if len(s) == 1 {
			if g, isGroup := s[0].(token.Group); isGroup {
				d.Tokens = g.Stream
			}
		}
	}
	return d, len(d.InvokePath) > 0
}
