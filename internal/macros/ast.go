// # internal/macros/ast.go

// Package macros interprets macro-by-example definitions: it parses
// macro_rules patterns, matches invocation token streams against them, and
// transcribes the bound fragments into output streams.
package macros

import (
	errs "crateview/internal/core/errors"
	"crateview/internal/token"
)

type FragKind int

const (
	FragIdent FragKind = iota
	FragExpr
	FragTy
	FragPath
	FragPat
	FragStmt
	FragBlock
	FragItem
	FragLiteral
	FragLifetime
	FragMeta
	FragVis
	FragTT
)

var fragKinds = map[string]FragKind{
	"ident":     FragIdent,
	"expr":      FragExpr,
	"ty":        FragTy,
	"path":      FragPath,
	"pat":       FragPat,
	"pat_param": FragPat,
	"stmt":      FragStmt,
	"block":     FragBlock,
	"item":      FragItem,
	"literal":   FragLiteral,
	"lifetime":  FragLifetime,
	"meta":      FragMeta,
	"tt":        FragTT,
	"vis":       FragVis,
}

type Quant int

const (
	QuantStar Quant = iota
	QuantPlus
	QuantQuestion
)

// node is one element of a parsed matcher pattern.
type node interface{ isNode() }

// literalTok matches one concrete token by content (spacing ignored).
type literalTok struct {
	tree token.Tree
}

// fragment matches a syntactic fragment and binds it to a name.
type fragment struct {
	name string
	kind FragKind
}

// group matches a delimited group whose contents match the nested pattern
// exactly (no trailing tokens).
type group struct {
	delim token.Delim
	inner []node
}

// repetition matches zero or more cycles of the inner pattern, with an
// optional separator between cycles.
type repetition struct {
	inner []node
	sep   []token.Tree
	quant Quant
}

func (literalTok) isNode() {}
func (fragment) isNode()   {}
func (group) isNode()      {}
func (repetition) isNode() {}

// Rule is one `(matcher) => {transcriber}` arm.
type Rule struct {
	matcher     []node
	transcriber token.Stream
}

// Def is a parsed macro_rules definition.
type Def struct {
	Name  string
	Rules []Rule
}

// ParseDef parses a full `macro_rules! name { rules }` token stream, the
// form macro items are stored in.
func ParseDef(s token.Stream) (*Def, error) {
	c := token.NewCursor(s)
	if !c.PeekIdent("macro_rules") {
		return nil, errs.New(errs.CodeParse, "expected macro_rules")
	}
	c.Next()
	if !c.PeekPunct('!') {
		return nil, errs.New(errs.CodeParse, "expected ! after macro_rules")
	}
	c.Next()
	nameTree, ok := c.Next()
	name, isIdent := nameTree.(token.Ident)
	if !ok || !isIdent {
		return nil, errs.New(errs.CodeParse, "expected macro name")
	}
	bodyTree, ok := c.Next()
	body, isGroup := bodyTree.(token.Group)
	if !ok || !isGroup {
		return nil, errs.New(errs.CodeParse, "expected macro rules body")
	}

	def := &Def{Name: name.Text}
	rc := token.NewCursor(body.Stream)
	for !rc.Done() {
		rule, err := parseRule(rc)
		if err != nil {
			return nil, errs.AddContext(err, errs.CtxMacro, name.Text)
		}
		def.Rules = append(def.Rules, rule)
	}
	if len(def.Rules) == 0 {
		return nil, errs.Newf(errs.CodeParse, "macro %s has no rules", name.Text)
	}
	return def, nil
}

func parseRule(c *token.Cursor) (Rule, error) {
	mTree, ok := c.Next()
	mGroup, isGroup := mTree.(token.Group)
	if !ok || !isGroup {
		return Rule{}, errs.New(errs.CodeParse, "expected matcher group")
	}
	if !c.PeekPunct('=') {
		return Rule{}, errs.New(errs.CodeParse, "expected => after matcher")
	}
	c.Next()
	if !c.PeekPunct('>') {
		return Rule{}, errs.New(errs.CodeParse, "expected => after matcher")
	}
	c.Next()
	tTree, ok := c.Next()
	tGroup, isGroup := tTree.(token.Group)
	if !ok || !isGroup {
		return Rule{}, errs.New(errs.CodeParse, "expected transcriber group")
	}
	// rules are separated by ; with an optional trailing one
	if c.PeekPunct(';') {
		c.Next()
	}
	matcher, err := parsePattern(mGroup.Stream)
	if err != nil {
		return Rule{}, err
	}
	return Rule{matcher: matcher, transcriber: tGroup.Stream}, nil
}

func parsePattern(s token.Stream) ([]node, error) {
	c := token.NewCursor(s)
	var out []node
	for {
		tree, ok := c.Next()
		if !ok {
			return out, nil
		}
		p, isPunct := tree.(token.Punct)
		if isPunct && p.Ch == '$' {
			n, err := parseDollar(c)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
			continue
		}
		if g, isGroup := tree.(token.Group); isGroup {
			inner, err := parsePattern(g.Stream)
			if err != nil {
				return nil, err
			}
			out = append(out, group{delim: g.Delim, inner: inner})
			continue
		}
		out = append(out, literalTok{tree: tree})
	}
}

func parseDollar(c *token.Cursor) (node, error) {
	tree, ok := c.Next()
	if !ok {
		return nil, errs.New(errs.CodeParse, "dangling $ in matcher")
	}
	switch t := tree.(type) {
	case token.Ident:
		if !c.PeekPunct(':') {
			return nil, errs.Newf(errs.CodeParse, "expected :kind after $%s", t.Text)
		}
		c.Next()
		kindTree, ok := c.Next()
		kindIdent, isIdent := kindTree.(token.Ident)
		if !ok || !isIdent {
			return nil, errs.Newf(errs.CodeParse, "expected fragment kind after $%s:", t.Text)
		}
		kind, known := fragKinds[kindIdent.Text]
		if !known {
			return nil, errs.Newf(errs.CodeUnimplemented, "fragment kind %q", kindIdent.Text)
		}
		return fragment{name: t.Text, kind: kind}, nil
	case token.Group:
		if t.Delim != token.DelimParen {
			return nil, errs.New(errs.CodeParse, "expected ( after $ for repetition")
		}
		inner, err := parsePattern(t.Stream)
		if err != nil {
			return nil, err
		}
		sep, quant, err := parseRepSuffix(c)
		if err != nil {
			return nil, err
		}
		return repetition{inner: inner, sep: sep, quant: quant}, nil
	default:
		return nil, errs.New(errs.CodeParse, "expected name or ( after $")
	}
}

// parseRepSuffix reads the optional separator tokens and the repetition
// operator after `$(...)`. Joint puncts like => make multi-token separators.
func parseRepSuffix(c *token.Cursor) ([]token.Tree, Quant, error) {
	var sep []token.Tree
	for {
		tree, ok := c.Next()
		if !ok {
			return nil, 0, errs.New(errs.CodeParse, "repetition missing *, + or ?")
		}
		if p, isPunct := tree.(token.Punct); isPunct {
			switch p.Ch {
			case '*':
				return sep, QuantStar, nil
			case '+':
				return sep, QuantPlus, nil
			case '?':
				return sep, QuantQuestion, nil
			}
		}
		sep = append(sep, tree)
	}
}
