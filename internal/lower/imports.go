// # internal/lower/imports.go
package lower

import (
	errs "crateview/internal/core/errors"
	"crateview/internal/ident"
	"crateview/internal/item"
	"crateview/internal/token"
)

// LowerUse flattens a use tree into a module scope: named imports and globs,
// each into the pub or non-pub table depending on the declaration.
func LowerUse(scope *item.ModuleScope, vis item.Visibility, useTree token.Stream) error {
	c := token.NewCursor(useTree)
	rooted := false
	if peekDoubleColon(c) {
		c.Next()
		c.Next()
		rooted = true
	}
	if err := lowerUseTree(scope, vis, nil, rooted, c); err != nil {
		return err
	}
	if !c.Done() {
		return errs.Newf(errs.CodeParse, "trailing tokens in use tree: %s", c.Rest())
	}
	return nil
}

func lowerUseTree(scope *item.ModuleScope, vis item.Visibility, prefix []string, rooted bool, c *token.Cursor) error {
	segs := append([]string(nil), prefix...)
	for {
		tree, ok := c.Next()
		if !ok {
			return addNamed(scope, vis, rooted, segs, "")
		}
		switch t := tree.(type) {
		case token.Ident:
			if t.Text == "as" {
				aliasTree, ok := c.Next()
				alias, isIdent := aliasTree.(token.Ident)
				if !ok || !isIdent {
					return errs.New(errs.CodeParse, "expected identifier after as in use tree")
				}
				return addNamed(scope, vis, rooted, segs, alias.Text)
			}
			segs = append(segs, t.Text)
			if !peekDoubleColon(c) {
				return addNamed(scope, vis, rooted, segs, "")
			}
			c.Next()
			c.Next()
		case token.Punct:
			if t.Ch == '*' {
				return addGlob(scope, vis, rooted, segs)
			}
			return errs.Newf(errs.CodeParse, "unexpected token in use tree: %s", token.Stream{tree})
		case token.Group:
			if t.Delim != token.DelimBrace {
				return errs.New(errs.CodeParse, "unexpected group in use tree")
			}
			for _, part := range splitCommas(t.Stream) {
				if len(part) == 0 {
					continue
				}
				sub := token.NewCursor(part)
				if err := lowerUseTree(scope, vis, segs, rooted, sub); err != nil {
					return err
				}
			}
			return nil
		}
	}
}

func addNamed(scope *item.ModuleScope, vis item.Visibility, rooted bool, segs []string, alias string) error {
	if len(segs) == 0 {
		return errs.New(errs.CodeParse, "empty use path")
	}
	name := alias
	// `use a::b::self` binds b
	if segs[len(segs)-1] == "self" {
		segs = segs[:len(segs)-1]
		if len(segs) == 0 {
			return errs.New(errs.CodeParse, "bare self in use path")
		}
	}
	if name == "" {
		name = segs[len(segs)-1]
	}
	target := item.Unresolved(ident.NewUnresolvedPath(rooted, segs...))
	if vis == item.Pub {
		scope.PubImports[name] = target
	} else {
		scope.Imports[name] = target
	}
	return nil
}

func addGlob(scope *item.ModuleScope, vis item.Visibility, rooted bool, segs []string) error {
	if len(segs) == 0 {
		return errs.New(errs.CodeParse, "bare glob in use path")
	}
	target := item.Unresolved(ident.NewUnresolvedPath(rooted, segs...))
	if vis == item.Pub {
		scope.PubGlobImports = append(scope.PubGlobImports, target)
	} else {
		scope.GlobImports = append(scope.GlobImports, target)
	}
	return nil
}
