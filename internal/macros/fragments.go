// # internal/macros/fragments.go
package macros

import (
	errs "crateview/internal/core/errors"
	"crateview/internal/token"
)

// consumeFragment consumes the tokens of one syntactic fragment. Expression,
// type and pattern fragments are scanned by their legal follow sets rather
// than fully parsed; groups keep their contents balanced for free, and angle
// brackets are depth-tracked.
func consumeFragment(kind FragKind, c *token.Cursor) (token.Stream, error) {
	switch kind {
	case FragIdent:
		return consumeIdent(c)
	case FragLiteral:
		return consumeLiteralFrag(c)
	case FragLifetime:
		return consumeLifetime(c)
	case FragTT:
		return consumeTT(c)
	case FragBlock:
		return consumeBlock(c)
	case FragVis:
		return consumeVis(c)
	case FragPath:
		return consumePath(c)
	case FragMeta:
		return consumeMeta(c)
	case FragExpr:
		return consumeUntilFollow(c, exprFollow, nil, false)
	case FragTy:
		return consumeUntilFollow(c, tyFollow, []string{"where", "as"}, true)
	case FragPat:
		return consumeUntilFollow(c, patFollow, []string{"if", "in"}, false)
	case FragStmt:
		return consumeStmt(c)
	case FragItem:
		return consumeItem(c)
	}
	return nil, errs.New(errs.CodeInternal, "unknown fragment kind")
}

func consumeIdent(c *token.Cursor) (token.Stream, error) {
	tree, ok := c.Next()
	if !ok {
		return nil, errs.New(errs.CodeMacroMatch, "expected identifier, found end of input")
	}
	if _, isIdent := tree.(token.Ident); !isIdent {
		return nil, errs.Newf(errs.CodeMacroMatch, "expected identifier, found %s", token.Stream{tree})
	}
	return token.Stream{tree}, nil
}

func consumeLiteralFrag(c *token.Cursor) (token.Stream, error) {
	// a literal may carry a leading minus
	if c.PeekPunct('-') {
		neg, _ := c.Next()
		tree, ok := c.Next()
		if _, isLit := tree.(token.Literal); !ok || !isLit {
			return nil, errs.New(errs.CodeMacroMatch, "expected literal after -")
		}
		return token.Stream{neg, tree}, nil
	}
	tree, ok := c.Next()
	if !ok {
		return nil, errs.New(errs.CodeMacroMatch, "expected literal, found end of input")
	}
	if _, isLit := tree.(token.Literal); !isLit {
		return nil, errs.Newf(errs.CodeMacroMatch, "expected literal, found %s", token.Stream{tree})
	}
	return token.Stream{tree}, nil
}

func consumeLifetime(c *token.Cursor) (token.Stream, error) {
	if !c.PeekPunct('\'') {
		return nil, errs.New(errs.CodeMacroMatch, "expected lifetime")
	}
	quote, _ := c.Next()
	name, ok := c.Next()
	if _, isIdent := name.(token.Ident); !ok || !isIdent {
		return nil, errs.New(errs.CodeMacroMatch, "expected lifetime name")
	}
	return token.Stream{quote, name}, nil
}

func consumeTT(c *token.Cursor) (token.Stream, error) {
	tree, ok := c.Next()
	if !ok {
		return nil, errs.New(errs.CodeMacroMatch, "expected token tree, found end of input")
	}
	return token.Stream{tree}, nil
}

func consumeBlock(c *token.Cursor) (token.Stream, error) {
	tree, ok := c.Next()
	if !ok {
		return nil, errs.New(errs.CodeMacroMatch, "expected block, found end of input")
	}
	g, isGroup := tree.(token.Group)
	if !isGroup || g.Delim != token.DelimBrace {
		return nil, errs.Newf(errs.CodeMacroMatch, "expected block, found %s", token.Stream{tree})
	}
	return token.Stream{tree}, nil
}

// consumeVis matches `pub`, `pub(...)` or nothing; an empty visibility is a
// successful zero-token match.
func consumeVis(c *token.Cursor) (token.Stream, error) {
	if !c.PeekIdent("pub") {
		return token.Stream{}, nil
	}
	pub, _ := c.Next()
	if next, ok := c.Peek(); ok {
		if g, isGroup := next.(token.Group); isGroup && g.Delim == token.DelimParen {
			c.Next()
			return token.Stream{pub, next}, nil
		}
	}
	return token.Stream{pub}, nil
}

// consumePath matches a (possibly rooted) path with optional angle-bracket
// argument lists after segments.
func consumePath(c *token.Cursor) (token.Stream, error) {
	var out token.Stream
	if c.PeekPunct(':') {
		colon1, _ := c.Next()
		if !c.PeekPunct(':') {
			return nil, errs.New(errs.CodeMacroMatch, "expected path")
		}
		colon2, _ := c.Next()
		out = append(out, colon1, colon2)
	}
	for {
		seg, ok := c.Next()
		if _, isIdent := seg.(token.Ident); !ok || !isIdent {
			return nil, errs.New(errs.CodeMacroMatch, "expected path segment")
		}
		out = append(out, seg)
		if c.PeekPunct('<') {
			args, err := consumeAngles(c)
			if err != nil {
				return nil, err
			}
			out = append(out, args...)
		}
		if !peekPathSep(c) {
			return out, nil
		}
		colon1, _ := c.Next()
		colon2, _ := c.Next()
		out = append(out, colon1, colon2)
	}
}

func peekPathSep(c *token.Cursor) bool {
	first, ok := c.Peek()
	if !ok {
		return false
	}
	p1, isPunct := first.(token.Punct)
	if !isPunct || p1.Ch != ':' {
		return false
	}
	second, ok := c.PeekAt(1)
	if !ok {
		return false
	}
	p2, isPunct := second.(token.Punct)
	return isPunct && p2.Ch == ':'
}

// consumeAngles consumes a balanced <...> run starting at the cursor.
func consumeAngles(c *token.Cursor) (token.Stream, error) {
	var out token.Stream
	depth := 0
	for {
		tree, ok := c.Next()
		if !ok {
			return nil, errs.New(errs.CodeMacroMatch, "unclosed angle brackets")
		}
		out = append(out, tree)
		if p, isPunct := tree.(token.Punct); isPunct {
			switch p.Ch {
			case '<':
				depth++
			case '>':
				depth--
				if depth == 0 {
					return out, nil
				}
			}
		}
	}
}

// consumeMeta matches an attribute body: a path, optionally followed by a
// parenthesized argument list or `= value`.
func consumeMeta(c *token.Cursor) (token.Stream, error) {
	out, err := consumePath(c)
	if err != nil {
		return nil, err
	}
	if next, ok := c.Peek(); ok {
		if g, isGroup := next.(token.Group); isGroup && g.Delim == token.DelimParen {
			c.Next()
			return append(out, next), nil
		}
	}
	if c.PeekPunct('=') {
		eq, _ := c.Next()
		val, ok := c.Next()
		if !ok {
			return nil, errs.New(errs.CodeMacroMatch, "expected value after = in meta")
		}
		return append(out, eq, val), nil
	}
	return out, nil
}

type followFunc func(p token.Punct, c *token.Cursor) bool

// exprFollow stops an expression at , ; or => outside any bracket nesting.
func exprFollow(p token.Punct, c *token.Cursor) bool {
	switch p.Ch {
	case ',', ';':
		return true
	case '=':
		if next, ok := c.PeekAt(1); ok {
			if np, isPunct := next.(token.Punct); isPunct && np.Ch == '>' && p.Joint {
				return true
			}
		}
	}
	return false
}

// tyFollow stops a type at , ; => = : or the keywords where/as.
func tyFollow(p token.Punct, c *token.Cursor) bool {
	switch p.Ch {
	case ',', ';', ':':
		return true
	case '=':
		if next, ok := c.PeekAt(1); ok {
			if np, isPunct := next.(token.Punct); isPunct && np.Ch == '>' && p.Joint {
				return true
			}
		}
		return true
	}
	return false
}

// patFollow stops a pattern at , ; => = or the keywords if/in.
func patFollow(p token.Punct, c *token.Cursor) bool {
	switch p.Ch {
	case ',', ';':
		return true
	case '=':
		if next, ok := c.PeekAt(1); ok {
			if np, isPunct := next.(token.Punct); isPunct && np.Ch == '>' && p.Joint {
				return true
			}
		}
		return true
	}
	return false
}

// consumeUntilFollow scans at least one token and stops when a follow token
// or stop keyword shows up at angle depth zero. Angle brackets only nest
// when trackAngles is set (types) or after a turbofish :: (expressions).
func consumeUntilFollow(c *token.Cursor, follow followFunc, stopIdents []string, trackAngles bool) (token.Stream, error) {
	var out token.Stream
	angleDepth := 0
	for {
		tree, ok := c.Peek()
		if !ok {
			break
		}
		if p, isPunct := tree.(token.Punct); isPunct {
			if p.Ch == '<' && (trackAngles || endsWithPathSep(out)) {
				angleDepth++
			} else if p.Ch == '>' && angleDepth > 0 {
				angleDepth--
			} else if angleDepth == 0 && follow(p, c) {
				break
			}
		}
		if id, isIdent := tree.(token.Ident); isIdent && angleDepth == 0 && len(out) > 0 {
			stopped := false
			for _, s := range stopIdents {
				if id.Text == s {
					stopped = true
					break
				}
			}
			if stopped {
				break
			}
		}
		c.Next()
		out = append(out, tree)
	}
	if len(out) == 0 {
		return nil, errs.New(errs.CodeMacroMatch, "expected fragment, found end of input or follow token")
	}
	return out, nil
}

func endsWithPathSep(s token.Stream) bool {
	if len(s) < 2 {
		return false
	}
	p1, ok1 := s[len(s)-2].(token.Punct)
	p2, ok2 := s[len(s)-1].(token.Punct)
	return ok1 && ok2 && p1.Ch == ':' && p2.Ch == ':'
}

// consumeStmt takes tokens through the terminating semicolon, or to the end
// of the stream for a trailing expression statement.
func consumeStmt(c *token.Cursor) (token.Stream, error) {
	var out token.Stream
	for {
		tree, ok := c.Next()
		if !ok {
			break
		}
		out = append(out, tree)
		if p, isPunct := tree.(token.Punct); isPunct && p.Ch == ';' {
			break
		}
	}
	if len(out) == 0 {
		return nil, errs.New(errs.CodeMacroMatch, "expected statement, found end of input")
	}
	return out, nil
}

// consumeItem takes an item: leading attributes and visibility, then tokens
// up to and including either a top-level semicolon or the first brace group.
func consumeItem(c *token.Cursor) (token.Stream, error) {
	var out token.Stream
	for c.PeekPunct('#') {
		hash, _ := c.Next()
		out = append(out, hash)
		if bracket, ok := c.Peek(); ok {
			if g, isGroup := bracket.(token.Group); isGroup && g.Delim == token.DelimBracket {
				c.Next()
				out = append(out, bracket)
			}
		}
	}
	for {
		tree, ok := c.Next()
		if !ok {
			break
		}
		out = append(out, tree)
		if p, isPunct := tree.(token.Punct); isPunct && p.Ch == ';' {
			return out, nil
		}
		if g, isGroup := tree.(token.Group); isGroup && g.Delim == token.DelimBrace {
			return out, nil
		}
	}
	if len(out) == 0 {
		return nil, errs.New(errs.CodeMacroMatch, "expected item, found end of input")
	}
	return out, nil
}
