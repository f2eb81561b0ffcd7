// # internal/lower/attributes.go
package lower

import (
	"log/slog"
	"strings"

	errs "crateview/internal/core/errors"
	"crateview/internal/token"
)

type MetaKind int

const (
	MetaPath MetaKind = iota
	MetaAssign
	MetaCall
)

// Meta is a parsed attribute body: `path`, `path = value` or `path(args)`.
type Meta struct {
	Path  []string
	Kind  MetaKind
	Value string    // assign: the literal text, quotes stripped for strings
	Args  []MetaArg // call arguments in order
}

type MetaArg struct {
	Meta *Meta
	Lit  string
}

func (m *Meta) Ident() string {
	if len(m.Path) == 1 {
		return m.Path[0]
	}
	return ""
}

// ParseMeta parses the token stream inside #[...].
func ParseMeta(s token.Stream) (*Meta, error) {
	c := token.NewCursor(s)
	m, err := parseMeta(c)
	if err != nil {
		return nil, err
	}
	if !c.Done() {
		return nil, errs.Newf(errs.CodeParse, "trailing tokens in attribute: %s", c.Rest())
	}
	return m, nil
}

func parseMeta(c *token.Cursor) (*Meta, error) {
	m := &Meta{}
	for {
		tree, ok := c.Next()
		if !ok {
			return nil, errs.New(errs.CodeParse, "empty attribute path")
		}
		id, isIdent := tree.(token.Ident)
		if !isIdent {
			return nil, errs.Newf(errs.CodeParse, "expected attribute path segment, found %s", token.Stream{tree})
		}
		m.Path = append(m.Path, id.Text)
		if !peekDoubleColon(c) {
			break
		}
		c.Next()
		c.Next()
	}

	next, ok := c.Peek()
	if !ok {
		return m, nil
	}
	switch next := next.(type) {
	case token.Punct:
		if next.Ch != '=' {
			return m, nil
		}
		c.Next()
		val, ok := c.Next()
		if !ok {
			return nil, errs.New(errs.CodeParse, "expected value after = in attribute")
		}
		m.Kind = MetaAssign
		m.Value = literalText(val)
		return m, nil
	case token.Group:
		if next.Delim != token.DelimParen {
			return m, nil
		}
		c.Next()
		m.Kind = MetaCall
		args, err := parseMetaArgs(next.Stream)
		if err != nil {
			return nil, err
		}
		m.Args = args
		return m, nil
	}
	return m, nil
}

func parseMetaArgs(s token.Stream) ([]MetaArg, error) {
	var args []MetaArg
	for _, part := range splitCommas(s) {
		if len(part) == 0 {
			continue
		}
		if lit, isLit := part[0].(token.Literal); isLit && len(part) == 1 {
			args = append(args, MetaArg{Lit: literalText(lit)})
			continue
		}
		m, err := ParseMeta(part)
		if err != nil {
			return nil, err
		}
		args = append(args, MetaArg{Meta: m})
	}
	return args, nil
}

func splitCommas(s token.Stream) []token.Stream {
	var parts []token.Stream
	cur := token.Stream{}
	for _, t := range s {
		if p, isPunct := t.(token.Punct); isPunct && p.Ch == ',' {
			parts = append(parts, cur)
			cur = token.Stream{}
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		parts = append(parts, cur)
	}
	return parts
}

func peekDoubleColon(c *token.Cursor) bool {
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

func literalText(t token.Tree) string {
	switch t := t.(type) {
	case token.Literal:
		return strings.Trim(t.Text, `"`)
	case token.Ident:
		return t.Text
	}
	return ""
}

// InterpCfg evaluates a cfg attribute body against the enabled feature set.
// Unknown predicates log a warning and evaluate false, so unrecognized
// configurations drop items instead of inventing them.
func InterpCfg(m *Meta, features []string) bool {
	switch m.Kind {
	case MetaPath:
		return false
	case MetaAssign:
		if m.Ident() == "feature" {
			for _, f := range features {
				if f == m.Value {
					return true
				}
			}
		}
		return false
	case MetaCall:
		switch m.Ident() {
		case "not":
			if len(m.Args) == 0 || m.Args[0].Meta == nil {
				return false
			}
			return !InterpCfg(m.Args[0].Meta, features)
		case "all":
			for _, arg := range m.Args {
				if arg.Meta == nil || !InterpCfg(arg.Meta, features) {
					return false
				}
			}
			return true
		case "any":
			for _, arg := range m.Args {
				if arg.Meta != nil && InterpCfg(arg.Meta, features) {
					return true
				}
			}
			return false
		default:
			slog.Warn("unknown cfg op", "op", m.Ident())
			return false
		}
	}
	return false
}
