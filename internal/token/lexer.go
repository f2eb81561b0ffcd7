// # internal/token/lexer.go
package token

import (
	"unicode"
	"unicode/utf8"

	errs "crateview/internal/core/errors"
)

// Lex tokenizes a slice of Rust source into a tree stream. Tree-sitter hands
// us a CST; macro matching needs flat token trees with spacing, so attribute
// bodies, use trees and macro bodies are re-lexed from their byte ranges.
func Lex(src []byte) (Stream, error) {
	l := &lexer{src: src}
	s, err := l.stream(0)
	if err != nil {
		return nil, err
	}
	if l.pos < len(l.src) {
		return nil, errs.Newf(errs.CodeLex, "unbalanced closing delimiter %q", string(l.src[l.pos]))
	}
	return s, nil
}

type lexer struct {
	src []byte
	pos int
}

func (l *lexer) stream(closeCh byte) (Stream, error) {
	var out Stream
	for {
		if err := l.skipTrivia(); err != nil {
			return nil, err
		}
		if l.pos >= len(l.src) {
			if closeCh != 0 {
				return nil, errs.Newf(errs.CodeLex, "unclosed delimiter, expected %q", string(closeCh))
			}
			return out, nil
		}
		c := l.src[l.pos]
		switch {
		case c == closeCh:
			l.pos++
			return out, nil
		case c == ')' || c == ']' || c == '}':
			if closeCh == 0 {
				return nil, errs.Newf(errs.CodeLex, "unbalanced closing delimiter %q", string(c))
			}
			return nil, errs.Newf(errs.CodeLex, "mismatched delimiter %q, expected %q", string(c), string(closeCh))
		case c == '(' || c == '[' || c == '{':
			off := l.pos
			l.pos++
			inner, err := l.stream(matchingClose(c))
			if err != nil {
				return nil, err
			}
			out = append(out, Group{Delim: delimFor(c), Stream: inner, Offset: off})
		case c == '"':
			lit, err := l.stringLit()
			if err != nil {
				return nil, err
			}
			out = append(out, lit)
		case c == '\'':
			trees, err := l.quote()
			if err != nil {
				return nil, err
			}
			out = append(out, trees...)
		case c >= '0' && c <= '9':
			out = append(out, l.number())
		case isIdentStart(rune(c)) || c >= utf8.RuneSelf:
			tree, err := l.identOrPrefixed()
			if err != nil {
				return nil, err
			}
			out = append(out, tree)
		default:
			off := l.pos
			l.pos++
			joint := l.pos < len(l.src) && isPunctByte(l.src[l.pos])
			out = append(out, Punct{Ch: c, Joint: joint, Offset: off})
		}
	}
}

func (l *lexer) skipTrivia() error {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.pos++
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			depth := 1
			l.pos += 2
			for l.pos < len(l.src) && depth > 0 {
				if l.src[l.pos] == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*' {
					depth++
					l.pos += 2
				} else if l.src[l.pos] == '*' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/' {
					depth--
					l.pos += 2
				} else {
					l.pos++
				}
			}
			if depth > 0 {
				return errs.New(errs.CodeLex, "unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

// quote handles the lifetime/char-literal ambiguity. 'a' is a char literal,
// 'a without a trailing quote is a lifetime (punct + joint ident).
func (l *lexer) quote() (Stream, error) {
	off := l.pos
	if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\\' {
		return Stream{l.charLit(off)}, nil
	}
	// scan an ident after the quote; if a closing quote follows a single
	// rune, this was a char literal all along
	r, size := utf8.DecodeRune(l.src[l.pos+1:])
	if isIdentStart(r) {
		end := l.pos + 1 + size
		for end < len(l.src) {
			r2, s2 := utf8.DecodeRune(l.src[end:])
			if !isIdentContinue(r2) {
				break
			}
			end += s2
		}
		if end < len(l.src) && l.src[end] == '\'' && end == l.pos+1+size {
			return Stream{l.charLit(off)}, nil
		}
		l.pos = end
		return Stream{
			Punct{Ch: '\'', Joint: true, Offset: off},
			Ident{Text: string(l.src[off+1 : end]), Offset: off + 1},
		}, nil
	}
	return Stream{l.charLit(off)}, nil
}

func (l *lexer) charLit(off int) Literal {
	l.pos++ // opening quote
	for l.pos < len(l.src) {
		if l.src[l.pos] == '\\' {
			l.pos += 2
			continue
		}
		if l.src[l.pos] == '\'' {
			l.pos++
			break
		}
		l.pos++
	}
	return Literal{Text: string(l.src[off:l.pos]), Offset: off}
}

func (l *lexer) stringLit() (Literal, error) {
	off := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
		case '"':
			l.pos++
			return Literal{Text: string(l.src[off:l.pos]), Offset: off}, nil
		default:
			l.pos++
		}
	}
	return Literal{}, errs.New(errs.CodeLex, "unterminated string literal")
}

func (l *lexer) rawStringLit(off int) (Literal, error) {
	// positioned after the leading r/br; count hashes
	hashes := 0
	for l.pos < len(l.src) && l.src[l.pos] == '#' {
		hashes++
		l.pos++
	}
	if l.pos >= len(l.src) || l.src[l.pos] != '"' {
		return Literal{}, errs.New(errs.CodeLex, "malformed raw string literal")
	}
	l.pos++
	for l.pos < len(l.src) {
		if l.src[l.pos] == '"' {
			end := l.pos + 1
			n := 0
			for end < len(l.src) && n < hashes && l.src[end] == '#' {
				n++
				end++
			}
			if n == hashes {
				l.pos = end
				return Literal{Text: string(l.src[off:l.pos]), Offset: off}, nil
			}
		}
		l.pos++
	}
	return Literal{}, errs.New(errs.CodeLex, "unterminated raw string literal")
}

func (l *lexer) number() Literal {
	off := l.pos
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c >= '0' && c <= '9' || c == '_' ||
			c >= 'a' && c <= 'z' && c != 'e' || c >= 'A' && c <= 'Z' && c != 'E':
			l.pos++
		case c == 'e' || c == 'E':
			l.pos++
			if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') &&
				l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9' {
				l.pos++
			}
		case c == '.':
			// 1..2 is a range, 1.0 is a float
			if l.pos+1 < len(l.src) && l.src[l.pos+1] >= '0' && l.src[l.pos+1] <= '9' {
				l.pos++
			} else {
				return Literal{Text: string(l.src[off:l.pos]), Offset: off}
			}
		default:
			return Literal{Text: string(l.src[off:l.pos]), Offset: off}
		}
	}
	return Literal{Text: string(l.src[off:l.pos]), Offset: off}
}

func (l *lexer) identOrPrefixed() (Tree, error) {
	off := l.pos
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRune(l.src[l.pos:])
		if !isIdentContinue(r) {
			break
		}
		l.pos += size
	}
	text := string(l.src[off:l.pos])
	if l.pos < len(l.src) {
		next := l.src[l.pos]
		switch text {
		case "r", "br", "rb":
			if next == '"' || next == '#' {
				if text == "r" && next == '#' && l.pos+1 < len(l.src) && isIdentStart(rune(l.src[l.pos+1])) {
					// r#raw_ident
					l.pos++
					start := l.pos
					for l.pos < len(l.src) {
						r, size := utf8.DecodeRune(l.src[l.pos:])
						if !isIdentContinue(r) {
							break
						}
						l.pos += size
					}
					return Ident{Text: string(l.src[start:l.pos]), Offset: off}, nil
				}
				return l.rawStringLit(off)
			}
		case "b":
			if next == '"' {
				lit, err := l.stringLit()
				if err != nil {
					return nil, err
				}
				lit.Text = "b" + lit.Text
				lit.Offset = off
				return lit, nil
			}
			if next == '\'' {
				lit := l.charLit(l.pos)
				lit.Text = "b" + lit.Text
				lit.Offset = off
				return lit, nil
			}
		}
	}
	return Ident{Text: text, Offset: off}, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isPunctByte(c byte) bool {
	switch c {
	case '!', '#', '$', '%', '&', '*', '+', ',', '-', '.', '/', ':', ';',
		'<', '=', '>', '?', '@', '^', '|', '~', '\'':
		return true
	}
	return false
}

func delimFor(open byte) Delim {
	switch open {
	case '(':
		return DelimParen
	case '[':
		return DelimBracket
	case '{':
		return DelimBrace
	}
	return DelimNone
}

func matchingClose(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	case '{':
		return '}'
	}
	return 0
}
