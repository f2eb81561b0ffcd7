// # internal/token/cursor.go
package token

// Cursor walks a stream. Forking is a cheap index copy, which is what makes
// speculative matching in the macro interpreter affordable.
type Cursor struct {
	stream Stream
	pos    int
}

func NewCursor(s Stream) *Cursor {
	return &Cursor{stream: s}
}

// Fork returns an independent cursor at the same position over the same
// backing stream.
func (c *Cursor) Fork() *Cursor {
	return &Cursor{stream: c.stream, pos: c.pos}
}

// CommitTo adopts the position of a fork that consumed successfully.
func (c *Cursor) CommitTo(f *Cursor) {
	c.pos = f.pos
}

// Next consumes and returns the next tree.
func (c *Cursor) Next() (Tree, bool) {
	if c.pos >= len(c.stream) {
		return nil, false
	}
	t := c.stream[c.pos]
	c.pos++
	return t, true
}

// Peek returns the next tree without consuming it.
func (c *Cursor) Peek() (Tree, bool) {
	if c.pos >= len(c.stream) {
		return nil, false
	}
	return c.stream[c.pos], true
}

// PeekAt returns the tree n positions ahead of the cursor.
func (c *Cursor) PeekAt(n int) (Tree, bool) {
	if c.pos+n >= len(c.stream) {
		return nil, false
	}
	return c.stream[c.pos+n], true
}

func (c *Cursor) Done() bool {
	return c.pos >= len(c.stream)
}

// Rest returns the unconsumed tail of the stream.
func (c *Cursor) Rest() Stream {
	return c.stream[c.pos:]
}

// PeekIdent reports whether the next tree is the given identifier.
func (c *Cursor) PeekIdent(text string) bool {
	t, ok := c.Peek()
	if !ok {
		return false
	}
	id, ok := t.(Ident)
	return ok && id.Text == text
}

// PeekPunct reports whether the next tree is the given punct character.
func (c *Cursor) PeekPunct(ch byte) bool {
	t, ok := c.Peek()
	if !ok {
		return false
	}
	p, ok := t.(Punct)
	return ok && p.Ch == ch
}
