// # internal/ident/ident.go
package ident

import (
	"fmt"
	"strings"
)

// CrateID identifies a crate by its Cargo package name and pinned version.
// Dependency names are normalized ("-" becomes "_") before they get here.
type CrateID struct {
	Name    string
	Version string
}

func NewCrateID(name, version string) CrateID {
	return CrateID{Name: strings.ReplaceAll(name, "-", "_"), Version: version}
}

func (c CrateID) String() string {
	return c.Name + "[" + c.Version + "]"
}

// Key is the stable map key form of a crate id.
func (c CrateID) Key() string {
	return c.Name + "\x00" + c.Version
}

// Path is an absolute path into a crate's module tree: crate root plus zero
// or more module/item segments.
type Path struct {
	Crate CrateID
	Segs  []string
}

func NewPath(crate CrateID, segs ...string) Path {
	return Path{Crate: crate, Segs: append([]string(nil), segs...)}
}

// Join returns a new path with seg appended. The receiver is not modified.
func (p Path) Join(seg string) Path {
	segs := make([]string, 0, len(p.Segs)+1)
	segs = append(segs, p.Segs...)
	segs = append(segs, seg)
	return Path{Crate: p.Crate, Segs: segs}
}

// Parent returns the path with its last segment removed. The crate root is
// its own parent.
func (p Path) Parent() Path {
	if len(p.Segs) == 0 {
		return p
	}
	return Path{Crate: p.Crate, Segs: append([]string(nil), p.Segs[:len(p.Segs)-1]...)}
}

// Clone returns a path whose segment slice does not alias the receiver's.
func (p Path) Clone() Path {
	return Path{Crate: p.Crate, Segs: append([]string(nil), p.Segs...)}
}

func (p Path) Name() string {
	if len(p.Segs) == 0 {
		return p.Crate.Name
	}
	return p.Segs[len(p.Segs)-1]
}

func (p Path) String() string {
	if len(p.Segs) == 0 {
		return p.Crate.String()
	}
	return p.Crate.String() + "::" + strings.Join(p.Segs, "::")
}

// Key is the stable map key form used by the database namespaces.
func (p Path) Key() string {
	return p.Crate.Key() + "\x00" + strings.Join(p.Segs, "\x00")
}

// Equal reports segment-wise equality including the crate id.
func (p Path) Equal(o Path) bool {
	if p.Crate != o.Crate || len(p.Segs) != len(o.Segs) {
		return false
	}
	for i := range p.Segs {
		if p.Segs[i] != o.Segs[i] {
			return false
		}
	}
	return true
}

// UnresolvedPath is a path as written in source, not yet anchored to a crate.
// Rooted records a leading "::".
type UnresolvedPath struct {
	Rooted bool
	Segs   []string
}

func NewUnresolvedPath(rooted bool, segs ...string) UnresolvedPath {
	return UnresolvedPath{Rooted: rooted, Segs: append([]string(nil), segs...)}
}

func (u UnresolvedPath) String() string {
	s := strings.Join(u.Segs, "::")
	if u.Rooted {
		return "::" + s
	}
	return s
}

// Span locates a declaration in a source file. Rows and columns are
// zero-based, matching tree-sitter positions.
type Span struct {
	File      string
	StartRow  uint
	StartCol  uint
	EndRow    uint
	EndCol    uint
	Macro     string // invocation that produced this item, if any
	MacroFile string
}

func (s Span) String() string {
	if s.Macro != "" {
		return fmt.Sprintf("%s:%d:%d (expanded from %s! in %s)", s.File, s.StartRow+1, s.StartCol+1, s.Macro, s.MacroFile)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartRow+1, s.StartCol+1)
}
