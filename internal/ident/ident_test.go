// # internal/ident/ident_test.go
package ident

import "testing"

func TestCrateIDNormalization(t *testing.T) {
	c := NewCrateID("serde-json", "1.0.0")
	if c.Name != "serde_json" {
		t.Errorf("expected serde_json, got %s", c.Name)
	}
	if c.String() != "serde_json[1.0.0]" {
		t.Errorf("unexpected String: %s", c.String())
	}
}

func TestPathOperations(t *testing.T) {
	crate := NewCrateID("demo", "0.1.0")
	root := NewPath(crate)
	if root.Name() != "demo" {
		t.Errorf("root name = %s", root.Name())
	}
	if !root.Parent().Equal(root) {
		t.Error("crate root should be its own parent")
	}

	inner := root.Join("a").Join("b")
	if inner.String() != "demo[0.1.0]::a::b" {
		t.Errorf("unexpected String: %s", inner.String())
	}
	if inner.Name() != "b" {
		t.Errorf("name = %s", inner.Name())
	}
	if !inner.Parent().Equal(root.Join("a")) {
		t.Error("parent of a::b should be a")
	}
}

func TestJoinDoesNotAlias(t *testing.T) {
	crate := NewCrateID("demo", "0.1.0")
	base := NewPath(crate, "m")
	p1 := base.Join("x")
	p2 := base.Join("y")
	if p1.Segs[1] != "x" || p2.Segs[1] != "y" {
		t.Errorf("joined paths share backing storage: %v, %v", p1.Segs, p2.Segs)
	}
}

func TestPathKeyDistinguishesSegmentBoundaries(t *testing.T) {
	crate := NewCrateID("demo", "0.1.0")
	a := NewPath(crate, "ab", "c")
	b := NewPath(crate, "a", "bc")
	if a.Key() == b.Key() {
		t.Error("distinct paths must have distinct keys")
	}
}

func TestSpanString(t *testing.T) {
	s := Span{File: "src/lib.rs", StartRow: 4, StartCol: 0}
	if s.String() != "src/lib.rs:5:1" {
		t.Errorf("span = %s", s.String())
	}
	s.Macro = "make_struct"
	s.MacroFile = "src/macros.rs"
	if s.String() != "src/lib.rs:5:1 (expanded from make_struct! in src/macros.rs)" {
		t.Errorf("macro span = %s", s.String())
	}
}
