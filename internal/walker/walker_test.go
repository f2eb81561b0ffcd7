// # internal/walker/walker_test.go
package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateview/internal/db"
	"crateview/internal/ident"
	"crateview/internal/item"
	"crateview/internal/manifest"
	"crateview/internal/parser"
)

var demoID = ident.NewCrateID("demo", "0.1.0")

// writeCrate lays out source files under a temp dir; keys are slash paths
// relative to the crate root.
func writeCrate(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

func demoData(dir string) *manifest.CrateData {
	return &manifest.CrateData{
		ID:       demoID,
		Deps:     map[string]ident.CrateID{},
		Features: []string{"default"},
		Entry:    filepath.Join(dir, "src", "lib.rs"),
		Edition:  "2018",
	}
}

func walkDemo(t *testing.T, files map[string]string, workers int) (*db.Database, *CrateState) {
	t.Helper()
	dir := writeCrate(t, files)
	d := db.NewDatabase()
	w := New(d, parser.New(), workers)
	state, err := w.WalkCrate(context.Background(), demoData(dir))
	require.NoError(t, err)
	return d, state
}

func demoPath(segs ...string) ident.Path {
	return ident.NewPath(demoID, segs...)
}

func TestWalkCrateIndexesItems(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs": `
/// A point in space.
pub struct Point { x: f64, y: f64 }

enum Direction { Up, Down }

pub trait Draw {}

type Meters = f64;

pub fn origin() -> Point { Point { x: 0.0, y: 0.0 } }

const LIMIT: usize = 16;

static NAME: &str = "demo";

use std::collections::HashMap;

mod inner {
    pub union Bits { a: u32, b: f32 }
}
`,
	}, 2)

	assert.Equal(t, 0, state.Failures())

	ty, err := d.Types.Get(demoPath("Point"))
	require.NoError(t, err)
	assert.Equal(t, item.StructKind, ty.Kind)
	assert.Equal(t, item.Pub, ty.Meta.Vis)
	assert.Equal(t, "A point in space.", ty.Meta.Docs)

	ty, err = d.Types.Get(demoPath("Direction"))
	require.NoError(t, err)
	assert.Equal(t, item.EnumKind, ty.Kind)
	assert.Equal(t, item.NonPub, ty.Meta.Vis)

	for name, kind := range map[string]item.TypeKind{
		"Draw":   item.TraitKind,
		"Meters": item.TypeAliasKind,
	} {
		ty, err = d.Types.Get(demoPath(name))
		require.NoError(t, err, name)
		assert.Equal(t, kind, ty.Kind, name)
	}

	for name, kind := range map[string]item.SymbolKind{
		"origin": item.FunctionKind,
		"LIMIT":  item.ConstKind,
		"NAME":   item.StaticKind,
	} {
		sym, err := d.Symbols.Get(demoPath(name))
		require.NoError(t, err, name)
		assert.Equal(t, kind, sym.Kind, name)
	}

	assert.True(t, d.Modules.Contains(demoPath()))
	assert.True(t, d.Modules.Contains(demoPath("inner")))
	assert.True(t, d.Types.Contains(demoPath("inner", "Bits")))

	scope, err := d.Scopes.Get(demoPath())
	require.NoError(t, err)
	imp, ok := scope.Imports["HashMap"]
	require.True(t, ok)
	assert.Equal(t, "std::collections::HashMap", imp.Raw.String())
}

func TestWalkOutOfLineModules(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs":     "mod a;\nmod b;\n",
		"src/a.rs":       "pub struct InA {}\nmod inner;\n",
		"src/a/inner.rs": "pub struct Deep {}\n",
		"src/b/mod.rs":   "pub struct InB {}\n",
	}, 4)

	assert.Equal(t, 0, state.Failures())
	assert.True(t, d.Types.Contains(demoPath("a", "InA")))
	assert.True(t, d.Types.Contains(demoPath("a", "inner", "Deep")))
	assert.True(t, d.Types.Contains(demoPath("b", "InB")))
	assert.True(t, d.Modules.Contains(demoPath("a", "inner")))
}

func TestPathAttributeOverride(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs":      "#[path = \"elsewhere.rs\"]\nmod renamed;\n",
		"src/elsewhere.rs": "pub struct Hidden {}\n",
	}, 1)

	assert.Equal(t, 0, state.Failures())
	assert.True(t, d.Types.Contains(demoPath("renamed", "Hidden")))
}

// a #[path] value without a .rs extension is a module name, searched through
// the same candidates as a plain `mod name;`
func TestPathAttributeBareName(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs":        "#[path = \"other\"]\nmod m;\n#[path = \"dirmod\"]\nmod n;\n",
		"src/other.rs":      "pub struct Inside {}\n",
		"src/dirmod/mod.rs": "pub struct InDir {}\n",
	}, 1)

	assert.Equal(t, 0, state.Failures())
	assert.True(t, d.Types.Contains(demoPath("m", "Inside")))
	assert.True(t, d.Types.Contains(demoPath("n", "InDir")))
}

// a module whose file is missing is abandoned; its siblings are not
func TestMissingModuleFaultIsolation(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs":  "mod ghost;\nmod solid;\npub struct Root {}\n",
		"src/solid.rs": "pub struct Present {}\n",
	}, 2)

	assert.Equal(t, 1, state.Failures())
	assert.True(t, d.Types.Contains(demoPath("Root")))
	assert.True(t, d.Types.Contains(demoPath("solid", "Present")))
	// the module marker is inserted before the file lookup fails
	assert.True(t, d.Modules.Contains(demoPath("ghost")))
	assert.False(t, d.Scopes.Contains(demoPath("ghost")))
}

func TestSyntaxErrorFaultIsolation(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs":    "mod broken;\nmod fine;\n",
		"src/broken.rs": "struct {{{{\n",
		"src/fine.rs":   "pub struct Ok {}\n",
	}, 2)

	assert.Equal(t, 1, state.Failures())
	assert.True(t, d.Types.Contains(demoPath("fine", "Ok")))
	assert.False(t, d.Scopes.Contains(demoPath("broken")))
}

// a redefinition in the same namespace loses; the first definition stays
func TestDuplicateDefinitionHardFails(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs": "pub struct Twice {}\nstruct Twice {}\n",
	}, 1)

	assert.Equal(t, 1, state.Failures())
	ty, err := d.Types.Get(demoPath("Twice"))
	require.NoError(t, err)
	assert.Equal(t, item.Pub, ty.Meta.Vis, "the first definition wins")
}

// a type and a function may share a name; the namespaces are disjoint
func TestNamespacesAreDisjoint(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs": "pub struct thing {}\npub fn thing() {}\n",
	}, 1)

	assert.Equal(t, 0, state.Failures())
	assert.True(t, d.Types.Contains(demoPath("thing")))
	assert.True(t, d.Symbols.Contains(demoPath("thing")))
}

func TestCfgDisabledItemSkipped(t *testing.T) {
	d, state := walkDemo(t, map[string]string{
		"src/lib.rs": `
#[cfg(feature = "default")]
pub struct Enabled {}

#[cfg(feature = "exotic")]
pub struct Disabled {}
`,
	}, 1)

	assert.Equal(t, 0, state.Failures())
	assert.True(t, d.Types.Contains(demoPath("Enabled")))
	assert.False(t, d.Types.Contains(demoPath("Disabled")))
}

func collectPaths(d *db.Database, crate ident.CrateID) []string {
	var out []string
	add := func(prefix string) func(ident.Path) bool {
		return func(p ident.Path) bool {
			out = append(out, prefix+p.String())
			return true
		}
	}
	d.Types.IterCrate(crate, add("type:"))
	d.Symbols.IterCrate(crate, add("symbol:"))
	d.Modules.IterCrate(crate, add("module:"))
	d.Scopes.IterCrate(crate, add("scope:"))
	sort.Strings(out)
	return out
}

// the scraped contents are identical no matter how many workers walk the tree
func TestDeterminismAcrossWorkerCounts(t *testing.T) {
	files := map[string]string{
		"src/lib.rs":   "mod a;\nmod b;\nmod c;\npub struct Root {}\n",
		"src/a.rs":     "pub struct A {}\nmod deep;\npub fn in_a() {}\n",
		"src/a/deep.rs": "pub struct Deep {}\nconst K: u8 = 1;\n",
		"src/b/mod.rs": "pub enum B { X }\nuse crate::a::A;\n",
		"src/c.rs":     "pub trait C {}\nstatic S: u8 = 0;\n",
	}

	var want []string
	for i, workers := range []int{1, 4, 16} {
		d, state := walkDemo(t, files, workers)
		require.Equal(t, 0, state.Failures(), "workers=%d", workers)
		got := collectPaths(d, demoID)
		if i == 0 {
			want = got
			continue
		}
		assert.Equal(t, want, got, "workers=%d", workers)
	}
}

func TestUnexpandedQueueInsertionCursor(t *testing.T) {
	q := &UnexpandedModule{}
	q.Insert(UnexpandedItem{Submodule: "one"})
	q.Insert(UnexpandedItem{Submodule: "two"})
	q.Insert(UnexpandedItem{Submodule: "three"})

	it, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "one", it.Submodule)

	// expansion output is inserted at the front, ahead of queued work
	q.Reset()
	q.Insert(UnexpandedItem{Submodule: "nested-a"})
	q.Insert(UnexpandedItem{Submodule: "nested-b"})

	var order []string
	for {
		it, ok := q.Pop()
		if !ok {
			break
		}
		order = append(order, it.Submodule)
	}
	assert.Equal(t, []string{"nested-a", "nested-b", "two", "three"}, order)
}

func TestScopeArena(t *testing.T) {
	a := NewScopeArena()
	outer := a.Append(EmptyScope, &item.MacroItem{Name: "m"})

	// a branch sees the chain but its growth is invisible upstream
	branch := a.Branch(outer)
	assert.NotNil(t, a.Lookup(branch, "m"))
	inBranch := a.Append(branch, &item.MacroItem{Name: "hidden"})
	assert.Nil(t, a.Lookup(outer, "hidden"))
	assert.NotNil(t, a.Lookup(inBranch, "hidden"))

	// a later definition of the same name shadows the earlier one
	shadow := a.Append(outer, &item.MacroItem{Name: "m", Tokens: nil, Exported: true})
	assert.True(t, a.Lookup(shadow, "m").Exported)
	assert.False(t, a.Lookup(outer, "m").Exported)

	assert.Nil(t, a.Lookup(EmptyScope, "m"))
}
