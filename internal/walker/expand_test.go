// # internal/walker/expand_test.go
package walker

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crateview/internal/db"
	"crateview/internal/ident"
	"crateview/internal/manifest"
	"crateview/internal/parser"
	"crateview/internal/resolver"
)

func scrapeDemo(t *testing.T, files map[string]string) (*db.Database, *CrateState) {
	t.Helper()
	dir := writeCrate(t, files)
	d := db.NewDatabase()
	w := New(d, parser.New(), 2)
	state, err := w.WalkCrate(context.Background(), demoData(dir))
	require.NoError(t, err)
	w.ExpandCrate(state)
	return d, state
}

func TestExpandGeneratesItems(t *testing.T) {
	d, state := scrapeDemo(t, map[string]string{
		"src/lib.rs": `
macro_rules! make_struct {
    ($name:ident) => { pub struct $name {} };
}

make_struct!(Alpha);
make_struct!(Beta);
`,
	})

	assert.Equal(t, 0, state.Failures())
	for _, name := range []string{"Alpha", "Beta"} {
		ty, err := d.Types.Get(demoPath(name))
		require.NoError(t, err, name)
		assert.Equal(t, "make_struct", ty.Meta.Span.Macro, name)
		assert.Equal(t, filepath.Base(ty.Meta.Span.MacroFile), "lib.rs")
	}
}

// an invocation above its definition does not see it
func TestInvocationBeforeDefinition(t *testing.T) {
	d, _ := scrapeDemo(t, map[string]string{
		"src/lib.rs": `
early!();

macro_rules! early {
    () => { pub struct TooLate {} };
}
`,
	})

	assert.False(t, d.Types.Contains(demoPath("TooLate")))
}

// a macro that defines a macro: the nested definition must be in scope for
// invocations that come later in the file
func TestMacroGeneratingMacro(t *testing.T) {
	d, _ := scrapeDemo(t, map[string]string{
		"src/lib.rs": `
macro_rules! outer {
    () => {
        macro_rules! inner {
            () => { pub struct FromInner {} };
        }
    };
}

outer!();
inner!();
`,
	})

	assert.True(t, d.Types.Contains(demoPath("FromInner")))
}

func TestMacroUseModuleScoping(t *testing.T) {
	d, _ := scrapeDemo(t, map[string]string{
		"src/lib.rs": `
#[macro_use]
mod helpers {
    macro_rules! helper {
        () => { pub struct FromHelper {} };
    }
}

mod quiet {
    macro_rules! private_mac {
        () => { pub struct Leaked {} };
    }
}

helper!();
private_mac!();
`,
	})

	// #[macro_use] threads the module's macros into the parent scope
	assert.True(t, d.Types.Contains(demoPath("FromHelper")))
	// a plain module's macros stay inside it
	assert.False(t, d.Types.Contains(demoPath("Leaked")))
}

func TestMacroShadowing(t *testing.T) {
	d, _ := scrapeDemo(t, map[string]string{
		"src/lib.rs": `
macro_rules! which {
    () => { pub struct First {} };
}
which!();

macro_rules! which {
    () => { pub struct Second {} };
}
which!();
`,
	})

	// each invocation sees the textually latest definition
	assert.True(t, d.Types.Contains(demoPath("First")))
	assert.True(t, d.Types.Contains(demoPath("Second")))
}

// a macro whose output invokes itself stops at the recursion limit instead
// of spinning the expansion pass forever
func TestRecursiveMacroExpansionCapped(t *testing.T) {
	d, state := scrapeDemo(t, map[string]string{
		"src/lib.rs": `
macro_rules! looper {
    () => { looper!(); };
}

looper!();

pub struct After {}
`,
	})

	assert.Equal(t, 0, state.Failures())
	assert.True(t, d.Types.Contains(demoPath("After")))
}

func TestMacroExportHoistsToCrateRoot(t *testing.T) {
	d, _ := scrapeDemo(t, map[string]string{
		"src/lib.rs": `
mod nested {
    #[macro_export]
    macro_rules! exported {
        () => { pub struct E {} };
    }

    macro_rules! local_only {
        () => {};
    }
}
`,
	})

	mac, err := d.Macros.Get(ident.NewPath(demoID, "exported"))
	require.NoError(t, err)
	assert.True(t, mac.Exported)
	assert.False(t, d.Macros.Contains(ident.NewPath(demoID, "local_only")))
}

// #[macro_use] extern crate sweeps the dependency's exported macros into
// scope at the point of the declaration
func TestMacroUseExternCrate(t *testing.T) {
	depID := ident.NewCrateID("dep", "1.0.0")
	depDir := writeCrate(t, map[string]string{
		"src/lib.rs": `
#[macro_export]
macro_rules! dep_struct {
    ($n:ident) => { pub struct $n {} };
}
`,
	})

	d := db.NewDatabase()
	w := New(d, parser.New(), 2)
	depState, err := w.WalkCrate(context.Background(), &manifest.CrateData{
		ID:       depID,
		Deps:     map[string]ident.CrateID{},
		Features: []string{"default"},
		Entry:    filepath.Join(depDir, "src", "lib.rs"),
	})
	require.NoError(t, err)
	w.ExpandCrate(depState)
	require.True(t, d.Macros.Contains(ident.NewPath(depID, "dep_struct")))

	mainDir := writeCrate(t, map[string]string{
		"src/lib.rs": `
#[macro_use]
extern crate dep;

dep_struct!(Imported);
`,
	})
	data := demoData(mainDir)
	data.Deps["dep"] = depID
	mainState, err := w.WalkCrate(context.Background(), data)
	require.NoError(t, err)
	w.ExpandCrate(mainState)

	assert.True(t, d.Types.Contains(demoPath("Imported")))
}

// the full pipeline: manifest, walk, expand, absolutize
func TestScrapePipeline(t *testing.T) {
	dir := writeCrate(t, map[string]string{
		"Cargo.toml": `
[package]
name = "pipeline"
version = "0.2.0"
edition = "2018"

[dependencies]
serde = "1.0"
`,
		"src/lib.rs": `
pub mod shapes;

use crate::shapes::Circle;
use serde::Serialize;

macro_rules! impl_marker {
    ($name:ident) => { pub struct $name {} };
}

impl_marker!(Marker);
`,
		"src/shapes.rs": `
use super::Marker;

pub struct Circle { pub r: f64 }
`,
	})

	data, err := manifest.Load(dir, nil)
	require.NoError(t, err)

	d := db.NewDatabase()
	w := New(d, parser.New(), 4)
	state, err := w.WalkCrate(context.Background(), data)
	require.NoError(t, err)
	w.ExpandCrate(state)
	resolved, unresolved := resolver.AbsolutizeCrate(d, data)

	pipeID := data.ID
	assert.Equal(t, 0, state.Failures())
	assert.True(t, d.Types.Contains(ident.NewPath(pipeID, "shapes", "Circle")))
	assert.True(t, d.Types.Contains(ident.NewPath(pipeID, "Marker")))

	scope, err := d.Scopes.Get(ident.NewPath(pipeID))
	require.NoError(t, err)
	circle := scope.Imports["Circle"]
	require.NotNil(t, circle)
	require.True(t, circle.IsResolved())
	assert.True(t, circle.Abs.Equal(ident.NewPath(pipeID, "shapes", "Circle")))

	serialize := scope.Imports["Serialize"]
	require.NotNil(t, serialize)
	require.True(t, serialize.IsResolved())
	assert.Equal(t, "serde", serialize.Abs.Crate.Name)

	sub, err := d.Scopes.Get(ident.NewPath(pipeID, "shapes"))
	require.NoError(t, err)
	marker := sub.Imports["Marker"]
	require.NotNil(t, marker)
	require.True(t, marker.IsResolved())
	assert.True(t, marker.Abs.Equal(ident.NewPath(pipeID, "Marker")))

	assert.Equal(t, 3, resolved)
	assert.Equal(t, 0, unresolved)
}
