// # internal/resolver/resolver_test.go
package resolver

import (
	"testing"

	"crateview/internal/db"
	"crateview/internal/ident"
	"crateview/internal/item"
	"crateview/internal/manifest"
)

var (
	crate = ident.NewCrateID("demo", "0.1.0")
	serde = ident.NewCrateID("serde", "1.0.0")
)

func crateData() *manifest.CrateData {
	return &manifest.CrateData{
		ID:   crate,
		Deps: map[string]ident.CrateID{"serde": serde},
	}
}

func unresolved(rooted bool, segs ...string) *item.ImportPath {
	return item.Unresolved(ident.NewUnresolvedPath(rooted, segs...))
}

func TestAbsolutizeCrateKeyword(t *testing.T) {
	d := db.NewDatabase()
	module := ident.NewPath(crate, "a", "b")
	ip := unresolved(false, "crate", "util", "helper")
	if !AbsolutizeUse(d, crateData(), module, ip) {
		t.Fatal("crate:: path should resolve")
	}
	want := ident.NewPath(crate, "util", "helper")
	if !ip.Abs.Equal(want) {
		t.Errorf("got %s, want %s", ip.Abs, want)
	}
}

func TestAbsolutizeSuper(t *testing.T) {
	d := db.NewDatabase()
	module := ident.NewPath(crate, "a", "b", "c")

	ip := unresolved(false, "super", "sibling")
	if !AbsolutizeUse(d, crateData(), module, ip) {
		t.Fatal("super:: path should resolve")
	}
	if want := ident.NewPath(crate, "a", "b", "sibling"); !ip.Abs.Equal(want) {
		t.Errorf("got %s, want %s", ip.Abs, want)
	}

	// chained supers climb one level each
	ip = unresolved(false, "super", "super", "x")
	AbsolutizeUse(d, crateData(), module, ip)
	if want := ident.NewPath(crate, "a", "x"); !ip.Abs.Equal(want) {
		t.Errorf("got %s, want %s", ip.Abs, want)
	}

	// super at the crate root stays at the root
	ip = unresolved(false, "super", "y")
	AbsolutizeUse(d, crateData(), ident.NewPath(crate), ip)
	if want := ident.NewPath(crate, "y"); !ip.Abs.Equal(want) {
		t.Errorf("got %s, want %s", ip.Abs, want)
	}
}

func TestAbsolutizeSelf(t *testing.T) {
	d := db.NewDatabase()
	module := ident.NewPath(crate, "a")
	ip := unresolved(false, "self", "inner", "Thing")
	if !AbsolutizeUse(d, crateData(), module, ip) {
		t.Fatal("self:: path should resolve")
	}
	if want := ident.NewPath(crate, "a", "inner", "Thing"); !ip.Abs.Equal(want) {
		t.Errorf("got %s, want %s", ip.Abs, want)
	}
}

func TestAbsolutizeDependency(t *testing.T) {
	d := db.NewDatabase()
	module := ident.NewPath(crate)
	ip := unresolved(false, "serde", "Deserialize")
	if !AbsolutizeUse(d, crateData(), module, ip) {
		t.Fatal("dependency path should resolve")
	}
	if want := ident.NewPath(serde, "Deserialize"); !ip.Abs.Equal(want) {
		t.Errorf("got %s, want %s", ip.Abs, want)
	}
}

func TestSiblingSubmoduleShadowsDependency(t *testing.T) {
	d := db.NewDatabase()
	module := ident.NewPath(crate)
	// a local module named like the dependency wins
	if err := d.Modules.Insert(module.Join("serde"), &item.ModuleItem{Name: "serde"}); err != nil {
		t.Fatal(err)
	}
	ip := unresolved(false, "serde", "Thing")
	if !AbsolutizeUse(d, crateData(), module, ip) {
		t.Fatal("shadowed path should resolve")
	}
	if want := ident.NewPath(crate, "serde", "Thing"); !ip.Abs.Equal(want) {
		t.Errorf("got %s, want %s", ip.Abs, want)
	}
}

func TestRootedPathSkipsLocalModules(t *testing.T) {
	d := db.NewDatabase()
	module := ident.NewPath(crate)
	if err := d.Modules.Insert(module.Join("serde"), &item.ModuleItem{Name: "serde"}); err != nil {
		t.Fatal(err)
	}
	// ::serde always names the dependency
	ip := unresolved(true, "serde", "Thing")
	if !AbsolutizeUse(d, crateData(), module, ip) {
		t.Fatal("rooted dependency path should resolve")
	}
	if want := ident.NewPath(serde, "Thing"); !ip.Abs.Equal(want) {
		t.Errorf("got %s, want %s", ip.Abs, want)
	}
}

func TestUnresolvablePathLeftAsWritten(t *testing.T) {
	d := db.NewDatabase()
	ip := unresolved(false, "mystery", "Thing")
	if AbsolutizeUse(d, crateData(), ident.NewPath(crate), ip) {
		t.Fatal("unknown first segment must not resolve")
	}
	if ip.IsResolved() {
		t.Error("path must stay unresolved")
	}
	if ip.Raw.String() != "mystery::Thing" {
		t.Errorf("raw path mutated: %s", ip.Raw)
	}
}

func TestAbsolutizeCrateSweepsScopes(t *testing.T) {
	d := db.NewDatabase()
	data := crateData()
	root := ident.NewPath(crate)

	scope := item.NewModuleScope(item.Metadata{})
	scope.Imports["Deserialize"] = unresolved(false, "serde", "Deserialize")
	scope.Imports["Helper"] = unresolved(false, "crate", "util", "Helper")
	scope.Imports["Mystery"] = unresolved(false, "mystery", "Thing")
	scope.GlobImports = append(scope.GlobImports, unresolved(false, "serde", "prelude"))
	if err := d.Scopes.Insert(root, scope); err != nil {
		t.Fatal(err)
	}

	resolved, unresolvedCount := AbsolutizeCrate(d, data)
	if resolved != 3 || unresolvedCount != 1 {
		t.Errorf("resolved=%d unresolved=%d", resolved, unresolvedCount)
	}
	if !scope.Imports["Deserialize"].IsResolved() {
		t.Error("serde import not resolved")
	}
	if scope.Imports["Mystery"].IsResolved() {
		t.Error("unknown import must stay pending")
	}

	// a second pass is idempotent: already-resolved imports count as resolved
	resolved, unresolvedCount = AbsolutizeCrate(d, data)
	if resolved != 3 || unresolvedCount != 1 {
		t.Errorf("second pass resolved=%d unresolved=%d", resolved, unresolvedCount)
	}
}
