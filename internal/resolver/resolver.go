// # internal/resolver/resolver.go

// Package resolver absolutizes import paths under 2018-edition rules: it
// anchors each use target to a crate root so the four scope tables end up
// holding database keys instead of source text.
package resolver

import (
	"log/slog"

	"crateview/internal/db"
	"crateview/internal/ident"
	"crateview/internal/item"
	"crateview/internal/manifest"
	"crateview/internal/shared/observability"
)

// AbsolutizeCrate rewrites every module scope of a crate in place and
// reports how many imports resolved and how many are still pending. Pending
// imports are left untouched for a later pass; they are not errors.
func AbsolutizeCrate(database *db.Database, data *manifest.CrateData) (resolved, unresolved int) {
	crate := data.ID
	database.Scopes.IterCrate(crate, func(path ident.Path) bool {
		err := database.Scopes.Modify(path, func(scope **item.ModuleScope) error {
			r, u := absolutizeScope(database, data, path, *scope)
			resolved += r
			unresolved += u
			return nil
		})
		if err != nil {
			slog.Error("failed to open scope", "module", path, "error", err)
		}
		return true
	})
	observability.ImportsResolved.Add(float64(resolved))
	observability.ImportsUnresolved.Add(float64(unresolved))
	return resolved, unresolved
}

func absolutizeScope(database *db.Database, data *manifest.CrateData, modulePath ident.Path, scope *item.ModuleScope) (resolved, unresolved int) {
	count := func(ok bool) {
		if ok {
			resolved++
		} else {
			unresolved++
		}
	}
	for _, ip := range scope.Imports {
		count(AbsolutizeUse(database, data, modulePath, ip))
	}
	for _, ip := range scope.PubImports {
		count(AbsolutizeUse(database, data, modulePath, ip))
	}
	for _, ip := range scope.GlobImports {
		count(AbsolutizeUse(database, data, modulePath, ip))
	}
	for _, ip := range scope.PubGlobImports {
		count(AbsolutizeUse(database, data, modulePath, ip))
	}
	return resolved, unresolved
}

// AbsolutizeUse anchors one import path. In order: the crate and super
// keywords, a sibling submodule (which shadows dependencies), then the
// dependency table. Returns false when the path cannot be anchored yet; the
// path is left as written.
func AbsolutizeUse(database *db.Database, data *manifest.CrateData, modulePath ident.Path, ip *item.ImportPath) bool {
	if ip.IsResolved() {
		return true
	}
	segs := ip.Raw.Segs
	if len(segs) == 0 {
		return false
	}

	if ip.Raw.Rooted {
		// ::dep::rest always names a dependency in 2018 edition
		if dep, ok := data.Deps[segs[0]]; ok {
			abs := ident.NewPath(dep, segs[1:]...)
			ip.Abs = &abs
			return true
		}
		return false
	}

	switch segs[0] {
	case "crate":
		abs := ident.NewPath(modulePath.Crate, segs[1:]...)
		ip.Abs = &abs
		return true
	case "super":
		base := modulePath.Parent()
		rest := segs[1:]
		for len(rest) > 0 && rest[0] == "super" {
			base = base.Parent()
			rest = rest[1:]
		}
		abs := base
		for _, s := range rest {
			abs = abs.Join(s)
		}
		ip.Abs = &abs
		return true
	case "self":
		abs := modulePath.Clone()
		for _, s := range segs[1:] {
			abs = abs.Join(s)
		}
		ip.Abs = &abs
		return true
	}

	// a sibling submodule shadows a dependency of the same name
	if database.Modules.Contains(modulePath.Join(segs[0])) {
		abs := modulePath.Clone()
		for _, s := range segs {
			abs = abs.Join(s)
		}
		ip.Abs = &abs
		return true
	}

	if dep, ok := data.Deps[segs[0]]; ok {
		abs := ident.NewPath(dep, segs[1:]...)
		ip.Abs = &abs
		return true
	}

	return false
}
