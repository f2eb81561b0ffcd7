// # internal/manifest/manifest.go

// Package manifest reads Cargo metadata: enough of Cargo.toml and Cargo.lock
// to know what a crate is called, where its entry file lives, which features
// are on and what its dependencies resolve to.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	errs "crateview/internal/core/errors"
	"crateview/internal/ident"
)

// CrateData is everything the walker and resolver need to know about a crate
// before reading its source.
type CrateData struct {
	ID           ident.CrateID
	Deps         map[string]ident.CrateID // keyed by normalized local name
	Features     []string
	ManifestPath string
	Entry        string
	ProcMacro    bool
	Edition      string
}

type cargoToml struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		Edition string `toml:"edition"`
	} `toml:"package"`
	Lib struct {
		Path      string `toml:"path"`
		ProcMacro bool   `toml:"proc-macro"`
	} `toml:"lib"`
	Features     map[string][]string       `toml:"features"`
	Dependencies map[string]toml.Primitive `toml:"dependencies"`
}

type depDetail struct {
	Version string `toml:"version"`
	Package string `toml:"package"`
}

type cargoLock struct {
	Package []struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
}

// Load reads the manifest in dir. Requested features are expanded through
// the [features] table; "default" is implied unless the caller names
// features explicitly.
func Load(dir string, features []string) (*CrateData, error) {
	manifestPath := filepath.Join(dir, "Cargo.toml")
	var mf cargoToml
	md, err := toml.DecodeFile(manifestPath, &mf)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodeManifest, "failed to read Cargo.toml").(*errs.DomainError).
			WithContext(errs.CtxFile, manifestPath)
	}
	if mf.Package.Name == "" {
		return nil, errs.New(errs.CodeManifest, "manifest has no package name").(*errs.DomainError).
			WithContext(errs.CtxFile, manifestPath)
	}

	locked := readLock(dir)

	data := &CrateData{
		ID:           ident.NewCrateID(mf.Package.Name, mf.Package.Version),
		Deps:         make(map[string]ident.CrateID),
		ManifestPath: manifestPath,
		ProcMacro:    mf.Lib.ProcMacro,
		Edition:      mf.Package.Edition,
	}
	if data.Edition == "" {
		data.Edition = "2015"
	}

	for name, prim := range mf.Dependencies {
		var detail depDetail
		var version string
		if err := md.PrimitiveDecode(prim, &version); err != nil {
			if err := md.PrimitiveDecode(prim, &detail); err != nil {
				continue
			}
			version = detail.Version
		}
		pkg := name
		if detail.Package != "" {
			pkg = detail.Package
		}
		if v, ok := locked[pkg]; ok {
			version = v
		}
		dep := ident.NewCrateID(pkg, version)
		data.Deps[ident.NewCrateID(name, "").Name] = dep
	}

	if len(features) == 0 {
		features = []string{"default"}
	}
	data.Features = expandFeatures(features, mf.Features)

	entry, err := findEntry(dir, mf.Lib.Path)
	if err != nil {
		return nil, err
	}
	data.Entry = entry
	return data, nil
}

func readLock(dir string) map[string]string {
	lockPath := filepath.Join(dir, "Cargo.lock")
	var lock cargoLock
	if _, err := toml.DecodeFile(lockPath, &lock); err != nil {
		return nil
	}
	out := make(map[string]string, len(lock.Package))
	for _, p := range lock.Package {
		out[p.Name] = p.Version
	}
	return out
}

// expandFeatures walks the feature graph from the requested set. Features
// that enable optional dependencies ("dep/feat" forms) are kept as written;
// the resolver only ever compares plain names.
func expandFeatures(requested []string, table map[string][]string) []string {
	seen := make(map[string]struct{})
	var out []string
	var visit func(f string)
	visit = func(f string) {
		if _, done := seen[f]; done {
			return
		}
		seen[f] = struct{}{}
		out = append(out, f)
		for _, sub := range table[f] {
			visit(sub)
		}
	}
	for _, f := range requested {
		visit(f)
	}
	return out
}

func findEntry(dir, libPath string) (string, error) {
	candidates := []string{
		filepath.Join(dir, "src", "lib.rs"),
		filepath.Join(dir, "src", "main.rs"),
	}
	if libPath != "" {
		candidates = []string{filepath.Join(dir, libPath)}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", errs.New(errs.CodeManifest, "no entry file found").(*errs.DomainError).
		WithContext(errs.CtxPath, dir)
}
