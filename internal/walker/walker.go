// # internal/walker/walker.go

// Package walker drives the scrape of one crate: it parses the entry file,
// walks the module tree in parallel, lowers declarations into the database,
// and defers all macro work to an order-preserving expansion pass.
package walker

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	errs "crateview/internal/core/errors"
	"crateview/internal/db"
	"crateview/internal/ident"
	"crateview/internal/item"
	"crateview/internal/lower"
	"crateview/internal/manifest"
	"crateview/internal/parser"
	"crateview/internal/shared/observability"
	"crateview/internal/shared/util"
)

type Walker struct {
	DB      *db.Database
	Parser  *parser.Parser
	Vocab   *lower.Vocabulary
	Workers int
	Limiter *util.Limiter // bounds file reads, optional
}

func New(database *db.Database, p *parser.Parser, workers int) *Walker {
	if workers < 1 {
		workers = 1
	}
	return &Walker{
		DB:      database,
		Parser:  p,
		Vocab:   lower.NewVocabulary(),
		Workers: workers,
	}
}

// CrateState is what a walk leaves behind for the expansion and resolution
// passes: the crate metadata (with extern-crate renames applied) and the
// per-module unexpanded queues.
type CrateState struct {
	Data *manifest.CrateData

	mu         sync.Mutex
	unexpanded map[string]*UnexpandedModule
	failures   int
}

func (s *CrateState) registerQueue(path ident.Path, q *UnexpandedModule) {
	s.mu.Lock()
	s.unexpanded[path.Key()] = q
	s.mu.Unlock()
}

func (s *CrateState) queueFor(path ident.Path) *UnexpandedModule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unexpanded[path.Key()]
}

func (s *CrateState) recordFailure() {
	s.mu.Lock()
	s.failures++
	s.mu.Unlock()
}

// Failures counts module subtrees abandoned during the walk.
func (s *CrateState) Failures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}

func (s *CrateState) depLookup(name string) (ident.CrateID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Data.Deps[name]
	return c, ok
}

func (s *CrateState) depRename(alias, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.Data.Deps[name]; ok {
		s.Data.Deps[alias] = c
	}
}

// moduleCtx is the walk state for one module. Exactly one goroutine owns a
// ctx at a time, which is what keeps per-module insertion order and the
// queue single-writer.
type moduleCtx struct {
	w     *Walker
	g     *errgroup.Group
	ctx   context.Context
	state *CrateState

	path  ident.Path
	file  string // file the module's declarations live in
	dir   string // directory where child module files are searched
	scope *item.ModuleScope
	queue *UnexpandedModule

	// set while walking expansion output
	invocation *ident.Span
	depth      int
}

// WalkCrate scrapes one crate's module tree into the database. A failure to
// read or parse the entry file is fatal; everything below the root is
// isolated per subtree.
func (w *Walker) WalkCrate(ctx context.Context, data *manifest.CrateData) (*CrateState, error) {
	state := &CrateState{Data: data, unexpanded: make(map[string]*UnexpandedModule)}

	file, err := w.parseFile(ctx, data.Entry)
	if err != nil {
		return nil, errs.AddContext(err, errs.CtxCrate, data.ID.String())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.Workers)

	root := ident.NewPath(data.ID)
	rootItem := &item.ModuleItem{Name: data.ID.Name, Meta: item.Metadata{
		Vis:  item.Pub,
		Span: ident.Span{File: data.Entry},
	}}
	if err := w.DB.Modules.Insert(root, rootItem); err != nil {
		return nil, err
	}
	observability.ItemsIndexed.WithLabelValues("modules").Inc()

	mctx := &moduleCtx{
		w:     w,
		g:     g,
		ctx:   gctx,
		state: state,
		path:  root,
		file:  data.Entry,
		dir:   filepath.Dir(data.Entry),
		scope: item.NewModuleScope(rootItem.Meta),
		queue: &UnexpandedModule{},
	}
	w.walkItems(mctx, file.Decls)
	w.finishModule(mctx)

	// subtree tasks never return errors, Wait is for completion only
	_ = g.Wait()
	return state, nil
}

func (w *Walker) parseFile(ctx context.Context, path string) (*parser.SourceFile, error) {
	if w.Limiter != nil {
		if err := w.Limiter.Wait(ctx, 1); err != nil {
			return nil, err
		}
	}
	return w.Parser.ParseFile(path)
}

func (w *Walker) finishModule(ctx *moduleCtx) {
	observability.ModulesWalked.Inc()
	if err := w.DB.Scopes.Insert(ctx.path, ctx.scope); err != nil {
		slog.Error("scope conflict", "module", ctx.path, "error", err)
		ctx.state.recordFailure()
		return
	}
	observability.ItemsIndexed.WithLabelValues("scopes").Inc()
	ctx.state.registerQueue(ctx.path, ctx.queue)
}

// walkItems dispatches declarations in order. Items that fail to lower are
// logged and skipped; they never take the module down.
func (w *Walker) walkItems(ctx *moduleCtx, decls []parser.Declaration) {
	for i := range decls {
		decl := &decls[i]
		attrs, err := w.Vocab.LowerAttributes(decl, ctx.state.Data.Features)
		if err != nil {
			if errs.IsCode(err, errs.CodeCfgdOut) {
				slog.Debug("item disabled by cfg", "module", ctx.path, "item", decl.Name)
			} else {
				slog.Warn("failed to lower attributes", "module", ctx.path, "item", decl.Name, "error", err)
			}
			continue
		}

		switch decl.Kind {
		case parser.DeclStruct, parser.DeclEnum, parser.DeclUnion, parser.DeclTrait, parser.DeclTypeAlias:
			w.walkType(ctx, decl, attrs)
		case parser.DeclConst, parser.DeclStatic, parser.DeclFunction:
			w.walkSymbol(ctx, decl, attrs)
		case parser.DeclModule:
			w.walkSubmodule(ctx, decl, attrs)
		case parser.DeclUse:
			if err := lower.LowerUse(ctx.scope, lower.LowerVisibility(decl.Vis), decl.UseTree); err != nil {
				slog.Warn("failed to lower use declaration", "module", ctx.path, "error", err)
			}
		case parser.DeclExternCrate:
			w.walkExternCrate(ctx, decl, attrs)
		case parser.DeclMacroDef:
			mac, err := lower.LowerMacroRules(decl, attrs)
			if err != nil {
				slog.Warn("failed to lower macro definition", "module", ctx.path, "error", err)
				continue
			}
			w.stampExpansion(ctx, &mac.Meta)
			ctx.queue.Insert(UnexpandedItem{Kind: KindMacroDef, Def: mac})
		case parser.DeclMacroInvocation:
			ctx.queue.Insert(UnexpandedItem{
				Kind:       KindInvocation,
				InvokePath: decl.InvokePath,
				Tokens:     decl.Tokens,
				Span:       decl.Span,
				Depth:      ctx.depth,
			})
		case parser.DeclImpl, parser.DeclForeignMod:
			slog.Debug("skipping item kind", "module", ctx.path, "kind", decl.Kind.String())
		}

		// unknown derives and attributes are proc-macro work we record but
		// do not execute
		for _, d := range w.Vocab.UnknownDerives(attrs) {
			slog.Debug("skipping derive macro", "module", ctx.path, "item", decl.Name, "derive", d)
		}
	}
}

func (w *Walker) walkType(ctx *moduleCtx, decl *parser.Declaration, attrs *lower.Attributes) {
	it, err := lower.LowerType(decl, attrs)
	if err != nil {
		slog.Warn("failed to lower type", "module", ctx.path, "item", decl.Name, "error", err)
		return
	}
	w.stampExpansion(ctx, &it.Meta)
	if err := w.DB.Types.Insert(ctx.path.Join(decl.Name), it); err != nil {
		slog.Error("type conflict", "module", ctx.path, "item", decl.Name, "error", err)
		ctx.state.recordFailure()
		return
	}
	observability.ItemsIndexed.WithLabelValues("types").Inc()
}

func (w *Walker) walkSymbol(ctx *moduleCtx, decl *parser.Declaration, attrs *lower.Attributes) {
	it, err := lower.LowerSymbol(decl, attrs)
	if err != nil {
		slog.Warn("failed to lower symbol", "module", ctx.path, "item", decl.Name, "error", err)
		return
	}
	w.stampExpansion(ctx, &it.Meta)
	if err := w.DB.Symbols.Insert(ctx.path.Join(decl.Name), it); err != nil {
		slog.Error("symbol conflict", "module", ctx.path, "item", decl.Name, "error", err)
		ctx.state.recordFailure()
		return
	}
	observability.ItemsIndexed.WithLabelValues("symbols").Inc()
}

// stampExpansion marks items produced by macro expansion with the invocation
// they came from. One level is enough; nested expansions keep the outermost
// invocation.
func (w *Walker) stampExpansion(ctx *moduleCtx, meta *item.Metadata) {
	if ctx.invocation == nil {
		return
	}
	meta.Span.Macro = ctx.invocation.Macro
	meta.Span.MacroFile = ctx.invocation.File
	meta.Span.StartRow = ctx.invocation.StartRow
	meta.Span.StartCol = ctx.invocation.StartCol
}

func (w *Walker) walkSubmodule(ctx *moduleCtx, decl *parser.Declaration, attrs *lower.Attributes) {
	childPath := ctx.path.Join(decl.Name)
	mod := lower.LowerModule(decl, attrs)
	w.stampExpansion(ctx, &mod.Meta)
	if err := w.DB.Modules.Insert(childPath, mod); err != nil {
		slog.Error("module conflict", "module", ctx.path, "item", decl.Name, "error", err)
		ctx.state.recordFailure()
		return
	}
	observability.ItemsIndexed.WithLabelValues("modules").Inc()
	ctx.queue.Insert(UnexpandedItem{Kind: KindSubmodule, Submodule: decl.Name, MacroUse: attrs.MacroUse})

	if decl.HasBody {
		// inline modules walk synchronously in declaration order
		child := &moduleCtx{
			w: w, g: ctx.g, ctx: ctx.ctx, state: ctx.state,
			path:       childPath,
			file:       ctx.file,
			dir:        filepath.Join(ctx.dir, decl.Name),
			scope:      item.NewModuleScope(mod.Meta),
			queue:      &UnexpandedModule{},
			invocation: ctx.invocation,
			depth:      ctx.depth,
		}
		w.walkItems(child, decl.Body)
		w.finishModule(child)
		return
	}

	modFile, err := w.findModuleFile(ctx, decl.Name, attrs.PathOverride)
	if err != nil {
		slog.Warn("module file not found", "module", childPath, "error", err)
		ctx.state.recordFailure()
		observability.ModuleFailures.Inc()
		return
	}

	task := func() error {
		w.walkFileModule(ctx, childPath, modFile, mod.Meta)
		return nil
	}
	// TryGo instead of Go: a saturated pool falls back to a synchronous
	// walk rather than risking deadlock on nested spawns
	if ctx.g == nil || !ctx.g.TryGo(task) {
		_ = task()
	}
}

// walkFileModule parses and walks one out-of-line module. Errors are
// recorded and logged; siblings never see them.
func (w *Walker) walkFileModule(parent *moduleCtx, path ident.Path, file string, meta item.Metadata) {
	src, err := w.parseFile(parent.ctx, file)
	if err != nil {
		slog.Warn("abandoning module subtree", "module", path, "file", file, "error", err)
		parent.state.recordFailure()
		observability.ModuleFailures.Inc()
		return
	}
	dir := filepath.Dir(file)
	if base := filepath.Base(file); base != "mod.rs" {
		dir = filepath.Join(filepath.Dir(file), strings.TrimSuffix(base, ".rs"))
	}
	child := &moduleCtx{
		w: w, g: parent.g, ctx: parent.ctx, state: parent.state,
		path:       path,
		file:       file,
		dir:        dir,
		scope:      item.NewModuleScope(meta),
		queue:      &UnexpandedModule{},
		invocation: parent.invocation,
		depth:      parent.depth,
	}
	w.walkItems(child, src.Decls)
	w.finishModule(child)
}

// findModuleFile resolves `mod name;` to a file: a #[path] attribute naming
// a .rs file wins outright, a bare #[path] value renames the module for the
// search, then name.rs, then name/mod.rs, both under the module's directory.
func (w *Walker) findModuleFile(ctx *moduleCtx, name, pathOverride string) (string, error) {
	if pathOverride != "" {
		if strings.HasSuffix(pathOverride, ".rs") {
			p := filepath.Join(filepath.Dir(ctx.file), filepath.FromSlash(pathOverride))
			if fileExists(p) {
				return p, nil
			}
			return "", errs.New(errs.CodeModuleNotFound, "path attribute target missing").(*errs.DomainError).
				WithContext(errs.CtxFile, p)
		}
		name = pathOverride
	}
	candidates := []string{
		filepath.Join(ctx.dir, name+".rs"),
		filepath.Join(ctx.dir, name, "mod.rs"),
	}
	for _, c := range candidates {
		if fileExists(c) {
			return c, nil
		}
	}
	return "", errs.Newf(errs.CodeModuleNotFound, "no file for module %s", name).(*errs.DomainError).
		WithContext(errs.CtxPath, ctx.dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (w *Walker) walkExternCrate(ctx *moduleCtx, decl *parser.Declaration, attrs *lower.Attributes) {
	local := decl.Name
	if decl.Rename != "" {
		ctx.state.depRename(decl.Rename, decl.Name)
		local = decl.Rename
	}
	dep, ok := ctx.state.depLookup(local)
	if !ok {
		slog.Warn("extern crate not in dependencies", "module", ctx.path, "crate", decl.Name)
		return
	}
	if len(ctx.path.Segs) > 0 {
		// below the root this is just an import of the dep's root
		ctx.scope.Imports[local] = item.Resolved(ident.NewPath(dep))
	}
	if attrs.MacroUse {
		ctx.queue.Insert(UnexpandedItem{Kind: KindMacroUse, Dep: dep})
	}
}
