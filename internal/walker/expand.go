// # internal/walker/expand.go
package walker

import (
	"context"
	"log/slog"
	"path/filepath"

	"crateview/internal/ident"
	"crateview/internal/item"
	"crateview/internal/macros"
	"crateview/internal/shared/observability"
)

// maxExpansionDepth caps macro recursion: a macro whose output invokes
// itself would otherwise re-queue forever.
const maxExpansionDepth = 128

// ExpandCrate runs the deferred expansion pass: single-threaded, in textual
// order, so macro visibility follows the source exactly. Must run after the
// walk completes; dependency crates should already be in the database so
// #[macro_use] extern crate sweeps find their exports.
func (w *Walker) ExpandCrate(state *CrateState) {
	arena := NewScopeArena()
	w.expandModule(state, ident.NewPath(state.Data.ID), arena, EmptyScope)
}

func (w *Walker) expandModule(state *CrateState, path ident.Path, arena *ScopeArena, ref ScopeRef) ScopeRef {
	queue := state.queueFor(path)
	if queue == nil {
		return ref
	}
	for {
		it, ok := queue.Pop()
		if !ok {
			return ref
		}
		switch it.Kind {
		case KindMacroDef:
			ref = arena.Append(ref, it.Def)
			if it.Def.Exported {
				// #[macro_export] hoists the macro to the crate root
				rootPath := ident.NewPath(path.Crate, it.Def.Name)
				if err := w.DB.Macros.Insert(rootPath, it.Def); err != nil {
					slog.Error("exported macro conflict", "macro", it.Def.Name, "crate", path.Crate, "error", err)
					state.recordFailure()
				} else {
					observability.ItemsIndexed.WithLabelValues("macros").Inc()
				}
			}
		case KindMacroUse:
			ref = w.sweepMacroUse(it.Dep, arena, ref)
		case KindSubmodule:
			child := path.Join(it.Submodule)
			if it.MacroUse {
				// the live chain flows through and back out of the child
				ref = w.expandModule(state, child, arena, ref)
			} else {
				w.expandModule(state, child, arena, arena.Branch(ref))
			}
		case KindInvocation:
			w.expandInvocation(state, path, arena, ref, queue, it)
		}
	}
}

// sweepMacroUse appends every exported declarative macro of a dependency to
// the textual scope, in the dependency's insertion order.
func (w *Walker) sweepMacroUse(dep ident.CrateID, arena *ScopeArena, ref ScopeRef) ScopeRef {
	w.DB.Macros.IterCrate(dep, func(p ident.Path) bool {
		_ = w.DB.Macros.Inspect(p, func(m *item.MacroItem) error {
			if m.Kind == item.DeclarativeKind && m.Exported {
				ref = arena.Append(ref, m)
			}
			return nil
		})
		return true
	})
	return ref
}

// expandInvocation resolves a bang invocation against the textual scope,
// applies the definition, and walks the output at the invocation site.
func (w *Walker) expandInvocation(state *CrateState, path ident.Path, arena *ScopeArena, ref ScopeRef, queue *UnexpandedModule, it UnexpandedItem) {
	if len(it.InvokePath) != 1 {
		// path invocations need import resolution we don't do for macros
		slog.Warn("dropping path macro invocation", "module", path, "macro", it.Span.String())
		observability.MacroFailures.Inc()
		return
	}
	name := it.InvokePath[0]
	if it.Depth >= maxExpansionDepth {
		slog.Warn("macro recursion limit reached", "module", path, "macro", name, "at", it.Span.String())
		observability.MacroFailures.Inc()
		return
	}
	def := arena.Lookup(ref, name)
	if def == nil {
		slog.Warn("unresolved macro invocation", "module", path, "macro", name, "at", it.Span.String())
		observability.MacroFailures.Inc()
		return
	}
	parsed, err := macros.ParseDef(def.Tokens)
	if err != nil {
		slog.Warn("malformed macro definition", "macro", name, "error", err)
		observability.MacroFailures.Inc()
		return
	}
	out, err := macros.Apply(parsed, it.Tokens)
	if err != nil {
		slog.Warn("macro expansion failed", "module", path, "macro", name, "at", it.Span.String(), "error", err)
		observability.MacroFailures.Inc()
		return
	}

	// round-trip through the parser: render the output stream to source and
	// extract declarations from it like any other file
	src := out.Render()
	file, err := w.Parser.Parse([]byte(src), it.Span.File)
	if err != nil {
		slog.Warn("macro output failed to parse", "module", path, "macro", name, "error", err)
		observability.MacroFailures.Inc()
		return
	}
	observability.MacrosExpanded.Inc()

	inv := it.Span
	inv.Macro = name

	// new work from the output lands at the front of the queue, so nested
	// definitions are in scope before later invocations
	queue.Reset()
	err = w.DB.Scopes.TakeModify(path, func(scope *item.ModuleScope) (*item.ModuleScope, error) {
		ctx := &moduleCtx{
			w: w, ctx: context.Background(), state: state,
			path:       path,
			file:       it.Span.File,
			dir:        moduleDir(state, path),
			scope:      scope,
			queue:      queue,
			invocation: &inv,
			depth:      it.Depth + 1,
		}
		w.walkItems(ctx, file.Decls)
		return scope, nil
	})
	if err != nil {
		slog.Error("failed to reopen module scope", "module", path, "error", err)
		state.recordFailure()
	}
}

// moduleDir reconstructs where a module's child files live from its path.
func moduleDir(state *CrateState, path ident.Path) string {
	dir := filepath.Dir(state.Data.Entry)
	for _, seg := range path.Segs {
		dir = filepath.Join(dir, seg)
	}
	return dir
}
