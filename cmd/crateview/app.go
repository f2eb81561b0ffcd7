// # cmd/crateview/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"crateview/internal/config"
	"crateview/internal/db"
	"crateview/internal/manifest"
	"crateview/internal/parser"
	"crateview/internal/resolver"
	"crateview/internal/shared/observability"
	"crateview/internal/shared/util"
	"crateview/internal/walker"
	"crateview/internal/watcher"
)

// App wires the scrape pipeline: manifests in, walked and expanded crates in
// the database, imports absolutized. Watch mode re-runs the whole pipeline
// into a fresh database.
type App struct {
	Config *config.Config
	Parser *parser.Parser

	db      atomic.Pointer[db.Database]
	watcher *watcher.Watcher
	mu      sync.Mutex
}

func NewApp(cfg *config.Config) (*App, error) {
	a := &App{
		Config: cfg,
		Parser: parser.New(),
	}
	a.db.Store(db.NewDatabase())
	return a, nil
}

// DB returns the database of the most recently completed scrape. Safe to
// call while a scrape is running; readers see the previous database until
// the swap.
func (a *App) DB() *db.Database {
	return a.db.Load()
}

// ScrapeAll scrapes every configured crate in order. Crates should be listed
// dependencies-first so macro_use sweeps find their exports.
func (a *App) ScrapeAll(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	runID := uuid.NewString()
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "scrape")
	defer span.End()

	database := db.NewDatabase()
	w := walker.New(database, a.Parser, a.Config.Workers)
	if a.Config.FileRate > 0 {
		w.Limiter = util.NewLimiter(a.Config.FileRate, a.Config.Workers)
	}

	var states []*walker.CrateState
	for _, dir := range a.Config.Crates {
		state, err := a.scrapeCrate(ctx, w, dir)
		if err != nil {
			return err
		}
		states = append(states, state)
	}

	resolved, unresolved := 0, 0
	resolveStart := time.Now()
	_, rspan := observability.Tracer.Start(ctx, "resolve")
	for _, state := range states {
		r, u := resolver.AbsolutizeCrate(database, state.Data)
		resolved += r
		unresolved += u
	}
	rspan.End()
	observability.WalkDuration.WithLabelValues("resolve").Observe(time.Since(resolveStart).Seconds())

	a.db.Store(database)

	failures := 0
	for _, state := range states {
		failures += state.Failures()
	}
	a.PrintSummary(runID, database.Stats(), resolved, unresolved, failures, time.Since(start))
	return nil
}

func (a *App) scrapeCrate(ctx context.Context, w *walker.Walker, dir string) (*walker.CrateState, error) {
	data, err := manifest.Load(dir, a.Config.Features)
	if err != nil {
		return nil, err
	}
	slog.Info("scraping crate",
		"crate", data.ID.String(),
		"entry", data.Entry,
		"edition", data.Edition,
		"deps", util.SortedStringKeys(data.Deps))

	walkStart := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "walk")
	state, err := w.WalkCrate(ctx, data)
	span.End()
	if err != nil {
		return nil, err
	}
	observability.WalkDuration.WithLabelValues("walk").Observe(time.Since(walkStart).Seconds())

	expandStart := time.Now()
	_, espan := observability.Tracer.Start(ctx, "expand")
	w.ExpandCrate(state)
	espan.End()
	observability.WalkDuration.WithLabelValues("expand").Observe(time.Since(expandStart).Seconds())

	return state, nil
}

// Reconfigure swaps the active config; the next scrape uses it.
func (a *App) Reconfigure(cfg *config.Config) {
	a.mu.Lock()
	a.Config = cfg
	a.mu.Unlock()
}

// StartWatcher re-scrapes on source changes, debounced.
func (a *App) StartWatcher() error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		func(paths []string) {
			slog.Info("sources changed, re-scraping", "files", len(paths))
			if err := a.ScrapeAll(context.Background()); err != nil {
				slog.Error("re-scrape failed", "error", err)
			}
		},
	)
	if err != nil {
		return err
	}
	if err := w.Watch(a.Config.Crates); err != nil {
		w.Close()
		return err
	}
	a.watcher = w
	return nil
}

func (a *App) Close() {
	if a.watcher != nil {
		a.watcher.Close()
	}
}

func (a *App) PrintSummary(runID string, stats db.Stats, resolved, unresolved, failures int, dur time.Duration) {
	var b strings.Builder
	b.WriteString("Scrape summary\n")
	b.WriteString("==============\n")
	b.WriteString(fmt.Sprintf("Run:        %s\n", runID))
	b.WriteString(fmt.Sprintf("Duration:   %s\n", dur.Round(time.Millisecond)))
	b.WriteString(fmt.Sprintf("Modules:    %d\n", stats.Modules))
	b.WriteString(fmt.Sprintf("Types:      %d\n", stats.Types))
	b.WriteString(fmt.Sprintf("Symbols:    %d\n", stats.Symbols))
	b.WriteString(fmt.Sprintf("Macros:     %d\n", stats.Macros))
	b.WriteString(fmt.Sprintf("Imports:    %d resolved, %d pending\n", resolved, unresolved))
	if failures > 0 {
		b.WriteString(fmt.Sprintf("Failures:   %d module subtrees abandoned\n", failures))
	}
	fmt.Print(b.String())
}
