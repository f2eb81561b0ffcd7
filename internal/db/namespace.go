// # internal/db/namespace.go

// Package db is the in-memory item database: one concurrent namespace per
// item kind, sharded by path hash, with per-entry locks so long callbacks
// on one item never block unrelated lookups.
package db

import (
	"sync"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	errs "crateview/internal/core/errors"
	"crateview/internal/ident"
)

const shardCount = 64

type entry[T any] struct {
	mu  sync.RWMutex
	val T
}

type shard[T any] struct {
	mu      sync.RWMutex
	entries map[string]*entry[T]
}

// Namespace maps absolute paths to items of one kind.
type Namespace[T any] struct {
	name   string
	shards [shardCount]shard[T]
	length atomic.Int64
	guard  *reentrancyGuard

	crateMu sync.RWMutex
	crates  map[string][]ident.Path
}

func NewNamespace[T any](name string, guard *reentrancyGuard) *Namespace[T] {
	ns := &Namespace[T]{name: name, guard: guard, crates: make(map[string][]ident.Path)}
	for i := range ns.shards {
		ns.shards[i].entries = make(map[string]*entry[T])
	}
	return ns
}

func (ns *Namespace[T]) shardFor(key string) *shard[T] {
	return &ns.shards[xxh3.HashString(key)%shardCount]
}

// Insert adds an item at path. A second insert at the same path fails with
// CodeAlreadyDefined; exactly one concurrent inserter wins.
func (ns *Namespace[T]) Insert(path ident.Path, val T) error {
	key := path.Key()
	sh := ns.shardFor(key)
	sh.mu.Lock()
	if _, ok := sh.entries[key]; ok {
		sh.mu.Unlock()
		return errs.New(errs.CodeAlreadyDefined, "item already defined").(*errs.DomainError).
			WithContext(errs.CtxNamespace, ns.name).
			WithContext(errs.CtxPath, path.String())
	}
	sh.entries[key] = &entry[T]{val: val}
	sh.mu.Unlock()
	ns.length.Add(1)
	ns.indexCrate(path)
	return nil
}

// InsertOrUpdate adds the item, or merges it into the existing one when the
// path is already taken. merge runs under the entry lock.
func (ns *Namespace[T]) InsertOrUpdate(path ident.Path, val T, merge func(old, new T) T) {
	key := path.Key()
	sh := ns.shardFor(key)
	sh.mu.Lock()
	if e, ok := sh.entries[key]; ok {
		sh.mu.Unlock()
		e.mu.Lock()
		e.val = merge(e.val, val)
		e.mu.Unlock()
		return
	}
	sh.entries[key] = &entry[T]{val: val}
	sh.mu.Unlock()
	ns.length.Add(1)
	ns.indexCrate(path)
}

// Modify runs f with exclusive access to the item at path. Reentrant access
// to the same entry from the same goroutine deadlocks; the debug guard
// panics on it instead.
func (ns *Namespace[T]) Modify(path ident.Path, f func(*T) error) error {
	e, err := ns.lookup(path)
	if err != nil {
		return err
	}
	release := ns.guard.enter(ns.name, path)
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()
	return f(&e.val)
}

// Inspect runs f with shared access to the item at path.
func (ns *Namespace[T]) Inspect(path ident.Path, f func(T) error) error {
	e, err := ns.lookup(path)
	if err != nil {
		return err
	}
	release := ns.guard.enter(ns.name, path)
	defer release()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return f(e.val)
}

// TakeModify removes the item, runs f with no locks held, and reinserts the
// result. The caller must be the only party interested in the entry; a
// racing Insert at the same path while the item is out will be clobbered.
func (ns *Namespace[T]) TakeModify(path ident.Path, f func(T) (T, error)) error {
	key := path.Key()
	sh := ns.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.entries[key]
	if !ok {
		sh.mu.Unlock()
		return ns.notFound(path)
	}
	delete(sh.entries, key)
	sh.mu.Unlock()

	val, err := f(e.val)

	sh.mu.Lock()
	sh.entries[key] = &entry[T]{val: val}
	sh.mu.Unlock()
	return err
}

func (ns *Namespace[T]) Contains(path ident.Path) bool {
	key := path.Key()
	sh := ns.shardFor(key)
	sh.mu.RLock()
	_, ok := sh.entries[key]
	sh.mu.RUnlock()
	return ok
}

// Get returns a copy of the stored value.
func (ns *Namespace[T]) Get(path ident.Path) (T, error) {
	var out T
	err := ns.Inspect(path, func(v T) error {
		out = v
		return nil
	})
	return out, err
}

func (ns *Namespace[T]) Len() int {
	return int(ns.length.Load())
}

// IterCrate visits every path this namespace holds for a crate, in insertion
// order. f returning false stops the iteration.
func (ns *Namespace[T]) IterCrate(crate ident.CrateID, f func(ident.Path) bool) {
	ns.crateMu.RLock()
	paths := append([]ident.Path(nil), ns.crates[crate.Key()]...)
	ns.crateMu.RUnlock()
	for _, p := range paths {
		if !f(p) {
			return
		}
	}
}

func (ns *Namespace[T]) lookup(path ident.Path) (*entry[T], error) {
	key := path.Key()
	sh := ns.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.entries[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, ns.notFound(path)
	}
	return e, nil
}

func (ns *Namespace[T]) notFound(path ident.Path) error {
	return errs.New(errs.CodeNotFound, "item not found").(*errs.DomainError).
		WithContext(errs.CtxNamespace, ns.name).
		WithContext(errs.CtxPath, path.String())
}

func (ns *Namespace[T]) indexCrate(path ident.Path) {
	ns.crateMu.Lock()
	ns.crates[path.Crate.Key()] = append(ns.crates[path.Crate.Key()], path)
	ns.crateMu.Unlock()
}
