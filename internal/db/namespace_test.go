// # internal/db/namespace_test.go
package db

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "crateview/internal/core/errors"
	"crateview/internal/ident"
	"crateview/internal/item"
)

var testCrate = ident.NewCrateID("demo", "0.1.0")

func typePath(segs ...string) ident.Path {
	return ident.NewPath(testCrate, segs...)
}

func newType(name string) *item.TypeItem {
	return &item.TypeItem{Name: name, Kind: item.StructKind}
}

func TestInsertAndGet(t *testing.T) {
	d := NewDatabase()
	p := typePath("Foo")
	require.NoError(t, d.Types.Insert(p, newType("Foo")))

	assert.True(t, d.Types.Contains(p))
	assert.Equal(t, 1, d.Types.Len())

	got, err := d.Types.Get(p)
	require.NoError(t, err)
	assert.Equal(t, "Foo", got.Name)
}

func TestInsertConflict(t *testing.T) {
	d := NewDatabase()
	p := typePath("Foo")
	require.NoError(t, d.Types.Insert(p, newType("Foo")))

	err := d.Types.Insert(p, newType("Foo"))
	assert.True(t, errs.IsCode(err, errs.CodeAlreadyDefined))
	assert.Equal(t, 1, d.Types.Len())
}

func TestSameNameDifferentNamespace(t *testing.T) {
	d := NewDatabase()
	p := typePath("thing")
	require.NoError(t, d.Types.Insert(p, newType("thing")))
	require.NoError(t, d.Symbols.Insert(p, &item.SymbolItem{Name: "thing", Kind: item.FunctionKind}))

	assert.True(t, d.Types.Contains(p))
	assert.True(t, d.Symbols.Contains(p))
}

// exactly one of many concurrent inserters at the same path may win
func TestConcurrentInsertOneWinner(t *testing.T) {
	d := NewDatabase()
	p := typePath("Contested")

	const goroutines = 32
	var wins, losses atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.Types.Insert(p, newType("Contested")); err == nil {
				wins.Add(1)
			} else if errs.IsCode(err, errs.CodeAlreadyDefined) {
				losses.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins.Load())
	assert.Equal(t, int64(goroutines-1), losses.Load())
	assert.Equal(t, 1, d.Types.Len())
}

func TestInsertOrUpdateMerges(t *testing.T) {
	ns := NewNamespace[int]("counts", nil)
	p := typePath("n")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ns.InsertOrUpdate(p, 1, func(old, new int) int { return old + new })
		}()
	}
	wg.Wait()

	got, err := ns.Get(p)
	require.NoError(t, err)
	assert.Equal(t, 100, got)
	assert.Equal(t, 1, ns.Len())
}

func TestModifyAndInspect(t *testing.T) {
	d := NewDatabase()
	p := typePath("Foo")
	require.NoError(t, d.Types.Insert(p, newType("Foo")))

	err := d.Types.Modify(p, func(v **item.TypeItem) error {
		(*v).Meta.Docs = "documented"
		return nil
	})
	require.NoError(t, err)

	err = d.Types.Inspect(p, func(v *item.TypeItem) error {
		assert.Equal(t, "documented", v.Meta.Docs)
		return nil
	})
	require.NoError(t, err)
}

func TestModifyMissing(t *testing.T) {
	d := NewDatabase()
	err := d.Types.Modify(typePath("Nope"), func(v **item.TypeItem) error { return nil })
	assert.True(t, errs.IsCode(err, errs.CodeNotFound))
}

func TestTakeModifyRunsUnlocked(t *testing.T) {
	d := NewDatabase()
	p := typePath("Foo")
	other := typePath("Bar")
	require.NoError(t, d.Types.Insert(p, newType("Foo")))

	err := d.Types.TakeModify(p, func(v *item.TypeItem) (*item.TypeItem, error) {
		// the entry is out of the namespace; unrelated writes proceed
		require.NoError(t, d.Types.Insert(other, newType("Bar")))
		v.Meta.Docs = "rebuilt"
		return v, nil
	})
	require.NoError(t, err)

	got, err := d.Types.Get(p)
	require.NoError(t, err)
	assert.Equal(t, "rebuilt", got.Meta.Docs)
	assert.True(t, d.Types.Contains(other))
}

func TestIterCrateInsertionOrder(t *testing.T) {
	d := NewDatabase()
	names := []string{"Zeta", "Alpha", "Mid"}
	for _, n := range names {
		require.NoError(t, d.Types.Insert(typePath(n), newType(n)))
	}
	otherCrate := ident.NewCrateID("dep", "1.0.0")
	require.NoError(t, d.Types.Insert(ident.NewPath(otherCrate, "Foreign"), newType("Foreign")))

	var seen []string
	d.Types.IterCrate(testCrate, func(p ident.Path) bool {
		seen = append(seen, p.Name())
		return true
	})
	assert.Equal(t, names, seen)

	// early stop
	count := 0
	d.Types.IterCrate(testCrate, func(p ident.Path) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestReentrancyGuardPanics(t *testing.T) {
	d := NewDatabase(WithReentrancyGuard())
	p := typePath("Foo")
	require.NoError(t, d.Types.Insert(p, newType("Foo")))

	assert.Panics(t, func() {
		_ = d.Types.Inspect(p, func(v *item.TypeItem) error {
			return d.Types.Inspect(p, func(v *item.TypeItem) error { return nil })
		})
	})
}

func TestReentrancyGuardAllowsDistinctEntries(t *testing.T) {
	d := NewDatabase(WithReentrancyGuard())
	require.NoError(t, d.Types.Insert(typePath("A"), newType("A")))
	require.NoError(t, d.Types.Insert(typePath("B"), newType("B")))

	err := d.Types.Inspect(typePath("A"), func(v *item.TypeItem) error {
		return d.Types.Inspect(typePath("B"), func(v *item.TypeItem) error { return nil })
	})
	assert.NoError(t, err)
}
