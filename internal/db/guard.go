// # internal/db/guard.go
package db

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"crateview/internal/ident"
)

// reentrancyGuard catches the one bug the per-entry locks cannot: the same
// goroutine taking the same entry twice, which would deadlock silently.
// It costs a map operation per access, so it is off unless the database is
// built with WithReentrancyGuard (tests turn it on).
type reentrancyGuard struct {
	enabled bool
	held    sync.Map
}

var noopRelease = func() {}

func (g *reentrancyGuard) enter(namespace string, path ident.Path) func() {
	if g == nil || !g.enabled {
		return noopRelease
	}
	key := fmt.Sprintf("%d|%s|%s", goroutineID(), namespace, path.Key())
	if _, loaded := g.held.LoadOrStore(key, struct{}{}); loaded {
		panic(fmt.Sprintf("reentrant access to %s entry %s", namespace, path))
	}
	return func() { g.held.Delete(key) }
}

// goroutineID parses the header of a stack dump ("goroutine 12 [running]:").
// There is no supported API for this, which is fine: the guard is a debug
// tool, not a production codepath.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, _ := strconv.ParseUint(string(fields[1]), 10, 64)
	return id
}
