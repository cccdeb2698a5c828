package barrier

import (
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
)

// Named is the capability a barrier needs to be registered: something a
// caller can look up by name and wait on. MOBarrier and OMBarrier satisfy
// it; MMBarrier (Enter) and RMOBarrier (Wait(tid)) do not. The registry is
// not on the hot path (registration is one explicit Register call per
// name) so the small amount of interface dispatch here is fine.
type Named interface {
	Wait()
}

// registry maps barrier names to instances process-wide, so unrelated
// modules can look a barrier up by name instead of threading a reference
// through. It is backed by a sorted tree map (rather than a plain
// map[string]any) so that Names enumerates barriers in a stable, sorted
// order instead of Go's randomized map iteration order.
var (
	registryMu sync.Mutex
	registry   = treemap.NewWithStringComparator()
)

// Register adds a named barrier to the process-wide registry. It is a
// programmer error to register the same name twice; callers that want to
// replace an entry must Deregister first.
func Register(name string, b Named) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, found := registry.Get(name); found {
		panic("barrier: duplicate registration for name " + name)
	}
	registry.Put(name, b)
}

// Deregister removes a named barrier, if present.
func Deregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry.Remove(name)
}

// Lookup returns the barrier registered under name, or nil, false if none.
func Lookup(name string) (Named, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	v, found := registry.Get(name)
	if !found {
		return nil, false
	}
	return v.(Named), true
}

// Names returns every registered barrier name in sorted order.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	keys := registry.Keys()
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.(string))
	}
	return names
}
