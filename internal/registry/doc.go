// Package registry implements the page-granular allocation registry.
//
// # Overview
//
// A Registry maps every page-aligned address owned by an allocation to the
// value describing that allocation. One entry is stored per page, which makes
// lookups by any address inside an allocation an exact-key map access:
//
//	r := registry.New[*area](page.Size())
//	_ = r.Insert(base, size, a)    // one entry per page
//	v, err := r.Lookup(base + 100) // truncated to base's page
//	r.Remove(base, size, a)
//
// # Concurrency
//
// Insert and Remove take the write lock for the whole multi-page operation,
// so readers never observe a partially registered allocation. Lookup,
// Acquire and Covers share the read lock.
//
// # Occupancy Index
//
// Next to the map the registry keeps a roaring64 bitmap of registered page
// numbers. It answers range questions (is every page of a span registered?)
// without probing the map page by page, and provides cheap snapshots.
//
// # Poisoning
//
// If a panic unwinds through a section holding the registry lock, the
// registry is marked poisoned and every later operation panics with
// ErrPoisoned. Partially applied state is never observed silently.
package registry
