package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/region/internal/page"
)

var (
	// ErrNotFound is returned when no allocation owns the page.
	ErrNotFound = errors.New("registry: page not registered")
	// ErrUnaligned is returned when a range does not start and end on page boundaries.
	ErrUnaligned = errors.New("registry: range not page aligned")
	// ErrOverlap is returned when an insert would cover an already registered page.
	ErrOverlap = errors.New("registry: page already registered")
	// ErrPoisoned is the panic value raised once the registry state is suspect.
	ErrPoisoned = errors.New("registry: poisoned by an earlier panic")
)

// Registry is a concurrent table from page-aligned addresses to the value
// owning each page.
type Registry[V comparable] struct {
	pageSize uintptr

	mu       sync.RWMutex
	pages    map[uintptr]V
	index    *roaring64.Bitmap // page numbers (addr / pageSize)
	poisoned atomic.Bool
}

// New creates an empty Registry for the given page size.
func New[V comparable](pageSize uintptr) *Registry[V] {
	if pageSize == 0 || pageSize&(pageSize-1) != 0 {
		panic(fmt.Sprintf("registry: invalid page size %d", pageSize))
	}
	return &Registry[V]{
		pageSize: pageSize,
		pages:    make(map[uintptr]V),
		index:    roaring64.New(),
	}
}

// PageSize returns the page size the registry keys are aligned to.
func (r *Registry[V]) PageSize() uintptr {
	return r.pageSize
}

// Insert registers every page of [base, base+size) as owned by v.
// base and size must be page aligned. Either all pages are inserted or none.
func (r *Registry[V]) Insert(base, size uintptr, v V) error {
	r.checkPoisoned()
	if err := r.checkRange(base, size); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.poisonOnPanic()

	first, last := r.pageRange(base, size)
	if r.index.Intersects(spanOf(first, last)) {
		return fmt.Errorf("%w: range %#x+%#x", ErrOverlap, base, size)
	}

	for addr := range page.Walk(base, size, r.pageSize) {
		r.pages[addr] = v
	}
	r.index.AddRange(first, last)
	return nil
}

// Remove unregisters every page of [base, base+size) that is owned by v and
// returns the number of pages removed. Pages owned by other values are left
// untouched.
func (r *Registry[V]) Remove(base, size uintptr, v V) (int, error) {
	r.checkPoisoned()
	if err := r.checkRange(base, size); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.poisonOnPanic()

	removed := 0
	for addr := range page.Walk(base, size, r.pageSize) {
		owner, ok := r.pages[addr]
		if !ok || owner != v {
			continue
		}
		delete(r.pages, addr)
		r.index.Remove(uint64(addr / r.pageSize))
		removed++
	}
	return removed, nil
}

// Lookup returns the value owning the page that contains addr.
func (r *Registry[V]) Lookup(addr uintptr) (V, error) {
	return r.Acquire(addr, nil)
}

// Acquire looks up the owner of addr and, while still holding the read lock,
// calls take on it. If take reports false the lookup fails with ErrNotFound.
// Writers cannot interleave between the lookup and take, so take can safely
// pin the value (e.g. increment a reference count) before it is removed.
func (r *Registry[V]) Acquire(addr uintptr, take func(V) bool) (V, error) {
	r.checkPoisoned()

	r.mu.RLock()
	defer r.mu.RUnlock()
	defer r.poisonOnPanic()

	var zero V
	v, ok := r.pages[page.FloorTo(addr, r.pageSize)]
	if !ok {
		return zero, ErrNotFound
	}
	if take != nil && !take(v) {
		return zero, ErrNotFound
	}
	return v, nil
}

// Covers reports whether every page touched by [addr, addr+size) is registered.
func (r *Registry[V]) Covers(addr, size uintptr) bool {
	r.checkPoisoned()
	base, length, err := page.RoundToBoundariesTo(addr, size, r.pageSize)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	first, last := r.pageRange(base, length)
	return r.index.AndCardinality(spanOf(first, last)) == last-first
}

// Len returns the number of registered pages.
func (r *Registry[V]) Len() int {
	r.checkPoisoned()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// Snapshot returns a copy of the registered page addresses in ascending order.
func (r *Registry[V]) Snapshot() []uintptr {
	r.checkPoisoned()
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]uintptr, 0, r.index.GetCardinality())
	it := r.index.Iterator()
	for it.HasNext() {
		out = append(out, uintptr(it.Next())*r.pageSize)
	}
	return out
}

// Poisoned reports whether the registry has been poisoned.
func (r *Registry[V]) Poisoned() bool {
	return r.poisoned.Load()
}

func (r *Registry[V]) checkRange(base, size uintptr) error {
	if base%r.pageSize != 0 || size%r.pageSize != 0 {
		return fmt.Errorf("%w: %#x+%#x", ErrUnaligned, base, size)
	}
	if size == 0 {
		return fmt.Errorf("registry: empty range at %#x", base)
	}
	return nil
}

// pageRange returns the half-open page-number interval for [base, base+size).
func (r *Registry[V]) pageRange(base, size uintptr) (uint64, uint64) {
	first := uint64(base / r.pageSize)
	return first, first + uint64(page.Count(size, r.pageSize))
}

func spanOf(first, last uint64) *roaring64.Bitmap {
	span := roaring64.New()
	span.AddRange(first, last)
	return span
}

func (r *Registry[V]) checkPoisoned() {
	if r.poisoned.Load() {
		panic(ErrPoisoned)
	}
}

// poisonOnPanic must be deferred directly after taking the lock.
func (r *Registry[V]) poisonOnPanic() {
	if p := recover(); p != nil {
		r.poisoned.Store(true)
		panic(p)
	}
}
