// Package osmemtest provides an in-memory osmem.Backend for tests.
//
// The fake never touches real memory: it hands out addresses from a private
// counter and keeps the mapping table in a sorted slice. Shared is derived by
// comparing the owning process id of an area with the backend's own pid.
package osmemtest

import (
	"slices"
	"sync"

	"github.com/hupe1980/region/internal/osmem"
)

// DefaultBase is the first address handed out by the fake.
const DefaultBase uintptr = 0x10000000

type area struct {
	id    osmem.AreaID
	base  uintptr
	size  uintptr
	prot  osmem.Native
	owner int
}

// Backend is a fake osmem.Backend.
type Backend struct {
	pageSize uintptr
	pid      int

	mu       sync.Mutex
	areas    []*area // sorted by base
	nextID   osmem.AreaID
	nextAddr uintptr
	calls    map[string]int
	failures map[string]error
	stuck    map[osmem.AreaID]bool
	cursors  int
}

// New creates a fake backend with the given page size, reporting pid as the
// id of the calling process.
func New(pageSize uintptr, pid int) *Backend {
	return &Backend{
		pageSize: pageSize,
		pid:      pid,
		nextAddr: DefaultBase,
		calls:    make(map[string]int),
		failures: make(map[string]error),
		stuck:    make(map[osmem.AreaID]bool),
	}
}

// FailNext makes the next call to op ("create", "delete", "info", "protect",
// "open", "lock", "unlock") fail with err.
func (b *Backend) FailNext(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op] = err
}

// Forget drops an area without going through Delete, as if it had been
// released behind the backend's back.
func (b *Backend) Forget(id osmem.AreaID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.areas = slices.DeleteFunc(b.areas, func(a *area) bool { return a.id == id })
}

// Stick makes every Delete of id fail while the area stays mapped.
func (b *Backend) Stick(id osmem.AreaID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stuck[id] = true
}

// Map inserts a foreign mapping owned by owner, e.g. a shared segment.
func (b *Backend) Map(base, size uintptr, prot osmem.Native, owner int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insert(&area{base: base, size: size, prot: prot, owner: owner})
}

// Calls returns how often op was invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// OpenCursors returns the number of cursors not yet closed.
func (b *Backend) OpenCursors() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursors
}

// Len returns the number of live areas.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.areas)
}

func (b *Backend) PageSize() uintptr {
	return b.pageSize
}

func (b *Backend) Create(addr, size uintptr, prot osmem.Native, exact bool) (osmem.AreaID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("create"); err != nil {
		return 0, err
	}
	if size == 0 || size%b.pageSize != 0 {
		return 0, &osmem.Error{Op: "create", Kind: osmem.ErrBadValue}
	}

	if exact {
		if addr%b.pageSize != 0 {
			return 0, &osmem.Error{Op: "create", Kind: osmem.ErrBadAddress}
		}
		if b.overlaps(addr, size) {
			return 0, &osmem.Error{Op: "create", Kind: osmem.ErrInUse}
		}
	} else {
		addr = b.nextAddr
		for b.overlaps(addr, size) {
			addr += b.pageSize
		}
		// Leave a guard page so neighbours never coalesce.
		b.nextAddr = addr + size + b.pageSize
	}

	b.nextID++
	b.insert(&area{id: b.nextID, base: addr, size: size, prot: prot, owner: b.pid})
	return b.nextID, nil
}

func (b *Backend) Delete(id osmem.AreaID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("delete"); err != nil {
		return err
	}
	if b.stuck[id] {
		return &osmem.Error{Op: "delete", Kind: osmem.ErrBadValue}
	}
	i := slices.IndexFunc(b.areas, func(a *area) bool { return a.id == id })
	if i < 0 || id == 0 {
		return &osmem.Error{Op: "delete", Kind: osmem.ErrNotFound}
	}
	b.areas = slices.Delete(b.areas, i, i+1)
	return nil
}

func (b *Backend) Info(id osmem.AreaID) (osmem.AreaInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("info"); err != nil {
		return osmem.AreaInfo{}, err
	}
	i := slices.IndexFunc(b.areas, func(a *area) bool { return a.id == id })
	if i < 0 || id == 0 {
		return osmem.AreaInfo{}, &osmem.Error{Op: "info", Kind: osmem.ErrNotFound}
	}
	return b.info(b.areas[i]), nil
}

func (b *Backend) Protect(addr, size uintptr, prot osmem.Native) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("protect"); err != nil {
		return err
	}
	if !b.covered(addr, size) {
		return &osmem.Error{Op: "protect", Kind: osmem.ErrNotFound}
	}
	for _, a := range b.areas {
		if a.base < addr+size && addr < a.base+a.size {
			a.prot = prot
		}
	}
	return nil
}

func (b *Backend) Open(origin uintptr) (osmem.Cursor, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("open"); err != nil {
		return nil, err
	}
	var snap []osmem.AreaInfo
	for _, a := range b.areas {
		if a.base+a.size > origin {
			snap = append(snap, b.info(a))
		}
	}
	b.cursors++
	return &cursor{backend: b, areas: snap}, nil
}

func (b *Backend) Lock(addr, size uintptr) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("lock"); err != nil {
		return err
	}
	if !b.covered(addr, size) {
		return &osmem.Error{Op: "lock", Kind: osmem.ErrNotFound}
	}
	return nil
}

func (b *Backend) Unlock(addr, size uintptr) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.begin("unlock"); err != nil {
		return err
	}
	if !b.covered(addr, size) {
		return &osmem.Error{Op: "unlock", Kind: osmem.ErrNotFound}
	}
	return nil
}

// begin counts the call and consumes an injected failure.
func (b *Backend) begin(op string) error {
	b.calls[op]++
	if err, ok := b.failures[op]; ok {
		delete(b.failures, op)
		return err
	}
	return nil
}

func (b *Backend) info(a *area) osmem.AreaInfo {
	return osmem.AreaInfo{
		ID:        a.id,
		Base:      a.base,
		Size:      a.size,
		Prot:      a.prot,
		Shared:    a.owner != b.pid,
		Committed: true,
	}
}

func (b *Backend) insert(a *area) {
	i, _ := slices.BinarySearchFunc(b.areas, a.base, func(x *area, base uintptr) int {
		switch {
		case x.base < base:
			return -1
		case x.base > base:
			return 1
		}
		return 0
	})
	b.areas = slices.Insert(b.areas, i, a)
}

func (b *Backend) overlaps(addr, size uintptr) bool {
	for _, a := range b.areas {
		if a.base < addr+size && addr < a.base+a.size {
			return true
		}
	}
	return false
}

// covered reports whether every byte of [addr, addr+size) is mapped.
func (b *Backend) covered(addr, size uintptr) bool {
	next := addr
	end := addr + size
	for _, a := range b.areas {
		if a.base > next {
			break
		}
		if a.base+a.size > next {
			next = a.base + a.size
		}
		if next >= end {
			return true
		}
	}
	return next >= end
}

type cursor struct {
	backend *Backend
	areas   []osmem.AreaInfo
	pos     int
	closed  bool
}

func (c *cursor) Next(info *osmem.AreaInfo) bool {
	if c.closed || c.pos >= len(c.areas) {
		_ = c.Close()
		return false
	}
	*info = c.areas[c.pos]
	c.pos++
	return true
}

func (c *cursor) Err() error {
	return nil
}

func (c *cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.backend.mu.Lock()
	c.backend.cursors--
	c.backend.mu.Unlock()
	return nil
}
