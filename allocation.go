package region

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/region/internal/osmem"
)

// area is one OS reservation shared by every Allocation cloned from the
// same Alloc call. The registry holds it without owning a reference.
type area struct {
	id     osmem.AreaID
	space  *Space
	base   uintptr
	size   uintptr
	charge int64
	refs   atomic.Int64
}

// acquire adds an owner unless the last one is already gone.
func (a *area) acquire() bool {
	for {
		n := a.refs.Load()
		if n <= 0 {
			return false
		}
		if a.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// release drops an owner. The owner that drops the count to zero returns
// the reservation to the OS.
func (a *area) release() {
	switch n := a.refs.Add(-1); {
	case n == 0:
		a.space.releaseArea(a)
	case n < 0:
		panic(fmt.Sprintf("region: reservation %#x+%#x released more often than acquired", a.base, a.size))
	}
}

// Allocation is an owning handle to a reserved, committed span of virtual
// memory.
//
// Clone returns another owner of the same reservation. The reservation is
// returned to the OS when the last owner calls Close, or when the garbage
// collector finds an owner that was dropped without Close. Close is
// idempotent; an Allocation must not be used after Close.
type Allocation struct {
	area    *area
	closed  atomic.Bool
	cleanup runtime.Cleanup
}

func newAllocation(a *area) *Allocation {
	h := &Allocation{area: a}
	h.cleanup = runtime.AddCleanup(h, (*area).release, a)
	return h
}

// Clone returns a new owner of the same reservation, or nil if h is closed.
func (h *Allocation) Clone() *Allocation {
	if h.closed.Load() || !h.area.acquire() {
		return nil
	}
	c := newAllocation(h.area)
	runtime.KeepAlive(h)
	return c
}

// Close drops this owner. The last owner's Close removes the pages from the
// registry and releases the reservation.
func (h *Allocation) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	h.cleanup.Stop()
	h.area.release()
	return nil
}

// ID returns the native identifier of the reservation.
func (h *Allocation) ID() uintptr {
	return uintptr(h.area.id)
}

// Ptr returns the base address of the reservation.
func (h *Allocation) Ptr() uintptr {
	return h.area.base
}

// Len returns the size of the reservation in bytes, a multiple of the page size.
func (h *Allocation) Len() uintptr {
	return h.area.size
}

// Range returns the half-open address range [start, end) of the reservation.
func (h *Allocation) Range() (start, end uintptr) {
	return h.area.base, h.area.base + h.area.size
}

// Info re-reads the reservation from the OS.
//
// If the reservation has different protections across its pages, Info
// reports the first mapping.
func (h *Allocation) Info() (Region, error) {
	info, err := h.refresh()
	if err != nil {
		return Region{}, err
	}
	return regionFromArea(info), nil
}

// Protection returns the current protection of the first page.
func (h *Allocation) Protection() (Protection, error) {
	r, err := h.Info()
	if err != nil {
		return ProtNone, err
	}
	return r.Protection(), nil
}

// SetProtection changes the protection of the whole reservation.
func (h *Allocation) SetProtection(p Protection) error {
	info, err := h.refresh()
	if err != nil {
		return err
	}
	err = h.area.space.backend.Protect(info.Base, info.Size, p.toNative())
	runtime.KeepAlive(h)
	return translateError("protect", err)
}

// Bytes returns a slice over the reservation. Accessing it is only valid
// while the pages are readable (or writable, for stores) and the
// Allocation is open.
func (h *Allocation) Bytes() []byte {
	if h.closed.Load() {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(h.area.base)), h.area.size) //nolint:gosec // base is a live mapping
}

func (h *Allocation) refresh() (osmem.AreaInfo, error) {
	if h.closed.Load() {
		return osmem.AreaInfo{}, fmt.Errorf("%w: allocation closed", ErrUnmappedRegion)
	}
	info, err := h.area.space.backend.Info(h.area.id)
	runtime.KeepAlive(h)
	if err != nil {
		return osmem.AreaInfo{}, translateError("refresh", err)
	}
	return info, nil
}

// String implements fmt.Stringer.
func (h *Allocation) String() string {
	return fmt.Sprintf("Allocation(%#x-%#x)", h.area.base, h.area.base+h.area.size)
}
