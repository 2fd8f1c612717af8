package region

import (
	"fmt"

	"github.com/hupe1980/region/internal/osmem"
)

// Region describes one contiguous span of the address space as reported by
// the operating system.
//
// A Region is a snapshot: the live mapping may change at any time through
// other goroutines, other libraries or the OS itself.
type Region struct {
	base       uintptr
	size       uintptr
	protection Protection
	shared     bool
	guarded    bool
	committed  bool
}

func regionFromArea(info osmem.AreaInfo) Region {
	return Region{
		base:       info.Base,
		size:       info.Size,
		protection: protectionFromNative(info.Prot),
		shared:     info.Shared,
		guarded:    info.Guarded,
		committed:  info.Committed,
	}
}

// Base returns the page-aligned start address of the region.
func (r Region) Base() uintptr { return r.base }

// Len returns the size of the region in bytes, a multiple of the page size.
func (r Region) Len() uintptr { return r.size }

// End returns the first address past the region.
func (r Region) End() uintptr { return r.base + r.size }

// Range returns the half-open address range [start, end) of the region.
func (r Region) Range() (start, end uintptr) { return r.base, r.End() }

// Contains reports whether addr lies inside the region.
func (r Region) Contains(addr uintptr) bool {
	return addr >= r.base && addr-r.base < r.size
}

// Protection returns the access permissions of the region.
func (r Region) Protection() Protection { return r.protection }

// IsShared reports whether the region is shared with other processes.
func (r Region) IsShared() bool { return r.shared }

// IsGuarded reports whether the region carries a guard-page flag.
// Only Windows reports guard pages.
func (r Region) IsGuarded() bool { return r.guarded }

// IsCommitted reports whether the region is backed by committed memory.
func (r Region) IsCommitted() bool { return r.committed }

func (r Region) String() string {
	kind := "private"
	if r.shared {
		kind = "shared"
	}
	return fmt.Sprintf("%#x-%#x %s %s", r.base, r.End(), r.protection, kind)
}
