// Package region reserves, protects and inspects pages of virtual memory.
//
// Region gives Go programs one model of the virtual address space across
// Linux and Windows: reserve committed memory, change page protections and
// enumerate the mappings the operating system reports.
//
// # Quick Start
//
//	a, _ := region.Alloc(64*1024, region.ProtReadWrite)
//	defer a.Close()
//
//	buf := a.Bytes()
//	buf[0] = 42
//
//	_ = region.Protect(a.Ptr(), a.Len(), region.ProtRead)
//
//	r, _ := region.Query(a.Ptr())
//	fmt.Println(r) // 0x7f2c4c000000-0x7f2c4c010000 r-- private
//
// # Allocations
//
// Alloc and AllocAt return an *Allocation that owns one OS reservation.
// Sizes are rounded up to whole pages. Clone adds an owner and Close drops
// one; the reservation is released when the last owner closes. An owner
// that becomes unreachable without Close is closed by the garbage
// collector.
//
//	b := a.Clone()
//	a.Close() // still reserved
//	b.Close() // released
//
// # Protection
//
// Protect only changes pages that belong to allocations made through the
// same Space; any other address fails with ErrUnmappedRegion without the OS
// being called. Protection values combine ProtRead, ProtWrite and
// ProtExecute. On Windows write-only protections are widened to include
// read.
//
// # Queries
//
// Query returns the region containing one address. QueryRange, QueryFrom
// and QueryAll return a forward-only *QueryIter. QueryRange requires the
// region containing the address to span the requested size:
//
//	it, _ := region.QueryRange(a.Ptr(), a.Len())
//	for r := range it.All() {
//	    fmt.Println(r.Base(), r.Len(), r.Protection(), r.IsShared())
//	}
//
// Regions are snapshots: other goroutines or libraries may remap memory at
// any time.
//
// # Spaces
//
// The package-level functions operate on Default(), a process-wide Space
// created on first use. NewSpace creates an isolated Space with its own
// registry, logging, metrics and reservation budget:
//
//	space := region.NewSpace(
//	    region.WithLogger(region.NewJSONLogger(slog.LevelDebug)),
//	    region.WithMemoryLimit(1<<30),
//	)
//
// # Errors
//
// All errors match one of ErrInvalidParameter, ErrUnmappedRegion,
// ErrOutOfMemory or ErrSystemCall via errors.Is:
//
//	if errors.Is(err, region.ErrUnmappedRegion) {
//	    // address not reserved through this Space
//	}
//
// Divergence between the registry and the OS (a reservation released
// behind the library's back) is reported by panicking.
package region
