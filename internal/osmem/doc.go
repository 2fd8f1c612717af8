// Package osmem is the operating-system capability layer for virtual memory.
//
// # Overview
//
// A Backend reserves, protects, queries and releases areas of the process
// address space. Every reservation is identified by an AreaID which stays
// valid until Delete; the backend re-reads the live state of an area from
// the operating system on every Info call instead of caching it.
//
// Cursors enumerate the live mapping table of the process, one area at a
// time, holding an opaque continuation cookie:
//
//	c, err := b.Open(origin)
//	if err != nil { ... }
//	defer c.Close()
//
//	var info osmem.AreaInfo
//	for c.Next(&info) {
//	    // info describes one mapping
//	}
//	if err := c.Err(); err != nil { ... }
//
// # Platform Support
//
//   - Linux: mmap(2)/mprotect(2)/munmap(2); enumeration parses /proc/self/maps
//   - Windows: VirtualAlloc/VirtualProtect/VirtualFree; enumeration walks VirtualQuery
//   - Other: every operation fails with ErrUnsupported
//
// Protection values passed to and returned from a Backend are native
// (PROT_* on Unix, PAGE_* on Windows). Translation to a portable model is
// the caller's concern.
package osmem
