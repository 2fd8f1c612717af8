//go:build linux

package osmem

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/hupe1980/region/internal/page"
	"golang.org/x/sys/unix"
)

const mapsPath = "/proc/self/maps"

type record struct {
	base uintptr
	size uintptr
}

// linuxBackend keeps the base and size of every reservation it made, since
// mmap has no handle; protection and liveness are always read back from
// /proc/self/maps.
type linuxBackend struct {
	nextID atomic.Uintptr

	mu    sync.Mutex
	areas map[AreaID]record
}

// New returns the backend for the host operating system.
func New() Backend {
	return &linuxBackend{
		areas: make(map[AreaID]record),
	}
}

func (b *linuxBackend) PageSize() uintptr {
	return page.Size()
}

func (b *linuxBackend) Create(addr, size uintptr, prot Native, exact bool) (AreaID, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANONYMOUS
	var hint unsafe.Pointer
	if exact {
		// Never clobber an existing mapping. Kernels older than 4.17 ignore
		// the flag and treat addr as a hint.
		flags |= unix.MAP_FIXED_NOREPLACE
		hint = unsafe.Pointer(addr) //nolint:gosec,govet // raw address requested by the caller
	}

	p, err := unix.MmapPtr(-1, 0, hint, size, int(prot), flags)
	if err != nil {
		return 0, classify("mmap", err)
	}

	id := AreaID(b.nextID.Add(1))
	b.mu.Lock()
	b.areas[id] = record{base: uintptr(p), size: size}
	b.mu.Unlock()
	return id, nil
}

func (b *linuxBackend) Delete(id AreaID) error {
	b.mu.Lock()
	rec, ok := b.areas[id]
	b.mu.Unlock()
	if !ok {
		return opError("munmap", ErrNotFound, nil)
	}

	if err := unix.MunmapPtr(unsafe.Pointer(rec.base), rec.size); err != nil { //nolint:gosec,govet // address owned by this backend
		return classify("munmap", err)
	}

	b.mu.Lock()
	delete(b.areas, id)
	b.mu.Unlock()
	return nil
}

func (b *linuxBackend) Info(id AreaID) (AreaInfo, error) {
	b.mu.Lock()
	rec, ok := b.areas[id]
	b.mu.Unlock()
	if !ok {
		return AreaInfo{}, opError("info", ErrNotFound, nil)
	}

	c, err := b.Open(rec.base)
	if err != nil {
		return AreaInfo{}, err
	}
	defer c.Close()

	var info AreaInfo
	if !c.Next(&info) {
		if err := c.Err(); err != nil {
			return AreaInfo{}, err
		}
		return AreaInfo{}, opError("info", ErrNotFound, nil)
	}
	if !info.Contains(rec.base) {
		return AreaInfo{}, opError("info", ErrNotFound, nil)
	}

	// The kernel merges adjacent mappings with equal attributes, so the
	// extent comes from the reservation; attributes come from the kernel.
	info.ID = id
	info.Base = rec.base
	info.Size = rec.size
	return info, nil
}

func (b *linuxBackend) Protect(addr, size uintptr, prot Native) error {
	if err := unix.Mprotect(bytesAt(addr, size), int(prot)); err != nil {
		if errors.Is(err, unix.ENOMEM) {
			// mprotect reports unmapped pages as ENOMEM.
			return opError("mprotect", ErrNotFound, err)
		}
		return classify("mprotect", err)
	}
	return nil
}

func (b *linuxBackend) Open(origin uintptr) (Cursor, error) {
	f, err := os.Open(mapsPath)
	if err != nil {
		return nil, opError("open "+mapsPath, nil, err)
	}
	return newMapsCursor(f, origin), nil
}

func (b *linuxBackend) Lock(addr, size uintptr) error {
	if err := unix.Mlock(bytesAt(addr, size)); err != nil {
		return opError("mlock", nil, err)
	}
	return nil
}

func (b *linuxBackend) Unlock(addr, size uintptr) error {
	if err := unix.Munlock(bytesAt(addr, size)); err != nil {
		return opError("munlock", nil, err)
	}
	return nil
}

func bytesAt(addr, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size) //nolint:gosec,govet // raw address requested by the caller
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, unix.ENOMEM), errors.Is(err, unix.EAGAIN):
		return opError(op, ErrNoMemory, err)
	case errors.Is(err, unix.EEXIST):
		return opError(op, ErrInUse, err)
	case errors.Is(err, unix.EINVAL), errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return opError(op, ErrBadValue, err)
	case errors.Is(err, unix.EFAULT):
		return opError(op, ErrBadAddress, err)
	default:
		return opError(op, nil, err)
	}
}
