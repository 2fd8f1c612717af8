//go:build windows

package osmem

import (
	"errors"
	"unsafe"

	"github.com/hupe1980/region/internal/page"
	"golang.org/x/sys/windows"
)

const (
	memFree    = 0x10000
	memPrivate = 0x20000
)

// windowsBackend uses the allocation base returned by VirtualAlloc as the
// area id. VirtualQuery resolves it back to the live allocation.
type windowsBackend struct{}

// New returns the backend for the host operating system.
func New() Backend {
	return &windowsBackend{}
}

func (b *windowsBackend) PageSize() uintptr {
	return page.Size()
}

func (b *windowsBackend) Create(addr, size uintptr, prot Native, exact bool) (AreaID, error) {
	if !exact {
		addr = 0
	}
	base, err := windows.VirtualAlloc(addr, size, windows.MEM_RESERVE|windows.MEM_COMMIT, uint32(prot))
	if err != nil {
		return 0, classify("VirtualAlloc", err)
	}
	return AreaID(base), nil
}

func (b *windowsBackend) Delete(id AreaID) error {
	if _, err := b.Info(id); err != nil {
		return err
	}
	if err := windows.VirtualFree(uintptr(id), 0, windows.MEM_RELEASE); err != nil {
		return classify("VirtualFree", err)
	}
	return nil
}

func (b *windowsBackend) Info(id AreaID) (AreaInfo, error) {
	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQuery(uintptr(id), &mbi, unsafe.Sizeof(mbi)); err != nil {
		return AreaInfo{}, classify("VirtualQuery", err)
	}
	if mbi.State == memFree || mbi.AllocationBase != uintptr(id) {
		return AreaInfo{}, opError("VirtualQuery", ErrNotFound, nil)
	}

	info := b.fromMBI(&mbi)
	info.ID = id

	// An allocation spans every consecutive region sharing its allocation base.
	next := mbi.BaseAddress + mbi.RegionSize
	for next > mbi.BaseAddress {
		var more windows.MemoryBasicInformation
		if err := windows.VirtualQuery(next, &more, unsafe.Sizeof(more)); err != nil {
			break
		}
		if more.State == memFree || more.AllocationBase != uintptr(id) {
			break
		}
		info.Size += more.RegionSize
		next = more.BaseAddress + more.RegionSize
	}
	return info, nil
}

func (b *windowsBackend) Protect(addr, size uintptr, prot Native) error {
	var old uint32
	if err := windows.VirtualProtect(addr, size, uint32(prot), &old); err != nil {
		return classify("VirtualProtect", err)
	}
	return nil
}

func (b *windowsBackend) Open(origin uintptr) (Cursor, error) {
	return &queryCursor{backend: b, cookie: origin}, nil
}

func (b *windowsBackend) Lock(addr, size uintptr) error {
	if err := windows.VirtualLock(addr, size); err != nil {
		return opError("VirtualLock", nil, err)
	}
	return nil
}

func (b *windowsBackend) Unlock(addr, size uintptr) error {
	if err := windows.VirtualUnlock(addr, size); err != nil {
		return opError("VirtualUnlock", nil, err)
	}
	return nil
}

func (b *windowsBackend) fromMBI(mbi *windows.MemoryBasicInformation) AreaInfo {
	info := AreaInfo{
		Base:      mbi.BaseAddress,
		Size:      mbi.RegionSize,
		Prot:      Native(mbi.Protect),
		Shared:    mbi.Type != memPrivate,
		Guarded:   mbi.Protect&windows.PAGE_GUARD != 0,
		Committed: mbi.State == windows.MEM_COMMIT,
	}
	return info
}

// queryCursor walks VirtualQuery; the cookie is the next address to query.
// It holds no OS resources.
type queryCursor struct {
	backend *windowsBackend
	cookie  uintptr
	done    bool
}

func (c *queryCursor) Next(info *AreaInfo) bool {
	for !c.done {
		var mbi windows.MemoryBasicInformation
		if err := windows.VirtualQuery(c.cookie, &mbi, unsafe.Sizeof(mbi)); err != nil {
			// Past the highest user address VirtualQuery fails: exhausted.
			c.done = true
			return false
		}
		next := mbi.BaseAddress + mbi.RegionSize
		if next <= c.cookie {
			c.done = true
		}
		c.cookie = next
		if mbi.State == memFree {
			continue
		}
		*info = c.backend.fromMBI(&mbi)
		return true
	}
	return false
}

func (c *queryCursor) Err() error {
	return nil
}

func (c *queryCursor) Close() error {
	c.done = true
	return nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_NOT_ENOUGH_MEMORY), errors.Is(err, windows.ERROR_COMMITMENT_LIMIT),
		errors.Is(err, windows.ERROR_OUTOFMEMORY):
		return opError(op, ErrNoMemory, err)
	case errors.Is(err, windows.ERROR_INVALID_ADDRESS):
		return opError(op, ErrBadAddress, err)
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return opError(op, ErrBadValue, err)
	default:
		return opError(op, nil, err)
	}
}
