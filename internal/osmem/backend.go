package osmem

import (
	"errors"
	"fmt"
)

var (
	// ErrBadAddress is returned when the OS rejects an address.
	ErrBadAddress = errors.New("osmem: bad address")
	// ErrBadValue is returned when the OS rejects a size or protection value.
	ErrBadValue = errors.New("osmem: bad value")
	// ErrInUse is returned when an exact placement collides with an existing mapping.
	ErrInUse = errors.New("osmem: address range in use")
	// ErrNoMemory is returned when the OS is out of address space or commit charge.
	ErrNoMemory = errors.New("osmem: out of memory")
	// ErrNotFound is returned when an area or address is not mapped.
	ErrNotFound = errors.New("osmem: area not mapped")
	// ErrUnsupported is returned on platforms without a backend.
	ErrUnsupported = errors.New("osmem: unsupported platform")
)

// Native is a protection value in the host's representation.
type Native uint32

// AreaID identifies one reservation made through a Backend.
// The zero value never identifies a live area.
type AreaID uintptr

// AreaInfo is a snapshot of one mapping.
type AreaInfo struct {
	// ID is the owning reservation, or zero for mappings not created by the backend.
	ID        AreaID
	Base      uintptr
	Size      uintptr
	Prot      Native
	Shared    bool
	Guarded   bool
	Committed bool
}

// End returns the first address past the mapping.
func (a AreaInfo) End() uintptr {
	return a.Base + a.Size
}

// Contains reports whether addr lies inside the mapping.
func (a AreaInfo) Contains(addr uintptr) bool {
	return addr >= a.Base && addr-a.Base < a.Size
}

// Backend is the set of OS primitives the region layer is built on.
type Backend interface {
	// PageSize returns the granularity of protection and mapping.
	PageSize() uintptr

	// Create reserves and commits size bytes with protection prot. If exact is
	// false addr is ignored and the OS picks the address; otherwise the OS is
	// asked for addr, which it may or may not honor.
	Create(addr, size uintptr, prot Native, exact bool) (AreaID, error)

	// Delete releases the reservation.
	Delete(id AreaID) error

	// Info re-reads the live state of the reservation from the OS.
	Info(id AreaID) (AreaInfo, error)

	// Protect changes the protection of [addr, addr+size).
	Protect(addr, size uintptr, prot Native) error

	// Open starts an enumeration at the mapping containing origin, or at the
	// first mapping above it. An origin of zero enumerates everything.
	Open(origin uintptr) (Cursor, error)

	// Lock pins [addr, addr+size) into physical memory.
	Lock(addr, size uintptr) error

	// Unlock reverses Lock.
	Unlock(addr, size uintptr) error
}

// Cursor is a forward-only enumeration over the process mapping table.
// A Cursor is not safe for concurrent use.
type Cursor interface {
	// Next fills info with the next mapping. It returns false when the
	// enumeration is exhausted or failed; see Err.
	Next(info *AreaInfo) bool

	// Err returns the error that stopped the enumeration, if any.
	Err() error

	// Close releases the OS resources held by the cursor. It is idempotent.
	Close() error
}

// Error records a failed OS operation. It matches one of the package
// sentinels through errors.Is and unwraps to the native error.
type Error struct {
	Op    string
	Kind  error
	Errno error
}

func (e *Error) Error() string {
	if e.Errno == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Errno)
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// Unwrap returns the native error.
func (e *Error) Unwrap() error { return e.Errno }

func opError(op string, kind, errno error) error {
	return &Error{Op: op, Kind: kind, Errno: errno}
}
