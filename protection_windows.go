//go:build windows

package region

import (
	"github.com/hupe1980/region/internal/osmem"
	"golang.org/x/sys/windows"
)

// PAGE_* values are an enumeration, not a bitset, apart from these modifiers.
const pageModifiers = windows.PAGE_GUARD | windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE

// Windows has no write-only or write-execute page; those widen to include read.
var toNativeTable = [...]uint32{
	ProtNone:             windows.PAGE_NOACCESS,
	ProtRead:             windows.PAGE_READONLY,
	ProtWrite:            windows.PAGE_READWRITE,
	ProtReadWrite:        windows.PAGE_READWRITE,
	ProtExecute:          windows.PAGE_EXECUTE,
	ProtReadExecute:      windows.PAGE_EXECUTE_READ,
	ProtWriteExecute:     windows.PAGE_EXECUTE_READWRITE,
	ProtReadWriteExecute: windows.PAGE_EXECUTE_READWRITE,
}

func protectionFromNative(native osmem.Native) Protection {
	switch uint32(native) &^ pageModifiers {
	case windows.PAGE_READONLY:
		return ProtRead
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return ProtReadWrite
	case windows.PAGE_EXECUTE:
		return ProtExecute
	case windows.PAGE_EXECUTE_READ:
		return ProtReadExecute
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return ProtReadWriteExecute
	default:
		return ProtNone
	}
}

func (p Protection) toNative() osmem.Native {
	return osmem.Native(toNativeTable[p&protAll])
}
