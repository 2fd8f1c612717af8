//go:build unix

package region

import (
	"github.com/hupe1980/region/internal/osmem"
	"golang.org/x/sys/unix"
)

var nativeFlags = []nativeFlag{
	{ProtRead, unix.PROT_READ},
	{ProtWrite, unix.PROT_WRITE},
	{ProtExecute, unix.PROT_EXEC},
}

func protectionFromNative(native osmem.Native) Protection {
	return foldFromNative(uint32(native), nativeFlags)
}

func (p Protection) toNative() osmem.Native {
	return osmem.Native(foldToNative(p&protAll, nativeFlags))
}
