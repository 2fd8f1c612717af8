//go:build !unix && !windows

package region

import "github.com/hupe1980/region/internal/osmem"

var nativeFlags = []nativeFlag{
	{ProtRead, 1},
	{ProtWrite, 2},
	{ProtExecute, 4},
}

func protectionFromNative(native osmem.Native) Protection {
	return foldFromNative(uint32(native), nativeFlags)
}

func (p Protection) toNative() osmem.Native {
	return osmem.Native(foldToNative(p&protAll, nativeFlags))
}
