package region

// Protection is a set of memory access permissions.
type Protection uint8

const (
	// ProtNone denies all access.
	ProtNone Protection = 0
	// ProtRead allows reading.
	ProtRead Protection = 1 << (iota - 1)
	// ProtWrite allows writing.
	ProtWrite
	// ProtExecute allows instruction fetch.
	ProtExecute

	ProtReadWrite        = ProtRead | ProtWrite
	ProtReadExecute      = ProtRead | ProtExecute
	ProtWriteExecute     = ProtWrite | ProtExecute
	ProtReadWriteExecute = ProtRead | ProtWrite | ProtExecute

	protAll = ProtReadWriteExecute
)

// Contains reports whether every permission in q is also in p.
func (p Protection) Contains(q Protection) bool {
	return p&q == q
}

// String renders p in the familiar "rwx" form, e.g. "r-x" or "---".
func (p Protection) String() string {
	b := []byte("---")
	if p.Contains(ProtRead) {
		b[0] = 'r'
	}
	if p.Contains(ProtWrite) {
		b[1] = 'w'
	}
	if p.Contains(ProtExecute) {
		b[2] = 'x'
	}
	return string(b)
}

// nativeFlag pairs a portable permission with its host representation.
type nativeFlag struct {
	prot   Protection
	native uint32
}

// foldFromNative ORs together the permission of every flag present in native.
// Unrecognized bits are ignored.
func foldFromNative(native uint32, flags []nativeFlag) Protection {
	p := ProtNone
	for _, f := range flags {
		if native&f.native == f.native {
			p |= f.prot
		}
	}
	return p
}

// foldToNative ORs together the native flag of every permission in p.
func foldToNative(p Protection, flags []nativeFlag) uint32 {
	var native uint32
	for _, f := range flags {
		if p.Contains(f.prot) {
			native |= f.native
		}
	}
	return native
}
