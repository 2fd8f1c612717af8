//go:build !linux && !windows

package osmem

import "github.com/hupe1980/region/internal/page"

type unsupportedBackend struct{}

// New returns the backend for the host operating system.
// On this platform every operation fails with ErrUnsupported.
func New() Backend {
	return unsupportedBackend{}
}

func (unsupportedBackend) PageSize() uintptr { return page.Size() }

func (unsupportedBackend) Create(uintptr, uintptr, Native, bool) (AreaID, error) {
	return 0, opError("create", nil, ErrUnsupported)
}

func (unsupportedBackend) Delete(AreaID) error {
	return opError("delete", ErrNotFound, ErrUnsupported)
}

func (unsupportedBackend) Info(AreaID) (AreaInfo, error) {
	return AreaInfo{}, opError("info", ErrNotFound, ErrUnsupported)
}

func (unsupportedBackend) Protect(uintptr, uintptr, Native) error {
	return opError("protect", nil, ErrUnsupported)
}

func (unsupportedBackend) Open(uintptr) (Cursor, error) {
	return nil, opError("open", nil, ErrUnsupported)
}

func (unsupportedBackend) Lock(uintptr, uintptr) error {
	return opError("lock", nil, ErrUnsupported)
}

func (unsupportedBackend) Unlock(uintptr, uintptr) error {
	return opError("unlock", nil, ErrUnsupported)
}
