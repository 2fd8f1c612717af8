package region

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/region/internal/osmem"
	"github.com/hupe1980/region/internal/page"
	"github.com/hupe1980/region/internal/registry"
	"github.com/hupe1980/region/internal/resource"
)

// Space is the process-scoped state shared by every allocation made through
// it: the OS backend, the page registry and the reservation budget.
//
// Most programs use the lazily created Default space through the package
// level functions. A Space lives as long as the allocations it hands out and
// is never torn down explicitly.
type Space struct {
	backend    osmem.Backend
	pageSize   uintptr
	registry   *registry.Registry[*area]
	controller *resource.Controller
	logger     *Logger
	metrics    MetricsCollector
}

// NewSpace creates a Space with its own registry.
//
// Allocations from different spaces are invisible to each other's Protect.
func NewSpace(optFns ...Option) *Space {
	o := applyOptions(optFns)
	ps := o.backend.PageSize()
	return &Space{
		backend:  o.backend,
		pageSize: ps,
		registry: registry.New[*area](ps),
		controller: resource.NewController(resource.Config{
			MemoryLimitBytes: o.memoryLimit,
		}),
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
}

var defaultSpace = sync.OnceValue(func() *Space { return NewSpace() })

// Default returns the process-wide Space, creating it on first use.
func Default() *Space {
	return defaultSpace()
}

// PageSize returns the page size of the space's backend.
func (s *Space) PageSize() uintptr {
	return s.pageSize
}

// Reserved returns the number of bytes currently reserved through s.
func (s *Space) Reserved() int64 {
	return s.controller.MemoryUsage()
}

// Pages returns the number of pages currently registered in s.
func (s *Space) Pages() int {
	return s.registry.Len()
}

// Alloc reserves at least size bytes with protection p at an address chosen
// by the operating system. size is rounded up to a multiple of the page size.
//
// A size of zero fails with ErrInvalidParameter.
func (s *Space) Alloc(size uintptr, p Protection) (*Allocation, error) {
	start := time.Now()
	h, err := s.alloc(size, p)
	s.recordAlloc(size, p, start, h, err)
	return h, err
}

func (s *Space) alloc(size uintptr, p Protection) (*Allocation, error) {
	if size == 0 {
		return nil, invalidParameter("size")
	}
	length, err := page.CeilTo(size, s.pageSize)
	if err != nil {
		return nil, &InvalidParameterError{Reason: "size", cause: err}
	}
	return s.reserve(0, length, p, false)
}

// AllocAt reserves the pages covering [addr, addr+size) with protection p.
// addr is rounded down to its page and size extended to cover the span.
//
// The operating system may place the reservation elsewhere; the returned
// Allocation always reports the actual address. On Linux an occupied range
// is never overwritten and fails with ErrInvalidParameter.
func (s *Space) AllocAt(addr, size uintptr, p Protection) (*Allocation, error) {
	start := time.Now()
	h, err := s.allocAt(addr, size, p)
	s.recordAlloc(size, p, start, h, err)
	return h, err
}

func (s *Space) allocAt(addr, size uintptr, p Protection) (*Allocation, error) {
	base, length, err := s.roundRange(addr, size)
	if err != nil {
		return nil, err
	}
	return s.reserve(base, length, p, true)
}

func (s *Space) reserve(addr, length uintptr, p Protection, exact bool) (*Allocation, error) {
	charge := int64(length) //nolint:gosec // bounded by the address space
	if err := s.controller.AcquireMemory(charge); err != nil {
		return nil, translateError("reserve", err)
	}

	id, err := s.backend.Create(addr, length, p.toNative(), exact)
	if err != nil {
		s.controller.ReleaseMemory(charge)
		return nil, translateError("reserve", err)
	}

	a := &area{id: id, space: s, charge: charge}
	a.refs.Store(1)

	info, err := s.backend.Info(id)
	if err == nil {
		a.base, a.size = info.Base, info.Size
		err = s.registry.Insert(a.base, a.size, a)
	} else {
		a.base, a.size = addr, length
	}
	if err != nil {
		if derr := s.backend.Delete(id); derr != nil {
			s.logger.LogVanished(context.Background(), uintptr(id), a.base, a.size, derr)
		}
		s.controller.ReleaseMemory(charge)
		return nil, translateError("register", err)
	}

	return newAllocation(a), nil
}

// releaseArea runs once, when the last owner of a drops it. Pages leave the
// registry before the reservation is returned to the OS.
func (s *Space) releaseArea(a *area) {
	start := time.Now()
	ctx := context.Background()

	_, infoErr := s.backend.Info(a.id)
	if _, err := s.registry.Remove(a.base, a.size, a); err != nil {
		panic(fmt.Sprintf("region: registered range %#x+%#x rejected at release: %v", a.base, a.size, err))
	}
	if infoErr != nil {
		s.controller.ReleaseMemory(a.charge)
		panic(fmt.Sprintf("region: reservation %#x+%#x vanished before release: %v", a.base, a.size, infoErr))
	}

	if err := s.backend.Delete(a.id); err != nil {
		if _, still := s.backend.Info(a.id); still == nil {
			panic(fmt.Sprintf("region: OS refused to release live reservation %#x+%#x: %v", a.base, a.size, err))
		}
		s.logger.LogVanished(ctx, uintptr(a.id), a.base, a.size, err)
	}

	s.controller.ReleaseMemory(a.charge)
	s.metrics.RecordFree(a.size, time.Since(start))
	s.logger.LogFree(ctx, a.base, a.size)
}

// Protect changes the protection of the pages covering [addr, addr+size).
// Every page must belong to an allocation made through s; otherwise Protect
// fails with ErrUnmappedRegion without touching the OS.
func (s *Space) Protect(addr, size uintptr, p Protection) error {
	start := time.Now()
	err := s.protect(addr, size, p)
	s.metrics.RecordProtect(time.Since(start), err)
	s.logger.LogProtect(context.Background(), addr, size, p, err)
	return err
}

func (s *Space) protect(addr, size uintptr, p Protection) error {
	base, length, err := s.roundRange(addr, size)
	if err != nil {
		return err
	}

	if !s.registry.Covers(base, length) {
		return fmt.Errorf("%w: %#x+%#x is not fully reserved", ErrUnmappedRegion, base, length)
	}

	// Every allocation touched by the range stays pinned until the OS call
	// returns, so none of them can be released underneath it.
	var pinned []*area
	defer func() {
		for _, a := range pinned {
			a.release()
		}
	}()

	end := base + length
	for next := base; next < end; {
		a, err := s.registry.Acquire(next, (*area).acquire)
		if err != nil {
			return translateError("protect", err)
		}
		pinned = append(pinned, a)
		if _, err := s.backend.Info(a.id); err != nil {
			return translateError("protect", err)
		}
		next = a.base + a.size
	}

	return translateError("protect", s.backend.Protect(base, length, p.toNative()))
}

// Query returns the region containing addr.
// It fails with ErrUnmappedRegion if addr is not mapped.
func (s *Space) Query(addr uintptr) (Region, error) {
	it, err := s.QueryRange(addr, 1)
	if err != nil {
		return Region{}, err
	}
	defer it.Close()

	if !it.Next() {
		if err := it.Err(); err != nil {
			return Region{}, err
		}
		return Region{}, ErrUnmappedRegion
	}
	return it.Region(), nil
}

// QueryRange returns an iterator starting at the region containing addr.
// That region must exist and extend at least size bytes past addr;
// otherwise QueryRange fails with ErrUnmappedRegion. The iterator yields
// the regions overlapping [addr, addr+size).
func (s *Space) QueryRange(addr, size uintptr) (*QueryIter, error) {
	if size == 0 {
		return nil, invalidParameter("size")
	}
	return s.query(addr, size, true)
}

// QueryFrom returns an iterator over the region containing addr and every
// region above it. It fails with ErrUnmappedRegion if addr is not mapped.
func (s *Space) QueryFrom(addr uintptr) (*QueryIter, error) {
	return s.query(addr, 0, true)
}

// QueryAll returns an iterator over every region of the address space.
func (s *Space) QueryAll() (*QueryIter, error) {
	return s.query(0, 0, false)
}

func (s *Space) query(addr, minSize uintptr, hasOrigin bool) (*QueryIter, error) {
	start := time.Now()
	it, err := newQueryIter(s.backend, addr, minSize, hasOrigin)
	s.metrics.RecordQuery(time.Since(start), err)
	s.logger.LogQuery(context.Background(), addr, minSize, err)
	return it, err
}

// Lock pins the pages covering [addr, addr+size) into physical memory.
// OS failures are returned as a SystemCallError.
func (s *Space) Lock(addr, size uintptr) error {
	base, length, err := s.roundRange(addr, size)
	if err != nil {
		return err
	}
	if err := s.backend.Lock(base, length); err != nil {
		return &SystemCallError{Op: "lock", Err: err}
	}
	return nil
}

// Unlock reverses Lock for the pages covering [addr, addr+size).
func (s *Space) Unlock(addr, size uintptr) error {
	base, length, err := s.roundRange(addr, size)
	if err != nil {
		return err
	}
	if err := s.backend.Unlock(base, length); err != nil {
		return &SystemCallError{Op: "unlock", Err: err}
	}
	return nil
}

func (s *Space) roundRange(addr, size uintptr) (uintptr, uintptr, error) {
	base, length, err := page.RoundToBoundariesTo(addr, size, s.pageSize)
	switch {
	case errors.Is(err, page.ErrZeroSize):
		return 0, 0, &InvalidParameterError{Reason: "size", cause: err}
	case err != nil:
		return 0, 0, &InvalidParameterError{Reason: "address range", cause: err}
	}
	return base, length, nil
}

func (s *Space) recordAlloc(size uintptr, p Protection, start time.Time, h *Allocation, err error) {
	s.metrics.RecordAlloc(size, time.Since(start), err)
	var base uintptr
	if h != nil {
		base = h.area.base
	}
	s.logger.LogAlloc(context.Background(), base, size, p, err)
}

// Alloc reserves memory in the Default space. See Space.Alloc.
func Alloc(size uintptr, p Protection) (*Allocation, error) {
	return Default().Alloc(size, p)
}

// AllocAt reserves memory at addr in the Default space. See Space.AllocAt.
func AllocAt(addr, size uintptr, p Protection) (*Allocation, error) {
	return Default().AllocAt(addr, size, p)
}

// Protect changes protection in the Default space. See Space.Protect.
func Protect(addr, size uintptr, p Protection) error {
	return Default().Protect(addr, size, p)
}

// Query returns the region containing addr. See Space.Query.
func Query(addr uintptr) (Region, error) {
	return Default().Query(addr)
}

// QueryRange iterates the regions overlapping a range. See Space.QueryRange.
func QueryRange(addr, size uintptr) (*QueryIter, error) {
	return Default().QueryRange(addr, size)
}

// QueryFrom iterates the regions from addr upward. See Space.QueryFrom.
func QueryFrom(addr uintptr) (*QueryIter, error) {
	return Default().QueryFrom(addr)
}

// QueryAll iterates every region of the address space. See Space.QueryAll.
func QueryAll() (*QueryIter, error) {
	return Default().QueryAll()
}

// Lock pins pages into physical memory. See Space.Lock.
func Lock(addr, size uintptr) error {
	return Default().Lock(addr, size)
}

// Unlock reverses Lock. See Space.Unlock.
func Unlock(addr, size uintptr) error {
	return Default().Unlock(addr, size)
}

// PageSize returns the operating system's page size.
func PageSize() uintptr {
	return Default().PageSize()
}
