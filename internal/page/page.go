package page

import (
	"errors"
	"iter"
	"os"
)

var (
	// ErrZeroSize is returned when a range of zero bytes is requested.
	ErrZeroSize = errors.New("page: size must be non-zero")
	// ErrOverflow is returned when rounding a range would wrap the address space.
	ErrOverflow = errors.New("page: range overflows address space")
)

var size = uintptr(os.Getpagesize())

// Size returns the operating system's page size in bytes.
func Size() uintptr {
	return size
}

// Floor rounds addr down to the closest page boundary.
func Floor(addr uintptr) uintptr {
	return FloorTo(addr, size)
}

// Ceil rounds addr up to the closest page boundary.
// It returns ErrOverflow if the result does not fit in a uintptr.
func Ceil(addr uintptr) (uintptr, error) {
	return CeilTo(addr, size)
}

// FloorTo rounds addr down to a multiple of pageSize (a power of two).
func FloorTo(addr, pageSize uintptr) uintptr {
	return addr &^ (pageSize - 1)
}

// CeilTo rounds addr up to a multiple of pageSize (a power of two).
func CeilTo(addr, pageSize uintptr) (uintptr, error) {
	sum := addr + pageSize - 1
	if sum < addr {
		return 0, ErrOverflow
	}
	return sum &^ (pageSize - 1), nil
}

// RoundToBoundaries rounds addr down and extends size so that the returned
// range covers [addr, addr+size) with whole pages.
func RoundToBoundaries(addr, length uintptr) (uintptr, uintptr, error) {
	return RoundToBoundariesTo(addr, length, size)
}

// RoundToBoundariesTo is RoundToBoundaries for an explicit page size.
func RoundToBoundariesTo(addr, length, pageSize uintptr) (uintptr, uintptr, error) {
	if length == 0 {
		return 0, 0, ErrZeroSize
	}
	end := addr + length
	if end < addr {
		return 0, 0, ErrOverflow
	}
	base := FloorTo(addr, pageSize)
	top, err := CeilTo(end, pageSize)
	if err != nil {
		return 0, 0, err
	}
	return base, top - base, nil
}

// Walk yields the page-aligned address of every whole page in
// [base, base+length), starting with the last page and stepping backward.
// A trailing partial page is not yielded.
func Walk(base, length, pageSize uintptr) iter.Seq[uintptr] {
	return func(yield func(uintptr) bool) {
		if pageSize == 0 {
			return
		}
		for s := length - length%pageSize; s > 0; {
			s -= pageSize
			if !yield(base + s) {
				return
			}
		}
	}
}

// Count returns the number of whole pages in length bytes.
func Count(length, pageSize uintptr) uintptr {
	if pageSize == 0 {
		return 0
	}
	return length / pageSize
}
