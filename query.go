package region

import (
	"fmt"
	"iter"
	"runtime"

	"github.com/hupe1980/region/internal/osmem"
)

// QueryIter walks the mappings of the address space in ascending order.
//
// A QueryIter is forward-only and not safe for concurrent use. Close
// releases the OS resources it holds; it is called automatically once Next
// returns false.
type QueryIter struct {
	cursor  osmem.Cursor
	cleanup runtime.Cleanup

	bounded bool
	limit   uintptr
	upper   uintptr

	pending    osmem.AreaInfo
	hasPending bool

	current Region
	done    bool
	err     error
}

// newQueryIter opens a cursor at origin. With hasOrigin the mapping
// containing origin must exist and, if minSize is non-zero, extend at least
// minSize bytes past origin; the scan then stops at origin+minSize.
func newQueryIter(b osmem.Backend, origin, minSize uintptr, hasOrigin bool) (*QueryIter, error) {
	cur, err := b.Open(origin)
	if err != nil {
		return nil, translateError("query", err)
	}

	it := &QueryIter{cursor: cur}
	if hasOrigin {
		var first osmem.AreaInfo
		if !cur.Next(&first) {
			err := cur.Err()
			_ = cur.Close()
			if err != nil {
				return nil, &SystemCallError{Op: "query", Err: err}
			}
			return nil, fmt.Errorf("%w: %#x", ErrUnmappedRegion, origin)
		}
		if !first.Contains(origin) {
			_ = cur.Close()
			return nil, fmt.Errorf("%w: %#x", ErrUnmappedRegion, origin)
		}
		if first.End()-origin < minSize {
			_ = cur.Close()
			return nil, fmt.Errorf("%w: mapping at %#x ends %#x bytes short of %#x",
				ErrUnmappedRegion, origin, minSize-(first.End()-origin), minSize)
		}
		it.pending, it.hasPending = first, true
		it.upper = first.Size
		if minSize > 0 {
			it.bounded = true
			it.limit = origin + minSize
		}
	}

	it.cleanup = runtime.AddCleanup(it, func(c osmem.Cursor) { _ = c.Close() }, cur)
	return it, nil
}

// Next advances to the next region. It returns false when the scan is
// exhausted or failed; see Err.
func (it *QueryIter) Next() bool {
	if it.done {
		return false
	}

	var info osmem.AreaInfo
	if it.hasPending {
		info, it.hasPending = it.pending, false
	} else if !it.cursor.Next(&info) {
		it.finish()
		return false
	}

	if it.bounded && info.Base >= it.limit {
		it.finish()
		return false
	}

	it.current = regionFromArea(info)
	return true
}

// Region returns the region Next advanced to.
func (it *QueryIter) Region() Region {
	return it.current
}

// Err returns the error that stopped the scan, or nil if it ran to the end.
func (it *QueryIter) Err() error {
	return it.err
}

// UpperBound returns the size of the mapping containing the queried
// address at the time the query started, or zero for QueryAll.
func (it *QueryIter) UpperBound() uintptr {
	return it.upper
}

// Close releases the OS resources held by the iterator. It is idempotent.
func (it *QueryIter) Close() error {
	it.done = true
	return it.closeCursor()
}

// All returns the remaining regions as a sequence. The iterator is closed
// when the loop ends, including on break.
func (it *QueryIter) All() iter.Seq[Region] {
	return func(yield func(Region) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.Region()) {
				return
			}
		}
	}
}

// Regions collects the remaining regions and closes the iterator.
func (it *QueryIter) Regions() ([]Region, error) {
	var out []Region
	for r := range it.All() {
		out = append(out, r)
	}
	return out, it.Err()
}

func (it *QueryIter) finish() {
	it.done = true
	if err := it.cursor.Err(); err != nil {
		it.err = &SystemCallError{Op: "query", Err: err}
	}
	_ = it.closeCursor()
}

func (it *QueryIter) closeCursor() error {
	if it.cursor == nil {
		return nil
	}
	it.cleanup.Stop()
	err := it.cursor.Close()
	it.cursor = nil
	return err
}
