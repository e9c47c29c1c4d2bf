package disk

import (
	"errors"
	"fmt"

	"github.com/google/btree"
)

var ErrOverlap = errors.New("partition overlaps an existing partition")

// extent is an allocated sector range, bounds included.
type extent struct {
	Start, End uint64
	Partno     uint32
}

func (e extent) overlaps(start, end uint64) bool {
	return e.Start <= end && start <= e.End
}

// extentMap keeps the allocated ranges of a label ordered by start sector.
type extentMap struct {
	first, last uint64
	tree        *btree.BTreeG[extent]
}

func newExtentMap(first, last uint64) *extentMap {
	return &extentMap{
		first: first,
		last:  last,
		tree: btree.NewG(32, func(a, b extent) bool {
			return a.Start < b.Start
		}),
	}
}

func (m *extentMap) reset() {
	m.tree.Clear(false)
}

func (m *extentMap) len() int {
	return m.tree.Len()
}

// overlapping returns the first extent intersecting [start, end].
func (m *extentMap) overlapping(start, end uint64) (extent, bool) {
	var (
		found extent
		ok    bool
	)
	m.tree.DescendLessOrEqual(extent{Start: end}, func(e extent) bool {
		if e.overlaps(start, end) {
			found, ok = e, true
			return false
		}
		// extents are disjoint, the ones further left end before start
		return false
	})
	return found, ok
}

// insert adds e to the map unless it overlaps an allocated range.
func (m *extentMap) insert(e extent) error {
	if e.End < e.Start {
		return fmt.Errorf("invalid range [%d,%d]", e.Start, e.End)
	}
	if o, ok := m.overlapping(e.Start, e.End); ok {
		return fmt.Errorf("%w: [%d,%d] overlaps #%d [%d,%d]", ErrOverlap, e.Start, e.End, o.Partno, o.Start, o.End)
	}
	m.tree.ReplaceOrInsert(e)
	return nil
}

// contains reports whether [start, end] lies within the usable area.
func (m *extentMap) contains(start, end uint64) bool {
	return start >= m.first && end <= m.last && start <= end
}

// gapEnd returns the last free sector of the gap containing start.
func (m *extentMap) gapEnd(start uint64) uint64 {
	end := m.last
	m.tree.AscendGreaterOrEqual(extent{Start: start}, func(e extent) bool {
		end = e.Start - 1
		return false
	})
	return end
}

// firstFit returns the first aligned start of a gap able to hold size
// sectors. A zero size accepts any gap at least one sector wide.
func (m *extentMap) firstFit(align func(uint64) uint64, size uint64) (uint64, bool) {
	var (
		next  = m.first
		start uint64
		found bool
	)

	fits := func(gapStart, gapEnd uint64) bool {
		s := align(gapStart)
		if s < gapStart || s > gapEnd {
			return false
		}
		if size > 0 && gapEnd-s+1 < size {
			return false
		}
		start = s
		return true
	}

	m.tree.Ascend(func(e extent) bool {
		if e.Start > next && fits(next, e.Start-1) {
			found = true
			return false
		}
		if e.End+1 > next {
			next = e.End + 1
		}
		return true
	})
	if found {
		return start, true
	}
	if next <= m.last && fits(next, m.last) {
		return start, true
	}
	return 0, false
}
