// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fdisk

// newFreespace allocates a free space description of [start, end]. It returns
// nil when the area disappears once aligned.
func (cxt *Context) newFreespace(start, end uint64, parent *Partition) *Partition {
	if start >= end {
		return nil
	}

	aligned := alignInRange(cxt.label, start, start, end)
	if aligned > end {
		return nil
	}

	pa := NewPartition()
	pa.freespace = true
	pa.start = aligned
	pa.size = end - aligned + 1

	if parent.HasPartno() {
		pa.parentPartno = parent.partno
	}
	return pa
}

// tableAddFreespace inserts a free space description into tb, right after the
// entry that ends closest before it.
func (cxt *Context) tableAddFreespace(tb *Table, start, end uint64, parent *Partition) error {
	pa := cxt.newFreespace(start, end, parent)
	if pa == nil {
		return nil
	}
	defer pa.Unref()

	var (
		itr        Iter
		realParent *Partition
		best       *Partition
	)

	if parent.HasPartno() {
		for x, err := tb.Next(&itr); err == nil; x, err = tb.Next(&itr) {
			if x.HasPartno() && x.partno == parent.partno {
				realParent = x
				break
			}
		}
		if realParent == nil {
			itr.Reset()
		}
	}

	// the search continues after the parent, if any
	for x, err := tb.Next(&itr); err == nil; x, err = tb.Next(&itr) {
		if !x.HasEnd() {
			continue
		}
		if x.End() < pa.start && (best == nil || best.End() < x.End()) {
			best = x
		}
	}

	if best == nil && realParent != nil {
		best = realParent
	}

	cxt.log.Debugf("freespace %s", pa)
	return tb.InsertAfter(best, pa)
}

func isChildOf(cont, pa *Partition) bool {
	if pa.HasParentPartno() {
		return cont.HasPartno() && pa.parentPartno == cont.partno
	}
	return cont.Contains(pa)
}

// checkContainerFreespace adds the gaps between the nested partitions of cont
// to tb. parts must be sorted by start.
func (cxt *Context) checkContainerFreespace(parts, tb *Table, cont *Partition) error {
	if !cont.HasEnd() {
		return nil
	}

	var (
		itr   Iter
		last  = cont.start
		grain = GrainSectors(cxt.label)
		off   = cxt.label.FirstLBA()
	)

	for pa, err := parts.Next(&itr); err == nil; pa, err = parts.Next(&itr) {
		if !pa.used || !pa.nested || !pa.HasStart() || !isChildOf(cont, pa) {
			continue
		}

		lastPlusOff := last + off
		if pa.start > lastPlusOff && pa.start-lastPlusOff > grain {
			if err := cxt.tableAddFreespace(tb, lastPlusOff, pa.start-1, cont); err != nil {
				return err
			}
		}
		if pa.HasEnd() {
			last = pa.End()
		}
	}

	// free space remaining at the end of the container
	x := cont.End()
	lastPlusOff := last + off
	if lastPlusOff < x && x-lastPlusOff > grain {
		return cxt.tableAddFreespace(tb, lastPlusOff, x, cont)
	}
	return nil
}

// GetFreespaces adds the free areas of the label to tb, allocating a new table
// when tb is nil. Areas smaller than the grain are ignored, except for the
// space before the first partition when the first usable sector is aligned.
//
// On error the regions added so far are kept in the returned table.
func (cxt *Context) GetFreespaces(tb *Table) (*Table, error) {
	if cxt == nil || cxt.label == nil {
		return tb, ErrInvalidArgument
	}
	if tb == nil {
		tb = NewTable()
	}

	parts, err := cxt.GetPartitions(nil)
	defer parts.Unref()
	if err != nil {
		return tb, err
	}

	if err := parts.Sort(CmpStart); err != nil {
		return tb, err
	}

	var (
		g      = cxt.label
		itr    Iter
		nparts int
		last   = g.FirstLBA()
		grain  = GrainSectors(g)
	)

	// gaps between partitions
	for pa, err := parts.Next(&itr); err == nil; pa, err = parts.Next(&itr) {
		if !pa.used || pa.wholedisk || pa.nested || !pa.HasStart() {
			continue
		}

		if last+grain < pa.start || (nparts == 0 && g.AlignLBA(last, AlignUp) < pa.start) {
			start := last
			if nparts > 0 {
				start++
			}
			if err := cxt.tableAddFreespace(tb, start, pa.start-1, nil); err != nil {
				return tb, err
			}
		}

		// gaps between nested partitions
		if pa.container {
			if err := cxt.checkContainerFreespace(parts, tb, pa); err != nil {
				return tb, err
			}
		}

		if pa.HasEnd() && pa.End() > last {
			last = pa.End()
		}
		nparts++
	}

	// space behind the last partition is appended as is
	lastLBA := g.LastLBA()
	if lastLBA > 0 && last+grain < lastLBA-1 {
		start := last
		if last > g.FirstLBA() || nparts > 0 {
			start++
		}
		if pa := cxt.newFreespace(start, lastLBA, nil); pa != nil {
			err := tb.Add(pa)
			pa.Unref()
			if err != nil {
				return tb, err
			}
			cxt.log.Debugf("freespace %s", pa)
		}
	}
	return tb, nil
}
