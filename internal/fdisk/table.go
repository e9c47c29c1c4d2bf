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

import (
	"container/list"
	"slices"
)

// Table is a container for partitions. It has no connection with the label
// it may have been read from: changing a table does not change the in-memory
// or on-disk label.
type Table struct {
	parts    *list.List
	refcount int
}

// NewTable returns an empty table holding one reference.
func NewTable() *Table {
	return &Table{
		parts:    list.New(),
		refcount: 1,
	}
}

// Ref increments the reference counter.
func (tb *Table) Ref() {
	if tb != nil {
		tb.refcount++
	}
}

// Unref decrements the reference counter. On zero all entries are removed,
// releasing the table reference on each of them.
func (tb *Table) Unref() {
	if tb == nil {
		return
	}
	tb.refcount--
	if tb.refcount <= 0 {
		_ = tb.Reset()
	}
}

// Reset removes all entries from the table. Partitions left without
// references are released.
func (tb *Table) Reset() error {
	if tb == nil {
		return ErrInvalidArgument
	}
	for e := tb.parts.Front(); e != nil; e = tb.parts.Front() {
		if err := tb.Remove(e.Value.(*Partition)); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether the table has no entries. A nil table is empty.
func (tb *Table) IsEmpty() bool {
	return tb == nil || tb.parts.Len() == 0
}

// Len returns the number of entries in the table.
func (tb *Table) Len() int {
	if tb == nil {
		return 0
	}
	return tb.parts.Len()
}

// Next returns the next entry of the table. A fresh iterator, or one bound to
// a different table, starts from the first entry. ErrDone is returned at the
// end of the table.
//
// The entry last returned may be removed during a traversal. Removing the
// entry that follows it makes the next call fail with ErrStaleIter.
//
//	for pa, err := tb.Next(itr); err == nil; pa, err = tb.Next(itr) {
//		...
//	}
func (tb *Table) Next(itr *Iter) (*Partition, error) {
	if tb == nil || itr == nil {
		return nil, ErrInvalidArgument
	}
	if itr.head != tb.parts {
		itr.bind(tb.parts)
	}
	if itr.next == nil {
		return nil, ErrDone
	}
	e := itr.next
	pa := e.Value.(*Partition)
	if pa.elem != e {
		itr.next = nil
		return nil, ErrStaleIter
	}
	itr.next = e.Next()
	return pa, nil
}

// Get returns the n-th entry, or nil.
func (tb *Table) Get(n int) *Partition {
	if tb == nil || n < 0 {
		return nil
	}

	var itr Iter
	for pa, err := tb.Next(&itr); err == nil; pa, err = tb.Next(&itr) {
		if n == 0 {
			return pa
		}
		n--
	}
	return nil
}

// GetByPartno returns the first entry with the given partition number, or nil.
func (tb *Table) GetByPartno(partno uint32) *Partition {
	if tb == nil {
		return nil
	}

	var itr Iter
	for pa, err := tb.Next(&itr); err == nil; pa, err = tb.Next(&itr) {
		if pa.HasPartno() && pa.partno == partno {
			return pa
		}
	}
	return nil
}

// Add appends pa to the table and takes a reference on it. Call Unref on pa
// afterwards if it should be referenced by the table only.
func (tb *Table) Add(pa *Partition) error {
	if tb == nil || pa == nil {
		return ErrInvalidArgument
	}
	if pa.IsLinked() {
		return ErrAlreadyLinked
	}

	pa.Ref()
	pa.elem = tb.parts.PushBack(pa)
	pa.owner = tb
	return nil
}

// InsertAfter inserts pa right after anchor, or at the head of the table when
// anchor is nil, and takes a reference on it.
func (tb *Table) InsertAfter(anchor, pa *Partition) error {
	if tb == nil || pa == nil {
		return ErrInvalidArgument
	}
	if pa.IsLinked() {
		return ErrAlreadyLinked
	}
	if anchor != nil && anchor.owner != tb {
		return ErrInvalidArgument
	}

	pa.Ref()
	if anchor != nil {
		pa.elem = tb.parts.InsertAfter(pa, anchor.elem)
	} else {
		pa.elem = tb.parts.PushFront(pa)
	}
	pa.owner = tb
	return nil
}

// Remove unlinks pa from the table and drops the table reference. Take a
// reference with Ref before calling Remove to keep using pa afterwards.
func (tb *Table) Remove(pa *Partition) error {
	if tb == nil || pa == nil || pa.owner != tb {
		return ErrInvalidArgument
	}

	tb.parts.Remove(pa.elem)
	pa.elem = nil
	pa.owner = nil
	pa.Unref()
	return nil
}

// Sort reorders the entries with a stable sort using cmp, which follows the
// cmp.Compare convention.
func (tb *Table) Sort(cmp func(a, b *Partition) int) error {
	if tb == nil || cmp == nil {
		return ErrInvalidArgument
	}

	parts := tb.Partitions()
	slices.SortStableFunc(parts, cmp)

	for _, pa := range parts {
		tb.parts.MoveToBack(pa.elem)
	}
	return nil
}

// Partitions returns the entries in table order. The returned partitions are
// not referenced on behalf of the caller.
func (tb *Table) Partitions() []*Partition {
	if tb == nil {
		return nil
	}

	parts := make([]*Partition, 0, tb.parts.Len())
	for e := tb.parts.Front(); e != nil; e = e.Next() {
		parts = append(parts, e.Value.(*Partition))
	}
	return parts
}

// WrongOrder reports whether the entries are not in disk order. Entries
// without a start and whole-disk entries are ignored.
func (tb *Table) WrongOrder() bool {
	var (
		itr  Iter
		last uint64
	)
	for pa, err := tb.Next(&itr); err == nil; pa, err = tb.Next(&itr) {
		if !pa.HasStart() || pa.IsWholedisk() {
			continue
		}
		if pa.start < last {
			return true
		}
		last = pa.start
	}
	return false
}
