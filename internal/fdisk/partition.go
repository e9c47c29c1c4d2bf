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
	"cmp"
	"container/list"
	"fmt"
	"strings"
)

const (
	// NoSector marks an unset start or size.
	NoSector = ^uint64(0)
	// NoPartno marks an unset partition number.
	NoPartno = ^uint32(0)
)

// Partition describes one region of a disk. It may be backed by a real label
// entry or be a synthetic free-space description.
//
// A Partition is reference counted: every table holding it owns one
// reference, and so does whoever created it. When the count drops to zero the
// partition content is reset.
type Partition struct {
	start        uint64
	size         uint64
	partno       uint32
	parentPartno uint32

	Type     string // label specific type, e.g. "0x83" or a GPT type GUID
	Name     string
	Bootable bool

	used               bool
	freespace          bool
	wholedisk          bool
	nested             bool
	container          bool
	startFollowDefault bool

	refcount int

	// linkage into a table sequence, nil when not linked
	owner *Table
	elem  *list.Element
}

// NewPartition returns an empty partition holding one reference.
func NewPartition() *Partition {
	pa := &Partition{refcount: 1}
	pa.reset()
	return pa
}

func (pa *Partition) reset() {
	*pa = Partition{
		start:        NoSector,
		size:         NoSector,
		partno:       NoPartno,
		parentPartno: NoPartno,
		refcount:     pa.refcount,
		owner:        pa.owner,
		elem:         pa.elem,
	}
}

// Ref increments the reference counter.
func (pa *Partition) Ref() {
	if pa != nil {
		pa.refcount++
	}
}

// Unref decrements the reference counter. When it reaches zero the partition
// content is cleared and the partition must not be used anymore.
func (pa *Partition) Unref() {
	if pa == nil {
		return
	}
	pa.refcount--
	if pa.refcount <= 0 {
		pa.reset()
		pa.refcount = 0
	}
}

// Refcount returns the number of live references.
func (pa *Partition) Refcount() int {
	if pa == nil {
		return 0
	}
	return pa.refcount
}

// IsLinked reports whether the partition is a member of some table.
func (pa *Partition) IsLinked() bool {
	return pa != nil && pa.owner != nil
}

// SetStart sets the first sector of the partition.
func (pa *Partition) SetStart(start uint64) error {
	if pa == nil || start == NoSector {
		return ErrInvalidArgument
	}
	pa.start = start
	return nil
}

// UnsetStart marks the start as undefined.
func (pa *Partition) UnsetStart() { pa.start = NoSector }

func (pa *Partition) HasStart() bool { return pa != nil && pa.start != NoSector }

// Start returns the first sector, or NoSector when undefined.
func (pa *Partition) Start() uint64 { return pa.start }

// SetSize sets the size in sectors.
func (pa *Partition) SetSize(size uint64) error {
	if pa == nil || size == NoSector {
		return ErrInvalidArgument
	}
	pa.size = size
	return nil
}

func (pa *Partition) UnsetSize() { pa.size = NoSector }

func (pa *Partition) HasSize() bool { return pa != nil && pa.size != NoSector }

// Size returns the size in sectors, or NoSector when undefined.
func (pa *Partition) Size() uint64 { return pa.size }

// HasEnd reports whether both start and a non zero size are known.
func (pa *Partition) HasEnd() bool {
	return pa.HasStart() && pa.HasSize() && pa.size > 0
}

// End returns the last sector of the partition (inclusive). The result is
// only meaningful when HasEnd is true.
func (pa *Partition) End() uint64 {
	return pa.start + pa.size - 1
}

func (pa *Partition) SetPartno(n uint32) error {
	if pa == nil || n == NoPartno {
		return ErrInvalidArgument
	}
	pa.partno = n
	return nil
}

func (pa *Partition) UnsetPartno() { pa.partno = NoPartno }

func (pa *Partition) HasPartno() bool { return pa != nil && pa.partno != NoPartno }

func (pa *Partition) Partno() uint32 { return pa.partno }

func (pa *Partition) SetParentPartno(n uint32) error {
	if pa == nil || n == NoPartno {
		return ErrInvalidArgument
	}
	pa.parentPartno = n
	return nil
}

func (pa *Partition) HasParentPartno() bool { return pa != nil && pa.parentPartno != NoPartno }

func (pa *Partition) ParentPartno() uint32 { return pa.parentPartno }

func (pa *Partition) SetUsed(v bool)               { pa.used = v }
func (pa *Partition) SetFreespace(v bool)          { pa.freespace = v }
func (pa *Partition) SetWholedisk(v bool)          { pa.wholedisk = v }
func (pa *Partition) SetNested(v bool)             { pa.nested = v }
func (pa *Partition) SetContainer(v bool)          { pa.container = v }
func (pa *Partition) SetStartFollowDefault(v bool) { pa.startFollowDefault = v }

func (pa *Partition) IsUsed() bool             { return pa != nil && pa.used }
func (pa *Partition) IsFreespace() bool        { return pa != nil && pa.freespace }
func (pa *Partition) IsWholedisk() bool        { return pa != nil && pa.wholedisk }
func (pa *Partition) IsNested() bool           { return pa != nil && pa.nested }
func (pa *Partition) IsContainer() bool        { return pa != nil && pa.container }
func (pa *Partition) StartFollowDefault() bool { return pa != nil && pa.startFollowDefault }

// Contains reports whether the sector range of o lies inside pa.
func (pa *Partition) Contains(o *Partition) bool {
	if !pa.HasEnd() || !o.HasEnd() {
		return false
	}
	return o.start >= pa.start && o.End() <= pa.End()
}

// CmpStart orders partitions by start sector. Partitions without a start are
// placed first.
func CmpStart(a, b *Partition) int {
	return cmp.Compare(startKey(a), startKey(b))
}

func startKey(pa *Partition) uint64 {
	if !pa.HasStart() {
		return 0
	}
	return pa.start
}

func (pa *Partition) String() string {
	var sb strings.Builder

	if pa.HasPartno() {
		fmt.Fprintf(&sb, "#%d ", pa.partno)
	} else {
		sb.WriteString("#- ")
	}
	if pa.HasEnd() {
		fmt.Fprintf(&sb, "[%d,%d] %d sectors", pa.start, pa.End(), pa.size)
	} else if pa.HasStart() {
		fmt.Fprintf(&sb, "[%d,?]", pa.start)
	} else {
		sb.WriteString("[?]")
	}

	var flags []string
	for _, f := range []struct {
		set  bool
		name string
	}{
		{pa.used, "used"},
		{pa.freespace, "free"},
		{pa.wholedisk, "wholedisk"},
		{pa.nested, "nested"},
		{pa.container, "container"},
	} {
		if f.set {
			flags = append(flags, f.name)
		}
	}
	if len(flags) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(flags, ","))
	}
	return sb.String()
}
