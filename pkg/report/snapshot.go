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
package report

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ostafen/partlab/internal/fdisk"
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Build captures the used partitions of label.
func Build(label fdisk.Label, src Source, opts ...fdisk.Option) (*Document, error) {
	cxt, err := fdisk.NewContext(label, opts...)
	if err != nil {
		return nil, err
	}

	tb, err := cxt.GetPartitions(nil)
	defer tb.Unref()
	if err != nil {
		return nil, err
	}

	src.Label = label.Type()
	doc := &Document{
		Version: FormatVersion,
		Creator: NewCreator(),
		Source:  src,
		Geometry: Geometry{
			SectorSize: label.SectorSize(),
			GrainSize:  label.GrainSize(),
			FirstLBA:   label.FirstLBA(),
			LastLBA:    label.LastLBA(),
		},
	}

	itr := fdisk.NewIter()
	for pa, err := tb.Next(itr); err == nil; pa, err = tb.Next(itr) {
		doc.Partitions = append(doc.Partitions, entryOf(pa))
	}
	doc.Fingerprint = Fingerprint(doc.Partitions)
	return doc, nil
}

func entryOf(pa *fdisk.Partition) Entry {
	e := Entry{
		Partno:    pa.Partno(),
		Container: pa.IsContainer(),
		Nested:    pa.IsNested(),
		Bootable:  pa.Bootable,
		Start:     pa.Start(),
		Size:      pa.Size(),
		Type:      pa.Type,
		Name:      pa.Name,
	}
	if pa.HasParentPartno() {
		parent := pa.ParentPartno()
		e.Parent = &parent
	}
	return e
}

// Snapshot is a read-only label backed by a snapshot document.
type Snapshot struct {
	fdisk.Topology

	doc *Document
}

var _ fdisk.Label = (*Snapshot)(nil)

// NewSnapshot validates doc and wraps it into a label.
func NewSnapshot(doc *Document) (*Snapshot, error) {
	g := doc.Geometry
	if g.SectorSize == 0 || g.LastLBA < g.FirstLBA {
		return nil, fmt.Errorf("%w: bad geometry", ErrInvalidSnapshot)
	}

	switch doc.Source.Label {
	case "mbr", "gpt":
	default:
		return nil, fmt.Errorf("%w: unknown label type %q", ErrInvalidSnapshot, doc.Source.Label)
	}

	seen := make(map[uint32]bool, len(doc.Partitions))
	for _, e := range doc.Partitions {
		if e.Size == 0 {
			return nil, fmt.Errorf("%w: partition %d has no size", ErrInvalidSnapshot, e.Partno)
		}
		if seen[e.Partno] {
			return nil, fmt.Errorf("%w: duplicate partition %d", ErrInvalidSnapshot, e.Partno)
		}
		seen[e.Partno] = true

		if doc.Source.Label == "gpt" {
			if _, err := uuid.Parse(e.Type); err != nil {
				return nil, fmt.Errorf("%w: partition %d: bad type GUID %q: %w", ErrInvalidSnapshot, e.Partno, e.Type, err)
			}
		}
	}

	return &Snapshot{
		Topology: fdisk.Topology{
			Grain:           g.GrainSize,
			Sector:          g.SectorSize,
			First:           g.FirstLBA,
			Last:            g.LastLBA,
			AlignmentOffset: g.AlignmentOffset,
		},
		doc: doc,
	}, nil
}

// LoadSnapshot reads the snapshot file at path as a label.
func LoadSnapshot(path string) (*Snapshot, error) {
	doc, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(doc)
}

func (s *Snapshot) Type() string { return s.doc.Source.Label }

func (s *Snapshot) Document() *Document { return s.doc }

func (s *Snapshot) Partitions() ([]*fdisk.Partition, error) {
	parts := make([]*fdisk.Partition, 0, len(s.doc.Partitions))
	for _, e := range s.doc.Partitions {
		pa := fdisk.NewPartition()
		_ = pa.SetPartno(e.Partno)
		_ = pa.SetStart(e.Start)
		_ = pa.SetSize(e.Size)
		if e.Parent != nil {
			_ = pa.SetParentPartno(*e.Parent)
		}
		pa.SetUsed(true)
		pa.SetContainer(e.Container)
		pa.SetNested(e.Nested)
		pa.Type = e.Type
		pa.Name = e.Name
		pa.Bootable = e.Bootable

		parts = append(parts, pa)
	}
	return parts, nil
}
