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
	"fmt"

	"github.com/ostafen/partlab/internal/logger"
)

// Label is a partition table provider, e.g. an MBR or GPT read from a disk
// image, or a saved layout snapshot.
type Label interface {
	Geometry

	// Type returns the label type, e.g. "mbr" or "gpt".
	Type() string

	// Partitions enumerates the label entries. Each returned partition holds
	// one reference owned by the caller.
	Partitions() ([]*Partition, error)
}

// Applier is implemented by labels that can receive new partitions.
type Applier interface {
	AddPartition(pa *Partition) error
}

// Context binds the table algorithms to a label.
type Context struct {
	label Label
	log   *logger.Logger
}

type Option func(*Context)

// WithLogger sets the logger used to trace table operations.
func WithLogger(l *logger.Logger) Option {
	return func(cxt *Context) {
		if l != nil {
			cxt.log = l
		}
	}
}

func NewContext(label Label, opts ...Option) (*Context, error) {
	if label == nil {
		return nil, ErrInvalidArgument
	}

	cxt := &Context{
		label: label,
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(cxt)
	}
	return cxt, nil
}

func (cxt *Context) Label() Label { return cxt.label }

// GetPartitions adds the used partitions of the label to tb. A new table is
// allocated when tb is nil.
func (cxt *Context) GetPartitions(tb *Table) (*Table, error) {
	if cxt == nil || cxt.label == nil {
		return tb, ErrInvalidArgument
	}

	parts, err := cxt.label.Partitions()
	if err != nil {
		return tb, fmt.Errorf("failed to enumerate %s partitions: %w", cxt.label.Type(), err)
	}

	if tb == nil {
		tb = NewTable()
	}

	for _, pa := range parts {
		if pa.IsUsed() {
			if err := tb.Add(pa); err != nil {
				releaseAll(parts)
				return tb, err
			}
			cxt.log.Debugf("partition %s", pa)
		}
	}
	releaseAll(parts)
	return tb, nil
}

func releaseAll(parts []*Partition) {
	for _, pa := range parts {
		pa.Unref()
	}
}

// ApplyTable adds the partitions of tb to the label. Entries that neither
// define a start nor follow the default start are ignored.
func (cxt *Context) ApplyTable(tb *Table) error {
	if cxt == nil || cxt.label == nil {
		return ErrInvalidArgument
	}

	ap, ok := cxt.label.(Applier)
	if !ok {
		return fmt.Errorf("%s label: %w", cxt.label.Type(), ErrNotSupported)
	}

	var itr Iter
	for pa, err := tb.Next(&itr); err == nil; pa, err = tb.Next(&itr) {
		if !pa.HasStart() && !pa.StartFollowDefault() {
			continue
		}
		if err := ap.AddPartition(pa); err != nil {
			return fmt.Errorf("failed to add partition %s: %w", pa, err)
		}
		cxt.log.Debugf("applied partition %s", pa)
	}
	return nil
}
