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
package fuse

import (
	"fmt"

	"github.com/ostafen/partlab/internal/fdisk"
)

// Entry is a file exposed by the mount, backed by a byte range of the disk.
type Entry struct {
	Name   string
	Offset uint64
	Size   uint64
}

// BuildEntries maps each used partition to a file named p<partno> and each
// free region to free<n>, n being its position in free. Containers are
// skipped since their content is covered by the nested partitions.
func BuildEntries(parts, free *fdisk.Table, sectorSize uint64) []Entry {
	var entries []Entry

	itr := fdisk.NewIter()
	for pa, err := parts.Next(itr); err == nil; pa, err = parts.Next(itr) {
		if !pa.IsUsed() || pa.IsContainer() || !pa.HasEnd() {
			continue
		}
		entries = append(entries, Entry{
			Name:   fmt.Sprintf("p%d", pa.Partno()),
			Offset: pa.Start() * sectorSize,
			Size:   pa.Size() * sectorSize,
		})
	}

	n := 0
	for pa, err := free.Next(itr); err == nil; pa, err = free.Next(itr) {
		entries = append(entries, Entry{
			Name:   fmt.Sprintf("free%d", n),
			Offset: pa.Start() * sectorSize,
			Size:   pa.Size() * sectorSize,
		})
		n++
	}
	return entries
}
