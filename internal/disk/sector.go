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
package disk

import (
	"fmt"
	"io"
)

const (
	DefaultBlocksize = 512
	DefaultGrain     = 1 << 20
)

// GuessGrain returns the largest power of two grain, between blockSize and
// DefaultGrain, that all the given byte offsets are aligned to. It returns
// DefaultGrain when no offset is given.
func GuessGrain(offsets []uint64, blockSize uint64) uint64 {
	if blockSize == 0 {
		blockSize = DefaultBlocksize
	}

	grain := uint64(DefaultGrain)
	for valid := false; !valid; {
		grain, valid = enforceAlignment(offsets, grain, blockSize)
	}
	return grain
}

func enforceAlignment(offsets []uint64, grain, blockSize uint64) (uint64, bool) {
	for _, off := range offsets {
		if off%grain != 0 && grain > blockSize {
			return grain >> 1, false
		}
	}
	return grain, true
}

// readSector reads the sector at lba. Sectors larger than buf are read
// partially.
func readSector(r io.ReaderAt, lba uint64, sectorSize int64, buf []byte) error {
	n, err := r.ReadAt(buf, int64(lba)*sectorSize)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return fmt.Errorf("failed to read sector %d: %w", lba, err)
	}
	return nil
}
