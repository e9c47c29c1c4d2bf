package fs

import (
	"io"
)

// File is a read-only handle on a disk image or raw device.
type File interface {
	io.ReaderAt
	io.Closer

	// Size returns the size of the image or device in bytes.
	Size() int64
}

// Section returns a reader limited to [off, off+n) of f.
func Section(f File, off, n int64) *io.SectionReader {
	if off+n > f.Size() {
		n = max(f.Size()-off, 0)
	}
	return io.NewSectionReader(f, off, n)
}
