//go:build !windows
// +build !windows

package fs

import (
	"fmt"
	"io"
	"os"
)

type osFile struct {
	*os.File
	size int64
}

func (f *osFile) Size() int64 { return f.size }

// Open opens path read-only. Block devices are sized by seeking to their end.
func Open(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get size of %q: %w", path, err)
	}
	return &osFile{File: f, size: size}, nil
}
