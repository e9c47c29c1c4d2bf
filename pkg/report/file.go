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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const bufferSize = 64 * 1024

// IsCompressed reports whether snapshots at path are zstd compressed.
func IsCompressed(path string) bool {
	return filepath.Ext(path) == ".zst"
}

type writeCloser struct {
	closers []func() error
	io.Writer
}

func (c *writeCloser) Close() error {
	var err error
	for _, closer := range c.closers {
		if e := closer(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

type readCloser struct {
	closers []func() error
	io.Reader
}

func (c *readCloser) Close() error {
	var err error
	for _, closer := range c.closers {
		if e := closer(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Create creates a snapshot file. Paths ending in ".zst" are compressed.
func Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot file %s: %w", path, err)
	}
	bw := bufio.NewWriterSize(f, bufferSize)

	if !IsCompressed(path) {
		return &writeCloser{
			closers: []func() error{bw.Flush, f.Close},
			Writer:  bw,
		}, nil
	}

	zw, err := zstd.NewWriter(
		bw,
		zstd.WithEncoderCRC(true),
		zstd.WithEncoderConcurrency(2),
		zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &writeCloser{
		closers: []func() error{zw.Close, bw.Flush, f.Close},
		Writer:  zw,
	}, nil
}

// Open opens a snapshot file written by Create.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file %s: %w", path, err)
	}

	if !IsCompressed(path) {
		return &readCloser{
			closers: []func() error{f.Close},
			Reader:  bufio.NewReaderSize(f, bufferSize),
		}, nil
	}

	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open compressed snapshot %s: %w", path, err)
	}
	return &readCloser{
		closers: []func() error{func() error {
			zr.Close()
			return nil
		}, f.Close},
		Reader: bufio.NewReaderSize(zr, bufferSize),
	}, nil
}

// Save writes doc to path.
func Save(path string, doc *Document) error {
	w, err := Create(path)
	if err != nil {
		return err
	}

	if err := WriteSnapshot(w, doc); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// Load reads a snapshot from path.
func Load(path string) (*Document, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc, err := ReadSnapshot(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
