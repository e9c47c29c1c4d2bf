//go:build !linux
// +build !linux

package fuse

import (
	"fmt"
	"io"

	"github.com/ostafen/partlab/internal/logger"
)

func Mount(mountpoint string, r io.ReaderAt, entries []Entry, log *logger.Logger) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
