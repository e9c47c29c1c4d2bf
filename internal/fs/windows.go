//go:build windows
// +build windows

package fs

import (
	"fmt"
	"io"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	ioctlDiskGetDriveGeometry = 0x70000
	ioctlDiskGetLengthInfo    = 0x7405C
)

type diskGeometry struct {
	Cylinders         int64
	MediaType         uint32
	TracksPerCylinder uint32
	SectorsPerTrack   uint32
	BytesPerSector    uint32
}

// volumeFile reads raw volumes, which only accept sector aligned reads.
type volumeFile struct {
	handle     windows.Handle
	size       int64
	sectorSize int64
}

// Open opens path read-only. Regular files are served by the os package,
// raw volumes (\\.\PhysicalDriveN, \\.\C:) through sector aligned reads.
func Open(path string) (File, error) {
	if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return &regularFile{File: f, size: fi.Size()}, nil
	}

	handle, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}

	v := &volumeFile{handle: handle, sectorSize: 512}
	if err := v.stat(); err != nil {
		windows.CloseHandle(handle)
		return nil, err
	}
	return v, nil
}

type regularFile struct {
	*os.File
	size int64
}

func (f *regularFile) Size() int64 { return f.size }

func (v *volumeFile) stat() error {
	var (
		geometry diskGeometry
		length   int64
		n        uint32
	)

	err := windows.DeviceIoControl(
		v.handle,
		ioctlDiskGetDriveGeometry,
		nil,
		0,
		(*byte)(unsafe.Pointer(&geometry)),
		uint32(unsafe.Sizeof(geometry)),
		&n,
		nil,
	)
	if err != nil {
		return fmt.Errorf("DeviceIoControl(IOCTL_DISK_GET_DRIVE_GEOMETRY) failed: %w", err)
	}
	if geometry.BytesPerSector > 0 {
		v.sectorSize = int64(geometry.BytesPerSector)
	}

	err = windows.DeviceIoControl(
		v.handle,
		ioctlDiskGetLengthInfo,
		nil,
		0,
		(*byte)(unsafe.Pointer(&length)),
		uint32(unsafe.Sizeof(length)),
		&n,
		nil,
	)
	if err != nil {
		// volumes without length info report their size through the geometry
		length = geometry.Cylinders * int64(geometry.TracksPerCylinder) *
			int64(geometry.SectorsPerTrack) * int64(geometry.BytesPerSector)
	}
	v.size = length
	return nil
}

func (v *volumeFile) Size() int64 { return v.size }

func (v *volumeFile) ReadAt(p []byte, off int64) (int, error) {
	ss := v.sectorSize

	alignedOffset := off / ss * ss
	skip := int(off - alignedOffset)
	alignedSize := (int64(len(p)+skip) + ss - 1) / ss * ss

	buf := make([]byte, alignedSize)

	var read uint32
	ov := new(windows.Overlapped)
	ov.Offset = uint32(alignedOffset)
	ov.OffsetHigh = uint32(alignedOffset >> 32)

	err := windows.ReadFile(v.handle, buf, &read, ov)
	if err == syscall.ERROR_IO_PENDING {
		err = windows.GetOverlappedResult(v.handle, ov, &read, true)
	}
	if err != nil {
		return 0, fmt.Errorf("aligned read failed: %w", err)
	}

	if int(read) <= skip {
		return 0, io.EOF
	}
	n := copy(p, buf[skip:read])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (v *volumeFile) Close() error {
	return windows.CloseHandle(v.handle)
}
