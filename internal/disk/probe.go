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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const fatBootSectorSize = 0x200

// FatBootSector is the boot sector of a FAT volume (BIOS Parameter Block).
type FatBootSector struct {
	Ignored           [3]byte // 0x00 jump instruction
	SystemID          [8]byte // 0x03 OEM name
	SectorSize        uint16  // 0x0B
	SectorsPerCluster uint8   // 0x0D
	Reserved          uint16  // 0x0E
	Fats              uint8   // 0x10
	DirEntries        uint16  // 0x11
	Sectors           uint16  // 0x13
	Media             uint8   // 0x15
	FatLength         uint16  // 0x16
	SecsTrack         uint16  // 0x18
	Heads             uint16  // 0x1A
	Hidden            uint32  // 0x1C
	TotalSect         uint32  // 0x20

	// FAT32 only
	Fat32Length  uint32   // 0x24
	Flags        uint16   // 0x28
	Version      uint16   // 0x2A
	RootCluster  uint32   // 0x2C
	InfoSector   uint16   // 0x30
	BackupBoot   uint16   // 0x32
	BPBReserved  [12]byte // 0x34
	BSDrvNum     uint8    // 0x40
	BSReserved1  uint8    // 0x41
	BSBootSig    uint8    // 0x42
	BSVolID      uint32   // 0x43
	BSVolLab     [11]byte // 0x47
	BSFilSysType [8]byte  // 0x52

	Nothing [420]byte // 0x5A
	Marker  uint16    // 0x1FE, 0xAA55
}

// ReadFatBootSector decodes a FAT boot sector. Only the marker and the
// sector size are validated.
func ReadFatBootSector(data []byte) (*FatBootSector, error) {
	if len(data) < fatBootSectorSize {
		return nil, fmt.Errorf("input data slice too short: expected %d bytes, got %d bytes",
			fatBootSectorSize, len(data))
	}

	var bs FatBootSector
	if err := binary.Read(bytes.NewReader(data[:fatBootSectorSize]), binary.LittleEndian, &bs); err != nil {
		return nil, fmt.Errorf("error reading FAT boot sector: %w", err)
	}
	if bs.Marker != 0xAA55 {
		return nil, fmt.Errorf("invalid boot sector marker: expected 0xAA55, got 0x%04X", bs.Marker)
	}
	switch bs.SectorSize {
	case 512, 1024, 2048, 4096:
	default:
		return nil, fmt.Errorf("invalid FAT sector size %d", bs.SectorSize)
	}
	return &bs, nil
}

// Label returns the volume label, if any.
func (bs *FatBootSector) Label() string {
	return strings.TrimRight(string(bs.BSVolLab[:]), " \x00")
}

const (
	extSuperblockOff = 1024
	extMagicOff      = extSuperblockOff + 0x38
	extMagic         = 0xEF53

	swapMagicOff = 4096 - 10
	probeSize    = 4096
)

// ProbeFilesystem looks for a known filesystem signature at the start of the
// partition located at byte offset off. It returns "" when none is found.
func ProbeFilesystem(r io.ReaderAt, off int64) (string, error) {
	buf := make([]byte, probeSize)
	n, err := r.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read partition header at offset %d: %w", off, err)
	}
	buf = buf[:n]

	switch {
	case len(buf) >= 11 && bytes.Equal(buf[3:11], []byte("NTFS    ")):
		return "ntfs", nil
	case len(buf) >= swapMagicOff+10 && bytes.Equal(buf[swapMagicOff:swapMagicOff+10], []byte("SWAPSPACE2")):
		return "swap", nil
	case len(buf) >= extMagicOff+2 && binary.LittleEndian.Uint16(buf[extMagicOff:]) == extMagic:
		return "ext", nil
	}

	if bs, err := ReadFatBootSector(buf); err == nil && bs.Fats > 0 {
		if bs.FatLength == 0 {
			return "vfat (fat32)", nil
		}
		return "vfat", nil
	}
	return "", nil
}
