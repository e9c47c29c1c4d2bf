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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	MBRSize         = 512
	mbrEntriesStart = 0x1BE
	mbrEntrySize    = 16
	mbrSignatureOff = 0x1FE

	// maxLogicals bounds the EBR chain walk, protecting against loops.
	maxLogicals = 128
)

var ErrInvalidSignature = errors.New("invalid MBR signature")

// MBRPartitionEntry represents a single 16-byte entry of an MBR or EBR.
// Multi-byte fields are kept as byte arrays, decoded as little-endian.
type MBRPartitionEntry struct {
	BootIndicator uint8         // 0x00: 0x80 for bootable, 0x00 for inactive
	StartCHS      [3]byte       // 0x01
	PartitionType PartitionType // 0x04
	EndCHS        [3]byte       // 0x05
	StartLBA      [4]byte       // 0x08
	TotalSectors  [4]byte       // 0x0C
}

func (p *MBRPartitionEntry) ReadStartLBA() uint32 {
	return binary.LittleEndian.Uint32(p.StartLBA[:])
}

func (p *MBRPartitionEntry) ReadTotalSectors() uint32 {
	return binary.LittleEndian.Uint32(p.TotalSectors[:])
}

// IsEmpty reports whether the entry describes no partition.
func (p *MBRPartitionEntry) IsEmpty() bool {
	return p.PartitionType == PartitionTypeEmpty || p.ReadTotalSectors() == 0
}

func (p *MBRPartitionEntry) String() string {
	return fmt.Sprintf("type=0x%02X (%s) start=%d sectors=%d boot=%t",
		uint8(p.PartitionType), p.PartitionType,
		p.ReadStartLBA(),
		p.ReadTotalSectors(),
		p.BootIndicator == 0x80)
}

// MBR represents a Master Boot Record. Extended Boot Records share the same
// layout, only the first two entries being meaningful.
type MBR struct {
	BootCode         [440]byte            // 0x000-0x1B7
	DiskSignature    [4]byte              // 0x1B8-0x1BB
	Reserved         [2]byte              // 0x1BC-0x1BD
	PartitionEntries [4]MBRPartitionEntry // 0x1BE-0x1FD
	Signature        [2]byte              // 0x1FE-0x1FF, 0x55AA
}

func (m *MBR) ReadDiskSignature() uint32 {
	return binary.LittleEndian.Uint32(m.DiskSignature[:])
}

func (m *MBR) ReadSignature() uint16 {
	return binary.LittleEndian.Uint16(m.Signature[:])
}

// ParseMBR parses the first 512 bytes of data as an MBR.
func ParseMBR(data []byte) (*MBR, error) {
	if len(data) < MBRSize {
		return nil, fmt.Errorf("input data slice too short: expected %d bytes, got %d bytes", MBRSize, len(data))
	}

	var mbr MBR

	copy(mbr.BootCode[:], data[0x000:0x1B8])
	copy(mbr.DiskSignature[:], data[0x1B8:0x1BC])
	copy(mbr.Reserved[:], data[0x1BC:0x1BE])

	for i := range mbr.PartitionEntries {
		b := data[mbrEntriesStart+i*mbrEntrySize:]
		e := &mbr.PartitionEntries[i]

		e.BootIndicator = b[0x00]
		copy(e.StartCHS[:], b[0x01:0x04])
		e.PartitionType = PartitionType(b[0x04])
		copy(e.EndCHS[:], b[0x05:0x08])
		copy(e.StartLBA[:], b[0x08:0x0C])
		copy(e.TotalSectors[:], b[0x0C:0x10])
	}

	copy(mbr.Signature[:], data[mbrSignatureOff:mbrSignatureOff+2])
	if mbr.ReadSignature() != 0xAA55 {
		return nil, fmt.Errorf("%w: expected 0xAA55, got 0x%04X", ErrInvalidSignature, mbr.ReadSignature())
	}
	return &mbr, nil
}

// LogicalPartition is a partition found in the EBR chain of an extended
// partition. Start is absolute.
type LogicalPartition struct {
	EBR   uint64 // sector of the describing EBR
	Start uint64
	Size  uint64
	Type  PartitionType
	Boot  bool
}

// ReadLogicals follows the EBR chain of the extended partition starting at
// extStart and returns the logical partitions in chain order.
func ReadLogicals(r io.ReaderAt, extStart, extSize uint64, sectorSize int64) ([]LogicalPartition, error) {
	var (
		buf     = make([]byte, MBRSize)
		res     []LogicalPartition
		visited = make(map[uint64]struct{})
		ebr     = extStart
	)

	for range maxLogicals {
		if _, ok := visited[ebr]; ok {
			return res, fmt.Errorf("EBR chain loops at sector %d", ebr)
		}
		visited[ebr] = struct{}{}

		if err := readSector(r, ebr, sectorSize, buf); err != nil {
			return res, err
		}

		rec, err := ParseMBR(buf)
		if err != nil {
			// an empty extended partition has no EBR
			if ebr == extStart && errors.Is(err, ErrInvalidSignature) {
				return nil, nil
			}
			return res, fmt.Errorf("failed to parse EBR at sector %d: %w", ebr, err)
		}

		if cur := &rec.PartitionEntries[0]; !cur.IsEmpty() {
			res = append(res, LogicalPartition{
				EBR:   ebr,
				Start: ebr + uint64(cur.ReadStartLBA()),
				Size:  uint64(cur.ReadTotalSectors()),
				Type:  cur.PartitionType,
				Boot:  cur.BootIndicator == 0x80,
			})
		}

		next := &rec.PartitionEntries[1]
		if next.IsEmpty() || !next.PartitionType.IsExtended() {
			return res, nil
		}

		ebr = extStart + uint64(next.ReadStartLBA())
		if ebr >= extStart+extSize {
			return res, fmt.Errorf("EBR at sector %d lies outside the extended partition", ebr)
		}
	}
	return res, fmt.Errorf("EBR chain longer than %d entries", maxLogicals)
}

type PartitionType uint8

const (
	PartitionTypeEmpty         PartitionType = 0x00
	PartitionTypeFAT12         PartitionType = 0x01
	PartitionTypeFAT16Small    PartitionType = 0x04
	PartitionTypeExtendedCHS   PartitionType = 0x05
	PartitionTypeFAT16         PartitionType = 0x06
	PartitionTypeNTFS          PartitionType = 0x07
	PartitionTypeFAT32CHS      PartitionType = 0x0B
	PartitionTypeFAT32LBA      PartitionType = 0x0C
	PartitionTypeFAT16LBA      PartitionType = 0x0E
	PartitionTypeExtendedLBA   PartitionType = 0x0F
	PartitionTypeLinuxSwap     PartitionType = 0x82
	PartitionTypeLinux         PartitionType = 0x83
	PartitionTypeLinuxExtended PartitionType = 0x85
	PartitionTypeLinuxLVM      PartitionType = 0x8E
	PartitionTypeGPT           PartitionType = 0xEE
	PartitionTypeEFISystem     PartitionType = 0xEF
	PartitionTypeLinuxRAID     PartitionType = 0xFD
)

// IsExtended reports whether the type marks a container of logical
// partitions.
func (t PartitionType) IsExtended() bool {
	switch t {
	case PartitionTypeExtendedCHS, PartitionTypeExtendedLBA, PartitionTypeLinuxExtended:
		return true
	}
	return false
}

func (t PartitionType) String() string {
	switch t {
	case PartitionTypeEmpty:
		return "Empty"
	case PartitionTypeFAT12:
		return "FAT12"
	case PartitionTypeFAT16Small:
		return "FAT16 (<32MB)"
	case PartitionTypeExtendedCHS:
		return "Extended (CHS)"
	case PartitionTypeFAT16:
		return "FAT16"
	case PartitionTypeNTFS:
		return "NTFS/HPFS/exFAT"
	case PartitionTypeFAT32CHS:
		return "FAT32 (CHS)"
	case PartitionTypeFAT32LBA:
		return "FAT32 (LBA)"
	case PartitionTypeFAT16LBA:
		return "FAT16 (LBA)"
	case PartitionTypeExtendedLBA:
		return "Extended (LBA)"
	case PartitionTypeLinuxSwap:
		return "Linux swap"
	case PartitionTypeLinux:
		return "Linux"
	case PartitionTypeLinuxExtended:
		return "Linux extended"
	case PartitionTypeLinuxLVM:
		return "Linux LVM"
	case PartitionTypeGPT:
		return "GPT protective"
	case PartitionTypeEFISystem:
		return "EFI System"
	case PartitionTypeLinuxRAID:
		return "Linux RAID"
	default:
		return "Unknown"
	}
}
