package disk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	gptMaxEntries   = 128
	gptMinEntrySize = 128
)

var gptSignature = []byte("EFI PART")

// GPTHeader holds the fields of a GPT header needed to describe the usable
// area of a disk and to locate its partition entry array.
type GPTHeader struct {
	FirstUsableLBA uint64
	LastUsableLBA  uint64
	EntriesLBA     uint64
	NumEntries     uint32
	EntrySize      uint32
}

// ParseGPTHeader parses a GPT header from the start of data.
func ParseGPTHeader(data []byte) (*GPTHeader, error) {
	if len(data) < 92 {
		return nil, fmt.Errorf("GPT header too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[0:8], gptSignature) {
		return nil, fmt.Errorf("invalid GPT signature %q", data[0:8])
	}

	hdr := &GPTHeader{
		FirstUsableLBA: binary.LittleEndian.Uint64(data[40:48]),
		LastUsableLBA:  binary.LittleEndian.Uint64(data[48:56]),
		EntriesLBA:     binary.LittleEndian.Uint64(data[72:80]),
		NumEntries:     binary.LittleEndian.Uint32(data[80:84]),
		EntrySize:      binary.LittleEndian.Uint32(data[84:88]),
	}
	if hdr.FirstUsableLBA > hdr.LastUsableLBA {
		return nil, fmt.Errorf("invalid GPT usable area [%d,%d]", hdr.FirstUsableLBA, hdr.LastUsableLBA)
	}
	if hdr.EntrySize < gptMinEntrySize {
		return nil, fmt.Errorf("invalid GPT entry size %d", hdr.EntrySize)
	}
	return hdr, nil
}

// ReadGPTHeader reads the primary GPT header, stored at LBA 1.
func ReadGPTHeader(r io.ReaderAt, sectorSize int64) (*GPTHeader, error) {
	buf := make([]byte, sectorSize)
	if err := readSector(r, 1, sectorSize, buf); err != nil {
		return nil, err
	}
	return ParseGPTHeader(buf)
}

// UsedSlots reads the partition entry array described by hdr and reports,
// for each slot up to the last used one, whether it holds a partition.
func (hdr *GPTHeader) UsedSlots(r io.ReaderAt, sectorSize int64) ([]bool, error) {
	n := hdr.NumEntries
	if n > gptMaxEntries {
		n = gptMaxEntries
	}

	buf := make([]byte, int64(n)*int64(hdr.EntrySize))
	off := int64(hdr.EntriesLBA) * sectorSize
	if nr, err := r.ReadAt(buf, off); err != nil && !(err == io.EOF && nr == len(buf)) {
		return nil, fmt.Errorf("failed to read GPT entries at sector %d: %w", hdr.EntriesLBA, err)
	}

	var used []bool
	last := -1
	zero := make([]byte, 16)
	for i := 0; i < int(n); i++ {
		entry := buf[i*int(hdr.EntrySize):]
		inUse := !bytes.Equal(entry[:16], zero)
		used = append(used, inUse)
		if inUse {
			last = i
		}
	}
	return used[:last+1], nil
}
