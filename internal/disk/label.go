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
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"strings"
	"unicode"

	diskfs "github.com/diskfs/go-diskfs"
	godisk "github.com/diskfs/go-diskfs/disk"
	"github.com/diskfs/go-diskfs/partition"
	"github.com/diskfs/go-diskfs/partition/gpt"
	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/google/uuid"

	"github.com/ostafen/partlab/internal/fdisk"
	"github.com/ostafen/partlab/internal/logger"
)

const (
	LabelMBR = "mbr"
	LabelGPT = "gpt"

	mbrPrimaries = 4

	// size of the partition entry array of a GPT, 128 entries of 128 bytes
	gptEntriesBytes = 128 * 128
)

var (
	ErrNoLabel  = errors.New("no partition table found")
	ErrReadOnly = errors.New("label opened read-only")
	ErrNoSlot   = errors.New("no free primary partition slot")
	ErrNoSpace  = errors.New("no free area large enough")
)

type Options struct {
	Writable bool

	// Grain is the alignment in bytes. When zero, it is guessed from the
	// start of the existing partitions.
	Grain uint64

	// CreateType is the type of the label created in memory when the disk
	// has none. An empty value makes OpenLabel fail with ErrNoLabel.
	CreateType string

	Logger *logger.Logger
}

// ImageLabel is the MBR or GPT label of a disk image or block device.
// Changes are kept in memory until Write is called.
type ImageLabel struct {
	fdisk.Topology

	path string
	dev  *godisk.Disk
	typ  string

	mbr       *mbr.Table
	logicals  []LogicalPartition
	extPartno uint32

	gpt *gpt.Table

	extents *extentMap
	dirty   bool
	log     *logger.Logger
}

var (
	_ fdisk.Label   = (*ImageLabel)(nil)
	_ fdisk.Applier = (*ImageLabel)(nil)
)

// OpenLabel opens the disk at path and reads its partition table.
func OpenLabel(path string, opts Options) (*ImageLabel, error) {
	mode := diskfs.ReadOnly
	if opts.Writable {
		mode = diskfs.ReadWriteExclusive
	}

	dev, err := diskfs.Open(NormalizeVolumePath(path), diskfs.WithOpenMode(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to open disk %q: %w", path, err)
	}

	l := &ImageLabel{
		path:      path,
		dev:       dev,
		extPartno: fdisk.NoPartno,
		log:       opts.Logger,
	}
	if l.log == nil {
		l.log = logger.Discard()
	}

	if err := l.load(opts); err != nil {
		dev.File.Close()
		return nil, err
	}
	return l, nil
}

func (l *ImageLabel) load(opts Options) error {
	ss := l.dev.LogicalBlocksize
	if ss <= 0 {
		ss = DefaultBlocksize
	}
	sectors := uint64(l.dev.Size / ss)
	if sectors < 3 {
		return fmt.Errorf("disk %q too small: %d bytes", l.path, l.dev.Size)
	}
	l.Sector = uint64(ss)

	tbl, err := l.dev.GetPartitionTable()
	switch t := tbl.(type) {
	case *gpt.Table:
		l.typ, l.gpt = LabelGPT, t
	case *mbr.Table:
		l.typ, l.mbr = LabelMBR, t
	default:
		if opts.CreateType == "" {
			if err != nil {
				return fmt.Errorf("%s: %w: %v", l.path, ErrNoLabel, err)
			}
			return fmt.Errorf("%s: %w", l.path, ErrNoLabel)
		}
		if err := l.create(opts.CreateType); err != nil {
			return err
		}
	}

	if l.typ == LabelGPT && !l.dirty {
		l.placeGPTSlots()
	}
	if l.typ == LabelMBR {
		for len(l.mbr.Partitions) < mbrPrimaries {
			l.mbr.Partitions = append(l.mbr.Partitions, &mbr.Partition{Type: mbr.Empty})
		}
		l.readLogicals()
	}

	l.Grain = opts.Grain
	if l.Grain == 0 {
		l.Grain = GuessGrain(l.startOffsets(), l.Sector)
		l.log.Debugf("guessed grain of %d bytes", l.Grain)
	}

	if err := l.setBounds(sectors); err != nil {
		return err
	}

	l.extents = newExtentMap(l.First, l.Last)
	for _, e := range l.primaryExtents() {
		if err := l.extents.insert(e); err != nil {
			l.log.Warnf("%s label of %q: %v", l.typ, l.path, err)
		}
	}

	l.log.Debugf("%s label: %d sectors of %d bytes, usable [%d,%d], grain %d",
		l.typ, sectors, l.Sector, l.First, l.Last, l.Grain)
	return nil
}

func (l *ImageLabel) create(typ string) error {
	switch typ {
	case LabelMBR:
		l.typ = LabelMBR
		l.mbr = &mbr.Table{
			LogicalSectorSize:  int(l.dev.LogicalBlocksize),
			PhysicalSectorSize: int(l.dev.PhysicalBlocksize),
		}
	case LabelGPT:
		l.typ = LabelGPT
		l.gpt = &gpt.Table{
			LogicalSectorSize:  int(l.dev.LogicalBlocksize),
			PhysicalSectorSize: int(l.dev.PhysicalBlocksize),
			ProtectiveMBR:      true,
		}
	default:
		return fmt.Errorf("unsupported label type %q", typ)
	}

	l.dirty = true
	l.log.Infof("created new %s label for %q", typ, l.path)
	return nil
}

// placeGPTSlots moves the partitions read from disk to the index of their
// entry in the partition array, filling empty entries with unused ones, so
// that partition numbers survive holes in the array.
func (l *ImageLabel) placeGPTSlots() {
	hdr, err := ReadGPTHeader(l.dev.File, int64(l.Sector))
	var used []bool
	if err == nil {
		used, err = hdr.UsedSlots(l.dev.File, int64(l.Sector))
	}
	if err != nil {
		l.log.Warnf("gpt: %v, numbering partitions by position", err)
		return
	}

	var n int
	for _, inUse := range used {
		if inUse {
			n++
		}
	}
	if n != len(l.gpt.Partitions) {
		l.log.Warnf("gpt: %d used entries for %d partitions, numbering partitions by position",
			n, len(l.gpt.Partitions))
		return
	}

	slots := make([]*gpt.Partition, 0, len(used))
	parts := l.gpt.Partitions
	for _, inUse := range used {
		if !inUse {
			slots = append(slots, &gpt.Partition{Type: gpt.Unused})
			continue
		}
		slots = append(slots, parts[0])
		parts = parts[1:]
	}
	l.gpt.Partitions = slots
}

func (l *ImageLabel) readLogicals() {
	for i, p := range l.mbr.Partitions {
		if p.Size == 0 || !PartitionType(p.Type).IsExtended() {
			continue
		}

		logicals, err := ReadLogicals(l.dev.File, uint64(p.Start), uint64(p.Size), int64(l.Sector))
		if err != nil {
			l.log.Warnf("extended partition #%d: %v", i, err)
		}
		l.logicals = logicals
		l.extPartno = uint32(i)

		for _, lp := range logicals {
			l.log.Debugf("logical partition at [%d,%d] (%s)", lp.Start, lp.Start+lp.Size-1, lp.Type)
		}
		return
	}
}

func (l *ImageLabel) startOffsets() []uint64 {
	var offsets []uint64
	for _, e := range l.primaryExtents() {
		offsets = append(offsets, e.Start*l.Sector)
	}
	return offsets
}

func (l *ImageLabel) setBounds(sectors uint64) error {
	switch l.typ {
	case LabelGPT:
		hdr, err := ReadGPTHeader(l.dev.File, int64(l.Sector))
		if err == nil {
			l.First, l.Last = hdr.FirstUsableLBA, hdr.LastUsableLBA
			break
		}
		if !l.dirty {
			return fmt.Errorf("failed to read GPT header of %q: %w", l.path, err)
		}

		entrySectors := (gptEntriesBytes + l.Sector - 1) / l.Sector
		l.First = 2 + entrySectors
		l.Last = sectors - 2 - entrySectors
	default:
		l.First = l.AlignLBA(1, fdisk.AlignUp)
		l.Last = sectors - 1
	}

	if l.First > l.Last {
		return fmt.Errorf("disk %q has no usable area", l.path)
	}
	return nil
}

// primaryExtents returns the ranges allocated at the top level of the label.
func (l *ImageLabel) primaryExtents() []extent {
	var res []extent
	switch l.typ {
	case LabelMBR:
		for i, p := range l.mbr.Partitions {
			if p.Type != mbr.Empty && p.Size > 0 {
				res = append(res, extent{
					Start:  uint64(p.Start),
					End:    uint64(p.Start) + uint64(p.Size) - 1,
					Partno: uint32(i),
				})
			}
		}
	case LabelGPT:
		for i, p := range l.gpt.Partitions {
			if p.Type != gpt.Unused && p.End >= p.Start {
				res = append(res, extent{Start: p.Start, End: p.End, Partno: uint32(i)})
			}
		}
	}
	return res
}

func (l *ImageLabel) Type() string { return l.typ }

func (l *ImageLabel) Path() string { return l.path }

// Size returns the disk size in bytes.
func (l *ImageLabel) Size() int64 { return l.dev.Size }

// Partitions enumerates the label entries. MBR primaries are numbered 0 to 3
// and logical partitions from 4, in EBR chain order. GPT entries are
// numbered in table order.
func (l *ImageLabel) Partitions() ([]*fdisk.Partition, error) {
	var parts []*fdisk.Partition

	switch l.typ {
	case LabelMBR:
		for i, p := range l.mbr.Partitions {
			pa := newEntry(uint32(i))
			pa.Type = fmt.Sprintf("0x%02x", uint8(p.Type))
			pa.Bootable = p.Bootable
			if p.Type != mbr.Empty && p.Size > 0 {
				setRange(pa, uint64(p.Start), uint64(p.Size))
				pa.SetContainer(PartitionType(p.Type).IsExtended())
			}
			parts = append(parts, pa)
		}

		for i, lp := range l.logicals {
			pa := newEntry(uint32(mbrPrimaries + i))
			pa.Type = fmt.Sprintf("0x%02x", uint8(lp.Type))
			pa.Bootable = lp.Boot
			setRange(pa, lp.Start, lp.Size)
			pa.SetNested(true)
			_ = pa.SetParentPartno(l.extPartno)
			parts = append(parts, pa)
		}
	case LabelGPT:
		for i, p := range l.gpt.Partitions {
			pa := newEntry(uint32(i))
			pa.Type = string(p.Type)
			pa.Name = p.Name
			if p.Type != gpt.Unused && p.End >= p.Start {
				setRange(pa, p.Start, p.End-p.Start+1)
			}
			parts = append(parts, pa)
		}
	}
	return parts, nil
}

func newEntry(partno uint32) *fdisk.Partition {
	pa := fdisk.NewPartition()
	_ = pa.SetPartno(partno)
	return pa
}

func setRange(pa *fdisk.Partition, start, size uint64) {
	_ = pa.SetStart(start)
	_ = pa.SetSize(size)
	pa.SetUsed(true)
}

// ResetPartitions removes all the partitions of the label.
func (l *ImageLabel) ResetPartitions() error {
	if !l.dev.Writable {
		return ErrReadOnly
	}

	switch l.typ {
	case LabelMBR:
		for i := range l.mbr.Partitions {
			l.mbr.Partitions[i] = &mbr.Partition{Type: mbr.Empty}
		}
		l.logicals = nil
		l.extPartno = fdisk.NoPartno
	case LabelGPT:
		l.gpt.Partitions = nil
	}

	l.extents.reset()
	l.dirty = true
	return nil
}

// AddPartition adds pa to the label. A partition without start is placed at
// the first aligned free area when it follows the default start. A partition
// without size extends up to the next partition or to the end of the usable
// area.
func (l *ImageLabel) AddPartition(pa *fdisk.Partition) error {
	if !l.dev.Writable {
		return ErrReadOnly
	}
	if pa == nil || pa.IsFreespace() {
		return fdisk.ErrInvalidArgument
	}
	if pa.IsNested() {
		return fmt.Errorf("nested partitions on %s: %w", l.typ, fdisk.ErrNotSupported)
	}
	if pa.IsContainer() && l.typ != LabelMBR {
		return fmt.Errorf("container partitions on %s: %w", l.typ, fdisk.ErrNotSupported)
	}

	var size uint64
	if pa.HasSize() {
		size = pa.Size()
	}

	start := pa.Start()
	if !pa.HasStart() {
		if !pa.StartFollowDefault() {
			return fdisk.ErrInvalidArgument
		}

		var ok bool
		start, ok = l.extents.firstFit(l.alignUp, size)
		if !ok {
			return fmt.Errorf("%w for %d sectors", ErrNoSpace, size)
		}
	}

	if size == 0 {
		end := l.extents.gapEnd(start)
		if end < start {
			return fmt.Errorf("%w: sector %d is allocated", ErrOverlap, start)
		}
		size = end - start + 1
	}

	end := start + size - 1
	if !l.extents.contains(start, end) {
		return fmt.Errorf("range [%d,%d] outside usable area [%d,%d]", start, end, l.First, l.Last)
	}

	switch l.typ {
	case LabelMBR:
		return l.addMBR(pa, start, end)
	default:
		return l.addGPT(pa, start, end)
	}
}

func (l *ImageLabel) alignUp(lba uint64) uint64 {
	return l.AlignLBA(lba, fdisk.AlignUp)
}

func (l *ImageLabel) addMBR(pa *fdisk.Partition, start, end uint64) error {
	if end > math.MaxUint32 {
		return fmt.Errorf("range [%d,%d] not addressable by MBR", start, end)
	}

	slot, err := l.freeSlot(pa)
	if err != nil {
		return err
	}

	typ, err := parseMBRType(pa.Type, pa.IsContainer())
	if err != nil {
		l.log.Warnf("partition %s: %v, using 0x%02x", pa, err, uint8(typ))
	}

	if err := l.extents.insert(extent{Start: start, End: end, Partno: uint32(slot)}); err != nil {
		return err
	}

	l.mbr.Partitions[slot] = &mbr.Partition{
		Bootable: pa.Bootable,
		Type:     typ,
		Start:    uint32(start),
		Size:     uint32(end - start + 1),
	}
	l.dirty = true

	l.log.Debugf("mbr: added #%d [%d,%d] type 0x%02x", slot, start, end, uint8(typ))
	return nil
}

// freeSlot returns the primary slot for pa, honoring its partition number
// when that slot is free.
func (l *ImageLabel) freeSlot(pa *fdisk.Partition) (int, error) {
	isFree := func(p *mbr.Partition) bool {
		return p.Type == mbr.Empty || p.Size == 0
	}

	if pa.HasPartno() && pa.Partno() < mbrPrimaries && isFree(l.mbr.Partitions[pa.Partno()]) {
		return int(pa.Partno()), nil
	}
	for i, p := range l.mbr.Partitions {
		if isFree(p) {
			return i, nil
		}
	}
	return -1, ErrNoSlot
}

func (l *ImageLabel) addGPT(pa *fdisk.Partition, start, end uint64) error {
	partno, err := l.freeGPTSlot(pa)
	if err != nil {
		return err
	}
	if err := l.extents.insert(extent{Start: start, End: end, Partno: partno}); err != nil {
		return err
	}

	for uint32(len(l.gpt.Partitions)) <= partno {
		l.gpt.Partitions = append(l.gpt.Partitions, &gpt.Partition{Type: gpt.Unused})
	}

	typ := gptType(pa.Type)
	l.gpt.Partitions[partno] = &gpt.Partition{
		Start: start,
		End:   end,
		Type:  typ,
		Name:  pa.Name,
	}
	l.dirty = true

	l.log.Debugf("gpt: added #%d [%d,%d] type %s", partno, start, end, typ)
	return nil
}

// freeGPTSlot returns the entry index for pa, honoring its partition number
// when that entry is free. Otherwise the first free entry is used.
func (l *ImageLabel) freeGPTSlot(pa *fdisk.Partition) (uint32, error) {
	isFree := func(i uint32) bool {
		return i >= uint32(len(l.gpt.Partitions)) || l.gpt.Partitions[i].Type == gpt.Unused
	}

	if pa.HasPartno() && pa.Partno() < gptMaxEntries && isFree(pa.Partno()) {
		return pa.Partno(), nil
	}
	for i := uint32(0); i < gptMaxEntries; i++ {
		if isFree(i) {
			return i, nil
		}
	}
	return 0, ErrNoSlot
}

// parseMBRType parses types like "0x83" or "83". On failure a Linux (or
// extended, for containers) type is returned along with the error.
func parseMBRType(s string, container bool) (mbr.Type, error) {
	fallback := mbr.Linux
	if container {
		fallback = mbr.ExtendedLBA
	}

	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if s == "" {
		return fallback, nil
	}

	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return fallback, fmt.Errorf("invalid MBR partition type %q", s)
	}
	return mbr.Type(v), nil
}

var mbrToGPT = map[mbr.Type]gpt.Type{
	mbr.LinuxSwap:  gpt.LinuxSwap,
	mbr.LinuxLVM:   gpt.LinuxLVM,
	mbr.NTFS:       gpt.MicrosoftBasicData,
	mbr.Fat32LBA:   gpt.MicrosoftBasicData,
	mbr.Type(0xef): gpt.EFISystemPartition,
	mbr.Type(0xfd): gpt.LinuxRAID,
}

// gptType maps a type GUID, or an MBR type byte, to a GPT partition type.
func gptType(s string) gpt.Type {
	if id, err := uuid.Parse(s); err == nil {
		return gpt.Type(strings.ToUpper(id.String()))
	}
	if t, err := parseMBRType(s, false); err == nil {
		if g, ok := mbrToGPT[t]; ok {
			return g
		}
	}
	return gpt.LinuxFilesystem
}

var gptTypeNames = map[gpt.Type]string{
	gpt.LinuxFilesystem:    "Linux filesystem",
	gpt.LinuxSwap:          "Linux swap",
	gpt.LinuxLVM:           "Linux LVM",
	gpt.LinuxRAID:          "Linux RAID",
	gpt.MicrosoftBasicData: "Microsoft basic data",
	gpt.EFISystemPartition: "EFI System",
}

// TypeName returns a human readable name for the partition type typ of a
// label of the given kind. Unknown types are returned as they are.
func TypeName(label, typ string) string {
	switch label {
	case LabelMBR:
		t, err := parseMBRType(typ, false)
		if err == nil && typ != "" {
			if name := PartitionType(t).String(); name != "Unknown" {
				return name
			}
		}
	case LabelGPT:
		if id, err := uuid.Parse(typ); err == nil {
			if name, ok := gptTypeNames[gpt.Type(strings.ToUpper(id.String()))]; ok {
				return name
			}
		}
	}
	return typ
}

// Write commits the in-memory label to the disk.
func (l *ImageLabel) Write() error {
	if !l.dirty {
		return nil
	}

	var tbl partition.Table = l.gpt
	if l.typ == LabelMBR {
		tbl = l.mbr
	}
	if err := l.dev.Partition(tbl); err != nil {
		return fmt.Errorf("failed to write %s label to %q: %w", l.typ, l.path, err)
	}

	l.dirty = false
	l.log.Infof("%s label written to %q", l.typ, l.path)
	return nil
}

func (l *ImageLabel) Close() error {
	return l.dev.File.Close()
}

// NormalizeVolumePath turns Windows drive paths like "C:" into raw volume
// paths like `\\.\C:`. Other paths are returned unchanged.
func NormalizeVolumePath(path string) string {
	if runtime.GOOS != "windows" {
		return path
	}

	p := strings.ReplaceAll(strings.TrimSpace(path), "/", `\`)
	if strings.HasPrefix(p, `\\.\`) {
		return strings.ToUpper(p)
	}
	if len(p) >= 2 && len(p) <= 3 && p[1] == ':' && unicode.IsLetter(rune(p[0])) {
		return `\\.\` + strings.ToUpper(p[:1]) + `:`
	}
	return path
}
