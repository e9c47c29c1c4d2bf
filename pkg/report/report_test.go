package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostafen/partlab/internal/fdisk"
)

func sampleDoc() *Document {
	ext := uint32(1)
	return &Document{
		Source: Source{ImageFilename: "disk.img", ImageSize: 64 << 20, Label: "mbr"},
		Geometry: Geometry{
			SectorSize: 512,
			GrainSize:  1 << 20,
			FirstLBA:   2048,
			LastLBA:    131071,
		},
		Partitions: []Entry{
			{Partno: 0, Start: 2048, Size: 20480, Type: "0x83", Bootable: true},
			{Partno: 1, Start: 22528, Size: 40960, Type: "0x0f", Container: true},
			{Partno: 4, Parent: &ext, Nested: true, Start: 24576, Size: 8192, Type: "0x83"},
			{Partno: 5, Parent: &ext, Nested: true, Start: 36864, Size: 4096, Type: "0x82"},
		},
	}
}

func TestWriteReadSnapshot(t *testing.T) {
	doc := sampleDoc()

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, doc))
	require.True(t, strings.HasPrefix(buf.String(), "<?xml"))
	require.Len(t, doc.Fingerprint, 16)

	got, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	require.Equal(t, doc.Fingerprint, got.Fingerprint)
	require.Equal(t, doc.Source, got.Source)
	require.Equal(t, doc.Geometry, got.Geometry)
	require.Equal(t, doc.Partitions, got.Partitions)
}

func TestReadSnapshot_Tampered(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, sampleDoc()))
	data := buf.String()

	moved := strings.Replace(data, "<start>24576</start>", "<start>26624</start>", 1)
	require.NotEqual(t, data, moved)
	_, err := ReadSnapshot(strings.NewReader(moved))
	require.ErrorIs(t, err, ErrFingerprint)

	future := strings.Replace(data, `version="1.0"`, `version="9.9"`, 1)
	_, err = ReadSnapshot(strings.NewReader(future))
	require.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = ReadSnapshot(strings.NewReader("not xml"))
	require.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"layout.xml", "layout.xml.zst"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, sampleDoc()))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		if IsCompressed(path) {
			require.Equal(t, []byte{0x28, 0xB5, 0x2F, 0xFD}, raw[:4])
		} else {
			require.True(t, bytes.HasPrefix(raw, []byte("<?xml")))
		}

		doc, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, sampleDoc().Partitions, doc.Partitions)
	}

	_, err := Load(filepath.Join(dir, "missing.xml"))
	require.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	entries := sampleDoc().Partitions
	sum := Fingerprint(entries)
	require.Equal(t, sum, Fingerprint(sampleDoc().Partitions))

	renamed := sampleDoc().Partitions
	renamed[0].Name = "root"
	require.NotEqual(t, sum, Fingerprint(renamed))

	swapped := sampleDoc().Partitions
	swapped[0], swapped[1] = swapped[1], swapped[0]
	require.NotEqual(t, sum, Fingerprint(swapped))

	orphan := sampleDoc().Partitions
	orphan[2].Parent = nil
	require.NotEqual(t, sum, Fingerprint(orphan))
}

func TestSnapshot_Label(t *testing.T) {
	s, err := NewSnapshot(sampleDoc())
	require.NoError(t, err)
	require.Equal(t, "mbr", s.Type())
	require.Equal(t, uint64(2048), fdisk.GrainSectors(s))

	cxt, err := fdisk.NewContext(s)
	require.NoError(t, err)

	free, err := cxt.GetFreespaces(nil)
	require.NoError(t, err)
	defer free.Unref()

	var res [][2]uint64
	for _, pa := range free.Partitions() {
		res = append(res, [2]uint64{pa.Start(), pa.End()})
	}
	require.Equal(t, [][2]uint64{
		{34816, 36863},
		{43008, 63487},
		{63488, 131071},
	}, res)
	require.Equal(t, uint32(1), free.Get(0).ParentPartno())

	doc, err := Build(s, Source{ImageFilename: "copy.img"})
	require.NoError(t, err)
	require.Equal(t, "mbr", doc.Source.Label)
	require.Equal(t, "copy.img", doc.Source.ImageFilename)
	require.Equal(t, sampleDoc().Geometry, doc.Geometry)
	require.Equal(t, sampleDoc().Partitions, doc.Partitions)
	require.Equal(t, Fingerprint(sampleDoc().Partitions), doc.Fingerprint)
}

func TestNewSnapshot_Invalid(t *testing.T) {
	gpt := sampleDoc()
	gpt.Source.Label = "gpt"
	_, err := NewSnapshot(gpt)
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	for i := range gpt.Partitions {
		gpt.Partitions[i].Type = "0FC63DAF-8483-4772-8E79-3D69D8477DE4"
	}
	_, err = NewSnapshot(gpt)
	require.NoError(t, err)

	dup := sampleDoc()
	dup.Partitions[1].Partno = 0
	_, err = NewSnapshot(dup)
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	empty := sampleDoc()
	empty.Partitions[0].Size = 0
	_, err = NewSnapshot(empty)
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	unknown := sampleDoc()
	unknown.Source.Label = "bsd"
	_, err = NewSnapshot(unknown)
	require.ErrorIs(t, err, ErrInvalidSnapshot)

	geometry := sampleDoc()
	geometry.Geometry.SectorSize = 0
	_, err = NewSnapshot(geometry)
	require.ErrorIs(t, err, ErrInvalidSnapshot)
}
