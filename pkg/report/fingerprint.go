package report

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const noParent = ^uint64(0)

// Fingerprint returns the hex encoded xxhash64 of the entries. The order of
// the entries is significant.
func Fingerprint(entries []Entry) string {
	hasher := xxhash.New()

	var buf []byte
	for _, e := range entries {
		parent := noParent
		if e.Parent != nil {
			parent = uint64(*e.Parent)
		}

		buf = binary.LittleEndian.AppendUint32(buf[:0], e.Partno)
		buf = binary.LittleEndian.AppendUint64(buf, parent)
		buf = binary.LittleEndian.AppendUint64(buf, e.Start)
		buf = binary.LittleEndian.AppendUint64(buf, e.Size)
		buf = append(buf, flagsByte(e))
		buf = appendString(buf, e.Type)
		buf = appendString(buf, e.Name)

		_, _ = hasher.Write(buf)
	}
	return fmt.Sprintf("%016x", hasher.Sum64())
}

func flagsByte(e Entry) byte {
	var b byte
	if e.Container {
		b |= 1
	}
	if e.Nested {
		b |= 2
	}
	if e.Bootable {
		b |= 4
	}
	return b
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}
