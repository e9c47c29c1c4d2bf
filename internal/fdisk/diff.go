package fdisk

import "fmt"

// DiffKind is the kind of change reported by a Differ.
type DiffKind int

const (
	DiffUnchanged DiffKind = iota
	DiffRemoved
	DiffResized
	DiffMoved
	DiffAdded
)

func (k DiffKind) String() string {
	switch k {
	case DiffUnchanged:
		return "unchanged"
	case DiffRemoved:
		return "removed"
	case DiffResized:
		return "resized"
	case DiffMoved:
		return "moved"
	case DiffAdded:
		return "added"
	default:
		return fmt.Sprintf("DiffKind(%d)", int(k))
	}
}

// Change is a single record produced by a Differ. Partition belongs to the
// new table for moved, resized and added entries, and to the old table
// otherwise. The partition is not referenced on behalf of the caller.
type Change struct {
	Kind      DiffKind
	Partition *Partition
}

type diffState int

const (
	diffScanA diffState = iota
	diffScanB
	diffDone
)

// Differ compares an old table a with a new table b, producing one change per
// call to Next. Entries without a partition number are ignored.
//
// Additions are detected only once a has been fully walked, so the whole diff
// is known only after Next returned ErrDone. A Differ cannot be rewound.
type Differ struct {
	a, b  *Table
	itr   Iter
	state diffState
}

func NewDiffer(a, b *Table) *Differ {
	return &Differ{a: a, b: b}
}

// Next returns the next change, or ErrDone when both tables are exhausted.
func (d *Differ) Next() (Change, error) {
	for {
		switch d.state {
		case diffScanA:
			if d.a == nil {
				d.state = diffScanB
				continue
			}
			pa, err := d.nextWithPartno(d.a)
			if err == ErrDone {
				d.state = diffScanB
				continue
			}
			if err != nil {
				return Change{}, err
			}
			return d.compare(pa), nil

		case diffScanB:
			if d.b == nil {
				d.state = diffDone
				continue
			}
			if !d.itr.boundTo(d.b) {
				d.itr.Reset()
			}
			for {
				pb, err := d.nextWithPartno(d.b)
				if err == ErrDone {
					break
				}
				if err != nil {
					return Change{}, err
				}
				if d.a.GetByPartno(pb.partno) == nil {
					return Change{Kind: DiffAdded, Partition: pb}, nil
				}
			}
			d.state = diffDone

		default:
			return Change{}, ErrDone
		}
	}
}

func (d *Differ) nextWithPartno(tb *Table) (*Partition, error) {
	for {
		pa, err := tb.Next(&d.itr)
		if err != nil {
			return nil, err
		}
		if pa.HasPartno() {
			return pa, nil
		}
	}
}

func (d *Differ) compare(pa *Partition) Change {
	pb := d.b.GetByPartno(pa.partno)

	switch {
	case pb == nil:
		return Change{Kind: DiffRemoved, Partition: pa}
	case pb.start != pa.start:
		return Change{Kind: DiffMoved, Partition: pb}
	case pb.size != pa.size:
		return Change{Kind: DiffResized, Partition: pb}
	default:
		return Change{Kind: DiffUnchanged, Partition: pa}
	}
}

// Diff runs a Differ to completion. On error the changes found so far are
// returned along with it.
func Diff(a, b *Table) ([]Change, error) {
	var changes []Change

	d := NewDiffer(a, b)
	for {
		c, err := d.Next()
		if err == ErrDone {
			return changes, nil
		}
		if err != nil {
			return changes, err
		}
		changes = append(changes, c)
	}
}
