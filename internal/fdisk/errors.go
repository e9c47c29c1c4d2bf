package fdisk

import "errors"

var (
	// ErrInvalidArgument is returned when a required table, partition or
	// iterator is missing.
	ErrInvalidArgument = errors.New("fdisk: invalid argument")

	// ErrAlreadyLinked is returned when a partition that is already a member of
	// a table is added to a table again.
	ErrAlreadyLinked = errors.New("fdisk: partition already linked into a table")

	// ErrNotSupported is returned when the label does not provide the requested
	// capability.
	ErrNotSupported = errors.New("fdisk: operation not supported by label")

	// ErrDone signals the end of a traversal or of a diff.
	ErrDone = errors.New("fdisk: no more entries")

	// ErrStaleIter is returned by Table.Next when the entry the iterator was
	// about to return has been removed from the table.
	ErrStaleIter = errors.New("fdisk: iterator entry removed from table")
)
