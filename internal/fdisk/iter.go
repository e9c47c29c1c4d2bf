package fdisk

import "container/list"

// Iter is a forward cursor over a table. The zero value is ready to use and
// binds to the first table passed to Table.Next. An Iter holds no reference
// on the table or on its entries.
type Iter struct {
	head *list.List
	next *list.Element
}

// NewIter returns an unbound iterator.
func NewIter() *Iter {
	return &Iter{}
}

// Reset unbinds the iterator, the next traversal starts from the beginning.
func (itr *Iter) Reset() {
	itr.head = nil
	itr.next = nil
}

func (itr *Iter) bind(head *list.List) {
	itr.head = head
	itr.next = head.Front()
}

func (itr *Iter) boundTo(tb *Table) bool {
	return tb != nil && itr.head == tb.parts
}
