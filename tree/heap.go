package tree

import "container/heap"

// PartialItem points at a partial accumulator. Rows is the number of rows
// the partial covers and orders the heap; ties break on ID.
type PartialItem struct {
	ID    int64
	Rows  int64
	Index int
}

// PartialHeap pops the smallest partials first, so merging the two smallest
// repeatedly builds a merge tree in the shape of a Huffman code.
type PartialHeap []*PartialItem

func (ph PartialHeap) Len() int {
	return len(ph)
}

func (ph PartialHeap) Less(i, j int) bool {
	if ph[i].Rows == ph[j].Rows {
		return ph[i].ID < ph[j].ID
	}
	return ph[i].Rows < ph[j].Rows
}

func (ph PartialHeap) Swap(i, j int) {
	ph[i], ph[j] = ph[j], ph[i]
	ph[i].Index = i
	ph[j].Index = j
}

func (ph *PartialHeap) Push(x interface{}) {
	n := len(*ph)
	item := x.(*PartialItem)
	item.Index = n
	*ph = append(*ph, item)
}

func (ph *PartialHeap) Pop() interface{} {
	old := *ph
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.Index = -1
	*ph = old[0 : n-1]
	return item
}

func (ph *PartialHeap) Top() *PartialItem {
	return (*ph)[0]
}

func (ph *PartialHeap) Update(item *PartialItem, rows int64) {
	item.Rows = rows
	heap.Fix(ph, item.Index)
}

// PushPartial and PopPartial keep the heap invariant.
func (ph *PartialHeap) PushPartial(id, rows int64) {
	heap.Push(ph, &PartialItem{ID: id, Rows: rows})
}

func (ph *PartialHeap) PopPartial() *PartialItem {
	return heap.Pop(ph).(*PartialItem)
}

func NewPartialHeap(initSize int) *PartialHeap {
	ph := make(PartialHeap, 0, initSize)
	heap.Init(&ph)
	return &ph
}
