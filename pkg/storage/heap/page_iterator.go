package heap

import (
	"fmt"

	"tupledb/pkg/tuple"
)

// PageIterator iterates over the filled slots of a single HeapPage.
type PageIterator struct {
	page     *HeapPage
	tuples   []*tuple.Tuple
	position int
}

// NewPageIterator creates an iterator for the given page.
func NewPageIterator(p *HeapPage) *PageIterator {
	return &PageIterator{page: p, position: -1}
}

// Open snapshots the page's current tuples.
func (it *PageIterator) Open() error {
	it.tuples = it.page.GetTuples()
	it.position = -1
	return nil
}

func (it *PageIterator) HasNext() (bool, error) {
	return it.position+1 < len(it.tuples), nil
}

func (it *PageIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, fmt.Errorf("no more tuples")
	}
	it.position++
	return it.tuples[it.position], nil
}

func (it *PageIterator) Rewind() error {
	return it.Open()
}

func (it *PageIterator) Close() error {
	it.tuples = nil
	it.position = -1
	return nil
}
