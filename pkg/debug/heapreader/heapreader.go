// Package heapreader dumps the contents of heap files for debugging. It
// reads pages directly from disk, bypassing the buffer pool, so it must
// only be used on files no live transaction is writing.
package heapreader

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"tupledb/pkg/primitives"
	"tupledb/pkg/storage/heap"
	"tupledb/pkg/tuple"
)

// Dump renders every tuple of the heap file as a table on w.
func Dump(w io.Writer, hf *heap.HeapFile) error {
	td := hf.GetTupleDesc()

	table := tablewriter.NewWriter(w)
	table.SetHeader(headerRow(td))

	numPages, err := hf.NumPages()
	if err != nil {
		return err
	}

	rows := 0
	for pageNo := 0; pageNo < numPages; pageNo++ {
		pid := primitives.NewPageID(hf.GetID(), primitives.PageNumber(pageNo))
		p, err := hf.ReadPage(pid)
		if err != nil {
			return fmt.Errorf("failed to read page %d: %w", pageNo, err)
		}

		hp, ok := p.(*heap.HeapPage)
		if !ok {
			return fmt.Errorf("unexpected page type at page %d", pageNo)
		}

		for _, t := range hp.GetTuples() {
			table.Append(tupleRow(td, t))
			rows++
		}
	}

	table.Render()
	fmt.Fprintf(w, "%d tuples, %d pages\n", rows, numPages)
	return nil
}

func headerRow(td *tuple.TupleDescription) []string {
	header := make([]string, td.NumFields())
	for i := range header {
		name, _ := td.GetFieldName(i)
		if name == "" {
			t, _ := td.TypeAtIndex(i)
			name = fmt.Sprintf("f%d (%s)", i, t)
		}
		header[i] = name
	}
	return header
}

func tupleRow(td *tuple.TupleDescription, t *tuple.Tuple) []string {
	row := make([]string, td.NumFields())
	for i := range row {
		field, err := t.GetField(i)
		if err != nil || field == nil {
			row[i] = "null"
			continue
		}
		row[i] = field.String()
	}
	return row
}
