// Package compressor shrinks the sparse parsing tables of a compiled grammar.
package compressor

import (
	"encoding/binary"
	"fmt"
	"sort"

	spec "github.com/nihei9/tether/spec/grammar"
)

// Table is an uncompressed table stored in row-major order.
type Table struct {
	entries  []int
	rowCount int
	colCount int
}

func NewTable(entries []int, colCount int) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("entries is empty")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("colCount must be >=1")
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length or column count are incorrect; entries length: %v, column count: %v", len(entries), colCount)
	}

	return &Table{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

// Compress merges identical rows and then overlaps the distinct rows in one array so that no two
// non-empty entries collide. `empty` is the value of a missing entry.
func Compress(tab *Table, empty int) *spec.CompressedTable {
	rowNums, unique := mergeRows(tab)
	entries, bounds, displacement := displaceRows(unique, empty)
	return &spec.CompressedTable{
		RowCount:     tab.rowCount,
		ColCount:     tab.colCount,
		Empty:        empty,
		RowNums:      rowNums,
		Displacement: displacement,
		Entries:      entries,
		Bounds:       bounds,
	}
}

// mergeRows returns, for each row, the number of the first identical row, and the table of the
// distinct rows.
func mergeRows(tab *Table) ([]int, *Table) {
	var uniqueEntries []int
	rowNums := make([]int, tab.rowCount)
	hash2RowNum := map[string]int{}
	buf := make([]byte, 0, tab.colCount*binary.MaxVarintLen64)
	for row := 0; row < tab.rowCount; row++ {
		start := row * tab.colCount
		buf = buf[:0]
		for _, e := range tab.entries[start : start+tab.colCount] {
			buf = binary.AppendVarint(buf, int64(e))
		}
		rowHash := string(buf)

		rowNum, ok := hash2RowNum[rowHash]
		if !ok {
			rowNum = len(hash2RowNum)
			hash2RowNum[rowHash] = rowNum
			uniqueEntries = append(uniqueEntries, tab.entries[start:start+tab.colCount]...)
		}
		rowNums[row] = rowNum
	}

	return rowNums, &Table{
		entries:  uniqueEntries,
		rowCount: len(hash2RowNum),
		colCount: tab.colCount,
	}
}

// forbidden marks a slot no row owns.
const forbidden = -1

type rowInfo struct {
	rowNum      int
	nonEmptyCol []int
}

// displaceRows places the rows densest first, each at the lowest displacement where its non-empty
// entries fall on free slots. bounds records the owner row of each slot.
func displaceRows(tab *Table, empty int) ([]int, []int, []int) {
	rows := make([]rowInfo, tab.rowCount)
	for row := 0; row < tab.rowCount; row++ {
		rows[row].rowNum = row
		for col := 0; col < tab.colCount; col++ {
			if tab.entries[row*tab.colCount+col] != empty {
				rows[row].nonEmptyCol = append(rows[row].nonEmptyCol, col)
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return len(rows[i].nonEmptyCol) > len(rows[j].nonEmptyCol)
	})

	entries := make([]int, len(tab.entries))
	bounds := make([]int, len(tab.entries))
	for i := range entries {
		entries[i] = empty
		bounds[i] = forbidden
	}
	displacement := make([]int, tab.rowCount)
	bottom := tab.colCount
	next := 0
	for _, r := range rows {
		if len(r.nonEmptyCol) == 0 {
			continue
		}

		d := next
		for overlaps(bounds, d, r.nonEmptyCol) {
			d++
		}
		displacement[r.rowNum] = d
		for _, col := range r.nonEmptyCol {
			entries[d+col] = tab.entries[r.rowNum*tab.colCount+col]
			bounds[d+col] = r.rowNum
		}
		if d+tab.colCount > bottom {
			bottom = d + tab.colCount
		}
		next = d + 1
	}

	return entries[:bottom], bounds[:bottom], displacement
}

func overlaps(bounds []int, d int, cols []int) bool {
	for _, col := range cols {
		if bounds[d+col] != forbidden {
			return true
		}
	}
	return false
}
