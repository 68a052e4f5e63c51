package main

import (
	"strconv"
	"strings"
)

// Cell is a single value to write at a 1-based row/column. Raw cells are
// stored as given; the others are parsed as if typed into the sheet.
type Cell struct {
	Row    int
	Column int
	Value  interface{}
	Raw    bool
}

type SheetProvider interface {
	SpreadsheetID() string
	HasSheet(sheet string) (bool, error)
	// ReadRange returns numRows x numColumns formatted values; missing
	// cells are returned as "".
	ReadRange(sheet string, row, column, numRows, numColumns int) ([][]string, error)
	// LastRow is the last row holding any content, 0 for an empty sheet.
	LastRow(sheet string) (int, error)
	WriteCells(sheet string, cells []Cell) error
}

// columnName converts a 1-based column index to its A1 letters.
func columnName(column int) string {
	name := ""
	for column > 0 {
		column--
		name = string(rune('A'+column%26)) + name
		column /= 26
	}
	return name
}

func a1Range(sheet string, row, column, numRows, numColumns int) string {
	from := columnName(column) + strconv.Itoa(row)
	if numRows <= 1 && numColumns <= 1 {
		return quoteSheet(sheet) + "!" + from
	}
	to := columnName(column+numColumns-1) + strconv.Itoa(row+numRows-1)
	return quoteSheet(sheet) + "!" + from + ":" + to
}

func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// padGrid shapes values into exactly numRows x numColumns strings.
func padGrid(values [][]string, numRows, numColumns int) [][]string {
	grid := make([][]string, numRows)
	for i := range grid {
		grid[i] = make([]string, numColumns)
		if i < len(values) {
			copy(grid[i], values[i])
		}
	}
	return grid
}
