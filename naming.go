package gridslice

import (
	"fmt"
	"strings"
)

// Stem is name up to its last dot. It is empty when name has no dot or
// starts with its only one.
func Stem(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i]
	}
	return ""
}

// CellFilename names the cell at row, col (zero based) of an image called
// name, e.g. "cat_1_3.png". Row and column are written one based.
func CellFilename(name string, row, col int, f Format) string {
	stem := Stem(name)
	if stem == "" {
		stem = name
	}
	return fmt.Sprintf("%s_%d_%d.%s", stem, row+1, col+1, f.Ext())
}

// ArchiveFilename is the zip name for an image called name.
func ArchiveFilename(name string) string {
	stem := Stem(name)
	if stem == "" {
		stem = "sliced"
	}
	return stem + "_grid.zip"
}
