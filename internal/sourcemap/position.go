// Package sourcemap provides byte-offset to line/column mapping for
// diagnostics and the debug annotation tool.
package sourcemap

import "sort"

// LineIndex provides efficient byte offset to line/column conversion.
// It pre-computes line start positions for O(log n) lookups.
type LineIndex struct {
	source     string
	lineStarts []int // byte offset of each line start
}

// NewLineIndex creates a LineIndex for the given source.
func NewLineIndex(source string) *LineIndex {
	idx := &LineIndex{
		source:     source,
		lineStarts: []int{0},
	}

	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '\n':
			if i+1 < len(source) {
				idx.lineStarts = append(idx.lineStarts, i+1)
			}
		case '\r':
			next := i + 1
			if next < len(source) && source[next] == '\n' {
				next++
				i++ // skip the LF of a CRLF pair
			}
			if next < len(source) {
				idx.lineStarts = append(idx.lineStarts, next)
			}
		}
	}

	return idx
}

// LineCount returns the number of lines in the source.
func (idx *LineIndex) LineCount() int {
	return len(idx.lineStarts)
}

// LineColumn converts a byte offset to 0-indexed line and byte column.
func (idx *LineIndex) LineColumn(offset int) (line, col int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > len(idx.source) {
		offset = len(idx.source)
	}

	line = sort.Search(len(idx.lineStarts), func(i int) bool {
		return idx.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}

	col = offset - idx.lineStarts[line]
	return line, col
}

// LineStart returns the byte offset at which the given 0-indexed line starts.
func (idx *LineIndex) LineStart(line int) int {
	if line < 0 {
		return 0
	}
	if line >= len(idx.lineStarts) {
		return len(idx.source)
	}
	return idx.lineStarts[line]
}
