package otl

import (
	"sort"
	"unicode/utf8"
)

// LineIndex converts between byte offsets and 0-based line/character
// positions. Characters are counted in UTF-16 code units, as LSP expects.
type LineIndex struct {
	src    string
	starts []int
}

// NewLineIndex indexes the line starts of src.
func NewLineIndex(src string) *LineIndex {
	starts := []int{0}

	for i := range len(src) {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return &LineIndex{src: src, starts: starts}
}

// Position returns the 0-based line and character of offset.
func (li *LineIndex) Position(offset int) (line, char int) {
	offset = max(0, min(offset, len(li.src)))
	line = sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1

	for _, r := range li.src[li.starts[line]:offset] {
		char += utf16Len(r)
	}

	return line, char
}

// Offset returns the byte offset of a 0-based line and character.
// Out of range positions are clamped.
func (li *LineIndex) Offset(line, char int) int {
	if line < 0 {
		return 0
	}

	if line >= len(li.starts) {
		return len(li.src)
	}

	offset := li.starts[line]

	for char > 0 && offset < len(li.src) {
		r, size := utf8.DecodeRuneInString(li.src[offset:])
		if r == '\n' {
			break
		}

		char -= utf16Len(r)
		offset += size
	}

	return offset
}

// LineCount returns the number of lines.
func (li *LineIndex) LineCount() int {
	return len(li.starts)
}

// Line returns the text of a 0-based line without its newline.
func (li *LineIndex) Line(line int) string {
	if line < 0 || line >= len(li.starts) {
		return ""
	}

	end := len(li.src)
	if line+1 < len(li.starts) {
		end = li.starts[line+1] - 1
	}

	return li.src[li.starts[line]:end]
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}

	return 1
}
