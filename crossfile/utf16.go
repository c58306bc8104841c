package crossfile

import "unicode/utf8"

// UTF16ColumnForByte converts a byte offset within a single line of text into
// a 0-based UTF-16 code unit offset, the column unit the LSP protocol uses.
//
// If byteOffset falls in the middle of a multi-byte rune, the result is the
// offset of that rune's start (floor semantics).
func UTF16ColumnForByte(lineText string, byteOffset int) uint32 {
	if byteOffset <= 0 {
		return 0
	}
	end := byteOffset
	if end > len(lineText) {
		end = len(lineText)
	}

	var col uint32
	for pos := 0; pos < end; {
		r, size := utf8.DecodeRuneInString(lineText[pos:])
		if r == utf8.RuneError && size <= 1 {
			col++
			pos++
			continue
		}
		if pos+size > end {
			break
		}
		if r > 0xFFFF {
			col += 2
		} else {
			col++
		}
		pos += size
	}
	return col
}
