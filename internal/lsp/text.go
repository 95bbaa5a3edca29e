package lsp

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := offsetForPosition(text, change.Range.End)
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// offsetForPosition converts an LSP position (UTF-16 columns) to a byte
// offset, clamped to the text.
func offsetForPosition(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	i := lineStart(text, pos.Line)
	if i < 0 {
		return len(text)
	}
	units := 0
	for i < len(text) && text[i] != '\n' {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}

// lineStart returns the byte offset of line, or -1 past the end.
func lineStart(text string, line int) int {
	i := 0
	for n := 0; n < line; n++ {
		j := strings.IndexByte(text[i:], '\n')
		if j < 0 {
			return -1
		}
		i += j + 1
	}
	return i
}

// endPosition is the position just past the last character.
func endPosition(text string) position {
	line, units := 0, 0
	for _, r := range text {
		if r == '\n' {
			line++
			units = 0
			continue
		}
		units += utf16Len(r)
	}
	return position{Line: line, Character: units}
}

func utf16Len(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// tokenRange spans the word starting at (line, char), or one character
// when there is no word there. Positions past the line end collapse to the
// line end.
func tokenRange(text string, line, char int) lspRange {
	start := position{Line: line, Character: char}
	i := lineStart(text, line)
	if i < 0 {
		return lspRange{Start: start, End: start}
	}
	units := 0
	for i < len(text) && text[i] != '\n' && units < char {
		r, size := utf8.DecodeRuneInString(text[i:])
		units += utf16Len(r)
		i += size
	}
	start.Character = units
	end := start
	isWord := func(r rune) bool { return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r) }
	first := true
	for i < len(text) && text[i] != '\n' {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !first && !isWord(r) {
			break
		}
		end.Character += utf16Len(r)
		i += size
		if first && !isWord(r) {
			break
		}
		first = false
	}
	return lspRange{Start: start, End: end}
}
