package parser

import (
	"bytes"
	"driftscan/internal/core/errors"
)

// Edit is a TextChange resolved to byte offsets. Offsets and positions of the
// n-th edit refer to the text produced by the previous n-1 edits.
type Edit struct {
	StartByte      int
	OldEndByte     int
	NewEndByte     int
	StartPosition  Position
	OldEndPosition Position
	NewEndPosition Position
}

// Size is the larger of the replaced and inserted lengths.
func (e Edit) Size() int {
	return max(e.OldEndByte-e.StartByte, e.NewEndByte-e.StartByte)
}

// EditSize sums Size over edits.
func EditSize(edits []Edit) int {
	total := 0
	for _, e := range edits {
		total += e.Size()
	}
	return total
}

// ResolveChanges applies changes to prev in order and returns the resolved
// edits together with the resulting text. A change whose positions fall
// outside the text it applies to is a validation error.
func ResolveChanges(prev []byte, changes []TextChange) ([]Edit, []byte, error) {
	text := append([]byte(nil), prev...)
	edits := make([]Edit, 0, len(changes))
	for _, ch := range changes {
		if ch.OldEndPosition.Before(ch.StartPosition) {
			return nil, nil, errors.New(errors.CodeValidationError, "change ends before it starts")
		}
		start, ok := offsetOf(text, ch.StartPosition)
		if !ok {
			return nil, nil, errors.AddContext(
				errors.New(errors.CodeValidationError, "change start outside document"),
				"position", ch.StartPosition.String())
		}
		oldEnd, ok := offsetOf(text, ch.OldEndPosition)
		if !ok {
			return nil, nil, errors.AddContext(
				errors.New(errors.CodeValidationError, "change end outside document"),
				"position", ch.OldEndPosition.String())
		}

		next := make([]byte, 0, len(text)-(oldEnd-start)+len(ch.NewText))
		next = append(next, text[:start]...)
		next = append(next, ch.NewText...)
		next = append(next, text[oldEnd:]...)

		newEnd := start + len(ch.NewText)
		edits = append(edits, Edit{
			StartByte:      start,
			OldEndByte:     oldEnd,
			NewEndByte:     newEnd,
			StartPosition:  ch.StartPosition,
			OldEndPosition: ch.OldEndPosition,
			NewEndPosition: positionAt(next, newEnd),
		})
		text = next
	}
	return edits, text, nil
}

// DiffEdit returns the single edit turning prev into next, found by trimming
// their common prefix and suffix. ok is false when the texts are equal.
func DiffEdit(prev, next []byte) (Edit, bool) {
	if bytes.Equal(prev, next) {
		return Edit{}, false
	}
	limit := min(len(prev), len(next))
	prefix := 0
	for prefix < limit && prev[prefix] == next[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < limit-prefix && prev[len(prev)-1-suffix] == next[len(next)-1-suffix] {
		suffix++
	}
	oldEnd := len(prev) - suffix
	newEnd := len(next) - suffix
	return Edit{
		StartByte:      prefix,
		OldEndByte:     oldEnd,
		NewEndByte:     newEnd,
		StartPosition:  positionAt(prev, prefix),
		OldEndPosition: positionAt(prev, oldEnd),
		NewEndPosition: positionAt(next, newEnd),
	}, true
}

// offsetOf converts a row/byte-column position into a byte offset. A column
// may address the position just past the last byte of its line.
func offsetOf(text []byte, pos Position) (int, bool) {
	if pos.Row < 0 || pos.Column < 0 {
		return 0, false
	}
	lineStart := 0
	for row := 0; row < pos.Row; row++ {
		nl := bytes.IndexByte(text[lineStart:], '\n')
		if nl < 0 {
			return 0, false
		}
		lineStart += nl + 1
	}
	lineEnd := len(text)
	if nl := bytes.IndexByte(text[lineStart:], '\n'); nl >= 0 {
		lineEnd = lineStart + nl
	}
	if lineStart+pos.Column > lineEnd {
		return 0, false
	}
	return lineStart + pos.Column, true
}

func positionAt(text []byte, offset int) Position {
	head := text[:offset]
	row := bytes.Count(head, []byte{'\n'})
	col := offset
	if nl := bytes.LastIndexByte(head, '\n'); nl >= 0 {
		col = offset - nl - 1
	}
	return Position{Row: row, Column: col}
}
