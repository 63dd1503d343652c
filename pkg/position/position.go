package position

import (
	"fmt"
	"unicode/utf16"
)

// Place is a zero-based line and UTF-16 column, as used on the LSP wire.
type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

func (p Place) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

func utf16Len(r rune) int {
	if n := len(utf16.Encode([]rune{r})); n > 0 {
		return n
	}
	return 1
}

// PlaceFromOffset converts a rune offset in text into a line/column place.
// Offsets past the end clamp to the end of the text.
func PlaceFromOffset(text string, offset int) Place {
	p := Place{}
	i := 0
	for _, r := range text {
		if i >= offset {
			break
		}
		if r == '\n' {
			p.Line++
			p.Character = 0
		} else {
			p.Character += utf16Len(r)
		}
		i++
	}
	return p
}

// OffsetFromPlace converts a line/column place into a rune offset in text.
// A column past the end of its line clamps to the line end, a line past the
// end of the text clamps to the end of the text.
func OffsetFromPlace(text string, p Place) int {
	line, col, offset := 0, 0, 0
	for _, r := range text {
		if line == p.Line {
			if r == '\n' || col >= p.Character {
				return offset
			}
			col += utf16Len(r)
		} else if r == '\n' {
			line++
		}
		offset++
	}
	return offset
}

// RangeFromRegion converts a rune region into a line/column range.
func RangeFromRegion(text string, r Region) Range {
	return Range{
		Start: PlaceFromOffset(text, r.Start),
		End:   PlaceFromOffset(text, r.End),
	}
}

// RegionFromRange converts a line/column range into a rune region.
func RegionFromRange(text string, r Range) Region {
	return NewRegion(OffsetFromPlace(text, r.Start), OffsetFromPlace(text, r.End))
}
