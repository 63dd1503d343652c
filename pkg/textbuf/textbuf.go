// Package textbuf is an in-memory rune buffer with a caret, an undo history
// and an abbreviation marker that follows edits.
package textbuf

import (
	"sync"

	"github.com/walteh/emmetls/pkg/position"
)

type edit struct {
	// at is where the replacement text now sits
	at     position.Region
	old    string
	caret  int
	marker *position.Region
}

// Buffer is safe for concurrent use. All offsets are rune offsets.
type Buffer struct {
	mu      sync.RWMutex
	text    []rune
	caret   int
	marker  *position.Region
	history []edit
}

func New(text string) *Buffer {
	return &Buffer{text: []rune(text)}
}

func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.text)
}

func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.text)
}

// Substring returns the text of r clamped to the buffer.
func (b *Buffer) Substring(r position.Region) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r = r.Clamp(len(b.text))
	return string(b.text[r.Start:r.End])
}

func (b *Buffer) Caret() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caret
}

func (b *Buffer) SetCaret(pt int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caret = min(max(pt, 0), len(b.text))
}

// Line returns the line holding pt without its line break.
func (b *Buffer) Line(pt int) position.Region {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pt = min(max(pt, 0), len(b.text))

	start := pt
	for start > 0 && b.text[start-1] != '\n' {
		start--
	}
	end := pt
	for end < len(b.text) && b.text[end] != '\n' {
		end++
	}
	if end > start && b.text[end-1] == '\r' {
		end--
	}
	return position.Region{Start: start, End: end}
}

// Insert types text at the caret.
func (b *Buffer) Insert(text string) {
	caret := b.Caret()
	b.Replace(position.Point(caret), text)
}

// Backspace deletes n runes left of the caret.
func (b *Buffer) Backspace(n int) {
	caret := b.Caret()
	b.Replace(position.Region{Start: max(caret-n, 0), End: caret}, "")
}

// Replace swaps the text of r for text and leaves the caret after it.
func (b *Buffer) Replace(r position.Region, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r = r.Clamp(len(b.text))
	ins := []rune(text)

	e := edit{
		at:    position.Region{Start: r.Start, End: r.Start + len(ins)},
		old:   string(b.text[r.Start:r.End]),
		caret: b.caret,
	}
	if b.marker != nil {
		m := *b.marker
		e.marker = &m
	}
	b.history = append(b.history, e)

	b.splice(r, ins)
	b.caret = r.Start + len(ins)
}

func (b *Buffer) splice(r position.Region, ins []rune) {
	next := make([]rune, 0, len(b.text)-r.Len()+len(ins))
	next = append(next, b.text[:r.Start]...)
	next = append(next, ins...)
	next = append(next, b.text[r.End:]...)
	b.text = next
	b.marker = moveMarker(b.marker, r, len(ins))
}

// Undo reverts the last edit, including the marker it replaced. It reports
// false when there is nothing to undo.
func (b *Buffer) Undo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.history) == 0 {
		return false
	}
	e := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]

	b.splice(e.at, []rune(e.old))
	b.marker = e.marker
	b.caret = min(e.caret, len(b.text))
	return true
}

// SetAbbreviationMarker stores the region of the tracked abbreviation so
// that undo can restore it. A nil region clears the marker.
func (b *Buffer) SetAbbreviationMarker(r *position.Region) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r == nil {
		b.marker = nil
		return
	}
	m := *r
	b.marker = &m
}

func (b *Buffer) AbbreviationMarker() (position.Region, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.marker == nil {
		return position.Region{}, false
	}
	return *b.marker, true
}

// moveMarker keeps the marker attached to its text across an edit replacing
// r with n runes. Edits that cut across a marker edge drop it.
func moveMarker(m *position.Region, r position.Region, n int) *position.Region {
	if m == nil {
		return nil
	}
	delta := n - r.Len()
	var out position.Region
	switch {
	case r.End <= m.Start && !(r.Empty() && r.Start == m.Start && m.Empty()):
		out = m.Shift(delta)
	case r.Start > m.End:
		out = *m
	case r.Start >= m.Start && r.End <= m.End:
		out = m.Extend(delta)
	default:
		return nil
	}
	return &out
}

