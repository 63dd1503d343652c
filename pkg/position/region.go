package position

import "fmt"

// Region is a span of rune offsets in a document. Start is always <= End.
type Region struct {
	Start int
	End   int
}

// NewRegion builds a region from two offsets in any order.
func NewRegion(a, b int) Region {
	if a > b {
		a, b = b, a
	}
	return Region{Start: a, End: b}
}

// Point returns an empty region at pt.
func Point(pt int) Region {
	return Region{Start: pt, End: pt}
}

func (r Region) Empty() bool {
	return r.Start == r.End
}

func (r Region) Len() int {
	return r.End - r.Start
}

// Contains reports whether pt lies inside the region. Caret positions on
// either edge count as inside.
func (r Region) Contains(pt int) bool {
	return r.Start <= pt && pt <= r.End
}

// ContainsRegion reports whether other is fully inside r.
func (r Region) ContainsRegion(other Region) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Shift moves both ends by delta.
func (r Region) Shift(delta int) Region {
	return Region{Start: r.Start + delta, End: r.End + delta}
}

// Extend moves only the end by delta.
func (r Region) Extend(delta int) Region {
	return Region{Start: r.Start, End: r.End + delta}
}

// Cover returns the smallest region spanning both r and other.
func (r Region) Cover(other Region) Region {
	return Region{Start: min(r.Start, other.Start), End: max(r.End, other.End)}
}

// Clamp limits both ends to [0, size].
func (r Region) Clamp(size int) Region {
	return Region{
		Start: min(max(r.Start, 0), size),
		End:   min(max(r.End, 0), size),
	}
}

// Valid reports whether the region is well formed and fits a document of the given size.
func (r Region) Valid(size int) bool {
	return r.Start >= 0 && r.Start <= r.End && r.End <= size
}

func (r Region) String() string {
	return fmt.Sprintf("[%d:%d]", r.Start, r.End)
}
