package mdview

import "fmt"

// Affinity disambiguates a position sitting exactly on a slice boundary:
// Downstream addresses the leading edge of its slice, Upstream the trailing
// edge. Downstream orders before Upstream at the same path.
type Affinity int

const (
	Downstream Affinity = iota
	Upstream
)

func (a Affinity) String() string {
	if a == Upstream {
		return "upstream"
	}
	return "downstream"
}

// slicePath addresses one slice through the four-level layout nesting.
type slicePath struct {
	layout, line, run, slice int
}

func (p slicePath) compare(q slicePath) int {
	switch {
	case p.layout != q.layout:
		return cmpInt(p.layout, q.layout)
	case p.line != q.line:
		return cmpInt(p.line, q.line)
	case p.run != q.run:
		return cmpInt(p.run, q.run)
	default:
		return cmpInt(p.slice, q.slice)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Position is a logical text position: a four-level index path into a
// layout collection plus a boundary affinity. Positions are value types and
// are only meaningful against the layout collection they were computed
// from; use SelectionModel reconciliation across relayouts.
type Position struct {
	Layout, Line, Run, Slice int
	Affinity                 Affinity
}

func (p Position) path() slicePath {
	return slicePath{layout: p.Layout, line: p.Line, run: p.Run, slice: p.Slice}
}

// Compare orders positions lexicographically by index path, breaking ties
// by affinity (Downstream < Upstream).
func (p Position) Compare(q Position) int {
	if c := p.path().compare(q.path()); c != 0 {
		return c
	}
	return cmpInt(int(p.Affinity), int(q.Affinity))
}

func (p Position) String() string {
	return fmt.Sprintf("Position(%d.%d.%d.%d %s)", p.Layout, p.Line, p.Run, p.Slice, p.Affinity)
}

// Range is a pair of positions with Start <= End, normalized by the
// constructor.
type Range struct {
	start, end Position
}

// NewRange builds a range from two endpoints in either order.
func NewRange(a, b Position) Range {
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return Range{start: a, end: b}
}

func (r Range) Start() Position { return r.start }
func (r Range) End() Position   { return r.end }

// IsCollapsed reports whether the range covers nothing.
func (r Range) IsCollapsed() bool { return r.start.Compare(r.end) == 0 }

// Contains reports whether p lies inside the range. Boundary affinity
// carves out which side counts as inside: a Downstream start excludes
// positions <= start, an Upstream end excludes positions >= end.
func (r Range) Contains(p Position) bool {
	cs := p.Compare(r.start)
	if r.start.Affinity == Downstream {
		if cs <= 0 {
			return false
		}
	} else if cs < 0 {
		return false
	}
	ce := p.Compare(r.end)
	if r.end.Affinity == Upstream {
		if ce >= 0 {
			return false
		}
	} else if ce > 0 {
		return false
	}
	return true
}
