package mdview

import "image"

// Point is a location in document coordinates, in pixels.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in document coordinates.
// A zero-width rect is valid and used for carets.
type Rect struct {
	MinX, MinY, MaxX, MaxY float64
}

func (r Rect) Width() float64  { return r.MaxX - r.MinX }
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Empty reports whether the rect covers no area.
func (r Rect) Empty() bool { return r.MaxX <= r.MinX || r.MaxY <= r.MinY }

// Union returns the smallest rect covering both r and s.
func (r Rect) Union(s Rect) Rect {
	if s.MinX < r.MinX {
		r.MinX = s.MinX
	}
	if s.MinY < r.MinY {
		r.MinY = s.MinY
	}
	if s.MaxX > r.MaxX {
		r.MaxX = s.MaxX
	}
	if s.MaxY > r.MaxY {
		r.MaxY = s.MaxY
	}
	return r
}

// Contains reports whether p lies inside r. The max edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X < r.MaxX && p.Y >= r.MinY && p.Y < r.MaxY
}

// Inset grows (negative dx/dy) or shrinks the rect.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{MinX: r.MinX + dx, MinY: r.MinY + dy, MaxX: r.MaxX - dx, MaxY: r.MaxY - dy}
}

// Offset translates the rect by the given point.
func (r Rect) Offset(p Point) Rect {
	return Rect{MinX: r.MinX + p.X, MinY: r.MinY + p.Y, MaxX: r.MaxX + p.X, MaxY: r.MaxY + p.Y}
}

// ImageRect converts to an integer image.Rectangle, rounding outward.
func (r Rect) ImageRect() image.Rectangle {
	return image.Rect(int(r.MinX), int(r.MinY), int(r.MaxX+0.5), int(r.MaxY+0.5))
}

// distSq returns the squared distance from p to the rect, 0 if p is inside.
func (r Rect) distSq(p Point) float64 {
	dx := axisDist(p.X, r.MinX, r.MaxX)
	dy := axisDist(p.Y, r.MinY, r.MaxY)
	return dx*dx + dy*dy
}

func axisDist(v, lo, hi float64) float64 {
	if v < lo {
		return lo - v
	}
	if v > hi {
		return v - hi
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
