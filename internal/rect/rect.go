// Package rect provides the integer pixel rectangle used for tiles, borders and
// areas of interest.
package rect

import "fmt"

// Rect is a half-open pixel rectangle: a pixel (x, y) is inside when
// XMin <= x < XMax and YMin <= y < YMax.
type Rect struct {
	XMin, XMax int
	YMin, YMax int
}

// New returns the rectangle spanning [xmin, xmax) x [ymin, ymax).
func New(xmin, xmax, ymin, ymax int) Rect {
	return Rect{XMin: xmin, XMax: xmax, YMin: ymin, YMax: ymax}
}

// FromSize returns the rectangle anchored at the origin with the given size.
func FromSize(width, height int) Rect {
	return Rect{XMax: width, YMax: height}
}

// Width returns the horizontal extent, zero for inverted rectangles.
func (r Rect) Width() int {
	return max(r.XMax-r.XMin, 0)
}

// Height returns the vertical extent, zero for inverted rectangles.
func (r Rect) Height() int {
	return max(r.YMax-r.YMin, 0)
}

// Empty reports whether the rectangle contains no pixels.
func (r Rect) Empty() bool {
	return r.XMin >= r.XMax || r.YMin >= r.YMax
}

// Area returns the number of pixels inside the rectangle.
func (r Rect) Area() int {
	return r.Width() * r.Height()
}

// Contains reports whether pixel (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.XMin && x < r.XMax && y >= r.YMin && y < r.YMax
}

// Intersects reports whether r and o share at least one pixel.
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersect(o).Empty()
}

// Intersect returns the overlap of r and o. The result is Empty when they
// do not overlap.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		XMin: max(r.XMin, o.XMin),
		XMax: min(r.XMax, o.XMax),
		YMin: max(r.YMin, o.YMin),
		YMax: min(r.YMax, o.YMax),
	}
}

// Union returns the smallest rectangle containing both r and o. An empty
// operand is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		XMin: min(r.XMin, o.XMin),
		XMax: max(r.XMax, o.XMax),
		YMin: min(r.YMin, o.YMin),
		YMax: max(r.YMax, o.YMax),
	}
}

// Grow expands r by dx on the left and right and by dy on the top and bottom.
func (r Rect) Grow(dx, dy int) Rect {
	return Rect{XMin: r.XMin - dx, XMax: r.XMax + dx, YMin: r.YMin - dy, YMax: r.YMax + dy}
}

// Center returns the centre of r in pixel space.
func (r Rect) Center() (float64, float64) {
	return float64(r.XMin+r.XMax) / 2, float64(r.YMin+r.YMax) / 2
}

// String implements fmt.Stringer.
func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d)x[%d,%d)", r.XMin, r.XMax, r.YMin, r.YMax)
}
