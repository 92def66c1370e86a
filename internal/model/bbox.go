package model

import "math"

// BBox is an axis-aligned bounding box in WGS84 longitude/latitude.
type BBox struct {
	MinX float64 `json:"minx"`
	MinY float64 `json:"miny"`
	MaxX float64 `json:"maxx"`
	MaxY float64 `json:"maxy"`
}

// EmptyBBox returns a box that any Extend call will replace.
func EmptyBBox() BBox {
	return BBox{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
}

// Valid reports whether the box contains at least one point.
func (b BBox) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// Extend grows the box to include the point (x, y).
func (b BBox) Extend(x, y float64) BBox {
	return BBox{
		MinX: math.Min(b.MinX, x),
		MinY: math.Min(b.MinY, y),
		MaxX: math.Max(b.MaxX, x),
		MaxY: math.Max(b.MaxY, y),
	}
}

// Union returns the smallest box covering both b and o.
func (b BBox) Union(o BBox) BBox {
	if !b.Valid() {
		return o
	}
	if !o.Valid() {
		return b
	}
	return BBox{
		MinX: math.Min(b.MinX, o.MinX),
		MinY: math.Min(b.MinY, o.MinY),
		MaxX: math.Max(b.MaxX, o.MaxX),
		MaxY: math.Max(b.MaxY, o.MaxY),
	}
}

// Contains reports whether the point (x, y) lies inside or on the box.
func (b BBox) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// Slice renders the box as [minx, miny, maxx, maxy].
func (b BBox) Slice() []float64 {
	return []float64{b.MinX, b.MinY, b.MaxX, b.MaxY}
}
