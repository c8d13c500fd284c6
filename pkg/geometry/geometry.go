// Package geometry provides basic geometric types used throughout the pipeline.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// Box is an axis-aligned detection box in source-image pixel coordinates.
// XMin < XMax and YMin < YMax for any valid box; Confidence is in [0, 1].
type Box struct {
	XMin       float64 `json:"x_min"`
	YMin       float64 `json:"y_min"`
	XMax       float64 `json:"x_max"`
	YMax       float64 `json:"y_max"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label,omitempty"`
}

// NewBox creates a Box from corner coordinates.
func NewBox(xMin, yMin, xMax, yMax, confidence float64) Box {
	return Box{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax, Confidence: confidence}
}

// Valid reports whether the box has positive extent, finite coordinates,
// and a confidence inside [0, 1].
func (b Box) Valid() bool {
	for _, v := range []float64{b.XMin, b.YMin, b.XMax, b.YMax, b.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.XMin < b.XMax && b.YMin < b.YMax && b.Confidence >= 0 && b.Confidence <= 1
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 { return b.XMax - b.XMin }

// Height returns the vertical extent of the box.
func (b Box) Height() float64 { return b.YMax - b.YMin }

// Area returns the box area in square pixels.
func (b Box) Area() float64 { return b.Width() * b.Height() }

// CenterX returns the horizontal center of the box.
func (b Box) CenterX() float64 { return (b.XMin + b.XMax) / 2 }

// CenterY returns the vertical center of the box.
func (b Box) CenterY() float64 { return (b.YMin + b.YMax) / 2 }

// Intersection returns the overlapping region of two boxes and whether
// the overlap is non-empty.
func (b Box) Intersection(other Box) (Box, bool) {
	xMin := math.Max(b.XMin, other.XMin)
	yMin := math.Max(b.YMin, other.YMin)
	xMax := math.Min(b.XMax, other.XMax)
	yMax := math.Min(b.YMax, other.YMax)
	if xMin >= xMax || yMin >= yMax {
		return Box{}, false
	}
	return Box{XMin: xMin, YMin: yMin, XMax: xMax, YMax: yMax}, true
}

// IoU returns the intersection-over-union of two boxes, 0 when disjoint.
func (b Box) IoU(other Box) float64 {
	inter, ok := b.Intersection(other)
	if !ok {
		return 0
	}
	union := b.Area() + other.Area() - inter.Area()
	if union <= 0 {
		return 0
	}
	return inter.Area() / union
}

// Clamp restricts the box to the [0,width) x [0,height) raster, returning
// the clamped box and whether any extent survives.
func (b Box) Clamp(width, height int) (Box, bool) {
	c := b
	c.XMin = math.Max(0, c.XMin)
	c.YMin = math.Max(0, c.YMin)
	c.XMax = math.Min(float64(width), c.XMax)
	c.YMax = math.Min(float64(height), c.YMax)
	if c.XMin >= c.XMax || c.YMin >= c.YMax {
		return Box{}, false
	}
	return c, true
}

// ToRect converts the box to an image.Rectangle, rounding outward so the
// rectangle fully covers the box.
func (b Box) ToRect() image.Rectangle {
	return image.Rect(
		int(math.Floor(b.XMin)),
		int(math.Floor(b.YMin)),
		int(math.Ceil(b.XMax)),
		int(math.Ceil(b.YMax)),
	)
}

func (b Box) String() string {
	return fmt.Sprintf("[%.1f,%.1f %.1fx%.1f conf=%.2f]", b.XMin, b.YMin, b.Width(), b.Height(), b.Confidence)
}

// RectInt is a rectangle with integer pixel coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRect converts an image.Rectangle to a RectInt.
func FromRect(r image.Rectangle) RectInt {
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// ToRect converts to an image.Rectangle.
func (r RectInt) ToRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Area returns the rectangle area in pixels.
func (r RectInt) Area() int { return r.Width * r.Height }

// Inflate grows the rectangle by margin pixels on every side, clamped to
// the [0,width) x [0,height) raster.
func (r RectInt) Inflate(margin, width, height int) RectInt {
	x := r.X - margin
	y := r.Y - margin
	x2 := r.X + r.Width + margin
	y2 := r.Y + r.Height + margin
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x2 > width {
		x2 = width
	}
	if y2 > height {
		y2 = height
	}
	return RectInt{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}
