// Package mask provides the binary instance mask type and the cleanup steps
// that turn a raw segmentation mask into a tight, noise-free region.
package mask

import (
	"fmt"

	"github.com/Imageomics/wing-segmentation/pkg/geometry"
)

// Mask is a binary grid co-registered with its source image: Pix[y*W+x] is
// nonzero where the pixel belongs to the instance.
type Mask struct {
	W, H int
	Pix  []uint8
}

// New creates an all-background mask of the given dimensions.
func New(w, h int) *Mask {
	return &Mask{W: w, H: h, Pix: make([]uint8, w*h)}
}

// At reports whether (x, y) is foreground. Out-of-range coordinates are
// background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.W || y < 0 || y >= m.H {
		return false
	}
	return m.Pix[y*m.W+x] != 0
}

// Set marks (x, y) as foreground.
func (m *Mask) Set(x, y int) {
	if x >= 0 && x < m.W && y >= 0 && y < m.H {
		m.Pix[y*m.W+x] = 1
	}
}

// Area returns the number of foreground pixels.
func (m *Mask) Area() int {
	n := 0
	for _, p := range m.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	c := &Mask{W: m.W, H: m.H, Pix: make([]uint8, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// TightBounds returns the smallest rectangle covering all foreground pixels
// and whether any foreground exists.
func (m *Mask) TightBounds() (geometry.RectInt, bool) {
	minX, minY := m.W, m.H
	maxX, maxY := -1, -1
	for y := 0; y < m.H; y++ {
		row := m.Pix[y*m.W : (y+1)*m.W]
		for x, p := range row {
			if p == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}
	if maxX < 0 {
		return geometry.RectInt{}, false
	}
	return geometry.RectInt{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}, true
}

// neighbor offsets for 8-connectivity
var offsets8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// LargestComponent keeps only the largest 8-connected foreground component,
// discarding segmentation noise specks. Returns the area of the surviving
// component (0 when the mask is empty).
func (m *Mask) LargestComponent() int {
	labels := make([]int32, len(m.Pix))
	var bestLabel int32
	bestArea := 0
	next := int32(1)

	queue := make([][2]int, 0, 256)
	for start := range m.Pix {
		if m.Pix[start] == 0 || labels[start] != 0 {
			continue
		}
		label := next
		next++
		area := 0

		queue = queue[:0]
		queue = append(queue, [2]int{start % m.W, start / m.W})
		labels[start] = label
		for len(queue) > 0 {
			p := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			area++
			for _, d := range offsets8 {
				nx, ny := p[0]+d[0], p[1]+d[1]
				if nx < 0 || nx >= m.W || ny < 0 || ny >= m.H {
					continue
				}
				idx := ny*m.W + nx
				if m.Pix[idx] != 0 && labels[idx] == 0 {
					labels[idx] = label
					queue = append(queue, [2]int{nx, ny})
				}
			}
		}

		if area > bestArea {
			bestArea = area
			bestLabel = label
		}
	}

	if bestArea == 0 {
		return 0
	}
	for i := range m.Pix {
		if labels[i] != bestLabel {
			m.Pix[i] = 0
		}
	}
	return bestArea
}

// FillHoles fills interior background regions smaller than maxFraction of
// the foreground area. Background connected to the mask border is never
// filled; it is outside, not a hole. Holes are 4-connected so diagonal
// foreground pinches still separate them.
func (m *Mask) FillHoles(maxFraction float64) {
	fgArea := m.Area()
	if fgArea == 0 {
		return
	}
	maxHole := int(maxFraction * float64(fgArea))
	if maxHole < 1 {
		return
	}

	const (
		unvisited = 0
		outside   = 1
		hole      = 2
	)
	state := make([]uint8, len(m.Pix))

	// Flood the border-connected background first.
	queue := make([][2]int, 0, 2*(m.W+m.H))
	enqueue := func(x, y int) {
		idx := y*m.W + x
		if m.Pix[idx] == 0 && state[idx] == unvisited {
			state[idx] = outside
			queue = append(queue, [2]int{x, y})
		}
	}
	for x := 0; x < m.W; x++ {
		enqueue(x, 0)
		enqueue(x, m.H-1)
	}
	for y := 0; y < m.H; y++ {
		enqueue(0, y)
		enqueue(m.W-1, y)
	}
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			nx, ny := p[0]+d[0], p[1]+d[1]
			if nx < 0 || nx >= m.W || ny < 0 || ny >= m.H {
				continue
			}
			enqueue(nx, ny)
		}
	}

	// Remaining background regions are holes; fill the small ones.
	region := make([][2]int, 0, 64)
	for start := range m.Pix {
		if m.Pix[start] != 0 || state[start] != unvisited {
			continue
		}
		region = region[:0]
		queue = queue[:0]
		queue = append(queue, [2]int{start % m.W, start / m.W})
		state[start] = hole
		for len(queue) > 0 {
			p := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			region = append(region, p)
			for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				nx, ny := p[0]+d[0], p[1]+d[1]
				if nx < 0 || nx >= m.W || ny < 0 || ny >= m.H {
					continue
				}
				idx := ny*m.W + nx
				if m.Pix[idx] == 0 && state[idx] == unvisited {
					state[idx] = hole
					queue = append(queue, [2]int{nx, ny})
				}
			}
		}
		if len(region) <= maxHole {
			for _, p := range region {
				m.Pix[p[1]*m.W+p[0]] = 1
			}
		}
	}
}

func (m *Mask) String() string {
	return fmt.Sprintf("mask %dx%d area=%d", m.W, m.H, m.Area())
}
