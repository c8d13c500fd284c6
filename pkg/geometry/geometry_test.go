package geometry

import (
	"math"
	"testing"
)

func TestBoxValid(t *testing.T) {
	tests := []struct {
		name string
		box  Box
		want bool
	}{
		{"normal", NewBox(10, 20, 110, 90, 0.8), true},
		{"zero width", NewBox(10, 20, 10, 90, 0.8), false},
		{"inverted y", NewBox(10, 90, 110, 20, 0.8), false},
		{"confidence above one", NewBox(0, 0, 5, 5, 1.5), false},
		{"negative confidence", NewBox(0, 0, 5, 5, -0.1), false},
		{"nan coordinate", Box{XMin: math.NaN(), YMin: 0, XMax: 5, YMax: 5, Confidence: 0.5}, false},
		{"infinite coordinate", Box{XMin: 0, YMin: 0, XMax: math.Inf(1), YMax: 5, Confidence: 0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoxIoU(t *testing.T) {
	a := NewBox(0, 0, 10, 10, 1)
	b := NewBox(5, 5, 15, 15, 1)
	// Intersection 5x5 = 25, union 100+100-25 = 175.
	want := 25.0 / 175.0
	if got := a.IoU(b); math.Abs(got-want) > 1e-9 {
		t.Errorf("IoU = %f, want %f", got, want)
	}
	if got := b.IoU(a); math.Abs(got-want) > 1e-9 {
		t.Errorf("IoU not symmetric: %f != %f", got, want)
	}

	disjoint := NewBox(20, 20, 30, 30, 1)
	if got := a.IoU(disjoint); got != 0 {
		t.Errorf("disjoint IoU = %f, want 0", got)
	}

	if got := a.IoU(a); math.Abs(got-1) > 1e-9 {
		t.Errorf("self IoU = %f, want 1", got)
	}
}

func TestBoxClamp(t *testing.T) {
	b := NewBox(-5, -5, 50, 50, 0.9)
	clamped, ok := b.Clamp(40, 30)
	if !ok {
		t.Fatal("expected clamped box to survive")
	}
	if clamped.XMin != 0 || clamped.YMin != 0 || clamped.XMax != 40 || clamped.YMax != 30 {
		t.Errorf("unexpected clamp result: %v", clamped)
	}

	outside := NewBox(100, 100, 200, 200, 0.9)
	if _, ok := outside.Clamp(40, 30); ok {
		t.Error("box fully outside the raster should not survive clamping")
	}
}

func TestRectIntInflate(t *testing.T) {
	r := RectInt{X: 10, Y: 10, Width: 20, Height: 20}
	grown := r.Inflate(5, 100, 100)
	if grown != (RectInt{X: 5, Y: 5, Width: 30, Height: 30}) {
		t.Errorf("unexpected inflate: %v", grown)
	}

	// Clamped at the raster edge.
	edge := RectInt{X: 2, Y: 2, Width: 10, Height: 10}
	grown = edge.Inflate(5, 14, 14)
	if grown != (RectInt{X: 0, Y: 0, Width: 14, Height: 14}) {
		t.Errorf("unexpected clamped inflate: %v", grown)
	}
}
