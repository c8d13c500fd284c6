package orient

import (
	"image"
	"image/color"
	"testing"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/internal/mask"
	"github.com/Imageomics/wing-segmentation/internal/resolver"
)

func testCrop() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(3, 1, color.RGBA{0, 0, 255, 255})
	return img
}

func TestFlipHorizontalIsInvolution(t *testing.T) {
	src := testCrop()
	twice := FlipHorizontal(FlipHorizontal(src))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if src.RGBAAt(x, y) != twice.RGBAAt(x, y) {
				t.Fatalf("double flip changed pixel (%d,%d)", x, y)
			}
		}
	}

	once := FlipHorizontal(src)
	if once.RGBAAt(3, 0) != src.RGBAAt(0, 0) {
		t.Error("flip did not mirror across the vertical axis")
	}
}

func TestNormalizeRightSlotFlips(t *testing.T) {
	cfg := config.Default()
	n := New(cfg)
	src := testCrop()

	out, state := n.Normalize(src, resolver.SlotRight, nil)
	if state != FlipApplied {
		t.Errorf("right slot state = %s, want flipped", state)
	}
	if out.RGBAAt(3, 0) != src.RGBAAt(0, 0) {
		t.Error("right slot crop was not mirrored")
	}

	out, state = n.Normalize(src, resolver.SlotLeft, nil)
	if state != FlipNone {
		t.Errorf("left slot state = %s, want orig", state)
	}
	if out != src {
		t.Error("left slot crop should pass through untouched")
	}
}

func TestNormalizeRespectsPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.FlipRight = false
	n := New(cfg)

	_, state := n.Normalize(testCrop(), resolver.SlotRight, nil)
	if state != FlipNone {
		t.Errorf("with FlipRight off state = %s, want orig", state)
	}
}

// wedge builds a mask whose mass tapers toward the given side, imitating a
// wing tip.
func wedge(w, h int, tipRight bool) *mask.Mask {
	m := mask.New(w, h)
	for x := 0; x < w; x++ {
		frac := float64(x) / float64(w-1)
		if !tipRight {
			frac = 1 - frac
		}
		rows := h - int(frac*float64(h-1))
		for y := 0; y < rows; y++ {
			m.Set(x, y)
		}
	}
	return m
}

func TestFacesRight(t *testing.T) {
	if !FacesRight(wedge(40, 20, true)) {
		t.Error("rightward wedge should face right")
	}
	if FacesRight(wedge(40, 20, false)) {
		t.Error("leftward wedge should face left")
	}
}

func TestNormalizeUnknownSlotHeuristic(t *testing.T) {
	cfg := config.Default()
	cfg.OrientUnknown = true
	cfg.CanonicalLeft = true
	n := New(cfg)

	rightFacing := wedge(40, 20, true)
	crop := image.NewRGBA(image.Rect(0, 0, 40, 20))

	_, state := n.Normalize(crop, resolver.SlotUnknown, rightFacing)
	if state != FlipApplied {
		t.Error("right-facing unknown wing should be flipped toward canonical left")
	}

	leftFacing := wedge(40, 20, false)
	_, state = n.Normalize(crop, resolver.SlotUnknown, leftFacing)
	if state != FlipNone {
		t.Error("left-facing unknown wing should stay as photographed")
	}
}
