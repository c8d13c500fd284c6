// Package orient normalizes wing facing direction. Wings destined for the
// same slot must share one canonical direction across the dataset; slots on
// the mirrored side are flipped horizontally, and the flip state is encoded
// in the output filename so a re-run can never flip twice.
package orient

import (
	"image"

	"gonum.org/v1/gonum/stat"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/internal/mask"
	"github.com/Imageomics/wing-segmentation/internal/resolver"
)

// FlipState records whether orientation normalization mirrored the crop.
type FlipState string

const (
	// FlipNone: the crop is in its photographed orientation.
	FlipNone FlipState = "orig"
	// FlipApplied: the crop was mirrored once into the canonical direction.
	FlipApplied FlipState = "flipped"
)

// Normalizer applies the per-slot orientation policy.
type Normalizer struct {
	flipRight     bool
	orientUnknown bool
	canonicalLeft bool
}

// New builds a Normalizer from the pipeline configuration.
func New(cfg config.Config) *Normalizer {
	return &Normalizer{
		flipRight:     cfg.FlipRight,
		orientUnknown: cfg.OrientUnknown,
		canonicalLeft: cfg.CanonicalLeft,
	}
}

// Normalize returns the crop in canonical orientation and the flip state
// that was applied. The input crop is never modified. The mask is the
// cleaned instance mask, used only for the unknown-slot facing heuristic;
// it may be nil when the slot is known.
func (n *Normalizer) Normalize(crop *image.RGBA, slot resolver.Slot, m *mask.Mask) (*image.RGBA, FlipState) {
	flip := false
	switch slot {
	case resolver.SlotRight:
		flip = n.flipRight
	case resolver.SlotUnknown:
		if n.orientUnknown && m != nil {
			flip = FacesRight(m) == n.canonicalLeft
		}
	}
	if !flip {
		return crop, FlipNone
	}
	return FlipHorizontal(crop), FlipApplied
}

// FlipHorizontal mirrors the image across its vertical axis.
func FlipHorizontal(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.SetRGBA(w-1-x, y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

// FacesRight estimates the facing direction of a wing from the skewness of
// its mask's column mass distribution. Wing mass concentrates toward the
// body and tapers toward the tip, so a rightward tip shows a positive
// horizontal skew.
func FacesRight(m *mask.Mask) bool {
	xs := make([]float64, 0, m.W)
	weights := make([]float64, 0, m.W)
	for x := 0; x < m.W; x++ {
		count := 0.0
		for y := 0; y < m.H; y++ {
			if m.At(x, y) {
				count++
			}
		}
		if count > 0 {
			xs = append(xs, float64(x))
			weights = append(weights, count)
		}
	}
	if len(xs) < 3 {
		return false
	}
	return stat.Skew(xs, weights) > 0
}
