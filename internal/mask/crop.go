package mask

import (
	"errors"
	"image"
	"image/color"
	"image/draw"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/pkg/geometry"
)

// ErrBelowMinArea marks a cleaned mask whose foreground is too small to be a
// real wing; the instance is discarded as a false-positive detection.
var ErrBelowMinArea = errors.New("mask foreground below minimum instance area")

// NormalizedCrop is a background-normalized crop of one wing instance,
// together with the provenance needed to name the output file.
type NormalizedCrop struct {
	Image  *image.RGBA
	Bounds geometry.RectInt // crop bounds in source-image coordinates
	Area   int              // cleaned foreground pixel count
}

// Options controls mask cleanup and crop rendering.
type Options struct {
	MinArea     int
	MaxHoleFrac float64
	MarginPx    int
	MarginFrac  float64
	Background  config.Background
}

// OptionsFromConfig extracts the post-processing options from the pipeline
// configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		MinArea:     cfg.MinInstanceArea,
		MaxHoleFrac: cfg.MaxHoleFraction,
		MarginPx:    cfg.CropMarginPx,
		MarginFrac:  cfg.CropMarginFrac,
		Background:  cfg.Background,
	}
}

// Postprocess cleans the raw mask in place and renders the normalized crop:
// keep the largest 8-connected component, fill small interior holes, compute
// the tight bounds, composite the source onto a solid backdrop outside the
// mask, and crop to the bounds plus margin.
//
// Returns ErrBelowMinArea when the cleaned foreground is smaller than
// opts.MinArea; the caller drops the instance without failing the image.
func Postprocess(src image.Image, m *Mask, opts Options) (*NormalizedCrop, error) {
	area := m.LargestComponent()
	if area == 0 || area < opts.MinArea {
		return nil, ErrBelowMinArea
	}
	m.FillHoles(opts.MaxHoleFrac)

	bounds, ok := m.TightBounds()
	if !ok {
		return nil, ErrBelowMinArea
	}

	margin := opts.MarginPx
	if opts.MarginFrac > 0 {
		long := bounds.Width
		if bounds.Height > long {
			long = bounds.Height
		}
		margin = int(opts.MarginFrac * float64(long))
	}
	crop := bounds.Inflate(margin, m.W, m.H)

	bg := color.RGBA{0, 0, 0, 255}
	if opts.Background == config.BackgroundWhite {
		bg = color.RGBA{255, 255, 255, 255}
	}

	out := image.NewRGBA(image.Rect(0, 0, crop.Width, crop.Height))
	draw.Draw(out, out.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	srcBounds := src.Bounds()
	for y := 0; y < crop.Height; y++ {
		sy := crop.Y + y
		for x := 0; x < crop.Width; x++ {
			sx := crop.X + x
			if !m.At(sx, sy) {
				continue
			}
			out.Set(x, y, src.At(srcBounds.Min.X+sx, srcBounds.Min.Y+sy))
		}
	}

	return &NormalizedCrop{Image: out, Bounds: crop, Area: m.Area()}, nil
}

// ToGray renders the mask as an 8-bit image (255 foreground, 0 background)
// for saving alongside the crops.
func (m *Mask) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.W, m.H))
	for i, p := range m.Pix {
		if p != 0 {
			out.Pix[i] = 255
		}
	}
	return out
}
