// Package sam implements the promptable segmentation capability with a SAM2
// ONNX model pair driven through the go-vision engine. The detector's box is
// passed as a top-left/bottom-right point prompt.
package sam

import (
	"fmt"
	"image"
	"os"

	"github.com/getcharzp/go-vision/sam2"

	"github.com/Imageomics/wing-segmentation/internal/mask"
	"github.com/Imageomics/wing-segmentation/internal/model"
	"github.com/Imageomics/wing-segmentation/pkg/geometry"
)

// Segmenter wraps a SAM2 engine. Not safe for concurrent use; the pipeline
// serializes access.
type Segmenter struct {
	engine *sam2.Engine
}

// Config locates the model files.
type Config struct {
	EncoderPath     string
	DecoderPath     string
	OnnxRuntimePath string
}

// New loads the SAM2 encoder/decoder pair. Unloadable models are a startup
// error, fatal to the whole run.
func New(cfg Config) (*Segmenter, error) {
	for _, p := range []string{cfg.EncoderPath, cfg.DecoderPath} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("segmenter model: %w", err)
		}
	}
	engine, err := sam2.NewEngine(sam2.Config{
		OnnxRuntimeLibPath: cfg.OnnxRuntimePath,
		EncodeModelPath:    cfg.EncoderPath,
		DecodeModelPath:    cfg.DecoderPath,
	})
	if err != nil {
		return nil, fmt.Errorf("segmenter init: %w", err)
	}
	return &Segmenter{engine: engine}, nil
}

// Close releases the engine.
func (s *Segmenter) Close() error {
	s.engine.Destroy()
	return nil
}

// Segment encodes the image and decodes one mask for the prompt box. The
// returned mask is co-registered with the source image; a mask whose grid
// does not match the source dimensions is malformed output.
func (s *Segmenter) Segment(img image.Image, prompt geometry.Box) (*mask.Mask, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, model.Inferencef("segmenter", "empty input image")
	}
	if !prompt.Valid() {
		return nil, model.Inferencef("segmenter", "invalid prompt box %v", prompt)
	}

	ctx, err := s.engine.EncodeImage(img)
	if err != nil {
		return nil, model.Inferencef("segmenter", "encode: %v", err)
	}
	defer ctx.Destroy()

	points := []sam2.Point{
		{X: float32(prompt.XMin), Y: float32(prompt.YMin), Label: sam2.LabelBoxTopLeft},
		{X: float32(prompt.XMax), Y: float32(prompt.YMax), Label: sam2.LabelBoxBotRight},
	}
	maskImg, _, err := ctx.Decode(points)
	if err != nil {
		return nil, model.Inferencef("segmenter", "decode: %v", err)
	}

	mb := maskImg.Bounds()
	if mb.Dx() != w || mb.Dy() != h {
		return nil, model.Inferencef("segmenter", "mask grid %dx%d does not match image %dx%d",
			mb.Dx(), mb.Dy(), w, h)
	}

	return fromImage(maskImg), nil
}

// fromImage converts the engine's mask image to a binary grid. Any pixel
// with nonzero luminance is foreground.
func fromImage(img image.Image) *mask.Mask {
	b := img.Bounds()
	m := mask.New(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if r|g|bl != 0 {
				m.Set(x, y)
			}
		}
	}
	return m
}
