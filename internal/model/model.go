// Package model defines the inference capability boundaries of the pipeline.
// The detector and segmenter are opaque providers behind these interfaces so
// the pipeline never depends on a specific model implementation and tests can
// substitute deterministic stubs.
package model

import (
	"fmt"
	"image"

	"github.com/Imageomics/wing-segmentation/internal/mask"
	"github.com/Imageomics/wing-segmentation/pkg/geometry"
)

// Detection is one candidate instance reported by the detector.
type Detection struct {
	Box   geometry.Box
	Class int
}

// Detector locates wing candidates in an image. An image with no candidates
// above the detector's internal confidence floor yields an empty slice, not
// an error.
type Detector interface {
	Detect(img image.Image) ([]Detection, error)
	Close() error
}

// Segmenter produces a binary mask for the region hinted at by the prompt
// box. The returned mask's grid dimensions always equal the source image's.
type Segmenter interface {
	Segment(img image.Image, prompt geometry.Box) (*mask.Mask, error)
	Close() error
}

// InferenceError signals that an underlying model capability was unreachable
// or returned malformed output. For the detector it is fatal to the current
// image; for the segmenter it drops the offending instance only.
type InferenceError struct {
	Capability string // "detector" or "segmenter"
	Err        error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s inference: %v", e.Capability, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Inferencef builds an InferenceError with a formatted cause.
func Inferencef(capability, format string, v ...interface{}) error {
	return &InferenceError{Capability: capability, Err: fmt.Errorf(format, v...)}
}
