// Package yolo implements the detector capability with a YOLOv8 ONNX model
// run through the OpenCV DNN module.
package yolo

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/Imageomics/wing-segmentation/internal/model"
	"github.com/Imageomics/wing-segmentation/pkg/geometry"
)

const (
	// inputSize is the square network input; the standard YOLOv8 export.
	inputSize = 640
	// scoreFloor is the detector's internal confidence floor. The resolver
	// applies the configured threshold on top of this.
	scoreFloor = 0.25
)

// Detector runs wing detection with a YOLOv8 network. Not safe for
// concurrent use; the pipeline serializes access.
type Detector struct {
	net gocv.Net
}

// New loads the ONNX model from disk. A missing or unloadable model is a
// startup error, fatal to the whole run.
func New(modelPath string) (*Detector, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("detector model: %w", err)
	}
	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("detector model %s failed to load", modelPath)
	}
	return &Detector{net: net}, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	return d.net.Close()
}

// Detect returns candidate wing boxes in source-image coordinates. An image
// with no candidates above the internal floor yields an empty slice.
func (d *Detector) Detect(img image.Image) ([]model.Detection, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, model.Inferencef("detector", "empty input image")
	}

	mat := imageToMat(img)
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(inputSize, inputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	dets, err := decodeOutput(output, w, h)
	if err != nil {
		return nil, err
	}
	return dets, nil
}

// decodeOutput parses the YOLOv8 head output, shape [1, 4+numClasses, N]:
// rows 0-3 are cx, cy, w, h in network input coordinates, the remaining rows
// are per-class scores.
func decodeOutput(output gocv.Mat, imgW, imgH int) ([]model.Detection, error) {
	dims := output.Size()
	if len(dims) != 3 || dims[0] != 1 || dims[1] < 5 {
		return nil, model.Inferencef("detector", "unexpected output shape %v", dims)
	}
	channels := dims[1]
	anchors := dims[2]
	numClasses := channels - 4

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, model.Inferencef("detector", "read output tensor: %v", err)
	}
	if len(data) < channels*anchors {
		return nil, model.Inferencef("detector", "truncated output tensor")
	}

	at := func(c, i int) float32 { return data[c*anchors+i] }
	scaleX := float64(imgW) / inputSize
	scaleY := float64(imgH) / inputSize

	var dets []model.Detection
	for i := 0; i < anchors; i++ {
		bestScore := float32(0)
		bestClass := 0
		for c := 0; c < numClasses; c++ {
			if s := at(4+c, i); s > bestScore {
				bestScore = s
				bestClass = c
			}
		}
		if bestScore < scoreFloor {
			continue
		}

		cx := float64(at(0, i)) * scaleX
		cy := float64(at(1, i)) * scaleY
		bw := float64(at(2, i)) * scaleX
		bh := float64(at(3, i)) * scaleY

		box := geometry.Box{
			XMin:       cx - bw/2,
			YMin:       cy - bh/2,
			XMax:       cx + bw/2,
			YMax:       cy + bh/2,
			Confidence: float64(bestScore),
		}
		clamped, ok := box.Clamp(imgW, imgH)
		if !ok {
			continue
		}
		if !clamped.Valid() {
			return nil, model.Inferencef("detector", "malformed box %v", box)
		}
		dets = append(dets, model.Detection{Box: clamped, Class: bestClass})
	}
	return dets, nil
}

// imageToMat converts a Go image.Image to an OpenCV Mat in BGR byte order.
func imageToMat(src image.Image) gocv.Mat {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// 16-bit to 8-bit, BGR order for OpenCV
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat
}
