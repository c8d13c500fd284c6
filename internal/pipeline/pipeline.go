// Package pipeline composes the per-image processing chain and the batch
// driver that runs it over an input directory.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/internal/imageio"
	"github.com/Imageomics/wing-segmentation/internal/logger"
	"github.com/Imageomics/wing-segmentation/internal/mask"
	"github.com/Imageomics/wing-segmentation/internal/model"
	"github.com/Imageomics/wing-segmentation/internal/orient"
	"github.com/Imageomics/wing-segmentation/internal/resolver"
)

// Pipeline holds the loaded capabilities and configuration shared across
// images. The models are serialized with their own mutexes; everything else
// is immutable during a run.
type Pipeline struct {
	cfg      config.Config
	detector model.Detector
	segm     model.Segmenter
	norm     *orient.Normalizer
	layout   Layout
	log      *logger.Logger

	detMu sync.Mutex
	segMu sync.Mutex
}

// New assembles a pipeline. The detector and segmenter must already be
// loaded; an unavailable capability is a startup error handled by the caller.
func New(cfg config.Config, det model.Detector, seg model.Segmenter, outputRoot string, log *logger.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		detector: det,
		segm:     seg,
		norm:     orient.New(cfg),
		layout:   Layout{Root: outputRoot},
		log:      log,
	}
}

// CropResult describes one written output crop.
type CropResult struct {
	Slot resolver.Slot
	Path string
	Flip orient.FlipState
}

// ProcessImage runs the full chain for one source image: detect, resolve,
// segment, post-process, orient, write. Per-instance segmentation failures
// drop that instance only; an image yielding no written crop at all returns
// ErrNoInstance.
func (p *Pipeline) ProcessImage(srcPath, relPath string) ([]CropResult, error) {
	img, err := imageio.Load(srcPath)
	if err != nil {
		return nil, &DecodeError{Path: srcPath, Err: err}
	}

	p.detMu.Lock()
	detections, err := p.detector.Detect(img)
	p.detMu.Unlock()
	if err != nil {
		return nil, err
	}

	res := resolver.Resolve(detections, p.cfg.ConfidenceThreshold, p.cfg.IoUThreshold)
	if res.Discarded > 0 {
		p.log.Warn("%s: %d surplus detections discarded beyond the top two", srcPath, res.Discarded)
	}
	if len(res.Instances) == 0 {
		return nil, ErrNoInstance
	}

	specimen := SpecimenID(relPath)
	opts := mask.OptionsFromConfig(p.cfg)

	var results []CropResult
	var viz *image.RGBA
	for _, inst := range res.Instances {
		p.segMu.Lock()
		m, err := p.segm.Segment(img, inst.Box)
		p.segMu.Unlock()
		if err != nil {
			p.log.Error("%s: instance %s dropped: %v", srcPath, inst.Slot, err)
			continue
		}
		if m.Area() == 0 {
			p.log.Warn("%s: instance %s produced an empty mask, dropped", srcPath, inst.Slot)
			continue
		}

		crop, err := mask.Postprocess(img, m, opts)
		if errors.Is(err, mask.ErrBelowMinArea) {
			p.log.Warn("%s: instance %s below minimum area, treated as false positive", srcPath, inst.Slot)
			continue
		}
		if err != nil {
			p.log.Error("%s: instance %s post-processing failed: %v", srcPath, inst.Slot, err)
			continue
		}

		normalized, flip := p.norm.Normalize(crop.Image, inst.Slot, m)

		if err := p.writeCrop(specimen, inst.Slot, flip, normalized); err != nil {
			return nil, err
		}
		results = append(results, CropResult{
			Slot: inst.Slot,
			Path: p.layout.CropPath(specimen, inst.Slot, flip),
			Flip: flip,
		})

		if p.cfg.SaveMasks {
			if err := imageio.SaveAtomic(p.layout.MaskPath(specimen, inst.Slot), m.ToGray()); err != nil {
				p.log.Error("%s: saving mask failed: %v", srcPath, err)
			}
		}
		if p.cfg.VisualizeMask {
			if viz == nil {
				viz = imageio.ToRGBA(img)
			}
			viz = overlayInto(viz, m)
		}
	}

	if len(results) == 0 {
		return nil, ErrNoInstance
	}

	if viz != nil {
		if err := imageio.SaveAtomic(p.layout.VizPath(specimen), viz); err != nil {
			p.log.Error("%s: saving visualization failed: %v", srcPath, err)
		}
	}
	return results, nil
}

// writeCrop removes the stale flip-state file for the slot, then writes the
// new crop atomically. Deterministic overwrite keeps re-runs from ever
// holding two flip states of one wing, which is what makes double-flipping
// impossible.
func (p *Pipeline) writeCrop(specimen string, slot resolver.Slot, flip orient.FlipState, img image.Image) error {
	for _, stale := range p.layout.SlotPaths(specimen, slot) {
		if stale == p.layout.CropPath(specimen, slot, flip) {
			continue
		}
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove stale crop %s: %w", stale, err)
		}
	}
	return imageio.SaveAtomic(p.layout.CropPath(specimen, slot, flip), img)
}

// overlayInto tints the mask's foreground into an existing visualization so
// multiple instances of one image land in a single overlay.
func overlayInto(viz *image.RGBA, m *mask.Mask) *image.RGBA {
	b := viz.Bounds()
	for y := 0; y < m.H && y < b.Dy(); y++ {
		for x := 0; x < m.W && x < b.Dx(); x++ {
			if !m.At(x, y) {
				continue
			}
			c := viz.RGBAAt(x, y)
			c.R = uint8(float64(c.R) * 0.7)
			c.G = uint8(float64(c.G)*0.7 + 255*0.3)
			c.B = uint8(float64(c.B) * 0.7)
			viz.SetRGBA(x, y, c)
		}
	}
	return viz
}
