// Package resize implements the standalone resize stage: geometric resizing
// of a directory tree of images, either distorting to the target size or
// preserving aspect ratio with padding.
package resize

import (
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/internal/imageio"
	"github.com/Imageomics/wing-segmentation/internal/logger"
)

// Mode selects how the target size is reached.
type Mode string

const (
	// ModeDistort resizes without preserving aspect ratio.
	ModeDistort Mode = "distort"
	// ModePad preserves aspect ratio and pads to the target size.
	ModePad Mode = "pad"
)

// interpolations maps the CLI interpolation names onto OpenCV flags.
var interpolations = map[string]gocv.InterpolationFlags{
	"nearest":  gocv.InterpolationNearestNeighbor,
	"linear":   gocv.InterpolationLinear,
	"cubic":    gocv.InterpolationCubic,
	"area":     gocv.InterpolationArea,
	"lanczos4": gocv.InterpolationLanczos4,
}

// Interpolation resolves a name to an OpenCV flag.
func Interpolation(name string) (gocv.InterpolationFlags, error) {
	flag, ok := interpolations[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unsupported interpolation %q", name)
	}
	return flag, nil
}

// Options configures a resize run.
type Options struct {
	Width, Height int
	Mode          Mode
	PaddingColor  config.Background
	Interpolation gocv.InterpolationFlags
}

// Validate checks the options for startup-fatal mistakes.
func (o Options) Validate() error {
	if o.Width < 1 || o.Height < 1 {
		return fmt.Errorf("target size %dx%d must be positive", o.Width, o.Height)
	}
	switch o.Mode {
	case ModeDistort, ModePad:
	default:
		return fmt.Errorf("unsupported resize mode %q (choose distort or pad)", o.Mode)
	}
	if o.Mode == ModePad {
		switch o.PaddingColor {
		case config.BackgroundBlack, config.BackgroundWhite:
		default:
			return fmt.Errorf("unsupported padding color %q (choose black or white)", o.PaddingColor)
		}
	}
	return nil
}

// One resizes a single image file, writing a PNG to outPath.
func One(inPath, outPath string, opts Options) error {
	mat := gocv.IMRead(inPath, gocv.IMReadColor)
	if mat.Empty() {
		return fmt.Errorf("read %s: undecodable image", inPath)
	}
	defer mat.Close()

	out := gocv.NewMat()
	defer out.Close()

	switch opts.Mode {
	case ModeDistort:
		gocv.Resize(mat, &out, image.Pt(opts.Width, opts.Height), 0, 0, opts.Interpolation)
	case ModePad:
		resizePad(mat, &out, opts)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := outPath + ".tmp"
	if ok := gocv.IMWrite(tmp, out); !ok {
		os.Remove(tmp)
		return fmt.Errorf("write %s failed", outPath)
	}
	if err := os.Rename(tmp, outPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// resizePad scales the image to fit inside the target while preserving
// aspect ratio, then pads the remainder with a solid border.
func resizePad(src gocv.Mat, dst *gocv.Mat, opts Options) {
	srcW, srcH := src.Cols(), src.Rows()
	scale := float64(opts.Width) / float64(srcW)
	if s := float64(opts.Height) / float64(srcH); s < scale {
		scale = s
	}
	fitW := int(float64(srcW) * scale)
	fitH := int(float64(srcH) * scale)
	if fitW < 1 {
		fitW = 1
	}
	if fitH < 1 {
		fitH = 1
	}

	fitted := gocv.NewMat()
	defer fitted.Close()
	gocv.Resize(src, &fitted, image.Pt(fitW, fitH), 0, 0, opts.Interpolation)

	padX := opts.Width - fitW
	padY := opts.Height - fitH
	pad := color.RGBA{0, 0, 0, 0}
	if opts.PaddingColor == config.BackgroundWhite {
		pad = color.RGBA{255, 255, 255, 0}
	}
	gocv.CopyMakeBorder(fitted, dst,
		padY/2, padY-padY/2, padX/2, padX-padX/2,
		gocv.BorderConstant, pad)
}

// Run resizes every supported image under inputDir into outputDir,
// preserving the subdirectory structure and normalizing to PNG. Per-image
// failures are logged and counted without aborting the batch; returns
// processed and failed counts.
func Run(inputDir, outputDir string, opts Options, log *logger.Logger) (processed, failed int, err error) {
	if _, err := os.Stat(inputDir); err != nil {
		return 0, 0, fmt.Errorf("input directory: %w", err)
	}

	walkErr := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !imageio.Supported(path) {
			return nil
		}
		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}
		outPath := filepath.Join(outputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".png")
		if err := One(path, outPath, opts); err != nil {
			log.Error("%s: %v", path, err)
			failed++
			return nil
		}
		processed++
		return nil
	})
	if walkErr != nil {
		return processed, failed, fmt.Errorf("walk input directory: %w", walkErr)
	}
	return processed, failed, nil
}
