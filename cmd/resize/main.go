// Command resize performs the standalone resize stage: geometric resizing
// of a dataset directory with distort or pad mode, preserving subfolder
// structure and normalizing outputs to PNG.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/internal/logger"
	"github.com/Imageomics/wing-segmentation/internal/resize"
)

func main() {
	input := flag.String("input", "", "Path to source images (required)")
	output := flag.String("output", "", "Path for resized images (required)")
	width := flag.Int("width", 0, "Target width in pixels (required)")
	height := flag.Int("height", 0, "Target height (default: same as width)")
	mode := flag.String("mode", string(resize.ModeDistort), "Resize mode: distort or pad")
	padColor := flag.String("padding-color", string(config.BackgroundBlack), "Padding color for pad mode: black or white")
	interp := flag.String("interpolation", "area", "Interpolation: nearest, linear, cubic, area, or lanczos4")
	flag.Parse()

	if *input == "" || *output == "" || *width < 1 {
		fmt.Fprintln(os.Stderr, "Usage: resize -input <path> -output <path> -width <px> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *height < 1 {
		*height = *width
	}

	log := logger.New()

	interpolation, err := resize.Interpolation(*interp)
	if err != nil {
		log.Error("%v", err)
		os.Exit(2)
	}
	opts := resize.Options{
		Width:         *width,
		Height:        *height,
		Mode:          resize.Mode(*mode),
		PaddingColor:  config.Background(*padColor),
		Interpolation: interpolation,
	}
	if err := opts.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(2)
	}

	processed, failed, err := resize.Run(*input, *output, opts, log)
	if err != nil {
		log.Error("%v", err)
		os.Exit(2)
	}

	fmt.Printf("Resized %d image(s), %d failed\n", processed, failed)
	if failed > 0 && processed == 0 {
		os.Exit(1)
	}
}
