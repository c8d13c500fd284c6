// Command segment runs the detection-guided wing segmentation pipeline over
// a dataset directory: detect wing instances, segment each with a box
// prompt, resolve left/right slots, and write background-normalized,
// orientation-corrected crops into a per-specimen output layout.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Imageomics/wing-segmentation/internal/config"
	"github.com/Imageomics/wing-segmentation/internal/logger"
	"github.com/Imageomics/wing-segmentation/internal/manifest"
	"github.com/Imageomics/wing-segmentation/internal/model/sam"
	"github.com/Imageomics/wing-segmentation/internal/model/yolo"
	"github.com/Imageomics/wing-segmentation/internal/pipeline"
	"github.com/Imageomics/wing-segmentation/internal/version"
)

func main() {
	cfg := config.FromEnv()

	dataset := flag.String("dataset", "", "Path to dataset images (required)")
	outputBase := flag.String("output-base", "", "Base directory for run outputs (default: next to the dataset)")
	customOutput := flag.String("output-dir", "", "Fully custom output directory (overrides -output-base)")
	yoloModel := flag.String("yolo-model", cfg.DetectorModelPath, "Path to the YOLO ONNX detector model")
	samEncoder := flag.String("sam-encoder", cfg.SAMEncoderPath, "Path to the SAM2 encoder ONNX model")
	samDecoder := flag.String("sam-decoder", cfg.SAMDecoderPath, "Path to the SAM2 decoder ONNX model")
	onnxLib := flag.String("onnxruntime", cfg.OnnxRuntimePath, "Path to the onnxruntime shared library")
	confidence := flag.Float64("confidence", cfg.ConfidenceThreshold, "Detection confidence threshold")
	iou := flag.Float64("iou", cfg.IoUThreshold, "Overlap-suppression IoU threshold")
	minArea := flag.Int("min-area", cfg.MinInstanceArea, "Minimum instance foreground area in pixels")
	margin := flag.Int("crop-margin", cfg.CropMarginPx, "Crop margin in pixels around the tight bounds")
	marginFrac := flag.Float64("crop-margin-frac", cfg.CropMarginFrac, "Crop margin as a fraction of the crop size (overrides -crop-margin when > 0)")
	background := flag.String("background", string(cfg.Background), "Background color: black or white")
	layout := flag.String("input-layout", string(cfg.InputLayout), "Input layout: flat or nested")
	workers := flag.Int("workers", cfg.Workers, "Number of parallel image workers")
	flipRight := flag.Bool("flip-right", cfg.FlipRight, "Mirror right-slot wings into the canonical direction")
	orientUnknown := flag.Bool("orient-unknown", cfg.OrientUnknown, "Apply the facing heuristic to unknown-slot wings")
	saveMasks := flag.Bool("save-masks", cfg.SaveMasks, "Save cleaned instance masks under masks/")
	visualize := flag.Bool("visualize", cfg.VisualizeMask, "Save segmentation overlays under seg_viz/")
	force := flag.Bool("force", cfg.Force, "Reprocess even if a completed run exists")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wingseg segment %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}
	if *dataset == "" {
		fmt.Fprintln(os.Stderr, "Usage: segment -dataset <path> [options]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg.DetectorModelPath = *yoloModel
	cfg.SAMEncoderPath = *samEncoder
	cfg.SAMDecoderPath = *samDecoder
	cfg.OnnxRuntimePath = *onnxLib
	cfg.ConfidenceThreshold = *confidence
	cfg.IoUThreshold = *iou
	cfg.MinInstanceArea = *minArea
	cfg.CropMarginPx = *margin
	cfg.CropMarginFrac = *marginFrac
	cfg.Background = config.Background(*background)
	cfg.InputLayout = config.Layout(*layout)
	cfg.Workers = *workers
	cfg.FlipRight = *flipRight
	cfg.OrientUnknown = *orientUnknown
	cfg.SaveMasks = *saveMasks
	cfg.VisualizeMask = *visualize
	cfg.Force = *force

	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(2)
	}

	datasetPath, err := filepath.Abs(*dataset)
	if err != nil {
		log.Error("resolve dataset path: %v", err)
		os.Exit(2)
	}

	datasetHash, err := manifest.DatasetHash(datasetPath)
	if err != nil {
		log.Error("fingerprint dataset: %v", err)
		os.Exit(2)
	}
	params := manifest.ParamsFromConfig(cfg)
	runID := manifest.RunID(params, datasetHash)

	var runDir string
	switch {
	case *customOutput != "":
		runDir, err = filepath.Abs(*customOutput)
	case *outputBase != "":
		runDir = filepath.Join(*outputBase, manifest.RunDirName(datasetPath, runID))
	default:
		runDir = filepath.Join(filepath.Dir(datasetPath), manifest.RunDirName(datasetPath, runID))
	}
	if err != nil {
		log.Error("resolve output path: %v", err)
		os.Exit(2)
	}

	if !cfg.Force && manifest.Completed(runDir) {
		log.Info("completed run already exists at %s (use -force to reprocess)", runDir)
		return
	}

	detector, err := yolo.New(cfg.DetectorModelPath)
	if err != nil {
		log.Error("%v", err)
		os.Exit(2)
	}
	defer detector.Close()

	segmenter, err := sam.New(sam.Config{
		EncoderPath:     cfg.SAMEncoderPath,
		DecoderPath:     cfg.SAMDecoderPath,
		OnnxRuntimePath: cfg.OnnxRuntimePath,
	})
	if err != nil {
		log.Error("%v", err)
		os.Exit(2)
	}
	defer segmenter.Close()

	start := time.Now()
	p := pipeline.New(cfg, detector, segmenter, runDir, log)
	summary, err := p.Run(datasetPath)
	if err != nil {
		log.Error("%v", err)
		os.Exit(2)
	}

	m := &manifest.Manifest{
		Dataset: manifest.DatasetInfo{
			Path:      datasetPath,
			Hash:      datasetHash,
			NumImages: summary.Total,
		},
		Parameters: params,
		Status: manifest.Status{
			Completed:      summary.Failed == 0,
			StartedAt:      start.UTC(),
			ProcessingSecs: time.Since(start).Seconds(),
			Succeeded:      summary.Succeeded,
			Skipped:        summary.Skipped,
			Failed:         summary.Failed,
		},
	}
	if summary.Failed > 0 {
		m.Status.Errors = fmt.Sprintf("%d image(s) failed during processing", summary.Failed)
	}
	if err := m.Save(runDir); err != nil {
		log.Error("save run manifest: %v", err)
	}

	summary.Print(os.Stdout)
	fmt.Printf("Outputs: %s\n", runDir)
	os.Exit(summary.ExitCode())
}
