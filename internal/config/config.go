// Package config holds the pipeline configuration surface. Values come from
// the environment (optionally a .env file) with per-command flags layered on
// top by the callers.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Background selects the solid backdrop color used when the background is
// removed from a crop.
type Background string

const (
	BackgroundBlack Background = "black"
	BackgroundWhite Background = "white"
)

// Layout selects how the input directory tree is interpreted.
type Layout string

const (
	// LayoutFlat treats every image directly under the input directory as
	// an independent specimen.
	LayoutFlat Layout = "flat"
	// LayoutNested walks subdirectories and preserves their structure in
	// specimen identifiers.
	LayoutNested Layout = "nested"
)

// Config is the immutable configuration threaded through the pipeline.
type Config struct {
	// Model paths.
	DetectorModelPath string
	SAMEncoderPath    string
	SAMDecoderPath    string
	OnnxRuntimePath   string

	// Resolver thresholds.
	ConfidenceThreshold float64
	IoUThreshold        float64

	// Mask post-processing.
	MinInstanceArea int     // minimum cleaned-mask foreground pixels
	MaxHoleFraction float64 // holes below this fraction of the component area are filled
	CropMarginPx    int     // margin in pixels around the tight bounds
	CropMarginFrac  float64 // margin as a fraction of the larger bound dimension (used when > 0)
	Background      Background

	// Orientation policy: wings in these slots are mirrored so every wing
	// faces the canonical direction.
	FlipRight      bool
	OrientUnknown  bool // apply the facing heuristic to unknown-slot wings
	CanonicalLeft  bool // canonical facing direction is leftward

	// Batch driver.
	InputLayout Layout
	Workers     int
	Force       bool

	// Optional intermediate outputs.
	SaveMasks     bool
	VisualizeMask bool
}

// Default returns the configuration defaults, matching the thresholds the
// detection models were validated with.
func Default() Config {
	return Config{
		ConfidenceThreshold: 0.50,
		IoUThreshold:        0.50,
		MinInstanceArea:     400,
		MaxHoleFraction:     0.05,
		CropMarginPx:        10,
		Background:          BackgroundBlack,
		FlipRight:           true,
		OrientUnknown:       false,
		CanonicalLeft:       true,
		InputLayout:         LayoutFlat,
		Workers:             1,
	}
}

// FromEnv loads configuration from the environment on top of the defaults.
// A .env file in the working directory is honored when present.
func FromEnv() Config {
	_ = godotenv.Load()

	cfg := Default()
	cfg.DetectorModelPath = getEnv("WINGSEG_YOLO_MODEL", cfg.DetectorModelPath)
	cfg.SAMEncoderPath = getEnv("WINGSEG_SAM_ENCODER", cfg.SAMEncoderPath)
	cfg.SAMDecoderPath = getEnv("WINGSEG_SAM_DECODER", cfg.SAMDecoderPath)
	cfg.OnnxRuntimePath = getEnv("WINGSEG_ONNXRUNTIME_LIB", cfg.OnnxRuntimePath)
	cfg.ConfidenceThreshold = getEnvAsFloat("WINGSEG_CONFIDENCE", cfg.ConfidenceThreshold)
	cfg.IoUThreshold = getEnvAsFloat("WINGSEG_IOU", cfg.IoUThreshold)
	cfg.MinInstanceArea = getEnvAsInt("WINGSEG_MIN_AREA", cfg.MinInstanceArea)
	cfg.CropMarginPx = getEnvAsInt("WINGSEG_CROP_MARGIN", cfg.CropMarginPx)
	cfg.Workers = getEnvAsInt("WINGSEG_WORKERS", cfg.Workers)
	if bg := os.Getenv("WINGSEG_BACKGROUND"); bg != "" {
		cfg.Background = Background(bg)
	}
	return cfg
}

// Validate checks the configuration for startup-fatal mistakes.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %.2f outside [0,1]", c.ConfidenceThreshold)
	}
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		return fmt.Errorf("IoU threshold %.2f outside (0,1]", c.IoUThreshold)
	}
	if c.MinInstanceArea < 1 {
		return fmt.Errorf("minimum instance area must be positive, got %d", c.MinInstanceArea)
	}
	if c.MaxHoleFraction < 0 || c.MaxHoleFraction >= 1 {
		return fmt.Errorf("hole fraction %.2f outside [0,1)", c.MaxHoleFraction)
	}
	if c.CropMarginPx < 0 || c.CropMarginFrac < 0 {
		return fmt.Errorf("crop margin must be non-negative")
	}
	switch c.Background {
	case BackgroundBlack, BackgroundWhite:
	default:
		return fmt.Errorf("unsupported background color %q (choose black or white)", c.Background)
	}
	switch c.InputLayout {
	case LayoutFlat, LayoutNested:
	default:
		return fmt.Errorf("unsupported input layout %q (choose flat or nested)", c.InputLayout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Workers)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
