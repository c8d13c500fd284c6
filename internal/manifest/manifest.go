// Package manifest records what a processing run did: the dataset it saw,
// the parameters it ran with, and whether it completed. The manifest lives
// as metadata.json inside the run's output directory, and run directories
// are named <dataset>_<runid> so later invocations can find and skip
// completed runs.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Imageomics/wing-segmentation/internal/config"
)

// FileName is the manifest file inside a run directory.
const FileName = "metadata.json"

// Manifest is the durable record of one processing run.
type Manifest struct {
	Dataset    DatasetInfo `json:"dataset"`
	Parameters Parameters  `json:"run_parameters"`
	Status     Status      `json:"run_status"`
}

// DatasetInfo identifies the input the run consumed.
type DatasetInfo struct {
	Path      string `json:"path"`
	Hash      string `json:"dataset_hash"`
	NumImages int    `json:"num_images"`
}

// Parameters is the subset of configuration that defines run identity.
type Parameters struct {
	DetectorModel       string            `json:"detector_model"`
	SegmenterEncoder    string            `json:"segmenter_encoder"`
	ConfidenceThreshold float64           `json:"confidence_threshold"`
	IoUThreshold        float64           `json:"iou_threshold"`
	MinInstanceArea     int               `json:"min_instance_area"`
	Background          config.Background `json:"background_color"`
	InputLayout         config.Layout     `json:"input_layout"`
}

// Status tracks completion and failure counts.
type Status struct {
	Completed      bool      `json:"completed"`
	StartedAt      time.Time `json:"started_at"`
	ProcessingSecs float64   `json:"processing_time_seconds"`
	Succeeded      int       `json:"succeeded"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	Errors         string    `json:"errors,omitempty"`
}

// ParamsFromConfig extracts the identity-defining parameters.
func ParamsFromConfig(cfg config.Config) Parameters {
	return Parameters{
		DetectorModel:       cfg.DetectorModelPath,
		SegmenterEncoder:    cfg.SAMEncoderPath,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		IoUThreshold:        cfg.IoUThreshold,
		MinInstanceArea:     cfg.MinInstanceArea,
		Background:          cfg.Background,
		InputLayout:         cfg.InputLayout,
	}
}

// RunID derives a stable short identifier from the parameters and dataset
// hash. The same dataset processed with the same parameters always maps to
// the same run directory.
func RunID(params Parameters, datasetHash string) string {
	payload, _ := json.Marshal(struct {
		Parameters
		DatasetHash string `json:"dataset_hash"`
	}{params, datasetHash})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:12]
}

// DatasetHash fingerprints the dataset from its file paths and sizes, in
// sorted order so the hash is independent of walk order.
func DatasetHash(datasetPath string) (string, error) {
	type entry struct {
		path string
		size int64
	}
	var entries []entry
	err := filepath.WalkDir(datasetPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(datasetPath, path)
		if err != nil {
			return err
		}
		entries = append(entries, entry{path: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("hash dataset: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	h := sha256.New()
	for _, e := range entries {
		fmt.Fprintf(h, "%s:%d\n", e.path, e.size)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// RunDirName composes the output directory name for a run.
func RunDirName(datasetPath, runID string) string {
	return fmt.Sprintf("%s_%s", filepath.Base(filepath.Clean(datasetPath)), runID)
}

// Save writes the manifest into the run directory.
func (m *Manifest) Save(runDir string) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create run dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runDir, FileName), data, 0o644)
}

// Load reads a manifest from a run directory.
func Load(runDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(runDir, FileName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	return &m, nil
}

// Completed reports whether a completed run already exists in runDir.
func Completed(runDir string) bool {
	m, err := Load(runDir)
	return err == nil && m.Status.Completed
}

// Run pairs a run directory with its loaded manifest for scan listings.
type Run struct {
	Dir      string
	Manifest *Manifest
}

// ScanRuns lists all run directories for a dataset under baseDir, i.e.
// directories named <dataset>_* that contain a readable manifest.
func ScanRuns(datasetPath, baseDir string) ([]Run, error) {
	prefix := filepath.Base(filepath.Clean(datasetPath)) + "_"
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}

	var runs []Run
	for _, e := range entries {
		if !e.IsDir() || len(e.Name()) <= len(prefix) || e.Name()[:len(prefix)] != prefix {
			continue
		}
		dir := filepath.Join(baseDir, e.Name())
		m, err := Load(dir)
		if err != nil {
			continue
		}
		runs = append(runs, Run{Dir: dir, Manifest: m})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Dir < runs[j].Dir })
	return runs, nil
}
