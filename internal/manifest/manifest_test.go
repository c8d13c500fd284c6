package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Imageomics/wing-segmentation/internal/config"
)

func TestRunIDStable(t *testing.T) {
	params := ParamsFromConfig(config.Default())
	a := RunID(params, "abc123")
	b := RunID(params, "abc123")
	if a != b {
		t.Error("same parameters and dataset must map to the same run id")
	}
	if len(a) != 12 {
		t.Errorf("run id length = %d, want 12", len(a))
	}

	changed := params
	changed.ConfidenceThreshold = 0.9
	if RunID(changed, "abc123") == a {
		t.Error("changed parameters must change the run id")
	}
	if RunID(params, "other") == a {
		t.Error("changed dataset must change the run id")
	}
}

func TestDatasetHashTracksContent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.png"), []byte("aaa"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.png"), []byte("bbbb"), 0o644); err != nil {
		t.Fatal(err)
	}

	h1, err := DatasetHash(dir)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := DatasetHash(dir)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("hash not deterministic")
	}

	// Size change changes the hash.
	if err := os.WriteFile(filepath.Join(dir, "b.png"), []byte("bbbbb"), 0o644); err != nil {
		t.Fatal(err)
	}
	h3, err := DatasetHash(dir)
	if err != nil {
		t.Fatal(err)
	}
	if h3 == h1 {
		t.Error("changed file size should change the dataset hash")
	}
}

func TestManifestSaveLoadAndCompleted(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "wings_deadbeef0123")

	m := &Manifest{
		Dataset:    DatasetInfo{Path: "/data/wings", Hash: "deadbeef", NumImages: 3},
		Parameters: ParamsFromConfig(config.Default()),
		Status: Status{
			Completed:      true,
			StartedAt:      time.Now().UTC(),
			ProcessingSecs: 1.5,
			Succeeded:      2,
			Skipped:        1,
		},
	}
	if err := m.Save(runDir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(runDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Dataset.Hash != "deadbeef" || loaded.Status.Succeeded != 2 {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if !Completed(runDir) {
		t.Error("Completed should report true for a completed manifest")
	}
	if Completed(filepath.Join(runDir, "nope")) {
		t.Error("Completed should report false when no manifest exists")
	}
}

func TestScanRuns(t *testing.T) {
	base := t.TempDir()
	dataset := filepath.Join(base, "wings")
	if err := os.MkdirAll(dataset, 0o755); err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"aaa111", "bbb222"} {
		m := &Manifest{Dataset: DatasetInfo{Path: dataset}}
		if err := m.Save(filepath.Join(base, RunDirName(dataset, id))); err != nil {
			t.Fatal(err)
		}
	}
	// A run dir without a manifest and an unrelated dir are both ignored.
	if err := os.MkdirAll(filepath.Join(base, "wings_empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(base, "other_ccc333"), 0o755); err != nil {
		t.Fatal(err)
	}

	runs, err := ScanRuns(dataset, base)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("found %d runs, want 2", len(runs))
	}
	if filepath.Base(runs[0].Dir) != "wings_aaa111" {
		t.Errorf("runs not sorted: %v", runs[0].Dir)
	}
}
